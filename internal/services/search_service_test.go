package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"rentals_backend/internal/events"
	"rentals_backend/internal/models"
	"rentals_backend/internal/search"
	"rentals_backend/internal/services/dto"
	"rentals_backend/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearch_DefaultsAndMapping(t *testing.T) {
	env := newTestEnv(t)
	score := 2.5
	env.engine.result = &search.Result{
		Total: 1,
		Hits: []search.Hit{{
			Document: search.Document{ID: "a1", Title: "Room", Status: "PUBLISHED", IsActive: true},
			Score:    &score,
		}},
	}

	resp, err := env.services.SearchService.Search(context.Background(), &dto.SearchQuery{Query: "room", Limit: 500})
	require.NoError(t, err)

	assert.Equal(t, models.SortRelevance, env.engine.searchParams.Sort)
	assert.Equal(t, 100, env.engine.searchParams.Limit)
	assert.EqualValues(t, 1, resp.Total)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "a1", resp.Results[0].ID)
	assert.Equal(t, models.ApartmentStatusPublished, resp.Results[0].Status)
	assert.Equal(t, &score, resp.Results[0].Score)
	assert.Equal(t, []string{}, resp.Results[0].Keywords)
}

func TestSearch_EngineFailure(t *testing.T) {
	env := newTestEnv(t)
	env.engine.err = errors.New("cluster down")

	_, err := env.services.SearchService.Search(context.Background(), &dto.SearchQuery{Query: "room"})
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeExternalServiceError, appErr.Code)
}

func TestFilter_ParsesParams(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.services.SearchService.Filter(context.Background(), &dto.FilterRequest{
		Location:  "Sydney",
		MaxPrice:  intPtr(500),
		StartDate: strPtr("2026-05-01"),
		Keywords:  dto.KeywordList{"pets, balcony"},
		Sort:      models.SortPriceAsc,
	})
	require.NoError(t, err)

	p := env.engine.filterParams
	assert.Equal(t, "Sydney", p.Location)
	assert.Equal(t, 500, *p.MaxPrice)
	require.NotNil(t, p.StartDate)
	assert.True(t, p.StartDate.Equal(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, []string{"pets", "balcony"}, p.Keywords)
	assert.Equal(t, defaultLimit, p.Limit)
}

func TestFilter_BadStartDate(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.services.SearchService.Filter(context.Background(), &dto.FilterRequest{StartDate: strPtr("01/05/2026")})
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeValidationFailed, appErr.Code)
	assert.Empty(t, env.engine.filterParams.Location)
}

func TestSuggestionsAndAutocomplete(t *testing.T) {
	env := newTestEnv(t)
	env.engine.suggestions = []string{"apartment"}
	env.engine.completions = &search.Completions{Titles: []string{"Room"}, Locations: []string{"Redfern"}, Keywords: []string{}}

	suggestions := env.services.SearchService.Suggestions(context.Background(), &dto.SuggestionsQuery{Query: "apartmnt"})
	assert.Equal(t, []string{"apartment"}, suggestions.Suggestions)

	completions := env.services.SearchService.Autocomplete(context.Background(), &dto.AutocompleteQuery{Query: "re"})
	assert.Equal(t, []string{"Redfern"}, completions.Locations)

	env.engine.err = errors.New("timeout")
	suggestions = env.services.SearchService.Suggestions(context.Background(), &dto.SuggestionsQuery{Query: "apartmnt"})
	assert.Equal(t, []string{}, suggestions.Suggestions)
	assert.Equal(t, "apartmnt", suggestions.Query)

	completions = env.services.SearchService.Autocomplete(context.Background(), &dto.AutocompleteQuery{Query: "re"})
	assert.Equal(t, &dto.AutocompleteResponse{Titles: []string{}, Locations: []string{}, Keywords: []string{}}, completions)
}

func TestReindex(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "owner@test.com", models.UserRoleRenter)
	for i := 0; i < 3; i++ {
		env.createApartment(t, owner, nil)
	}
	env.engine.bulkFailures = 1

	resp, err := env.services.SearchService.Reindex(env.db)
	require.NoError(t, err)
	assert.Equal(t, &dto.ReindexResponse{Indexed: 2, Failed: 1}, resp)
	assert.Equal(t, 1, env.engine.ensured)
	assert.Len(t, env.engine.indexed, 2)
}

func TestReindex_EnsureIndexFails(t *testing.T) {
	env := newTestEnv(t)
	env.engine.err = errors.New("no cluster")

	_, err := env.services.SearchService.Reindex(env.db)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeExternalServiceError, appErr.Code)
}

func TestSearchIndexer_Handle(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "owner@test.com", models.UserRoleRenter)
	apartment := env.createApartment(t, owner, nil)
	indexer := NewSearchIndexer(env.db, env.repos.Apartment, env.engine)

	// удаление существующей строки индексирует ее текущее состояние
	require.NoError(t, indexer.Handle(context.Background(), events.ApartmentChanged{
		ApartmentID: apartment.ID,
		Operation:   models.OutboxOperationDelete,
	}))
	require.Contains(t, env.engine.indexed, apartment.ID)
	assert.Equal(t, apartment.Title, env.engine.indexed[apartment.ID].Title)

	require.NoError(t, env.db.Delete(&models.Apartment{}, "id = ?", apartment.ID).Error)
	require.NoError(t, indexer.Handle(context.Background(), events.ApartmentChanged{
		ApartmentID: apartment.ID,
		Operation:   models.OutboxOperationUpsert,
	}))
	assert.NotContains(t, env.engine.indexed, apartment.ID)
	assert.Equal(t, []string{apartment.ID}, env.engine.deleted)
}
