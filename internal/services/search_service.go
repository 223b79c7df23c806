package services

import (
	"context"
	"time"

	"rentals_backend/internal/logger"
	"rentals_backend/internal/models"
	"rentals_backend/internal/repositories"
	"rentals_backend/internal/search"
	"rentals_backend/internal/services/dto"
	"rentals_backend/internal/telemetry"
	"rentals_backend/pkg/apperrors"

	"gorm.io/gorm"
)

const (
	defaultSuggestions      = 5
	defaultAutocompleteSize = 10
	reindexBatchSize        = 500
)

type SearchService interface {
	EnsureIndex(ctx context.Context) error
	Search(ctx context.Context, query *dto.SearchQuery) (*dto.SearchResponse, error)
	Filter(ctx context.Context, req *dto.FilterRequest) (*dto.SearchResponse, error)
	// Suggestions и Autocomplete при недоступности поиска отдают пустой результат
	Suggestions(ctx context.Context, query *dto.SuggestionsQuery) *dto.SuggestionsResponse
	Autocomplete(ctx context.Context, query *dto.AutocompleteQuery) *dto.AutocompleteResponse
	Reindex(db *gorm.DB) (*dto.ReindexResponse, error)
}

type searchService struct {
	engine        search.Engine
	apartmentRepo repositories.ApartmentRepository
}

func NewSearchService(engine search.Engine, apartmentRepo repositories.ApartmentRepository) SearchService {
	return &searchService{engine: engine, apartmentRepo: apartmentRepo}
}

// EnsureIndex создает индекс с маппингом, если его еще нет
func (s *searchService) EnsureIndex(ctx context.Context) error {
	if err := s.engine.EnsureIndex(ctx); err != nil {
		return apperrors.ExternalServiceError(err, "search")
	}
	return nil
}

func (s *searchService) Search(ctx context.Context, query *dto.SearchQuery) (*dto.SearchResponse, error) {
	skip, limit := normalizePage(query.Skip, query.Limit, defaultLimit)
	sort := query.Sort
	if sort == "" {
		sort = models.SortRelevance
	}

	telemetry.SearchQueriesTotal.WithLabelValues("search").Inc()
	result, err := s.engine.Search(ctx, search.SearchParams{
		Query:     query.Query,
		Fuzziness: query.Fuzziness,
		Sort:      sort,
		Skip:      skip,
		Limit:     limit,
	})
	if err != nil {
		logger.CtxWithError(ctx, "Search query failed", err)
		return nil, apperrors.ExternalServiceError(err, "search")
	}
	return newSearchResponse(result, skip, limit), nil
}

func (s *searchService) Filter(ctx context.Context, req *dto.FilterRequest) (*dto.SearchResponse, error) {
	skip, limit := normalizePage(req.Skip, req.Limit, defaultLimit)

	params := search.FilterParams{
		Location:       req.Location,
		ApartmentType:  req.ApartmentType,
		MaxPrice:       req.MaxPrice,
		MinDuration:    req.MinDuration,
		PlaceAccept:    req.PlaceAccept,
		FurnishingType: req.FurnishingType,
		IsBathroomSolo: req.IsBathroomSolo,
		ParkingType:    req.ParkingType,
		Keywords:       dto.NormalizeKeywords(req.Keywords),
		Sort:           req.Sort,
		Skip:           skip,
		Limit:          limit,
	}
	if req.StartDate != nil && *req.StartDate != "" {
		start, err := parseStartDate(*req.StartDate)
		if err != nil {
			return nil, err
		}
		params.StartDate = &start
	}

	telemetry.SearchQueriesTotal.WithLabelValues("filter").Inc()
	result, err := s.engine.Filter(ctx, params)
	if err != nil {
		logger.CtxWithError(ctx, "Filter query failed", err)
		return nil, apperrors.ExternalServiceError(err, "search")
	}
	return newSearchResponse(result, skip, limit), nil
}

func (s *searchService) Suggestions(ctx context.Context, query *dto.SuggestionsQuery) *dto.SuggestionsResponse {
	size := query.Max
	if size <= 0 {
		size = defaultSuggestions
	}

	telemetry.SearchQueriesTotal.WithLabelValues("suggest").Inc()
	suggestions, err := s.engine.SuggestSpelling(ctx, query.Query, size)
	if err != nil {
		logger.CtxWithError(ctx, "Spelling suggestions failed", err)
		suggestions = []string{}
	}
	return &dto.SuggestionsResponse{Query: query.Query, Suggestions: suggestions}
}

func (s *searchService) Autocomplete(ctx context.Context, query *dto.AutocompleteQuery) *dto.AutocompleteResponse {
	field := query.Field
	if field == "" {
		field = search.FieldAll
	}
	limit := query.Limit
	if limit <= 0 {
		limit = defaultAutocompleteSize
	}

	resp := &dto.AutocompleteResponse{Titles: []string{}, Locations: []string{}, Keywords: []string{}}

	telemetry.SearchQueriesTotal.WithLabelValues("autocomplete").Inc()
	completions, err := s.engine.Autocomplete(ctx, query.Query, field, limit)
	if err != nil {
		logger.CtxWithError(ctx, "Autocomplete failed", err)
		return resp
	}
	resp.Titles = completions.Titles
	resp.Locations = completions.Locations
	resp.Keywords = completions.Keywords
	return resp
}

// Reindex переиндексирует все объявления пачками
func (s *searchService) Reindex(db *gorm.DB) (*dto.ReindexResponse, error) {
	ctx := contextOf(db)
	if err := s.EnsureIndex(ctx); err != nil {
		return nil, err
	}

	resp := &dto.ReindexResponse{}
	for offset := 0; ; offset += reindexBatchSize {
		batch, err := s.apartmentRepo.FindBatch(db, offset, reindexBatchSize)
		if err != nil {
			return nil, apperrors.DatabaseError(err)
		}
		if len(batch) == 0 {
			break
		}

		docs := make([]search.Document, 0, len(batch))
		for i := range batch {
			docs = append(docs, search.FromApartment(&batch[i]))
		}
		indexed, err := s.engine.BulkIndex(ctx, docs)
		resp.Indexed += indexed
		resp.Failed += len(docs) - indexed
		if err != nil {
			logger.CtxWithError(ctx, "Reindex batch failed", err, "offset", offset)
		}

		if len(batch) < reindexBatchSize {
			break
		}
	}

	logger.CtxInfo(ctx, "Reindex completed", "indexed", resp.Indexed, "failed", resp.Failed)
	return resp, nil
}

func newSearchResponse(result *search.Result, skip, limit int) *dto.SearchResponse {
	hits := make([]*dto.SearchHit, 0, len(result.Hits))
	for i := range result.Hits {
		hits = append(hits, &dto.SearchHit{
			ApartmentResponse: documentResponse(&result.Hits[i].Document),
			Score:             result.Hits[i].Score,
		})
	}
	return &dto.SearchResponse{Results: hits, Total: result.Total, Skip: skip, Limit: limit}
}

func documentResponse(d *search.Document) *dto.ApartmentResponse {
	var until *time.Time
	if d.FeaturedUntil != nil {
		t := *d.FeaturedUntil
		until = &t
	}
	keywords := d.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	images := d.Images
	if images == nil {
		images = []string{}
	}
	return &dto.ApartmentResponse{
		ID:               d.ID,
		RenterID:         d.RenterID,
		Title:            d.Title,
		Description:      d.Description,
		Location:         d.Location,
		ApartmentType:    d.ApartmentType,
		RentPerWeek:      d.RentPerWeek,
		StartDate:        d.StartDate,
		DurationLen:      d.DurationLen,
		PlaceAccept:      d.PlaceAccept,
		FurnishingType:   d.FurnishingType,
		IsBathroomSolo:   d.IsBathroomSolo,
		ParkingType:      d.ParkingType,
		Keywords:         keywords,
		Images:           images,
		Status:           models.ApartmentStatus(d.Status),
		IsActive:         d.IsActive,
		ViewCount:        d.ViewCount,
		IsFeatured:       d.IsFeatured,
		FeaturedUntil:    until,
		FeaturedPriority: d.FeaturedPriority,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.CreatedAt,
	}
}
