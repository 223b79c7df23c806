package search

import (
	"encoding/json"
	"testing"
	"time"

	"rentals_backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// roundTrip приводит запрос к виду, в котором он уйдет в ES
func roundTrip(t *testing.T, body M) map[string]interface{} {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestBuildSearchQuery_Defaults(t *testing.T) {
	q := roundTrip(t, BuildSearchQuery(SearchParams{Query: "sunny room", Skip: 20, Limit: 10}))

	assert.EqualValues(t, 20, q["from"])
	assert.EqualValues(t, 10, q["size"])
	assert.NotContains(t, q, "sort", "relevance must not add an explicit sort")

	boolQ := q["query"].(map[string]interface{})["bool"].(map[string]interface{})
	mm := boolQ["must"].([]interface{})[0].(map[string]interface{})["multi_match"].(map[string]interface{})
	assert.Equal(t, "sunny room", mm["query"])
	assert.Equal(t, "AUTO", mm["fuzziness"])
	assert.EqualValues(t, 2, mm["prefix_length"])
	assert.EqualValues(t, 50, mm["max_expansions"])
	assert.Equal(t, "best_fields", mm["type"])
	assert.Equal(t, []interface{}{"title^3", "description^2", "location^2", "keywords"}, mm["fields"])

	assert.Len(t, boolQ["filter"], 2)
}

func TestBuildSearchQuery_CustomFuzzinessAndSort(t *testing.T) {
	q := roundTrip(t, BuildSearchQuery(SearchParams{Query: "x", Fuzziness: "1", Sort: models.SortFeatured}))

	mm := q["query"].(map[string]interface{})["bool"].(map[string]interface{})["must"].([]interface{})[0].(map[string]interface{})["multi_match"].(map[string]interface{})
	assert.Equal(t, "1", mm["fuzziness"])

	sort := q["sort"].([]interface{})
	require.Len(t, sort, 3)
	assert.Equal(t, map[string]interface{}{"is_featured": map[string]interface{}{"order": "desc"}}, sort[0])
	assert.Equal(t, map[string]interface{}{"featured_priority": map[string]interface{}{"order": "desc"}}, sort[1])
	assert.Equal(t, "_score", sort[2])
}

func TestSortClause(t *testing.T) {
	cases := map[models.SortOption]string{
		models.SortPriceAsc:  "rent_per_week:asc",
		models.SortPriceDesc: "rent_per_week:desc",
		models.SortDateDesc:  "created_at:desc",
		models.SortDateAsc:   "created_at:asc",
		models.SortViewsDesc: "view_count:desc",
	}
	for opt, want := range cases {
		clause := sortClause(opt)
		require.Len(t, clause, 1, opt)
		for field, v := range clause[0].(M) {
			assert.Equal(t, want, field+":"+v.(M)["order"].(string), opt)
		}
	}
	assert.Nil(t, sortClause(models.SortRelevance))
	assert.Nil(t, sortClause(""))
}

func TestBuildFilterQuery_OnlyProvidedClauses(t *testing.T) {
	q := roundTrip(t, BuildFilterQuery(FilterParams{Limit: 10}))

	boolQ := q["query"].(map[string]interface{})["bool"].(map[string]interface{})
	assert.Len(t, boolQ["must"], 2, "only visibility terms expected")
	assert.NotContains(t, boolQ, "should")

	sort := q["sort"].([]interface{})
	assert.Equal(t, map[string]interface{}{"created_at": map[string]interface{}{"order": "desc"}}, sort[0])
}

func TestBuildFilterQuery_AllClauses(t *testing.T) {
	maxPrice := 300
	minDuration := 4
	solo := false
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	q := roundTrip(t, BuildFilterQuery(FilterParams{
		Location:       "Sydney",
		ApartmentType:  "studio",
		MaxPrice:       &maxPrice,
		StartDate:      &start,
		MinDuration:    &minDuration,
		PlaceAccept:    "couples",
		FurnishingType: "furnished",
		IsBathroomSolo: &solo,
		ParkingType:    "street",
		Keywords:       []string{"quiet", "garden"},
		Sort:           models.SortPriceAsc,
		Skip:           5,
		Limit:          5,
	}))

	boolQ := q["query"].(map[string]interface{})["bool"].(map[string]interface{})
	must := boolQ["must"].([]interface{})
	assert.Len(t, must, 11)
	assert.Contains(t, must, map[string]interface{}{"range": map[string]interface{}{"rent_per_week": map[string]interface{}{"lte": float64(300)}}})
	assert.Contains(t, must, map[string]interface{}{"range": map[string]interface{}{"start_date": map[string]interface{}{"gte": "2025-03-01"}}})
	assert.Contains(t, must, map[string]interface{}{"term": map[string]interface{}{"is_bathroom_solo": false}})

	should := boolQ["should"].([]interface{})
	mm := should[0].(map[string]interface{})["multi_match"].(map[string]interface{})
	assert.Equal(t, "quiet garden", mm["query"])

	sort := q["sort"].([]interface{})
	assert.Equal(t, map[string]interface{}{"rent_per_week": map[string]interface{}{"order": "asc"}}, sort[0])
}

func TestBuildFilterQuery_UnsupportedSortFallsBackToDate(t *testing.T) {
	q := roundTrip(t, BuildFilterQuery(FilterParams{Sort: models.SortViewsDesc}))
	sort := q["sort"].([]interface{})
	assert.Equal(t, map[string]interface{}{"created_at": map[string]interface{}{"order": "desc"}}, sort[0])
}

func TestBuildSpellingQuery(t *testing.T) {
	q := roundTrip(t, BuildSpellingQuery("apartmnt", 5))

	assert.EqualValues(t, 0, q["size"])
	suggest := q["suggest"].(map[string]interface{})
	assert.Equal(t, "apartmnt", suggest["text"])
	for _, name := range []string{"title_suggest", "description_suggest", "location_suggest"} {
		term := suggest[name].(map[string]interface{})["term"].(map[string]interface{})
		assert.EqualValues(t, 5, term["size"])
		assert.Equal(t, "popular", term["suggest_mode"])
		assert.EqualValues(t, 3, term["min_word_length"])
		assert.EqualValues(t, 1, term["prefix_length"])
	}
}

func TestBuildAutocompleteQuery_FieldSelection(t *testing.T) {
	all := BuildAutocompleteQuery("syd", FieldAll, 5)["suggest"].(M)
	assert.Len(t, all, 3)

	onlyLocation := BuildAutocompleteQuery("syd", FieldLocation, 5)["suggest"].(M)
	require.Len(t, onlyLocation, 1)
	completion := onlyLocation["location_completions"].(M)
	assert.Equal(t, "syd", completion["prefix"])
	assert.Equal(t, "location.suggest", completion["completion"].(M)["field"])
	assert.Equal(t, true, completion["completion"].(M)["skip_duplicates"])

	assert.True(t, IsAutocompleteField("keywords"))
	assert.False(t, IsAutocompleteField("description"))
}

func TestFromApartment_CopiesSlices(t *testing.T) {
	apt := &models.Apartment{Title: "Room", Status: models.ApartmentStatusPublished}
	apt.ID = "a-1"
	apt.Keywords = []string{"quiet"}
	apt.Images = []string{"1.jpg"}

	doc := FromApartment(apt)
	apt.Keywords[0] = "loud"

	assert.Equal(t, "a-1", doc.ID)
	assert.Equal(t, "PUBLISHED", doc.Status)
	assert.Equal(t, []string{"quiet"}, doc.Keywords)
}
