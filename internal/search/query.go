package search

import (
	"strings"
	"time"

	"rentals_backend/internal/models"
)

type M = map[string]interface{}

// Автодополнение по полям
const (
	FieldAll      = "all"
	FieldTitle    = "title"
	FieldLocation = "location"
	FieldKeywords = "keywords"
)

var searchFields = []string{"title^3", "description^2", "location^2", "keywords"}

type SearchParams struct {
	Query     string
	Fuzziness string
	Sort      models.SortOption
	Skip      int
	Limit     int
}

type FilterParams struct {
	Location       string
	ApartmentType  string
	MaxPrice       *int
	StartDate      *time.Time
	MinDuration    *int
	PlaceAccept    string
	FurnishingType string
	IsBathroomSolo *bool
	ParkingType    string
	Keywords       []string
	Sort           models.SortOption
	Skip           int
	Limit          int
}

// visibleFilter - в выдачу попадают только опубликованные активные объявления
func visibleFilter() []interface{} {
	return []interface{}{
		M{"term": M{"status": string(models.ApartmentStatusPublished)}},
		M{"term": M{"is_active": true}},
	}
}

// BuildSearchQuery - нечеткий multi_match с весами полей
func BuildSearchQuery(p SearchParams) M {
	fuzziness := p.Fuzziness
	if fuzziness == "" {
		fuzziness = "AUTO"
	}

	body := M{
		"query": M{
			"bool": M{
				"must": []interface{}{
					M{"multi_match": M{
						"query":          p.Query,
						"fields":         searchFields,
						"fuzziness":      fuzziness,
						"prefix_length":  2,
						"max_expansions": 50,
						"type":           "best_fields",
					}},
				},
				"filter": visibleFilter(),
			},
		},
		"from": p.Skip,
		"size": p.Limit,
	}
	if sort := sortClause(p.Sort); sort != nil {
		body["sort"] = sort
	}
	return body
}

// BuildFilterQuery - структурный фильтр; пустые параметры не попадают в запрос
func BuildFilterQuery(p FilterParams) M {
	must := visibleFilter()

	if p.Location != "" {
		must = append(must, M{"match": M{"location": p.Location}})
	}
	if p.ApartmentType != "" {
		must = append(must, M{"match": M{"apartment_type": p.ApartmentType}})
	}
	if p.MaxPrice != nil {
		must = append(must, M{"range": M{"rent_per_week": M{"lte": *p.MaxPrice}}})
	}
	if p.StartDate != nil {
		must = append(must, M{"range": M{"start_date": M{"gte": p.StartDate.Format("2006-01-02")}}})
	}
	if p.MinDuration != nil {
		must = append(must, M{"range": M{"duration_len": M{"gte": *p.MinDuration}}})
	}
	if p.PlaceAccept != "" {
		must = append(must, M{"match": M{"place_accept": p.PlaceAccept}})
	}
	if p.FurnishingType != "" {
		must = append(must, M{"match": M{"furnishing_type": p.FurnishingType}})
	}
	if p.IsBathroomSolo != nil {
		must = append(must, M{"term": M{"is_bathroom_solo": *p.IsBathroomSolo}})
	}
	if p.ParkingType != "" {
		must = append(must, M{"match": M{"parking_type": p.ParkingType}})
	}

	boolQuery := M{"must": must}
	if len(p.Keywords) > 0 {
		boolQuery["should"] = []interface{}{
			M{"multi_match": M{
				"query":  strings.Join(p.Keywords, " "),
				"fields": []string{"title", "description", "keywords"},
			}},
		}
	}

	sortOpt := p.Sort
	switch sortOpt {
	case models.SortPriceAsc, models.SortPriceDesc, models.SortDateAsc, models.SortDateDesc:
	default:
		sortOpt = models.SortDateDesc
	}

	return M{
		"query": M{"bool": boolQuery},
		"sort":  sortClause(sortOpt),
		"from":  p.Skip,
		"size":  p.Limit,
	}
}

// BuildSpellingQuery - term-подсказки по трем текстовым полям
func BuildSpellingQuery(text string, max int) M {
	suggester := func(field string) M {
		return M{"term": M{
			"field":           field,
			"size":            max,
			"suggest_mode":    "popular",
			"min_word_length": 3,
			"prefix_length":   1,
		}}
	}

	suggest := M{"text": text}
	suggest["title_suggest"] = suggester("title")
	suggest["description_suggest"] = suggester("description")
	suggest["location_suggest"] = suggester("location")

	return M{"suggest": suggest, "size": 0}
}

// BuildAutocompleteQuery - completion-подсказки; field ограничивает набор групп
func BuildAutocompleteQuery(prefix, field string, limit int) M {
	completion := func(f string) M {
		return M{
			"prefix": prefix,
			"completion": M{
				"field":           f + ".suggest",
				"size":            limit,
				"skip_duplicates": true,
			},
		}
	}

	suggest := M{}
	if field == FieldAll || field == FieldTitle {
		suggest["title_completions"] = completion("title")
	}
	if field == FieldAll || field == FieldLocation {
		suggest["location_completions"] = completion("location")
	}
	if field == FieldAll || field == FieldKeywords {
		suggest["keyword_completions"] = completion("keywords")
	}
	return M{"suggest": suggest, "_source": false}
}

// IsAutocompleteField проверяет значение параметра field
func IsAutocompleteField(field string) bool {
	switch field {
	case FieldAll, FieldTitle, FieldLocation, FieldKeywords:
		return true
	}
	return false
}

// sortClause возвращает nil для сортировки по релевантности
func sortClause(opt models.SortOption) []interface{} {
	switch opt {
	case models.SortPriceAsc:
		return []interface{}{M{"rent_per_week": M{"order": "asc"}}}
	case models.SortPriceDesc:
		return []interface{}{M{"rent_per_week": M{"order": "desc"}}}
	case models.SortDateDesc:
		return []interface{}{M{"created_at": M{"order": "desc"}}}
	case models.SortDateAsc:
		return []interface{}{M{"created_at": M{"order": "asc"}}}
	case models.SortViewsDesc:
		return []interface{}{M{"view_count": M{"order": "desc"}}}
	case models.SortFeatured:
		return []interface{}{
			M{"is_featured": M{"order": "desc"}},
			M{"featured_priority": M{"order": "desc"}},
			"_score",
		}
	}
	return nil
}
