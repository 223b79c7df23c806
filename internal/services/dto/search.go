package dto

import "rentals_backend/internal/models"

type SearchQuery struct {
	Query     string            `form:"q" validate:"required,min=1,max=200"`
	Fuzziness string            `form:"fuzziness" validate:"omitempty,oneof=AUTO 0 1 2"`
	Sort      models.SortOption `form:"sort_by" validate:"omitempty,is-sort-option"`
	Skip      int               `form:"skip" validate:"min=0"`
	Limit     int               `form:"limit" validate:"min=0,max=100"`
}

// FilterRequest - тело POST /filter/apartments
type FilterRequest struct {
	Location       string            `json:"location"`
	ApartmentType  string            `json:"apartment_type"`
	MaxPrice       *int              `json:"max_price" validate:"omitempty,gt=0"`
	StartDate      *string           `json:"start_date"`
	MinDuration    *int              `json:"min_duration" validate:"omitempty,gt=0"`
	PlaceAccept    string            `json:"place_accept"`
	FurnishingType string            `json:"furnishing_type"`
	IsBathroomSolo *bool             `json:"is_bathroom_solo"`
	ParkingType    string            `json:"parking_type"`
	Keywords       KeywordList       `json:"keywords"`
	Sort           models.SortOption `json:"sort_by" validate:"omitempty,oneof=price_asc price_desc date_desc date_asc"`
	Skip           int               `json:"skip" validate:"min=0"`
	Limit          int               `json:"limit" validate:"min=0,max=100"`
}

type SuggestionsQuery struct {
	Query string `form:"q" validate:"required,min=1,max=200"`
	Max   int    `form:"max" validate:"min=0,max=20"`
}

type AutocompleteQuery struct {
	Query string `form:"q" validate:"required,min=1,max=100"`
	Field string `form:"field" validate:"omitempty,oneof=all title location keywords"`
	Limit int    `form:"limit" validate:"min=0,max=50"`
}

type SearchHit struct {
	*ApartmentResponse
	Score *float64 `json:"score,omitempty"`
}

type SearchResponse struct {
	Results []*SearchHit `json:"results"`
	Total   int64        `json:"total"`
	Skip    int          `json:"skip"`
	Limit   int          `json:"limit"`
}

type SuggestionsResponse struct {
	Query       string   `json:"query"`
	Suggestions []string `json:"suggestions"`
}

type AutocompleteResponse struct {
	Titles    []string `json:"titles"`
	Locations []string `json:"locations"`
	Keywords  []string `json:"keywords"`
}

type ReindexResponse struct {
	Indexed int `json:"indexed"`
	Failed  int `json:"failed"`
}
