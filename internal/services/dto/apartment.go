package dto

import (
	"mime/multipart"
	"time"

	"rentals_backend/internal/models"
)

// CreateApartmentRequest - JSON или multipart; в multipart файлы лежат в Files
type CreateApartmentRequest struct {
	Title          string      `json:"title" form:"title" validate:"required,max=200"`
	Description    string      `json:"description" form:"description" validate:"required"`
	Location       string      `json:"location" form:"location" validate:"required,max=300"`
	ApartmentType  string      `json:"apartment_type" form:"apartment_type" validate:"required,max=50"`
	RentPerWeek    int         `json:"rent_per_week" form:"rent_per_week"`
	StartDate      string      `json:"start_date" form:"start_date" validate:"required"`
	DurationLen    *int        `json:"duration_len" form:"duration_len" validate:"omitempty,gt=0"`
	PlaceAccept    string      `json:"place_accept" form:"place_accept" validate:"max=50"`
	FurnishingType string      `json:"furnishing_type" form:"furnishing_type" validate:"max=50"`
	IsBathroomSolo bool        `json:"is_bathroom_solo" form:"is_bathroom_solo"`
	ParkingType    string      `json:"parking_type" form:"parking_type" validate:"max=50"`
	Keywords       KeywordList `json:"keywords" form:"keywords"`
	Images         []string    `json:"images" form:"images"`
	IsActive       *bool       `json:"is_active" form:"is_active"`

	Files []*multipart.FileHeader `json:"-" form:"-"`
}

// UpdateApartmentRequest - частичное обновление; nil-поля не меняются
type UpdateApartmentRequest struct {
	Title          *string                 `json:"title" validate:"omitempty,min=1,max=200"`
	Description    *string                 `json:"description" validate:"omitempty,min=1"`
	Location       *string                 `json:"location" validate:"omitempty,min=1,max=300"`
	ApartmentType  *string                 `json:"apartment_type" validate:"omitempty,max=50"`
	RentPerWeek    *int                    `json:"rent_per_week" validate:"omitempty,gt=0"`
	StartDate      *string                 `json:"start_date"`
	DurationLen    *int                    `json:"duration_len" validate:"omitempty,gt=0"`
	PlaceAccept    *string                 `json:"place_accept" validate:"omitempty,max=50"`
	FurnishingType *string                 `json:"furnishing_type" validate:"omitempty,max=50"`
	IsBathroomSolo *bool                   `json:"is_bathroom_solo"`
	ParkingType    *string                 `json:"parking_type" validate:"omitempty,max=50"`
	Keywords       *KeywordList            `json:"keywords"`
	Images         *[]string               `json:"images"`
	IsActive       *bool                   `json:"is_active"`
	Status         *models.ApartmentStatus `json:"status" validate:"omitempty,is-apartment-status"`
}

type ListApartmentsQuery struct {
	Skip          int  `form:"skip" validate:"min=0"`
	Limit         int  `form:"limit" validate:"min=0,max=100"`
	FeaturedFirst bool `form:"featured_first"`
}

type FeatureRequest struct {
	DurationDays int `json:"duration_days" validate:"required,min=1,max=90"`
	Priority     int `json:"priority" validate:"required,min=1,max=10"`
}

type DuplicateRequest struct {
	NewOwnerID *string `json:"new_owner_id" validate:"omitempty,uuid"`
}

type BulkOperationRequest struct {
	ApartmentIDs []string          `json:"apartment_ids" validate:"required,min=1,max=100,dive,required"`
	Action       models.BulkAction `json:"action" validate:"required,is-bulk-action"`
	// Только для FEATURE
	DurationDays int `json:"duration_days" validate:"omitempty,min=1,max=90"`
	Priority     int `json:"priority" validate:"omitempty,min=1,max=10"`
}

type BulkItemError struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// BulkOperationResponse - итог массовой операции.
// UpdatedApartments содержит id всех успешно обработанных объявлений, включая удаленные.
type BulkOperationResponse struct {
	TotalRequested    int             `json:"total_requested"`
	Successful        int             `json:"successful"`
	Failed            int             `json:"failed"`
	Errors            []BulkItemError `json:"errors"`
	UpdatedApartments []string        `json:"updated_apartments"`
}

type ApartmentResponse struct {
	ID               string                 `json:"id"`
	RenterID         string                 `json:"renter_id"`
	Title            string                 `json:"title"`
	Description      string                 `json:"description"`
	Location         string                 `json:"location"`
	ApartmentType    string                 `json:"apartment_type"`
	RentPerWeek      int                    `json:"rent_per_week"`
	StartDate        time.Time              `json:"start_date"`
	DurationLen      *int                   `json:"duration_len"`
	PlaceAccept      string                 `json:"place_accept"`
	FurnishingType   string                 `json:"furnishing_type"`
	IsBathroomSolo   bool                   `json:"is_bathroom_solo"`
	ParkingType      string                 `json:"parking_type"`
	Keywords         []string               `json:"keywords"`
	Images           []string               `json:"images"`
	Status           models.ApartmentStatus `json:"status"`
	IsActive         bool                   `json:"is_active"`
	ViewCount        int                    `json:"view_count"`
	LastViewedAt     *time.Time             `json:"last_viewed_at"`
	IsFeatured       bool                   `json:"is_featured"`
	FeaturedUntil    *time.Time             `json:"featured_until"`
	FeaturedPriority int                    `json:"featured_priority"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
}

type ApartmentListResponse struct {
	Apartments []*ApartmentResponse `json:"apartments"`
	Total      int64                `json:"total"`
	Skip       int                  `json:"skip"`
	Limit      int                  `json:"limit"`
}

type ExpireFeaturedResponse struct {
	Expired int64 `json:"expired"`
}

func NewApartmentResponse(a *models.Apartment) *ApartmentResponse {
	return &ApartmentResponse{
		ID:               a.ID,
		RenterID:         a.RenterID,
		Title:            a.Title,
		Description:      a.Description,
		Location:         a.Location,
		ApartmentType:    a.ApartmentType,
		RentPerWeek:      a.RentPerWeek,
		StartDate:        a.StartDate,
		DurationLen:      a.DurationLen,
		PlaceAccept:      a.PlaceAccept,
		FurnishingType:   a.FurnishingType,
		IsBathroomSolo:   a.IsBathroomSolo,
		ParkingType:      a.ParkingType,
		Keywords:         nonNil(a.Keywords),
		Images:           nonNil(a.Images),
		Status:           a.Status,
		IsActive:         a.IsActive,
		ViewCount:        a.ViewCount,
		LastViewedAt:     a.LastViewedAt,
		IsFeatured:       a.IsFeatured,
		FeaturedUntil:    a.FeaturedUntil,
		FeaturedPriority: a.FeaturedPriority,
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
	}
}

func NewApartmentResponses(apartments []models.Apartment) []*ApartmentResponse {
	out := make([]*ApartmentResponse, 0, len(apartments))
	for i := range apartments {
		out = append(out, NewApartmentResponse(&apartments[i]))
	}
	return out
}
