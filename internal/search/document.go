package search

import (
	"time"

	"rentals_backend/internal/models"
)

// Document - денормализованная копия объявления в индексе
type Document struct {
	ID               string     `json:"id"`
	RenterID         string     `json:"renter_id"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	Location         string     `json:"location"`
	ApartmentType    string     `json:"apartment_type"`
	RentPerWeek      int        `json:"rent_per_week"`
	StartDate        time.Time  `json:"start_date"`
	DurationLen      *int       `json:"duration_len,omitempty"`
	PlaceAccept      string     `json:"place_accept,omitempty"`
	FurnishingType   string     `json:"furnishing_type,omitempty"`
	IsBathroomSolo   bool       `json:"is_bathroom_solo"`
	ParkingType      string     `json:"parking_type,omitempty"`
	Keywords         []string   `json:"keywords"`
	Images           []string   `json:"images"`
	Status           string     `json:"status"`
	IsActive         bool       `json:"is_active"`
	ViewCount        int        `json:"view_count"`
	IsFeatured       bool       `json:"is_featured"`
	FeaturedPriority int        `json:"featured_priority"`
	FeaturedUntil    *time.Time `json:"featured_until,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

func FromApartment(a *models.Apartment) Document {
	keywords := append([]string{}, a.Keywords...)
	images := append([]string{}, a.Images...)

	return Document{
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
		Keywords:         keywords,
		Images:           images,
		Status:           string(a.Status),
		IsActive:         a.IsActive,
		ViewCount:        a.ViewCount,
		IsFeatured:       a.IsFeatured,
		FeaturedPriority: a.FeaturedPriority,
		FeaturedUntil:    a.FeaturedUntil,
		CreatedAt:        a.CreatedAt,
	}
}
