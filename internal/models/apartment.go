package models

import (
	"time"

	"gorm.io/datatypes"
)

type Apartment struct {
	BaseModel
	RenterID       string `gorm:"type:uuid;not null;index"`
	Title          string `gorm:"not null"`
	Description    string `gorm:"type:text;not null"`
	Location       string `gorm:"not null;index"`
	ApartmentType  string `gorm:"not null"`
	RentPerWeek    int    `gorm:"not null"`
	StartDate      time.Time
	DurationLen    *int // недели
	PlaceAccept    string
	FurnishingType string
	IsBathroomSolo bool
	ParkingType    string
	Keywords       datatypes.JSONSlice[string]
	Images         datatypes.JSONSlice[string]

	// Старые записи без статуса считаются опубликованными; новые создаются как DRAFT явно.
	Status   ApartmentStatus `gorm:"type:varchar(20);not null;default:'PUBLISHED';index"`
	IsActive bool            `gorm:"not null"`

	ViewCount    int `gorm:"not null;default:0"`
	LastViewedAt *time.Time

	IsFeatured       bool `gorm:"not null;default:false;index:idx_featured_apartments,priority:1"`
	FeaturedUntil    *time.Time
	FeaturedPriority int `gorm:"not null;default:0;index:idx_featured_apartments,priority:2"`
}

func (a *Apartment) IsOwnedBy(userID string) bool {
	return a.RenterID == userID
}

// IsCurrentlyFeatured - флаг установлен и срок не истек (nil = бессрочно)
func (a *Apartment) IsCurrentlyFeatured(now time.Time) bool {
	return a.IsFeatured && (a.FeaturedUntil == nil || a.FeaturedUntil.After(now))
}
