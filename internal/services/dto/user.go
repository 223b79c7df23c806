package dto

import (
	"time"

	"rentals_backend/internal/models"
)

type UserResponse struct {
	ID           string          `json:"id"`
	FirstName    string          `json:"first_name"`
	LastName     string          `json:"last_name"`
	Email        string          `json:"email"`
	Location     string          `json:"location"`
	Role         models.UserRole `json:"role"`
	FlatmatePref []string        `json:"flatmate_pref"`
	Keywords     []string        `json:"keywords"`
	IsActive     bool            `json:"is_active"`
	CreatedAt    time.Time       `json:"created_at"`
}

// PublicUserResponse - профиль без email для чужих пользователей
type PublicUserResponse struct {
	ID        string          `json:"id"`
	FirstName string          `json:"first_name"`
	LastName  string          `json:"last_name"`
	Location  string          `json:"location"`
	Role      models.UserRole `json:"role"`
}

type UpdateUserRequest struct {
	FirstName    *string   `json:"first_name" validate:"omitempty,min=1,max=100"`
	LastName     *string   `json:"last_name" validate:"omitempty,min=1,max=100"`
	Location     *string   `json:"location" validate:"omitempty,min=1,max=300"`
	FlatmatePref *[]string `json:"flatmate_pref"`
	Keywords     *[]string `json:"keywords"`
}

type UserListResponse struct {
	Users []*UserResponse `json:"users"`
	Total int64           `json:"total"`
	Skip  int             `json:"skip"`
	Limit int             `json:"limit"`
}

// PlatformStats - сводка для администратора
type PlatformStats struct {
	TotalUsers          int64 `json:"total_users"`
	Seekers             int64 `json:"seekers"`
	Renters             int64 `json:"renters"`
	Admins              int64 `json:"admins"`
	TotalApartments     int64 `json:"total_apartments"`
	ActiveApartments    int64 `json:"active_apartments"`
	PublishedApartments int64 `json:"published_apartments"`
	FeaturedApartments  int64 `json:"featured_apartments"`
	PendingIndexUpdates int64 `json:"pending_index_updates"`
}

func NewUserResponse(u *models.User) *UserResponse {
	return &UserResponse{
		ID:           u.ID,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Email:        u.Email,
		Location:     u.Location,
		Role:         u.Role,
		FlatmatePref: nonNil(u.FlatmatePref),
		Keywords:     nonNil(u.Keywords),
		IsActive:     u.IsActive,
		CreatedAt:    u.CreatedAt,
	}
}

func NewPublicUserResponse(u *models.User) *PublicUserResponse {
	return &PublicUserResponse{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Location:  u.Location,
		Role:      u.Role,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return append([]string{}, s...)
}
