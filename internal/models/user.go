package models

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

type User struct {
	BaseModel
	FirstName    string   `gorm:"not null"`
	LastName     string   `gorm:"not null"`
	Email        string   `gorm:"uniqueIndex;not null"`
	PasswordHash string   `gorm:"not null"`
	Location     string
	Role         UserRole `gorm:"type:varchar(20);not null;index"`
	IsActive     bool     `gorm:"not null"`
	FlatmatePref datatypes.JSONSlice[string]
	Keywords     datatypes.JSONSlice[string]
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

type RefreshToken struct {
	BaseModel
	UserID    string    `gorm:"type:uuid;not null;index"`
	Token     string    `gorm:"not null;uniqueIndex"`
	ExpiresAt time.Time `gorm:"not null"`
}

// PasswordResetToken - одноразовый токен сброса пароля
type PasswordResetToken struct {
	BaseModel
	UserID    string    `gorm:"type:uuid;not null;index"`
	Token     string    `gorm:"not null;uniqueIndex"`
	ExpiresAt time.Time `gorm:"not null"`
	Used      bool      `gorm:"not null;default:false"`
	UsedAt    *time.Time
}

func (t *PasswordResetToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
