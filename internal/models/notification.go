package models

import (
	"time"

	"gorm.io/datatypes"
)

type Notification struct {
	BaseModel
	UserID    string           `gorm:"type:uuid;not null;index"`
	Type      NotificationType `gorm:"type:varchar(32);not null"`
	Title     string           `gorm:"not null"`
	Message   string
	RelatedID *string        `gorm:"type:uuid"` // id сообщения или объявления
	Data      datatypes.JSON // {"sender_id": "...", "apartment_id": "..."}
	IsRead    bool           `gorm:"not null;default:false"`
	ReadAt    *time.Time
}
