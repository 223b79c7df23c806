package models

import "time"

type Message struct {
	BaseModel
	SenderID    string  `gorm:"type:uuid;not null;index"`
	ReceiverID  string  `gorm:"type:uuid;not null;index"`
	ApartmentID *string `gorm:"type:uuid;index"`
	Content     string  `gorm:"type:text;not null"`
	IsRead      bool    `gorm:"not null;default:false"`
	ReadAt      *time.Time
}
