package models

import "time"

// SearchOutbox - запись об изменении объявления, которое нужно доставить в поисковый индекс.
// Пишется в той же транзакции, что и само изменение.
type SearchOutbox struct {
	ID          uint64          `gorm:"primaryKey;autoIncrement"`
	ApartmentID string          `gorm:"type:uuid;not null;index"`
	Operation   OutboxOperation `gorm:"type:varchar(10);not null"`
	Attempts    int             `gorm:"not null;default:0"`
	LastError   string
	ProcessedAt *time.Time `gorm:"index"`
	CreatedAt   time.Time  `gorm:"autoCreateTime"`
}

func (SearchOutbox) TableName() string {
	return "search_outbox"
}

// All - модели для AutoMigrate
func All() []interface{} {
	return []interface{}{
		&User{},
		&RefreshToken{},
		&PasswordResetToken{},
		&Apartment{},
		&Message{},
		&Notification{},
		&SearchOutbox{},
	}
}
