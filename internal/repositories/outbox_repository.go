package repositories

import (
	"time"

	"rentals_backend/internal/models"

	"gorm.io/gorm"
)

// MaxOutboxAttempts - после стольких неудач запись перестает выбираться релеем
const MaxOutboxAttempts = 10

type OutboxRepository interface {
	Add(db *gorm.DB, apartmentID string, op models.OutboxOperation) error
	AddMany(db *gorm.DB, apartmentIDs []string, op models.OutboxOperation) error
	FetchPending(db *gorm.DB, limit int) ([]models.SearchOutbox, error)
	MarkProcessed(db *gorm.DB, ids []uint64, now time.Time) error
	MarkFailed(db *gorm.DB, id uint64, reason string) error
	DeleteProcessedBefore(db *gorm.DB, cutoff time.Time) (int64, error)
	CountPending(db *gorm.DB) (int64, error)
}

type outboxRepository struct{}

func NewOutboxRepository() OutboxRepository {
	return &outboxRepository{}
}

func (r *outboxRepository) Add(db *gorm.DB, apartmentID string, op models.OutboxOperation) error {
	return db.Create(&models.SearchOutbox{ApartmentID: apartmentID, Operation: op}).Error
}

func (r *outboxRepository) AddMany(db *gorm.DB, apartmentIDs []string, op models.OutboxOperation) error {
	if len(apartmentIDs) == 0 {
		return nil
	}
	rows := make([]models.SearchOutbox, 0, len(apartmentIDs))
	for _, id := range apartmentIDs {
		rows = append(rows, models.SearchOutbox{ApartmentID: id, Operation: op})
	}
	return db.Create(&rows).Error
}

// FetchPending - необработанные записи в порядке появления
func (r *outboxRepository) FetchPending(db *gorm.DB, limit int) ([]models.SearchOutbox, error) {
	var rows []models.SearchOutbox
	err := db.Where("processed_at IS NULL AND attempts < ?", MaxOutboxAttempts).
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *outboxRepository) MarkProcessed(db *gorm.DB, ids []uint64, now time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return db.Model(&models.SearchOutbox{}).
		Where("id IN ?", ids).
		Update("processed_at", now).Error
}

func (r *outboxRepository) MarkFailed(db *gorm.DB, id uint64, reason string) error {
	return db.Model(&models.SearchOutbox{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"attempts":   gorm.Expr("attempts + ?", 1),
			"last_error": reason,
		}).Error
}

func (r *outboxRepository) DeleteProcessedBefore(db *gorm.DB, cutoff time.Time) (int64, error) {
	result := db.Where("processed_at IS NOT NULL AND processed_at < ?", cutoff).Delete(&models.SearchOutbox{})
	return result.RowsAffected, result.Error
}

func (r *outboxRepository) CountPending(db *gorm.DB) (int64, error) {
	var count int64
	err := db.Model(&models.SearchOutbox{}).
		Where("processed_at IS NULL AND attempts < ?", MaxOutboxAttempts).
		Count(&count).Error
	return count, err
}
