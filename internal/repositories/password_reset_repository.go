package repositories

import (
	"errors"
	"time"

	"rentals_backend/internal/models"

	"gorm.io/gorm"
)

var ErrResetTokenNotFound = errors.New("password reset token not found")

type PasswordResetRepository interface {
	Create(db *gorm.DB, token *models.PasswordResetToken) error
	FindByToken(db *gorm.DB, token string) (*models.PasswordResetToken, error)
	// InvalidateUserTokens помечает все неиспользованные токены пользователя как использованные
	InvalidateUserTokens(db *gorm.DB, userID string, now time.Time) error
	MarkUsed(db *gorm.DB, id string, now time.Time) error
	// DeleteExpiredBefore удаляет токены, истекшие раньше cutoff
	DeleteExpiredBefore(db *gorm.DB, cutoff time.Time) (int64, error)
	DeleteByUserID(db *gorm.DB, userID string) error
}

type passwordResetRepository struct{}

func NewPasswordResetRepository() PasswordResetRepository {
	return &passwordResetRepository{}
}

func (r *passwordResetRepository) Create(db *gorm.DB, token *models.PasswordResetToken) error {
	return db.Create(token).Error
}

func (r *passwordResetRepository) FindByToken(db *gorm.DB, token string) (*models.PasswordResetToken, error) {
	var t models.PasswordResetToken
	if err := db.Where("token = ?", token).First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrResetTokenNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *passwordResetRepository) InvalidateUserTokens(db *gorm.DB, userID string, now time.Time) error {
	return db.Model(&models.PasswordResetToken{}).
		Where("user_id = ? AND used = ?", userID, false).
		Updates(map[string]interface{}{"used": true, "used_at": now}).Error
}

func (r *passwordResetRepository) MarkUsed(db *gorm.DB, id string, now time.Time) error {
	result := db.Model(&models.PasswordResetToken{}).
		Where("id = ? AND used = ?", id, false).
		Updates(map[string]interface{}{"used": true, "used_at": now})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrResetTokenNotFound
	}
	return nil
}

func (r *passwordResetRepository) DeleteExpiredBefore(db *gorm.DB, cutoff time.Time) (int64, error) {
	result := db.Where("expires_at < ?", cutoff).Delete(&models.PasswordResetToken{})
	return result.RowsAffected, result.Error
}

func (r *passwordResetRepository) DeleteByUserID(db *gorm.DB, userID string) error {
	return db.Where("user_id = ?", userID).Delete(&models.PasswordResetToken{}).Error
}
