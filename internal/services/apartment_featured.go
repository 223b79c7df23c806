package services

import (
	"time"

	"rentals_backend/internal/auth"
	"rentals_backend/internal/logger"
	"rentals_backend/internal/models"
	"rentals_backend/internal/services/dto"
	"rentals_backend/internal/telemetry"
	"rentals_backend/pkg/apperrors"

	"gorm.io/gorm"
)

const defaultFeaturedLimit = 10

func validFeatureParams(durationDays, priority int) bool {
	return durationDays >= MinFeatureDays && durationDays <= MaxFeatureDays &&
		priority >= MinFeaturePriority && priority <= MaxFeaturePriority
}

func applyFeature(a *models.Apartment, now time.Time, durationDays, priority int) {
	until := now.Add(time.Duration(durationDays) * 24 * time.Hour)
	a.IsFeatured = true
	a.FeaturedUntil = &until
	a.FeaturedPriority = priority
}

// applyUnfeature приводит к канонической форме: флаг снят, приоритет 0, срок пуст
func applyUnfeature(a *models.Apartment) {
	a.IsFeatured = false
	a.FeaturedPriority = 0
	a.FeaturedUntil = nil
}

func (s *apartmentService) Feature(db *gorm.DB, actor auth.Actor, apartmentID string, req *dto.FeatureRequest) (*dto.ApartmentResponse, error) {
	if !validFeatureParams(req.DurationDays, req.Priority) {
		return nil, apperrors.ErrInvalidFeatureParams
	}
	now := s.clock.now()
	return s.mutate(db, actor, apartmentID, "feature", func(a *models.Apartment) error {
		applyFeature(a, now, req.DurationDays, req.Priority)
		return nil
	})
}

func (s *apartmentService) Unfeature(db *gorm.DB, actor auth.Actor, apartmentID string) (*dto.ApartmentResponse, error) {
	return s.mutate(db, actor, apartmentID, "unfeature", func(a *models.Apartment) error {
		applyUnfeature(a)
		return nil
	})
}

// GetFeatured - опубликованные активные объявления с действующим продвижением
func (s *apartmentService) GetFeatured(db *gorm.DB, limit int) ([]*dto.ApartmentResponse, error) {
	_, limit = normalizePage(0, limit, defaultFeaturedLimit)

	apartments, err := s.apartmentRepo.FindFeatured(db, s.clock.now(), limit)
	if err != nil {
		return nil, handleApartmentError(err)
	}
	return dto.NewApartmentResponses(apartments), nil
}

// ExpireFeatured снимает истекшее продвижение одним условным UPDATE.
// featured_until сохраняется; владельцы получают уведомление.
func (s *apartmentService) ExpireFeatured(db *gorm.DB) (int64, error) {
	now := s.clock.now()

	tx := db.Begin()
	if tx.Error != nil {
		return 0, apperrors.InternalError(tx.Error)
	}
	defer tx.Rollback()

	// побочные эффекты только для строк, которые изменил этот проход
	expired, err := s.apartmentRepo.ExpireFeatured(tx, now)
	if err != nil {
		return 0, handleApartmentError(err)
	}
	if len(expired) == 0 {
		return 0, nil
	}

	ids := make([]string, 0, len(expired))
	for _, a := range expired {
		ids = append(ids, a.ID)
	}
	if err := s.outboxRepo.AddMany(tx, ids, models.OutboxOperationUpsert); err != nil {
		return 0, apperrors.DatabaseError(err)
	}
	for _, a := range expired {
		if err := s.notifications.NotifyFeaturedExpired(tx, a.RenterID, a.Title, a.ID); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit().Error; err != nil {
		return 0, apperrors.DatabaseError(err)
	}

	ctx := contextOf(db)
	s.invalidate(ctx, ids...)
	telemetry.FeaturedExpiredTotal.Add(float64(len(expired)))
	logger.CtxInfo(ctx, "Featured apartments expired", "count", len(expired))
	return int64(len(expired)), nil
}
