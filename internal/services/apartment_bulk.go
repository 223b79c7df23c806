package services

import (
	"rentals_backend/internal/auth"
	"rentals_backend/internal/logger"
	"rentals_backend/internal/models"
	"rentals_backend/internal/services/dto"
	"rentals_backend/internal/telemetry"
	"rentals_backend/pkg/apperrors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Ошибки отдельных элементов массовой операции
const (
	bulkErrNotFound         = "not found"
	bulkErrPermissionDenied = "permission denied"
	bulkErrAlreadyPublished = "already published"
)

// BulkApply применяет действие к каждому объявлению. Права проверяются строго по владельцу,
// администратор не получает обхода. Все успешные изменения фиксируются одной транзакцией.
func (s *apartmentService) BulkApply(db *gorm.DB, actor auth.Actor, req *dto.BulkOperationRequest) (*dto.BulkOperationResponse, error) {
	if len(req.ApartmentIDs) > MaxBulkSize {
		return nil, apperrors.ErrBulkTooLarge
	}
	if !req.Action.IsValid() {
		return nil, apperrors.ErrInvalidBulkAction
	}
	if req.Action == models.BulkActionFeature && !validFeatureParams(req.DurationDays, req.Priority) {
		return nil, apperrors.ErrInvalidFeatureParams
	}

	lookup := make([]string, 0, len(req.ApartmentIDs))
	for _, id := range req.ApartmentIDs {
		if _, err := uuid.Parse(id); err == nil {
			lookup = append(lookup, id)
		}
	}

	tx := db.Begin()
	if tx.Error != nil {
		return nil, apperrors.InternalError(tx.Error)
	}
	defer tx.Rollback()

	found, err := s.apartmentRepo.FindByIDs(tx, lookup)
	if err != nil {
		return nil, handleApartmentError(err)
	}

	resp := &dto.BulkOperationResponse{
		TotalRequested:    len(req.ApartmentIDs),
		Errors:            []dto.BulkItemError{},
		UpdatedApartments: []string{},
	}
	fail := func(id, reason string) {
		resp.Errors = append(resp.Errors, dto.BulkItemError{ID: id, Error: reason})
	}

	now := s.clock.now()
	var upserted, deleted []string
	var orphanedImages []string

	for _, id := range req.ApartmentIDs {
		apartment, ok := found[id]
		if !ok {
			fail(id, bulkErrNotFound)
			continue
		}
		if apartment.RenterID != actor.UserID {
			fail(id, bulkErrPermissionDenied)
			continue
		}

		switch req.Action {
		case models.BulkActionDelete:
			if err := s.apartmentRepo.Delete(tx, id); err != nil {
				return nil, handleApartmentError(err)
			}
			delete(found, id)
			deleted = append(deleted, id)
			orphanedImages = append(orphanedImages, apartment.Images...)
			resp.Successful++
			resp.UpdatedApartments = append(resp.UpdatedApartments, id)
			continue
		case models.BulkActionPublish:
			if apartment.Status == models.ApartmentStatusPublished {
				fail(id, bulkErrAlreadyPublished)
				continue
			}
			apartment.Status = models.ApartmentStatusPublished
		case models.BulkActionArchive:
			apartment.Status = models.ApartmentStatusArchived
		case models.BulkActionActivate:
			apartment.IsActive = true
		case models.BulkActionDeactivate:
			apartment.IsActive = false
		case models.BulkActionFeature:
			applyFeature(apartment, now, req.DurationDays, req.Priority)
		case models.BulkActionUnfeature:
			applyUnfeature(apartment)
		}

		if err := s.apartmentRepo.Update(tx, apartment); err != nil {
			return nil, handleApartmentError(err)
		}
		upserted = append(upserted, id)
		resp.Successful++
		resp.UpdatedApartments = append(resp.UpdatedApartments, id)
	}

	if err := s.outboxRepo.AddMany(tx, upserted, models.OutboxOperationUpsert); err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	if err := s.outboxRepo.AddMany(tx, deleted, models.OutboxOperationDelete); err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	if err := tx.Commit().Error; err != nil {
		return nil, apperrors.DatabaseError(err)
	}

	ctx := contextOf(db)
	s.images.Remove(ctx, orphanedImages)
	s.invalidate(ctx, append(upserted, deleted...)...)

	resp.Failed = len(resp.Errors)
	telemetry.ApartmentTransitionsTotal.WithLabelValues("bulk_" + string(req.Action)).Add(float64(resp.Successful))
	logger.CtxInfo(ctx, "Bulk operation applied",
		"action", req.Action,
		"requested", resp.TotalRequested,
		"successful", resp.Successful,
		"failed", resp.Failed,
	)
	return resp, nil
}
