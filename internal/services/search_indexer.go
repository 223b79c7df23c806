package services

import (
	"context"
	"errors"

	"rentals_backend/internal/events"
	"rentals_backend/internal/logger"
	"rentals_backend/internal/models"
	"rentals_backend/internal/repositories"
	"rentals_backend/internal/search"

	"gorm.io/gorm"
)

// SearchIndexer применяет события ApartmentChanged к поисковому индексу.
// Строка всегда перечитывается из БД, поэтому порядок доставки не важен.
type SearchIndexer struct {
	db            *gorm.DB
	apartmentRepo repositories.ApartmentRepository
	engine        search.Engine
}

func NewSearchIndexer(db *gorm.DB, apartmentRepo repositories.ApartmentRepository, engine search.Engine) *SearchIndexer {
	return &SearchIndexer{db: db, apartmentRepo: apartmentRepo, engine: engine}
}

func (i *SearchIndexer) Handle(ctx context.Context, evt events.ApartmentChanged) error {
	apartment, err := i.apartmentRepo.FindByID(i.db.WithContext(ctx), evt.ApartmentID)
	if errors.Is(err, repositories.ErrApartmentNotFound) {
		logger.CtxDebug(ctx, "Removing apartment from index", "apartment_id", evt.ApartmentID)
		return i.engine.DeleteDocument(ctx, evt.ApartmentID)
	}
	if err != nil {
		return err
	}

	if evt.Operation == models.OutboxOperationDelete {
		logger.CtxWarn(ctx, "Delete event for existing apartment, indexing current state", "apartment_id", evt.ApartmentID)
	}
	return i.engine.IndexDocument(ctx, search.FromApartment(apartment))
}
