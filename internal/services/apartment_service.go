package services

import (
	"context"
	"time"

	"rentals_backend/internal/auth"
	"rentals_backend/internal/cache"
	"rentals_backend/internal/logger"
	"rentals_backend/internal/models"
	"rentals_backend/internal/repositories"
	"rentals_backend/internal/services/dto"
	"rentals_backend/internal/telemetry"
	"rentals_backend/pkg/apperrors"

	"gorm.io/gorm"
)

const (
	MinApartmentImages = 4
	MaxBulkSize        = 100

	MinFeatureDays     = 1
	MaxFeatureDays     = 90
	MinFeaturePriority = 1
	MaxFeaturePriority = 10

	copyTitleSuffix = " (Copy)"
)

type ApartmentService interface {
	// CRUD
	CreateApartment(db *gorm.DB, actor auth.Actor, req *dto.CreateApartmentRequest) (*dto.ApartmentResponse, error)
	GetApartment(db *gorm.DB, apartmentID string) (*dto.ApartmentResponse, error)
	UpdateApartment(db *gorm.DB, actor auth.Actor, apartmentID string, req *dto.UpdateApartmentRequest) (*dto.ApartmentResponse, error)
	DeleteApartment(db *gorm.DB, actor auth.Actor, apartmentID string) error
	ListPublished(db *gorm.DB, query *dto.ListApartmentsQuery) (*dto.ApartmentListResponse, error)
	ListMine(db *gorm.DB, actor auth.Actor, page *dto.Pagination) (*dto.ApartmentListResponse, error)
	RecordView(db *gorm.DB, apartmentID string) (*dto.ApartmentResponse, error)

	// Жизненный цикл
	Publish(db *gorm.DB, actor auth.Actor, apartmentID string) (*dto.ApartmentResponse, error)
	Archive(db *gorm.DB, actor auth.Actor, apartmentID string) (*dto.ApartmentResponse, error)
	Duplicate(db *gorm.DB, actor auth.Actor, apartmentID string, req *dto.DuplicateRequest) (*dto.ApartmentResponse, error)

	// Продвижение
	Feature(db *gorm.DB, actor auth.Actor, apartmentID string, req *dto.FeatureRequest) (*dto.ApartmentResponse, error)
	Unfeature(db *gorm.DB, actor auth.Actor, apartmentID string) (*dto.ApartmentResponse, error)
	GetFeatured(db *gorm.DB, limit int) ([]*dto.ApartmentResponse, error)
	ExpireFeatured(db *gorm.DB) (int64, error)

	// Массовые операции
	BulkApply(db *gorm.DB, actor auth.Actor, req *dto.BulkOperationRequest) (*dto.BulkOperationResponse, error)
}

type apartmentService struct {
	apartmentRepo repositories.ApartmentRepository
	userRepo      repositories.UserRepository
	outboxRepo    repositories.OutboxRepository
	notifications NotificationService
	images        ImageService
	cache         cache.ApartmentCache
	clock         Clock
}

func NewApartmentService(
	apartmentRepo repositories.ApartmentRepository,
	userRepo repositories.UserRepository,
	outboxRepo repositories.OutboxRepository,
	notifications NotificationService,
	images ImageService,
	apartmentCache cache.ApartmentCache,
	clock Clock,
) ApartmentService {
	if apartmentCache == nil {
		apartmentCache = cache.NoopCache{}
	}
	return &apartmentService{
		apartmentRepo: apartmentRepo,
		userRepo:      userRepo,
		outboxRepo:    outboxRepo,
		notifications: notifications,
		images:        images,
		cache:         apartmentCache,
		clock:         clock,
	}
}

// ---------------- CRUD ----------------

// CreateApartment - все проверки выполняются до сохранения файлов и записи в БД
func (s *apartmentService) CreateApartment(db *gorm.DB, actor auth.Actor, req *dto.CreateApartmentRequest) (*dto.ApartmentResponse, error) {
	if !actor.CanCreateListings() {
		return nil, apperrors.ErrInsufficientPermissions
	}
	if req.RentPerWeek <= 0 {
		return nil, apperrors.ErrInvalidRent
	}
	startDate, err := parseStartDate(req.StartDate)
	if err != nil {
		return nil, err
	}
	if len(req.Images)+len(req.Files) < MinApartmentImages {
		return nil, apperrors.ErrNotEnoughImages
	}
	for _, file := range req.Files {
		if err := s.images.Validate(file); err != nil {
			return nil, err
		}
	}

	ctx := contextOf(db)
	stored, err := s.images.Store(ctx, req.Files)
	if err != nil {
		return nil, err
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	images := make([]string, 0, len(req.Images)+len(stored))
	images = append(images, req.Images...)
	images = append(images, stored...)

	apartment := &models.Apartment{
		RenterID:       actor.UserID,
		Title:          req.Title,
		Description:    req.Description,
		Location:       req.Location,
		ApartmentType:  req.ApartmentType,
		RentPerWeek:    req.RentPerWeek,
		StartDate:      startDate,
		DurationLen:    req.DurationLen,
		PlaceAccept:    req.PlaceAccept,
		FurnishingType: req.FurnishingType,
		IsBathroomSolo: req.IsBathroomSolo,
		ParkingType:    req.ParkingType,
		Keywords:       dto.NormalizeKeywords(req.Keywords),
		Images:         images,
		Status:         models.ApartmentStatusDraft,
		IsActive:       isActive,
	}

	if err := s.createWithOutbox(db, apartment); err != nil {
		s.images.Remove(ctx, stored)
		return nil, err
	}

	telemetry.ApartmentTransitionsTotal.WithLabelValues("create").Inc()
	logger.CtxInfo(ctx, "Apartment created", "apartment_id", apartment.ID, "renter_id", apartment.RenterID)
	return dto.NewApartmentResponse(apartment), nil
}

func (s *apartmentService) createWithOutbox(db *gorm.DB, apartment *models.Apartment) error {
	tx := db.Begin()
	if tx.Error != nil {
		return apperrors.InternalError(tx.Error)
	}
	defer tx.Rollback()

	if err := s.apartmentRepo.Create(tx, apartment); err != nil {
		return apperrors.DatabaseError(err)
	}
	if err := s.outboxRepo.Add(tx, apartment.ID, models.OutboxOperationUpsert); err != nil {
		return apperrors.DatabaseError(err)
	}
	return tx.Commit().Error
}

// GetApartment - read-through кэш, без побочных эффектов; просмотры считает RecordView
func (s *apartmentService) GetApartment(db *gorm.DB, apartmentID string) (*dto.ApartmentResponse, error) {
	ctx := contextOf(db)

	apartment, err := s.cache.Get(ctx, apartmentID)
	if err != nil {
		logger.CtxWithError(ctx, "Apartment cache read failed", err, "apartment_id", apartmentID)
	} else if apartment != nil {
		return dto.NewApartmentResponse(apartment), nil
	}

	apartment, err = s.apartmentRepo.FindByID(db, apartmentID)
	if err != nil {
		return nil, handleApartmentError(err)
	}
	s.cacheSet(ctx, apartment)
	return dto.NewApartmentResponse(apartment), nil
}

// UpdateApartment - частичное обновление; статус можно перезаписать напрямую
func (s *apartmentService) UpdateApartment(db *gorm.DB, actor auth.Actor, apartmentID string, req *dto.UpdateApartmentRequest) (*dto.ApartmentResponse, error) {
	if req.RentPerWeek != nil && *req.RentPerWeek <= 0 {
		return nil, apperrors.ErrInvalidRent
	}
	var startDate *time.Time
	if req.StartDate != nil {
		parsed, err := parseStartDate(*req.StartDate)
		if err != nil {
			return nil, err
		}
		startDate = &parsed
	}

	tx := db.Begin()
	if tx.Error != nil {
		return nil, apperrors.InternalError(tx.Error)
	}
	defer tx.Rollback()

	apartment, err := s.loadForModify(tx, actor, apartmentID)
	if err != nil {
		return nil, err
	}
	previousImages := append([]string{}, apartment.Images...)

	applyApartmentUpdate(apartment, req, startDate)

	if err := s.saveWithOutbox(tx, apartment); err != nil {
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, apperrors.DatabaseError(err)
	}

	ctx := contextOf(db)
	if req.Images != nil {
		s.images.Remove(ctx, droppedImages(previousImages, apartment.Images))
	}
	s.invalidate(ctx, apartment.ID)
	telemetry.ApartmentTransitionsTotal.WithLabelValues("update").Inc()
	return dto.NewApartmentResponse(apartment), nil
}

func applyApartmentUpdate(a *models.Apartment, req *dto.UpdateApartmentRequest, startDate *time.Time) {
	if req.Title != nil {
		a.Title = *req.Title
	}
	if req.Description != nil {
		a.Description = *req.Description
	}
	if req.Location != nil {
		a.Location = *req.Location
	}
	if req.ApartmentType != nil {
		a.ApartmentType = *req.ApartmentType
	}
	if req.RentPerWeek != nil {
		a.RentPerWeek = *req.RentPerWeek
	}
	if startDate != nil {
		a.StartDate = *startDate
	}
	if req.DurationLen != nil {
		a.DurationLen = req.DurationLen
	}
	if req.PlaceAccept != nil {
		a.PlaceAccept = *req.PlaceAccept
	}
	if req.FurnishingType != nil {
		a.FurnishingType = *req.FurnishingType
	}
	if req.IsBathroomSolo != nil {
		a.IsBathroomSolo = *req.IsBathroomSolo
	}
	if req.ParkingType != nil {
		a.ParkingType = *req.ParkingType
	}
	if req.Keywords != nil {
		a.Keywords = dto.NormalizeKeywords(*req.Keywords)
	}
	if req.Images != nil {
		a.Images = append([]string{}, (*req.Images)...)
	}
	if req.IsActive != nil {
		a.IsActive = *req.IsActive
	}
	if req.Status != nil {
		a.Status = *req.Status
	}
}

// DeleteApartment - файлы изображений удаляются после коммита
func (s *apartmentService) DeleteApartment(db *gorm.DB, actor auth.Actor, apartmentID string) error {
	tx := db.Begin()
	if tx.Error != nil {
		return apperrors.InternalError(tx.Error)
	}
	defer tx.Rollback()

	apartment, err := s.loadForModify(tx, actor, apartmentID)
	if err != nil {
		return err
	}
	if err := s.apartmentRepo.Delete(tx, apartment.ID); err != nil {
		return handleApartmentError(err)
	}
	if err := s.outboxRepo.Add(tx, apartment.ID, models.OutboxOperationDelete); err != nil {
		return apperrors.DatabaseError(err)
	}
	if err := tx.Commit().Error; err != nil {
		return apperrors.DatabaseError(err)
	}

	ctx := contextOf(db)
	s.images.Remove(ctx, apartment.Images)
	s.invalidate(ctx, apartment.ID)
	telemetry.ApartmentTransitionsTotal.WithLabelValues("delete").Inc()
	logger.CtxInfo(ctx, "Apartment deleted", "apartment_id", apartment.ID)
	return nil
}

func (s *apartmentService) ListPublished(db *gorm.DB, query *dto.ListApartmentsQuery) (*dto.ApartmentListResponse, error) {
	skip, limit := normalizePage(query.Skip, query.Limit, defaultLimit)

	apartments, total, err := s.apartmentRepo.ListPublished(db, skip, limit, query.FeaturedFirst)
	if err != nil {
		return nil, handleApartmentError(err)
	}
	return &dto.ApartmentListResponse{
		Apartments: dto.NewApartmentResponses(apartments),
		Total:      total,
		Skip:       skip,
		Limit:      limit,
	}, nil
}

// ListMine - объявления владельца во всех статусах
func (s *apartmentService) ListMine(db *gorm.DB, actor auth.Actor, page *dto.Pagination) (*dto.ApartmentListResponse, error) {
	skip, limit := normalizePage(page.Skip, page.Limit, defaultLimit)

	apartments, total, err := s.apartmentRepo.FindByRenter(db, actor.UserID, skip, limit)
	if err != nil {
		return nil, handleApartmentError(err)
	}
	return &dto.ApartmentListResponse{
		Apartments: dto.NewApartmentResponses(apartments),
		Total:      total,
		Skip:       skip,
		Limit:      limit,
	}, nil
}

// RecordView - атомарный инкремент счетчика, без дедупликации
func (s *apartmentService) RecordView(db *gorm.DB, apartmentID string) (*dto.ApartmentResponse, error) {
	if err := s.apartmentRepo.IncrementViews(db, apartmentID, s.clock.now()); err != nil {
		return nil, handleApartmentError(err)
	}
	apartment, err := s.apartmentRepo.FindByID(db, apartmentID)
	if err != nil {
		return nil, handleApartmentError(err)
	}

	telemetry.ApartmentViewsTotal.Inc()
	s.invalidate(contextOf(db), apartmentID)
	return dto.NewApartmentResponse(apartment), nil
}

// ---------------- Жизненный цикл ----------------

// Publish - DRAFT/ARCHIVED -> PUBLISHED; повторная публикация дает Conflict
func (s *apartmentService) Publish(db *gorm.DB, actor auth.Actor, apartmentID string) (*dto.ApartmentResponse, error) {
	return s.mutate(db, actor, apartmentID, "publish", func(a *models.Apartment) error {
		if a.Status == models.ApartmentStatusPublished {
			return apperrors.ErrApartmentAlreadyPublished
		}
		a.Status = models.ApartmentStatusPublished
		return nil
	})
}

// Archive - из любого статуса
func (s *apartmentService) Archive(db *gorm.DB, actor auth.Actor, apartmentID string) (*dto.ApartmentResponse, error) {
	return s.mutate(db, actor, apartmentID, "archive", func(a *models.Apartment) error {
		a.Status = models.ApartmentStatusArchived
		return nil
	})
}

// Duplicate создает черновик-копию; передать копию другому владельцу может только администратор
func (s *apartmentService) Duplicate(db *gorm.DB, actor auth.Actor, apartmentID string, req *dto.DuplicateRequest) (*dto.ApartmentResponse, error) {
	tx := db.Begin()
	if tx.Error != nil {
		return nil, apperrors.InternalError(tx.Error)
	}
	defer tx.Rollback()

	source, err := s.loadForModify(tx, actor, apartmentID)
	if err != nil {
		return nil, err
	}

	ownerID := source.RenterID
	if req != nil && req.NewOwnerID != nil && *req.NewOwnerID != source.RenterID {
		if !actor.IsAdmin() {
			return nil, apperrors.ErrInsufficientPermissions
		}
		owner, err := s.userRepo.FindByID(tx, *req.NewOwnerID)
		if err != nil {
			return nil, handleUserError(err)
		}
		ownerID = owner.ID
	}

	copied := duplicateApartment(source, ownerID)
	if err := s.apartmentRepo.Create(tx, copied); err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	if err := s.outboxRepo.Add(tx, copied.ID, models.OutboxOperationUpsert); err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	if err := tx.Commit().Error; err != nil {
		return nil, apperrors.DatabaseError(err)
	}

	telemetry.ApartmentTransitionsTotal.WithLabelValues("duplicate").Inc()
	logger.CtxInfo(contextOf(db), "Apartment duplicated", "source_id", source.ID, "apartment_id", copied.ID)
	return dto.NewApartmentResponse(copied), nil
}

func duplicateApartment(source *models.Apartment, ownerID string) *models.Apartment {
	var duration *int
	if source.DurationLen != nil {
		d := *source.DurationLen
		duration = &d
	}
	return &models.Apartment{
		RenterID:       ownerID,
		Title:          source.Title + copyTitleSuffix,
		Description:    source.Description,
		Location:       source.Location,
		ApartmentType:  source.ApartmentType,
		RentPerWeek:    source.RentPerWeek,
		StartDate:      source.StartDate,
		DurationLen:    duration,
		PlaceAccept:    source.PlaceAccept,
		FurnishingType: source.FurnishingType,
		IsBathroomSolo: source.IsBathroomSolo,
		ParkingType:    source.ParkingType,
		Keywords:       append([]string{}, source.Keywords...),
		Images:         append([]string{}, source.Images...),
		Status:         models.ApartmentStatusDraft,
		IsActive:       true,
	}
}

// ---------------- Общие хелперы ----------------

// mutate - загрузка с проверкой прав, изменение и запись в одной транзакции
func (s *apartmentService) mutate(db *gorm.DB, actor auth.Actor, apartmentID, action string, apply func(*models.Apartment) error) (*dto.ApartmentResponse, error) {
	tx := db.Begin()
	if tx.Error != nil {
		return nil, apperrors.InternalError(tx.Error)
	}
	defer tx.Rollback()

	apartment, err := s.loadForModify(tx, actor, apartmentID)
	if err != nil {
		return nil, err
	}
	if err := apply(apartment); err != nil {
		return nil, err
	}
	if err := s.saveWithOutbox(tx, apartment); err != nil {
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, apperrors.DatabaseError(err)
	}

	s.invalidate(contextOf(db), apartment.ID)
	telemetry.ApartmentTransitionsTotal.WithLabelValues(action).Inc()
	return dto.NewApartmentResponse(apartment), nil
}

// loadForModify - владелец или администратор
func (s *apartmentService) loadForModify(db *gorm.DB, actor auth.Actor, apartmentID string) (*models.Apartment, error) {
	apartment, err := s.apartmentRepo.FindByID(db, apartmentID)
	if err != nil {
		return nil, handleApartmentError(err)
	}
	if !actor.CanModify(apartment.RenterID) {
		return nil, apperrors.ErrApartmentForbidden
	}
	return apartment, nil
}

func (s *apartmentService) saveWithOutbox(tx *gorm.DB, apartment *models.Apartment) error {
	if err := s.apartmentRepo.Update(tx, apartment); err != nil {
		return handleApartmentError(err)
	}
	if err := s.outboxRepo.Add(tx, apartment.ID, models.OutboxOperationUpsert); err != nil {
		return apperrors.DatabaseError(err)
	}
	return nil
}

func (s *apartmentService) cacheSet(ctx context.Context, apartment *models.Apartment) {
	if err := s.cache.Set(ctx, apartment); err != nil {
		logger.CtxWithError(ctx, "Apartment cache write failed", err, "apartment_id", apartment.ID)
	}
}

// invalidate вызывается только после коммита
func (s *apartmentService) invalidate(ctx context.Context, ids ...string) {
	if len(ids) == 0 {
		return
	}
	if err := s.cache.Delete(ctx, ids...); err != nil {
		logger.CtxWithError(ctx, "Apartment cache invalidation failed", err, "count", len(ids))
	}
}

// parseStartDate принимает YYYY-MM-DD или RFC3339
func parseStartDate(value string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, apperrors.ValidationError(map[string]string{
		"start_date": "must be a date in YYYY-MM-DD or RFC3339 format",
	})
}

// droppedImages - URL, которых больше нет в новом списке
func droppedImages(before, after []string) []string {
	keep := make(map[string]struct{}, len(after))
	for _, url := range after {
		keep[url] = struct{}{}
	}
	var dropped []string
	for _, url := range before {
		if _, ok := keep[url]; !ok {
			dropped = append(dropped, url)
		}
	}
	return dropped
}
