package services

import (
	"errors"
	"strings"

	"rentals_backend/internal/auth"
	"rentals_backend/internal/cache"
	"rentals_backend/internal/logger"
	"rentals_backend/internal/models"
	"rentals_backend/internal/repositories"
	"rentals_backend/internal/services/dto"
	"rentals_backend/pkg/apperrors"

	"gorm.io/gorm"
)

type UserService interface {
	GetPublicProfile(db *gorm.DB, userID string) (*dto.PublicUserResponse, error)
	UpdateProfile(db *gorm.DB, userID string, req *dto.UpdateUserRequest) (*dto.UserResponse, error)
	DeleteAccount(db *gorm.DB, userID string) error

	// Admin operations
	ListUsers(db *gorm.DB, page *dto.Pagination) (*dto.UserListResponse, error)
	DeleteUser(db *gorm.DB, actor auth.Actor, userID string) error
	GetPlatformStats(db *gorm.DB) (*dto.PlatformStats, error)
	EnsureFirstAdmin(db *gorm.DB, email, password string) error
}

type userService struct {
	userRepo         repositories.UserRepository
	apartmentRepo    repositories.ApartmentRepository
	messageRepo      repositories.MessageRepository
	notificationRepo repositories.NotificationRepository
	refreshTokenRepo repositories.RefreshTokenRepository
	resetRepo        repositories.PasswordResetRepository
	outboxRepo       repositories.OutboxRepository
	images           ImageService
	cache            cache.ApartmentCache
	clock            Clock
}

func NewUserService(
	userRepo repositories.UserRepository,
	apartmentRepo repositories.ApartmentRepository,
	messageRepo repositories.MessageRepository,
	notificationRepo repositories.NotificationRepository,
	refreshTokenRepo repositories.RefreshTokenRepository,
	resetRepo repositories.PasswordResetRepository,
	outboxRepo repositories.OutboxRepository,
	images ImageService,
	apartmentCache cache.ApartmentCache,
	clock Clock,
) UserService {
	if apartmentCache == nil {
		apartmentCache = cache.NoopCache{}
	}
	return &userService{
		userRepo:         userRepo,
		apartmentRepo:    apartmentRepo,
		messageRepo:      messageRepo,
		notificationRepo: notificationRepo,
		refreshTokenRepo: refreshTokenRepo,
		resetRepo:        resetRepo,
		outboxRepo:       outboxRepo,
		images:           images,
		cache:            apartmentCache,
		clock:            clock,
	}
}

func (s *userService) GetPublicProfile(db *gorm.DB, userID string) (*dto.PublicUserResponse, error) {
	user, err := s.userRepo.FindByID(db, userID)
	if err != nil {
		return nil, handleUserError(err)
	}
	return dto.NewPublicUserResponse(user), nil
}

func (s *userService) UpdateProfile(db *gorm.DB, userID string, req *dto.UpdateUserRequest) (*dto.UserResponse, error) {
	tx := db.Begin()
	if tx.Error != nil {
		return nil, apperrors.InternalError(tx.Error)
	}
	defer tx.Rollback()

	user, err := s.userRepo.FindByID(tx, userID)
	if err != nil {
		return nil, handleUserError(err)
	}

	if req.FirstName != nil {
		user.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		user.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.Location != nil {
		user.Location = *req.Location
	}
	if req.FlatmatePref != nil {
		user.FlatmatePref = dto.NormalizeKeywords(*req.FlatmatePref)
	}
	if req.Keywords != nil {
		user.Keywords = dto.NormalizeKeywords(*req.Keywords)
	}

	if err := s.userRepo.Update(tx, user); err != nil {
		return nil, handleUserError(err)
	}
	if err := tx.Commit().Error; err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	return dto.NewUserResponse(user), nil
}

func (s *userService) DeleteAccount(db *gorm.DB, userID string) error {
	return s.deleteCascade(db, userID)
}

// ---------------- Admin ----------------

func (s *userService) ListUsers(db *gorm.DB, page *dto.Pagination) (*dto.UserListResponse, error) {
	skip, limit := normalizePage(page.Skip, page.Limit, defaultLimit)

	users, total, err := s.userRepo.FindAll(db, limit, skip)
	if err != nil {
		return nil, handleUserError(err)
	}

	items := make([]*dto.UserResponse, 0, len(users))
	for i := range users {
		items = append(items, dto.NewUserResponse(&users[i]))
	}
	return &dto.UserListResponse{Users: items, Total: total, Skip: skip, Limit: limit}, nil
}

// DeleteUser - администратор не может удалить сам себя
func (s *userService) DeleteUser(db *gorm.DB, actor auth.Actor, userID string) error {
	if !actor.IsAdmin() {
		return apperrors.ErrInsufficientPermissions
	}
	if actor.UserID == userID {
		return apperrors.ErrCannotModifySelf
	}
	return s.deleteCascade(db, userID)
}

func (s *userService) GetPlatformStats(db *gorm.DB) (*dto.PlatformStats, error) {
	stats := &dto.PlatformStats{}
	var err error

	if stats.TotalUsers, err = s.userRepo.CountAll(db); err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	if stats.Seekers, err = s.userRepo.CountByRole(db, models.UserRoleSeeker); err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	if stats.Renters, err = s.userRepo.CountByRole(db, models.UserRoleRenter); err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	if stats.Admins, err = s.userRepo.CountByRole(db, models.UserRoleAdmin); err != nil {
		return nil, apperrors.DatabaseError(err)
	}

	apartments, err := s.apartmentRepo.GetStats(db, s.clock.now())
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	stats.TotalApartments = apartments.Total
	stats.ActiveApartments = apartments.Active
	stats.PublishedApartments = apartments.Published
	stats.FeaturedApartments = apartments.Featured

	if stats.PendingIndexUpdates, err = s.outboxRepo.CountPending(db); err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	return stats, nil
}

// EnsureFirstAdmin создает администратора из конфигурации, если email еще не занят
func (s *userService) EnsureFirstAdmin(db *gorm.DB, email, password string) error {
	if email == "" || password == "" {
		return nil
	}

	existing, err := s.userRepo.FindByEmail(db, email)
	if err == nil {
		if existing.Role != models.UserRoleAdmin {
			logger.Warn("First admin email belongs to a non-admin user", "user_id", existing.ID)
		}
		return nil
	}
	if !errors.Is(err, repositories.ErrUserNotFound) {
		return handleUserError(err)
	}

	if problems := auth.ValidatePassword(password); len(problems) > 0 {
		return apperrors.ErrWeakPassword.WithDetails(problems)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return apperrors.InternalError(err)
	}

	admin := &models.User{
		FirstName:    "Admin",
		LastName:     "User",
		Email:        strings.ToLower(email),
		PasswordHash: hash,
		Role:         models.UserRoleAdmin,
		IsActive:     true,
	}
	if err := s.userRepo.Create(db, admin); err != nil {
		return handleUserError(err)
	}
	logger.Info("First admin created", "user_id", admin.ID, "email", admin.Email)
	return nil
}

// deleteCascade удаляет пользователя вместе с объявлениями, сообщениями, уведомлениями и токенами.
// Файлы изображений удаляются после коммита.
func (s *userService) deleteCascade(db *gorm.DB, userID string) error {
	tx := db.Begin()
	if tx.Error != nil {
		return apperrors.InternalError(tx.Error)
	}
	defer tx.Rollback()

	if _, err := s.userRepo.FindByID(tx, userID); err != nil {
		return handleUserError(err)
	}

	apartments, err := s.apartmentRepo.FindAllByRenter(tx, userID)
	if err != nil {
		return apperrors.DatabaseError(err)
	}
	ids := make([]string, 0, len(apartments))
	var images []string
	for _, a := range apartments {
		if err := s.apartmentRepo.Delete(tx, a.ID); err != nil {
			return handleApartmentError(err)
		}
		ids = append(ids, a.ID)
		images = append(images, a.Images...)
	}
	if err := s.outboxRepo.AddMany(tx, ids, models.OutboxOperationDelete); err != nil {
		return apperrors.DatabaseError(err)
	}

	if err := s.messageRepo.DeleteByUserID(tx, userID); err != nil {
		return apperrors.DatabaseError(err)
	}
	if _, err := s.notificationRepo.DeleteUserNotifications(tx, userID); err != nil {
		return apperrors.DatabaseError(err)
	}
	if err := s.refreshTokenRepo.DeleteByUserID(tx, userID); err != nil {
		return apperrors.DatabaseError(err)
	}
	if err := s.resetRepo.DeleteByUserID(tx, userID); err != nil {
		return apperrors.DatabaseError(err)
	}
	if err := s.userRepo.Delete(tx, userID); err != nil {
		return handleUserError(err)
	}
	if err := tx.Commit().Error; err != nil {
		return apperrors.DatabaseError(err)
	}

	ctx := contextOf(db)
	s.images.Remove(ctx, images)
	if len(ids) > 0 {
		if err := s.cache.Delete(ctx, ids...); err != nil {
			logger.CtxWithError(ctx, "Apartment cache invalidation failed", err, "user_id", userID)
		}
	}
	logger.CtxInfo(ctx, "User deleted", "user_id", userID, "apartments", len(ids))
	return nil
}
