package services

import (
	"errors"
	"strings"
	"time"

	"rentals_backend/internal/auth"
	"rentals_backend/internal/email"
	"rentals_backend/internal/logger"
	"rentals_backend/internal/models"
	"rentals_backend/internal/repositories"
	"rentals_backend/internal/services/dto"
	"rentals_backend/pkg/apperrors"

	"gorm.io/gorm"
)

const (
	refreshTokenBytes    = 32
	resetTokenBytes      = 32
	resetTokenTTL        = 24 * time.Hour
	resetTokenRetention  = 7 * 24 * time.Hour
	defaultRefreshTTL    = 7 * 24 * time.Hour
	tokenTypeBearer      = "bearer"
	passwordResetSubject = "Reset your password"
)

type AuthService interface {
	Register(db *gorm.DB, req *dto.RegisterRequest) (*dto.UserResponse, error)
	Login(db *gorm.DB, req *dto.LoginRequest) (*dto.AuthResponse, error)
	RefreshToken(db *gorm.DB, refreshToken string) (*dto.AuthResponse, error)
	Logout(db *gorm.DB, refreshToken string) error
	Me(db *gorm.DB, userID string) (*dto.UserResponse, error)
	ChangePassword(db *gorm.DB, userID string, req *dto.ChangePasswordRequest) error

	// Сброс пароля
	RequestPasswordReset(db *gorm.DB, emailAddr string) error
	ResetPassword(db *gorm.DB, req *dto.PasswordResetConfirm) error

	// Обслуживание
	CleanupExpiredResetTokens(db *gorm.DB) (int64, error)
	CleanupExpiredRefreshTokens(db *gorm.DB) (int64, error)
}

type AuthConfig struct {
	RefreshTTL time.Duration
	// ResetURL - страница фронтенда; токен добавляется как ?token=
	ResetURL string
}

type authService struct {
	userRepo         repositories.UserRepository
	refreshTokenRepo repositories.RefreshTokenRepository
	resetRepo        repositories.PasswordResetRepository
	emailProvider    email.Provider
	config           AuthConfig
	clock            Clock
}

func NewAuthService(
	userRepo repositories.UserRepository,
	refreshTokenRepo repositories.RefreshTokenRepository,
	resetRepo repositories.PasswordResetRepository,
	emailProvider email.Provider,
	config AuthConfig,
	clock Clock,
) AuthService {
	if config.RefreshTTL <= 0 {
		config.RefreshTTL = defaultRefreshTTL
	}
	if emailProvider == nil {
		emailProvider = email.NewNoopProvider()
	}
	return &authService{
		userRepo:         userRepo,
		refreshTokenRepo: refreshTokenRepo,
		resetRepo:        resetRepo,
		emailProvider:    emailProvider,
		config:           config,
		clock:            clock,
	}
}

// Register - регистрация seeker или renter; роль по умолчанию seeker
func (s *authService) Register(db *gorm.DB, req *dto.RegisterRequest) (*dto.UserResponse, error) {
	role := req.Role
	if role == "" {
		role = models.UserRoleSeeker
	}
	if !role.CanRegister() {
		return nil, apperrors.ErrInvalidUserRole
	}
	if problems := auth.ValidatePassword(req.Password); len(problems) > 0 {
		return nil, apperrors.ErrWeakPassword.WithDetails(problems)
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	user := &models.User{
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
		Location:     req.Location,
		Role:         role,
		IsActive:     true,
		FlatmatePref: dto.NormalizeKeywords(req.FlatmatePref),
		Keywords:     dto.NormalizeKeywords(req.Keywords),
	}
	if err := s.userRepo.Create(db, user); err != nil {
		return nil, handleUserError(err)
	}

	logger.CtxInfo(contextOf(db), "User registered", "user_id", user.ID, "role", user.Role)
	return dto.NewUserResponse(user), nil
}

func (s *authService) Login(db *gorm.DB, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	user, err := s.userRepo.FindByEmail(db, req.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, handleUserError(err)
	}
	if !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		return nil, apperrors.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, apperrors.NewForbiddenError("Account is disabled")
	}

	return s.issueTokens(db, user)
}

// RefreshToken ротирует refresh-токен: старый удаляется, выдается новый
func (s *authService) RefreshToken(db *gorm.DB, refreshToken string) (*dto.AuthResponse, error) {
	tx := db.Begin()
	if tx.Error != nil {
		return nil, apperrors.InternalError(tx.Error)
	}
	defer tx.Rollback()

	stored, err := s.refreshTokenRepo.FindByToken(tx, refreshToken)
	if err != nil {
		if errors.Is(err, repositories.ErrRefreshTokenNotFound) {
			return nil, apperrors.ErrInvalidToken
		}
		return nil, apperrors.DatabaseError(err)
	}
	if err := s.refreshTokenRepo.DeleteByToken(tx, refreshToken); err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	if !s.clock.now().Before(stored.ExpiresAt) {
		if err := tx.Commit().Error; err != nil {
			return nil, apperrors.DatabaseError(err)
		}
		return nil, apperrors.ErrInvalidToken
	}

	user, err := s.userRepo.FindByID(tx, stored.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidToken
		}
		return nil, handleUserError(err)
	}
	if !user.IsActive {
		return nil, apperrors.NewForbiddenError("Account is disabled")
	}

	resp, err := s.issueTokens(tx, user)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	return resp, nil
}

// Logout - неизвестный токен ошибкой не считается
func (s *authService) Logout(db *gorm.DB, refreshToken string) error {
	err := s.refreshTokenRepo.DeleteByToken(db, refreshToken)
	if err != nil && !errors.Is(err, repositories.ErrRefreshTokenNotFound) {
		return apperrors.DatabaseError(err)
	}
	return nil
}

func (s *authService) Me(db *gorm.DB, userID string) (*dto.UserResponse, error) {
	user, err := s.userRepo.FindByID(db, userID)
	if err != nil {
		return nil, handleUserError(err)
	}
	return dto.NewUserResponse(user), nil
}

// ChangePassword завершает все сессии пользователя
func (s *authService) ChangePassword(db *gorm.DB, userID string, req *dto.ChangePasswordRequest) error {
	if problems := auth.ValidatePassword(req.NewPassword); len(problems) > 0 {
		return apperrors.ErrWeakPassword.WithDetails(problems)
	}

	tx := db.Begin()
	if tx.Error != nil {
		return apperrors.InternalError(tx.Error)
	}
	defer tx.Rollback()

	user, err := s.userRepo.FindByID(tx, userID)
	if err != nil {
		return handleUserError(err)
	}
	if !auth.CheckPasswordHash(req.CurrentPassword, user.PasswordHash) {
		return apperrors.NewBadRequestError("Current password is incorrect")
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return apperrors.InternalError(err)
	}
	if err := s.userRepo.UpdatePassword(tx, user.ID, hash); err != nil {
		return handleUserError(err)
	}
	if err := s.refreshTokenRepo.DeleteByUserID(tx, user.ID); err != nil {
		return apperrors.DatabaseError(err)
	}
	if err := tx.Commit().Error; err != nil {
		return apperrors.DatabaseError(err)
	}

	s.sendMail(db, user, "Your password was changed", email.TemplatePasswordChanged, email.TemplateData{
		"Name": user.FirstName,
	})
	return nil
}

// RequestPasswordReset всегда завершается успешно, чтобы не раскрывать наличие email
func (s *authService) RequestPasswordReset(db *gorm.DB, emailAddr string) error {
	ctx := contextOf(db)

	user, err := s.userRepo.FindByEmail(db, emailAddr)
	if err != nil {
		if !errors.Is(err, repositories.ErrUserNotFound) {
			logger.CtxWithError(ctx, "Password reset lookup failed", err)
		}
		return nil
	}

	token, err := auth.GenerateSecureToken(resetTokenBytes)
	if err != nil {
		return apperrors.InternalError(err)
	}

	now := s.clock.now()
	tx := db.Begin()
	if tx.Error != nil {
		return apperrors.InternalError(tx.Error)
	}
	defer tx.Rollback()

	if err := s.resetRepo.InvalidateUserTokens(tx, user.ID, now); err != nil {
		return apperrors.DatabaseError(err)
	}
	if err := s.resetRepo.Create(tx, &models.PasswordResetToken{
		UserID:    user.ID,
		Token:     token,
		ExpiresAt: now.Add(resetTokenTTL),
	}); err != nil {
		return apperrors.DatabaseError(err)
	}
	if err := tx.Commit().Error; err != nil {
		return apperrors.DatabaseError(err)
	}

	s.sendMail(db, user, passwordResetSubject, email.TemplatePasswordReset, email.TemplateData{
		"Name":       user.FirstName,
		"ResetURL":   s.resetLink(token),
		"ValidHours": int(resetTokenTTL.Hours()),
	})
	logger.CtxInfo(ctx, "Password reset requested", "user_id", user.ID)
	return nil
}

// ResetPassword - токен одноразовый; все refresh-токены пользователя удаляются
func (s *authService) ResetPassword(db *gorm.DB, req *dto.PasswordResetConfirm) error {
	if problems := auth.ValidatePassword(req.NewPassword); len(problems) > 0 {
		return apperrors.ErrWeakPassword.WithDetails(problems)
	}

	now := s.clock.now()
	tx := db.Begin()
	if tx.Error != nil {
		return apperrors.InternalError(tx.Error)
	}
	defer tx.Rollback()

	token, err := s.resetRepo.FindByToken(tx, req.Token)
	if err != nil {
		if errors.Is(err, repositories.ErrResetTokenNotFound) {
			return apperrors.ErrResetTokenInvalid
		}
		return apperrors.DatabaseError(err)
	}
	if token.Used {
		return apperrors.ErrResetTokenUsed
	}
	if token.IsExpired(now) {
		return apperrors.ErrResetTokenExpired
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return apperrors.InternalError(err)
	}
	if err := s.resetRepo.MarkUsed(tx, token.ID, now); err != nil {
		if errors.Is(err, repositories.ErrResetTokenNotFound) {
			return apperrors.ErrResetTokenUsed
		}
		return apperrors.DatabaseError(err)
	}
	if err := s.userRepo.UpdatePassword(tx, token.UserID, hash); err != nil {
		return handleUserError(err)
	}
	if err := s.refreshTokenRepo.DeleteByUserID(tx, token.UserID); err != nil {
		return apperrors.DatabaseError(err)
	}
	if err := tx.Commit().Error; err != nil {
		return apperrors.DatabaseError(err)
	}

	logger.CtxInfo(contextOf(db), "Password reset completed", "user_id", token.UserID)
	return nil
}

// CleanupExpiredResetTokens удаляет токены, истекшие больше недели назад
func (s *authService) CleanupExpiredResetTokens(db *gorm.DB) (int64, error) {
	deleted, err := s.resetRepo.DeleteExpiredBefore(db, s.clock.now().Add(-resetTokenRetention))
	if err != nil {
		return 0, apperrors.DatabaseError(err)
	}
	return deleted, nil
}

func (s *authService) CleanupExpiredRefreshTokens(db *gorm.DB) (int64, error) {
	deleted, err := s.refreshTokenRepo.CleanExpired(db, s.clock.now())
	if err != nil {
		return 0, apperrors.DatabaseError(err)
	}
	return deleted, nil
}

// ---------------- Хелперы ----------------

func (s *authService) issueTokens(db *gorm.DB, user *models.User) (*dto.AuthResponse, error) {
	accessToken, err := auth.GenerateToken(user.ID, string(user.Role))
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	refreshToken, err := auth.GenerateSecureToken(refreshTokenBytes)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	if err := s.refreshTokenRepo.Create(db, &models.RefreshToken{
		UserID:    user.ID,
		Token:     refreshToken,
		ExpiresAt: s.clock.now().Add(s.config.RefreshTTL),
	}); err != nil {
		return nil, apperrors.DatabaseError(err)
	}

	return &dto.AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    tokenTypeBearer,
		ExpiresIn:    int64(auth.AccessTTL().Seconds()),
		User:         dto.NewUserResponse(user),
	}, nil
}

func (s *authService) resetLink(token string) string {
	if s.config.ResetURL == "" {
		return token
	}
	sep := "?"
	if strings.Contains(s.config.ResetURL, "?") {
		sep = "&"
	}
	return s.config.ResetURL + sep + "token=" + token
}

// sendMail - ошибки отправки только логируются
func (s *authService) sendMail(db *gorm.DB, user *models.User, subject, template string, data email.TemplateData) {
	ctx := contextOf(db)
	if err := s.emailProvider.SendTemplate(ctx, []string{user.Email}, subject, template, data); err != nil {
		logger.CtxWithError(ctx, "Failed to send email", err, "template", template, "user_id", user.ID)
	}
}
