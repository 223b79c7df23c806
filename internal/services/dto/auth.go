package dto

import "rentals_backend/internal/models"

// RegisterRequest - запрос регистрации
type RegisterRequest struct {
	FirstName    string          `json:"first_name" validate:"required,max=100"`
	LastName     string          `json:"last_name" validate:"required,max=100"`
	Email        string          `json:"email" validate:"required,email"`
	Password     string          `json:"password" validate:"required,strong-password"`
	Location     string          `json:"location" validate:"required,max=300"`
	Role         models.UserRole `json:"role" validate:"omitempty,is-registerable-role"`
	FlatmatePref []string        `json:"flatmate_pref"`
	Keywords     []string        `json:"keywords"`
}

// LoginRequest - запрос входа
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshTokenRequest - запрос обновления токена и выхода
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,strong-password"`
}

// PasswordResetRequest - запрос сброса пароля
type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// PasswordResetConfirm - подтверждение сброса пароля
type PasswordResetConfirm struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,strong-password"`
}

// AuthResponse - ответ с токенами
type AuthResponse struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	TokenType    string        `json:"token_type"`
	ExpiresIn    int64         `json:"expires_in"`
	User         *UserResponse `json:"user"`
}
