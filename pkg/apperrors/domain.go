package apperrors

import (
	"net/http"
)

/*
Фабрики и предопределенные переменные для ошибок бизнес-логики.
*/

// ErrNotFound - фабрика для ошибки "не найдено" (404).
// Используется, когда ошибку репозитория (gorm.ErrRecordNotFound и т.п.)
// нужно превратить в AppError.
func ErrNotFound(err error) *AppError {
	return Wrap(err, CodeNotFound, "resource", "Resource not found", http.StatusNotFound)
}

// ErrAlreadyExists - фабрика для ошибки "уже существует" (409)
func ErrAlreadyExists(err error) *AppError {
	return Wrap(err, CodeAlreadyExists, "resource", "Resource already exists", http.StatusConflict)
}

// ErrConflict - общая фабрика для конфликтов (409)
func ErrConflict(err error, domain, message string) *AppError {
	return Wrap(err, CodeConflict, domain, message, http.StatusConflict)
}

// ErrInvalidOperation - фабрика для невалидных операций (400)
func ErrInvalidOperation(domain, message string) *AppError {
	return New(CodeInvalidOperation, domain, message, http.StatusBadRequest)
}

// ErrInvalidStatus - фабрика для невалидных статусов (400)
func ErrInvalidStatus(domain, message string) *AppError {
	return New(CodeInvalidStatus, domain, message, http.StatusBadRequest)
}

// --- Общие ---

var ErrInsufficientPermissions = New(
	CodeForbidden,
	"auth",
	"Insufficient permissions",
	http.StatusForbidden,
)

var ErrTooManyRequests = New(
	CodeTooManyRequests,
	"rate_limit",
	"Too many requests, try again later",
	http.StatusTooManyRequests,
)

// --- Uploads ---

var ErrFileTooLarge = New(
	CodeLimitExceeded,
	"validation",
	"File size exceeds the allowed limit",
	http.StatusRequestEntityTooLarge,
)

var ErrInvalidFileType = New(
	CodeValidationFailed,
	"validation",
	"The provided file type is not allowed",
	http.StatusUnsupportedMediaType,
)

// --- Apartments ---

var ErrApartmentNotFound = New(
	CodeNotFound,
	"apartment",
	"Apartment not found",
	http.StatusNotFound,
)

// ErrApartmentForbidden - операция над чужим объявлением
var ErrApartmentForbidden = New(
	CodeForbidden,
	"apartment",
	"You don't have permission to modify this apartment",
	http.StatusForbidden,
)

// ErrApartmentAlreadyPublished - publish для уже опубликованного объявления
var ErrApartmentAlreadyPublished = New(
	CodeConflict,
	"apartment",
	"Apartment is already published",
	http.StatusConflict,
)

var ErrNotEnoughImages = New(
	CodeValidationFailed,
	"apartment",
	"At least 4 images are required",
	http.StatusBadRequest,
)

var ErrInvalidRent = New(
	CodeValidationFailed,
	"apartment",
	"rent_per_week must be greater than 0",
	http.StatusBadRequest,
)

var ErrInvalidFeatureParams = New(
	CodeValidationFailed,
	"apartment",
	"duration_days must be between 1 and 90 and priority between 1 and 10",
	http.StatusBadRequest,
)

var ErrBulkTooLarge = New(
	CodeLimitExceeded,
	"apartment",
	"Bulk operations are limited to 100 apartments",
	http.StatusBadRequest,
)

var ErrInvalidBulkAction = New(
	CodeInvalidOperation,
	"apartment",
	"Unknown bulk action",
	http.StatusBadRequest,
)

// --- Auth ---

var ErrWeakPassword = New(
	CodeValidationFailed,
	"validation",
	"Password is too weak",
	http.StatusBadRequest,
)

var ErrEmailAlreadyExists = New(
	CodeAlreadyExists,
	"auth",
	"Email already registered",
	http.StatusConflict,
)

var ErrInvalidCredentials = New(
	CodeInvalidCredentials,
	"auth",
	"Incorrect email or password",
	http.StatusUnauthorized,
)

var ErrInvalidToken = New(
	CodeInvalidToken,
	"auth",
	"Invalid or expired token",
	http.StatusUnauthorized,
)

var ErrInvalidUserRole = New(
	CodeInvalidOperation,
	"auth",
	"Invalid user role for this operation",
	http.StatusBadRequest,
)

// Ошибки сброса пароля различаются сообщением
var ErrResetTokenInvalid = New(CodeInvalidToken, "password_reset", "Invalid reset token", http.StatusBadRequest)
var ErrResetTokenUsed = New(CodeInvalidToken, "password_reset", "Reset token already used", http.StatusBadRequest)
var ErrResetTokenExpired = New(CodeTokenExpired, "password_reset", "Reset token expired", http.StatusBadRequest)

// --- Users ---

var ErrUserNotFound = New(
	CodeNotFound,
	"user",
	"User not found",
	http.StatusNotFound,
)

var ErrCannotModifySelf = New(
	CodeForbidden,
	"user",
	"Operation on self is not allowed",
	http.StatusForbidden,
)

// --- Messages ---

var ErrMessageToSelf = New(
	CodeInvalidOperation,
	"message",
	"Cannot send message to yourself",
	http.StatusBadRequest,
)

var ErrMessageNotFound = New(
	CodeNotFound,
	"message",
	"Message not found or unauthorized",
	http.StatusNotFound,
)

var ErrReceiverNotFound = New(
	CodeNotFound,
	"message",
	"Receiver not found",
	http.StatusNotFound,
)

// --- Notifications ---

var ErrNotificationNotFound = New(
	CodeNotFound,
	"notification",
	"Notification not found",
	http.StatusNotFound,
)
