package services

import (
	"errors"

	"rentals_backend/internal/repositories"
	"rentals_backend/pkg/apperrors"
)

// handleApartmentError переводит ошибки репозиториев в AppError
func handleApartmentError(err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, repositories.ErrApartmentNotFound) {
		return apperrors.ErrApartmentNotFound
	}
	return apperrors.DatabaseError(err)
}

func handleUserError(err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	switch {
	case errors.Is(err, repositories.ErrUserNotFound):
		return apperrors.ErrUserNotFound
	case errors.Is(err, repositories.ErrUserAlreadyExists):
		return apperrors.ErrEmailAlreadyExists
	}
	return apperrors.DatabaseError(err)
}

func handleMessageError(err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, repositories.ErrMessageNotFound) {
		return apperrors.ErrMessageNotFound
	}
	return apperrors.DatabaseError(err)
}

func handleNotificationError(err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, repositories.ErrNotificationNotFound) {
		return apperrors.ErrNotificationNotFound
	}
	return apperrors.DatabaseError(err)
}
