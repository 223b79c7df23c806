package validator

import (
	"log"

	"rentals_backend/internal/auth"
	"rentals_backend/internal/models"

	"github.com/go-playground/validator/v10"
)

// registerCustomRules регистрирует все кастомные функции валидации
func registerCustomRules(v *validator.Validate) {
	mustRegister := func(tag string, fn validator.Func) {
		if err := v.RegisterValidation(tag, fn); err != nil {
			// Без правила приложение запускаться не должно
			log.Fatalf("failed to register custom validation tag '%s': %v", tag, err)
		}
	}

	mustRegister("is-user-role", validateUserRole)
	mustRegister("is-registerable-role", validateRegisterableRole)
	mustRegister("is-apartment-status", validateApartmentStatus)
	mustRegister("is-bulk-action", validateBulkAction)
	mustRegister("is-sort-option", validateSortOption)
	mustRegister("strong-password", validateStrongPassword)
}

// Пустые значения не проверяем, для этого есть 'required'

func validateUserRole(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	return value == "" || models.UserRole(value).IsValid()
}

func validateRegisterableRole(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	return value == "" || models.UserRole(value).CanRegister()
}

func validateApartmentStatus(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	return value == "" || models.ApartmentStatus(value).IsValid()
}

func validateBulkAction(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	return value == "" || models.BulkAction(value).IsValid()
}

func validateSortOption(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	return value == "" || models.SortOption(value).IsValid()
}

func validateStrongPassword(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	return value == "" || len(auth.ValidatePassword(value)) == 0
}
