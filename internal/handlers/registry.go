package handlers

import (
	"rentals_backend/internal/services"
	"rentals_backend/internal/validator"

	"github.com/gin-gonic/gin"
)

// AppHandlers содержит все хэндлеры приложения.
type AppHandlers struct {
	AuthHandler         *AuthHandler
	UserHandler         *UserHandler
	ApartmentHandler    *ApartmentHandler
	MessageHandler      *MessageHandler
	NotificationHandler *NotificationHandler
	SearchHandler       *SearchHandler
	AdminHandler        *AdminHandler
}

// NewAppHandlers собирает хэндлеры поверх контейнера сервисов.
// authRateLimit применяется к открытым эндпоинтам /auth.
func NewAppHandlers(container *services.ServiceContainer, authRateLimit gin.HandlerFunc) *AppHandlers {
	base := NewBaseHandler(validator.New())

	return &AppHandlers{
		AuthHandler:         NewAuthHandler(base, container.AuthService, authRateLimit),
		UserHandler:         NewUserHandler(base, container.UserService),
		ApartmentHandler:    NewApartmentHandler(base, container.ApartmentService),
		MessageHandler:      NewMessageHandler(base, container.MessageService),
		NotificationHandler: NewNotificationHandler(base, container.NotificationService),
		SearchHandler:       NewSearchHandler(base, container.SearchService),
		AdminHandler:        NewAdminHandler(base, container.UserService, container.ApartmentService, container.SearchService),
	}
}
