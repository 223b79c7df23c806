package services

import (
	"rentals_backend/internal/cache"
	"rentals_backend/internal/email"
	"rentals_backend/internal/repositories"
	"rentals_backend/internal/search"
	"rentals_backend/internal/storage"
)

// Dependencies - внешние компоненты, из которых собираются сервисы
type Dependencies struct {
	Storage       storage.Storage
	Images        ImageConfig
	Cache         cache.ApartmentCache
	Search        search.Engine
	EmailProvider email.Provider
	Auth          AuthConfig
	Clock         Clock
}

// ServiceContainer содержит все сервисы приложения.
type ServiceContainer struct {
	UserService         UserService
	AuthService         AuthService
	ApartmentService    ApartmentService
	MessageService      MessageService
	NotificationService NotificationService
	SearchService       SearchService
	ImageService        ImageService
}

// Repositories - stateless репозитории, общие для сервисов и воркеров
type Repositories struct {
	User          repositories.UserRepository
	RefreshToken  repositories.RefreshTokenRepository
	PasswordReset repositories.PasswordResetRepository
	Apartment     repositories.ApartmentRepository
	Message       repositories.MessageRepository
	Notification  repositories.NotificationRepository
	Outbox        repositories.OutboxRepository
}

func NewRepositories() *Repositories {
	return &Repositories{
		User:          repositories.NewUserRepository(),
		RefreshToken:  repositories.NewRefreshTokenRepository(),
		PasswordReset: repositories.NewPasswordResetRepository(),
		Apartment:     repositories.NewApartmentRepository(),
		Message:       repositories.NewMessageRepository(),
		Notification:  repositories.NewNotificationRepository(),
		Outbox:        repositories.NewOutboxRepository(),
	}
}

func NewServiceContainer(repos *Repositories, deps Dependencies) *ServiceContainer {
	images := NewImageService(deps.Storage, deps.Images)
	notifications := NewNotificationService(repos.Notification, deps.Clock)

	return &ServiceContainer{
		UserService: NewUserService(
			repos.User, repos.Apartment, repos.Message, repos.Notification,
			repos.RefreshToken, repos.PasswordReset, repos.Outbox,
			images, deps.Cache, deps.Clock,
		),
		AuthService: NewAuthService(
			repos.User, repos.RefreshToken, repos.PasswordReset,
			deps.EmailProvider, deps.Auth, deps.Clock,
		),
		ApartmentService: NewApartmentService(
			repos.Apartment, repos.User, repos.Outbox,
			notifications, images, deps.Cache, deps.Clock,
		),
		MessageService:      NewMessageService(repos.Message, repos.User, repos.Apartment, notifications, deps.Clock),
		NotificationService: notifications,
		SearchService:       NewSearchService(deps.Search, repos.Apartment),
		ImageService:        images,
	}
}
