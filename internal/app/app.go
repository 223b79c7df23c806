package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"rentals_backend/internal/auth"
	"rentals_backend/internal/cache"
	"rentals_backend/internal/config"
	"rentals_backend/internal/database"
	"rentals_backend/internal/email"
	"rentals_backend/internal/events"
	"rentals_backend/internal/handlers"
	"rentals_backend/internal/logger"
	"rentals_backend/internal/middleware"
	"rentals_backend/internal/routes"
	"rentals_backend/internal/search"
	"rentals_backend/internal/services"
	"rentals_backend/internal/storage"
	"rentals_backend/internal/workers"
	"rentals_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis_rate/v10"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

// App - собранное приложение: БД, внешние клиенты, репозитории и сервисы.
// Используется и HTTP-сервером, и CLI.
type App struct {
	Config   *config.Config
	DB       *gorm.DB
	Repos    *services.Repositories
	Services *services.ServiceContainer
	Indexer  *services.SearchIndexer

	publisher events.Publisher
	redis     *redis.Client
	nats      *nats.Conn
	sub       *nats.Subscription
}

// Run запускает HTTP-сервер и воркеры; завершается по SIGINT/SIGTERM
func Run() {
	config.LoadConfig()
	cfg := config.AppConfig
	logger.Init(cfg.Server.Env)
	logger.Info("Logger initialized", "env", cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := Build(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to build application", "error", err)
	}
	defer application.Close()

	if err := application.Services.UserService.EnsureFirstAdmin(application.DB.WithContext(ctx), cfg.FirstAdminEmail, cfg.FirstAdminPassword); err != nil {
		logger.Fatal("Failed to seed first admin user", "error", err)
	}

	if err := application.Services.SearchService.EnsureIndex(ctx); err != nil {
		logger.Warn("Search index is not ready, search requests will fail until it is", "error", err)
	}

	if cfg.Workers.Enabled {
		application.StartWorkers(ctx)
	}

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           application.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server starting", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server startup error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}
}

// Build подключает БД и внешние сервисы и собирает контейнер сервисов.
// Redis и NATS необязательны: без них используются NoopCache и синхронная доставка событий.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	auth.Init(cfg.JWT.Secret, time.Duration(cfg.JWT.TTL)*time.Minute)
	apperrors.SetDebug(cfg.Server.Env == "development")

	logger.Info("Connecting to database...")
	db, err := database.Connect(cfg.Database.DSN, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)
	if err != nil {
		return nil, err
	}
	logger.Info("Database connected")

	if cfg.Database.AutoMigrate {
		if err := database.AutoMigrate(db); err != nil {
			return nil, err
		}
	}

	store, err := storage.NewStorage(storage.Config{
		Type:      cfg.Storage.Type,
		BasePath:  cfg.Storage.BasePath,
		BaseURL:   cfg.Storage.BaseURL,
		Bucket:    cfg.Storage.Bucket,
		Region:    cfg.Storage.Region,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		Endpoint:  cfg.Storage.Endpoint,
		UseSSL:    cfg.Storage.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	logger.Info("Storage initialized", "type", cfg.Storage.Type)

	var apartmentCache cache.ApartmentCache = cache.NoopCache{}
	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		client, err := cache.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Warn("Redis unavailable, cache and rate limiting disabled", "error", err)
		} else {
			redisClient = client
			apartmentCache = cache.NewRedisApartmentCache(client, cfg.Redis.CacheTTL)
			logger.Info("Redis connected", "addr", cfg.Redis.Addr)
		}
	}

	engine, err := search.NewClient(search.Config{
		Addresses: cfg.Elastic.Addresses,
		Username:  cfg.Elastic.Username,
		Password:  cfg.Elastic.Password,
		Index:     cfg.Elastic.Index,
	})
	if err != nil {
		return nil, err
	}

	app := New(cfg, db, services.Dependencies{
		Storage: store,
		Images: services.ImageConfig{
			MaxSize:      cfg.Upload.MaxSize,
			AllowedTypes: cfg.Upload.AllowedTypes,
		},
		Cache:         apartmentCache,
		Search:        engine,
		EmailProvider: newEmailProvider(cfg),
		Auth: services.AuthConfig{
			RefreshTTL: time.Duration(cfg.JWT.RefreshTTLDays) * 24 * time.Hour,
			ResetURL:   cfg.Email.ResetURL,
		},
	})
	app.redis = redisClient

	if err := app.setupEvents(); err != nil {
		return nil, err
	}
	return app, nil
}

// New собирает App поверх готовой БД и зависимостей.
// События доставляются индексатору в том же процессе; Build заменяет это на NATS, если он настроен.
func New(cfg *config.Config, db *gorm.DB, deps services.Dependencies) *App {
	app := &App{Config: cfg, DB: db, Repos: services.NewRepositories()}
	app.Services = services.NewServiceContainer(app.Repos, deps)
	app.Indexer = services.NewSearchIndexer(db, app.Repos.Apartment, deps.Search)
	app.publisher = events.NewInProcessPublisher(app.Indexer.Handle)
	return app
}

// setupEvents - NATS при наличии URL, иначе индексатор вызывается прямо из релея
func (a *App) setupEvents() error {
	if a.Config.NATS.URL == "" {
		logger.Info("Search events delivered in-process")
		return nil
	}

	conn, err := events.Connect(a.Config.NATS.URL, "rentals-backend")
	if err != nil {
		return err
	}
	sub, err := events.Subscribe(conn, a.Config.NATS.Subject, a.Indexer.Handle)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to subscribe to %s: %w", a.Config.NATS.Subject, err)
	}
	a.nats = conn
	a.sub = sub
	a.publisher = events.NewNATSPublisher(conn, a.Config.NATS.Subject)
	logger.Info("Search events delivered via NATS", "subject", a.Config.NATS.Subject)
	return nil
}

func newEmailProvider(cfg *config.Config) email.Provider {
	if !cfg.Email.Enabled {
		logger.Warn("Email sending disabled, using noop provider")
		return email.NewNoopProvider()
	}

	provider, err := email.NewSMTPProvider(&email.SMTPConfig{
		Host:      cfg.Email.SMTPHost,
		Port:      cfg.Email.SMTPPort,
		Username:  cfg.Email.SMTPUsername,
		Password:  cfg.Email.SMTPPassword,
		FromEmail: cfg.Email.FromEmail,
		FromName:  cfg.Email.FromName,
		Timeout:   10 * time.Second,
	}, email.NewTemplateManager())
	if err != nil {
		logger.Error("Invalid SMTP configuration, using noop provider", "error", err)
		return email.NewNoopProvider()
	}
	return provider
}

// OutboxRelay - релей поверх текущего издателя событий
func (a *App) OutboxRelay() *workers.OutboxRelay {
	return workers.NewOutboxRelay(a.DB, a.Repos.Outbox, a.publisher, a.Config.Workers.OutboxBatchSize, a.Config.Workers.OutboxInterval)
}

func (a *App) StartWorkers(ctx context.Context) {
	workers.NewFeaturedWorker(a.DB, a.Services.ApartmentService, a.Config.Workers.FeaturedExpiryInterval).Start(ctx)
	a.OutboxRelay().Start(ctx)
	workers.NewCleanupWorker(a.DB, a.Services.AuthService, a.Repos.Outbox, a.Config.Workers.TokenCleanupInterval).Start(ctx)
	logger.Info("Background workers started")
}

// SetupRouter собирает gin с middleware и маршрутами
func (a *App) SetupRouter() *gin.Engine {
	if a.Config.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.CORSMiddleware(a.Config.CORS.AllowedOrigins))
	router.Use(middleware.DBMiddleware(a.DB))

	// Локальные файлы отдаются самим сервером, если BaseURL - относительный путь
	if base := strings.TrimRight(a.Config.Storage.BaseURL, "/"); a.Config.Storage.Type == "local" && strings.HasPrefix(base, "/") {
		router.Static(base, a.Config.Storage.BasePath)
	}

	var limiter *redis_rate.Limiter
	if a.redis != nil {
		limiter = redis_rate.NewLimiter(a.redis)
	}
	authRateLimit := middleware.RateLimitMiddleware(limiter, "auth", a.Config.RateLimit.AuthPerMinute)

	routes.RegisterRoutes(router, handlers.NewAppHandlers(a.Services, authRateLimit), a.DB)
	return router
}

// Close освобождает внешние соединения
func (a *App) Close() {
	if a.sub != nil {
		_ = a.sub.Drain()
	}
	if a.publisher != nil {
		a.publisher.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
	logger.Info("Application resources released")
}
