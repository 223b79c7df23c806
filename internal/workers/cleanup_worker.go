package workers

import (
	"context"
	"time"

	"rentals_backend/internal/logger"
	"rentals_backend/internal/repositories"
	"rentals_backend/internal/services"

	"gorm.io/gorm"
)

const (
	cleanupWorkerName = "cleanup"
	outboxRetention   = 7 * 24 * time.Hour
)

// CleanupWorker удаляет истекшие токены и старые обработанные записи outbox
type CleanupWorker struct {
	db         *gorm.DB
	auth       services.AuthService
	outboxRepo repositories.OutboxRepository
	interval   time.Duration
}

func NewCleanupWorker(db *gorm.DB, auth services.AuthService, outboxRepo repositories.OutboxRepository, interval time.Duration) *CleanupWorker {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &CleanupWorker{db: db, auth: auth, outboxRepo: outboxRepo, interval: interval}
}

func (w *CleanupWorker) Start(ctx context.Context) {
	go w.loop(ctx)
}

func (w *CleanupWorker) loop(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Cleanup worker stopped")
			return
		case <-ticker.C:
			_ = w.RunOnce(ctx)
		}
	}
}

// CleanupResult - сколько строк удалено за проход
type CleanupResult struct {
	ResetTokens   int64
	RefreshTokens int64
	OutboxRows    int64
}

func (w *CleanupWorker) RunOnce(ctx context.Context) *CleanupResult {
	db := w.db.WithContext(ctx)
	result := &CleanupResult{}
	var err error

	if result.ResetTokens, err = w.auth.CleanupExpiredResetTokens(db); err != nil {
		logger.WorkerLog(cleanupWorkerName, "reset_tokens", err)
	}
	if result.RefreshTokens, err = w.auth.CleanupExpiredRefreshTokens(db); err != nil {
		logger.WorkerLog(cleanupWorkerName, "refresh_tokens", err)
	}
	if result.OutboxRows, err = w.outboxRepo.DeleteProcessedBefore(db, time.Now().Add(-outboxRetention)); err != nil {
		logger.WorkerLog(cleanupWorkerName, "outbox", err)
	}

	logger.WorkerLog(cleanupWorkerName, "run", nil,
		"reset_tokens", result.ResetTokens,
		"refresh_tokens", result.RefreshTokens,
		"outbox_rows", result.OutboxRows,
	)
	return result
}
