package workers

import (
	"context"
	"time"

	"rentals_backend/internal/logger"
	"rentals_backend/internal/services"

	"gorm.io/gorm"
)

const featuredWorkerName = "featured_expiry"

// FeaturedWorker периодически снимает истекшее продвижение объявлений
type FeaturedWorker struct {
	db         *gorm.DB
	apartments services.ApartmentService
	interval   time.Duration
}

func NewFeaturedWorker(db *gorm.DB, apartments services.ApartmentService, interval time.Duration) *FeaturedWorker {
	if interval <= 0 {
		interval = time.Hour
	}
	return &FeaturedWorker{db: db, apartments: apartments, interval: interval}
}

// Start запускает фоновую проверку
func (w *FeaturedWorker) Start(ctx context.Context) {
	go w.loop(ctx)
}

func (w *FeaturedWorker) loop(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Featured expiry worker stopped")
			return
		case <-ticker.C:
			_, _ = w.RunOnce(ctx)
		}
	}
}

// RunOnce - один проход; повторный запуск ничего не меняет
func (w *FeaturedWorker) RunOnce(ctx context.Context) (int64, error) {
	expired, err := w.apartments.ExpireFeatured(w.db.WithContext(ctx))
	if err != nil {
		logger.WorkerLog(featuredWorkerName, "expire", err)
		return 0, err
	}
	if expired > 0 {
		logger.WorkerLog(featuredWorkerName, "expire", nil, "expired", expired)
	}
	return expired, nil
}
