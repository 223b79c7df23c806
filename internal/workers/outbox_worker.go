package workers

import (
	"context"
	"time"

	"rentals_backend/internal/events"
	"rentals_backend/internal/logger"
	"rentals_backend/internal/repositories"
	"rentals_backend/internal/telemetry"

	"gorm.io/gorm"
)

const outboxWorkerName = "outbox_relay"

// OutboxRelay доставляет записи search_outbox издателю в порядке появления.
// Неудачная запись остается необработанной и повторяется на следующем тике.
type OutboxRelay struct {
	db         *gorm.DB
	outboxRepo repositories.OutboxRepository
	publisher  events.Publisher
	batchSize  int
	interval   time.Duration
}

func NewOutboxRelay(db *gorm.DB, outboxRepo repositories.OutboxRepository, publisher events.Publisher, batchSize int, interval time.Duration) *OutboxRelay {
	if batchSize <= 0 {
		batchSize = 100
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &OutboxRelay{
		db:         db,
		outboxRepo: outboxRepo,
		publisher:  publisher,
		batchSize:  batchSize,
		interval:   interval,
	}
}

func (r *OutboxRelay) Start(ctx context.Context) {
	go r.loop(ctx)
}

func (r *OutboxRelay) loop(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Outbox relay stopped")
			return
		case <-ticker.C:
			_, _ = r.RunOnce(ctx)
		}
	}
}

// RunOnce публикует одну пачку и возвращает число доставленных записей
func (r *OutboxRelay) RunOnce(ctx context.Context) (int, error) {
	db := r.db.WithContext(ctx)

	rows, err := r.outboxRepo.FetchPending(db, r.batchSize)
	if err != nil {
		logger.WorkerLog(outboxWorkerName, "fetch", err)
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	published := make([]uint64, 0, len(rows))
	for _, row := range rows {
		evt := events.ApartmentChanged{
			OutboxID:    row.ID,
			ApartmentID: row.ApartmentID,
			Operation:   row.Operation,
			OccurredAt:  row.CreatedAt,
		}
		if err := r.publisher.Publish(ctx, evt); err != nil {
			telemetry.OutboxPublishedTotal.WithLabelValues("error").Inc()
			logger.WorkerLog(outboxWorkerName, "publish", err, "outbox_id", row.ID, "apartment_id", row.ApartmentID)
			if markErr := r.outboxRepo.MarkFailed(db, row.ID, err.Error()); markErr != nil {
				logger.WorkerLog(outboxWorkerName, "mark_failed", markErr, "outbox_id", row.ID)
			}
			continue
		}
		telemetry.OutboxPublishedTotal.WithLabelValues("ok").Inc()
		published = append(published, row.ID)
	}

	if err := r.outboxRepo.MarkProcessed(db, published, time.Now()); err != nil {
		logger.WorkerLog(outboxWorkerName, "mark_processed", err)
		return 0, err
	}
	logger.CtxDebug(ctx, "Outbox batch relayed", "published", len(published), "fetched", len(rows))
	return len(published), nil
}
