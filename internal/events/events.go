package events

import (
	"context"
	"time"

	"rentals_backend/internal/models"
)

// ApartmentChanged - объявление изменилось, индекс нужно синхронизировать
type ApartmentChanged struct {
	OutboxID    uint64                 `json:"outbox_id"`
	ApartmentID string                 `json:"apartment_id"`
	Operation   models.OutboxOperation `json:"operation"`
	OccurredAt  time.Time              `json:"occurred_at"`
}

type Handler func(ctx context.Context, evt ApartmentChanged) error

type Publisher interface {
	Publish(ctx context.Context, evt ApartmentChanged) error
	Close()
}

// InProcessPublisher вызывает обработчик синхронно; ошибка обработчика возвращается релею
type InProcessPublisher struct {
	handler Handler
}

func NewInProcessPublisher(handler Handler) *InProcessPublisher {
	return &InProcessPublisher{handler: handler}
}

func (p *InProcessPublisher) Publish(ctx context.Context, evt ApartmentChanged) error {
	if p.handler == nil {
		return nil
	}
	return p.handler(ctx, evt)
}

func (p *InProcessPublisher) Close() {}
