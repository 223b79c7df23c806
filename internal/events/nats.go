package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"rentals_backend/internal/logger"

	"github.com/nats-io/nats.go"
)

const (
	connectWait   = 5 * time.Second
	maxReconnects = 10
	reconnectWait = 2 * time.Second

	// IndexerQueue - группа подписчиков; событие получает один экземпляр сервиса
	IndexerQueue = "search-indexer"
)

func Connect(url, name string) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name(name),
		nats.Timeout(connectWait),
		nats.MaxReconnects(maxReconnects),
		nats.ReconnectWait(reconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	return nc, nil
}

type NATSPublisher struct {
	conn    *nats.Conn
	subject string
}

func NewNATSPublisher(conn *nats.Conn, subject string) *NATSPublisher {
	return &NATSPublisher{conn: conn, subject: subject}
}

func (p *NATSPublisher) Publish(ctx context.Context, evt ApartmentChanged) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return err
	}
	// Flush, чтобы релей отмечал запись обработанной только после доставки серверу
	return p.conn.FlushTimeout(connectWait)
}

func (p *NATSPublisher) Close() {
	p.conn.Close()
}

// Subscribe подписывает обработчик на события в группе IndexerQueue
func Subscribe(conn *nats.Conn, subject string, handler Handler) (*nats.Subscription, error) {
	return conn.QueueSubscribe(subject, IndexerQueue, func(msg *nats.Msg) {
		var evt ApartmentChanged
		if err := json.Unmarshal(msg.Data, &evt); err != nil {
			logger.Warn("Dropping malformed apartment event", "error", err)
			return
		}
		if err := handler(context.Background(), evt); err != nil {
			logger.Error("Apartment event handler failed",
				"apartment_id", evt.ApartmentID,
				"operation", evt.Operation,
				"error", err)
		}
	})
}
