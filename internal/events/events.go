// Package events publishes spot and booking change notifications. The core
// only produces events; delivery failures are logged and never fail the
// operation that caused them.
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"spotshare/internal/config"
	"spotshare/internal/logger"
	"spotshare/internal/metrics"
)

const (
	TypeSpotStatusChanged    = "spot.status_changed"
	TypeBookingStatusChanged = "booking.status_changed"
	TypeWalletCredited       = "wallet.credited"
)

// Sources of a spot status change.
const (
	SourceOwner     = "owner"
	SourceScheduler = "scheduler"
)

type Event struct {
	ID         uuid.UUID   `json:"id"`
	Type       string      `json:"type"`
	OccurredAt time.Time   `json:"occurred_at"`
	Payload    interface{} `json:"payload"`
}

type SpotStatusChanged struct {
	SpotID    uuid.UUID `json:"spot_id"`
	OldStatus string    `json:"old_status"`
	NewStatus string    `json:"new_status"`
	Source    string    `json:"source"`
}

type BookingStatusChanged struct {
	BookingID uuid.UUID `json:"booking_id"`
	SpotID    uuid.UUID `json:"spot_id"`
	OldStatus string    `json:"old_status"`
	NewStatus string    `json:"new_status"`
	Actor     string    `json:"actor"`
}

type WalletCredited struct {
	UserID      uuid.UUID `json:"user_id"`
	AmountCents int64     `json:"amount_cents"`
	Key         string    `json:"key"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

func New(eventType string, payload interface{}, at time.Time) Event {
	return Event{
		ID:         uuid.New(),
		Type:       eventType,
		OccurredAt: at.UTC(),
		Payload:    payload,
	}
}

// Emit publishes e and swallows the error after logging it.
func Emit(ctx context.Context, p Publisher, e Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, e); err != nil {
		metrics.RecordEvent(e.Type, "error")
		logger.Warn("failed to publish event", "type", e.Type, "event_id", e.ID, "error", err)
		return
	}
	metrics.RecordEvent(e.Type, "ok")
}

type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close() error                         { return nil }

// Open builds the publisher selected by cfg.Driver. rdb is only used by the
// redis driver.
func Open(cfg config.EventsConfig, rdb *redis.Client) (Publisher, error) {
	switch cfg.Driver {
	case "redis":
		return NewRedisPublisher(rdb, cfg.Channel, cfg.HistoryKey, cfg.HistorySize), nil
	case "amqp":
		p, err := NewAMQPPublisher(cfg.AMQPURL, cfg.Exchange)
		if err != nil {
			return nil, err
		}
		return p, nil
	case "none", "":
		return Noop{}, nil
	default:
		return nil, fmt.Errorf("unknown events driver %q", cfg.Driver)
	}
}
