package data

import (
	"context"
	"time"

	"github.com/songzhibin97/brokerlink/internal/models"
)

// EventStore 处理审计事件的持久化
type EventStore interface {
	// SaveEvent stores one trading event
	SaveEvent(ctx context.Context, event models.TradingEvent) error

	// ListEvents retrieves events recorded between start and end, oldest first
	ListEvents(ctx context.Context, start, end time.Time) ([]models.TradingEvent, error)

	// Close releases the underlying connection pool
	Close() error
}
