package storage

import (
	"context"
	"log/slog"

	"github.com/songzhibin97/brokerlink/internal/data"
	"github.com/songzhibin97/brokerlink/internal/models"
	"github.com/songzhibin97/brokerlink/internal/trading"
)

// Compile-time interface check.
var _ trading.Auditor = (*Auditor)(nil)

// Auditor records every trading event in an EventStore. A failed write is
// logged and never reaches the trading operation that fired the event.
type Auditor struct {
	store  data.EventStore
	logger *slog.Logger
}

func NewAuditor(store data.EventStore, logger *slog.Logger) *Auditor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Auditor{store: store, logger: logger}
}

// FireEvent implements trading.Auditor
func (a *Auditor) FireEvent(ctx context.Context, event models.TradingEvent) {
	if err := a.store.SaveEvent(ctx, event); err != nil {
		a.logger.ErrorContext(ctx, "Failed to store audit event", "event_id", event.ID, "event_type", event.Type, "err", err)
	}
}
