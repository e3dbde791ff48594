package trading

import (
	"context"
	"log/slog"

	"github.com/songzhibin97/brokerlink/internal/models"
)

// AuditMessagePrefix starts every line written by LoggingAuditor.
const AuditMessagePrefix = "Audit event got: "

// LoggingAuditor is the default Auditor: one info line per event.
type LoggingAuditor struct {
	logger *slog.Logger
}

func NewLoggingAuditor(logger *slog.Logger) *LoggingAuditor {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingAuditor{logger: logger}
}

// FireEvent implements Auditor
func (a *LoggingAuditor) FireEvent(ctx context.Context, event models.TradingEvent) {
	a.logger.InfoContext(ctx, AuditMessagePrefix+event.String(), "event_type", event.Type)
}

// MultiAuditor fans every event out to all of its auditors in order.
type MultiAuditor []Auditor

// FireEvent implements Auditor
func (m MultiAuditor) FireEvent(ctx context.Context, event models.TradingEvent) {
	for _, a := range m {
		a.FireEvent(ctx, event)
	}
}

// fireEvent shields the caller from a misbehaving Auditor.
func fireEvent(ctx context.Context, auditor Auditor, logger *slog.Logger, event models.TradingEvent) {
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorContext(ctx, "Audit sink panicked", "event_id", event.ID, "panic", r)
		}
	}()
	auditor.FireEvent(ctx, event)
}
