package trading

import (
	"context"
	"log/slog"

	"github.com/songzhibin97/brokerlink/internal/broker"
	"github.com/songzhibin97/brokerlink/internal/models"
)

// Compile-time interface check.
var _ InstrumentService = (*InstrumentLookup)(nil)

// InstrumentLookup resolves static instrument metadata by FIGI
type InstrumentLookup struct {
	client broker.Client
	logger *slog.Logger
}

func NewInstrumentLookup(client broker.Client, logger *slog.Logger) *InstrumentLookup {
	if logger == nil {
		logger = slog.Default()
	}
	return &InstrumentLookup{client: client, logger: logger}
}

// GetInstrument implements InstrumentService
func (l *InstrumentLookup) GetInstrument(ctx context.Context, figi string) (models.Instrument, bool, error) {
	src, err := l.client.InstrumentByFIGI(ctx, figi)
	if err != nil {
		return models.Instrument{}, false, apiError("failed to get information about an instrument", err)
	}
	if src == nil {
		l.logger.DebugContext(ctx, "Instrument not found", "figi", figi)
		return models.Instrument{}, false, nil
	}

	instrument, err := mapInstrument(*src)
	if err != nil {
		return models.Instrument{}, false, apiError("failed to map instrument "+figi, err)
	}
	return instrument, true, nil
}
