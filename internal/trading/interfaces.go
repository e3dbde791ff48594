package trading

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/songzhibin97/brokerlink/internal/models"
)

// AccountService resolves the trading account all other services act on
type AccountService interface {
	// GetTradingAccount returns the configured account, fetching it on first use
	GetTradingAccount(ctx context.Context) (models.TradingAccount, error)
}

// OrderService manages orders of the trading account
type OrderService interface {
	// GetActiveOrders lists orders that are not yet final
	GetActiveOrders(ctx context.Context) ([]models.Order, error)

	// CancelOrders cancels every order still in a cancelable status
	CancelOrders(ctx context.Context, orders []models.Order) ([]CancelResult, error)

	// Buy places a buy order; a nil price places a market order
	Buy(ctx context.Context, figi string, lots int, price *decimal.Decimal) (models.Order, error)

	// Sell places a sell order; a nil price places a market order
	Sell(ctx context.Context, figi string, lots int, price *decimal.Decimal) (models.Order, error)
}

// PortfolioService reads holdings of the trading account
type PortfolioService interface {
	// GetPortfolio returns currency positions followed by other positions
	GetPortfolio(ctx context.Context) (models.Portfolio, error)

	// GetCurrencies returns currency positions
	GetCurrencies(ctx context.Context) ([]models.PortfolioPosition, error)

	// GetNonCurrencies returns securities positions
	GetNonCurrencies(ctx context.Context) ([]models.PortfolioPosition, error)
}

// InstrumentService looks up static instrument metadata
type InstrumentService interface {
	// GetInstrument returns ok=false when the broker does not know the FIGI
	GetInstrument(ctx context.Context, figi string) (instrument models.Instrument, ok bool, err error)
}

// Auditor receives trading events. Implementations must not panic and
// handle their own failures; auditing never fails a trading operation.
type Auditor interface {
	FireEvent(ctx context.Context, event models.TradingEvent)
}

// CancelOutcome 撤单结果
type CancelOutcome string

const (
	CancelOutcomeCancelled CancelOutcome = "cancelled"
	CancelOutcomeSkipped   CancelOutcome = "skipped"
	CancelOutcomeFailed    CancelOutcome = "failed"
)

// CancelResult reports what happened to one order passed to CancelOrders
type CancelResult struct {
	OrderID string        `json:"order_id"`
	Outcome CancelOutcome `json:"outcome"`
	Err     error         `json:"-"`
}
