package trading

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/songzhibin97/brokerlink/internal/broker"
	"github.com/songzhibin97/brokerlink/internal/models"
)

const testAccountID = "ACCOUNT_ID1"

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type mockClient struct {
	mock.Mock
}

var _ broker.Client = (*mockClient)(nil)

func (m *mockClient) ListAccounts(ctx context.Context) ([]broker.Account, error) {
	args := m.Called(ctx)
	accounts, _ := args.Get(0).([]broker.Account)
	return accounts, args.Error(1)
}

func (m *mockClient) ListOrders(ctx context.Context, accountID string) ([]broker.Order, error) {
	args := m.Called(ctx, accountID)
	orders, _ := args.Get(0).([]broker.Order)
	return orders, args.Error(1)
}

func (m *mockClient) CancelOrder(ctx context.Context, orderID, accountID string) error {
	return m.Called(ctx, orderID, accountID).Error(0)
}

func (m *mockClient) PlaceMarketOrder(ctx context.Context, figi string, order broker.MarketOrder, accountID string) (*broker.PlacedOrder, error) {
	args := m.Called(ctx, figi, order, accountID)
	placed, _ := args.Get(0).(*broker.PlacedOrder)
	return placed, args.Error(1)
}

func (m *mockClient) PlaceLimitOrder(ctx context.Context, figi string, order broker.LimitOrder, accountID string) (*broker.PlacedOrder, error) {
	args := m.Called(ctx, figi, order, accountID)
	placed, _ := args.Get(0).(*broker.PlacedOrder)
	return placed, args.Error(1)
}

func (m *mockClient) PortfolioCurrencies(ctx context.Context, accountID string) ([]broker.CurrencyBalance, error) {
	args := m.Called(ctx, accountID)
	balances, _ := args.Get(0).([]broker.CurrencyBalance)
	return balances, args.Error(1)
}

func (m *mockClient) PortfolioPositions(ctx context.Context, accountID string) ([]broker.Position, error) {
	args := m.Called(ctx, accountID)
	positions, _ := args.Get(0).([]broker.Position)
	return positions, args.Error(1)
}

func (m *mockClient) InstrumentByFIGI(ctx context.Context, figi string) (*broker.Instrument, error) {
	args := m.Called(ctx, figi)
	instrument, _ := args.Get(0).(*broker.Instrument)
	return instrument, args.Error(1)
}

// staticAccounts always resolves to the same account or fails with err.
type staticAccounts struct {
	err error
}

func (s staticAccounts) GetTradingAccount(context.Context) (models.TradingAccount, error) {
	if s.err != nil {
		return models.TradingAccount{}, s.err
	}
	return models.TradingAccount{ID: testAccountID}, nil
}

type recordingAuditor struct {
	mu     sync.Mutex
	events []models.TradingEvent
}

func (r *recordingAuditor) FireEvent(_ context.Context, event models.TradingEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingAuditor) types() []models.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]models.EventType, 0, len(r.events))
	for _, e := range r.events {
		types = append(types, e.Type)
	}
	return types
}

type panickingAuditor struct{}

func (panickingAuditor) FireEvent(context.Context, models.TradingEvent) {
	panic("audit backend down")
}
