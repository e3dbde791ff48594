// Package binance implements the broker client on top of the Binance spot
// API. Order ids are encoded as "SYMBOL:ID" and one lot equals the symbol's
// LOT_SIZE step.
package binance

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/shopspring/decimal"

	"github.com/songzhibin97/brokerlink/internal/broker"
)

// Binance API error codes treated as broker-side outcomes rather than failures.
const (
	codeInvalidSymbol    = -1121
	codeFilterFailure    = -1013
	codeNewOrderRejected = -2010

	defaultAccountID = "spot"
)

// Compile-time interface check.
var _ broker.Client = (*BinanceClient)(nil)

// BinanceClient implements broker.Client for Binance spot trading
type BinanceClient struct {
	client *binance.Client

	mu    sync.RWMutex
	steps map[string]decimal.Decimal
}

// NewBinanceClient creates a new BinanceClient instance
func NewBinanceClient(apiKey, secretKey string, testnet ...bool) *BinanceClient {
	testnet = append(testnet, false)
	if testnet[0] {
		binance.UseTestnet = true
	}

	return &BinanceClient{
		client: binance.NewClient(apiKey, secretKey),
		steps:  make(map[string]decimal.Decimal),
	}
}

// ListAccounts returns the single spot account behind the API key
func (b *BinanceClient) ListAccounts(ctx context.Context) ([]broker.Account, error) {
	account, err := b.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get account info: %w", err)
	}

	id := strings.ToLower(account.AccountType)
	if id == "" {
		id = defaultAccountID
	}
	return []broker.Account{{Type: broker.AccountTypeBrokerage, ID: id}}, nil
}

// ListOrders returns open orders across all symbols
func (b *BinanceClient) ListOrders(ctx context.Context, _ string) ([]broker.Order, error) {
	result, err := b.client.NewListOpenOrdersService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list open orders: %w", err)
	}

	orders := make([]broker.Order, 0, len(result))
	for _, o := range result {
		step, err := b.lotStep(ctx, o.Symbol)
		if err != nil {
			return nil, err
		}
		price, err := decimal.NewFromString(o.Price)
		if err != nil {
			return nil, fmt.Errorf("failed to parse price of order %d: %w", o.OrderID, err)
		}
		orders = append(orders, broker.Order{
			ID:            formatOrderID(o.Symbol, o.OrderID),
			FIGI:          o.Symbol,
			Operation:     toOperation(o.Side),
			Status:        toStatus(o.Status),
			RequestedLots: toLots(o.OrigQuantity, step),
			ExecutedLots:  toLots(o.ExecutedQuantity, step),
			Type:          toOrderType(o.Type),
			Price:         price,
		})
	}
	return orders, nil
}

// CancelOrder implements order cancellation for Binance
func (b *BinanceClient) CancelOrder(ctx context.Context, orderID, _ string) error {
	symbol, id, err := parseOrderID(orderID)
	if err != nil {
		return err
	}

	_, err = b.client.NewCancelOrderService().
		Symbol(symbol).
		OrderID(id).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to cancel order: %w", err)
	}
	return nil
}

// PlaceMarketOrder implements broker.Client
func (b *BinanceClient) PlaceMarketOrder(ctx context.Context, symbol string, order broker.MarketOrder, _ string) (*broker.PlacedOrder, error) {
	return b.placeOrder(ctx, symbol, order.Operation, order.Lots, nil)
}

// PlaceLimitOrder implements broker.Client
func (b *BinanceClient) PlaceLimitOrder(ctx context.Context, symbol string, order broker.LimitOrder, _ string) (*broker.PlacedOrder, error) {
	return b.placeOrder(ctx, symbol, order.Operation, order.Lots, &order.Price)
}

func (b *BinanceClient) placeOrder(ctx context.Context, symbol, operation string, lots int, price *decimal.Decimal) (*broker.PlacedOrder, error) {
	side, err := toSide(operation)
	if err != nil {
		return nil, err
	}
	step, err := b.lotStep(ctx, symbol)
	if err != nil {
		return nil, err
	}

	orderService := b.client.NewCreateOrderService().
		Symbol(symbol).
		Side(side).
		Quantity(step.Mul(decimal.NewFromInt(int64(lots))).String())

	if price == nil {
		orderService.Type(binance.OrderTypeMarket)
	} else {
		orderService.Type(binance.OrderTypeLimit).
			TimeInForce(binance.TimeInForceTypeGTC).
			Price(price.String())
	}

	result, err := orderService.Do(ctx)
	if reason, ok := rejectReason(err); ok {
		return &broker.PlacedOrder{
			Operation:     operation,
			Status:        broker.StatusRejected,
			RejectReason:  reason,
			RequestedLots: lots,
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to place order: %w", err)
	}

	return &broker.PlacedOrder{
		ID:            formatOrderID(result.Symbol, result.OrderID),
		Operation:     operation,
		Status:        toStatus(result.Status),
		RequestedLots: toLots(result.OrigQuantity, step),
		ExecutedLots:  toLots(result.ExecutedQuantity, step),
	}, nil
}

// PortfolioCurrencies reports every non-empty asset balance
func (b *BinanceClient) PortfolioCurrencies(ctx context.Context, _ string) ([]broker.CurrencyBalance, error) {
	account, err := b.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get account info: %w", err)
	}

	balances := make([]broker.CurrencyBalance, 0, len(account.Balances))
	for _, balance := range account.Balances {
		free, err := decimal.NewFromString(balance.Free)
		if err != nil {
			return nil, fmt.Errorf("failed to parse balance: %w", err)
		}
		locked, err := decimal.NewFromString(balance.Locked)
		if err != nil {
			return nil, fmt.Errorf("failed to parse balance: %w", err)
		}
		total := free.Add(locked)
		if total.IsZero() {
			continue
		}
		balances = append(balances, broker.CurrencyBalance{
			Currency: balance.Asset,
			Balance:  total,
			Blocked:  locked,
		})
	}
	return balances, nil
}

// PortfolioPositions is always empty: spot holdings are asset balances
func (b *BinanceClient) PortfolioPositions(context.Context, string) ([]broker.Position, error) {
	return []broker.Position{}, nil
}

// InstrumentByFIGI looks up a trading pair by its symbol
func (b *BinanceClient) InstrumentByFIGI(ctx context.Context, symbol string) (*broker.Instrument, error) {
	s, err := b.symbolInfo(ctx, symbol)
	if err != nil || s == nil {
		return nil, err
	}

	instrument := &broker.Instrument{
		FIGI:     s.Symbol,
		Ticker:   s.BaseAsset,
		Name:     s.BaseAsset + "/" + s.QuoteAsset,
		Lot:      1,
		Currency: s.QuoteAsset,
		Type:     "Currency",
	}
	if filter := s.PriceFilter(); filter != nil {
		instrument.MinPriceIncrement, err = decimal.NewFromString(filter.TickSize)
		if err != nil {
			return nil, fmt.Errorf("failed to parse tick size of %s: %w", symbol, err)
		}
	}
	return instrument, nil
}

func (b *BinanceClient) symbolInfo(ctx context.Context, symbol string) (*binance.Symbol, error) {
	info, err := b.client.NewExchangeInfoService().Symbol(symbol).Do(ctx)
	var apiErr *common.APIError
	if errors.As(err, &apiErr) && apiErr.Code == codeInvalidSymbol {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get exchange info: %w", err)
	}

	for i := range info.Symbols {
		if info.Symbols[i].Symbol == symbol {
			return &info.Symbols[i], nil
		}
	}
	return nil, nil
}

// lotStep returns the quantity of one lot, cached per symbol.
func (b *BinanceClient) lotStep(ctx context.Context, symbol string) (decimal.Decimal, error) {
	b.mu.RLock()
	step, ok := b.steps[symbol]
	b.mu.RUnlock()
	if ok {
		return step, nil
	}

	s, err := b.symbolInfo(ctx, symbol)
	if err != nil {
		return decimal.Zero, err
	}
	if s == nil {
		return decimal.Zero, fmt.Errorf("symbol not found: %s", symbol)
	}
	filter := s.LotSizeFilter()
	if filter == nil {
		return decimal.Zero, fmt.Errorf("no LOT_SIZE filter for symbol: %s", symbol)
	}
	step, err = decimal.NewFromString(filter.StepSize)
	if err != nil || !step.IsPositive() {
		return decimal.Zero, fmt.Errorf("invalid LOT_SIZE step for symbol %s: %q", symbol, filter.StepSize)
	}

	b.mu.Lock()
	b.steps[symbol] = step
	b.mu.Unlock()
	return step, nil
}

func rejectReason(err error) (string, bool) {
	var apiErr *common.APIError
	if !errors.As(err, &apiErr) {
		return "", false
	}
	switch apiErr.Code {
	case codeNewOrderRejected, codeFilterFailure:
		return apiErr.Message, true
	default:
		return "", false
	}
}

func formatOrderID(symbol string, id int64) string {
	return symbol + ":" + strconv.FormatInt(id, 10)
}

func parseOrderID(orderID string) (string, int64, error) {
	symbol, raw, ok := strings.Cut(orderID, ":")
	if !ok || symbol == "" {
		return "", 0, fmt.Errorf("invalid order ID: %q", orderID)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("invalid order ID: %w", err)
	}
	return symbol, id, nil
}

func toLots(quantity string, step decimal.Decimal) int {
	q, err := decimal.NewFromString(quantity)
	if err != nil || step.IsZero() {
		return 0
	}
	return int(q.Div(step).IntPart())
}

func toSide(operation string) (binance.SideType, error) {
	switch operation {
	case "Buy":
		return binance.SideTypeBuy, nil
	case "Sell":
		return binance.SideTypeSell, nil
	default:
		return "", fmt.Errorf("invalid operation: %s", operation)
	}
}

func toOperation(side binance.SideType) string {
	if side == binance.SideTypeSell {
		return "Sell"
	}
	return "Buy"
}

func toOrderType(t binance.OrderType) string {
	if t == binance.OrderTypeMarket {
		return "Market"
	}
	return "Limit"
}

func toStatus(s binance.OrderStatusType) string {
	switch s {
	case binance.OrderStatusTypeNew:
		return "New"
	case binance.OrderStatusTypePartiallyFilled:
		return "PartiallyFill"
	case binance.OrderStatusTypeFilled:
		return "Fill"
	case binance.OrderStatusTypeCanceled, binance.OrderStatusTypeExpired:
		return "Cancelled"
	case binance.OrderStatusTypePendingCancel:
		return "PendingCancel"
	case binance.OrderStatusTypeRejected:
		return broker.StatusRejected
	default:
		return "PendingNew"
	}
}
