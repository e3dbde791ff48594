// Package broker defines the contract of the remote broker client that the
// trading services forward to, together with the broker-side data model.
package broker

import (
	"context"

	"github.com/shopspring/decimal"
)

// Client defines the remote operations a broker backend must supply
type Client interface {
	// ListAccounts returns every brokerage account visible to the token
	ListAccounts(ctx context.Context) ([]Account, error)

	// ListOrders returns active orders of an account
	ListOrders(ctx context.Context, accountID string) ([]Order, error)

	// CancelOrder cancels an active order
	CancelOrder(ctx context.Context, orderID, accountID string) error

	// PlaceMarketOrder places an order executed at the market price
	PlaceMarketOrder(ctx context.Context, figi string, order MarketOrder, accountID string) (*PlacedOrder, error)

	// PlaceLimitOrder places an order with a price limit
	PlaceLimitOrder(ctx context.Context, figi string, order LimitOrder, accountID string) (*PlacedOrder, error)

	// PortfolioCurrencies returns currency balances of an account
	PortfolioCurrencies(ctx context.Context, accountID string) ([]CurrencyBalance, error)

	// PortfolioPositions returns non-currency positions of an account
	PortfolioPositions(ctx context.Context, accountID string) ([]Position, error)

	// InstrumentByFIGI looks up an instrument; nil without error means not found
	InstrumentByFIGI(ctx context.Context, figi string) (*Instrument, error)
}

// Sandbox is implemented by clients connected to a simulation environment
type Sandbox interface {
	// Register creates a sandbox account of the given type
	Register(ctx context.Context, accountType AccountType) (*Account, error)

	// SetCurrencyBalance overwrites a currency balance of a sandbox account
	SetCurrencyBalance(ctx context.Context, balance CurrencyBalance, accountID string) error

	// Clear removes all positions and orders of a sandbox account
	Clear(ctx context.Context, accountID string) error
}

// AccountType 账户类型
type AccountType string

const (
	AccountTypeBrokerage AccountType = "Tinkoff"
	AccountTypeIIS       AccountType = "TinkoffIis" // 个人投资账户
)

// Account 券商账户
type Account struct {
	Type AccountType `json:"brokerAccountType"`
	ID   string      `json:"brokerAccountId"`
}

// Order 活动订单
type Order struct {
	ID            string          `json:"orderId"`
	FIGI          string          `json:"figi"`
	Operation     string          `json:"operation"`
	Status        string          `json:"status"`
	RequestedLots int             `json:"requestedLots"`
	ExecutedLots  int             `json:"executedLots"`
	Type          string          `json:"type"`
	Price         decimal.Decimal `json:"price"`
}

// MarketOrder 市价单请求
type MarketOrder struct {
	Lots      int    `json:"lots"`
	Operation string `json:"operation"`
}

// LimitOrder 限价单请求
type LimitOrder struct {
	Lots      int             `json:"lots"`
	Operation string          `json:"operation"`
	Price     decimal.Decimal `json:"price"`
}

// MoneyAmount 金额
type MoneyAmount struct {
	Currency string          `json:"currency"`
	Value    decimal.Decimal `json:"value"`
}

// PlacedOrder 下单回报
type PlacedOrder struct {
	ID            string       `json:"orderId"`
	Operation     string       `json:"operation"`
	Status        string       `json:"status"`
	RejectReason  string       `json:"rejectReason"`
	Message       string       `json:"message"`
	RequestedLots int          `json:"requestedLots"`
	ExecutedLots  int          `json:"executedLots"`
	Commission    *MoneyAmount `json:"commission"`
}

// StatusRejected is the placement status of an order refused by the broker
const StatusRejected = "Rejected"

// CurrencyBalance 货币余额
type CurrencyBalance struct {
	Currency string          `json:"currency"`
	Balance  decimal.Decimal `json:"balance"`
	Blocked  decimal.Decimal `json:"blocked"`
}

// Position 非货币持仓
type Position struct {
	FIGI           string          `json:"figi"`
	Ticker         string          `json:"ticker"`
	ISIN           string          `json:"isin"`
	Name           string          `json:"name"`
	InstrumentType string          `json:"instrumentType"`
	Balance        decimal.Decimal `json:"balance"`
	Blocked        decimal.Decimal `json:"blocked"`
	Lots           int             `json:"lots"`
}

// Instrument 金融工具
type Instrument struct {
	FIGI              string          `json:"figi"`
	Ticker            string          `json:"ticker"`
	ISIN              string          `json:"isin"`
	Name              string          `json:"name"`
	MinPriceIncrement decimal.Decimal `json:"minPriceIncrement"`
	Lot               int             `json:"lot"`
	Currency          string          `json:"currency"` // 可能为空
	Type              string          `json:"type"`
}
