package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// TradingAccount 交易账户
type TradingAccount struct {
	ID string `json:"id"`
}

// Currency ISO-like currency code as reported by the broker (RUB, USD, ...)
type Currency string

const (
	CurrencyRUB Currency = "RUB"
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
)

// InstrumentType 金融工具类型
type InstrumentType string

const (
	InstrumentTypeStock    InstrumentType = "Stock"
	InstrumentTypeBond     InstrumentType = "Bond"
	InstrumentTypeEtf      InstrumentType = "Etf"
	InstrumentTypeCurrency InstrumentType = "Currency"
)

// ParseInstrumentType maps a broker instrument type name onto the local enum.
func ParseInstrumentType(s string) (InstrumentType, error) {
	switch t := InstrumentType(s); t {
	case InstrumentTypeStock, InstrumentTypeBond, InstrumentTypeEtf, InstrumentTypeCurrency:
		return t, nil
	default:
		return "", fmt.Errorf("unknown instrument type: %q", s)
	}
}

// Instrument 金融工具静态信息
type Instrument struct {
	FIGI              string          `json:"figi"`
	Ticker            string          `json:"ticker,omitempty"`
	Name              string          `json:"name,omitempty"`
	Currency          Currency        `json:"currency,omitempty"` // 为空表示券商未提供
	LotSize           int             `json:"lot_size"`
	MinPriceIncrement decimal.Decimal `json:"min_price_increment"`
	Type              InstrumentType  `json:"type"`
}

// PortfolioPosition is either a CurrencyPosition or a SecurityPosition.
type PortfolioPosition interface {
	// PositionBalance returns the total amount held, including blocked.
	PositionBalance() decimal.Decimal
	// PositionBlocked returns the amount reserved by active orders.
	PositionBlocked() decimal.Decimal
}

// CurrencyPosition 货币持仓
type CurrencyPosition struct {
	Currency Currency        `json:"currency"`
	Balance  decimal.Decimal `json:"balance"`
	Blocked  decimal.Decimal `json:"blocked"`
}

func (p CurrencyPosition) PositionBalance() decimal.Decimal { return p.Balance }
func (p CurrencyPosition) PositionBlocked() decimal.Decimal { return p.Blocked }

// SecurityPosition 非货币持仓
type SecurityPosition struct {
	FIGI    string          `json:"figi"`
	Ticker  string          `json:"ticker,omitempty"`
	Name    string          `json:"name,omitempty"`
	Type    InstrumentType  `json:"type"`
	Lots    int             `json:"lots"`
	Balance decimal.Decimal `json:"balance"`
	Blocked decimal.Decimal `json:"blocked"`
}

func (p SecurityPosition) PositionBalance() decimal.Decimal { return p.Balance }
func (p SecurityPosition) PositionBlocked() decimal.Decimal { return p.Blocked }

// Portfolio 投资组合，货币持仓在前
type Portfolio struct {
	Positions []PortfolioPosition `json:"positions"`
}
