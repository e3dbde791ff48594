package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventType 审计事件类型
type EventType string

const (
	EventOrderPlaced        EventType = "order_placed"
	EventOrderRejected      EventType = "order_rejected"
	EventOrderCancelled     EventType = "order_cancelled"
	EventOrderCancelSkipped EventType = "order_cancel_skipped"
	EventOrderCancelFailed  EventType = "order_cancel_failed"
)

// TradingEvent 交易审计事件
type TradingEvent struct {
	ID        string           `json:"id"`
	Type      EventType        `json:"type"`
	AccountID string           `json:"account_id"`
	OrderID   string           `json:"order_id,omitempty"`
	FIGI      string           `json:"figi,omitempty"`
	Operation Operation        `json:"operation,omitempty"`
	Lots      int              `json:"lots,omitempty"`
	Price     *decimal.Decimal `json:"price,omitempty"`
	Reason    string           `json:"reason,omitempty"`
	Time      time.Time        `json:"time"`
}

// NewTradingEvent stamps a fresh event with an id and the current time.
func NewTradingEvent(typ EventType, accountID string) TradingEvent {
	return TradingEvent{
		ID:        uuid.NewString(),
		Type:      typ,
		AccountID: accountID,
		Time:      time.Now().UTC(),
	}
}

func (e TradingEvent) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "TradingEvent{id=%s, type=%s, account=%s", e.ID, e.Type, e.AccountID)
	if e.OrderID != "" {
		fmt.Fprintf(&b, ", order=%s", e.OrderID)
	}
	if e.FIGI != "" {
		fmt.Fprintf(&b, ", figi=%s", e.FIGI)
	}
	if e.Operation != "" {
		fmt.Fprintf(&b, ", operation=%s", e.Operation)
	}
	if e.Lots != 0 {
		fmt.Fprintf(&b, ", lots=%d", e.Lots)
	}
	if e.Price != nil {
		fmt.Fprintf(&b, ", price=%s", e.Price.String())
	}
	if e.Reason != "" {
		fmt.Fprintf(&b, ", reason=%q", e.Reason)
	}
	fmt.Fprintf(&b, ", time=%s}", e.Time.Format(time.RFC3339))
	return b.String()
}
