package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Operation 买卖方向
type Operation string

const (
	OperationBuy  Operation = "Buy"
	OperationSell Operation = "Sell"
)

// OrderType 订单类型
type OrderType string

const (
	OrderTypeMarket OrderType = "Market"
	OrderTypeLimit  OrderType = "Limit"
)

// OrderStatus 订单状态
type OrderStatus string

const (
	OrderStatusNew            OrderStatus = "New"
	OrderStatusPartiallyFill  OrderStatus = "PartiallyFill"
	OrderStatusFill           OrderStatus = "Fill"
	OrderStatusCancelled      OrderStatus = "Cancelled"
	OrderStatusReplaced       OrderStatus = "Replaced"
	OrderStatusPendingCancel  OrderStatus = "PendingCancel"
	OrderStatusRejected       OrderStatus = "Rejected"
	OrderStatusPendingReplace OrderStatus = "PendingReplace"
	OrderStatusPendingNew     OrderStatus = "PendingNew"
)

var orderStatuses = map[OrderStatus]struct{}{
	OrderStatusNew:            {},
	OrderStatusPartiallyFill:  {},
	OrderStatusFill:           {},
	OrderStatusCancelled:      {},
	OrderStatusReplaced:       {},
	OrderStatusPendingCancel:  {},
	OrderStatusRejected:       {},
	OrderStatusPendingReplace: {},
	OrderStatusPendingNew:     {},
}

// ParseOrderStatus maps a broker status name onto the local enum.
func ParseOrderStatus(s string) (OrderStatus, error) {
	if _, ok := orderStatuses[OrderStatus(s)]; !ok {
		return "", fmt.Errorf("unknown order status: %q", s)
	}
	return OrderStatus(s), nil
}

// Cancelable reports whether an order in this status may still be cancelled.
func (s OrderStatus) Cancelable() bool {
	switch s {
	case OrderStatusPendingNew, OrderStatusNew, OrderStatusPartiallyFill:
		return true
	default:
		return false
	}
}

// Order 订单
type Order struct {
	ID            string           `json:"id"`
	FIGI          string           `json:"figi"`
	Operation     Operation        `json:"operation"`
	Status        OrderStatus      `json:"status"`
	LotsRequested int              `json:"lots_requested"`
	LotsFilled    int              `json:"lots_filled"`
	Type          OrderType        `json:"type"`
	Price         *decimal.Decimal `json:"price,omitempty"`      // 市价单为空
	Commission    *decimal.Decimal `json:"commission,omitempty"` // 仅下单回报中提供
}
