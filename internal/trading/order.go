package trading

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/songzhibin97/brokerlink/internal/broker"
	"github.com/songzhibin97/brokerlink/internal/models"
)

// Compile-time interface check.
var _ OrderService = (*OrderGateway)(nil)

// OrderGateway forwards order operations to the broker for the resolved account
type OrderGateway struct {
	client   broker.Client
	accounts AccountService
	auditor  Auditor
	logger   *slog.Logger
}

// NewOrderGateway creates an OrderGateway. A nil auditor logs events.
func NewOrderGateway(client broker.Client, accounts AccountService, auditor Auditor, logger *slog.Logger) *OrderGateway {
	if logger == nil {
		logger = slog.Default()
	}
	if auditor == nil {
		auditor = NewLoggingAuditor(logger)
	}
	return &OrderGateway{
		client:   client,
		accounts: accounts,
		auditor:  auditor,
		logger:   logger,
	}
}

// GetActiveOrders implements OrderService
func (g *OrderGateway) GetActiveOrders(ctx context.Context) ([]models.Order, error) {
	g.logger.InfoContext(ctx, "Getting orders list")

	account, err := g.accounts.GetTradingAccount(ctx)
	if err != nil {
		return nil, err
	}

	orders, err := g.client.ListOrders(ctx, account.ID)
	if err != nil {
		return nil, apiError("failed to get orders list", err)
	}
	g.logger.InfoContext(ctx, "Got orders", "count", len(orders))

	result := make([]models.Order, 0, len(orders))
	for _, o := range orders {
		order, err := mapOrder(o)
		if err != nil {
			return nil, apiError("failed to map order "+o.ID, err)
		}
		result = append(result, order)
	}
	return result, nil
}

// CancelOrders implements OrderService. Every cancelable order is attempted
// even after a failure; the returned slice has one entry per input order and
// the error joins all failures.
func (g *OrderGateway) CancelOrders(ctx context.Context, orders []models.Order) ([]CancelResult, error) {
	g.logger.InfoContext(ctx, "Cancelling orders", "count", len(orders))

	account, err := g.accounts.GetTradingAccount(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]CancelResult, 0, len(orders))
	var errs []error
	for _, order := range orders {
		event := models.NewTradingEvent("", account.ID)
		event.OrderID = order.ID
		event.FIGI = order.FIGI
		event.Operation = order.Operation

		if !order.Status.Cancelable() {
			g.logger.InfoContext(ctx, "Order can't be cancelled", "order_id", order.ID, "status", order.Status)
			event.Type = models.EventOrderCancelSkipped
			event.Reason = fmt.Sprintf("status %s is not cancelable", order.Status)
			fireEvent(ctx, g.auditor, g.logger, event)
			results = append(results, CancelResult{OrderID: order.ID, Outcome: CancelOutcomeSkipped})
			continue
		}

		g.logger.InfoContext(ctx, "Cancelling order", "order_id", order.ID)
		if err := g.client.CancelOrder(ctx, order.ID, account.ID); err != nil {
			g.logger.ErrorContext(ctx, "Failed to cancel order", "order_id", order.ID, "err", err)
			event.Type = models.EventOrderCancelFailed
			event.Reason = err.Error()
			fireEvent(ctx, g.auditor, g.logger, event)
			errs = append(errs, fmt.Errorf("order %s: %w", order.ID, err))
			results = append(results, CancelResult{OrderID: order.ID, Outcome: CancelOutcomeFailed, Err: err})
			continue
		}

		g.logger.InfoContext(ctx, "Cancelled order", "order_id", order.ID)
		event.Type = models.EventOrderCancelled
		fireEvent(ctx, g.auditor, g.logger, event)
		results = append(results, CancelResult{OrderID: order.ID, Outcome: CancelOutcomeCancelled})
	}

	if len(errs) > 0 {
		return results, apiError("failed to cancel orders", errors.Join(errs...))
	}
	return results, nil
}

// Buy implements OrderService
func (g *OrderGateway) Buy(ctx context.Context, figi string, lots int, price *decimal.Decimal) (models.Order, error) {
	g.logger.InfoContext(ctx, "Buying", "figi", figi, "lots", lots, "price", price)
	return g.placeOrder(ctx, figi, lots, price, models.OperationBuy)
}

// Sell implements OrderService
func (g *OrderGateway) Sell(ctx context.Context, figi string, lots int, price *decimal.Decimal) (models.Order, error) {
	g.logger.InfoContext(ctx, "Selling", "figi", figi, "lots", lots, "price", price)
	return g.placeOrder(ctx, figi, lots, price, models.OperationSell)
}

// placeOrder places a market order when price is nil and a limit order otherwise.
func (g *OrderGateway) placeOrder(ctx context.Context, figi string, lots int, price *decimal.Decimal, op models.Operation) (models.Order, error) {
	account, err := g.accounts.GetTradingAccount(ctx)
	if err != nil {
		return models.Order{}, err
	}

	var (
		placed  *broker.PlacedOrder
		typ     models.OrderType
		orderOp = string(op)
	)
	if price == nil {
		typ = models.OrderTypeMarket
		placed, err = g.client.PlaceMarketOrder(ctx, figi, broker.MarketOrder{Lots: lots, Operation: orderOp}, account.ID)
	} else {
		typ = models.OrderTypeLimit
		placed, err = g.client.PlaceLimitOrder(ctx, figi, broker.LimitOrder{Lots: lots, Operation: orderOp, Price: *price}, account.ID)
	}
	if err != nil {
		return models.Order{}, apiError(fmt.Sprintf("failed to send %q order", op), err)
	}
	if placed == nil {
		return models.Order{}, apiError(fmt.Sprintf("failed to send %q order", op), errors.New("empty placement result"))
	}

	event := models.NewTradingEvent(models.EventOrderPlaced, account.ID)
	event.OrderID = placed.ID
	event.FIGI = figi
	event.Operation = op
	event.Lots = lots
	event.Price = price

	if placed.Status == broker.StatusRejected {
		g.logger.WarnContext(ctx, "The order is rejected", "figi", figi, "reason", placed.RejectReason)
		event.Type = models.EventOrderRejected
		event.Reason = placed.RejectReason
		fireEvent(ctx, g.auditor, g.logger, event)
		return models.Order{}, &OrderRejectedError{Reason: placed.RejectReason}
	}

	// the broker holds the order even when its answer can't be mapped, so
	// the event is recorded before the mapping error is returned
	order, err := mapPlacedOrder(placed, figi, typ, price)
	if err != nil {
		event.Reason = fmt.Sprintf("status %s: %v", placed.Status, err)
	}
	fireEvent(ctx, g.auditor, g.logger, event)
	if err != nil {
		return models.Order{}, apiError("failed to map placed order "+placed.ID, err)
	}
	g.logger.InfoContext(ctx, "The order is placed", "order_id", order.ID, "status", order.Status)
	return order, nil
}
