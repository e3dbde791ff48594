package trading

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/songzhibin97/brokerlink/internal/broker"
	"github.com/songzhibin97/brokerlink/internal/models"
)

func mapOperation(s string) (models.Operation, error) {
	switch op := models.Operation(s); op {
	case models.OperationBuy, models.OperationSell:
		return op, nil
	default:
		return "", fmt.Errorf("unknown operation: %q", s)
	}
}

func mapOrderType(s string) (models.OrderType, error) {
	switch t := models.OrderType(s); t {
	case models.OrderTypeMarket, models.OrderTypeLimit:
		return t, nil
	default:
		return "", fmt.Errorf("unknown order type: %q", s)
	}
}

// mapOrder converts an active order as listed by the broker.
func mapOrder(src broker.Order) (models.Order, error) {
	op, err := mapOperation(src.Operation)
	if err != nil {
		return models.Order{}, err
	}
	status, err := models.ParseOrderStatus(src.Status)
	if err != nil {
		return models.Order{}, err
	}
	typ, err := mapOrderType(src.Type)
	if err != nil {
		return models.Order{}, err
	}

	dest := models.Order{
		ID:            src.ID,
		FIGI:          src.FIGI,
		Operation:     op,
		Status:        status,
		LotsRequested: src.RequestedLots,
		LotsFilled:    src.ExecutedLots,
		Type:          typ,
	}
	if !src.Price.IsZero() {
		price := src.Price
		dest.Price = &price
	}
	return dest, nil
}

// mapPlacedOrder converts a placement result. The response does not echo
// figi, order type or price, so those come from the request.
func mapPlacedOrder(src *broker.PlacedOrder, figi string, typ models.OrderType, price *decimal.Decimal) (models.Order, error) {
	op, err := mapOperation(src.Operation)
	if err != nil {
		return models.Order{}, err
	}
	status, err := models.ParseOrderStatus(src.Status)
	if err != nil {
		return models.Order{}, err
	}

	dest := models.Order{
		ID:            src.ID,
		FIGI:          figi,
		Operation:     op,
		Status:        status,
		LotsRequested: src.RequestedLots,
		LotsFilled:    src.ExecutedLots,
		Type:          typ,
		Price:         price,
	}
	if src.Commission != nil {
		commission := src.Commission.Value
		dest.Commission = &commission
	}
	return dest, nil
}

func mapCurrencyPosition(src broker.CurrencyBalance) models.CurrencyPosition {
	return models.CurrencyPosition{
		Currency: models.Currency(src.Currency),
		Balance:  src.Balance,
		Blocked:  src.Blocked,
	}
}

func mapSecurityPosition(src broker.Position) (models.SecurityPosition, error) {
	typ, err := models.ParseInstrumentType(src.InstrumentType)
	if err != nil {
		return models.SecurityPosition{}, err
	}
	return models.SecurityPosition{
		FIGI:    src.FIGI,
		Ticker:  src.Ticker,
		Name:    src.Name,
		Type:    typ,
		Lots:    src.Lots,
		Balance: src.Balance,
		Blocked: src.Blocked,
	}, nil
}

func mapInstrument(src broker.Instrument) (models.Instrument, error) {
	typ, err := models.ParseInstrumentType(src.Type)
	if err != nil {
		return models.Instrument{}, err
	}
	return models.Instrument{
		FIGI:              src.FIGI,
		Ticker:            src.Ticker,
		Name:              src.Name,
		Currency:          models.Currency(src.Currency),
		LotSize:           src.Lot,
		MinPriceIncrement: src.MinPriceIncrement,
		Type:              typ,
	}, nil
}
