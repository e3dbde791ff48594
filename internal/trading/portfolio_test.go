package trading

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/songzhibin97/brokerlink/internal/broker"
	"github.com/songzhibin97/brokerlink/internal/models"
)

func TestPortfolioReader_GetPortfolio(t *testing.T) {
	currencies := []broker.CurrencyBalance{
		{Currency: "RUB", Balance: decimal.NewFromInt(1000), Blocked: decimal.NewFromInt(10)},
		{Currency: "USD", Balance: decimal.NewFromInt(50)},
	}
	positions := []broker.Position{
		{FIGI: "FIGI1", Ticker: "SBER", InstrumentType: "Stock", Lots: 2, Balance: decimal.NewFromInt(20)},
		{FIGI: "FIGI2", InstrumentType: "Bond", Lots: 1, Balance: decimal.NewFromInt(1)},
		{FIGI: "FIGI3", InstrumentType: "Etf", Lots: 4, Balance: decimal.NewFromInt(4), Blocked: decimal.NewFromInt(1)},
	}

	tests := []struct {
		name       string
		currencies []broker.CurrencyBalance
		positions  []broker.Position
	}{
		{"empty", []broker.CurrencyBalance{}, []broker.Position{}},
		{"nil", nil, nil},
		{"only currencies", currencies, nil},
		{"only positions", nil, positions},
		{"both", currencies, positions},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &mockClient{}
			client.On("PortfolioCurrencies", mock.Anything, testAccountID).Return(tt.currencies, nil)
			client.On("PortfolioPositions", mock.Anything, testAccountID).Return(tt.positions, nil)

			portfolio, err := NewPortfolioReader(client, staticAccounts{}, discardLogger).GetPortfolio(context.Background())
			require.NoError(t, err)
			require.Len(t, portfolio.Positions, len(tt.currencies)+len(tt.positions))

			for i, p := range portfolio.Positions {
				_, isCurrency := p.(models.CurrencyPosition)
				assert.Equal(t, i < len(tt.currencies), isCurrency, "position %d", i)
			}
		})
	}
}

func TestPortfolioReader_Mapping(t *testing.T) {
	client := &mockClient{}
	client.On("PortfolioCurrencies", mock.Anything, testAccountID).Return([]broker.CurrencyBalance{
		{Currency: "RUB", Balance: decimal.NewFromInt(1000), Blocked: decimal.NewFromInt(10)},
	}, nil)
	client.On("PortfolioPositions", mock.Anything, testAccountID).Return([]broker.Position{
		{FIGI: "FIGI1", Ticker: "SBER", Name: "Sberbank", InstrumentType: "Stock", Lots: 2,
			Balance: decimal.NewFromInt(20), Blocked: decimal.NewFromInt(3)},
	}, nil)

	reader := NewPortfolioReader(client, staticAccounts{}, discardLogger)

	currencies, err := reader.GetCurrencies(context.Background())
	require.NoError(t, err)
	require.Len(t, currencies, 1)
	cur := currencies[0].(models.CurrencyPosition)
	assert.Equal(t, models.CurrencyRUB, cur.Currency)
	assert.True(t, decimal.NewFromInt(1000).Equal(cur.PositionBalance()))
	assert.True(t, decimal.NewFromInt(10).Equal(cur.PositionBlocked()))

	securities, err := reader.GetNonCurrencies(context.Background())
	require.NoError(t, err)
	require.Len(t, securities, 1)
	sec := securities[0].(models.SecurityPosition)
	assert.Equal(t, "FIGI1", sec.FIGI)
	assert.Equal(t, "SBER", sec.Ticker)
	assert.Equal(t, models.InstrumentTypeStock, sec.Type)
	assert.Equal(t, 2, sec.Lots)
	assert.True(t, decimal.NewFromInt(3).Equal(sec.Blocked))
}

func TestPortfolioReader_Errors(t *testing.T) {
	t.Run("currencies api error", func(t *testing.T) {
		cause := errors.New("boom")
		client := &mockClient{}
		client.On("PortfolioCurrencies", mock.Anything, testAccountID).Return(nil, cause)

		_, err := NewPortfolioReader(client, staticAccounts{}, discardLogger).GetPortfolio(context.Background())
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.ErrorIs(t, err, cause)
		client.AssertNotCalled(t, "PortfolioPositions", mock.Anything, mock.Anything)
	})

	t.Run("positions api error", func(t *testing.T) {
		cause := errors.New("boom")
		client := &mockClient{}
		client.On("PortfolioPositions", mock.Anything, testAccountID).Return(nil, cause)

		_, err := NewPortfolioReader(client, staticAccounts{}, discardLogger).GetNonCurrencies(context.Background())
		assert.ErrorIs(t, err, cause)
	})

	t.Run("unknown instrument type", func(t *testing.T) {
		client := &mockClient{}
		client.On("PortfolioPositions", mock.Anything, testAccountID).Return([]broker.Position{
			{FIGI: "FIGI9", InstrumentType: "Futures"},
		}, nil)

		_, err := NewPortfolioReader(client, staticAccounts{}, discardLogger).GetNonCurrencies(context.Background())
		var apiErr *APIError
		assert.ErrorAs(t, err, &apiErr)
	})

	t.Run("account not found", func(t *testing.T) {
		client := &mockClient{}
		reader := NewPortfolioReader(client, staticAccounts{err: ErrAccountNotFound}, discardLogger)

		_, err := reader.GetPortfolio(context.Background())
		assert.Equal(t, ErrAccountNotFound, err)
	})
}
