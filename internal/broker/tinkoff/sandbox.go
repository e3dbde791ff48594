package tinkoff

import (
	"context"
	"encoding/json"

	"github.com/go-resty/resty/v2"

	"github.com/songzhibin97/brokerlink/internal/broker"
)

// Register implements broker.Sandbox
func (c *Client) Register(ctx context.Context, accountType broker.AccountType) (*broker.Account, error) {
	var body interface{}
	if accountType != "" {
		body = map[string]string{"brokerAccountType": string(accountType)}
	}
	var account broker.Account
	if err := c.do(ctx, resty.MethodPost, "/sandbox/register", nil, body, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

type currencyBalanceRequest struct {
	Currency string      `json:"currency"`
	Balance  json.Number `json:"balance"`
}

// SetCurrencyBalance implements broker.Sandbox
func (c *Client) SetCurrencyBalance(ctx context.Context, balance broker.CurrencyBalance, accountID string) error {
	body := currencyBalanceRequest{
		Currency: balance.Currency,
		Balance:  json.Number(balance.Balance.String()),
	}
	query := map[string]string{accountIDParam: accountID}
	return c.do(ctx, resty.MethodPost, "/sandbox/currencies/balance", query, body, nil)
}

// Clear implements broker.Sandbox
func (c *Client) Clear(ctx context.Context, accountID string) error {
	query := map[string]string{accountIDParam: accountID}
	return c.do(ctx, resty.MethodPost, "/sandbox/clear", query, nil, nil)
}
