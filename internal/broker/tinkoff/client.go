// Package tinkoff implements the broker client over the Tinkoff Invest
// OpenAPI REST endpoints, for both the live and the sandbox environment.
package tinkoff

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"

	"github.com/songzhibin97/brokerlink/internal/broker"
	"github.com/songzhibin97/brokerlink/internal/utils/request"
)

const (
	DefaultBaseURL = "https://api-invest.tinkoff.ru/openapi"
	SandboxBaseURL = "https://api-invest.tinkoff.ru/openapi/sandbox"

	statusOk       = "Ok"
	codeNotFound   = "NOT_FOUND"
	accountIDParam = "brokerAccountId"
)

// Compile-time interface checks.
var (
	_ broker.Client  = (*Client)(nil)
	_ broker.Sandbox = (*Client)(nil)
)

// Client talks to the OpenAPI over a resty client.
type Client struct {
	http *resty.Client
}

// New builds a client for the live or the sandbox environment. An empty
// opts.BaseURL selects the environment's public endpoint.
func New(opts request.Options, sandbox bool) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
		if sandbox {
			opts.BaseURL = SandboxBaseURL
		}
	}
	return NewClient(request.New(opts))
}

// NewClient wraps an already configured resty client.
func NewClient(httpClient *resty.Client) *Client {
	return &Client{http: httpClient}
}

// ResponseError is returned when the API answers with a non-Ok envelope or
// an HTTP error status.
type ResponseError struct {
	StatusCode int
	TrackingID string
	Code       string
	Message    string
}

func (e *ResponseError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tinkoff api error: status %d, code %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("tinkoff api error: status %d: %s", e.StatusCode, e.Message)
}

// NotFound reports whether the API said the requested entity does not exist.
func (e *ResponseError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound || e.Code == codeNotFound
}

type envelope struct {
	TrackingID string          `json:"trackingId"`
	Status     string          `json:"status"`
	Payload    json.RawMessage `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (c *Client) do(ctx context.Context, method, path string, query map[string]string, body, out interface{}) error {
	req := c.http.R().SetContext(ctx)
	for k, v := range query {
		if v != "" {
			req.SetQueryParam(k, v)
		}
	}
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		if resp.IsError() {
			return &ResponseError{StatusCode: resp.StatusCode(), Message: resp.Status()}
		}
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if resp.IsError() || env.Status != statusOk {
		rerr := &ResponseError{StatusCode: resp.StatusCode(), TrackingID: env.TrackingID}
		var p errorPayload
		if err := json.Unmarshal(env.Payload, &p); err == nil {
			rerr.Message, rerr.Code = p.Message, p.Code
		}
		return rerr
	}

	if out == nil || len(env.Payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Payload, out); err != nil {
		return fmt.Errorf("failed to decode payload: %w", err)
	}
	return nil
}

// ListAccounts implements broker.Client
func (c *Client) ListAccounts(ctx context.Context) ([]broker.Account, error) {
	var payload struct {
		Accounts []broker.Account `json:"accounts"`
	}
	if err := c.do(ctx, resty.MethodGet, "/user/accounts", nil, nil, &payload); err != nil {
		return nil, err
	}
	return payload.Accounts, nil
}

// ListOrders implements broker.Client
func (c *Client) ListOrders(ctx context.Context, accountID string) ([]broker.Order, error) {
	var orders []broker.Order
	query := map[string]string{accountIDParam: accountID}
	if err := c.do(ctx, resty.MethodGet, "/orders", query, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// CancelOrder implements broker.Client
func (c *Client) CancelOrder(ctx context.Context, orderID, accountID string) error {
	query := map[string]string{"orderId": orderID, accountIDParam: accountID}
	return c.do(ctx, resty.MethodPost, "/orders/cancel", query, nil, nil)
}

type limitOrderRequest struct {
	Lots      int         `json:"lots"`
	Operation string      `json:"operation"`
	Price     json.Number `json:"price"`
}

// PlaceMarketOrder implements broker.Client
func (c *Client) PlaceMarketOrder(ctx context.Context, figi string, order broker.MarketOrder, accountID string) (*broker.PlacedOrder, error) {
	var placed broker.PlacedOrder
	query := map[string]string{"figi": figi, accountIDParam: accountID}
	if err := c.do(ctx, resty.MethodPost, "/orders/market-order", query, order, &placed); err != nil {
		return nil, err
	}
	return &placed, nil
}

// PlaceLimitOrder implements broker.Client
func (c *Client) PlaceLimitOrder(ctx context.Context, figi string, order broker.LimitOrder, accountID string) (*broker.PlacedOrder, error) {
	body := limitOrderRequest{
		Lots:      order.Lots,
		Operation: order.Operation,
		Price:     json.Number(order.Price.String()),
	}
	var placed broker.PlacedOrder
	query := map[string]string{"figi": figi, accountIDParam: accountID}
	if err := c.do(ctx, resty.MethodPost, "/orders/limit-order", query, body, &placed); err != nil {
		return nil, err
	}
	return &placed, nil
}

// PortfolioCurrencies implements broker.Client
func (c *Client) PortfolioCurrencies(ctx context.Context, accountID string) ([]broker.CurrencyBalance, error) {
	var payload struct {
		Currencies []broker.CurrencyBalance `json:"currencies"`
	}
	query := map[string]string{accountIDParam: accountID}
	if err := c.do(ctx, resty.MethodGet, "/portfolio/currencies", query, nil, &payload); err != nil {
		return nil, err
	}
	return payload.Currencies, nil
}

// PortfolioPositions implements broker.Client
func (c *Client) PortfolioPositions(ctx context.Context, accountID string) ([]broker.Position, error) {
	var payload struct {
		Positions []broker.Position `json:"positions"`
	}
	query := map[string]string{accountIDParam: accountID}
	if err := c.do(ctx, resty.MethodGet, "/portfolio", query, nil, &payload); err != nil {
		return nil, err
	}
	return payload.Positions, nil
}

// InstrumentByFIGI implements broker.Client
func (c *Client) InstrumentByFIGI(ctx context.Context, figi string) (*broker.Instrument, error) {
	var instrument broker.Instrument
	err := c.do(ctx, resty.MethodGet, "/market/search/by-figi", map[string]string{"figi": figi}, nil, &instrument)
	var rerr *ResponseError
	if errors.As(err, &rerr) && rerr.NotFound() {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if instrument.FIGI == "" {
		return nil, nil
	}
	return &instrument, nil
}
