package tinkoff

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/songzhibin97/brokerlink/internal/broker"
	"github.com/songzhibin97/brokerlink/internal/utils/request"
)

const testToken = "test-token"

type recorded struct {
	method string
	path   string
	query  map[string]string
	body   map[string]interface{}
	auth   string
}

// newTestClient starts a server answering every request with the given
// status and body, and records the last request it saw.
func newTestClient(t *testing.T, status int, respBody string) (*Client, *recorded) {
	t.Helper()
	rec := &recorded{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.method = r.Method
		rec.path = r.URL.Path
		rec.auth = r.Header.Get("Authorization")
		rec.query = map[string]string{}
		for k := range r.URL.Query() {
			rec.query[k] = r.URL.Query().Get(k)
		}
		raw, _ := io.ReadAll(r.Body)
		rec.body = nil
		if len(raw) > 0 {
			_ = json.Unmarshal(raw, &rec.body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(respBody))
	}))
	t.Cleanup(srv.Close)

	return New(request.Options{BaseURL: srv.URL, Token: testToken}, false), rec
}

func TestClient_ListAccounts(t *testing.T) {
	c, rec := newTestClient(t, http.StatusOK, `{"trackingId":"t1","status":"Ok","payload":{"accounts":[
		{"brokerAccountType":"Tinkoff","brokerAccountId":"A1"},
		{"brokerAccountType":"TinkoffIis","brokerAccountId":"A2"}]}}`)

	accounts, err := c.ListAccounts(context.Background())
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, broker.Account{Type: broker.AccountTypeBrokerage, ID: "A1"}, accounts[0])
	assert.Equal(t, broker.Account{Type: broker.AccountTypeIIS, ID: "A2"}, accounts[1])

	assert.Equal(t, http.MethodGet, rec.method)
	assert.Equal(t, "/user/accounts", rec.path)
	assert.Equal(t, "Bearer "+testToken, rec.auth)
}

func TestClient_ListOrders(t *testing.T) {
	c, rec := newTestClient(t, http.StatusOK, `{"trackingId":"t1","status":"Ok","payload":[
		{"orderId":"O1","figi":"BBG000B9XRY4","operation":"Buy","status":"New",
		 "requestedLots":3,"executedLots":1,"type":"Limit","price":101.5}]}`)

	orders, err := c.ListOrders(context.Background(), "A1")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "O1", orders[0].ID)
	assert.Equal(t, "New", orders[0].Status)
	assert.Equal(t, 3, orders[0].RequestedLots)
	assert.Equal(t, 1, orders[0].ExecutedLots)
	assert.True(t, decimal.RequireFromString("101.5").Equal(orders[0].Price))

	assert.Equal(t, "/orders", rec.path)
	assert.Equal(t, "A1", rec.query["brokerAccountId"])
}

func TestClient_ListOrdersWithoutAccount(t *testing.T) {
	c, rec := newTestClient(t, http.StatusOK, `{"trackingId":"t1","status":"Ok","payload":[]}`)

	orders, err := c.ListOrders(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, orders)
	_, sent := rec.query["brokerAccountId"]
	assert.False(t, sent)
}

func TestClient_CancelOrder(t *testing.T) {
	c, rec := newTestClient(t, http.StatusOK, `{"trackingId":"t1","status":"Ok","payload":{}}`)

	require.NoError(t, c.CancelOrder(context.Background(), "O1", "A1"))
	assert.Equal(t, http.MethodPost, rec.method)
	assert.Equal(t, "/orders/cancel", rec.path)
	assert.Equal(t, "O1", rec.query["orderId"])
	assert.Equal(t, "A1", rec.query["brokerAccountId"])
}

func TestClient_PlaceMarketOrder(t *testing.T) {
	c, rec := newTestClient(t, http.StatusOK, `{"trackingId":"t1","status":"Ok","payload":{
		"orderId":"O2","operation":"Buy","status":"Fill","requestedLots":12,"executedLots":12,
		"commission":{"currency":"RUB","value":1.25}}}`)

	placed, err := c.PlaceMarketOrder(context.Background(), "FIGI1", broker.MarketOrder{Lots: 12, Operation: "Buy"}, "A1")
	require.NoError(t, err)
	assert.Equal(t, "O2", placed.ID)
	assert.Equal(t, 12, placed.ExecutedLots)
	require.NotNil(t, placed.Commission)
	assert.True(t, decimal.RequireFromString("1.25").Equal(placed.Commission.Value))

	assert.Equal(t, "/orders/market-order", rec.path)
	assert.Equal(t, "FIGI1", rec.query["figi"])
	assert.EqualValues(t, 12, rec.body["lots"])
	assert.Equal(t, "Buy", rec.body["operation"])
	_, hasPrice := rec.body["price"]
	assert.False(t, hasPrice)
}

func TestClient_PlaceLimitOrderSendsNumericPrice(t *testing.T) {
	c, rec := newTestClient(t, http.StatusOK, `{"trackingId":"t1","status":"Ok","payload":{
		"orderId":"O3","operation":"Sell","status":"Rejected","rejectReason":"insufficient funds",
		"requestedLots":2,"executedLots":0}}`)

	placed, err := c.PlaceLimitOrder(context.Background(), "FIGI1",
		broker.LimitOrder{Lots: 2, Operation: "Sell", Price: decimal.RequireFromString("250.75")}, "A1")
	require.NoError(t, err)
	assert.Equal(t, broker.StatusRejected, placed.Status)
	assert.Equal(t, "insufficient funds", placed.RejectReason)

	assert.Equal(t, "/orders/limit-order", rec.path)
	assert.Equal(t, 250.75, rec.body["price"])
}

func TestClient_Portfolio(t *testing.T) {
	c, _ := newTestClient(t, http.StatusOK, `{"trackingId":"t1","status":"Ok","payload":{
		"currencies":[{"currency":"RUB","balance":1000.5,"blocked":10}],
		"positions":[{"figi":"FIGI1","ticker":"AAPL","instrumentType":"Stock","balance":5,"blocked":0,"lots":5,"name":"Apple"}]}}`)

	currencies, err := c.PortfolioCurrencies(context.Background(), "A1")
	require.NoError(t, err)
	require.Len(t, currencies, 1)
	assert.Equal(t, "RUB", currencies[0].Currency)
	assert.True(t, decimal.RequireFromString("1000.5").Equal(currencies[0].Balance))

	positions, err := c.PortfolioPositions(context.Background(), "A1")
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, "FIGI1", positions[0].FIGI)
	assert.Equal(t, "Stock", positions[0].InstrumentType)
	assert.Equal(t, 5, positions[0].Lots)
}

func TestClient_InstrumentByFIGI(t *testing.T) {
	c, rec := newTestClient(t, http.StatusOK, `{"trackingId":"t1","status":"Ok","payload":{
		"figi":"FIGI1","ticker":"SBER","minPriceIncrement":0.01,"lot":10,"currency":"RUB","type":"Stock"}}`)

	instrument, err := c.InstrumentByFIGI(context.Background(), "FIGI1")
	require.NoError(t, err)
	require.NotNil(t, instrument)
	assert.Equal(t, 10, instrument.Lot)
	assert.Equal(t, "RUB", instrument.Currency)
	assert.Equal(t, "/market/search/by-figi", rec.path)
	assert.Equal(t, "FIGI1", rec.query["figi"])
}

func TestClient_InstrumentNotFound(t *testing.T) {
	c, _ := newTestClient(t, http.StatusNotFound, `{"trackingId":"t1","status":"Error","payload":{"message":"Instrument not found","code":"NOT_FOUND"}}`)

	instrument, err := c.InstrumentByFIGI(context.Background(), "NOPE")
	require.NoError(t, err)
	assert.Nil(t, instrument)
}

func TestClient_ErrorEnvelope(t *testing.T) {
	c, _ := newTestClient(t, http.StatusInternalServerError, `{"trackingId":"t9","status":"Error","payload":{"message":"boom","code":"INTERNAL"}}`)

	_, err := c.ListAccounts(context.Background())
	require.Error(t, err)
	var rerr *ResponseError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, http.StatusInternalServerError, rerr.StatusCode)
	assert.Equal(t, "INTERNAL", rerr.Code)
	assert.Equal(t, "boom", rerr.Message)
	assert.Equal(t, "t9", rerr.TrackingID)
	assert.False(t, rerr.NotFound())
}

func TestClient_NonJSONError(t *testing.T) {
	c, _ := newTestClient(t, http.StatusUnauthorized, `unauthorized`)

	_, err := c.ListAccounts(context.Background())
	var rerr *ResponseError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, http.StatusUnauthorized, rerr.StatusCode)
}

func TestClient_Sandbox(t *testing.T) {
	t.Run("register", func(t *testing.T) {
		c, rec := newTestClient(t, http.StatusOK, `{"trackingId":"t1","status":"Ok","payload":{"brokerAccountType":"Tinkoff","brokerAccountId":"SB1"}}`)
		account, err := c.Register(context.Background(), broker.AccountTypeBrokerage)
		require.NoError(t, err)
		assert.Equal(t, "SB1", account.ID)
		assert.Equal(t, "/sandbox/register", rec.path)
		assert.Equal(t, "Tinkoff", rec.body["brokerAccountType"])
	})

	t.Run("set currency balance", func(t *testing.T) {
		c, rec := newTestClient(t, http.StatusOK, `{"trackingId":"t1","status":"Ok","payload":{}}`)
		err := c.SetCurrencyBalance(context.Background(),
			broker.CurrencyBalance{Currency: "RUB", Balance: decimal.NewFromInt(1000000)}, "SB1")
		require.NoError(t, err)
		assert.Equal(t, "/sandbox/currencies/balance", rec.path)
		assert.Equal(t, "SB1", rec.query["brokerAccountId"])
		assert.Equal(t, "RUB", rec.body["currency"])
		assert.EqualValues(t, 1000000, rec.body["balance"])
	})

	t.Run("clear", func(t *testing.T) {
		c, rec := newTestClient(t, http.StatusOK, `{"trackingId":"t1","status":"Ok","payload":{}}`)
		require.NoError(t, c.Clear(context.Background(), "SB1"))
		assert.Equal(t, "/sandbox/clear", rec.path)
		assert.Equal(t, "SB1", rec.query["brokerAccountId"])
	})
}

func TestNewSelectsEndpoint(t *testing.T) {
	live := New(request.Options{Token: testToken}, false)
	assert.Equal(t, DefaultBaseURL, live.http.BaseURL)

	sandbox := New(request.Options{Token: testToken}, true)
	assert.Equal(t, SandboxBaseURL, sandbox.http.BaseURL)
}
