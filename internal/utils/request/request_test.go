package request

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCountingServer(t *testing.T, status int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "Bearer t.token", r.Header.Get("Authorization"))
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestNew_RetriesOnlyGet(t *testing.T) {
	old := retryWait
	retryWait = time.Millisecond
	t.Cleanup(func() { retryWait = old })

	tests := []struct {
		name     string
		status   int
		method   string
		attempts int32
	}{
		{"get on 503", http.StatusServiceUnavailable, http.MethodGet, 3},
		{"get on 429", http.StatusTooManyRequests, http.MethodGet, 3},
		{"get on 404", http.StatusNotFound, http.MethodGet, 1},
		{"post on 503", http.StatusServiceUnavailable, http.MethodPost, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, hits := newCountingServer(t, tt.status)
			c := New(Options{BaseURL: srv.URL, Token: "t.token", Timeout: time.Second, RetryCount: 2})

			resp, err := c.R().Execute(tt.method, "/orders/market-order")
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode())
			assert.Equal(t, tt.attempts, hits.Load())
		})
	}
}

func TestNew_NoRetriesByDefault(t *testing.T) {
	srv, hits := newCountingServer(t, http.StatusBadGateway)
	c := New(Options{BaseURL: srv.URL, Token: "t.token"})

	resp, err := c.R().Get("/portfolio")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode())
	assert.Equal(t, int32(1), hits.Load())
}
