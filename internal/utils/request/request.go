package request

import (
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// Options configures a REST client for a broker endpoint.
type Options struct {
	BaseURL    string
	Token      string
	Timeout    time.Duration
	RetryCount int
}

// retryWait is the initial backoff between retried requests.
var retryWait = 100 * time.Millisecond

// New returns a resty client bound to the endpoint, authenticated with a
// bearer token. When RetryCount is positive, GET requests are retried on
// transport errors and 429/5xx answers. Other methods are sent once, so an
// order is never placed twice.
func New(opts Options) *resty.Client {
	c := resty.New().SetTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment, // 通用适配环境变量
	}).
		SetBaseURL(opts.BaseURL).
		SetHeader("Accept", "application/json").
		SetRetryCount(opts.RetryCount).
		SetRetryWaitTime(retryWait).
		AddRetryCondition(retryReads)

	if opts.Token != "" {
		c.SetAuthToken(opts.Token)
	}
	if opts.Timeout > 0 {
		c.SetTimeout(opts.Timeout)
	}
	return c
}

func retryReads(resp *resty.Response, err error) bool {
	if resp == nil || resp.Request == nil || resp.Request.Method != http.MethodGet {
		return false
	}
	if err != nil {
		return true
	}
	code := resp.StatusCode()
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}
