package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"

	"github.com/plugdex/plugdex/pkg/errors"
	"github.com/plugdex/plugdex/pkg/httputil"
	"github.com/plugdex/plugdex/pkg/observability"
)

// Quota regimes. Each gets its own admission limiter.
const (
	regimeSearch  = "search"
	regimeREST    = "rest"
	regimeGraphQL = "graphql"
)

// Concurrency bounds per regime. Search is the tightest budget
// (~10 requests/minute) and is effectively serialized.
const (
	searchConcurrency  = 1
	restConcurrency    = 10
	graphqlConcurrency = 4
)

const httpTimeout = 30 * time.Second

// Retry defaults: three retries after the initial attempt, waiting 5s,
// 10s, and 15s between attempts.
const (
	retryAttempts = 4
	retryStep     = 5 * time.Second
)

// TokenFunc supplies the API token on demand. Returning an error makes
// the first remote call fail with a fatal configuration error, which is
// what keeps offline paths token-free.
type TokenFunc func() (string, error)

// StaticToken wraps a fixed token as a TokenFunc.
func StaticToken(token string) TokenFunc {
	return func() (string, error) { return token, nil }
}

// Client is the remote data-access layer for the crawler.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      TokenFunc
	logger     *log.Logger

	searchLimiter  *httputil.Limiter
	restLimiter    *httputil.Limiter
	graphqlLimiter *httputil.Limiter
}

// NewClient creates a client. token is called lazily on the first
// request; logger may be nil for a silent client.
func NewClient(token TokenFunc, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Client{
		httpClient:     &http.Client{Timeout: httpTimeout},
		baseURL:        "https://api.github.com",
		token:          token,
		logger:         logger,
		searchLimiter:  httputil.NewLimiter(searchConcurrency),
		restLimiter:    httputil.NewLimiter(restConcurrency),
		graphqlLimiter: httputil.NewLimiter(graphqlConcurrency),
	}
}

// SetBaseURL overrides the API endpoint. Used by tests.
func (c *Client) SetBaseURL(u string) { c.baseURL = u }

func (c *Client) limiter(regime string) *httputil.Limiter {
	switch regime {
	case regimeSearch:
		return c.searchLimiter
	case regimeGraphQL:
		return c.graphqlLimiter
	default:
		return c.restLimiter
	}
}

// getJSON performs a GET under the given regime with retry, decoding the
// response into v.
func (c *Client) getJSON(ctx context.Context, regime, op, url string, v any) error {
	return c.limiter(regime).Do(ctx, func() error {
		return c.retry(ctx, regime, op, func() error {
			body, err := c.doRequest(ctx, regime, op, http.MethodGet, url, nil, "application/vnd.github.v3+json")
			if err != nil {
				return err
			}
			defer body.Close()
			return json.NewDecoder(body).Decode(v)
		})
	})
}

// retry applies the client's backoff policy and reports each retry to
// the remote hooks.
func (c *Client) retry(ctx context.Context, regime, op string, fn func() error) error {
	return httputil.RetryNotify(ctx, retryAttempts, retryStep, func(attempt int) {
		observability.Remote().OnRetry(ctx, regime, op, attempt)
		c.logger.Debug("retrying request", "op", op, "attempt", attempt)
	}, fn)
}

// postGraphQL issues a GraphQL query under the graphql regime with retry.
func (c *Client) postGraphQL(ctx context.Context, op, query string, v any) error {
	payload, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return err
	}
	return c.graphqlLimiter.Do(ctx, func() error {
		return c.retry(ctx, regimeGraphQL, op, func() error {
			// Fresh reader per attempt; a retried request must resend the body.
			body, err := c.doRequest(ctx, regimeGraphQL, op, http.MethodPost,
				c.baseURL+"/graphql", bytes.NewReader(payload), "application/json")
			if err != nil {
				return err
			}
			defer body.Close()
			return json.NewDecoder(body).Decode(v)
		})
	})
}

func (c *Client) doRequest(ctx context.Context, regime, op, method, url string, body io.Reader, accept string) (io.ReadCloser, error) {
	token, err := c.token()
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("Authorization", "Bearer "+token)
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/json")
	}

	observability.Remote().OnRequest(ctx, regime, op)
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &httputil.RetryableError{Err: errors.Wrap(errors.ErrCodeNetwork, err, "%s %s", method, op)}
	}
	observability.Remote().OnResponse(ctx, regime, op, resp.StatusCode, time.Since(start))

	if err := checkStatus(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp.Body, nil
}

// checkStatus maps a response status to the error taxonomy: 404 and
// plain 403 are permanent, rate-limit 403/429 and 5xx are retryable.
func checkStatus(resp *http.Response) error {
	code := resp.StatusCode
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return errors.New(errors.ErrCodeNotFound, "status 404")
	case code == http.StatusForbidden || code == http.StatusTooManyRequests:
		if retryAfter, ok := rateLimited(resp); ok {
			return &httputil.RetryableError{Err: &errors.RateLimitedError{RetryAfter: retryAfter}}
		}
		return errors.New(errors.ErrCodeForbidden, "status %d", code)
	case code >= 500:
		return &httputil.RetryableError{Err: errors.New(errors.ErrCodeNetwork, "status %d", code)}
	default:
		return errors.New(errors.ErrCodeNetwork, "status %d", code)
	}
}

// rateLimited reports whether a 403/429 is a recoverable quota
// exhaustion rather than a genuine permission failure.
func rateLimited(resp *http.Response) (retryAfter int, ok bool) {
	if v := resp.Header.Get("Retry-After"); v != "" {
		n, _ := strconv.Atoi(v)
		return n, true
	}
	if resp.Header.Get("X-RateLimit-Remaining") == "0" {
		return 0, true
	}
	return 0, false
}

// SafeCall runs fn and absorbs its failure: on error it logs and returns
// the zero value with ok=false. Every per-repository call site in the
// pipeline goes through this so one bad repository cannot abort a run.
func SafeCall[T any](logger *log.Logger, op string, fn func() (T, error)) (T, bool) {
	v, err := fn()
	if err != nil {
		if logger != nil {
			logger.Warn("remote call failed", "op", op, "err", err)
		}
		var zero T
		return zero, false
	}
	return v, true
}

func (c *Client) restURL(format string, args ...any) string {
	return c.baseURL + fmt.Sprintf(format, args...)
}
