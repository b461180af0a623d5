// Package graph is the Microsoft Graph outbound adapter: an application-only
// client plus the directory and calendar ports built on it.
package graph

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/DaveBieleveld/TrackTime365/core/port/out"
	"github.com/DaveBieleveld/TrackTime365/pkg/httputil"
	"github.com/DaveBieleveld/TrackTime365/pkg/logger"
)

const (
	providerName = "msgraph"

	defaultBaseURL   = "https://graph.microsoft.com/v1.0"
	tokenURLTemplate = "https://login.microsoftonline.com/%s/oauth2/v2.0/token"
	graphScope       = "https://graph.microsoft.com/.default"

	// graphTimeFormat is the wall-clock layout Graph uses in request filters.
	graphTimeFormat = "2006-01-02T15:04:05"

	maxRateLimitRetries = 3
	defaultRetryAfter   = 5 * time.Second
)

// Config holds Graph client-credentials configuration.
type Config struct {
	TenantID     string
	ClientID     string
	ClientSecret string

	// BaseURL overrides the Graph endpoint, used by tests.
	BaseURL string
	// TokenURL overrides the token endpoint, used by tests.
	TokenURL string
	// StaticToken bypasses the token endpoint, used by tests.
	StaticToken string

	HTTPClient *http.Client
	Logger     *logger.Logger
}

// Client is an application-only Graph HTTP client. All requests go through a
// circuit breaker; 429 responses are retried with the server's Retry-After.
type Client struct {
	baseURL string
	http    *http.Client
	cb      *gobreaker.CircuitBreaker
	log     *logger.Logger

	tokenMu sync.Mutex
	cached  *oauth2.Token
	acquire func(ctx context.Context) (*oauth2.Token, error)

	// sleep is swapped out in tests.
	sleep func(time.Duration)
}

// NewClient creates a Graph client for the given application registration.
func NewClient(cfg *Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = httputil.GraphClient()
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Default()
	}

	var acquire func(ctx context.Context) (*oauth2.Token, error)
	if cfg.StaticToken != "" {
		static := &oauth2.Token{AccessToken: cfg.StaticToken}
		acquire = func(context.Context) (*oauth2.Token, error) { return static, nil }
	} else {
		tokenURL := cfg.TokenURL
		if tokenURL == "" {
			tokenURL = fmt.Sprintf(tokenURLTemplate, cfg.TenantID)
		}
		cc := &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     tokenURL,
			Scopes:       []string{graphScope},
		}
		acquire = func(ctx context.Context) (*oauth2.Token, error) {
			return cc.Token(context.WithValue(ctx, oauth2.HTTPClient, httpClient))
		}
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	cbSettings := gobreaker.Settings{
		Name:        "msgraph-api",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.ConsecutiveFailures > 5 ||
				(counts.Requests >= 10 && failureRatio >= 0.6)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker %s: state changed from %s to %s", name, from.String(), to.String())
		},
	}

	return &Client{
		baseURL: baseURL,
		http:    httpClient,
		acquire: acquire,
		cb:      gobreaker.NewCircuitBreaker(cbSettings),
		log:     log,
		sleep:   time.Sleep,
	}
}

// Authenticate forces a token acquisition so credential problems surface at
// run start instead of on the first mailbox.
func (c *Client) Authenticate(ctx context.Context) error {
	if _, err := c.token(ctx); err != nil {
		return out.NewProviderError(providerName, out.ProviderErrAuth, "token acquisition failed", err, false)
	}
	return nil
}

// token returns the cached access token, acquiring a fresh one under the
// caller's context when the cache is empty or expired.
func (c *Client) token(ctx context.Context) (*oauth2.Token, error) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()

	if c.cached.Valid() {
		return c.cached, nil
	}
	token, err := c.acquire(ctx)
	if err != nil {
		return nil, err
	}
	c.cached = token
	return token, nil
}

// getJSON issues an authorized GET and decodes the response into v.
// endpoint may be a path relative to the base URL or an absolute URL (Graph
// pagination links are absolute).
func (c *Client) getJSON(ctx context.Context, endpoint, prefer string, v any) error {
	url := endpoint
	if len(url) == 0 || url[0] == '/' {
		url = c.baseURL + endpoint
	}

	for attempt := 0; ; attempt++ {
		res, err := c.do(ctx, url, prefer)
		if err != nil {
			return err
		}

		switch {
		case res.status == http.StatusOK:
			if err := json.Unmarshal(res.body, v); err != nil {
				return out.NewProviderError(providerName, out.ProviderErrServer, "failed to decode response", err, false)
			}
			return nil

		case res.status == http.StatusTooManyRequests:
			if attempt >= maxRateLimitRetries {
				return out.NewProviderError(providerName, out.ProviderErrRateLimit,
					fmt.Sprintf("rate limited after %d retries", maxRateLimitRetries), nil, true)
			}
			delay := retryAfterDelay(res.header)
			c.log.Warn("rate limited by provider, retrying in %s (attempt %d/%d)", delay, attempt+1, maxRateLimitRetries)
			c.sleep(delay)

		default:
			return wrapStatusError(res.status)
		}
	}
}

type response struct {
	status int
	header http.Header
	body   []byte
}

// do executes one request through the circuit breaker. Transport failures
// and server errors count against the breaker; client errors do not.
func (c *Client) do(ctx context.Context, url, prefer string) (*response, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, out.NewProviderError(providerName, out.ProviderErrAuth, "token acquisition failed", err, false)
	}

	result, err := c.cb.Execute(func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, out.NewProviderError(providerName, out.ProviderErrNetwork, "failed to create request", err, false)
		}
		token.SetAuthHeader(req)
		req.Header.Set("Accept", "application/json")
		if prefer != "" {
			req.Header.Set("Prefer", prefer)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, out.NewProviderError(providerName, out.ProviderErrNetwork, "request failed", err, true)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, out.NewProviderError(providerName, out.ProviderErrNetwork, "failed to read response", err, true)
		}

		res := &response{status: resp.StatusCode, header: resp.Header, body: body}
		if resp.StatusCode >= http.StatusInternalServerError {
			return res, wrapStatusError(resp.StatusCode)
		}
		return res, nil
	})
	if err != nil {
		if _, ok := err.(*out.ProviderError); ok {
			return nil, err
		}
		// Breaker open or half-open rejection.
		return nil, out.NewProviderError(providerName, out.ProviderErrServer, "circuit breaker rejected request", err, true)
	}
	return result.(*response), nil
}

// retryAfterDelay honors the server's Retry-After header, in whole seconds.
func retryAfterDelay(header http.Header) time.Duration {
	if v := header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultRetryAfter
}

func wrapStatusError(status int) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return out.NewProviderError(providerName, out.ProviderErrAuth,
			fmt.Sprintf("request rejected with status %d", status), nil, false)
	case status == http.StatusNotFound:
		return out.NewProviderError(providerName, out.ProviderErrNotFound, "resource not found", nil, false)
	case status >= http.StatusInternalServerError:
		return out.NewProviderError(providerName, out.ProviderErrServer,
			fmt.Sprintf("server error with status %d", status), nil, true)
	default:
		return out.NewProviderError(providerName, out.ProviderErrServer,
			fmt.Sprintf("unexpected status %d", status), nil, false)
	}
}
