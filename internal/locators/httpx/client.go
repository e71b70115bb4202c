package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"kura/internal/logging"
	"kura/internal/services"
)

const (
	defaultTimeout = 20 * time.Second
	userAgent      = "kura/1.0"
	maxBodyBytes   = 8 << 20
)

// Options configures a Client. Zero values select defaults: no pacing and no
// caching.
type Options struct {
	Name              string
	Timeout           time.Duration
	RequestsPerSecond float64
	CacheTTL          time.Duration
	Header            http.Header
	HTTPClient        *http.Client
	Logger            *slog.Logger
}

// Client performs paced, cached JSON requests for one source.
type Client struct {
	name    string
	http    *http.Client
	limiter *rate.Limiter
	cache   *cache.Cache
	header  http.Header
	logger  *slog.Logger
}

// New constructs a Client.
func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	c := &Client{
		name:    strings.TrimSpace(opts.Name),
		http:    httpClient,
		limiter: rate.NewLimiter(limit, 1),
		header:  opts.Header.Clone(),
		logger:  logging.NewComponentLogger(opts.Logger, "httpx").With(logging.String(logging.FieldLocator, opts.Name)),
	}
	if opts.CacheTTL > 0 {
		c.cache = cache.New(opts.CacheTTL, 2*opts.CacheTTL)
	}
	return c
}

// GetJSON fetches endpoint and decodes the body into out.
func (c *Client) GetJSON(ctx context.Context, endpoint string, out any) error {
	body, err := c.fetch(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	return c.decode(endpoint, body, out)
}

// PostJSON sends payload as JSON and decodes the response into out. Responses
// are cached by endpoint and payload.
func (c *Client) PostJSON(ctx context.Context, endpoint string, payload any, out any) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return services.Wrap(services.ErrValidation, c.name, "encode request", endpoint, err)
	}
	body, err := c.fetch(ctx, http.MethodPost, endpoint, encoded)
	if err != nil {
		return err
	}
	return c.decode(endpoint, body, out)
}

// Raw returns the response body of a GET, using the cache.
func (c *Client) Raw(ctx context.Context, endpoint string) ([]byte, error) {
	return c.fetch(ctx, http.MethodGet, endpoint, nil)
}

func (c *Client) decode(endpoint string, body []byte, out any) error {
	if err := json.Unmarshal(body, out); err != nil {
		return services.Wrap(services.ErrTransient, c.name, "decode response", endpoint, err)
	}
	return nil
}

func (c *Client) fetch(ctx context.Context, method, endpoint string, payload []byte) ([]byte, error) {
	key := method + " " + endpoint
	if payload != nil {
		key += " " + string(payload)
	}
	if c.cache != nil {
		if cached, ok := c.cache.Get(key); ok {
			if body, ok := cached.([]byte); ok {
				c.logger.Debug("response cache hit", logging.String("endpoint", endpoint))
				return body, nil
			}
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, services.Wrap(services.ErrTransient, c.name, "rate limit wait", endpoint, err)
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, c.name, "build request", endpoint, err)
	}
	for name, values := range c.header {
		for _, value := range values {
			req.Header.Add(name, value)
		}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, c.name, "request", endpoint, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, c.name, "read body", endpoint, err)
	}
	c.logger.Debug("request complete",
		logging.String("endpoint", endpoint),
		logging.Int("status", resp.StatusCode),
		logging.Duration("elapsed", time.Since(start)))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, services.Wrap(services.ErrNotFound, c.name, "request", endpoint, nil)
	case resp.StatusCode >= http.StatusMultipleChoices:
		return nil, services.Wrap(services.ErrTransient, c.name, "request",
			fmt.Sprintf("%s: http %d: %s", endpoint, resp.StatusCode, snippet(body)), nil)
	}

	if c.cache != nil {
		c.cache.Set(key, body, cache.DefaultExpiration)
	}
	return body, nil
}

func snippet(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) > 200 {
		return text[:200] + "..."
	}
	return text
}
