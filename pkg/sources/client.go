package sources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// maxBodyBytes caps how much of a mirror response is read
const maxBodyBytes = 5 << 20

// Fetcher is the HTTP-capable fetch primitive the gateway is built on.
// Non-2xx statuses are returned as data, not as errors.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (body []byte, status int, err error)
}

// Client fetches mirror pages, pacing requests per host
type Client struct {
	client   *http.Client
	logger   *logrus.Logger
	limit    rate.Limit
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewClient creates a mirror client. Timeouts come from the caller's context so
// the same client serves both probes and content fetches.
func NewClient(config *Config) *Client {
	limit := rate.Inf
	if config.RequestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(config.RequestsPerMinute))
	}
	return &Client{
		client:   &http.Client{},
		logger:   config.Logger,
		limit:    limit,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (c *Client) limiterFor(host string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.limiters[host]
	if !ok {
		l = rate.NewLimiter(c.limit, 1)
		c.limiters[host] = l
	}
	return l
}

// Fetch performs a GET against rawURL and returns the body and status code
func (c *Client) Fetch(ctx context.Context, rawURL string) ([]byte, int, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, 0, NewSourceError(ErrCodeTransport, rawURL, "invalid url", err)
	}

	if err := c.limiterFor(u.Host).Wait(ctx); err != nil {
		return nil, 0, classify(ctx, u.Host, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, NewSourceError(ErrCodeTransport, u.Host, "error creating request", err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	req.Header.Set("User-Agent", "mindshare-tracker/1.0")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.WithError(err).WithField("endpoint", u.Host).Debug("Mirror request failed")
		return nil, 0, classify(ctx, u.Host, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, resp.StatusCode, classify(ctx, u.Host, fmt.Errorf("reading body: %w", err))
	}

	c.logger.WithFields(logrus.Fields{
		"endpoint":    u.Host,
		"status_code": resp.StatusCode,
		"bytes":       len(body),
		"duration":    time.Since(start).String(),
	}).Debug("Received mirror response")

	return body, resp.StatusCode, nil
}

// classify maps a transport failure to a coded SourceError
func classify(ctx context.Context, endpoint string, err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return NewSourceError(ErrCodeTimeout, endpoint, "request timed out", err)
	case errors.Is(err, context.Canceled) || ctx.Err() == context.Canceled:
		return NewSourceError(ErrCodeCanceled, endpoint, "request canceled", err)
	default:
		return NewSourceError(ErrCodeTransport, endpoint, "request failed", err)
	}
}
