// Package download fetches project archives from the upstream origin.
package download

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-cleanhttp"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/webview-iframe/internal/infrastructure/logging"
)

// ErrUpstreamUnavailable is returned while the circuit breaker is open.
var ErrUpstreamUnavailable = errors.New("upstream unavailable")

// StatusError reports a non-2xx upstream response.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d", e.Code)
}

// Config controls the download client. Zero Timeout and RetryCount leave the
// transfer unbounded and unretried.
type Config struct {
	Timeout    time.Duration
	RetryCount int
	UserAgent  string
}

// Client downloads archives to local files.
type Client struct {
	resty   *resty.Client
	breaker *gobreaker.CircuitBreaker
	logger  *logging.Logger
}

// NewClient creates a download client.
func NewClient(cfg Config, logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.Named("download")

	r := resty.New().
		SetTransport(cleanhttp.DefaultPooledTransport()).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount)
	if cfg.UserAgent != "" {
		r.SetHeader("User-Agent", cfg.UserAgent)
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "upstream-download",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: upstreamHealthy,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &Client{resty: r, breaker: breaker, logger: logger}
}

// upstreamHealthy reports whether err leaves the upstream's health intact.
// Client errors and cancellation say nothing about the upstream.
func upstreamHealthy(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	var status *StatusError
	if errors.As(err, &status) {
		return status.Code < 500
	}
	return false
}

// Fetch downloads url into the file at dest, creating parent directories as
// needed. A partial or rejected download leaves no file behind.
func (c *Client) Fetch(ctx context.Context, url, dest string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("download cancelled: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.resty.R().
			SetContext(ctx).
			SetOutput(dest).
			Get(url)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
			return nil, &StatusError{Code: resp.StatusCode()}
		}
		return resp, nil
	})
	if err != nil {
		_ = os.Remove(dest)
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("download %s: %w", url, ErrUpstreamUnavailable)
		}
		return fmt.Errorf("download %s failed: %w", url, err)
	}

	resp := result.(*resty.Response)
	c.logger.Debug("Downloaded archive",
		zap.String("url", url),
		zap.String("path", dest),
		zap.Int("status", resp.StatusCode()),
		zap.Duration("elapsed", resp.Time()),
	)
	return nil
}
