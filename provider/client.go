// Package provider is the HTTP plumbing shared by all upstream services.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/angas/skyphase/metrics"
	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
)

var (
	// ErrUnavailable covers transport errors, 5xx, 429 and open circuits.
	ErrUnavailable = errors.New("upstream unavailable")
	// ErrStatus is returned for other non 2xx responses.
	ErrStatus = errors.New("unexpected status code")
	// ErrDecode is returned when the body can't be decoded.
	ErrDecode = errors.New("malformed response")
)

type Options struct {
	Name             string // Used in logs and metric labels, e.g. "forecast"
	BaseURL          string
	Timeout          time.Duration
	RetryCount       int
	RetryWaitTime    time.Duration
	RetryMaxWaitTime time.Duration
	// Consecutive failures before the circuit opens, default: 5
	BreakerThreshold uint32
	// How long the circuit stays open before probing again, default: 30s
	BreakerTimeout time.Duration
	UserAgent      string
}

type Client struct {
	name   string
	logger *slog.Logger
	http   *resty.Client
	cb     *gobreaker.CircuitBreaker
}

func New(opts Options) *Client {
	logger := slog.Default().With("module", "provider", slog.String("upstream", opts.Name))

	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.BreakerThreshold == 0 {
		opts.BreakerThreshold = 5
	}
	if opts.BreakerTimeout <= 0 {
		opts.BreakerTimeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "skyphase"
	}

	hc := resty.New().
		SetBaseURL(opts.BaseURL).
		SetTimeout(opts.Timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", opts.UserAgent).
		SetRetryCount(opts.RetryCount).
		SetRetryWaitTime(opts.RetryWaitTime).
		SetRetryMaxWaitTime(opts.RetryMaxWaitTime).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= 500
		})

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        opts.Name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     opts.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.BreakerThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", slog.String("from", from.String()), slog.String("to", to.String()))
			metrics.UpstreamCircuitState.WithLabelValues(name).Set(float64(to))
		},
	})

	return &Client{
		name:   opts.Name,
		logger: logger,
		http:   hc,
		cb:     cb,
	}
}

// GetJSON sends a GET request for path with the query parameters and decodes the body into out.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, out any) error {
	start := time.Now()

	result, err := c.cb.Execute(func() (interface{}, error) {
		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParamsFromValues(query).
			Get(path)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode() == http.StatusTooManyRequests || resp.StatusCode() >= 500 {
			return nil, fmt.Errorf("%s: %s", c.name, resp.Status())
		}
		// A 4xx is our fault, not the upstream's, so it must not trip the breaker.
		return resp, nil
	})

	if err != nil {
		status := "error"
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			status = "circuit_open"
		}
		metrics.RecordUpstreamRequest(c.name, status, time.Since(start))
		c.logger.Debug("upstream request failed", slog.String("path", path), slog.Any("error", err))
		return fmt.Errorf("%w: %s %s: %v", ErrUnavailable, c.name, path, err)
	}

	resp := result.(*resty.Response)
	metrics.RecordUpstreamRequest(c.name, strconv.Itoa(resp.StatusCode()), time.Since(start))

	if resp.IsError() {
		return fmt.Errorf("%w: %s %s: %s", ErrStatus, c.name, path, resp.Status())
	}

	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrDecode, c.name, path, err)
	}

	return nil
}

// State exposes the circuit breaker state, e.g. for health checks.
func (c *Client) State() string {
	return c.cb.State().String()
}
