package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/price-radar/price-radar/internal/breaker"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultBaseDelay = 1 * time.Second
	defaultMaxDelay  = 60 * time.Second
)

// RetryStrategy selects how the delay between attempts grows.
type RetryStrategy string

const (
	// RetryExponential doubles the delay each attempt: 1s, 2s, 4s, 8s...
	RetryExponential RetryStrategy = "exponential"
	// RetryLinear grows the delay linearly: 1s, 2s, 3s, 4s...
	RetryLinear RetryStrategy = "linear"
	// RetryFixed uses the base delay for every attempt
	RetryFixed RetryStrategy = "fixed"
)

// Config holds the retry policy for one client.
type Config struct {
	Timeout        time.Duration // per-attempt request timeout
	MaxRetries     int
	Strategy       RetryStrategy
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	RetryStatuses  []int
	RequestsPerSec float64 // outbound pacing; 0 disables
}

// DefaultConfig returns the standard retry policy.
func DefaultConfig() Config {
	return Config{
		Timeout:       defaultTimeout,
		MaxRetries:    3,
		Strategy:      RetryExponential,
		BaseDelay:     defaultBaseDelay,
		MaxDelay:      defaultMaxDelay,
		RetryStatuses: []int{http.StatusTooManyRequests, 500, 502, 503, 504},
	}
}

// RequestError carries the target and last HTTP status of a failed request.
type RequestError struct {
	Target     string
	URL        string
	StatusCode int
	Attempts   int
	Err        error
}

func (e *RequestError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s request failed (HTTP %d after %d attempts): %s", e.Target, e.StatusCode, e.Attempts, e.URL)
	}
	return fmt.Sprintf("%s request failed after %d attempts: %v", e.Target, e.Attempts, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// attemptResult is the outcome of a single bounded request.
type attemptResult struct {
	body       json.RawMessage
	status     int
	retryAfter time.Duration // parsed Retry-After on 429, 0 otherwise
	err        error
}

// Client is a GET-only HTTP client with timeout, backoff retry and a
// per-target circuit breaker in front of every call.
type Client struct {
	target  string
	config  Config
	breaker *breaker.Breaker
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger

	// sleep is injectable for tests
	sleep func(ctx context.Context, d time.Duration) error
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient sets a custom underlying http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.http = h
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// New creates a resilient client for one target (usually a provider slug).
// The breaker is owned by the caller so that collector-level skip decisions
// and client-level gating observe the same state.
func New(target string, config Config, br *breaker.Breaker, opts ...Option) *Client {
	def := DefaultConfig()
	if config.Timeout <= 0 {
		config.Timeout = def.Timeout
	}
	if config.BaseDelay <= 0 {
		config.BaseDelay = def.BaseDelay
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = def.MaxDelay
	}
	if config.Strategy == "" {
		config.Strategy = RetryExponential
	}
	if len(config.RetryStatuses) == 0 {
		config.RetryStatuses = def.RetryStatuses
	}

	c := &Client{
		target:  target,
		config:  config,
		breaker: br,
		http:    &http.Client{Timeout: config.Timeout},
		logger:  slog.Default(),
		sleep:   sleepCtx,
	}
	if config.RequestsPerSec > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(config.RequestsPerSec), 1)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get performs a GET request with retries and returns the response body.
// The body is guaranteed to be valid JSON. A refused call returns a
// *breaker.OpenError without touching the network.
func (c *Client) Get(ctx context.Context, url string) (json.RawMessage, error) {
	if !c.breaker.CanExecute() {
		return nil, &breaker.OpenError{Name: c.target}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	var last attemptResult

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		res := c.attempt(ctx, url)
		if res.err == nil && res.status == http.StatusOK {
			c.breaker.RecordSuccess()
			return res.body, nil
		}

		// An explicit cancellation is not a provider failure.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		last = res

		if res.err == nil && !c.retryableStatus(res.status) {
			// Non-retryable status (e.g. 404): fail immediately.
			c.breaker.RecordFailure()
			return nil, &RequestError{
				Target:     c.target,
				URL:        url,
				StatusCode: res.status,
				Attempts:   attempt + 1,
				Err:        fmt.Errorf("HTTP %d", res.status),
			}
		}

		if attempt == c.config.MaxRetries {
			break
		}

		delay := c.delayFor(attempt)
		if res.status == http.StatusTooManyRequests && res.retryAfter > 0 {
			delay = res.retryAfter
		}

		c.logger.Warn("request failed, retrying",
			slog.String("target", c.target),
			slog.Int("status", res.status),
			slog.Int("attempt", attempt+1),
			slog.Int("max_retries", c.config.MaxRetries),
			slog.Duration("delay", delay))

		if err := c.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}

	c.breaker.RecordFailure()

	err := last.err
	if err == nil {
		err = fmt.Errorf("HTTP %d", last.status)
	}
	return nil, &RequestError{
		Target:     c.target,
		URL:        url,
		StatusCode: last.status,
		Attempts:   c.config.MaxRetries + 1,
		Err:        err,
	}
}

// attempt performs one bounded request.
func (c *Client) attempt(ctx context.Context, url string) attemptResult {
	reqCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return attemptResult{err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return attemptResult{err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		res := attemptResult{status: resp.StatusCode}
		if resp.StatusCode == http.StatusTooManyRequests {
			if ra := resp.Header.Get("Retry-After"); ra != "" {
				if secs, perr := strconv.ParseFloat(ra, 64); perr == nil && secs > 0 {
					res.retryAfter = time.Duration(secs * float64(time.Second))
				}
			}
		}
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return res
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return attemptResult{err: fmt.Errorf("failed to read response body: %w", err)}
	}
	if !json.Valid(body) {
		return attemptResult{err: errors.New("response body is not valid JSON")}
	}
	return attemptResult{body: json.RawMessage(body), status: resp.StatusCode}
}

func (c *Client) retryableStatus(status int) bool {
	for _, s := range c.config.RetryStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// delayFor computes the backoff before the next attempt.
func (c *Client) delayFor(attempt int) time.Duration {
	var delay time.Duration
	switch c.config.Strategy {
	case RetryLinear:
		delay = c.config.BaseDelay * time.Duration(attempt+1)
	case RetryFixed:
		delay = c.config.BaseDelay
	default: // exponential
		const maxShift = 16
		shift := attempt
		if shift > maxShift {
			shift = maxShift
		}
		delay = c.config.BaseDelay * time.Duration(1<<uint(shift))
	}
	if delay > c.config.MaxDelay {
		delay = c.config.MaxDelay
	}
	return delay
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
