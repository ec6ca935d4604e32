// Package currency provides cross-rates to the base currency and price
// string parsing.
package currency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/price-radar/price-radar/internal/cache"
)

// BaseCurrency is the currency every price is converted to for storage.
const BaseCurrency = "TRY"

const (
	// ratesCacheKey holds the code→rate map
	ratesCacheKey = "exchange_rates"
	// DefaultRatesTTL is how long fetched rates stay cached
	DefaultRatesTTL = 5 * time.Minute

	upstreamTimeout = 3 * time.Second
)

// fallbackRates is returned whenever the upstream cannot be used.
var fallbackRates = map[string]float64{
	"USD": 34.20,
	"EUR": 37.50,
	"GBP": 43.10,
	"TRY": 1.0,
}

// Service resolves exchange rates to the base currency. Rates mean
// "1 unit of code = N units of base".
type Service struct {
	upstreamURL string
	cache       cache.Cache
	ttl         time.Duration
	http        *http.Client
	logger      *slog.Logger
}

// Option configures the service.
type Option func(*Service)

// WithHTTPClient sets a custom upstream HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(s *Service) {
		s.http = h
	}
}

// WithRatesTTL sets the cache duration for fetched rates.
func WithRatesTTL(ttl time.Duration) Option {
	return func(s *Service) {
		s.ttl = ttl
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// New creates a currency service fetching rates from upstreamURL.
func New(upstreamURL string, store cache.Cache, opts ...Option) *Service {
	s := &Service{
		upstreamURL: upstreamURL,
		cache:       store,
		ttl:         DefaultRatesTTL,
		http:        &http.Client{Timeout: upstreamTimeout},
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetExchangeRates returns the current code→rate map. Cached rates win;
// otherwise the upstream is queried and the result cached. Any upstream
// failure falls back to the fixed table (and is not cached).
func (s *Service) GetExchangeRates(ctx context.Context) map[string]float64 {
	var cached map[string]float64
	if err := cache.GetJSON(ctx, s.cache, ratesCacheKey, &cached); err == nil && len(cached) > 0 {
		return cached
	} else if err != nil && !errors.Is(err, cache.ErrMiss) {
		s.logger.Warn("rates cache read failed", slog.String("error", err.Error()))
	}

	rates, err := s.fetchRates(ctx)
	if err != nil {
		s.logger.Warn("exchange rate upstream failed, using fallback",
			slog.String("error", err.Error()))
		return copyRates(fallbackRates)
	}

	if err := cache.SetJSON(ctx, s.cache, ratesCacheKey, rates, s.ttl); err != nil {
		s.logger.Warn("rates cache write failed", slog.String("error", err.Error()))
	}
	return rates
}

// Convert converts amount from code into the base currency, rounded to two
// decimals. An unknown code returns the input unchanged with a warning.
func (s *Service) Convert(ctx context.Context, amount float64, code string) float64 {
	upper := normalizeCode(code)
	if upper == BaseCurrency {
		return amount
	}

	rates := s.GetExchangeRates(ctx)
	rate, ok := rates[upper]
	if !ok || rate == 0 {
		s.logger.Warn("no exchange rate for currency", slog.String("currency", upper))
		return amount
	}
	return Round2(amount * rate)
}

// fetchRates queries the upstream and derives rates to the base currency.
// The upstream publishes rates relative to its own base B; when TRY is in
// the table, rate[X→TRY] = rate[B→TRY] / rate[B→X].
func (s *Service) fetchRates(ctx context.Context) (map[string]float64, error) {
	reqCtx, cancel := context.WithTimeout(ctx, upstreamTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, s.upstreamURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rate upstream returned HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read rate response: %w", err)
	}

	var payload struct {
		Rates map[string]float64 `json:"rates"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("malformed rate response: %w", err)
	}

	baseToTRY, ok := payload.Rates[BaseCurrency]
	if !ok || baseToTRY == 0 {
		return nil, errors.New("rate table does not include " + BaseCurrency)
	}

	derived := make(map[string]float64, len(payload.Rates))
	for code, rate := range payload.Rates {
		if rate == 0 {
			continue
		}
		derived[normalizeCode(code)] = baseToTRY / rate
	}
	derived[BaseCurrency] = 1.0
	return derived, nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Round2 rounds to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func copyRates(src map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
