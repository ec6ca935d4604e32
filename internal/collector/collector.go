// Package collector fans out over all registered providers in parallel,
// fetching each through a resilient client and normalizing responses into
// uniform records.
package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/price-radar/price-radar/internal/breaker"
	"github.com/price-radar/price-radar/internal/cache"
	"github.com/price-radar/price-radar/internal/httpclient"
	"github.com/price-radar/price-radar/internal/metrics"
	"github.com/price-radar/price-radar/internal/provider"
)

const (
	// DefaultCacheTTL is how long per-provider record sets stay cached
	DefaultCacheTTL = 5 * time.Minute

	// reportsKey is the bounded log of recent collection reports
	reportsKey = "collector:reports"
	// reportsKept is how many recent reports the log retains
	reportsKept = 20
)

// cacheKey returns the cache key for one provider's record set.
func cacheKey(slug string) string {
	return "collector:products:" + slug
}

// Config holds collector settings.
type Config struct {
	// BaseURL is the shared provider API host
	BaseURL string
	// Endpoints maps provider slug to its path under BaseURL
	Endpoints map[string]string
	// CacheTTL is the per-provider record cache duration
	CacheTTL time.Duration
	// Client is the retry policy applied to every provider client
	Client httpclient.Config
}

// Collector fetches all providers in parallel.
type Collector struct {
	config   Config
	registry *provider.Registry
	cache    cache.Cache
	breakers *breaker.Registry
	logger   *slog.Logger

	mu      sync.Mutex
	clients map[string]*httpclient.Client

	// injectable clock for tests
	now func() time.Time
}

// Option configures the collector.
type Option func(*Collector)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Collector) {
		c.logger = l
	}
}

// New creates a collector over the given adapter registry.
func New(config Config, registry *provider.Registry, store cache.Cache, breakers *breaker.Registry, opts ...Option) *Collector {
	if config.CacheTTL <= 0 {
		config.CacheTTL = DefaultCacheTTL
	}
	c := &Collector{
		config:   config,
		registry: registry,
		cache:    store,
		breakers: breakers,
		logger:   slog.Default(),
		clients:  make(map[string]*httpclient.Client),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// client returns (creating if needed) the resilient client for one provider.
func (c *Collector) client(slug string) *httpclient.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cl, ok := c.clients[slug]; ok {
		return cl
	}
	cl := httpclient.New(slug, c.config.Client, c.breakers.Get(slug), httpclient.WithLogger(c.logger))
	c.clients[slug] = cl
	return cl
}

func (c *Collector) providerURL(slug string) string {
	return c.config.BaseURL + c.config.Endpoints[slug]
}

// CollectAll fetches every registered provider (or the given subset)
// concurrently and returns the aggregate report. Provider failures are
// isolated; siblings are never cancelled on error.
func (c *Collector) CollectAll(ctx context.Context, slugs ...string) *Report {
	start := c.now()

	if len(slugs) == 0 {
		slugs = c.registry.Slugs()
	}

	c.logger.Info("starting collection",
		slog.Int("providers", len(slugs)))

	results := make([]ProviderResult, len(slugs))
	var wg sync.WaitGroup
	for i, slug := range slugs {
		wg.Add(1)
		go func(i int, slug string) {
			defer wg.Done()
			results[i] = c.collectOne(ctx, slug)
		}(i, slug)
	}
	wg.Wait()

	report := &Report{
		ID:          uuid.New().String(),
		Results:     results,
		CollectedAt: start,
	}
	report.Stats = computeStats(results, c.now().Sub(start))

	c.logger.Info("collection completed",
		slog.Int("successful", report.Stats.SuccessfulProviders),
		slog.Int("failed", report.Stats.FailedProviders),
		slog.Int("skipped", report.Stats.SkippedProviders),
		slog.Int("products", report.Stats.TotalProducts),
		slog.Float64("total_ms", report.Stats.TotalTimeMs))

	c.logReport(ctx, report)
	c.updateBreakerGauges()

	return report
}

// CollectSingle fetches one provider by slug.
func (c *Collector) CollectSingle(ctx context.Context, slug string) ProviderResult {
	if !c.registry.Has(slug) {
		return ProviderResult{
			ProviderSlug: slug,
			Success:      false,
			ErrorMessage: fmt.Sprintf("unknown provider: %s", slug),
			FetchedAt:    c.now(),
		}
	}
	res := c.collectOne(ctx, slug)
	c.updateBreakerGauges()
	return res
}

// collectOne runs the cache → fetch → adapt path for a single provider.
func (c *Collector) collectOne(ctx context.Context, slug string) ProviderResult {
	start := c.now()
	result := ProviderResult{
		ProviderSlug: slug,
		FetchedAt:    start,
	}

	// Cache lookup first.
	var cached []provider.Record
	err := cache.GetJSON(ctx, c.cache, cacheKey(slug), &cached)
	if err == nil {
		c.logger.Debug("cache hit", slog.String("provider", slug))
		metrics.ProviderRequestsTotal.WithLabelValues(slug, "cache_hit").Inc()
		result.Success = true
		result.FromCache = true
		result.Records = cached
		result.ResponseTimeMs = 0
		return result
	}
	if !errors.Is(err, cache.ErrMiss) {
		// A broken cache is not fatal; fall through to the network.
		c.logger.Warn("cache read failed",
			slog.String("provider", slug),
			slog.String("error", err.Error()))
	}

	adapter, aerr := c.registry.Get(slug)
	if aerr != nil {
		result.ErrorMessage = aerr.Error()
		return result
	}

	url := c.providerURL(slug)
	c.logger.Debug("fetching provider",
		slog.String("provider", slug),
		slog.String("url", url))

	body, err := c.client(slug).Get(ctx, url)
	elapsed := c.now().Sub(start)
	result.ResponseTimeMs = float64(elapsed.Milliseconds())
	metrics.ProviderFetchDuration.WithLabelValues(slug).Observe(elapsed.Seconds())

	if err != nil {
		if breaker.IsOpen(err) {
			c.logger.Warn("provider skipped, circuit open", slog.String("provider", slug))
			metrics.ProviderRequestsTotal.WithLabelValues(slug, "skipped").Inc()
			result.Skipped = true
			result.ErrorMessage = err.Error()
			return result
		}
		c.logger.Warn("provider fetch failed",
			slog.String("provider", slug),
			slog.String("error", err.Error()))
		metrics.ProviderRequestsTotal.WithLabelValues(slug, "failed").Inc()
		result.ErrorMessage = err.Error()
		return result
	}

	records, err := adapter.Adapt(body)
	if err != nil {
		c.logger.Warn("provider adapt failed",
			slog.String("provider", slug),
			slog.String("error", err.Error()))
		metrics.ProviderRequestsTotal.WithLabelValues(slug, "failed").Inc()
		result.ErrorMessage = err.Error()
		return result
	}

	collectedAt := c.now()
	for i := range records {
		records[i].CollectedAt = collectedAt
	}

	if err := cache.SetJSON(ctx, c.cache, cacheKey(slug), records, c.config.CacheTTL); err != nil {
		c.logger.Warn("cache write failed",
			slog.String("provider", slug),
			slog.String("error", err.Error()))
	}

	metrics.ProviderRequestsTotal.WithLabelValues(slug, "success").Inc()
	metrics.ProductsCollected.WithLabelValues(slug).Add(float64(len(records)))

	c.logger.Info("provider collected",
		slog.String("provider", slug),
		slog.Int("products", len(records)),
		slog.Float64("response_ms", result.ResponseTimeMs))

	result.Success = true
	result.Records = records
	return result
}

// InvalidateCache drops the cached record set for one provider, or for all
// registered providers when slug is empty.
func (c *Collector) InvalidateCache(ctx context.Context, slug string) error {
	if slug != "" {
		return c.cache.Delete(ctx, cacheKey(slug))
	}
	for _, s := range c.registry.Slugs() {
		if err := c.cache.Delete(ctx, cacheKey(s)); err != nil {
			return err
		}
	}
	return nil
}

// BreakerSnapshots exposes the read-only breaker view for the status API.
func (c *Collector) BreakerSnapshots() []breaker.Snapshot {
	return c.breakers.Snapshots()
}

// logReport appends a summary of the report to the bounded reports log.
func (c *Collector) logReport(ctx context.Context, report *Report) {
	summary := report.Summary()
	if err := cache.SetJSON(ctx, c.cache, "collector:last_report", summary, 0); err != nil {
		c.logger.Warn("failed to store last report", slog.String("error", err.Error()))
	}
	data, err := json.Marshal(summary)
	if err != nil {
		return
	}
	if err := c.cache.LPush(ctx, reportsKey, data); err != nil {
		c.logger.Warn("failed to append report log", slog.String("error", err.Error()))
		return
	}
	if err := c.cache.LTrim(ctx, reportsKey, 0, reportsKept-1); err != nil {
		c.logger.Warn("failed to trim report log", slog.String("error", err.Error()))
	}
}

func (c *Collector) updateBreakerGauges() {
	for _, snap := range c.breakers.Snapshots() {
		var v float64
		switch snap.State {
		case "open":
			v = 1
		case "half_open":
			v = 2
		}
		metrics.BreakerState.WithLabelValues(snap.Name).Set(v)
	}
}
