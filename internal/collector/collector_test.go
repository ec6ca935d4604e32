package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/price-radar/price-radar/internal/breaker"
	"github.com/price-radar/price-radar/internal/cache"
	"github.com/price-radar/price-radar/internal/httpclient"
	"github.com/price-radar/price-radar/internal/provider"
)

const (
	sportDirectBody = `{"provider":"SportDirect","currency":"GBP","products":[
		{"product_id":1,"product_name":"Nike Pegasus 40","brand":"Nike","category":"Koşu","price_gbp":130.95,"stock_quantity":100,"in_stock":true}
	]}`
	outdoorProBody = `{"source":"OutdoorPro","count":1,"items":[
		{"id":7,"name":"Stormbreak 2","brand":"NorthFace","category":"Kamp","price":325.95,"currency":"USD","stock":27,"available":true}
	]}`
)

func newTestCache(t *testing.T) cache.Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return cache.NewRedisFromClient(client)
}

func newTestCollector(t *testing.T, baseURL string, endpoints map[string]string) *Collector {
	t.Helper()
	registry := provider.NewRegistry(provider.NewSportDirectAdapter(), provider.NewOutdoorProAdapter())
	breakers := breaker.NewRegistry(breaker.DefaultConfig())
	return New(Config{
		BaseURL:   baseURL,
		Endpoints: endpoints,
		CacheTTL:  time.Minute,
		Client:    httpclient.Config{MaxRetries: 0, Timeout: 5 * time.Second},
	}, registry, newTestCache(t), breakers)
}

func TestCollector_CollectAll(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/sport-direct/products":
			w.Write([]byte(sportDirectBody))
		case "/outdoor-pro/products":
			w.Write([]byte(outdoorProBody))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	c := newTestCollector(t, server.URL, map[string]string{
		"sport-direct": "/sport-direct/products",
		"outdoor-pro":  "/outdoor-pro/products",
	})

	report := c.CollectAll(context.Background())

	assert.Equal(t, 2, report.Stats.TotalProviders)
	assert.Equal(t, 2, report.Stats.SuccessfulProviders)
	assert.Equal(t, 0, report.Stats.FailedProviders)
	assert.Equal(t, 2, report.Stats.TotalProducts)
	assert.NotEmpty(t, report.ID)

	records := report.AllRecords()
	require.Len(t, records, 2)
	for _, rec := range records {
		assert.False(t, rec.CollectedAt.IsZero())
	}
}

func TestCollector_FailureIsolated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/sport-direct/products" {
			w.Write([]byte(sportDirectBody))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := newTestCollector(t, server.URL, map[string]string{
		"sport-direct": "/sport-direct/products",
		"outdoor-pro":  "/outdoor-pro/products",
	})

	report := c.CollectAll(context.Background())

	assert.Equal(t, 1, report.Stats.SuccessfulProviders)
	assert.Equal(t, 1, report.Stats.FailedProviders)
	assert.Equal(t, 1, report.Stats.TotalProducts)

	for _, res := range report.Results {
		if res.ProviderSlug == "outdoor-pro" {
			assert.False(t, res.Success)
			assert.NotEmpty(t, res.ErrorMessage)
		}
	}
}

func TestCollector_CacheHit(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(sportDirectBody))
	}))
	defer server.Close()

	c := newTestCollector(t, server.URL, map[string]string{"sport-direct": "/"})

	ctx := context.Background()
	first := c.CollectSingle(ctx, "sport-direct")
	require.True(t, first.Success)
	assert.False(t, first.FromCache)

	second := c.CollectSingle(ctx, "sport-direct")
	require.True(t, second.Success)
	assert.True(t, second.FromCache)
	assert.Zero(t, second.ResponseTimeMs)
	assert.Equal(t, first.Records[0].ExternalCode, second.Records[0].ExternalCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestCollector_InvalidateCache(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(sportDirectBody))
	}))
	defer server.Close()

	c := newTestCollector(t, server.URL, map[string]string{"sport-direct": "/"})

	ctx := context.Background()
	c.CollectSingle(ctx, "sport-direct")
	require.NoError(t, c.InvalidateCache(ctx, "sport-direct"))
	c.CollectSingle(ctx, "sport-direct")

	assert.Equal(t, int32(2), calls.Load())
}

func TestCollector_CircuitOpenMeansSkipped(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	registry := provider.NewRegistry(provider.NewSportDirectAdapter())
	breakers := breaker.NewRegistry(breaker.Config{FailureThreshold: 2, Timeout: time.Hour})
	c := New(Config{
		BaseURL:   server.URL,
		Endpoints: map[string]string{"sport-direct": "/"},
		CacheTTL:  time.Minute,
		Client:    httpclient.Config{MaxRetries: 0, Timeout: 5 * time.Second},
	}, registry, newTestCache(t), breakers)

	ctx := context.Background()

	// Two failures open the breaker.
	assert.False(t, c.CollectSingle(ctx, "sport-direct").Success)
	assert.False(t, c.CollectSingle(ctx, "sport-direct").Success)

	before := calls.Load()
	res := c.CollectSingle(ctx, "sport-direct")
	assert.False(t, res.Success)
	assert.True(t, res.Skipped)
	assert.Equal(t, before, calls.Load(), "open circuit must not hit the network")

	report := c.CollectAll(ctx)
	assert.Equal(t, 1, report.Stats.SkippedProviders)
	assert.Equal(t, 0, report.Stats.FailedProviders)
}

func TestCollector_UnknownProvider(t *testing.T) {
	c := newTestCollector(t, "http://localhost:0", nil)
	res := c.CollectSingle(context.Background(), "nope")
	assert.False(t, res.Success)
	assert.Contains(t, res.ErrorMessage, "unknown provider")
}

func TestComputeStats(t *testing.T) {
	results := []ProviderResult{
		{Success: true, Records: make([]provider.Record, 3)},
		{Skipped: true},
		{},
	}
	stats := computeStats(results, 1500*time.Millisecond)
	assert.Equal(t, 3, stats.TotalProviders)
	assert.Equal(t, 1, stats.SuccessfulProviders)
	assert.Equal(t, 1, stats.SkippedProviders)
	assert.Equal(t, 1, stats.FailedProviders)
	assert.Equal(t, 3, stats.TotalProducts)
	assert.InDelta(t, 1500, stats.TotalTimeMs, 0.1)
	assert.InDelta(t, 33.3, stats.SuccessRate(), 0.1)
}
