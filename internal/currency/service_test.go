package currency

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/price-radar/price-radar/internal/cache"
)

func newTestCache(t *testing.T) cache.Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return cache.NewRedisFromClient(client)
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		raw      string
		expected float64
	}{
		{"$1,234.56", 1234.56},
		{"1.234,56", 1234.56},
		{"1,234", 1.234},  // bare comma is the decimal separator
		{"1.234", 1.234},  // bare dot is the decimal separator too
		{"₺1.000,50", 1000.50},
		{"100", 100},
		{"£130.95", 130.95},
		{"  599.95 TL ", 599.95},
		{"€12", 12},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseAmount(tt.raw)
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, got, 1e-9)
		})
	}
}

func TestParseAmount_Errors(t *testing.T) {
	for _, raw := range []string{"", "Fiyat Yok", "$", "12.3.4,5x"} {
		t.Run(raw, func(t *testing.T) {
			_, err := ParseAmount(raw)
			assert.Error(t, err)
		})
	}
}

func TestService_CrossRatesDerivedFromUpstream(t *testing.T) {
	// Upstream base is EUR: 1 EUR = 37.50 TRY, 1 EUR = 1.0965 USD.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"rates":{"TRY":37.50,"USD":1.0965,"GBP":0.87,"EUR":1.0}}`))
	}))
	defer server.Close()

	s := New(server.URL, newTestCache(t))
	rates := s.GetExchangeRates(context.Background())

	assert.InDelta(t, 1.0, rates["TRY"], 1e-9)
	assert.InDelta(t, 37.50, rates["EUR"], 1e-9)
	assert.InDelta(t, 37.50/1.0965, rates["USD"], 1e-9)
	assert.InDelta(t, 37.50/0.87, rates["GBP"], 1e-9)
}

func TestService_FallbackOnUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	s := New(server.URL, newTestCache(t))
	rates := s.GetExchangeRates(context.Background())

	assert.InDelta(t, 34.20, rates["USD"], 1e-9)
	assert.InDelta(t, 37.50, rates["EUR"], 1e-9)
	assert.InDelta(t, 43.10, rates["GBP"], 1e-9)
	assert.InDelta(t, 1.0, rates["TRY"], 1e-9)
}

func TestService_FallbackWhenBaseMissing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"rates":{"USD":1.0,"EUR":0.91}}`))
	}))
	defer server.Close()

	s := New(server.URL, newTestCache(t))
	rates := s.GetExchangeRates(context.Background())
	assert.InDelta(t, 34.20, rates["USD"], 1e-9)
}

func TestService_RatesAreCached(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"rates":{"TRY":34.0,"USD":1.0}}`))
	}))
	defer server.Close()

	s := New(server.URL, newTestCache(t))
	ctx := context.Background()

	s.GetExchangeRates(ctx)
	s.GetExchangeRates(ctx)

	assert.Equal(t, int32(1), calls.Load())
}

func TestService_Convert(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"rates":{"TRY":34.20,"USD":1.0}}`))
	}))
	defer server.Close()

	s := New(server.URL, newTestCache(t))
	ctx := context.Background()

	// Base currency is the identity.
	assert.InDelta(t, 150.0, s.Convert(ctx, 150.0, "TRY"), 1e-9)

	// 100 USD at 34.20
	assert.InDelta(t, 3420.0, s.Convert(ctx, 100.0, "usd"), 1e-9)

	// Unknown code returns the input unchanged.
	assert.InDelta(t, 99.0, s.Convert(ctx, 99.0, "XXX"), 1e-9)
}

func TestRound2(t *testing.T) {
	assert.InDelta(t, 7087.50, Round2(7087.499999999), 1e-9)
	assert.InDelta(t, 1.23, Round2(1.2349), 1e-9)
}
