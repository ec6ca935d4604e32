package collector

import (
	"time"

	"github.com/price-radar/price-radar/internal/provider"
)

// ProviderResult is the outcome of collecting one provider.
type ProviderResult struct {
	ProviderSlug   string            `json:"provider_slug"`
	Success        bool              `json:"success"`
	Skipped        bool              `json:"skipped"` // circuit open: not a failure
	Records        []provider.Record `json:"records,omitempty"`
	ErrorMessage   string            `json:"error_message,omitempty"`
	ResponseTimeMs float64           `json:"response_time_ms"`
	FromCache      bool              `json:"from_cache"`
	FetchedAt      time.Time         `json:"fetched_at"`
}

// ProductCount returns how many records the provider yielded.
func (r ProviderResult) ProductCount() int {
	return len(r.Records)
}

// Summary strips the record payload out of the result.
func (r ProviderResult) Summary() ProviderSummary {
	return ProviderSummary{
		ProviderSlug:   r.ProviderSlug,
		Success:        r.Success,
		Skipped:        r.Skipped,
		ProductCount:   r.ProductCount(),
		ErrorMessage:   r.ErrorMessage,
		ResponseTimeMs: r.ResponseTimeMs,
		FromCache:      r.FromCache,
	}
}

// Stats aggregates one collection pass.
type Stats struct {
	TotalProviders      int     `json:"total_providers"`
	SuccessfulProviders int     `json:"successful_providers"`
	FailedProviders     int     `json:"failed_providers"`
	SkippedProviders    int     `json:"skipped_providers"`
	TotalProducts       int     `json:"total_products"`
	TotalTimeMs         float64 `json:"total_time_ms"`
}

// SuccessRate returns the share of successful providers in percent.
func (s Stats) SuccessRate() float64 {
	if s.TotalProviders == 0 {
		return 0
	}
	return float64(s.SuccessfulProviders) / float64(s.TotalProviders) * 100
}

// Report is the result of one collection pass over all providers.
type Report struct {
	ID          string           `json:"id"`
	Results     []ProviderResult `json:"results"`
	Stats       Stats            `json:"stats"`
	CollectedAt time.Time        `json:"collected_at"`
}

// AllRecords merges the records of all successful providers, in provider
// order.
func (r *Report) AllRecords() []provider.Record {
	var all []provider.Record
	for _, res := range r.Results {
		if res.Success {
			all = append(all, res.Records...)
		}
	}
	return all
}

// ReportSummary is the compact form kept in the recent-reports log.
type ReportSummary struct {
	ID          string    `json:"id"`
	Stats       Stats     `json:"stats"`
	CollectedAt time.Time `json:"collected_at"`
	Providers   []ProviderSummary `json:"providers"`
}

// ProviderSummary is one provider's line in a report summary.
type ProviderSummary struct {
	ProviderSlug   string  `json:"provider_slug"`
	Success        bool    `json:"success"`
	Skipped        bool    `json:"skipped"`
	ProductCount   int     `json:"product_count"`
	ErrorMessage   string  `json:"error_message,omitempty"`
	ResponseTimeMs float64 `json:"response_time_ms"`
	FromCache      bool    `json:"from_cache"`
}

// Summary strips the record payloads out of the report.
func (r *Report) Summary() ReportSummary {
	s := ReportSummary{
		ID:          r.ID,
		Stats:       r.Stats,
		CollectedAt: r.CollectedAt,
		Providers:   make([]ProviderSummary, 0, len(r.Results)),
	}
	for _, res := range r.Results {
		s.Providers = append(s.Providers, ProviderSummary{
			ProviderSlug:   res.ProviderSlug,
			Success:        res.Success,
			Skipped:        res.Skipped,
			ProductCount:   res.ProductCount(),
			ErrorMessage:   res.ErrorMessage,
			ResponseTimeMs: res.ResponseTimeMs,
			FromCache:      res.FromCache,
		})
	}
	return s
}

// computeStats aggregates per-provider results. A provider skipped by an
// open circuit counts as neither successful nor failed.
func computeStats(results []ProviderResult, elapsed time.Duration) Stats {
	stats := Stats{
		TotalProviders: len(results),
		TotalTimeMs:    float64(elapsed.Milliseconds()),
	}
	for _, r := range results {
		switch {
		case r.Success:
			stats.SuccessfulProviders++
			stats.TotalProducts += r.ProductCount()
		case r.Skipped:
			stats.SkippedProviders++
		default:
			stats.FailedProviders++
		}
	}
	return stats
}
