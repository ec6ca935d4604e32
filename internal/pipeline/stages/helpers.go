package stages

import (
	"strings"

	"github.com/price-radar/price-radar/internal/metrics"
)

// countStageErrors feeds the per-stage error counter.
func countStageErrors(stage string, n int) {
	if n > 0 {
		metrics.RecordErrors.WithLabelValues(stage).Add(float64(n))
	}
}

// normalizeName lowercases a product name and collapses its whitespace.
func normalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// slugify turns a normalized name into a URL slug.
func slugify(normalizedName string) string {
	return strings.ReplaceAll(normalizedName, " ", "-")
}

// clampScore bounds a trend score to [-100, +100].
func clampScore(v float64) float64 {
	if v > 100 {
		return 100
	}
	if v < -100 {
		return -100
	}
	return v
}
