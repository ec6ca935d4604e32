// Package batch runs the periodic collect-and-analyze cycle: collector
// fan-out, then the analysis pipeline inside a single unit of work.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/price-radar/price-radar/internal/collector"
	"github.com/price-radar/price-radar/internal/currency"
	"github.com/price-radar/price-radar/internal/logging"
	"github.com/price-radar/price-radar/internal/metrics"
	"github.com/price-radar/price-radar/internal/pipeline/stages"
	"github.com/price-radar/price-radar/internal/storage"
)

// Config holds runner settings.
type Config struct {
	// Interval between scheduled batches
	Interval time.Duration
	// Analysis tunes the pipeline stages
	Analysis stages.AnalysisConfig
}

// Result summarizes one batch.
type Result struct {
	BatchID    string               `json:"batch_id"`
	Report     collector.ReportSummary `json:"report"`
	Committed  bool                 `json:"committed"`
	Meta       map[string]any       `json:"meta,omitempty"`
	Errors     []string             `json:"errors,omitempty"`
	HardErrors []string             `json:"hard_errors,omitempty"`
	StartedAt  time.Time            `json:"started_at"`
	Duration   time.Duration        `json:"duration"`
}

// Runner wires the collector to the analysis pipeline on a schedule.
type Runner struct {
	config    Config
	collector *collector.Collector
	db        *storage.DB
	currency  *currency.Service
	logger    *slog.Logger

	// running serializes batches; a tick that finds one in flight is
	// dropped rather than queued.
	running chan struct{}
}

// NewRunner creates a batch runner.
func NewRunner(config Config, coll *collector.Collector, db *storage.DB, currencySvc *currency.Service, logger *slog.Logger) *Runner {
	if config.Interval <= 0 {
		config.Interval = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		config:    config,
		collector: coll,
		db:        db,
		currency:  currencySvc,
		logger:    logger,
		running:   make(chan struct{}, 1),
	}
}

// Run executes batches until the context is cancelled: one immediately,
// then one per interval.
func (r *Runner) Run(ctx context.Context) {
	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	r.logger.Info("batch runner started",
		slog.Duration("interval", r.config.Interval))

	r.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("batch runner stopped")
			return
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

// tick runs one batch unless a previous one is still in flight.
func (r *Runner) tick(ctx context.Context) {
	select {
	case r.running <- struct{}{}:
	default:
		r.logger.Warn("previous batch still running, skipping tick")
		return
	}
	defer func() { <-r.running }()

	if _, err := r.runBatch(ctx); err != nil && ctx.Err() == nil {
		r.logger.Error("batch failed", slog.String("error", err.Error()))
	}
}

// RunOnce executes exactly one batch, serialized against the schedule.
func (r *Runner) RunOnce(ctx context.Context) (*Result, error) {
	r.running <- struct{}{}
	defer func() { <-r.running }()
	return r.runBatch(ctx)
}

func (r *Runner) runBatch(ctx context.Context) (*Result, error) {
	start := time.Now()
	batchID := uuid.New().String()
	ctx = logging.WithBatchID(ctx, batchID)
	log := logging.Logger(ctx)

	report := r.collector.CollectAll(ctx)
	result := &Result{
		BatchID:   batchID,
		Report:    report.Summary(),
		StartedAt: start,
	}

	records := report.AllRecords()
	if len(records) == 0 {
		log.Warn("no records collected, skipping analysis")
		result.Duration = time.Since(start)
		return result, nil
	}

	uow, err := r.db.BeginUnitOfWork(ctx)
	if err != nil {
		metrics.BatchesTotal.WithLabelValues("rolled_back").Inc()
		return nil, fmt.Errorf("failed to start unit of work: %w", err)
	}
	defer uow.Rollback()

	slugs, err := uow.Providers().SlugMap(ctx)
	if err != nil {
		metrics.BatchesTotal.WithLabelValues("rolled_back").Inc()
		return nil, fmt.Errorf("failed to load providers: %w", err)
	}

	inputs := make([]stages.Input, 0, len(records))
	for _, rec := range records {
		providerID, ok := slugs[rec.ProviderSlug]
		if !ok {
			log.Warn("record from unregistered provider dropped",
				slog.String("provider", rec.ProviderSlug))
			result.Errors = append(result.Errors,
				fmt.Sprintf("provider %q not registered", rec.ProviderSlug))
			continue
		}
		inputs = append(inputs, stages.Input{Record: rec, ProviderID: providerID})
	}

	pc := stages.NewAnalysisPipeline(uow, r.currency, r.config.Analysis).Execute(ctx, inputs)

	result.Meta = pc.Meta
	result.Errors = append(result.Errors, pc.Errors...)
	result.HardErrors = pc.HardErrors
	result.Duration = time.Since(start)

	// Per-item errors are tolerated; only batch-level faults roll back.
	if pc.HasHardErrors() {
		metrics.BatchesTotal.WithLabelValues("rolled_back").Inc()
		log.Error("batch rolled back",
			slog.Int("hard_errors", len(pc.HardErrors)),
			slog.Any("errors", pc.HardErrors))
		if err := uow.Rollback(); err != nil {
			return result, err
		}
		return result, nil
	}

	if err := uow.Commit(); err != nil {
		metrics.BatchesTotal.WithLabelValues("rolled_back").Inc()
		return result, fmt.Errorf("failed to commit batch: %w", err)
	}

	result.Committed = true
	metrics.BatchesTotal.WithLabelValues("committed").Inc()
	log.Info("batch committed",
		slog.Int("records", len(inputs)),
		slog.Any("saved", pc.Meta["saved_price_records"]),
		slog.Int("errors", len(pc.Errors)),
		slog.Duration("duration", result.Duration))

	return result, nil
}
