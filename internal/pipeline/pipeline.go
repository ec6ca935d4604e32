// Package pipeline provides the staged batch-processing primitives used by
// the analysis pipeline: a mutable context flowing through an ordered list
// of stages.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/price-radar/price-radar/internal/metrics"
)

// Context is the mutable envelope flowing through stages. Data holds the
// current payload (a list; its element type advances as stages annotate
// records), Result the artifact of the last stage that ran. Errors is
// append-only and does not by itself abort the run; HardErrors marks
// batch-level faults that make the surrounding transaction roll back.
type Context struct {
	Data          any
	Result        any
	Errors        []string
	HardErrors    []string
	Meta          map[string]any
	SkipRemaining bool
	// User is the optional caller identity; unset for scheduled batches.
	User string
}

// NewContext wraps the initial batch payload.
func NewContext(data any) *Context {
	return &Context{
		Data: data,
		Meta: make(map[string]any),
	}
}

// AddError appends one per-item diagnostic.
func (c *Context) AddError(format string, args ...any) {
	c.Errors = append(c.Errors, fmt.Sprintf(format, args...))
}

// AddHardError records a batch-level fault. It also shows up in Errors so
// the full diagnostic list stays in one place.
func (c *Context) AddHardError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	c.HardErrors = append(c.HardErrors, msg)
	c.Errors = append(c.Errors, msg)
}

// HasHardErrors reports whether any stage hit a batch-level fault.
func (c *Context) HasHardErrors() bool {
	return len(c.HardErrors) > 0
}

// Stage is one unit of work over the context.
type Stage interface {
	// Name identifies the stage in logs, meta keys and metrics
	Name() string
	// Process mutates the pipeline context. Failures are recorded on the
	// context, never returned.
	Process(ctx context.Context, pc *Context)
}

// Pipeline runs an ordered list of stages.
type Pipeline struct {
	stages []Stage
	logger *slog.Logger
}

// New builds a pipeline from the given stages.
func New(stages ...Stage) *Pipeline {
	return &Pipeline{
		stages: stages,
		logger: slog.Default(),
	}
}

// Execute runs every stage in order over a fresh context wrapping data.
// A stage may set SkipRemaining to halt the rest of the run; accumulated
// Errors never halt it on their own.
func (p *Pipeline) Execute(ctx context.Context, data any) *Context {
	pc := NewContext(data)

	for _, stage := range p.stages {
		if pc.SkipRemaining {
			p.logger.Debug("pipeline short-circuited",
				slog.String("before_stage", stage.Name()))
			break
		}

		start := time.Now()
		stage.Process(ctx, pc)
		metrics.ObserveStage(stage.Name(), start)

		p.logger.Debug("stage completed",
			slog.String("stage", stage.Name()),
			slog.Int("errors", len(pc.Errors)),
			slog.Duration("elapsed", time.Since(start)))
	}

	return pc
}
