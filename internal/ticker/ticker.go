// Package ticker fires processing sweeps on a cron schedule.
package ticker

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Processor triggers a processing sweep. Implemented by the engine.
type Processor interface {
	Tick(ctx context.Context) error
}

// cronParser accepts both standard 5-field cron expressions and 6-field
// expressions with an optional seconds field.
var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Ticker drives the engine from a cron schedule.
type Ticker struct {
	processor Processor
	schedule  string
	logger    *slog.Logger
	cron      *cron.Cron

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a ticker. schedule is a cron expression, e.g. "*/5 * * * * *"
// for every five seconds.
func New(processor Processor, schedule string, logger *slog.Logger) *Ticker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ticker{
		processor: processor,
		schedule:  schedule,
		logger:    logger,
		cron:      cron.New(cron.WithParser(cronParser)),
	}
}

// Start registers the tick entry and starts the cron loop. Overlapping ticks
// are harmless: the per-conversation locks make the second pass a no-op.
func (t *Ticker) Start(ctx context.Context) error {
	t.ctx, t.cancel = context.WithCancel(ctx)

	_, err := t.cron.AddFunc(t.schedule, func() {
		if err := t.processor.Tick(t.ctx); err != nil {
			t.logger.Error("scheduled tick failed", "error", err)
		}
	})
	if err != nil {
		return err
	}

	t.cron.Start()
	t.logger.Info("tick schedule started", "schedule", t.schedule)
	return nil
}

// Stop halts the cron loop and cancels in-flight ticks.
func (t *Ticker) Stop() {
	if t.cancel != nil {
		t.cancel()
	}
	t.cron.Stop()
}
