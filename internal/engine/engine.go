// Package engine drives conversation processing: the tick scheduler fans
// eligible conversations out to bounded workers, and each worker runs one
// locked pass through perception, retrieval, the planning loop, and the
// guardrail pipeline.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/parleyhq/parley/internal/closure"
	"github.com/parleyhq/parley/internal/delivery"
	"github.com/parleyhq/parley/internal/guardrail"
	"github.com/parleyhq/parley/internal/lock"
	"github.com/parleyhq/parley/internal/notify"
	"github.com/parleyhq/parley/internal/perception"
	"github.com/parleyhq/parley/internal/planner"
	"github.com/parleyhq/parley/internal/prompts"
	"github.com/parleyhq/parley/internal/repository"
	"github.com/parleyhq/parley/internal/retrieval"
	"github.com/parleyhq/parley/internal/toolexec"
	"github.com/parleyhq/parley/pkg/llm"
)

// Engine owns one processing pipeline shared by all conversations.
type Engine struct {
	store      *repository.Store
	locks      lock.Coordinator
	classifier *perception.Classifier
	closer     *closure.Validator
	retriever  *retrieval.Retriever
	selector   *retrieval.Selector
	planner    *planner.Planner
	guard      *guardrail.Pipeline
	executor   toolexec.Executor
	delivery   *delivery.Registry
	notifier   notify.Notifier
	gateway    llm.Gateway
	budgeter   *prompts.Budgeter
	logger     *slog.Logger

	maxConcurrent int64
}

// Options bundles the engine's collaborators.
type Options struct {
	Store      *repository.Store
	Locks      lock.Coordinator
	Classifier *perception.Classifier
	Closer     *closure.Validator
	Retriever  *retrieval.Retriever
	Selector   *retrieval.Selector
	Planner    *planner.Planner
	Guard      *guardrail.Pipeline
	Executor   toolexec.Executor
	Delivery   *delivery.Registry
	Notifier   notify.Notifier
	Gateway    llm.Gateway
	Budgeter   *prompts.Budgeter
	Logger     *slog.Logger

	// MaxConcurrent caps simultaneous conversation passes per tick.
	MaxConcurrent int64
}

// New creates an engine.
func New(opts Options) *Engine {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 4
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Noop{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Engine{
		store:         opts.Store,
		locks:         opts.Locks,
		classifier:    opts.Classifier,
		closer:        opts.Closer,
		retriever:     opts.Retriever,
		selector:      opts.Selector,
		planner:       opts.Planner,
		guard:         opts.Guard,
		executor:      opts.Executor,
		delivery:      opts.Delivery,
		notifier:      opts.Notifier,
		gateway:       opts.Gateway,
		budgeter:      opts.Budgeter,
		logger:        opts.Logger,
		maxConcurrent: opts.MaxConcurrent,
	}
}

// Tick processes every eligible conversation once. Conversations run
// concurrently up to the configured cap; a failing or panicking pass never
// affects its siblings.
func (e *Engine) Tick(ctx context.Context) error {
	eligible, err := e.store.Conversations.ListEligible(ctx)
	if err != nil {
		return fmt.Errorf("list eligible conversations: %w", err)
	}
	if len(eligible) == 0 {
		return nil
	}
	e.logger.Debug("tick", "eligible", len(eligible))

	sem := semaphore.NewWeighted(e.maxConcurrent)
	var wg sync.WaitGroup
	for _, conv := range eligible {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)
			defer func() {
				if r := recover(); r != nil {
					e.logger.Error("pass panicked", "conversation_id", conv.ID, "panic", r)
				}
			}()
			if err := e.Process(ctx, conv.ID); err != nil {
				e.logger.Error("pass failed", "conversation_id", conv.ID, "error", err)
			}
		}()
	}
	wg.Wait()
	return nil
}
