package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// Hooks observe task execution. Either field may be nil.
type Hooks struct {
	OnStart  func(name string)
	OnFinish func(name string, elapsed time.Duration, err error)
}

// Runner executes tasks from a registry.
type Runner struct {
	registry *Registry
	hooks    Hooks
	logger   *slog.Logger
}

// NewRunner creates a runner for the given registry.
func NewRunner(registry *Registry, hooks Hooks, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Runner{registry: registry, hooks: hooks, logger: logger}
}

// Registry returns the runner's registry.
func (r *Runner) Registry() *Registry {
	return r.registry
}

// Run executes the named tasks in series. Leaves in the same execution level
// run concurrently; the first failure cancels the level and is returned.
func (r *Runner) Run(ctx context.Context, names ...string) error {
	levels, err := r.registry.Plan(names...)
	if err != nil {
		return err
	}

	r.logger.Debug("task plan", "tasks", names, "levels", levels)

	for _, level := range levels {
		eg, egctx := errgroup.WithContext(ctx)
		for _, name := range level {
			eg.Go(func() error {
				return r.runLeaf(egctx, name)
			})
		}
		if err := eg.Wait(); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) runLeaf(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t, ok := r.registry.Get(name)
	if !ok || t.fn == nil {
		return fmt.Errorf("task %q is not runnable", name)
	}

	if r.hooks.OnStart != nil {
		r.hooks.OnStart(name)
	}
	start := time.Now()

	err := t.fn(ctx)
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		// Shutdown, not a failure.
		err = nil
	}

	if r.hooks.OnFinish != nil {
		r.hooks.OnFinish(name, time.Since(start), err)
	}
	if err != nil {
		return fmt.Errorf("task %q: %w", name, err)
	}
	return nil
}
