// Package dispatcher feeds the task queue and fans work out to the worker pool.
package dispatcher

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JakeFAU/vaultdl/internal/clock/system"
	"github.com/JakeFAU/vaultdl/internal/progress"
	"github.com/JakeFAU/vaultdl/internal/vault"
)

// Runner drains the queue, reporting every task it finishes.
type Runner interface {
	Run(ctx context.Context, report func(vault.Outcome))
}

// Dispatcher owns one run: it produces tasks, runs the pool and aggregates
// outcomes into a Summary.
type Dispatcher struct {
	queue   vault.Queue
	workers []Runner
	emitter progress.Emitter
	runID   uuid.UUID
	clock   vault.Clock
	logger  *zap.Logger
}

// New creates a Dispatcher. A nil emitter drops progress events.
func New(
	queue vault.Queue,
	workers []Runner,
	emitter progress.Emitter,
	runID uuid.UUID,
	clock vault.Clock,
	logger *zap.Logger,
) *Dispatcher {
	if emitter == nil {
		emitter = discard{}
	}
	if clock == nil {
		clock = system.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		queue:   queue,
		workers: workers,
		emitter: emitter,
		runID:   runID,
		clock:   clock,
		logger:  logger,
	}
}

// Run schedules one task per key and blocks until every worker has returned.
// Tasks never handed to a worker, because ctx ended first, are counted as
// Remaining.
func (d *Dispatcher) Run(ctx context.Context, keys []string) vault.Summary {
	start := d.clock.Now()
	summary := vault.Summary{Total: len(keys)}
	d.emitter.Emit(progress.Event{RunID: d.runID, TS: start, Stage: progress.StageRunStart, Total: len(keys)})

	if len(d.workers) == 0 {
		d.logger.Warn("no workers configured")
		summary.Remaining = summary.Total
		d.emitter.Emit(progress.Event{RunID: d.runID, TS: start, Stage: progress.StageRunDone})
		return summary
	}

	produced := make(chan int, 1)
	go func() {
		n, err := d.produce(ctx, keys)
		if err != nil {
			d.logger.Warn("stopped scheduling tasks", zap.Int("scheduled", n), zap.Error(err))
		}
		produced <- n
	}()

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	report := func(o vault.Outcome) {
		mu.Lock()
		summary.Add(o)
		mu.Unlock()
		d.emitter.Emit(progress.FromOutcome(d.runID, d.clock.Now(), o))
	}
	for _, w := range d.workers {
		wg.Add(1)
		go func(r Runner) {
			defer wg.Done()
			r.Run(ctx, report)
		}(w)
	}
	wg.Wait()
	<-produced

	summary.Remaining = summary.Total - summary.Finished()
	end := d.clock.Now()
	d.emitter.Emit(progress.Event{RunID: d.runID, TS: end, Stage: progress.StageRunDone, Dur: end.Sub(start)})
	return summary
}

// produce enqueues every key in order and closes the queue.
func (d *Dispatcher) produce(ctx context.Context, keys []string) (int, error) {
	defer d.queue.Close()
	for i, key := range keys {
		if err := d.queue.Enqueue(ctx, vault.Task{Key: key, Index: i}); err != nil {
			return i, fmt.Errorf("queue enqueue: %w", err)
		}
	}
	return len(keys), nil
}

type discard struct{}

func (discard) Emit(progress.Event) {}
