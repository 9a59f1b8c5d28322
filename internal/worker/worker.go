// Package worker implements the per-task download state machine.
package worker

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/JakeFAU/vaultdl/internal/clock/system"
	"github.com/JakeFAU/vaultdl/internal/pathsafe"
	"github.com/JakeFAU/vaultdl/internal/vault"
)

// Destination reserves and writes files in the output tree.
type Destination interface {
	Reserve(key string, segments []string) (string, error)
	Write(ctx context.Context, target string, r io.Reader) (int64, error)
}

// Filter decides whether a remote path is skipped by category.
type Filter interface {
	Exclude(remotePath string) bool
}

// ErrorLog receives one line per task that did not complete.
type ErrorLog interface {
	Record(msg string)
}

// Config holds run-wide parameters shared by every task.
type Config struct {
	Endpoints vault.Endpoints
	Sanitizer pathsafe.Sanitizer
}

// Worker consumes tasks from the queue and drives each to a terminal state.
type Worker struct {
	queue   vault.Queue
	fetcher vault.StreamFetcher
	dest    Destination
	filter  Filter
	errLog  ErrorLog
	clock   vault.Clock
	cfg     Config
	logger  *zap.Logger
}

// New constructs a Worker. A nil filter excludes nothing and a nil error log
// discards lines.
func New(
	queue vault.Queue,
	fetcher vault.StreamFetcher,
	dest Destination,
	filter Filter,
	errLog ErrorLog,
	clock vault.Clock,
	cfg Config,
	logger *zap.Logger,
) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = system.New()
	}
	return &Worker{
		queue:   queue,
		fetcher: fetcher,
		dest:    dest,
		filter:  filter,
		errLog:  errLog,
		clock:   clock,
		cfg:     cfg,
		logger:  logger,
	}
}

// Run dequeues tasks until the queue is closed and drained or ctx finishes.
// Every dequeued task is reported exactly once.
func (w *Worker) Run(ctx context.Context, report func(vault.Outcome)) {
	for {
		task, err := w.queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, vault.ErrQueueClosed) || ctx.Err() != nil {
				return
			}
			w.logger.Error("queue dequeue failed", zap.Error(err))
			continue
		}
		outcome := w.Process(ctx, task)
		if report != nil {
			report(outcome)
		}
	}
}

// Process runs a single task: filter, fetch, resolve, write.
func (w *Worker) Process(ctx context.Context, task vault.Task) vault.Outcome {
	start := w.clock.Now()
	outcome := w.process(ctx, task)
	outcome.Key = task.Key
	outcome.Duration = w.clock.Now().Sub(start)

	switch outcome.State {
	case vault.StateSaved:
		w.logger.Debug("item saved",
			zap.String("key", task.Key),
			zap.String("path", outcome.Path),
			zap.Int64("bytes", outcome.Bytes),
		)
	case vault.StateExcluded:
		w.logger.Debug("item excluded by category", zap.String("key", task.Key))
	default:
		w.record(outcome)
	}
	return outcome
}

func (w *Worker) process(ctx context.Context, task vault.Task) vault.Outcome {
	if w.filter != nil && w.filter.Exclude(task.Key) {
		return vault.Outcome{State: vault.StateExcluded}
	}

	stream, err := w.fetcher.Open(ctx, w.cfg.Endpoints.AccessURL(task.Key))
	if err != nil {
		return failed(err)
	}
	defer func() {
		if cerr := stream.Body.Close(); cerr != nil {
			w.logger.Debug("close response body", zap.String("key", task.Key), zap.Error(cerr))
		}
	}()

	segments := w.cfg.Sanitizer.Sanitize(task.Key)
	target, err := w.dest.Reserve(task.Key, segments)
	if err != nil {
		return failed(err)
	}

	n, err := w.dest.Write(ctx, target, stream.Body)
	if err != nil {
		out := failed(err)
		out.Path = target
		out.Bytes = n
		return out
	}
	return vault.Outcome{State: vault.StateSaved, Path: target, Bytes: n}
}

// failed maps err onto a skipped or failed outcome.
func failed(err error) vault.Outcome {
	kind := vault.KindOf(err)
	state := vault.StateFailed
	if kind == vault.KindConflict {
		state = vault.StateSkipped
	}
	return vault.Outcome{State: state, Kind: kind, Err: err}
}

func (w *Worker) record(o vault.Outcome) {
	var msg string
	switch o.Kind {
	case vault.KindConflict:
		msg = fmt.Sprintf("Skipped %q: %v", o.Key, o.Err)
	case vault.KindIO:
		msg = fmt.Sprintf("Failed to save %q to %s: %v", o.Key, o.Path, o.Err)
	default:
		msg = fmt.Sprintf("Failed to download %q: %v", o.Key, o.Err)
	}
	w.logger.Debug("task did not complete",
		zap.String("key", o.Key),
		zap.String("state", string(o.State)),
		zap.String("kind", string(o.Kind)),
		zap.Error(o.Err),
	)
	if w.errLog != nil {
		w.errLog.Record(msg)
	}
}
