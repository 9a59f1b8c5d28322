// Package memory provides the bounded in-memory task queue.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/JakeFAU/vaultdl/internal/vault"
)

// Queue is a bounded in-memory queue with context-aware operations.
type Queue struct {
	ch      chan vault.Task
	closeMu sync.Mutex
	closed  bool
}

// NewQueue constructs a new queue with the provided capacity.
func NewQueue(capacity int) *Queue {
	if capacity < 0 {
		capacity = 0
	}
	return &Queue{
		ch: make(chan vault.Task, capacity),
	}
}

// Enqueue pushes a task into the queue or returns if the context ends.
// Enqueue after Close is an error.
func (q *Queue) Enqueue(ctx context.Context, task vault.Task) error {
	q.closeMu.Lock()
	closed := q.closed
	q.closeMu.Unlock()
	if closed {
		return fmt.Errorf("enqueue %q: %w", task.Key, vault.ErrQueueClosed)
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("enqueue canceled: %w", ctx.Err())
	case q.ch <- task:
		return nil
	}
}

// Dequeue pops the next task, respecting context cancellation. Once the queue
// is closed and drained it returns vault.ErrQueueClosed.
func (q *Queue) Dequeue(ctx context.Context) (vault.Task, error) {
	select {
	case <-ctx.Done():
		return vault.Task{}, fmt.Errorf("dequeue canceled: %w", ctx.Err())
	case task, ok := <-q.ch:
		if !ok {
			return vault.Task{}, vault.ErrQueueClosed
		}
		return task, nil
	}
}

// Close marks the end of input. Queued tasks remain available to Dequeue.
// Close must only be called by the producer, after its last Enqueue.
func (q *Queue) Close() {
	q.closeMu.Lock()
	defer q.closeMu.Unlock()
	if q.closed {
		return
	}
	close(q.ch)
	q.closed = true
}
