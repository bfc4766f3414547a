package shopcart

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

const defaultQueueSize = 64

// OperationQueue runs submitted tasks one at a time, in submission order, on a
// single worker goroutine. Every cart mutation goes through it, so reads of the
// cart and stock inside one operation cannot interleave with another operation
// of the same process.
type OperationQueue struct {
	tasks  chan func()
	logger *zap.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewOperationQueue(size int, logger *zap.Logger) *OperationQueue {
	if size <= 0 {
		size = defaultQueueSize
	}

	q := &OperationQueue{
		tasks:  make(chan func(), size),
		logger: logger,
	}

	q.wg.Add(1)
	go q.worker()

	return q
}

func (q *OperationQueue) worker() {
	defer q.wg.Done()
	for task := range q.tasks {
		q.run(task)
	}
}

func (q *OperationQueue) run(task func()) {
	defer func() {
		if p := recover(); p != nil {
			q.logger.Error("panic in cart operation", zap.Any("panic", p))
		}
	}()
	task()
}

// Submit enqueues task. It blocks while the queue is full, until ctx is done.
func (q *OperationQueue) Submit(ctx context.Context, task func()) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.tasks <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting tasks, runs the ones already queued and waits for the worker.
func (q *OperationQueue) Shutdown() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.tasks)
	q.mu.Unlock()

	q.wg.Wait()
}
