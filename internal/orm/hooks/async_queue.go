package hooks

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

var (
	// ErrQueueNotStarted is returned when enqueueing before Start
	ErrQueueNotStarted = errors.New("queue not started")
	// ErrQueueShutdown is returned when enqueueing after Shutdown or Stop
	ErrQueueShutdown = errors.New("queue shutdown")
)

// AsyncTask represents a task to be executed asynchronously
type AsyncTask struct {
	Name string
	Fn   func(ctx context.Context) error
}

// AsyncQueue runs fire-and-forget after-hooks on a worker pool
type AsyncQueue struct {
	tasks       chan AsyncTask
	workerCount int
	logger      *zap.Logger
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	started     bool
	shutdown    bool
	mu          sync.Mutex
}

// NewAsyncQueue creates a new async task queue with the specified worker count
func NewAsyncQueue(workerCount int, logger *zap.Logger) *AsyncQueue {
	if workerCount <= 0 {
		workerCount = 4
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &AsyncQueue{
		tasks:       make(chan AsyncTask, 100),
		workerCount: workerCount,
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
		started:     false,
	}
}

// Start starts the worker pool
func (q *AsyncQueue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.started {
		return
	}

	for i := 0; i < q.workerCount; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}

	q.started = true
}

// worker is a worker goroutine that processes tasks
func (q *AsyncQueue) worker(id int) {
	defer q.wg.Done()

	for {
		select {
		case <-q.ctx.Done():
			return
		case task, ok := <-q.tasks:
			if !ok {
				return
			}

			q.run(id, task)
		}
	}
}

func (q *AsyncQueue) run(worker int, task AsyncTask) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("panic in async task",
				zap.Int("worker", worker),
				zap.String("task", task.Name),
				zap.Any("panic", r),
			)
		}
	}()

	if err := task.Fn(q.ctx); err != nil {
		q.logger.Debug("async task failed",
			zap.Int("worker", worker),
			zap.String("task", task.Name),
			zap.Error(err),
		)
	}
}

// Enqueue adds a task to the queue
func (q *AsyncQueue) Enqueue(task AsyncTask) error {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return ErrQueueNotStarted
	}
	if q.shutdown {
		q.mu.Unlock()
		return ErrQueueShutdown
	}
	q.mu.Unlock()

	select {
	case q.tasks <- task:
		return nil
	case <-q.ctx.Done():
		return ErrQueueShutdown
	}
}

// Shutdown stops accepting new tasks and waits for queued ones to finish
func (q *AsyncQueue) Shutdown() {
	q.mu.Lock()
	if !q.started || q.shutdown {
		q.mu.Unlock()
		return
	}
	q.shutdown = true
	q.mu.Unlock()

	close(q.tasks)
	q.wg.Wait()
}

// Stop immediately stops the queue without waiting for tasks to complete
func (q *AsyncQueue) Stop() {
	q.cancel()
	q.wg.Wait()
}
