// Package worker runs the pool that turns profile-created triggers into
// match notifications.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/okian/matchwise/internal/domain/model"
	"github.com/okian/matchwise/pkg/logger"
	"github.com/okian/matchwise/pkg/metrics"
)

const (
	defaultEventTimeout = 2 * time.Minute
	poolShutdownTimeout = 30 * time.Second
)

// Handler processes one trigger.
type Handler interface {
	HandleProfileCreated(ctx context.Context, e model.ProfileCreated) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, e model.ProfileCreated) error

func (f HandlerFunc) HandleProfileCreated(ctx context.Context, e model.ProfileCreated) error {
	return f(ctx, e)
}

// Queue defines how workers receive events.
type Queue interface {
	Dequeue() <-chan model.ProfileCreated
}

// InMemoryWorker consumes events until the queue drains or it is stopped.
type InMemoryWorker struct {
	queue        Queue
	handler      Handler
	name         string
	eventTimeout time.Duration

	done   chan struct{}
	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, handler Handler, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:        queue,
		handler:      handler,
		name:         "worker",
		eventTimeout: defaultEventTimeout,
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Named(w.name)
	}
	return w
}

// Run processes events until the queue channel closes or ctx ends.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	events := w.queue.Dequeue()
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			metrics.RecordQueueDequeue()
			_ = w.process(ctx, e)
		}
	}
}

// Done is closed when Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} { return w.done }

func (w *InMemoryWorker) process(ctx context.Context, e model.ProfileCreated) error {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	ctx, cancel := context.WithTimeout(ctx, w.eventTimeout)
	defer cancel()

	if err := w.handler.HandleProfileCreated(ctx, e); err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "handler_error")
		metrics.RecordErrorByType("handler_error", "medium")
		w.logger.Error(ctx, "profile-created handling failed",
			logger.String("eventId", e.EventID),
			logger.String("uid", e.UID),
			logger.Error(err),
		)
		return fmt.Errorf("handle event %s: %w", e.EventID, err)
	}
	w.logger.Debug(ctx, "profile-created handled", logger.String("uid", e.UID), logger.Duration("took", time.Since(start)))
	return nil
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	cancel  context.CancelFunc
	stop    sync.Once
	logger  logger.Logger
}

// NewPool creates a pool of workerCount workers. A non-positive count
// means one worker per CPU.
func NewPool(workerCount int, queue Queue, handler Handler, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}
	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   queue,
		logger:  logger.Named("worker-pool"),
	}
	for i := range workerCount {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		p.workers[i] = NewInMemoryWorker(queue, handler, wopts...)
	}
	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start launches every worker. Canceling ctx abandons in-flight events.
func (p *Pool) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	p.logger.Info(ctx, "worker pool started", logger.Int("workers", len(p.workers)))
}

// Shutdown closes the queue and waits for workers to drain it. Workers
// still busy when ctx (or the pool timeout) ends are canceled.
func (p *Pool) Shutdown(ctx context.Context) error {
	var err error
	p.stop.Do(func() {
		if closer, ok := p.queue.(interface{ Close() error }); ok {
			if cerr := closer.Close(); cerr != nil {
				p.logger.Error(ctx, "error closing queue", logger.Error(cerr))
			}
		}

		shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
		defer cancel()
		for i, w := range p.workers {
			select {
			case <-w.done:
			case <-shutdownCtx.Done():
				p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
				err = fmt.Errorf("worker pool shutdown: %w", shutdownCtx.Err())
			}
			if err != nil {
				break
			}
		}
		if p.cancel != nil {
			p.cancel()
		}
		metrics.UpdateWorkerCount(0)
	})
	return err
}
