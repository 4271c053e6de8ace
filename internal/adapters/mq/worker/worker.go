// Package worker drains the announcement queue into a delivery sink.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/okian/cfduel/internal/domain/model"
	"github.com/okian/cfduel/pkg/logger"
	"github.com/okian/cfduel/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerCount    = 1
	workerShutdownTimeout = 5 * time.Second
)

// Event is what workers read off the queue.
type Event = model.Announcement

// Sink delivers an announcement to its destination channel (chat
// webhook, log, test capture).
type Sink interface {
	Deliver(ctx context.Context, a Event) error
}

// Queue defines how workers receive announcements.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Event
}

// Worker drains announcements until its queue closes or it is stopped.
type Worker struct {
	queue Queue
	sink  Sink
	name  string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// Option applies a configuration option to the Worker.
type Option func(*Worker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *Worker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *Worker) {
		if l != nil {
			w.logger = l
		}
	}
}

// New creates a delivery worker.
func New(q Queue, sink Sink, opts ...Option) *Worker {
	w := &Worker{
		queue:    q,
		sink:     sink,
		name:     "announcer",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.logger == nil {
		w.logger = logger.Named(w.name)
	}

	return w
}

// Run starts the worker loop until ctx is canceled, the queue closes or
// Shutdown is called.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	events := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case a, ok := <-events:
			if !ok {
				return
			}
			w.deliver(ctx, a)
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *Worker) Shutdown(ctx context.Context) error {
	close(w.shutdown)

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *Worker) deliver(ctx context.Context, a Event) {
	if err := w.sink.Deliver(ctx, a); err != nil {
		// delivery is best-effort; the duel state already moved on
		w.logger.Error(ctx, "announcement delivery failed",
			logger.String("duel_id", a.DuelID),
			logger.String("kind", string(a.Kind)),
			logger.Error(err),
		)
		return
	}
	metrics.RecordAnnounceDelivered()
}

// Pool manages multiple delivery workers over one queue.
type Pool struct {
	workers []*Worker
	logger  logger.Logger
}

// NewPool creates a pool of workerCount workers.
func NewPool(workerCount int, q Queue, sink Sink) *Pool {
	if workerCount < 1 {
		workerCount = defaultWorkerCount
	}

	p := &Pool{
		workers: make([]*Worker, workerCount),
		logger:  logger.Named("announcer-pool"),
	}
	for i := range p.workers {
		p.workers[i] = New(q, sink, WithName("announcer-"+strconv.Itoa(i)))
	}
	return p
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown closes the queue (when it supports closing) and waits for the
// workers to drain.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := any(p.workers[0].queue).(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, workerShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	return nil
}
