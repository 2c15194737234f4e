// Package worker drains the submission queue and hands payloads to the backend.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/hush/internal/adapters/mq/queue"
	"github.com/okian/hush/internal/domain/attribution"
	"github.com/okian/hush/internal/domain/model"
	"github.com/okian/hush/pkg/logger"
	"github.com/okian/hush/pkg/metrics"
)

const defaultSubmitTimeout = 10 * time.Second

// Submission abstracts what workers read off the queue.
type Submission = model.Submission

// Queue defines how workers receive submissions.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Submission
}

// receiver is implemented by queues that track consumption.
type receiver interface {
	Received()
}

// Counters tracks submission outcomes across workers.
type Counters struct {
	submitted atomic.Int64
	failed    atomic.Int64
}

// Submitted returns the number of accepted submissions.
func (c *Counters) Submitted() int64 { return c.submitted.Load() }

// Failed returns the number of failed submissions.
func (c *Counters) Failed() int64 { return c.failed.Load() }

// Worker submits queued payloads one at a time. Failures are logged and
// counted; nothing is retried.
type Worker struct {
	queue     Queue
	submitter attribution.Submitter
	counters  *Counters
	name      string
	timeout   time.Duration

	done   chan struct{}
	logger logger.Logger
}

// NewWorker creates a worker.
func NewWorker(q Queue, s attribution.Submitter, opts ...Option) *Worker {
	w := &Worker{
		queue:     q,
		submitter: s,
		counters:  &Counters{},
		name:      "worker",
		timeout:   defaultSubmitTimeout,
		done:      make(chan struct{}),
		logger:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run processes submissions until the queue is closed and drained or ctx
// is cancelled.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	ch := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case s, ok := <-ch:
			if !ok {
				return
			}
			if r, ok := w.queue.(receiver); ok {
				r.Received()
			}
			if err := w.process(ctx, s); err != nil {
				w.logger.Warn(ctx, "submission failed",
					logger.String("entry_id", s.EntryID), logger.Error(err))
			}
		}
	}
}

// Counters returns the worker's submission counters.
func (w *Worker) Counters() *Counters { return w.counters }

// Done is closed when Run returns.
func (w *Worker) Done() <-chan struct{} { return w.done }

func (w *Worker) process(ctx context.Context, s Submission) error {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	sctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	ack, err := w.submitter.Submit(sctx, s.Payload)
	metrics.RecordSubmissionLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		w.counters.failed.Add(1)
		metrics.RecordSubmission(metrics.SubmissionFailed)
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "submit_error")
		return fmt.Errorf("submit entry %s: %w", s.EntryID, err)
	}

	w.counters.submitted.Add(1)
	metrics.RecordSubmission(metrics.SubmissionOK)
	w.logger.Debug(ctx, "submission acknowledged",
		logger.String("entry_id", s.EntryID),
		logger.String("status", ack.Status),
		logger.Duration("queued_for", start.Sub(s.EnqueuedAt)))
	return nil
}

// Pool manages multiple workers sharing one queue and one set of counters.
type Pool struct {
	workers  []*Worker
	queue    Queue
	counters *Counters
	logger   logger.Logger
	once     sync.Once
}

// NewPool creates a pool of workerCount workers. workerCount < 1 uses NumCPU.
func NewPool(workerCount int, q Queue, s attribution.Submitter, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}
	p := &Pool{
		workers:  make([]*Worker, workerCount),
		queue:    q,
		counters: &Counters{},
		logger:   logger.Nop(),
	}
	for i := range p.workers {
		wopts := append([]Option{}, opts...)
		wopts = append(wopts, WithName("worker-"+strconv.Itoa(i)), withCounters(p.counters))
		p.workers[i] = NewWorker(q, s, wopts...)
	}
	tmpl := &Worker{logger: logger.Nop()}
	for _, opt := range opts {
		opt(tmpl)
	}
	p.logger = tmpl.logger.Named("worker-pool")
	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Counters returns the shared submission counters.
func (p *Pool) Counters() *Counters { return p.counters }

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown closes the queue and waits for workers to drain it or for ctx to end.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.once.Do(func() {
		if closer, ok := p.queue.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil {
				p.logger.Error(ctx, "error closing queue", logger.Error(err))
			}
		}
	})

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-ctx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			return fmt.Errorf("shutdown timed out: %w", ctx.Err())
		}
	}
	metrics.UpdateWorkerCount(0)
	return nil
}

// compile-time check
var _ Queue = (*queue.InMemoryQueue)(nil)
