package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/smartcontractkit/chainlink-common/pkg/logger"
	"github.com/smartcontractkit/chainlink-common/pkg/services"
)

var (
	ErrProcessStopped   = errors.New("worker process has stopped")
	ErrContextCancelled = errors.New("worker context cancelled")
)

const (
	// DefaultMaxRetryCount is the number of times a job will be retried before being abandoned.
	DefaultMaxRetryCount = 6
	// DefaultNotifyRetryDepth is the retry queue depth at which the worker group will log a warning.
	DefaultNotifyRetryDepth = 200
	// DefaultNotifyQueueDepth is the queue depth at which the worker group will log a warning.
	DefaultNotifyQueueDepth = 100

	minRetryBackoff = 200 * time.Millisecond
	maxRetryBackoff = 6400 * time.Millisecond
)

type worker struct {
	Name  string
	Queue chan *worker
	Retry chan failedJob
	Lggr  logger.SugaredLogger
}

func (w *worker) Do(ctx context.Context, job Job) {
	if ctx.Err() == nil {
		start := time.Now()
		w.Lggr.Debugf("%s starting job %s", w.Name, job)
		if err := job.Run(ctx); err != nil {
			w.Lggr.Errorf("job %s failed with error; retrying: %s", job, err)
			select {
			case w.Retry <- failedJob{job: job, err: err}:
			case <-ctx.Done():
			}
		}
		w.Lggr.Debugf("%s finished job %s in %s", w.Name, job, time.Since(start))
	}

	// put itself back on the queue when done
	select {
	case w.Queue <- w:
	default:
	}
}

// Group runs jobs on a bounded set of workers. A job that fails is retried with exponential backoff
// until it succeeds or exceeds the max retry count, at which point it is abandoned.
type Group struct {
	// service state management
	services.Service
	engine *services.Engine

	// dependencies and configuration
	maxRetryCount uint8
	lggr          logger.SugaredLogger

	// worker group state
	workers       chan *worker
	queue         *queue[Job]
	input         chan Job
	chInputNotify chan struct{}

	chStopInputs chan struct{}
	queueClosed  atomic.Bool

	// retry queue
	chRetry  chan failedJob
	mu       sync.RWMutex
	retryMap map[string]retryableJob
}

func NewGroup(workers int, maxRetryCount uint8, lggr logger.Logger) *Group {
	g := &Group{
		maxRetryCount: maxRetryCount,
		workers:       make(chan *worker, workers),
		lggr:          logger.Sugared(logger.Named(lggr, "WorkerGroup")),
		queue:         newQueue[Job](0),
		input:         make(chan Job, 1),
		chInputNotify: make(chan struct{}, 1),
		chStopInputs:  make(chan struct{}),
		chRetry:       make(chan failedJob, 1),
		retryMap:      make(map[string]retryableJob),
	}

	g.Service, g.engine = services.Config{
		Name:  "WorkerGroup",
		Start: g.start,
		Close: g.close,
	}.NewServiceEngine(lggr)

	for idx := range workers {
		g.workers <- &worker{
			Name:  fmt.Sprintf("worker-%d", idx+1),
			Queue: g.workers,
			Retry: g.chRetry,
			Lggr:  g.lggr,
		}
	}

	return g
}

var _ services.Service = &Group{}

func (g *Group) start(_ context.Context) error {
	g.engine.Go(g.runQueuing)
	g.engine.Go(g.runProcessing)
	g.engine.Go(g.runRetryQueue)
	g.engine.Go(g.runRetries)

	return nil
}

func (g *Group) close() error {
	if !g.queueClosed.Load() {
		g.queueClosed.Store(true)
		close(g.chStopInputs)
	}

	return nil
}

// Do adds a new work item onto the work queue. This function blocks until
// the work queue clears up or the context is cancelled.
func (g *Group) Do(ctx context.Context, job Job) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%w; work not added to queue", ErrContextCancelled)
	}

	if g.queueClosed.Load() {
		return fmt.Errorf("%w; work not added to queue", ErrProcessStopped)
	}

	select {
	case g.input <- job:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w; work not added to queue", ErrContextCancelled)
	case <-g.chStopInputs:
		return fmt.Errorf("%w; work not added to queue", ErrProcessStopped)
	}
}

func (g *Group) runQueuing(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case item := <-g.input:
			g.queue.Add(item)

			// drop if notification channel is full
			select {
			case g.chInputNotify <- struct{}{}:
			default:
			}
		}
	}
}

func (g *Group) runProcessing(ctx context.Context) {
	for {
		select {
		case <-g.chInputNotify:
			g.processQueue(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (g *Group) runRetryQueue(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case failed := <-g.chRetry:
			var retry retryableJob

			switch typedJob := failed.job.(type) {
			case retryableJob:
				retry = typedJob
				retry.count++

				if retry.count >= g.maxRetryCount {
					g.abandon(retry, failed.err)
					continue
				}
			default:
				retry = retryableJob{
					name:    uuid.NewString(),
					job:     failed.job,
					backoff: newBackoff(),
				}
				if g.maxRetryCount == 0 {
					g.abandon(retry, failed.err)
					continue
				}
			}

			wait := retry.backoff.NextBackOff()
			g.lggr.Infof("retrying job %s in %s (%d/%d)", retry, wait, retry.count+1, g.maxRetryCount)
			retry.when = time.Now().Add(wait)

			g.mu.Lock()
			g.retryMap[retry.name] = retry

			if len(g.retryMap) >= DefaultNotifyRetryDepth {
				g.lggr.Warnf("retry queue depth: %d", len(g.retryMap))
			}
			g.mu.Unlock()
		}
	}
}

func (g *Group) abandon(retry retryableJob, err error) {
	g.lggr.Errorw("Abandoning job after max retries", "job", retry.String(), "retries", g.maxRetryCount, "err", err)

	if a, ok := retry.job.(Abandonable); ok {
		a.Abandon(err)
	}
}

func (g *Group) runRetries(ctx context.Context) {
	for {
		// run timer on minimum backoff
		timer := time.NewTimer(minRetryBackoff)

		select {
		case <-ctx.Done():
			timer.Stop()

			return
		case <-timer.C:
			now := time.Now()

			g.mu.Lock()
			retries := make([]retryableJob, 0, len(g.retryMap))
			for key, retry := range g.retryMap {
				if now.After(retry.when) {
					retries = append(retries, retry)
					delete(g.retryMap, key)
				}
			}
			g.mu.Unlock()

			for _, retry := range retries {
				g.doJob(ctx, retry)
			}
		}
	}
}

func (g *Group) processQueue(ctx context.Context) {
	for {
		if g.queue.Len() >= DefaultNotifyQueueDepth {
			g.lggr.Warnf("queue depth: %d", g.queue.Len())
		}

		value, err := g.queue.Pop()

		// an error from pop means there is nothing to pop
		if err != nil {
			break
		}

		g.doJob(ctx, value)
	}
}

func (g *Group) doJob(ctx context.Context, job Job) {
	select {
	case wkr := <-g.workers:
		go wkr.Do(ctx, job)
	case <-ctx.Done():
	}
}

// newBackoff yields 200ms, 400ms, 800ms and so on, capped at 6.4s.
func newBackoff() backoff.BackOff {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     minRetryBackoff,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         maxRetryBackoff,
		MaxElapsedTime:      0,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
	b.Reset()
	return b
}

type queue[T any] struct {
	mu     sync.RWMutex
	values []T
}

func newQueue[T any](capacity uint) *queue[T] {
	return &queue[T]{
		values: make([]T, 0, capacity),
	}
}

func (q *queue[T]) Add(values ...T) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.values = append(q.values, values...)
}

func (q *queue[T]) Pop() (T, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.values) == 0 {
		var zero T
		return zero, errors.New("no values to return")
	}

	val := q.values[0]
	q.values = q.values[1:]

	return val, nil
}

func (q *queue[T]) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()

	return len(q.values)
}
