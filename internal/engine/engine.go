// Package engine runs jobs on named executors with a bounded number of workers and hands back
// futures for their results.
//
// A job submitted with Submit holds one worker of its executor while it runs and is cancelled
// once it exceeds the executor's walltime. A function started with Subflow holds no worker, so it
// may itself submit jobs and wait on them without starving the pool.
package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/G-Research/phononflow/internal/common/flowerrors"
	"github.com/G-Research/phononflow/internal/phononflow/configuration"
	"github.com/G-Research/phononflow/internal/provisioning"
)

const (
	outcomeSucceeded = "succeeded"
	outcomeFailed    = "failed"
	outcomeCancelled = "cancelled"
	outcomeTimedOut  = "timed_out"
)

type executor struct {
	label    string
	capacity int64
	walltime time.Duration
	slots    *semaphore.Weighted

	submitted int64
	running   int64
	finished  int64
}

// ExecutorStats is a point in time view of one executor.
type ExecutorStats struct {
	Label     string
	Capacity  int64
	Submitted int64
	Running   int64
	Finished  int64
}

type Engine struct {
	executors map[string]*executor
	labels    []string
	metrics   *metrics
	wg        sync.WaitGroup
}

// New creates an engine with one executor per config. Metrics are registered with reg.
func New(configs []configuration.ExecutorConfig, reg prometheus.Registerer) (*Engine, error) {
	if len(configs) == 0 {
		return nil, &flowerrors.ErrInvalidArgument{Name: "executors", Value: 0, Message: "at least one executor is required"}
	}
	e := &Engine{
		executors: make(map[string]*executor, len(configs)),
		metrics:   newMetrics(reg),
	}
	for _, config := range configs {
		if _, exists := e.executors[config.Label]; exists {
			return nil, &flowerrors.ErrInvalidArgument{Name: "label", Value: config.Label, Message: "executor labels must be unique"}
		}
		capacity := provisioning.Capacity(config)
		e.executors[config.Label] = &executor{
			label:    config.Label,
			capacity: capacity,
			walltime: config.Provider.Walltime.Duration(),
			slots:    semaphore.NewWeighted(capacity),
		}
		e.labels = append(e.labels, config.Label)
		e.metrics.capacity.WithLabelValues(config.Label).Set(float64(capacity))
		log.WithFields(log.Fields{
			"executor": config.Label,
			"capacity": capacity,
			"walltime": config.Provider.Walltime,
		}).Info("Executor ready")
	}
	return e, nil
}

func (e *Engine) Labels() []string {
	return append([]string{}, e.labels...)
}

func (e *Engine) Stats() []ExecutorStats {
	stats := make([]ExecutorStats, 0, len(e.labels))
	for _, label := range e.labels {
		ex := e.executors[label]
		stats = append(stats, ExecutorStats{
			Label:     label,
			Capacity:  ex.capacity,
			Submitted: atomic.LoadInt64(&ex.submitted),
			Running:   atomic.LoadInt64(&ex.running),
			Finished:  atomic.LoadInt64(&ex.finished),
		})
	}
	return stats
}

// Wait blocks until every job and subflow has resolved. It returns true if timeout passed first.
func (e *Engine) Wait(timeout time.Duration) bool {
	c := make(chan struct{})
	go func() {
		defer close(c)
		e.wg.Wait()
	}()
	select {
	case <-c:
		return false
	case <-time.After(timeout):
		return true
	}
}

// Submit runs fn as a job on the executor called label once one of its workers is free.
// fn is given a context that expires after the executor's walltime.
func Submit[T any](ctx context.Context, e *Engine, label, name string, fn func(context.Context) (T, error)) *Future[T] {
	f := newFuture[T](name)
	ex, ok := e.executors[label]
	if !ok {
		var zero T
		f.resolve(zero, &flowerrors.ErrNotFound{Type: "executor", Value: label})
		return f
	}

	atomic.AddInt64(&ex.submitted, 1)
	e.metrics.submitted.WithLabelValues(label).Inc()
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		logger := log.WithFields(log.Fields{"executor": label, "job": name})

		if err := acquire(ctx, ex.slots); err != nil {
			atomic.AddInt64(&ex.finished, 1)
			e.metrics.finished.WithLabelValues(label, outcomeCancelled).Inc()
			var zero T
			f.resolve(zero, errors.WithMessagef(err, "job %s cancelled while waiting for a worker", name))
			return
		}
		atomic.AddInt64(&ex.running, 1)
		e.metrics.busy.WithLabelValues(label).Inc()
		logger.Debug("Job started")

		start := time.Now()
		value, err := runJob(ctx, ex, name, fn)
		outcome := outcomeOf(err)

		ex.slots.Release(1)
		atomic.AddInt64(&ex.running, -1)
		atomic.AddInt64(&ex.finished, 1)
		e.metrics.busy.WithLabelValues(label).Dec()
		e.metrics.finished.WithLabelValues(label, outcome).Inc()
		e.metrics.duration.WithLabelValues(label, outcome).Observe(time.Since(start).Seconds())
		logger.WithField("outcome", outcome).Debugf("Job finished in %s", time.Since(start))

		f.resolve(value, err)
	}()
	return f
}

// Subflow runs fn without holding a worker. fn typically submits jobs and waits on their futures.
func Subflow[T any](ctx context.Context, e *Engine, name string, fn func(context.Context) (T, error)) *Future[T] {
	f := newFuture[T](name)
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		value, err := call(ctx, name, fn)
		f.resolve(value, err)
	}()
	return f
}

// acquire takes one worker. Unlike semaphore.Acquire it fails on a done context even when a
// worker is free.
func acquire(ctx context.Context, slots *semaphore.Weighted) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return slots.Acquire(ctx, 1)
}

func runJob[T any](ctx context.Context, ex *executor, name string, fn func(context.Context) (T, error)) (T, error) {
	jobCtx, cancel := ctx, context.CancelFunc(func() {})
	if ex.walltime > 0 {
		jobCtx, cancel = context.WithTimeout(ctx, ex.walltime)
	}
	defer cancel()

	value, err := call(jobCtx, name, fn)
	if err != nil && errors.Is(jobCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return value, &flowerrors.ErrWalltimeExceeded{Job: name, Walltime: ex.walltime}
	}
	return value, err
}

// call runs fn, turning a panic into an error.
func call[T any](ctx context.Context, name string, fn func(context.Context) (T, error)) (value T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("%s panicked: %v", name, r)
		}
	}()
	return fn(ctx)
}

func outcomeOf(err error) string {
	if err == nil {
		return outcomeSucceeded
	}
	var timeout *flowerrors.ErrWalltimeExceeded
	if errors.As(err, &timeout) {
		return outcomeTimedOut
	}
	if errors.Is(err, context.Canceled) {
		return outcomeCancelled
	}
	return outcomeFailed
}
