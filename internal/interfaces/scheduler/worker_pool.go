package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var (
	jobTracer          = otel.Tracer("bankapi/scheduler")
	jobMeter           = otel.Meter("bankapi/scheduler")
	jobDuration, _     = jobMeter.Float64Histogram("scheduler.job.duration", metric.WithDescription("Job execution duration in seconds"), metric.WithUnit("s"))
	jobTotal, _        = jobMeter.Int64Counter("scheduler.job.total", metric.WithDescription("Total jobs executed by status"))
	jobQueueDropped, _ = jobMeter.Int64Counter("scheduler.job.queue_dropped", metric.WithDescription("Jobs dropped due to full queue"))
)

// DefaultJobTimeout bounds a single job execution.
const DefaultJobTimeout = 2 * time.Minute

// WorkerPool runs jobs on a fixed number of goroutines fed by a buffered
// channel.
type WorkerPool struct {
	workerCount int
	jobDelay    time.Duration
	jobTimeout  time.Duration
	jobs        chan Job
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	log         *zap.Logger
}

// NewWorkerPool creates a new worker pool.
// workerCount: number of concurrent workers (goroutines)
// jobDelay: pause after each job, for rate limiting
// queueSize: buffer size for the job channel
func NewWorkerPool(workerCount int, jobDelay time.Duration, queueSize int, log *zap.Logger) *WorkerPool {
	ctx, cancel := context.WithCancel(context.Background())

	return &WorkerPool{
		workerCount: workerCount,
		jobDelay:    jobDelay,
		jobTimeout:  DefaultJobTimeout,
		jobs:        make(chan Job, queueSize),
		ctx:         ctx,
		cancel:      cancel,
		log:         log,
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start() {
	wp.log.Info("starting worker pool", zap.Int("workers", wp.workerCount))

	for i := 1; i <= wp.workerCount; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// worker processes jobs until the channel is closed or the pool is cancelled.
func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	wlog := wp.log.With(zap.Int("worker", id))
	wlog.Debug("worker started")

	for {
		select {
		case <-wp.ctx.Done():
			wlog.Debug("worker shutting down")
			return

		case job, ok := <-wp.jobs:
			if !ok {
				wlog.Debug("job channel closed")
				return
			}

			wp.processJob(wlog, id, job)

			if wp.jobDelay > 0 {
				select {
				case <-time.After(wp.jobDelay):
				case <-wp.ctx.Done():
					wlog.Debug("worker shutting down during delay")
					return
				}
			}
		}
	}
}

// processJob executes a single job with error handling, logging, and telemetry.
func (wp *WorkerPool) processJob(wlog *zap.Logger, workerID int, job Job) {
	ctx, cancel := context.WithTimeout(wp.ctx, wp.jobTimeout)
	defer cancel()

	ctx, span := jobTracer.Start(ctx, "job.execute",
		trace.WithAttributes(
			attribute.Int("worker.id", workerID),
			attribute.String("job.description", job.Description()),
			attribute.String("job.key", job.Key()),
		),
	)
	defer span.End()

	start := time.Now()

	if err := job.Execute(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		jobTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("status", "error")))
		jobDuration.Record(ctx, time.Since(start).Seconds())
		wlog.Warn("job failed",
			zap.String("job", job.Description()),
			zap.Error(err),
		)
		return
	}

	jobTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("status", "success")))
	jobDuration.Record(ctx, time.Since(start).Seconds())
	wlog.Debug("job completed",
		zap.String("job", job.Description()),
		zap.Duration("elapsed", time.Since(start)),
	)
}

// Submit adds a job to the queue without blocking.
// Returns an error if the pool is shut down or the queue is full.
func (wp *WorkerPool) Submit(job Job) error {
	select {
	case <-wp.ctx.Done():
		return wp.ctx.Err()
	case wp.jobs <- job:
		return nil
	default:
		jobQueueDropped.Add(context.Background(), 1)
		wp.log.Warn("job queue full, dropping job", zap.String("job", job.Description()))
		return fmt.Errorf("job queue full, dropping job %s", job.Key())
	}
}

// Enqueue adds a job to the queue, waiting for room until ctx is done.
func (wp *WorkerPool) Enqueue(ctx context.Context, job Job) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-wp.ctx.Done():
		return wp.ctx.Err()
	case wp.jobs <- job:
		return nil
	}
}

// SubmitBatch enqueues jobs in order and returns how many were accepted.
func (wp *WorkerPool) SubmitBatch(ctx context.Context, jobs []Job) int {
	submitted := 0
	for _, job := range jobs {
		if err := wp.Enqueue(ctx, job); err != nil {
			wp.log.Warn("failed to submit job", zap.String("job", job.Description()), zap.Error(err))
			continue
		}
		submitted++
	}
	wp.log.Info("submitted jobs to worker pool", zap.Int("submitted", submitted), zap.Int("total", len(jobs)))
	return submitted
}

// Shutdown closes the queue, waits for workers to drain it, then cancels
// the pool context.
func (wp *WorkerPool) Shutdown() {
	wp.log.Debug("worker pool: initiating graceful shutdown")

	close(wp.jobs)
	wp.wg.Wait()
	wp.cancel()

	wp.log.Debug("worker pool: shutdown complete")
}

// ShutdownWithTimeout is Shutdown that cancels in-flight jobs once timeout
// elapses. It reports whether the workers finished on their own.
func (wp *WorkerPool) ShutdownWithTimeout(timeout time.Duration) bool {
	close(wp.jobs)

	done := make(chan struct{})
	go func() {
		wp.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		wp.cancel()
		wp.log.Debug("worker pool: all workers finished gracefully")
		return true
	case <-time.After(timeout):
		wp.log.Warn("worker pool: timeout reached, forcing shutdown", zap.Duration("timeout", timeout))
		wp.cancel()
		<-done
		return false
	}
}
