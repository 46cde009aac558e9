package jobqueue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/velomart/velomart/app/models"
	"github.com/velomart/velomart/internal/pkg/metrics/counter"
	"github.com/velomart/velomart/internal/pkg/webhook"
)

// DeadLetterStore persists permanently failed deliveries. Satisfied by the
// dead letter repository.
type DeadLetterStore interface {
	Create(deadLetter *models.DeadLetter) error
}

// StatsRecorder mirrors queue status counts to an external store. Optional;
// a nil recorder disables mirroring.
type StatsRecorder interface {
	Incr(status JobStatus, delta int64)
}

// Queue retries webhook deliveries with bounded concurrency and exponential
// backoff. A delivery that keeps failing lands in the dead letter store.
type Queue struct {
	processor   webhook.Processor
	deadLetters DeadLetterStore
	metrics     *counter.Registry
	stats       StatsRecorder
	cfg         Config

	tasks   chan *Job
	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// NewQueue creates a webhook queue. The config is normalized except for
// MaxAttempts, which is honored as configured.
func NewQueue(processor webhook.Processor, deadLetters DeadLetterStore, metrics *counter.Registry, cfg Config) *Queue {
	if metrics == nil {
		metrics = counter.Default()
	}
	cfg = cfg.Normalize()

	return &Queue{
		processor:   processor,
		deadLetters: deadLetters,
		metrics:     metrics,
		cfg:         cfg,
		tasks:       make(chan *Job, cfg.BufferSize),
		stopCh:      make(chan struct{}),
	}
}

// WithStats attaches a stats recorder. Must be called before Start.
func (q *Queue) WithStats(stats StatsRecorder) *Queue {
	q.stats = stats
	return q
}

// Start starts the queue workers
func (q *Queue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.running {
		return
	}

	q.running = true
	log.Infof("[WebhookQueue] Starting %d workers", q.cfg.Concurrency)

	for i := 0; i < q.cfg.Concurrency; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}
}

// Stop stops the queue workers. Jobs waiting in a backoff window or still
// sitting in the buffer are dead lettered so nothing is silently lost across
// a restart.
func (q *Queue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.running {
		return
	}

	log.Info("[WebhookQueue] Stopping workers...")
	close(q.stopCh)
	q.running = false
	q.wg.Wait()

	// Workers may exit with jobs left in the buffer. Every enqueued delivery
	// must reach a terminal state, so drain them into the dead letter store.
	drained := 0
	for {
		select {
		case job := <-q.tasks:
			q.recordStats(JobStatusPending, -1)
			q.deadLetter(job, ErrQueueStopped)
			drained++
		default:
			if drained > 0 {
				log.Warnf("[WebhookQueue] Dead lettered %d buffered jobs on shutdown", drained)
			}
			log.Info("[WebhookQueue] All workers stopped")
			return
		}
	}
}

// Enqueue accepts a delivery for asynchronous processing. It never blocks:
// a saturated buffer is an error the caller can surface. The buffer send
// happens under the same lock Stop holds, so a job is either accepted before
// the shutdown drain runs or rejected with ErrQueueStopped.
func (q *Queue) Enqueue(payload []byte, signature string) (*Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.running {
		return nil, ErrQueueStopped
	}

	job := NewJob(payload, signature)

	select {
	case q.tasks <- job:
		q.metrics.Inc(counter.WebhookEnqueued)
		q.recordStats(JobStatusPending, 1)
		log.Infof("[WebhookQueue] Enqueued job %s (event=%s, reference=%s)", job.ID, job.Event, job.Reference)
		return job, nil
	default:
		return nil, ErrQueueFull
	}
}

// PendingSize returns the number of jobs waiting in the buffer.
func (q *Queue) PendingSize() int {
	return len(q.tasks)
}

// worker pulls jobs until the queue stops
func (q *Queue) worker(id int) {
	defer q.wg.Done()
	log.Infof("[WebhookQueue] Worker %d started", id)

	for {
		select {
		case <-q.stopCh:
			log.Infof("[WebhookQueue] Worker %d stopping", id)
			return
		case job := <-q.tasks:
			q.recordStats(JobStatusPending, -1)
			q.runJob(job)
		}
	}
}

// runJob drives one delivery through its attempt budget.
func (q *Queue) runJob(job *Job) {
	job.Status = JobStatusProcessing
	q.recordStats(JobStatusProcessing, 1)
	defer q.recordStats(JobStatusProcessing, -1)

	var lastErr error

	for job.Attempts < q.cfg.MaxAttempts {
		job.Attempts++

		result, err := q.processOnce(job)
		if err == nil {
			q.recordStats(JobStatusCompleted, 1)
			job.finish(JobStatusCompleted, result.Message, nil)
			return
		}

		lastErr = err
		q.metrics.Inc(counter.WebhookProcessedFailure)
		q.metrics.Inc(counter.WebhookRetryAttempts)
		log.Errorf("[WebhookQueue] Job %s attempt %d/%d failed: %v", job.ID, job.Attempts, q.cfg.MaxAttempts, err)

		if job.Attempts >= q.cfg.MaxAttempts {
			break
		}

		job.Status = JobStatusRetrying
		select {
		case <-time.After(q.cfg.BackoffFor(job.Attempts)):
			job.Status = JobStatusProcessing
		case <-q.stopCh:
			// Shutdown mid-backoff: record the delivery instead of dropping it.
			q.deadLetter(job, lastErr)
			return
		}
	}

	if lastErr == nil {
		// MaxAttempts <= 0 leaves no room for even one attempt.
		lastErr = errors.New("max attempts exhausted")
	}
	q.deadLetter(job, lastErr)
}

// processOnce runs a single attempt under the task timeout.
func (q *Queue) processOnce(job *Job) (webhook.Result, error) {
	ctx, cancel := context.WithTimeout(context.Background(), q.cfg.TaskTimeout)
	defer cancel()

	type outcome struct {
		result webhook.Result
		err    error
	}
	resultCh := make(chan outcome, 1)

	go func() {
		result, err := q.processor.Process(ctx, job.Payload, job.Signature)
		resultCh <- outcome{result: result, err: err}
	}()

	select {
	case out := <-resultCh:
		return out.result, out.err
	case <-ctx.Done():
		return webhook.Result{}, ErrTaskTimeout
	}
}

// deadLetter persists the exhausted delivery and finishes the job with its
// last error. A persistence failure is logged but never masks the
// processing error.
func (q *Queue) deadLetter(job *Job, lastErr error) {
	// job.Attempts counts attempts actually made. It stays 0 for jobs that
	// never ran (degenerate MaxAttempts, shutdown drain).
	attempts := job.Attempts

	record := &models.DeadLetter{
		Queue:     "webhook",
		Event:     job.Event,
		Reference: job.Reference,
		Payload:   string(job.Payload),
		Signature: job.Signature,
		Error:     lastErr.Error(),
		Attempts:  attempts,
	}

	if q.deadLetters != nil {
		if err := q.deadLetters.Create(record); err != nil {
			log.Errorf("[WebhookQueue] Failed to persist dead letter for job %s: %v", job.ID, err)
		}
	}

	q.metrics.Inc(counter.WebhookDeadLetterCount)
	q.recordStats(JobStatusFailed, 1)
	log.Errorf("[WebhookQueue] Job %s dead lettered after %d attempts: %v", job.ID, attempts, lastErr)

	job.finish(JobStatusFailed, "", fmt.Errorf("failed to process webhook: %w", lastErr))
}

func (q *Queue) recordStats(status JobStatus, delta int64) {
	if q.stats != nil {
		q.stats.Incr(status, delta)
	}
}
