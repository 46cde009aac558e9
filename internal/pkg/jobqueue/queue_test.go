package jobqueue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velomart/velomart/app/models"
	"github.com/velomart/velomart/internal/pkg/metrics/counter"
	"github.com/velomart/velomart/internal/pkg/webhook"
)

type fakeProcessor struct {
	fn    func(attempt int64) (webhook.Result, error)
	calls int64
}

func (p *fakeProcessor) Process(_ context.Context, _ []byte, _ string) (webhook.Result, error) {
	attempt := atomic.AddInt64(&p.calls, 1)
	return p.fn(attempt)
}

func (p *fakeProcessor) Calls() int64 {
	return atomic.LoadInt64(&p.calls)
}

type fakeDeadLetterStore struct {
	mu      sync.Mutex
	records []*models.DeadLetter
	err     error
}

func (s *fakeDeadLetterStore) Create(deadLetter *models.DeadLetter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, deadLetter)
	return nil
}

func (s *fakeDeadLetterStore) Records() []*models.DeadLetter {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.DeadLetter, len(s.records))
	copy(out, s.records)
	return out
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Concurrency = 2
	cfg.MaxAttempts = 3
	cfg.BaseBackoff = time.Millisecond
	cfg.MaxBackoff = 5 * time.Millisecond
	cfg.MaxJitter = 0
	cfg.TaskTimeout = time.Second
	return cfg
}

func waitForJob(t *testing.T, job *Job) {
	t.Helper()
	select {
	case <-job.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("job did not finish in time")
	}
}

func TestQueueProcessesJobFirstTry(t *testing.T) {
	processor := &fakeProcessor{fn: func(int64) (webhook.Result, error) {
		return webhook.Result{Message: webhook.MsgOrderPaymentProcessed}, nil
	}}
	store := &fakeDeadLetterStore{}
	metrics := counter.NewRegistry()

	q := NewQueue(processor, store, metrics, testConfig())
	q.Start()
	defer q.Stop()

	job, err := q.Enqueue([]byte(`{"event":"charge.success","data":{"reference":"PAY-1"}}`), "sig")
	require.NoError(t, err)

	waitForJob(t, job)

	require.NoError(t, job.Err())
	assert.Equal(t, webhook.MsgOrderPaymentProcessed, job.Message())
	assert.Equal(t, JobStatusCompleted, job.Status)
	assert.Equal(t, 1, job.Attempts)
	assert.Empty(t, store.Records())
	assert.Equal(t, int64(1), metrics.Get(counter.WebhookEnqueued))
	assert.Equal(t, int64(0), metrics.Get(counter.WebhookProcessedFailure))
}

func TestQueueRetriesUntilSuccess(t *testing.T) {
	processor := &fakeProcessor{fn: func(attempt int64) (webhook.Result, error) {
		if attempt < 3 {
			return webhook.Result{}, errors.New("transient")
		}
		return webhook.Result{Message: webhook.MsgOrderPaymentProcessed}, nil
	}}
	store := &fakeDeadLetterStore{}
	metrics := counter.NewRegistry()

	q := NewQueue(processor, store, metrics, testConfig())
	q.Start()
	defer q.Stop()

	job, err := q.Enqueue([]byte(`{}`), "sig")
	require.NoError(t, err)

	waitForJob(t, job)

	require.NoError(t, job.Err())
	assert.Equal(t, 3, job.Attempts)
	assert.Empty(t, store.Records())
	assert.Equal(t, int64(2), metrics.Get(counter.WebhookRetryAttempts))
	assert.Equal(t, int64(2), metrics.Get(counter.WebhookProcessedFailure))
	assert.Equal(t, int64(0), metrics.Get(counter.WebhookDeadLetterCount))
}

func TestQueueDeadLettersAfterExhaustion(t *testing.T) {
	processor := &fakeProcessor{fn: func(int64) (webhook.Result, error) {
		return webhook.Result{}, errors.New("permanent failure")
	}}
	store := &fakeDeadLetterStore{}
	metrics := counter.NewRegistry()

	q := NewQueue(processor, store, metrics, testConfig())
	q.Start()
	defer q.Stop()

	payload := []byte(`{"event":"charge.success","data":{"reference":"PAY-dead"}}`)
	job, err := q.Enqueue(payload, "sig-1")
	require.NoError(t, err)

	waitForJob(t, job)

	require.Error(t, job.Err())
	assert.Contains(t, job.Err().Error(), "failed to process webhook")
	assert.Contains(t, job.Err().Error(), "permanent failure")
	assert.Equal(t, JobStatusFailed, job.Status)
	assert.Equal(t, int64(3), processor.Calls())

	records := store.Records()
	require.Len(t, records, 1)
	record := records[0]
	assert.Equal(t, "webhook", record.Queue)
	assert.Equal(t, "charge.success", record.Event)
	assert.Equal(t, "PAY-dead", record.Reference)
	assert.Equal(t, string(payload), record.Payload)
	assert.Equal(t, "sig-1", record.Signature)
	assert.Equal(t, 3, record.Attempts)
	assert.Contains(t, record.Error, "permanent failure")

	assert.Equal(t, int64(1), metrics.Get(counter.WebhookDeadLetterCount))
	assert.Equal(t, int64(3), metrics.Get(counter.WebhookProcessedFailure))
	assert.Equal(t, int64(3), metrics.Get(counter.WebhookRetryAttempts))
}

func TestQueueDeadLettersWhenNoAttemptsAllowed(t *testing.T) {
	for _, maxAttempts := range []int{0, -2} {
		processor := &fakeProcessor{fn: func(int64) (webhook.Result, error) {
			return webhook.Result{Message: "never called"}, nil
		}}
		store := &fakeDeadLetterStore{}

		cfg := testConfig()
		cfg.MaxAttempts = maxAttempts

		q := NewQueue(processor, store, counter.NewRegistry(), cfg)
		q.Start()

		job, err := q.Enqueue([]byte(`{}`), "sig")
		require.NoError(t, err)

		waitForJob(t, job)
		q.Stop()

		require.Error(t, job.Err())
		assert.Contains(t, job.Err().Error(), "max attempts exhausted")
		assert.Equal(t, int64(0), processor.Calls())

		records := store.Records()
		require.Len(t, records, 1)
		assert.Contains(t, records[0].Error, "max attempts exhausted")
		// No attempt ever ran, so the recorded count is zero rather than the
		// configured budget.
		assert.Equal(t, 0, records[0].Attempts)
	}
}

func TestQueueStopDeadLettersBufferedJobs(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	processor := &fakeProcessor{fn: func(int64) (webhook.Result, error) {
		<-release
		return webhook.Result{}, nil
	}}
	store := &fakeDeadLetterStore{}

	cfg := testConfig()
	cfg.Concurrency = 1
	cfg.MaxAttempts = 1
	cfg.TaskTimeout = 20 * time.Millisecond

	q := NewQueue(processor, store, counter.NewRegistry(), cfg)
	q.Start()

	first, err := q.Enqueue([]byte(`{}`), "sig")
	require.NoError(t, err)

	// Wait until the worker is busy with the first job, then fill the buffer
	// behind it.
	require.Eventually(t, func() bool {
		return q.PendingSize() == 0
	}, time.Second, time.Millisecond)

	buffered := make([]*Job, 0, 3)
	for i := 0; i < 3; i++ {
		job, err := q.Enqueue([]byte(`{"event":"charge.success","data":{"reference":"PAY-buffered"}}`), "sig")
		require.NoError(t, err)
		buffered = append(buffered, job)
	}

	q.Stop()

	// Every accepted delivery reaches a terminal state. Jobs still sitting in
	// the buffer when the workers exit are dead lettered, not dropped.
	waitForJob(t, first)
	for _, job := range buffered {
		waitForJob(t, job)
		require.Error(t, job.Err())
		assert.Equal(t, JobStatusFailed, job.Status)
	}
	assert.Len(t, store.Records(), 4)
	assert.Equal(t, 0, q.PendingSize())

	_, err = q.Enqueue([]byte(`{}`), "sig")
	assert.ErrorIs(t, err, ErrQueueStopped)
}

func TestQueueTimesOutSlowAttempts(t *testing.T) {
	block := make(chan struct{})
	defer close(block)

	processor := &fakeProcessor{fn: func(int64) (webhook.Result, error) {
		<-block
		return webhook.Result{}, nil
	}}
	store := &fakeDeadLetterStore{}

	cfg := testConfig()
	cfg.MaxAttempts = 1
	cfg.TaskTimeout = 20 * time.Millisecond

	q := NewQueue(processor, store, counter.NewRegistry(), cfg)
	q.Start()
	defer q.Stop()

	job, err := q.Enqueue([]byte(`{}`), "sig")
	require.NoError(t, err)

	waitForJob(t, job)

	require.Error(t, job.Err())
	assert.ErrorIs(t, job.Err(), ErrTaskTimeout)

	records := store.Records()
	require.Len(t, records, 1)
	assert.Contains(t, records[0].Error, "timed out")
}

func TestQueueRejectsEnqueueAfterStop(t *testing.T) {
	processor := &fakeProcessor{fn: func(int64) (webhook.Result, error) {
		return webhook.Result{}, nil
	}}

	q := NewQueue(processor, &fakeDeadLetterStore{}, counter.NewRegistry(), testConfig())
	q.Start()
	q.Stop()

	_, err := q.Enqueue([]byte(`{}`), "sig")
	assert.ErrorIs(t, err, ErrQueueStopped)
}

func TestQueueRejectsEnqueueWhenFull(t *testing.T) {
	block := make(chan struct{})
	defer close(block)

	processor := &fakeProcessor{fn: func(int64) (webhook.Result, error) {
		<-block
		return webhook.Result{}, nil
	}}

	cfg := testConfig()
	cfg.Concurrency = 1
	cfg.BufferSize = 1

	q := NewQueue(processor, &fakeDeadLetterStore{}, counter.NewRegistry(), cfg)
	q.Start()
	defer q.Stop()

	_, err := q.Enqueue([]byte(`{}`), "sig")
	require.NoError(t, err)

	// Wait until the worker has pulled the first job off the buffer.
	require.Eventually(t, func() bool {
		return q.PendingSize() == 0
	}, time.Second, time.Millisecond)

	_, err = q.Enqueue([]byte(`{}`), "sig")
	require.NoError(t, err)

	_, err = q.Enqueue([]byte(`{}`), "sig")
	assert.ErrorIs(t, err, ErrQueueFull)
}

func TestQueueRunsJobsConcurrently(t *testing.T) {
	var inFlight int64
	var peak int64

	processor := &fakeProcessor{fn: func(int64) (webhook.Result, error) {
		n := atomic.AddInt64(&inFlight, 1)
		for {
			old := atomic.LoadInt64(&peak)
			if n <= old || atomic.CompareAndSwapInt64(&peak, old, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt64(&inFlight, -1)
		return webhook.Result{}, nil
	}}

	cfg := testConfig()
	cfg.Concurrency = 2

	q := NewQueue(processor, &fakeDeadLetterStore{}, counter.NewRegistry(), cfg)
	q.Start()
	defer q.Stop()

	jobs := make([]*Job, 0, 4)
	for i := 0; i < 4; i++ {
		job, err := q.Enqueue([]byte(`{}`), "sig")
		require.NoError(t, err)
		jobs = append(jobs, job)
	}
	for _, job := range jobs {
		waitForJob(t, job)
	}

	assert.Equal(t, int64(2), atomic.LoadInt64(&peak))
}

func TestQueueDeadLetterPersistFailureKeepsJobError(t *testing.T) {
	processor := &fakeProcessor{fn: func(int64) (webhook.Result, error) {
		return webhook.Result{}, errors.New("boom")
	}}
	store := &fakeDeadLetterStore{err: errors.New("db down")}

	cfg := testConfig()
	cfg.MaxAttempts = 1

	q := NewQueue(processor, store, counter.NewRegistry(), cfg)
	q.Start()
	defer q.Stop()

	job, err := q.Enqueue([]byte(`{}`), "sig")
	require.NoError(t, err)

	waitForJob(t, job)

	require.Error(t, job.Err())
	assert.Contains(t, job.Err().Error(), "boom")
}
