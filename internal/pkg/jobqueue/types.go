package jobqueue

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// JobStatus defines the status of a job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusRetrying   JobStatus = "retrying"
)

// ErrTaskTimeout is the failure recorded when a single processing attempt
// outlives the configured task timeout.
var ErrTaskTimeout = errors.New("webhook task timed out")

// ErrQueueStopped is returned by Enqueue after Stop.
var ErrQueueStopped = errors.New("webhook queue is stopped")

// ErrQueueFull is returned by Enqueue when the buffer is saturated.
var ErrQueueFull = errors.New("webhook queue is full")

// Job is one webhook delivery moving through the queue. Payload stays the
// raw signed bytes; Event and Reference are parsed once at enqueue time for
// logging and dead letter records.
type Job struct {
	ID        string
	Payload   []byte
	Signature string
	Event     string
	Reference string

	Status     JobStatus
	Attempts   int
	EnqueuedAt time.Time

	message string
	err     error
	done    chan struct{}
}

// NewJob wraps one delivery for the queue.
func NewJob(payload []byte, signature string) *Job {
	event, reference := eventSummary(payload)
	return &Job{
		ID:         uuid.New().String(),
		Payload:    payload,
		Signature:  signature,
		Event:      event,
		Reference:  reference,
		Status:     JobStatusPending,
		EnqueuedAt: time.Now(),
		done:       make(chan struct{}),
	}
}

// Done is closed once the job reaches a terminal status.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Wait blocks until the job finishes and returns its error, if any.
func (j *Job) Wait() error {
	<-j.done
	return j.err
}

// Message returns the processor result message. Valid after Done.
func (j *Job) Message() string {
	return j.message
}

// Err returns the terminal error. Valid after Done.
func (j *Job) Err() error {
	return j.err
}

func (j *Job) finish(status JobStatus, message string, err error) {
	j.Status = status
	j.message = message
	j.err = err
	close(j.done)
}

// eventSummary pulls the event name and reference out of a payload without
// trusting it to be well formed.
func eventSummary(payload []byte) (event, reference string) {
	var parsed struct {
		Event string `json:"event"`
		Data  struct {
			Reference string `json:"reference"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return "", ""
	}
	return parsed.Event, parsed.Data.Reference
}
