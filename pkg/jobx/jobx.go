// Package jobx is the outbound job queue: work the request path refuses to
// wait for (notification delivery, mostly) is enqueued here and drained by a
// separate worker process.
package jobx

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/Abraxas-365/perimeter/pkg/errx"
)

// State is the lifecycle position of a task.
type State string

const (
	StatePending  State = "pending"
	StateActive   State = "active"
	StateDone     State = "done"
	StateFailed   State = "failed"
	StateRetrying State = "retrying"
)

// Task is one unit of queued work.
type Task struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Queue      string          `json:"queue"`
	Payload    json.RawMessage `json:"payload"`
	State      State           `json:"state"`
	LastError  string          `json:"last_error,omitempty"`
	MaxRetries int             `json:"max_retries"`
	Attempts   int             `json:"attempts"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Retryable reports whether the task has attempts left.
func (t *Task) Retryable() bool {
	return t.Attempts < t.MaxRetries
}

// Queue is the backend contract. A Dequeue answering (nil, nil) means the
// wait timed out with nothing to do.
type Queue interface {
	Enqueue(ctx context.Context, queue, taskType string, payload any, maxRetries int) (string, error)
	EnqueueIn(ctx context.Context, queue, taskType string, payload any, maxRetries int, delay time.Duration) (string, error)
	Dequeue(ctx context.Context, queues []string, wait time.Duration) (*Task, error)
	Complete(ctx context.Context, taskID string) error
	Fail(ctx context.Context, taskID, reason string) (*Task, error)
	Retry(ctx context.Context, taskID string, delay time.Duration) error

	// Promote moves scheduled tasks whose due time has passed onto the
	// ready queues.
	Promote(ctx context.Context, queues []string) error

	Get(ctx context.Context, taskID string) (*Task, error)
}

// Handler processes one task. A non-nil error sends the task through the
// retry path until its attempts run out.
type Handler func(ctx context.Context, task *Task) error

// ============================================================================
// Error Registry
// ============================================================================

var ErrRegistry = errx.NewRegistry("JOBX")

var (
	CodeNotFound = ErrRegistry.Register("NOT_FOUND", errx.KindNotFound, http.StatusNotFound, "Task not found")
	CodeBackend  = ErrRegistry.Register("BACKEND", errx.KindUpstream, http.StatusBadGateway, "Queue backend failure")
	CodeEncode   = ErrRegistry.Register("ENCODE", errx.KindInternal, http.StatusInternalServerError, "Task encode failure")
)
