package notifx

import (
	"context"
	"time"

	"github.com/Abraxas-365/perimeter/pkg/logx"
)

// TaskTypeEmail is the queue task type the notifier worker handles.
const TaskTypeEmail = "email:send"

// Enqueuer is the slice of the job queue the dispatcher needs.
type Enqueuer interface {
	Enqueue(ctx context.Context, queue, taskType string, payload any, maxRetries int) (string, error)
}

// Dispatcher hands emails to the outbound queue. Fire-and-forget: the
// enqueue is bounded by its own timeout and a failure is logged, never
// surfaced. No request outcome may depend on notification delivery.
type Dispatcher struct {
	queue      Enqueuer
	queueName  string
	timeout    time.Duration
	maxRetries int
}

// NewDispatcher creates a dispatcher targeting queueName.
func NewDispatcher(queue Enqueuer, queueName string, timeout time.Duration) *Dispatcher {
	if timeout == 0 {
		timeout = 2 * time.Second
	}
	return &Dispatcher{
		queue:      queue,
		queueName:  queueName,
		timeout:    timeout,
		maxRetries: 3,
	}
}

// EnqueueEmail queues a plain-text email for delivery.
func (d *Dispatcher) EnqueueEmail(ctx context.Context, to, subject, body string) {
	msg := Email{To: []string{to}, Subject: subject, TextBody: body}
	if err := msg.Validate(); err != nil {
		logx.WithError(err).Warn("notifx: dropping unsendable email")
		return
	}

	// Detach from the request context; its cancellation must not lose the
	// message after the response is already on its way.
	enqueueCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()

	if _, err := d.queue.Enqueue(enqueueCtx, d.queueName, TaskTypeEmail, msg, d.maxRetries); err != nil {
		logx.WithError(err).WithField("to", to).Warn("notifx: enqueue failed, email dropped")
	}
}
