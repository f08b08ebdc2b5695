package jobx

import (
	"context"
	"sync"
	"time"

	"github.com/Abraxas-365/perimeter/pkg/config"
	"github.com/Abraxas-365/perimeter/pkg/logx"
)

// Worker drains queues with a pool of goroutines plus one scheduler that
// promotes delayed tasks.
type Worker struct {
	queue    Queue
	cfg      config.JobxConfig
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewWorker creates a worker over the queue backend.
func NewWorker(queue Queue, cfg config.JobxConfig) *Worker {
	return &Worker{
		queue:    queue,
		cfg:      cfg,
		handlers: make(map[string]Handler),
	}
}

// Register binds a handler to a task type.
func (w *Worker) Register(taskType string, h Handler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers[taskType] = h
}

// Run blocks processing tasks until ctx is cancelled, then drains within the
// shutdown timeout.
func (w *Worker) Run(ctx context.Context) {
	logx.Infof("jobx: %d workers on queues %v", w.cfg.Concurrency, w.cfg.Queues)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.schedulerLoop(ctx)
	}()

	for i := 0; i < w.cfg.Concurrency; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			w.workerLoop(ctx, id)
		}(i)
	}

	<-ctx.Done()
	logx.Info("jobx: draining workers")

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		logx.Info("jobx: workers stopped")
	case <-time.After(w.cfg.ShutdownTimeout):
		logx.Warn("jobx: shutdown timed out before all workers drained")
	}
}

func (w *Worker) schedulerLoop(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.queue.Promote(ctx, w.cfg.Queues); err != nil && ctx.Err() == nil {
				logx.WithError(err).Warn("jobx: promote failed")
			}
		}
	}
}

func (w *Worker) workerLoop(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		task, err := w.queue.Dequeue(ctx, w.cfg.Queues, w.cfg.DequeueTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logx.WithError(err).Warnf("jobx: worker %d dequeue failed", id)
			time.Sleep(w.cfg.PollInterval)
			continue
		}
		if task == nil {
			continue
		}
		w.process(ctx, task)
	}
}

func (w *Worker) process(ctx context.Context, task *Task) {
	w.mu.RLock()
	handler, ok := w.handlers[task.Type]
	w.mu.RUnlock()

	if !ok {
		logx.Warnf("jobx: no handler for task type %q (id=%s)", task.Type, task.ID)
		_, _ = w.queue.Fail(ctx, task.ID, "no handler registered")
		return
	}

	if err := handler(ctx, task); err != nil {
		logx.WithError(err).Warnf("jobx: task %s (%s) failed", task.ID, task.Type)
		failed, failErr := w.queue.Fail(ctx, task.ID, err.Error())
		if failErr != nil {
			logx.WithError(failErr).Errorf("jobx: could not mark task %s failed", task.ID)
			return
		}
		if failed.Retryable() {
			if retryErr := w.queue.Retry(ctx, task.ID, w.cfg.RetryDelay); retryErr != nil {
				logx.WithError(retryErr).Errorf("jobx: could not schedule retry of task %s", task.ID)
			}
		}
		return
	}

	if err := w.queue.Complete(ctx, task.ID); err != nil {
		logx.WithError(err).Errorf("jobx: could not complete task %s", task.ID)
	}
}
