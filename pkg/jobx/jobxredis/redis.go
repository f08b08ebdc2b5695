// Package jobxredis backs jobx.Queue with Redis: one list per ready queue,
// one sorted set per queue for delayed tasks, one key per task body.
package jobxredis

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/Abraxas-365/perimeter/pkg/jobx"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type RedisQueue struct {
	rdb *redis.Client
}

// New creates the Redis-backed queue.
func New(rdb *redis.Client) *RedisQueue {
	return &RedisQueue{rdb: rdb}
}

func readyKey(queue string) string     { return "jobx:ready:" + queue }
func scheduledKey(queue string) string { return "jobx:scheduled:" + queue }
func taskKey(id string) string         { return "jobx:task:" + id }

// Enqueue stores the task and pushes it onto the ready list.
func (q *RedisQueue) Enqueue(ctx context.Context, queue, taskType string, payload any, maxRetries int) (string, error) {
	return q.enqueue(ctx, queue, taskType, payload, maxRetries, 0)
}

// EnqueueIn stores the task and schedules it for delay from now.
func (q *RedisQueue) EnqueueIn(ctx context.Context, queue, taskType string, payload any, maxRetries int, delay time.Duration) (string, error) {
	return q.enqueue(ctx, queue, taskType, payload, maxRetries, delay)
}

func (q *RedisQueue) enqueue(ctx context.Context, queue, taskType string, payload any, maxRetries int, delay time.Duration) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", jobx.ErrRegistry.NewWithCause(jobx.CodeEncode, err)
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}

	now := time.Now().UTC()
	task := jobx.Task{
		ID:         uuid.NewString(),
		Type:       taskType,
		Queue:      queue,
		Payload:    raw,
		State:      jobx.StatePending,
		MaxRetries: maxRetries,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	data, err := json.Marshal(task)
	if err != nil {
		return "", jobx.ErrRegistry.NewWithCause(jobx.CodeEncode, err)
	}

	pipe := q.rdb.Pipeline()
	pipe.Set(ctx, taskKey(task.ID), data, 0)
	if delay > 0 {
		pipe.ZAdd(ctx, scheduledKey(queue), redis.Z{
			Score:  float64(now.Add(delay).Unix()),
			Member: task.ID,
		})
	} else {
		pipe.LPush(ctx, readyKey(queue), task.ID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return "", jobx.ErrRegistry.NewWithCause(jobx.CodeBackend, err).WithField("queue", queue)
	}
	return task.ID, nil
}

// Dequeue blocks on the ready lists until a task id arrives or wait elapses.
func (q *RedisQueue) Dequeue(ctx context.Context, queues []string, wait time.Duration) (*jobx.Task, error) {
	keys := make([]string, len(queues))
	for i, name := range queues {
		keys[i] = readyKey(name)
	}

	result, err := q.rdb.BRPop(ctx, wait, keys...).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) || ctx.Err() != nil {
			return nil, nil
		}
		return nil, jobx.ErrRegistry.NewWithCause(jobx.CodeBackend, err)
	}

	task, err := q.Get(ctx, result[1])
	if err != nil {
		return nil, err
	}

	task.State = jobx.StateActive
	task.Attempts++
	return task, q.store(ctx, task)
}

// Complete marks the task done.
func (q *RedisQueue) Complete(ctx context.Context, taskID string) error {
	task, err := q.Get(ctx, taskID)
	if err != nil {
		return err
	}
	task.State = jobx.StateDone
	return q.store(ctx, task)
}

// Fail records the failure and returns the updated task so the caller can
// decide on a retry.
func (q *RedisQueue) Fail(ctx context.Context, taskID, reason string) (*jobx.Task, error) {
	task, err := q.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.Retryable() {
		task.State = jobx.StateRetrying
	} else {
		task.State = jobx.StateFailed
	}
	task.LastError = reason
	return task, q.store(ctx, task)
}

// Retry schedules the task to become ready again after delay.
func (q *RedisQueue) Retry(ctx context.Context, taskID string, delay time.Duration) error {
	task, err := q.Get(ctx, taskID)
	if err != nil {
		return err
	}
	err = q.rdb.ZAdd(ctx, scheduledKey(task.Queue), redis.Z{
		Score:  float64(time.Now().UTC().Add(delay).Unix()),
		Member: taskID,
	}).Err()
	if err != nil {
		return jobx.ErrRegistry.NewWithCause(jobx.CodeBackend, err).WithField("task_id", taskID)
	}
	return nil
}

// promoteScript moves due task ids from the scheduled set to the ready list
// atomically.
var promoteScript = redis.NewScript(`
local scheduled = KEYS[1]
local ready = KEYS[2]
local now = tonumber(ARGV[1])
local ids = redis.call('ZRANGEBYSCORE', scheduled, '-inf', now)
if #ids > 0 then
    for _, id in ipairs(ids) do
        redis.call('LPUSH', ready, id)
    end
    redis.call('ZREMRANGEBYSCORE', scheduled, '-inf', now)
end
return #ids
`)

// Promote runs the promotion script for each queue.
func (q *RedisQueue) Promote(ctx context.Context, queues []string) error {
	now := strconv.FormatInt(time.Now().UTC().Unix(), 10)
	for _, name := range queues {
		err := promoteScript.Run(ctx, q.rdb, []string{scheduledKey(name), readyKey(name)}, now).Err()
		if err != nil && !errors.Is(err, redis.Nil) {
			return jobx.ErrRegistry.NewWithCause(jobx.CodeBackend, err).WithField("queue", name)
		}
	}
	return nil
}

// Get loads a task body by id.
func (q *RedisQueue) Get(ctx context.Context, taskID string) (*jobx.Task, error) {
	data, err := q.rdb.Get(ctx, taskKey(taskID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, jobx.ErrRegistry.New(jobx.CodeNotFound).WithField("task_id", taskID)
		}
		return nil, jobx.ErrRegistry.NewWithCause(jobx.CodeBackend, err).WithField("task_id", taskID)
	}
	var task jobx.Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, jobx.ErrRegistry.NewWithCause(jobx.CodeEncode, err).WithField("task_id", taskID)
	}
	return &task, nil
}

func (q *RedisQueue) store(ctx context.Context, task *jobx.Task) error {
	task.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(task)
	if err != nil {
		return jobx.ErrRegistry.NewWithCause(jobx.CodeEncode, err).WithField("task_id", task.ID)
	}
	if err := q.rdb.Set(ctx, taskKey(task.ID), data, 0).Err(); err != nil {
		return jobx.ErrRegistry.NewWithCause(jobx.CodeBackend, err).WithField("task_id", task.ID)
	}
	return nil
}
