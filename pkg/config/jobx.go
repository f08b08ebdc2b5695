package config

import "time"

// JobxConfig configures the outbound job queue.
type JobxConfig struct {
	Queues          []string
	Concurrency     int
	EnqueueTimeout  time.Duration
	DequeueTimeout  time.Duration
	PollInterval    time.Duration
	RetryDelay      time.Duration
	ShutdownTimeout time.Duration
}

func loadJobxConfig() JobxConfig {
	return JobxConfig{
		Queues:          getEnvStringSlice("JOBX_QUEUES", []string{"notifications"}),
		Concurrency:     getEnvInt("JOBX_CONCURRENCY", 4),
		EnqueueTimeout:  getEnvDuration("JOBX_ENQUEUE_TIMEOUT", 2*time.Second),
		DequeueTimeout:  getEnvDuration("JOBX_DEQUEUE_TIMEOUT", 5*time.Second),
		PollInterval:    getEnvDuration("JOBX_POLL_INTERVAL", time.Second),
		RetryDelay:      getEnvDuration("JOBX_RETRY_DELAY", 30*time.Second),
		ShutdownTimeout: getEnvDuration("JOBX_SHUTDOWN_TIMEOUT", 30*time.Second),
	}
}
