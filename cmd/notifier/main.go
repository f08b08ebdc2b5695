// The notifier binary drains the outbound queue and delivers email through
// the configured provider.
package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/Abraxas-365/perimeter/pkg/config"
	"github.com/Abraxas-365/perimeter/pkg/jobx"
	"github.com/Abraxas-365/perimeter/pkg/jobx/jobxredis"
	"github.com/Abraxas-365/perimeter/pkg/logx"
	"github.com/Abraxas-365/perimeter/pkg/notifx"
	"github.com/Abraxas-365/perimeter/pkg/notifx/notifxconsole"
	"github.com/Abraxas-365/perimeter/pkg/notifx/notifxses"
	"github.com/Abraxas-365/perimeter/pkg/notifx/notifxsmtp"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg := config.Load()

	logx.Info("starting notifier worker")

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		logx.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer rdb.Close()

	sender := newSender(cfg)

	worker := jobx.NewWorker(jobxredis.New(rdb), cfg.Jobx)
	worker.Register(notifx.TaskTypeEmail, emailHandler(sender))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	worker.Run(ctx)
	logx.Info("notifier stopped")
}

func newSender(cfg *config.Config) notifx.Sender {
	switch cfg.Notifx.Provider {
	case "ses":
		sender, err := notifxses.New(context.Background(),
			cfg.Notifx.AWSRegion, cfg.Notifx.FromAddress, cfg.Notifx.FromName)
		if err != nil {
			logx.Fatalf("Failed to initialize SES: %v", err)
		}
		return sender
	case "smtp":
		return notifxsmtp.New(cfg.Notifx.SMTPHost, cfg.Notifx.SMTPPort,
			cfg.Notifx.SMTPUser, cfg.Notifx.SMTPPass, cfg.Notifx.FromAddress)
	case "console":
		return notifxconsole.New()
	default:
		logx.Fatalf("Unknown NOTIFX_PROVIDER: %s (use 'ses', 'smtp' or 'console')", cfg.Notifx.Provider)
		return nil
	}
}

func emailHandler(sender notifx.Sender) jobx.Handler {
	return func(ctx context.Context, task *jobx.Task) error {
		var msg notifx.Email
		if err := json.Unmarshal(task.Payload, &msg); err != nil {
			return err
		}
		return sender.Send(ctx, msg)
	}
}
