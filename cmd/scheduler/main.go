package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"loancrm_backend/internal/email"
	leadrepo "loancrm_backend/internal/leads/repository"
	"loancrm_backend/internal/scheduler"
	"loancrm_backend/internal/whatsapp"
	"loancrm_backend/platform/config"
	"loancrm_backend/platform/db"
	"loancrm_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	sender, err := email.NewSender(cfg)
	if err != nil {
		log.Error("failed to initialize email sender", "error", err)
		panic("failed to initialize email sender: " + err.Error())
	}

	followUp := scheduler.NewFollowUpProcessor(
		leadrepo.New(pool),
		sender,
		whatsAppSender(cfg, log),
		log,
	)

	worker, err := scheduler.NewWorker(cfg, followUp, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
}

// whatsAppSender returns nil when no gateway is configured so the follow-up
// skips WhatsApp instead of calling a nil client through the interface.
func whatsAppSender(cfg *config.Config, log *logger.Logger) scheduler.WhatsAppSender {
	client := whatsapp.NewClient(cfg, cfg.GetDefaultPhoneRegion(), log)
	if client == nil {
		log.Info("WHATSAPP_URL not configured; whatsapp follow-ups disabled")
		return nil
	}
	return client
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
