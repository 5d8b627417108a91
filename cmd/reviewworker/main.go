// Command reviewworker consumes consultation review tasks from the asynq
// queue and records them for the clinician queue.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"

	"intake/internal/consultation/models"
	"intake/internal/consultation/service"
	consultationstore "intake/internal/consultation/store/consultation"
	"intake/internal/platform/config"
	"intake/internal/platform/logger"
	"intake/internal/platform/postgres"
	redisclient "intake/internal/platform/redis"
	"intake/internal/workflow/notify/taskqueue"
	"intake/pkg/platform/sentinel"
)

const workerConcurrency = 4

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "reviewworker: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	ctx := context.Background()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	srv := asynq.NewServer(asynq.RedisClientOpt{Addr: cfg.Notify.AsynqRedisAddr}, asynq.Config{
		Concurrency: workerConcurrency,
		Queues:      map[string]int{cfg.Notify.AsynqQueue: 1},
		Logger:      newAsynqLogger(log),
	})

	log.Info("starting review worker",
		"queue", cfg.Notify.AsynqQueue,
		"store_driver", cfg.StoreDriver,
	)
	return srv.Run(taskqueue.NewServeMux(reviewHandler(store, log)))
}

// reviewHandler checks the consultation still awaits a clinician. Tasks for
// unknown or already reviewed consultations are dropped.
func reviewHandler(store service.Store, log *slog.Logger) taskqueue.ReviewHandlerFunc {
	return func(ctx context.Context, event models.SubmittedEvent) error {
		c, err := store.FindByID(ctx, event.ConsultationID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				log.WarnContext(ctx, "review task for unknown consultation",
					"consultation_id", event.ConsultationID,
				)
				return fmt.Errorf("consultation %s not found: %w", event.ConsultationID, asynq.SkipRetry)
			}
			return err
		}
		if c.IsReviewed() {
			log.InfoContext(ctx, "consultation already reviewed",
				"consultation_id", c.ID,
				"status", c.Status,
			)
			return nil
		}
		log.InfoContext(ctx, "consultation awaiting clinician review",
			"consultation_id", c.ID,
			"product_id", c.ProductID,
			"preliminary_eligible", event.PreliminaryEligible,
			"submitted_at", c.SubmittedAt,
		)
		return nil
	}
}

// openStore opens the shared consultation store. The in-memory store is
// private to the API process, so the worker needs postgres or redis.
func openStore(ctx context.Context, cfg config.Server) (service.Store, func(), error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		db, err := postgres.Open(ctx, postgres.Config{
			URL:             cfg.Postgres.URL,
			MaxOpenConns:    cfg.Postgres.MaxOpenConns,
			MaxIdleConns:    cfg.Postgres.MaxIdleConns,
			ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
		})
		if err != nil {
			return nil, nil, err
		}
		return consultationstore.NewPostgres(db), func() { _ = db.Close() }, nil
	case config.DriverRedis:
		client, err := redisclient.New(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		return consultationstore.NewRedis(client.Client, cfg.Redis.KeyTTL), func() { _ = client.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("review worker needs a shared store, got %q", cfg.StoreDriver)
	}
}

// asynqLogger adapts slog to asynq.Logger.
type asynqLogger struct {
	log *slog.Logger
}

func newAsynqLogger(log *slog.Logger) asynqLogger {
	return asynqLogger{log: log.With("component", "asynq")}
}

func (l asynqLogger) Debug(args ...any) { l.log.Debug(fmt.Sprint(args...)) }
func (l asynqLogger) Info(args ...any)  { l.log.Info(fmt.Sprint(args...)) }
func (l asynqLogger) Warn(args ...any)  { l.log.Warn(fmt.Sprint(args...)) }
func (l asynqLogger) Error(args ...any) { l.log.Error(fmt.Sprint(args...)) }
func (l asynqLogger) Fatal(args ...any) {
	l.log.Error(fmt.Sprint(args...))
	os.Exit(1)
}
