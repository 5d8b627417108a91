package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"intake/internal/consultation/handler"
	consultationmetrics "intake/internal/consultation/metrics"
	"intake/internal/consultation/service"
	consultationstore "intake/internal/consultation/store/consultation"
	questionstore "intake/internal/consultation/store/question"
	"intake/internal/eligibility"
	"intake/internal/platform/config"
	"intake/internal/platform/kafka"
	httpmetrics "intake/internal/platform/metrics"
	"intake/internal/platform/postgres"
	redisclient "intake/internal/platform/redis"
	"intake/internal/reviewer"
	"intake/internal/workflow"
	"intake/internal/workflow/notify/guard"
	kafkanotify "intake/internal/workflow/notify/kafka"
	"intake/internal/workflow/notify/taskqueue"
	audit "intake/pkg/platform/audit"
	auditpublisher "intake/pkg/platform/audit/publisher"
	auditmemory "intake/pkg/platform/audit/store/memory"
	auditpostgres "intake/pkg/platform/audit/store/postgres"
	"intake/pkg/platform/circuit"
	"intake/pkg/platform/httputil"
	"intake/pkg/platform/middleware/auth"
	"intake/pkg/platform/middleware/metadata"
	"intake/pkg/platform/middleware/ratelimit"
	"intake/pkg/platform/middleware/request"
	"intake/pkg/platform/middleware/requesttime"
)

const (
	auditBufferSize    = 1024
	kafkaTopicReplicas = 1
	kafkaPartitions    = 3
)

// app holds the wired router and everything that must be released on exit.
type app struct {
	router  http.Handler
	limiter *ratelimit.Limiter
	closers []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func build(ctx context.Context, cfg config.Server, log *slog.Logger) (*app, error) {
	a := &app{}
	health := newHealth()

	var db *sql.DB
	if cfg.StoreDriver == config.DriverPostgres || cfg.QuestionsDriver == config.DriverPostgres {
		var err error
		db, err = postgres.Open(ctx, postgres.Config{
			URL:             cfg.Postgres.URL,
			MaxOpenConns:    cfg.Postgres.MaxOpenConns,
			MaxIdleConns:    cfg.Postgres.MaxIdleConns,
			ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = db.Close() })
		if cfg.Postgres.Migrate {
			if err := postgres.Migrate(db); err != nil {
				a.close()
				return nil, err
			}
		}
		health.add("postgres", db.PingContext)
	}

	questions, err := buildQuestionSource(ctx, cfg, db)
	if err != nil {
		a.close()
		return nil, err
	}

	store, storeTx, auditStore, err := buildStores(ctx, cfg, db, health, a)
	if err != nil {
		a.close()
		return nil, err
	}

	notifier, err := buildNotifier(ctx, cfg, log, health, a)
	if err != nil {
		a.close()
		return nil, err
	}

	table := workflow.DefaultTable()
	if cfg.WorkflowFile != "" {
		table, err = workflow.LoadTable(cfg.WorkflowFile)
		if err != nil {
			a.close()
			return nil, err
		}
	}
	routerOpts := []workflow.Option{workflow.WithLogger(log)}
	if notifier != nil {
		routerOpts = append(routerOpts, workflow.WithNotifier(notifier))
	}
	router := workflow.NewRouter(table, routerOpts...)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	auditPub := auditpublisher.NewPublisher(auditStore,
		auditpublisher.WithAsyncBuffer(auditBufferSize),
		auditpublisher.WithLogger(log),
	)
	a.closers = append(a.closers, auditPub.Close)

	serviceOpts := []service.Option{
		service.WithLogger(log),
		service.WithMetrics(consultationmetrics.New(registry)),
		service.WithAuditPublisher(auditPub),
	}
	if storeTx != nil {
		serviceOpts = append(serviceOpts, service.WithStoreTx(storeTx))
	}
	svc := service.New(
		questions,
		store,
		eligibility.NewService(eligibility.NewRegistry(eligibility.Builtin()...)),
		router,
		serviceOpts...,
	)

	tokens := reviewer.NewTokenService(cfg.ReviewerSigningKey, cfg.ReviewerIssuer)
	handlerOpts := []handler.Option{
		handler.WithSubmitMiddleware(request.ContentTypeJSON),
		handler.WithReviewMiddleware(request.ContentTypeJSON, auth.RequireReviewer(tokens, log)),
	}
	if cfg.RateLimit.Enabled {
		a.limiter = ratelimit.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst, ratelimit.WithLogger(log))
		handlerOpts = append(handlerOpts, handler.WithSubmitMiddleware(a.limiter.Middleware))
	}

	clientIPs, err := metadata.NewResolver(cfg.TrustedProxies)
	if err != nil {
		a.close()
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata(clientIPs))
	r.Use(request.Recovery(log))
	r.Use(request.Logger(log))
	r.Use(httpmetrics.New(registry).Middleware)
	r.Use(request.Timeout(cfg.RequestTimeout))

	r.Get("/health", health.handle)
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	handler.New(svc, log, handlerOpts...).Register(r)

	a.router = r
	return a, nil
}

func buildQuestionSource(ctx context.Context, cfg config.Server, db *sql.DB) (service.QuestionSource, error) {
	if cfg.QuestionsDriver == config.DriverPostgres {
		store := questionstore.NewPostgres(db)
		if err := store.Seed(ctx, questionstore.DefaultCatalog()); err != nil {
			return nil, fmt.Errorf("seed questions: %w", err)
		}
		return store, nil
	}
	if cfg.QuestionsFile != "" {
		return questionstore.LoadFile(cfg.QuestionsFile)
	}
	return questionstore.Seeded(), nil
}

// buildStores returns the consultation store, an optional transactional
// wrapper for reviews and the audit store.
func buildStores(ctx context.Context, cfg config.Server, db *sql.DB, health *health, a *app) (service.Store, service.StoreTx, audit.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		return consultationstore.NewPostgres(db), consultationstore.NewPostgresTx(db), auditpostgres.New(db), nil

	case config.DriverRedis:
		client, err := redisclient.New(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, nil, err
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		health.add("redis", client.Health)
		return consultationstore.NewRedis(client.Client, cfg.Redis.KeyTTL), nil, auditmemory.NewInMemoryStore(), nil

	default:
		return consultationstore.NewInMemory(), nil, auditmemory.NewInMemoryStore(), nil
	}
}

// buildNotifier returns nil when review notifications are disabled.
func buildNotifier(ctx context.Context, cfg config.Server, log *slog.Logger, health *health, a *app) (workflow.Notifier, error) {
	var next workflow.Notifier
	switch cfg.Notify.Driver {
	case config.NotifyKafka:
		producer, err := kafka.NewProducer(ctx, kafka.Config{
			Brokers:     cfg.Notify.KafkaBrokers,
			ClientID:    cfg.Notify.KafkaClientID,
			DialTimeout: 5 * time.Second,
		}, log)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, producer.Close)
		if err := producer.EnsureTopic(ctx, cfg.Notify.KafkaTopic, kafkaPartitions, kafkaTopicReplicas); err != nil {
			return nil, err
		}
		health.add("kafka", producer.Health)
		next = kafkanotify.NewPublisher(producer, cfg.Notify.KafkaTopic)

	case config.NotifyAsynq:
		client, err := taskqueue.Dial(cfg.Notify.AsynqRedisAddr)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		next = taskqueue.NewEnqueuer(client, cfg.Notify.AsynqQueue, cfg.Notify.AsynqMaxRetry, log)

	default:
		return nil, nil
	}

	breaker := circuit.New("review-notifier",
		circuit.WithFailureThreshold(cfg.Notify.FailureThreshold),
		circuit.WithSuccessThreshold(cfg.Notify.SuccessThreshold),
		circuit.WithCooldown(cfg.Notify.Cooldown),
	)
	return guard.New(next, breaker, cfg.Notify.Timeout, log), nil
}

// health runs named dependency checks for GET /health.
type health struct {
	checks []healthCheck
}

type healthCheck struct {
	name  string
	check func(context.Context) error
}

func newHealth() *health {
	return &health{}
}

func (h *health) add(name string, check func(context.Context) error) {
	h.checks = append(h.checks, healthCheck{name: name, check: check})
}

func (h *health) handle(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	deps := make(map[string]string, len(h.checks))
	for _, c := range h.checks {
		if err := c.check(ctx); err != nil {
			deps[c.name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		deps[c.name] = "ok"
	}
	body := map[string]any{"status": "ok", "dependencies": deps}
	if status != http.StatusOK {
		body["status"] = "degraded"
	}
	httputil.WriteJSON(w, status, body)
}
