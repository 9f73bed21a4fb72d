// Package control assembles the application: storage, domain services,
// ingest sources, the chain observer, notification fanout, health
// monitoring and the API server.
package control

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/pressly/goose/v3"

	"botwatch/internal/api"
	"botwatch/internal/botconfig"
	"botwatch/internal/core/config"
	"botwatch/internal/core/worker"
	"botwatch/internal/health"
	redisclient "botwatch/internal/infra/redis"
	"botwatch/internal/infra/storage"
	"botwatch/internal/infra/storage/memory"
	"botwatch/internal/infra/storage/postgres"
	"botwatch/internal/ingest"
	"botwatch/internal/ledger"
	"botwatch/internal/notify"
	"botwatch/internal/observe"
	"botwatch/internal/registry"
)

// App owns every long-running component and their startup and shutdown
// order. Optional infrastructure (Postgres, Redis, NATS, the observer)
// is wired only when configured; the rest of the system runs without it.
type App struct {
	cfg *config.AppConfig

	db          *postgres.DB
	redisClient *redisclient.Client
	natsConn    *nats.Conn

	registry      *registry.Service
	ledger        *ledger.Service
	configs       *botconfig.Service
	notifications *notify.Service

	hub      *notify.Hub
	fanout   *notify.Fanout
	buffer   *notify.Buffer
	pipeline *ingest.Pipeline
	consumer *ingest.NATSConsumer
	observer *observe.Observer
	retry    *ledger.RetryWorker
	pruner   *worker.Pruner
	monitor  *health.Monitor
	server   *api.Server

	cancel       context.CancelFunc
	pipelineDone chan struct{}
}

// NewApp wires the application from configuration. Postgres and Solana
// failures are fatal; Redis and NATS degrade to warnings.
func NewApp(cfg *config.AppConfig) (*App, error) {
	app := &App{cfg: cfg}

	// 1. Storage
	var (
		walletRepo       storage.WalletRepository
		txRepo           storage.TransactionRepository
		configRepo       storage.BotConfigRepository
		notificationRepo storage.NotificationRepository
		projectRepo      storage.ProjectRepository
	)

	if cfg.Database.URL != "" {
		db, err := postgres.NewDB(context.Background(), cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init database: %w", err)
		}
		if err := goose.SetDialect("postgres"); err != nil {
			return nil, err
		}
		// Migrations live in "migrations" relative to the working directory.
		if err := goose.Up(db.DB.DB, "migrations"); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		app.db = db
		walletRepo = postgres.NewWalletRepo(db)
		txRepo = postgres.NewTxRepo(db)
		configRepo = postgres.NewConfigRepo(db)
		notificationRepo = postgres.NewNotificationRepo(db)
		projectRepo = postgres.NewProjectRepo(db)
		slog.Info("Using PostgreSQL storage")
	} else {
		store := memory.NewMemoryStorage()
		walletRepo = memory.NewWalletRepo(store)
		txRepo = memory.NewTxRepo(store)
		configRepo = memory.NewConfigRepo(store)
		notificationRepo = memory.NewNotificationRepo(store)
		projectRepo = memory.NewProjectRepo(store)
		slog.Info("Using memory storage")
	}

	// 2. Redis: dedupe guard and the pub/sub notification sink
	if cfg.Redis.URL != "" {
		client, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("Failed to connect to Redis, dedupe and pub/sub disabled", "error", err)
		} else {
			app.redisClient = client
		}
	}

	// 3. NATS connection, shared by the consumer and the retry publisher
	if cfg.NATS.URL != "" {
		conn, err := ingest.DialNATS(cfg.NATS.URL)
		if err != nil {
			slog.Warn("Failed to connect to NATS, ingest source disabled", "error", err)
		} else {
			app.natsConn = conn
		}
	}

	// 4. Notification fanout: the SSE hub always, Redis pub/sub when up
	app.hub = notify.NewHub(16)
	app.fanout = notify.NewFanout()
	app.fanout.AddSink("hub", app.hub)
	if app.redisClient != nil {
		emitter := notify.NewRedisEmitter(app.redisClient, cfg.Redis.Channel)
		app.buffer = notify.NewBuffer(emitter, 10, time.Second)
		app.fanout.AddSink("redis", app.buffer)
	}
	app.notifications = notify.NewService(notificationRepo, app.fanout)

	// 5. Domain services
	app.registry = registry.NewService(walletRepo, registry.NewFilter(), app.notifications)
	if err := app.registry.PreloadFilter(context.Background()); err != nil {
		slog.Warn("Failed to preload wallet filter", "error", err)
	}

	var publisher ledger.RetryPublisher
	if app.natsConn != nil {
		publisher = ingest.NewRetryPublisher(app.natsConn, cfg.NATS.RetrySubject)
	}
	app.ledger = ledger.NewService(txRepo, &ledger.ExponentialBackoff{
		InitialDelay: cfg.Retry.InitialDelay,
		MaxDelay:     cfg.Retry.MaxDelay,
		MaxAttempts:  cfg.Retry.MaxAttempts,
	}, app.notifications, publisher)
	app.retry = ledger.NewRetryWorker(app.ledger, cfg.Retry.ScanInterval)

	app.configs = botconfig.NewService(configRepo, walletRepo)

	// 6. Ingest pipeline and its sources
	var deduper ingest.Deduper
	if app.redisClient != nil {
		deduper = app.redisClient
	}
	app.pipeline = ingest.NewPipeline(ingest.Config{
		Workers:   cfg.Ingest.Workers,
		QueueSize: cfg.Ingest.QueueSize,
		DedupeTTL: cfg.Redis.DedupeTTL,
	}, app.registry, app.ledger, app.configs, app.notifications, deduper)

	if app.natsConn != nil {
		app.consumer = ingest.NewNATSConsumer(ingest.NATSOptions{
			Subject:   cfg.NATS.Subject,
			Durable:   cfg.NATS.Durable,
			BatchSize: cfg.NATS.BatchSize,
		}, app.natsConn, app.pipeline)
	}

	if len(cfg.Solana.RPCURLs) > 0 {
		client, err := observe.NewSolanaClient(cfg.Solana.RPCURLs)
		if err != nil {
			return nil, fmt.Errorf("failed to init solana client: %w", err)
		}
		app.observer = observe.NewObserver(observe.Config{
			PollInterval:    cfg.Solana.PollInterval,
			BalanceInterval: cfg.Solana.BalanceInterval,
			SignatureLimit:  cfg.Solana.SignatureLimit,
		}, client, app.registry, app.pipeline)
	}

	// 7. Retention pruner
	app.pruner = worker.NewPruner(cfg.Retention, txRepo, notificationRepo)

	// 8. Health monitor
	deps := health.Deps{
		Wallets:       walletRepo,
		Txs:           txRepo,
		Notifications: notificationRepo,
		QueueDepth:    app.pipeline.QueueDepth,
	}
	if app.db != nil {
		deps.DB = app.db
	}
	if app.redisClient != nil {
		deps.Redis = app.redisClient
	}
	if app.consumer != nil {
		deps.NATSConnected = app.consumer.IsConnected
	}
	if app.observer != nil {
		deps.Observer = app.observer
	}
	app.monitor = health.NewMonitor(deps, cfg.Solana.PollInterval)

	// 9. API server
	app.server = api.NewServer(api.Config{
		Port:      cfg.Server.Port,
		AuthToken: cfg.Server.AuthToken,
	}, api.Deps{
		Registry:      app.registry,
		Ledger:        app.ledger,
		Configs:       app.configs,
		Notifications: app.notifications,
		Hub:           app.hub,
		Pipeline:      app.pipeline,
		Monitor:       app.monitor,
		Projects:      projectRepo,
	})

	return app, nil
}

// Start launches every component. Non-blocking; workers stop when the
// context is cancelled or Stop is called.
func (a *App) Start(ctx context.Context) error {
	ctx, a.cancel = context.WithCancel(ctx)

	go a.monitor.Start(ctx)

	if a.db != nil {
		a.db.StartMetricsCollector(ctx)
	}

	a.pipelineDone = make(chan struct{})
	go func() {
		defer close(a.pipelineDone)
		if err := a.pipeline.Run(ctx); err != nil && ctx.Err() == nil {
			slog.Error("Ingest pipeline failed", "error", err)
		}
	}()

	if a.consumer != nil {
		if err := a.consumer.Start(); err != nil {
			slog.Warn("NATS consumer failed to start", "error", err)
		}
	}

	if a.observer != nil {
		go func() {
			if err := a.observer.Start(ctx); err != nil {
				slog.Error("Chain observer failed", "error", err)
			}
		}()
	}

	go a.retry.Start(ctx)
	go a.pruner.Start(ctx)
	if a.buffer != nil {
		go a.buffer.Start(ctx)
	}

	go func() {
		if err := a.server.Start(); err != nil {
			slog.Error("API server failed", "error", err)
		}
	}()

	return nil
}

// Stop shuts the application down: intake first so the pipeline can
// drain, then the workers, then the infrastructure connections.
func (a *App) Stop(ctx context.Context) error {
	slog.Info("Shutting down")

	if a.consumer != nil {
		_ = a.consumer.Close()
	}
	if a.observer != nil {
		a.observer.Stop()
	}

	if err := a.server.Stop(ctx); err != nil {
		slog.Warn("API server shutdown failed", "error", err)
	}

	if a.cancel != nil {
		a.cancel()
	}
	if a.pipelineDone != nil {
		select {
		case <-a.pipelineDone:
		case <-ctx.Done():
			slog.Warn("Gave up waiting for pipeline drain")
		}
	}

	_ = a.fanout.Close()

	if a.natsConn != nil {
		a.natsConn.Close()
	}
	if a.redisClient != nil {
		_ = a.redisClient.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}

	slog.Info("Shutdown complete")
	return nil
}
