package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"release_tracker/internal/config"
	"release_tracker/internal/publisher"
	"release_tracker/internal/ratelimit"
	"release_tracker/internal/scheduler"
	"release_tracker/internal/service"
	"release_tracker/internal/source/catalog"
	"release_tracker/internal/storage/postgres"
	"release_tracker/internal/telemetry"
)

const (
	taskAutoRelease = "auto_release"
	taskReminders   = "release_reminders"
	taskCatalogSync = "catalog_sync"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	// Setup logger
	logger := setupLogger("info")

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = setupLogger(cfg.LogLevel)

	location, err := cfg.Release.Location()
	if err != nil {
		logger.Error("invalid release timezone", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to database")

	// Metrics
	metricsProvider, err := telemetry.NewProvider(ctx, cfg.Metrics.Enabled, logger)
	if err != nil {
		logger.Error("failed to initialize metrics", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = metricsProvider.Shutdown(context.Background())
	}()

	syncMetrics, err := telemetry.NewSyncMetrics(metricsProvider.MeterProvider())
	if err != nil {
		logger.Error("failed to create sync metrics", "error", err)
		os.Exit(1)
	}
	taskMetrics, err := telemetry.NewTaskMetrics(metricsProvider.MeterProvider())
	if err != nil {
		logger.Error("failed to create task metrics", "error", err)
		os.Exit(1)
	}
	notificationMetrics, err := telemetry.NewNotificationMetrics(metricsProvider.MeterProvider())
	if err != nil {
		logger.Error("failed to create notification metrics", "error", err)
		os.Exit(1)
	}

	// Initialize RabbitMQ publisher
	var notificationPublisher service.Publisher
	if cfg.RabbitMQ.Enabled {
		rabbitMQ, err := publisher.NewRabbitMQ(publisher.Config{
			URL:        cfg.RabbitMQ.URL,
			Exchange:   cfg.RabbitMQ.Exchange,
			RoutingKey: cfg.RabbitMQ.RoutingKey,
			QueueName:  cfg.RabbitMQ.QueueName,
		}, logger)
		if err != nil {
			logger.Error("failed to connect to rabbitmq", "error", err)
			os.Exit(1)
		}
		defer rabbitMQ.Close()
		notificationPublisher = rabbitMQ
	}

	// Initialize stores
	gameStore := postgres.NewGameStore(db)
	historyStore := postgres.NewHistoryStore(db)
	wishlistStore := postgres.NewWishlistStore(db)
	notificationStore := postgres.NewNotificationStore(db)
	txManager := postgres.NewTransactionManager(db)

	// Initialize catalog client
	catalogClient := catalog.New(catalog.Config{
		BaseURL:        cfg.Catalog.BaseURL,
		APIKey:         cfg.Catalog.APIKey,
		Timeout:        cfg.Catalog.Timeout,
		MaxAttempts:    cfg.Catalog.Retry.MaxAttempts,
		InitialBackoff: cfg.Catalog.Retry.InitialBackoff,
		MaxBackoff:     cfg.Catalog.Retry.MaxBackoff,
		SearchTTL:      cfg.Catalog.Cache.SearchTTL,
		DetailTTL:      cfg.Catalog.Cache.DetailTTL,
		StaleTTL:       cfg.Catalog.Cache.StaleTTL,
		MaxEntries:     cfg.Catalog.Cache.MaxEntries,
	}, logger)

	notifier := service.NewNotifier(
		gameStore,
		wishlistStore,
		notificationStore,
		notificationPublisher,
		notificationMetrics,
		location,
		logger,
		cfg.Release,
	)

	statusService := service.NewStatusService(
		gameStore,
		historyStore,
		txManager,
		notifier,
		location,
		logger,
	)

	syncService := service.NewSyncService(
		catalogClient,
		gameStore,
		statusService,
		notifier,
		ratelimit.NewInterval(cfg.Sync.ItemDelay),
		syncMetrics,
		location,
		logger,
		cfg.Sync,
	)

	sched := scheduler.NewScheduler(taskMetrics, logger)
	tasks := []scheduler.Task{
		{
			Name:         taskAutoRelease,
			InitialDelay: cfg.Release.SweepInitialDelay,
			Interval:     cfg.Release.SweepInterval,
			Timeout:      cfg.Release.RunTimeout,
			Run: func(ctx context.Context) error {
				_, err := statusService.AutoReleaseSweep(ctx)
				return err
			},
		},
		{
			Name:         taskReminders,
			InitialDelay: cfg.Release.ReminderInitialDelay,
			Interval:     cfg.Release.ReminderInterval,
			Timeout:      cfg.Release.RunTimeout,
			Run: func(ctx context.Context) error {
				_, err := notifier.ReminderSweep(ctx)
				return err
			},
		},
		{
			Name:         taskCatalogSync,
			InitialDelay: cfg.Sync.InitialDelay,
			Interval:     cfg.Sync.Interval,
			Timeout:      cfg.Sync.RunTimeout,
			Run: func(ctx context.Context) error {
				_, err := syncService.SyncBatch(ctx)
				return err
			},
		},
	}
	for _, task := range tasks {
		if err := sched.Register(task); err != nil {
			logger.Error("failed to register task", "task", task.Name, "error", err)
			os.Exit(1)
		}
	}

	var metricsServer *http.Server
	if metricsProvider.Enabled() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metricsProvider.Handler())
		metricsServer = &http.Server{
			Addr:              cfg.Metrics.Address,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", "address", cfg.Metrics.Address)
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server error", "error", err)
			}
		}()
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGUSR1)
		for sig := range sigCh {
			if sig == syscall.SIGUSR1 {
				go triggerSync(ctx, sched, logger)
				continue
			}
			logger.Info("received shutdown signal", "signal", sig)
			cancel()
			return
		}
	}()

	logger.Info("starting release tracker",
		"catalog", catalogClient.Name(),
		"timezone", location.String(),
		"sync_interval", cfg.Sync.Interval,
		"batch_size", cfg.Sync.BatchSize,
		"rabbitmq", cfg.RabbitMQ.Enabled,
	)

	err = sched.Start(ctx)

	if metricsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = metricsServer.Shutdown(shutdownCtx)
		shutdownCancel()
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("scheduler error", "error", err)
		os.Exit(1)
	}
}

// triggerSync runs an out-of-band catalog sync on SIGUSR1.
func triggerSync(ctx context.Context, sched *scheduler.Scheduler, logger *slog.Logger) {
	logger.Info("manual catalog sync requested")
	if err := sched.RunNow(ctx, taskCatalogSync); err != nil {
		logger.Warn("manual catalog sync did not complete", "error", err)
	}
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}
