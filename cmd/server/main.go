// Package main is the entry point for the HabitPact API server.
//
// The server owns the write path: habit and log commands, reviews,
// partnership lifecycle, and the queries the dashboard reads. Side effects
// (score cache invalidation, change-feed notices) ride on an in-process
// event bus; heavy recomputation is left to cmd/worker.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/habitpact/habitpact/config"
	"github.com/habitpact/habitpact/internal/application/command"
	"github.com/habitpact/habitpact/internal/application/eventhandler"
	"github.com/habitpact/habitpact/internal/application/query"
	"github.com/habitpact/habitpact/internal/infrastructure/messaging"
	"github.com/habitpact/habitpact/internal/infrastructure/persistence/postgres"
	"github.com/habitpact/habitpact/internal/infrastructure/persistence/redis"
	"github.com/habitpact/habitpact/internal/infrastructure/service"
	httpiface "github.com/habitpact/habitpact/internal/interface/http"
)

const scoreCacheTTL = 15 * time.Minute

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. Configuration
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. Logging
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	log.Info("starting HabitPact API server",
		"env", cfg.App.Environment,
		"version", cfg.App.Version,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. PostgreSQL
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database...")
	conn, err := connectDatabase(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		log.Info("closing database connection...")
		conn.Close()
	}()

	if cfg.Database.RunMigrations {
		log.Info("checking database migrations...")
		if err := postgres.NewMigrator(conn).Migrate(ctx); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info("database schema is up to date")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. Redis (optional: score memoization + change feed)
	// ─────────────────────────────────────────────────────────────────────────
	var (
		scoreCache  query.ScoreCache
		changeFeed  eventhandler.ChangeFeed
		cacheHealth httpiface.HealthChecker
	)
	if !cfg.Redis.Disabled {
		log.Info("connecting to Redis...")
		cache, err := redis.NewCache(redis.Config{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err != nil {
			log.Warn("failed to connect to Redis, score memoization and change feed disabled", "error", err)
		} else {
			defer cache.Close()
			scoreCache = redis.NewScoreCache(cache)
			changeFeed = messaging.NewChangeFeedPublisher(cache.Client(), log)
			cacheHealth = cache
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. Repositories
	// ─────────────────────────────────────────────────────────────────────────
	habitRepo := postgres.NewHabitRepository(conn)
	logRepo := postgres.NewLogRepository(conn)
	partnershipRepo := postgres.NewPartnershipRepository(conn)
	profileRepo := postgres.NewProfileRepository(conn)

	// ─────────────────────────────────────────────────────────────────────────
	// 6. Event bus + side effects
	// Synchronous dispatch: the score memo must be invalidated before the
	// command returns, or a follow-up read could serve a stale total.
	// ─────────────────────────────────────────────────────────────────────────
	busConfig := messaging.DefaultInMemoryEventBusConfig()
	busConfig.AsyncMode = false
	busConfig.Logger = log
	eventBus := messaging.NewInMemoryEventBus(busConfig)
	defer func() {
		log.Info("closing event bus...")
		_ = eventBus.Close()
	}()

	logChanged := eventhandler.NewLogChangedHandler(partnershipRepo, scoreCache, changeFeed, log)
	if err := logChanged.Subscribe(eventBus); err != nil {
		return fmt.Errorf("failed to subscribe event handler: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 7. Outbound adapters
	// ─────────────────────────────────────────────────────────────────────────
	var blobs command.BlobStore
	if cfg.Storage.URL != "" {
		blobs = service.NewPhotoStorage(service.PhotoStorageConfig{
			URL:        cfg.Storage.URL,
			ServiceKey: cfg.Storage.ServiceKey,
			Bucket:     cfg.Storage.Bucket,
		}, log)
	} else {
		log.Warn("photo storage is not configured, uploads disabled")
	}

	var notifier command.InviteNotifier
	if cfg.Notifier.WebhookURL != "" {
		notifier = service.NewWebhookNotifier(service.NotifierConfig{
			WebhookURL: cfg.Notifier.WebhookURL,
			AuthToken:  cfg.Notifier.AuthToken,
			Timeout:    cfg.Notifier.Timeout,
		}, log)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 8. Application handlers
	// ─────────────────────────────────────────────────────────────────────────
	deps := httpiface.Dependencies{
		CreateHabit:      command.NewCreateHabitHandler(habitRepo, eventBus, log),
		UpdateHabit:      command.NewUpdateHabitHandler(habitRepo, eventBus, log),
		DeleteHabit:      command.NewDeleteHabitHandler(habitRepo, eventBus, log),
		CreateLog:        command.NewCreateLogHandler(habitRepo, logRepo, profileRepo, blobs, eventBus, log),
		UpdateLog:        command.NewUpdateLogHandler(habitRepo, logRepo, profileRepo, blobs, eventBus, log),
		DeleteLog:        command.NewDeleteLogHandler(logRepo, profileRepo, eventBus, log),
		ReviewLog:        command.NewReviewLogHandler(logRepo, partnershipRepo, eventBus, log),
		CreateInvitation: command.NewCreateInvitationHandler(partnershipRepo, notifier, eventBus, log, cfg.App.PublicBaseURL),
		RedeemInvitation: command.NewRedeemInvitationHandler(partnershipRepo, eventBus, log),
		EndPartnership:   command.NewEndPartnershipHandler(partnershipRepo, eventBus, log),
		UpsertProfile:    command.NewUpsertProfileHandler(profileRepo, log),

		GetProfile:        query.NewGetProfileHandler(profileRepo),
		ListHabits:        query.NewListHabitsHandler(habitRepo),
		ListLogs:          query.NewListLogsHandler(logRepo),
		GetScore:          query.NewGetScoreHandler(logRepo, partnershipRepo, profileRepo, scoreCache, scoreCacheTTL, log),
		GetPartnership:    query.NewGetPartnershipHandler(partnershipRepo, profileRepo),
		ListPartnerHabits: query.NewListPartnerHabitsHandler(habitRepo, logRepo, partnershipRepo),

		Database: conn,
		Cache:    cacheHealth,
		Logger:   log,
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 9. HTTP server
	// ─────────────────────────────────────────────────────────────────────────
	serverCfg := httpiface.DefaultConfig()
	serverCfg.Host = cfg.HTTP.Host
	serverCfg.Port = cfg.HTTP.Port
	serverCfg.ReadTimeout = cfg.HTTP.ReadTimeout
	serverCfg.WriteTimeout = cfg.HTTP.WriteTimeout
	serverCfg.IdleTimeout = cfg.HTTP.IdleTimeout
	serverCfg.EnableCORS = cfg.HTTP.EnableCORS
	serverCfg.AllowedOrigins = cfg.HTTP.AllowedOrigins
	serverCfg.RateLimitPerMinute = cfg.HTTP.RateLimitPerMinute
	serverCfg.MaxBodyBytes = cfg.HTTP.MaxBodyBytes
	serverCfg.JWTSecret = cfg.Auth.JWTSecret

	server := httpiface.NewServer(serverCfg, deps)
	serverErr := server.StartAsync()

	log.Info("HabitPact API server is running", "address", serverCfg.Address())

	// ─────────────────────────────────────────────────────────────────────────
	// 10. Graceful shutdown
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", "error", err)
	}

	log.Info("shutdown completed successfully")
	return nil
}

// connectDatabase opens the pgx pool from either a full URL or discrete
// settings.
func connectDatabase(ctx context.Context, cfg *config.Config) (*postgres.Connection, error) {
	if cfg.Database.URL != "" {
		return postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	}
	return postgres.NewConnection(ctx, postgres.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		Database:        cfg.Database.Name,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		SSLMode:         cfg.Database.SSLMode,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.ConnMaxLifetime,
		MaxConnIdleTime: cfg.Database.ConnMaxIdleTime,
		ConnectTimeout:  cfg.Database.ConnectTimeout,
	})
}

// setupLogger configures structured logging.
func setupLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: logLevel(cfg.Observability.LogLevel)}
	if cfg.App.Debug {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	if strings.EqualFold(cfg.Observability.LogFormat, "text") {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)
	return log
}

func logLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
