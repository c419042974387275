// Package main is the entry point for the HabitPact background worker.
//
// The worker consumes the Redis change feed and re-runs the score
// aggregator for every user whose ledger changed, keeping the cached month
// totals warm. Notices arrive at-least-once and carry no payload beyond the
// user id, so recomputation is idempotent by construction.
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
	"github.com/habitpact/habitpact/internal/application/query"
	"github.com/habitpact/habitpact/internal/domain/profile"
	"github.com/habitpact/habitpact/internal/domain/shared"
	"github.com/habitpact/habitpact/internal/infrastructure/messaging"
	"github.com/habitpact/habitpact/internal/infrastructure/persistence/postgres"
	"github.com/habitpact/habitpact/internal/infrastructure/persistence/redis"
	"github.com/habitpact/habitpact/pkg/timeutil"
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
	if cfg.Redis.Disabled {
		return fmt.Errorf("the worker requires Redis; unset REDIS_DISABLED")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. Logging
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	log.Info("starting HabitPact worker",
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

	// ─────────────────────────────────────────────────────────────────────────
	// 4. Redis
	// ─────────────────────────────────────────────────────────────────────────
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
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	defer cache.Close()

	// ─────────────────────────────────────────────────────────────────────────
	// 5. Recompute pipeline
	// ─────────────────────────────────────────────────────────────────────────
	logRepo := postgres.NewLogRepository(conn)
	partnershipRepo := postgres.NewPartnershipRepository(conn)
	profileRepo := postgres.NewProfileRepository(conn)
	scoreCache := redis.NewScoreCache(cache)

	scores := query.NewGetScoreHandler(logRepo, partnershipRepo, profileRepo, scoreCache, scoreCacheTTL, log)
	recomputer := &recomputer{
		scores:   scores,
		profiles: profileRepo,
		timeout:  cfg.Worker.HandleTimeout,
		logger:   log,
	}

	consumer := messaging.NewChangeFeedConsumer(cache.Client(), recomputer.handle, log)
	if err := consumer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start change feed consumer: %w", err)
	}
	log.Info("HabitPact worker is running", "channel", messaging.ChangeFeedChannel)

	// ─────────────────────────────────────────────────────────────────────────
	// 6. Graceful shutdown
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
	}

	consumer.Stop()
	log.Info("shutdown completed successfully")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// RECOMPUTER
// ══════════════════════════════════════════════════════════════════════════════

// recomputer turns a change notice into a warm cache entry for the user's
// current local month.
type recomputer struct {
	scores   *query.GetScoreHandler
	profiles profile.Repository
	timeout  time.Duration
	logger   *slog.Logger
}

func (r *recomputer) handle(ctx context.Context, notice messaging.ChangeNotice) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	userID := shared.UserID(notice.UserID)
	if userID.IsEmpty() {
		return nil
	}

	period, err := r.currentMonth(ctx, userID)
	if err != nil {
		return err
	}

	score, err := r.scores.Recompute(ctx, userID, period)
	if err != nil {
		return fmt.Errorf("recompute for %s: %w", userID, err)
	}

	r.logger.Debug("score recomputed",
		"user_id", userID,
		"kind", notice.Kind,
		"total_points", score.TotalPoints,
	)
	return nil
}

// currentMonth resolves the user's current calendar month in their own
// timezone, falling back to UTC for an unknown profile.
func (r *recomputer) currentMonth(ctx context.Context, userID shared.UserID) (shared.Period, error) {
	loc := time.UTC
	p, err := r.profiles.GetByID(ctx, userID)
	switch {
	case err == nil:
		loc = p.Location()
	case shared.IsNotFound(err):
	default:
		return shared.Period{}, err
	}

	start, end := timeutil.MonthBounds(time.Now(), loc)
	return shared.NewPeriod(shared.DayOf(start), shared.DayOf(end))
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
