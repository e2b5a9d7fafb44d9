// Package app builds the shared runtime (database, redis, repositories, loan service) used by
// both the API server and the scheduler binaries.
package app

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/segyhp/loan-tracker/internal/clock"
	"github.com/segyhp/loan-tracker/internal/config"
	"github.com/segyhp/loan-tracker/internal/domain"
	"github.com/segyhp/loan-tracker/internal/notification"
	"github.com/segyhp/loan-tracker/internal/repository"
	"github.com/segyhp/loan-tracker/internal/service"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type App struct {
	Config  *config.Config
	DB      *sqlx.DB
	Redis   *redis.Client
	Service *service.LoanService
	Logger  zerolog.Logger
}

// NewLogger configures the global zerolog logger from cfg and returns it
func NewLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Logging.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	if !cfg.IsProduction() && cfg.Logging.Format != "json" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	return log.Logger.With().Str("env", cfg.Server.Env).Logger()
}

// New connects to Postgres and Redis, runs migrations when enabled and wires the loan service
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*App, error) {
	db, err := initDB(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	logger.Info().Msg("Connected to database")

	if cfg.Database.AutoMigrate {
		if err := repository.RunMigrations(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		logger.Info().Msg("Database migrations applied")
	}

	redisClient, err := initRedis(cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("configure redis: %w", err)
	}
	if err := redisClient.Ping(ctx).Err(); err != nil {
		// Reminders fall back to skipping on ledger errors, so a cold cache is not fatal.
		logger.Warn().Err(err).Msg("Redis not reachable at startup")
	}

	clk := clock.NewSystem(cfg.Location())

	loanRepo := repository.NewLoanRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	notifier := notification.NewDispatcher(notificationRepo, redisClient, clk, logger)
	ledger := reminderLedger(cfg, db, redisClient)

	reminders := service.NewReminderSelector(loanRepo, notifier, ledger, clk, logger, service.ReminderConfig{
		Thresholds: domain.ReminderThresholds,
		Window:     cfg.Reminder.Window,
	})

	return &App{
		Config:  cfg,
		DB:      db,
		Redis:   redisClient,
		Service: service.NewLoanService(loanRepo, paymentRepo, reminders, clk, logger),
		Logger:  logger,
	}, nil
}

func (a *App) Close() {
	if err := a.Redis.Close(); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to close redis client")
	}
	if err := a.DB.Close(); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to close database")
	}
}

func reminderLedger(cfg *config.Config, db *sqlx.DB, redisClient *redis.Client) domain.ReminderLedger {
	if cfg.Reminder.Ledger == config.LedgerPostgres {
		return repository.NewReminderRepository(db)
	}
	return repository.NewReminderCache(redisClient)
}

func initDB(cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	return db, nil
}

func initRedis(cfg *config.Config) (*redis.Client, error) {
	opts, err := cfg.Redis.Options()
	if err != nil {
		return nil, err
	}
	return redis.NewClient(opts), nil
}
