package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/segyhp/loan-tracker/internal/app"
	"github.com/segyhp/loan-tracker/internal/config"
	"github.com/segyhp/loan-tracker/internal/scheduler"

	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger := app.NewLogger(cfg)
	logger.Info().Msg("Starting loan scheduler...")

	application, err := app.New(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer application.Close()

	s, err := scheduler.New(application.Service, scheduler.Config{
		SweepSpec:    cfg.Scheduler.SweepCron,
		ReminderSpec: cfg.Scheduler.ReminderCron,
		Location:     cfg.Location(),
		JobTimeout:   cfg.Scheduler.JobTimeout,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to schedule jobs")
	}

	s.Start()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down scheduler...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	s.Stop(ctx)
}
