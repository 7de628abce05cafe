package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"showcase/internal/app"
	"showcase/internal/config"
	"showcase/internal/database"
	"showcase/internal/logger"
	"showcase/internal/models"
	"showcase/internal/services"
	"showcase/internal/storage"
	"showcase/pkg/rabbitmq"

	"github.com/spf13/viper"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatalf("showcase: %v", err)
	}
}

func run() error {
	// --- Configuration ---
	cfg, err := config.Load(viper.New())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	lg := logger.New(cfg.LogLevel)
	defer func() { _ = lg.Sync() }()

	// --- Database ---
	db, err := database.Open(cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(db); err != nil {
			lg.Warnw("database_close_failed", "err", err)
		}
	}()

	// --- Upload storage ---
	store, err := storage.New(context.Background(), cfg.Storage)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	// --- Project events (optional) ---
	var publisher services.EventPublisher
	if cfg.RabbitMQURL != "" {
		mqClient, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL}, lg.With("component", "rabbitmq"))
		if err != nil {
			return err
		}
		defer mqClient.Close()
		publisher = mqClient

		if err := mqClient.ConsumeProjectEvents(func(event models.ProjectEvent) error {
			lg.Infow("project_event_received",
				"type", event.Type, "project_id", event.ProjectID, "owner_id", event.OwnerID)
			return nil
		}); err != nil {
			lg.Warnw("rabbitmq_consumer_not_started", "err", err)
		}
	} else {
		lg.Infow("project_events_disabled")
	}

	server := app.New(cfg, db, store, publisher, lg)

	// --- Start HTTP Server ---
	listenErr := make(chan error, 1)
	go func() {
		lg.Infow("server_starting", "addr", cfg.AppPort, "storage", cfg.Storage.Backend, "database", cfg.Database.Driver)
		listenErr <- server.Listen(cfg.AppPort)
	}()

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-listenErr:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-quit:
		lg.Infow("server_stopping", "signal", sig.String())
	}

	if err := server.ShutdownWithTimeout(shutdownTimeout); err != nil {
		lg.Errorw("server_shutdown_failed", "err", err)
	}
	lg.Infow("server_stopped")
	return nil
}
