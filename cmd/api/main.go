package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"finmanager/internal/amqp"
	"finmanager/internal/config"
	"finmanager/internal/database"
	"finmanager/internal/logger"
	"finmanager/internal/notification"
	"finmanager/internal/scheduler"
	"finmanager/internal/server"
)

// @title           finmanager API
// @version         1.0
// @description     Personal finance API: categories, transactions, budgets, saving goals, reports, CSV import and notifications.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	dbManager, err := database.NewManager(cfg)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer dbManager.Close()

	if err := dbManager.Migrate(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	var publisher notification.Publisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingKey)
		if err != nil {
			return fmt.Errorf("failed to connect to AMQP broker: %w", err)
		}
		defer client.Close()
		publisher = client
		log.Infow("publishing notifications", "exchange", cfg.AMQPExchange, "routing_key", cfg.AMQPRoutingKey)
	}

	store := notification.NewStore()
	svcs := server.NewServices(dbManager.DB(), store, cfg, publisher)
	router := server.NewRouter(svcs, cfg)

	if !cfg.AuthEnabled() {
		log.Warn("JWT_SECRET is empty, API authentication is disabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(ctx, ":"+cfg.Port, router)
	})
	if cfg.SchedulerEnabled {
		sched := scheduler.New()
		server.ScheduleChecks(sched, svcs.Notifications, cfg)
		g.Go(func() error {
			return sched.Run(ctx)
		})
	}

	log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", cfg.Port)
	return g.Wait()
}
