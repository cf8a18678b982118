// Command maintenance runs one scheduler pass and exits. It serves cron-style
// invokers when the API's built-in ticker is disabled.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"spotshare/internal/clock"
	"spotshare/internal/config"
	"spotshare/internal/db"
	"spotshare/internal/events"
	"spotshare/internal/logger"
	"spotshare/internal/scheduler"
)

func main() {
	configPath := flag.String("config", "", "path to a config file")
	flag.Parse()

	logger.Init()
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	if err := logger.Setup(cfg.Log.Level, cfg.Log.Format); err != nil {
		logger.Fatalf("Failed to configure logger: %v", err)
	}
	defer logger.Sync()

	database, err := db.Connect(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	defer database.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	publisher, err := events.Open(cfg.Events, rdb)
	if err != nil {
		logger.Warn("Event publisher unavailable, continuing without events", "error", err)
		publisher = events.Noop{}
	}
	defer publisher.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := scheduler.NewRunner(scheduler.NewRepository(database), db.NewTxManager(database), publisher, clock.System())
	report, err := runner.RunOnce(ctx)
	if err != nil {
		logger.Error("Maintenance pass failed", "error", err)
		os.Exit(1)
	}

	logger.Info("Maintenance pass done",
		"candidates", report.Candidates,
		"reserved", report.Reserved,
		"completed", report.Completed,
		"failed", report.Failed,
	)
}
