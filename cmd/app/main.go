package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"spotshare/internal/availability"
	"spotshare/internal/booking"
	"spotshare/internal/clock"
	"spotshare/internal/config"
	"spotshare/internal/db"
	"spotshare/internal/events"
	"spotshare/internal/logger"
	"spotshare/internal/payment"
	"spotshare/internal/scheduler"
	"spotshare/internal/server"
	"spotshare/internal/spot"
	"spotshare/internal/wallet"
)

// @title SpotShare API
// @version 1.0
// @description Parking spot sharing: availability, booking requests and wallet settlement.
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
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
	logger.Info("Starting SpotShare application")

	logger.Info("Connecting to database...")
	database, err := db.Connect(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	defer database.Close()
	logger.Info("Database connected")

	if cfg.Database.AutoMigrate {
		if err := db.RunMigrations(database); err != nil {
			logger.Fatalf("Failed to run migrations: %v", err)
		}
		logger.Info("Migrations completed")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	publisher, err := events.Open(cfg.Events, rdb)
	if err != nil {
		logger.Fatalf("Failed to open event publisher: %v", err)
	}
	defer publisher.Close()
	logger.Info("Event publisher ready", "driver", cfg.Events.Driver)

	clk := clock.System()
	tx := db.NewTxManager(database)

	spotRepo := spot.NewRepository(database)
	bookingRepo := booking.NewRepository(database)
	walletRepo := wallet.NewRepository(database)
	engine := availability.NewEngine(bookingRepo)
	ledger := wallet.NewLedger(walletRepo, tx)

	spotService := spot.NewService(spotRepo, tx, engine, publisher, clk, cfg.Server.DefaultTimezone)
	bookingService := booking.NewService(bookingRepo, spotRepo, engine, ledger, tx, publisher, clk, cfg.Server.DefaultTimezone)
	runner := scheduler.NewRunner(scheduler.NewRepository(database), tx, publisher, clk)

	handlers := server.Handlers{
		Spots:    spot.NewHandler(spotService),
		Bookings: booking.NewHandler(bookingService),
		Wallet:   wallet.NewHandler(walletRepo),
		Runner:   runner,
		Ping:     database.PingContext,
	}
	if rp, ok := publisher.(*events.RedisPublisher); ok {
		handlers.History = events.NewHistoryHandler(rp)
	}
	if cfg.Payment.Enabled() {
		paymentService := payment.NewService(
			payment.NewStripeGateway(cfg.Payment),
			ledger,
			bookingService,
			publisher,
			clk,
			payment.Limits{MinTopUpCents: cfg.Payment.MinTopUpCents, MaxTopUpCents: cfg.Payment.MaxTopUpCents},
		)
		handlers.Payment = payment.NewHandler(paymentService)
		logger.Info("Stripe payments enabled", "currency", cfg.Payment.Currency)
	} else {
		logger.Warn("Stripe is not configured, checkout routes are disabled")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	schedulerDone := make(chan struct{})
	if cfg.Scheduler.Enabled {
		go func() {
			defer close(schedulerDone)
			runner.Start(ctx, cfg.Scheduler.Interval)
		}()
	} else {
		close(schedulerDone)
	}

	srv := server.New(cfg, handlers)

	serverErrChan := make(chan error, 1)
	go func() {
		logger.Infof("Server starting on %s", cfg.Server.Addr())
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Infof("Received signal: %v", sig)
	case err := <-serverErrChan:
		logger.Errorf("Server error: %v", err)
	}

	logger.Info("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Error during server shutdown: %v", err)
	}
	select {
	case <-schedulerDone:
	case <-shutdownCtx.Done():
		logger.Warn("Scheduler did not stop before the shutdown deadline")
	}

	logger.Info("Server stopped")
}
