package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"nozze/internal/amqp"
	"nozze/internal/cli"
	apphttp "nozze/internal/http"
	"nozze/internal/log"
	"nozze/internal/metrics"
	"nozze/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.MustLoadConfig()
	logger := cli.SetupLogger(cfg, log.ComponentApp)

	repo, err := cli.OpenStorage(logger, cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", log.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// The publisher stays a nil interface when AMQP is off so services skip it.
	var publisher services.SyncPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			// Exports catch up through the worker's periodic pass.
			logger.Warn("AMQP unavailable, continuing without sync messages", log.FieldError, err)
		} else {
			defer client.Close()
			publisher = client
			logger.Info("AMQP publisher connected", "exchange", cfg.AMQPExchange)
		}
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	m := metrics.New()
	srv, err := apphttp.NewServer(apphttp.Options{
		Addr:         ":" + cfg.Port,
		Storage:      repo,
		Guests:       services.NewGuestService(repo, publisher),
		Seating:      services.NewSeatingService(repo, publisher, m),
		Budget:       services.NewBudgetService(repo, publisher, m),
		Metrics:      m,
		Logger:       logger,
		DashboardTTL: cfg.DashboardCacheTTL,
	})
	if err != nil {
		logger.Error("Failed to build HTTP server", log.FieldError, err)
		os.Exit(1)
	}

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting nozze server", "port", cfg.Port, log.FieldOperation, log.OpStartup)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	}

	cli.Shutdown(logger, 30*time.Second, srv.Shutdown)
	logger.Info("Server stopped gracefully")
}
