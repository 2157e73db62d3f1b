package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"nozze/internal/amqp"
	"nozze/internal/backend"
	"nozze/internal/cli"
	"nozze/internal/log"
	"nozze/internal/metrics"
	"nozze/internal/services"
	"nozze/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.MustLoadConfig()
	logger := cli.SetupLogger(cfg, log.ComponentWorker)
	logger.Info("Starting nozze-worker", "backend", cfg.ExportBackend)

	repo, err := cli.OpenStorage(logger, cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", log.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid export backend", log.FieldError, err)
		os.Exit(1)
	}
	exp, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Logger).CreateExporter(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize export backend", log.FieldError, err)
		os.Exit(1)
	}
	if exp.Cleanup != nil {
		defer func() {
			if err := exp.Cleanup(); err != nil {
				logger.Error("Export backend cleanup failed", log.FieldError, err)
			}
		}()
	}

	syncWorker := worker.NewSyncWorker(repo, exp.Exporter, metrics.New(), cfg.SyncBatchSize)

	logger.Info("Performing startup sync check...")
	if err := syncWorker.StartupSyncCheck(ctx); err != nil {
		// Not fatal: the periodic pass retries the same items.
		logger.Error("Failed startup sync check", log.FieldError, err)
	}

	processor := services.NewSyncProcessor(syncWorker, services.SyncProcessorConfig{PollInterval: cfg.SyncInterval})
	if err := processor.Start(ctx); err != nil {
		logger.Error("Failed to start sync processor", log.FieldError, err)
		os.Exit(1)
	}

	g, gctx := errgroup.WithContext(ctx)
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer client.Close()

		g.Go(func() error {
			return client.Consume(gctx, syncWorker.HandleMessage)
		})
	} else {
		logger.Info("AMQP disabled - relying on the periodic export pass", "interval", cfg.SyncInterval)
	}
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", log.FieldError, err)
	}

	logger.Info("Shutting down worker...")
	cli.Shutdown(logger, 30*time.Second, processor.Stop)
}
