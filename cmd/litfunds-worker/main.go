package main

import (
	"context"
	"flag"
	"os"
	"time"

	"litfunds/internal/amqp"
	"litfunds/internal/backend"
	"litfunds/internal/cli"
	applog "litfunds/internal/log"
	"litfunds/internal/services"
	"litfunds/internal/worker"
)

func main() {
	backfillUser := flag.String("backfill", "", "import the given user's sheet rows into the store and exit")
	flag.Parse()

	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(applog.ComponentWorker, cfg.Level())
	logger.Info("Starting litfunds-worker")

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	if backendCfg.Type == backend.MemoryBackend {
		logger.Warn("Worker is running on the memory backend and will not see the web app's data")
	}
	// The worker consumes events but never publishes them.
	backendCfg.AMQPURL = ""

	factory := backend.NewFactory(logger.WithComponent(applog.ComponentStorage).Logger)
	res, err := factory.CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err)
		os.Exit(1)
	}
	defer res.Cleanup()

	mirror, err := factory.CreateMirror(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize spreadsheet mirror", "error", err)
		os.Exit(1)
	}
	if !mirror.Remote && *backfillUser != "" {
		logger.Error("Backfill needs GOOGLE_SPREADSHEET_ID")
		os.Exit(1)
	}

	if *backfillUser != "" {
		txs := services.NewTransactionService(res.Store, nil, nil)
		result, err := worker.Backfill(context.Background(), mirror.Mirror, txs, *backfillUser)
		if err != nil {
			logger.Error("Backfill failed", "error", err, applog.FieldUserID, *backfillUser)
			os.Exit(1)
		}
		logger.Info("Backfill finished",
			applog.FieldUserID, *backfillUser,
			"imported", result.Imported,
			"duplicates", result.Duplicates,
			"skipped", result.Skipped)
		return
	}

	syncWorker := worker.NewSyncWorker(res.Store, mirror.Mirror, cfg.SyncBatchSize)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	// Catch up on anything missed while the worker was down.
	if n, err := syncWorker.ReconcileAll(ctx, res.Store); err != nil {
		logger.Error("Startup reconcile failed", "error", err)
	} else {
		logger.Info("Startup reconcile finished", "count", n)
	}
	go syncWorker.RunReconciler(ctx, res.Store, cfg.SyncInterval)

	if cfg.AMQPEnabled() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client, relying on periodic reconcile", "error", err)
		} else {
			defer client.Close()
			go func() {
				if err := syncWorker.Run(ctx, client); err != nil {
					logger.Error("Event consumption failed", "error", err)
				}
			}()
		}
	} else {
		logger.Info("AMQP disabled, relying on periodic reconcile", "interval", cfg.SyncInterval)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}
