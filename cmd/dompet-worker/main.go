package main

import (
	"context"
	"errors"
	"time"

	"dompet/internal/amqp"
	"dompet/internal/backend"
	"dompet/internal/cli"
	"dompet/internal/log"
	"dompet/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	bootLogger := log.New(log.DefaultConfig())
	cfg, err := cli.LoadConfig()
	if err != nil {
		cli.Fatal(bootLogger, "Configuration validation failed", err)
	}

	logger, err := cli.SetupLogger(cfg, log.ComponentWorker)
	if err != nil {
		cli.Fatal(bootLogger, "Invalid log configuration", err)
	}
	if cfg.AMQPURL == "" {
		cli.Fatal(logger, "Worker requires a broker", errors.New("AMQP_URL is not set"))
	}
	logger.Info("Starting dompet-worker", "queue", cfg.AMQPQueue)

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize AMQP client", err)
	}
	defer client.Close()

	writer, err := backend.NewActivityWriter(context.Background(), cfg, logger.Logger.With(log.FieldComponent, log.ComponentSheets))
	if err != nil {
		cli.Fatal(logger, "Failed to initialize activity writer", err)
	}

	wcfg := worker.DefaultConfig()
	if cfg.WorkerPrefetch > 0 {
		wcfg.Prefetch = cfg.WorkerPrefetch
	}
	w := worker.NewActivityWorker(writer, wcfg)

	ctx, done := cli.GracefulShutdown(logger, 10*time.Second, nil)
	if err := w.Run(ctx, client); err != nil && !errors.Is(err, context.Canceled) {
		client.Close()
		cli.Fatal(logger, "Activity worker stopped", err)
	}
	<-done
}
