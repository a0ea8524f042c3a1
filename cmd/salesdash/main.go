package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"salesdash/internal/amqp"
	"salesdash/internal/cli"
	apphttp "salesdash/internal/http"
	"salesdash/internal/log"
	"salesdash/internal/metrics"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig(log.ComponentApp)

	startCtx, cancelStart := context.WithTimeout(context.Background(), time.Minute)
	ds, stats, err := cli.OpenDataset(startCtx, logger, cfg)
	cancelStart()
	if err != nil {
		logger.Error("Failed to load dataset", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	rec := metrics.New()
	rec.SetDataset(ds.Len(), stats.Skipped, len(ds.Years()))

	opts := apphttp.Options{
		TopN:             cfg.TopN,
		RawRowLimit:      cfg.RawRowLimit,
		CacheSize:        cfg.CacheSize,
		CacheTTL:         cfg.CacheTTL,
		ReportsPerMinute: cfg.ReportsPerMinute,
		Metrics:          rec,
		Logger:           logger,
	}

	var amqpClient *amqp.Client
	if cfg.AMQPEnabled() {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		opts.Publisher = amqpClient
		logger.Info("Report requests enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("Report requests disabled - no AMQP_URL provided")
	}

	srv, err := apphttp.NewServer(":"+cfg.Port, ds, opts)
	if err != nil {
		logger.Error("Failed to create HTTP server", "error", err)
		os.Exit(1)
	}
	srv.MaxHeaderBytes = 1 << 16

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close error", "error", err)
			}
		}
	})

	logger.Info("Starting salesdash server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		log.FieldRows, ds.Len(),
		"years", ds.Years())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
