package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"salesdash/internal/amqp"
	"salesdash/internal/cli"
	"salesdash/internal/log"
	"salesdash/internal/metrics"
	"salesdash/internal/worker"
)

// metricsAddr serves the worker's Prometheus registry.
const metricsAddr = ":9091"

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig(log.ComponentWorker)

	if !cfg.AMQPEnabled() {
		logger.Error("AMQP_URL is required for the report worker")
		os.Exit(1)
	}

	startCtx, cancelStart := context.WithTimeout(context.Background(), time.Minute)
	ds, stats, err := cli.OpenDataset(startCtx, logger, cfg)
	cancelStart()
	if err != nil {
		logger.Error("Failed to load dataset", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	rec := metrics.New()
	rec.SetDataset(ds.Len(), stats.Skipped, len(ds.Years()))

	if err := os.MkdirAll(cfg.ReportOutputDir, 0o755); err != nil {
		logger.Error("Failed to create report directory", "error", err, "dir", cfg.ReportOutputDir)
		os.Exit(1)
	}
	reports := worker.NewReportWorker(ds, cfg.ReportOutputDir, cfg.TopN, rec)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}

	metricsSrv := &http.Server{
		Addr:              metricsAddr,
		Handler:           rec.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("Metrics server stopped", "error", err)
		}
	}()

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Metrics server shutdown error", "error", err)
		}
	})

	logger.Info("Starting salesdash-worker",
		"queue", cfg.AMQPQueue,
		"output_dir", cfg.ReportOutputDir,
		log.FieldRows, ds.Len())

	err = amqpClient.ConsumeReportRequests(ctx, reports.HandleReportRequest)
	if cerr := amqpClient.Close(); cerr != nil {
		logger.Warn("AMQP close error", "error", cerr)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Report consumption failed", "error", err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
