package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirillkom/medical-doc-extractor/internal/bootstrap"
	"github.com/kirillkom/medical-doc-extractor/internal/config"
	"github.com/kirillkom/medical-doc-extractor/internal/core/domain"
	"github.com/kirillkom/medical-doc-extractor/internal/core/ports"
	"github.com/kirillkom/medical-doc-extractor/internal/observability/logging"
	"github.com/kirillkom/medical-doc-extractor/internal/observability/metrics"
)

const serviceName = "medscan-worker"

func main() {
	if err := run(); err != nil {
		log.Fatalf("worker error: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if !cfg.AsyncEnabled {
		return errors.New("worker requires ASYNC_ENABLED=true")
	}
	logger := logging.New(os.Stdout, serviceName, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	app, err := bootstrap.New(ctx, cfg,
		bootstrap.WithLogger(logger),
		bootstrap.WithBreakerObserver(workerMetrics.ObserveBreaker),
		bootstrap.WithDocumentRecorder(workerMetrics),
	)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer app.Close()

	mux := http.NewServeMux()
	mux.Handle("/metrics", workerMetrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("worker_metrics_server_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	var submissions ports.SubmissionProcessor = app.SubmitUC
	logger.Info("worker_subscribed", "subject", cfg.NATSSubmitSubject, "queue_group", cfg.NATSQueueGroup)
	err = app.Queue.SubscribeDocumentSubmitted(ctx, func(handlerCtx context.Context, submission domain.Submission) error {
		workerMetrics.StartDocument()
		defer workerMetrics.FinishDocument()
		workerMetrics.ObserveQueueLag(time.Since(submission.SubmittedAt))

		processCtx, cancel := context.WithTimeout(handlerCtx, cfg.WorkerDocumentTimeout)
		defer cancel()

		info, err := submissions.ProcessSubmission(processCtx, submission)
		if err != nil {
			return err
		}
		logger.Info("document_processed",
			"document_id", submission.DocumentID,
			"status", info.Status.String(),
			"folder_name", info.FolderName,
			"missing", info.MissingInformation,
		)
		return nil
	})
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	return nil
}
