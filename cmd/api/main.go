package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/net/netutil"

	httpadapter "github.com/kirillkom/medical-doc-extractor/internal/adapters/http"
	"github.com/kirillkom/medical-doc-extractor/internal/bootstrap"
	"github.com/kirillkom/medical-doc-extractor/internal/config"
	"github.com/kirillkom/medical-doc-extractor/internal/core/ports"
	"github.com/kirillkom/medical-doc-extractor/internal/observability/logging"
	"github.com/kirillkom/medical-doc-extractor/internal/observability/metrics"
)

const serviceName = "medscan-api"

func main() {
	if err := run(); err != nil {
		log.Fatalf("api error: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger := logging.New(os.Stdout, serviceName, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpMetrics := metrics.NewHTTPServerMetrics(serviceName)
	app, err := bootstrap.New(ctx, cfg,
		bootstrap.WithLogger(logger),
		bootstrap.WithBreakerObserver(httpMetrics.ObserveBreaker),
		bootstrap.WithDocumentRecorder(httpMetrics),
	)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer app.Close()

	var submitter ports.DocumentSubmitter
	if app.SubmitUC != nil {
		submitter = app.SubmitUC
	}
	router := httpadapter.NewRouter(cfg, app.ProcessUC, submitter, app.ResolveUC).
		WithMetrics(httpMetrics).
		Handler()

	listener, err := net.Listen("tcp", ":"+cfg.APIPort)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	if cfg.APIMaxConnections > 0 {
		listener = netutil.LimitListener(listener, cfg.APIMaxConnections)
	}

	server := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		// Gemini extraction of a multi-page scan can take minutes.
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("api_listening", "port", cfg.APIPort, "async_enabled", cfg.AsyncEnabled, "notify_mode", cfg.NotifyMode)
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("api_shutdown_failed", "error", err)
	}
	return nil
}
