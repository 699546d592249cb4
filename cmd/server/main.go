// Command server hosts the analysis engine for a presentation shell:
// the JSON query surface, the import-progress websocket and the metrics
// endpoint.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mdacli/internal/config"
	"mdacli/internal/importer"
	"mdacli/internal/infrastructure"
	"mdacli/internal/middleware"
	"mdacli/internal/services"
	"mdacli/internal/session"
	"mdacli/internal/stats"
	transporthttp "mdacli/internal/transport/http"
	"mdacli/internal/websocket"
	"mdacli/pkg/contracts"
)

func main() {
	configFile := flag.String("config", "", "optional YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := infrastructure.MustInitializeLogger(cfg.Logging)
	defer infrastructure.CloseLogFile()
	logger.Info("starting", slog.String("version", contracts.GetFullVersionString()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := websocket.NewHub(logger)
	defer hub.Shutdown()

	metrics := importer.NewMetrics(prometheus.DefaultRegisterer)

	store := session.NewStore(stats.NewEngine(cfg.Analysis.MinSamples), logger)
	imp := importer.New(store, logger, importer.Options{
		Workers:           cfg.Import.Workers,
		HeaderScanWindow:  cfg.Import.HeaderScanWindow,
		MaxFailureDetails: cfg.Import.MaxFailureDetails,
		OnProgress:        hub.PublishProgress,
		Metrics:           metrics,
	})
	service := services.NewAnalysisService(cfg, store, imp, logger)

	handler := transporthttp.NewAnalysisHandler(service, hub, logger)
	handler.ImportLimiter = middleware.RateLimit(cfg.Server.ImportRPS, cfg.Server.ImportBurst)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.Recoverer(logger))
	router.Mount("/api/analysis", handler.Routes())
	router.Handle("/ws/progress", hub)
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok " + contracts.Version))
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("analysis server listening", slog.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", slog.String("error", err.Error()))
	}
}
