package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"media-deriver/internal/app"
	"media-deriver/internal/dispatch"
	"media-deriver/internal/handlers"
	"media-deriver/internal/logging"
	"media-deriver/internal/metrics"
	"media-deriver/internal/middleware"
	"media-deriver/internal/reporting"
	"media-deriver/internal/startup"
	"media-deriver/internal/transcoder"

	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

func main() {
	startTime := time.Now()

	// Load configuration
	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}
	defer logging.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := app.Build(ctx, config)
	if err != nil {
		startup.LogFatal("Failed to initialize processing components: %v", err)
	}
	runner, proc, reporter := c.Runner, c.Processor, c.Reporter

	monitor := app.StartMemoryMonitor(config)
	defer monitor.Stop()

	pool, err := app.NewPool(proc, config.WorkerPoolSize, config.RemoteWorkers, config.RemoteTimeout, monitor)
	if err != nil {
		startup.LogFatal("Failed to initialize worker pool: %v", err)
	}
	orch := dispatch.NewOrchestrator(c.Store, pool, config.Defaults)

	// Metrics
	metrics.SetAppInfo(startup.Version, startup.Commit, startup.GoVersion)
	metrics.InitializeMetrics()
	collector := metrics.NewCollector(metrics.StatsFunc(func() metrics.Stats {
		return metrics.Stats{ActiveProcesses: runner.Active()}
	}), 15*time.Second)
	collector.Start()
	defer collector.Stop()

	// Initialize handlers
	h := handlers.New(proc, handlers.NewBulkRunner(c.Store, orch), runner)

	router := setupRouter(h)
	startup.LogHTTPRoutes(router, config.LogHealthChecks)

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	handler := middleware.Logger(loggingConfig)(router)

	srv := &http.Server{
		Addr:              ":" + config.Port,
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	servers := []*http.Server{srv}
	if config.MetricsEnabled {
		metricsRouter := mux.NewRouter()
		metricsRouter.Handle("/metrics", h.MetricsHandler()).Methods(http.MethodGet)
		servers = append(servers, &http.Server{
			Addr:              ":" + config.MetricsPort,
			Handler:           metricsRouter,
			ReadHeaderTimeout: 15 * time.Second,
		})
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, s := range servers {
		g.Go(func() error {
			if err := s.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server %s: %w", s.Addr, err)
			}
			return nil
		})
	}

	h.SetReady(true)
	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})

	g.Go(func() error {
		<-gctx.Done()
		reason := "server error"
		if ctx.Err() != nil {
			reason = "signal received"
		}
		shutdown(reason, h, servers, runner, reporter)
		return nil
	})

	if err := g.Wait(); err != nil {
		startup.LogFatal("Server error: %v", err)
	}
}

func setupRouter(h *handlers.Handlers) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.Metrics(middleware.DefaultMetricsConfig()))

	// Health check and version routes
	r.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	r.HandleFunc("/healthz", h.HealthCheck).Methods(http.MethodGet)
	r.HandleFunc("/livez", h.LivenessCheck).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods(http.MethodGet)
	r.HandleFunc("/version", h.GetVersion).Methods(http.MethodGet)

	// Triggers and remote worker invocations
	r.HandleFunc("/", h.Trigger).Methods(http.MethodPost)

	return r
}

func shutdown(reason string, h *handlers.Handlers, servers []*http.Server, runner *transcoder.Runner, reporter *reporting.Reporter) {
	startup.LogShutdownInitiated(reason)
	h.SetReady(false)

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	startup.LogShutdownStep("Shutting down HTTP servers")
	for _, s := range servers {
		if err := s.Shutdown(ctx); err != nil {
			logging.Warn("Server %s shutdown error: %v", s.Addr, err)
		}
	}
	startup.LogShutdownStepComplete("HTTP servers stopped")

	startup.LogShutdownStep("Cleaning up transcoder")
	runner.Cleanup()
	startup.LogShutdownStepComplete("Transcoder cleanup complete")

	if reporter != nil {
		startup.LogShutdownStep("Flushing error reports")
		reporter.Flush(5 * time.Second)
		startup.LogShutdownStepComplete("Error reports flushed")
	}

	startup.LogShutdownComplete()
}
