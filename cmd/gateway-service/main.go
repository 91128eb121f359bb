// gateway-service is the HTTP gateway for remote-compute job operations.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"computegw/internal/api"
	"computegw/internal/auth"
	"computegw/internal/config"
	"computegw/internal/gateway"
	"computegw/internal/health"
	"computegw/internal/job"
	"computegw/internal/observability"
	"computegw/internal/remote/cloud"
	"computegw/internal/remote/docker"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	if err := run(); err != nil {
		slog.Error("Service failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// Load configuration
	svcCfg, err := config.LoadServiceConfig()
	if err != nil {
		return err
	}
	if svcCfg.CallerCredential == "" {
		return errors.New("GATEWAY_AUTH_TOKEN is required")
	}

	// Setup metrics
	metrics, metricsHandler, err := observability.NewMetrics(ctx)
	if err != nil {
		return err
	}

	// Create the remote backend
	remote, err := newRemote(ctx, svcCfg.Backend, metrics)
	if err != nil {
		return err
	}
	defer remote.Close()

	slog.Info("Remote backend ready", "backend", svcCfg.Backend)

	// Create health checker
	healthChecker := health.NewChecker(remote)

	// Create job service and gateway
	jobService := job.NewService(remote, metrics, job.Limits{
		MaxInstanceCount: svcCfg.MaxInstanceCount,
		MaxPageSize:      svcCfg.MaxPageSize,
	})
	gw := gateway.New(auth.NewVerifier(svcCfg.CallerCredential), jobService, metrics)

	// Create API router
	router := api.NewRouter(api.RouterConfig{
		Gateway:       gw,
		Metrics:       metrics,
		HealthChecker: healthChecker,
	})

	// Create API server
	apiServer := &http.Server{
		Addr:         ":" + svcCfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Create metrics server
	metricsMux := http.NewServeMux()
	metricsMux.Handle("GET /metrics", metricsHandler)
	metricsServer := &http.Server{
		Addr:         ":" + svcCfg.MetricsPort,
		Handler:      metricsMux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	// Channel to capture server errors
	serverErr := make(chan error, 1)

	// Start API server
	go func() {
		slog.Info("Starting API server", "port", svcCfg.Port)
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Start metrics server
	go func() {
		slog.Info("Starting metrics server", "port", svcCfg.MetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// shutdown closes both servers gracefully
	shutdown := func(timeout time.Duration) {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := apiServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("API server shutdown error", "error", err)
		}
		if err := metricsServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server shutdown error", "error", err)
		}
	}

	// Wait for interrupt signal or server error
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("Received shutdown signal", "signal", sig)
	case err := <-serverErr:
		slog.Error("Server failed to start", "error", err)
		shutdown(5 * time.Second)
		return err
	}

	// Phase 1: Mark service as unhealthy for load balancer draining
	healthChecker.SetShuttingDown()

	// Wait for load balancers to stop sending traffic
	if svcCfg.ShutdownDrainWait > 0 {
		slog.Info("Waiting for traffic to drain", "duration", svcCfg.ShutdownDrainWait)
		time.Sleep(svcCfg.ShutdownDrainWait)
	}

	// Phase 2: Graceful shutdown - stop accepting new connections, finish in-flight requests
	slog.Info("Starting graceful shutdown")
	shutdown(25 * time.Second)

	// Remote jobs are unaffected by this process stopping; the remote
	// service owns them and callers can resume polling after a restart.
	slog.Info("Shutdown complete")
	return nil
}

// newRemote constructs the remote backend selected by configuration.
func newRemote(ctx context.Context, backend config.Backend, metrics *observability.Metrics) (job.Remote, error) {
	switch backend {
	case config.BackendCloud:
		return cloud.New(cloud.LoadConfigFromEnv(), metrics)
	case config.BackendDocker:
		return docker.New(ctx, docker.LoadConfigFromEnv())
	default:
		return nil, fmt.Errorf("unknown remote backend %q", backend)
	}
}
