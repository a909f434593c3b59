package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/guardiansafety/aegis/internal/adapters/http/api"
	"github.com/guardiansafety/aegis/internal/adapters/http/site"
	"github.com/guardiansafety/aegis/internal/adapters/http/swagger"
	service "github.com/guardiansafety/aegis/internal/app"
	"github.com/guardiansafety/aegis/internal/config"
	"github.com/guardiansafety/aegis/pkg/logger"
	"github.com/guardiansafety/aegis/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics
	// We collect our own custom system metrics instead
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Initialize logging
	if err := logger.Init(); err != nil {
		// Use stderr for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() {
		if err := logger.Sync(); err != nil {
			logger.Error(err)
		}
	}()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Use stderr for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Re-initialize onto the rotating file once the path is known
	if cfg.LogFile != "" {
		if err := logger.Init(logger.WithRotatingFile(cfg.LogFile)); err != nil {
			os.Stderr.WriteString("failed to open log file: " + err.Error() + "\n")
			return
		}
	}

	loggerInstance := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	// Create and start the service with configuration options
	svc := service.New(
		service.WithLogger(loggerInstance),
		service.WithTrackingIntervals(
			time.Duration(cfg.NormalIntervalMS)*time.Millisecond,
			time.Duration(cfg.EmergencyIntervalMS)*time.Millisecond,
		),
		service.WithAccuracyCeiling(cfg.AccuracyCeilingM),
		service.WithScoreWeights(cfg.ScoreWeights),
		service.WithScoringWindows(
			time.Duration(cfg.ScoreCacheTTLMS)*time.Millisecond,
			time.Duration(cfg.StalenessWindowMS)*time.Millisecond,
		),
		service.WithLowConfidenceThreshold(cfg.LowConfidenceThreshold),
		service.WithAreaFreshness(time.Duration(cfg.AreaFreshnessMS)*time.Millisecond),
		service.WithAdvisory(cfg.AdvisoryAPIKey, cfg.AdvisoryEndpoint, cfg.AdvisoryModel),
		service.WithAdvisoryBudget(time.Duration(cfg.AdvisoryTimeoutMS)*time.Millisecond, cfg.AdvisoryRetries),
		service.WithNotificationTuning(
			time.Duration(cfg.DedupeWindowMS)*time.Millisecond,
			time.Duration(cfg.SoundThrottleMS)*time.Millisecond,
			cfg.CenterCapacity,
		),
		service.WithDisplayWindows(
			time.Duration(cfg.HighDisplayMS)*time.Millisecond,
			time.Duration(cfg.DefaultDisplayMS)*time.Millisecond,
		),
		service.WithConnectivityCadence(
			time.Duration(cfg.ConnectivityPollMS)*time.Millisecond,
			time.Duration(cfg.PingTimeoutMS)*time.Millisecond,
			cfg.PingRetries,
		),
		service.WithDeliveryEndpoint(cfg.DeliveryEndpoint),
		service.WithDeliveryBudget(
			cfg.DeliveryAttempts,
			time.Duration(cfg.DeliveryBackoffMS)*time.Millisecond,
			time.Duration(cfg.DeliveryTimeoutMS)*time.Millisecond,
		),
		service.WithCountdownDelay(time.Duration(cfg.CountdownMS)*time.Millisecond),
		service.WithCancelPasswordHash(cfg.CancelPasswordHash),
		service.WithGuardianKeySecret(cfg.GuardianKeySecret),
		service.WithHistoryPath(cfg.HistoryDBPath),
	)
	if err := svc.Start(ctx); err != nil {
		os.Stderr.WriteString("failed to start service: " + err.Error() + "\n")
		return
	}
	defer svc.Stop()

	// Start system metrics updater
	go startSystemMetricsUpdater(ctx)

	// Start service metrics updater
	go startServiceMetricsUpdater(ctx, svc)

	// HTTP mux and routes.
	mux := http.NewServeMux()

	// Register the API reference under /api-docs
	swagger.Register(ctx, mux)

	// Register the embedded landing site at /
	site.Register(ctx, mux)

	// Register business API routes with the service dependency.
	apiServer := api.NewServer(svc, svc)
	apiServer.Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	// Start the HTTP server
	go func() {
		loggerInstance.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
			return
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(ctx, "server stopped")
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval) // Update every 10 seconds
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater starts a background goroutine that updates service metrics.
func startServiceMetricsUpdater(ctx context.Context, svc *service.Service) {
	ticker := time.NewTicker(serviceMetricsInterval) // Update every 5 seconds
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	// Update memory usage
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)

	// Update goroutine count
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	// Update GC pause time
	if m.NumGC > 0 {
		// Calculate average GC pause time
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

// updateServiceMetrics updates service-level metrics.
func updateServiceMetrics(svc *service.Service) {
	// Get current stats from the service
	stats := svc.GetStats()

	// GetStats already refreshes most gauges; re-publish the ones that go
	// stale while traffic is idle
	if activeAlerts, ok := stats["activeAlerts"].(int); ok {
		metrics.UpdateActiveAlerts(activeAlerts)
	}

	if activeStreams, ok := stats["activeStreams"].(int); ok {
		metrics.UpdateActiveStreams(activeStreams)
	}

	if areasTracked, ok := stats["areasTracked"].(int); ok {
		metrics.UpdateIndexedAreas(areasTracked)
	}

	if journalDepth, ok := stats["journalDepth"].(int); ok {
		metrics.UpdateJournalDepth(journalDepth)
	}
}
