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

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/vxrdis/allen-interval-probabilities/internal/admin"
	"github.com/vxrdis/allen-interval-probabilities/internal/alert"
	"github.com/vxrdis/allen-interval-probabilities/internal/cache"
	"github.com/vxrdis/allen-interval-probabilities/internal/config"
	"github.com/vxrdis/allen-interval-probabilities/internal/runner"
	"github.com/vxrdis/allen-interval-probabilities/internal/simulate"
	"github.com/vxrdis/allen-interval-probabilities/internal/stats"
	"github.com/vxrdis/allen-interval-probabilities/internal/store"
	storeredis "github.com/vxrdis/allen-interval-probabilities/internal/store/redis"
	"github.com/vxrdis/allen-interval-probabilities/internal/tracing"
)

func main() {
	logLevel := slog.LevelInfo
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	switch cfg.Log.Level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	logger.Info("starting allensim",
		"p_born", cfg.Simulation.PBorn,
		"p_die", cfg.Simulation.PDie,
		"trials", cfg.Simulation.Trials,
		"seed", cfg.Simulation.Seed,
		"workers", cfg.Simulation.Workers,
		"batches", cfg.Simulation.Batches,
		"redis_enabled", cfg.Cache.RedisEnabled,
	)

	// Initialize OpenTelemetry tracing
	tracingEndpoint := ""
	if cfg.Tracing.Enabled {
		tracingEndpoint = cfg.Tracing.OTLPEndpoint
	}
	shutdownTracing, err := tracing.Init(context.Background(), cfg.Tracing.ServiceName, tracingEndpoint, true)
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("tracing shutdown error", "error", err)
		}
	}()
	if cfg.Tracing.Enabled {
		logger.Info("tracing enabled", "endpoint", cfg.Tracing.OTLPEndpoint)
	}

	// Result cache, optionally backed by Redis
	cacheOpts := []cache.Option{}
	if cfg.Cache.RedisEnabled {
		resultStore, err := storeredis.NewResultStore(cfg.Cache.RedisURL)
		if err != nil {
			logger.Error("failed to connect to redis", "error", err, "redis_url", cfg.Cache.RedisURL)
			os.Exit(1)
		}
		defer resultStore.Close()
		cacheOpts = append(cacheOpts, cache.WithStore(store.NewGuarded(resultStore, logger)))
		logger.Info("redis result store enabled", "redis_url", cfg.Cache.RedisURL)
	}
	resultCache := cache.New(logger, cacheOpts...)

	if cfg.Cache.RedisEnabled {
		warmed, err := resultCache.Warm(context.Background())
		if err != nil {
			logger.Warn("cache warm-up failed", "error", err)
		} else if warmed > 0 {
			logger.Info("cache warmed from result store", "entries", warmed)
		}
	}

	// Reference distributions for the uniformity endpoint
	references := []stats.Reference{}
	if cfg.Stats.ReferencesFile != "" {
		references, err = stats.LoadReferences(cfg.Stats.ReferencesFile)
		if err != nil {
			logger.Error("failed to load reference distributions", "error", err, "path", cfg.Stats.ReferencesFile)
			os.Exit(1)
		}
		logger.Info("loaded reference distributions", "count", len(references), "path", cfg.Stats.ReferencesFile)
	}

	// Alerting
	alerter := buildAlerter(cfg, logger)

	run := runner.New(logger)
	registry := runner.NewRegistry(0)

	adminSrv := admin.NewServer(run, resultCache, logger,
		admin.WithRunHistory(registry),
		admin.WithReferences(references...),
	)

	// Context with signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	g, gCtx := errgroup.WithContext(ctx)

	// Health check server
	g.Go(func() error {
		return runHealthServer(gCtx, cfg.Server.HealthPort, logger)
	})

	// Admin API server
	g.Go(func() error {
		return runAdminServer(gCtx, cfg.Server.AdminPort, adminSrv, logger)
	})

	// Startup simulation batches
	g.Go(func() error {
		if err := runStartupBatches(gCtx, cfg, run, registry, alerter, logger); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		return nil
	})

	// Signal handler
	g.Go(func() error {
		select {
		case sig := <-sigCh:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
			return nil
		case <-gCtx.Done():
			return nil
		}
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		logger.Error("allensim exited with error", "error", err)
		os.Exit(1)
	}

	logger.Info("allensim shut down gracefully")
}

func buildAlerter(cfg *config.Config, logger *slog.Logger) alert.Alerter {
	if cfg.Alert.WebhookURL == "" {
		return &alert.NoopAlerter{}
	}
	webhook := alert.NewWebhookAlerter(cfg.Alert.WebhookURL)
	return alert.NewMultiAlerter(cfg.Alert.Cooldown, logger, webhook)
}

// runStartupBatches executes the configured batch sequence once at startup,
// recording results and alerting on failure.
func runStartupBatches(
	ctx context.Context,
	cfg *config.Config,
	run *runner.Runner,
	registry *runner.Registry,
	alerter alert.Alerter,
	logger *slog.Logger,
) error {
	params := runner.BatchParams{
		Params: runner.Params{
			PBorn:      cfg.Simulation.PBorn,
			PDie:       cfg.Simulation.PDie,
			Trials:     cfg.Simulation.Trials,
			Seed:       cfg.Simulation.Seed,
			Workers:    cfg.Simulation.Workers,
			TickBudget: cfg.Simulation.TickBudget,
		},
		Batches: cfg.Simulation.Batches,
	}

	report, err := run.RunBatches(ctx, params, func(batch, total int, result *runner.Result) {
		registry.Record(result)
		logger.Info("batch completed",
			"batch", batch,
			"total", total,
			"elapsed_ms", result.Elapsed.Milliseconds(),
		)
	})
	if err != nil {
		alertType := alert.AlertTypeRunFailed
		if errors.Is(err, simulate.ErrNonTerminating) {
			alertType = alert.AlertTypeNonTerminating
		}
		if sendErr := alerter.Send(ctx, alert.Alert{
			Type:    alertType,
			RunKey:  store.ParamKey(params.PBorn, params.PDie, params.Trials, params.Seed),
			Title:   "Startup simulation failed",
			Message: err.Error(),
		}); sendErr != nil {
			logger.Warn("failed to send alert", "error", sendErr)
		}
		return fmt.Errorf("startup batches: %w", err)
	}

	probs, err := report.Aggregate.Probabilities()
	if err != nil {
		return fmt.Errorf("aggregate probabilities: %w", err)
	}

	uniformity, err := stats.Evaluate(report.Aggregate, stats.Uniform())
	if err != nil {
		return fmt.Errorf("uniformity evaluation: %w", err)
	}

	logger.Info("startup simulation finished",
		"batches", cfg.Simulation.Batches,
		"total_trials", report.Aggregate.Total(),
		"elapsed_ms", report.Elapsed.Milliseconds(),
		"entropy", uniformity.Entropy,
		"mode", uniformity.Mode.Name(),
		"probability_sum", probs.Sum(),
	)
	return nil
}

func runHealthServer(ctx context.Context, port int, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("ok")); err != nil {
			logger.Warn("failed to write health response", "error", err)
		}
	})
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && err != http.ErrServerClosed {
			logger.Warn("health server shutdown error", "error", err)
		}
	}()

	logger.Info("health server started", "port", port)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("health server: %w", err)
	}
	return nil
}

func runAdminServer(ctx context.Context, port int, adminSrv *admin.Server, logger *slog.Logger) error {
	rl := admin.NewRateLimitMiddleware(logger)
	defer rl.Stop()

	handler := rl.Wrap(admin.AuditMiddleware(logger, adminSrv.Handler()))

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: handler,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && err != http.ErrServerClosed {
			logger.Warn("admin server shutdown error", "error", err)
		}
	}()

	logger.Info("admin server started", "port", port)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("admin server: %w", err)
	}
	return nil
}
