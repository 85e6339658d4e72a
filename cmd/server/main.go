package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	donorhandler "bloodlink/internal/donor/handler"
	donormetrics "bloodlink/internal/donor/metrics"
	donorservice "bloodlink/internal/donor/service"
	donorstore "bloodlink/internal/donor/store"
	emergencyhandler "bloodlink/internal/emergency/handler"
	emergencymetrics "bloodlink/internal/emergency/metrics"
	emergencyservice "bloodlink/internal/emergency/service"
	emergencystore "bloodlink/internal/emergency/store"
	"bloodlink/internal/location"
	"bloodlink/internal/platform/config"
	"bloodlink/internal/platform/database"
	"bloodlink/internal/platform/health"
	"bloodlink/internal/platform/logger"
	"bloodlink/internal/platform/metrics"
	"bloodlink/internal/platform/redis"
	"bloodlink/internal/platform/tracer"
	"bloodlink/internal/seeder"
	httptransport "bloodlink/internal/transport/http"
	"bloodlink/migrations"
	"bloodlink/pkg/platform/audit"
	auditmemory "bloodlink/pkg/platform/audit/store/memory"
	auditpostgres "bloodlink/pkg/platform/audit/store/postgres"
	"bloodlink/pkg/platform/circuit"
	"bloodlink/pkg/platform/middleware/request"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.Server.Environment)

	log.Info("initializing bloodlink",
		"addr", cfg.Server.Addr,
		"environment", cfg.Server.Environment,
		"postgres", cfg.Database.URL != "",
		"redis", cfg.Redis.URL != "",
	)
	if cfg.Server.AdminAPIToken == "" {
		log.Warn("ADMIN_API_TOKEN is not set; admin routes will reject every request")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	healthHandler := health.New(cfg.Server.Environment)
	infra := metrics.NewInfra()
	infra.BuildInfo.WithLabelValues(health.Version, cfg.Server.Environment).Set(1)

	pool, err := database.New(cfg.Database)
	if err != nil {
		return err
	}
	if pool != nil {
		defer pool.Close() //nolint:errcheck // process is exiting
		healthHandler.RegisterCheck("postgres", pool.Health)
		if cfg.Database.BootstrapSchema {
			if err := pool.Bootstrap(ctx, migrations.FS); err != nil {
				return err
			}
			log.Info("database schema bootstrapped")
		}
	}

	cache, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if cache != nil {
		defer cache.Close() //nolint:errcheck // process is exiting
		healthHandler.RegisterCheck("redis", cache.Health)
	}

	var (
		donors     donorservice.Store
		requests   emergencyservice.Store
		auditStore audit.Emitter
	)
	if pool != nil {
		donors = donorstore.NewPostgres(pool.DB())
		requests = emergencystore.NewPostgres(pool.DB())
		auditStore = auditpostgres.New(pool.DB())
	} else {
		donors = donorstore.NewInMemory()
		requests = emergencystore.NewInMemory()
		auditStore = auditmemory.New()
	}
	auditLogger := audit.NewLogger(log, auditStore)

	gazetteer := location.NewStatic(seeder.Places...)
	resolver := buildResolver(cfg, log, gazetteer, cache)

	donorSvc, err := donorservice.New(donors,
		donorservice.WithLogger(log),
		donorservice.WithAuditLogger(auditLogger),
		donorservice.WithMetrics(donormetrics.New()),
	)
	if err != nil {
		return err
	}
	emergencySvc, err := emergencyservice.New(requests, donorSvc,
		emergencyservice.WithLogger(log),
		emergencyservice.WithAuditLogger(auditLogger),
		emergencyservice.WithMetrics(emergencymetrics.New()),
		emergencyservice.WithTracer(tracer.NewOTel()),
		emergencyservice.WithResolver(resolver),
		emergencyservice.WithMaxResults(cfg.Matching.MaxResults),
		emergencyservice.WithMatchTimeout(cfg.Matching.Timeout),
		emergencyservice.WithCriticalThreshold(cfg.Matching.CriticalUnitsThreshold),
	)
	if err != nil {
		return err
	}

	if cfg.Server.SeedDemoData && pool == nil && !cfg.IsProduction() {
		if err := seeder.New(donorSvc, emergencySvc, gazetteer, log).SeedAll(ctx); err != nil {
			return err
		}
	}

	router := httptransport.NewRouter(httptransport.Config{
		AdminToken:     cfg.Server.AdminAPIToken,
		RequestTimeout: cfg.Server.RequestTimeout,
		Latency:        request.NewMetrics(),
		Metrics:        promhttp.Handler(),
	}, log, healthHandler,
		donorhandler.New(donorSvc, log),
		emergencyhandler.New(emergencySvc, cfg.Matching.CriticalUnitsThreshold, log),
	)

	var statsDB metrics.DBStatsSource
	if pool != nil {
		statsDB = pool
	}
	var statsCache metrics.PoolStatsRecorder
	if cache != nil {
		statsCache = cache
	}
	go infra.Run(ctx, 15*time.Second, statsDB, statsCache)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting http server", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down server gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// buildResolver layers the Redis cache (when configured) and a circuit
// breaker over the static gazetteer.
func buildResolver(cfg config.Config, log *slog.Logger, gazetteer *location.StaticResolver, cache *redis.Client) location.Resolver {
	locMetrics := location.NewMetrics()
	var resolver location.Resolver = gazetteer
	if cache != nil {
		resolver = location.NewRedisCache(cache, gazetteer, cfg.Matching.LocationCacheTTL,
			location.WithCacheLogger(log),
			location.WithCacheMetrics(locMetrics),
		)
	}
	breaker := circuit.New("location",
		circuit.WithStateChangeHook(func(name string, from, to circuit.State) {
			log.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		}),
	)
	return location.NewGuarded(resolver, breaker, locMetrics)
}
