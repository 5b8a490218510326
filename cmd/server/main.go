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

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"intakedesk/internal/identity"
	"intakedesk/internal/intake/export"
	"intakedesk/internal/intake/handler"
	intakemetrics "intakedesk/internal/intake/metrics"
	"intakedesk/internal/intake/service"
	"intakedesk/internal/intake/store"
	"intakedesk/internal/intake/view"
	"intakedesk/internal/platform/config"
	"intakedesk/internal/platform/httpserver"
	"intakedesk/internal/platform/logger"
	"intakedesk/internal/platform/metrics"
	"intakedesk/internal/platform/middleware"
	"intakedesk/internal/platform/postgres"
	"intakedesk/internal/platform/redis"
	"intakedesk/internal/ratelimit"
	audit "intakedesk/pkg/platform/audit"
	"intakedesk/pkg/platform/audit/publisher"
	kafkastore "intakedesk/pkg/platform/audit/store/kafka"
	memorystore "intakedesk/pkg/platform/audit/store/memory"
	pgstore "intakedesk/pkg/platform/audit/store/postgres"
	"intakedesk/pkg/platform/audit/worker"
	"intakedesk/pkg/platform/middleware/admin"
	"intakedesk/pkg/platform/middleware/auth"
	"intakedesk/pkg/platform/middleware/metadata"
	"intakedesk/pkg/platform/middleware/requesttime"
)

// main wires dependencies, serves HTTP and shuts down on SIGINT or SIGTERM.
// Business logic lives in internal/intake.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel, cfg.ResolvedLogFormat())
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	var closers []func()
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}()

	var submissions service.Store
	var auditSink audit.Store
	if cfg.DatabaseURL != "" {
		pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		closers = append(closers, pool.Close)
		submissions = store.NewPostgres(pool)
		auditSink = pgstore.New(pool)
		log.Info("using postgres store")
	} else {
		submissions = store.NewInMemory()
		auditSink = memorystore.NewInMemoryStore()
		log.Warn("DATABASE_URL not set; submissions are kept in memory and lost on restart")
	}
	if brokers := cfg.KafkaBrokerList(); len(brokers) > 0 {
		kc, err := kafkastore.NewClient(brokers, cfg.AuditKafkaTopic)
		if err != nil {
			return err
		}
		closers = append(closers, kc.Close)
		auditSink = kafkastore.New(kc, cfg.AuditKafkaTopic)
		log.Info("audit events go to kafka", "topic", cfg.AuditKafkaTopic)
	}
	auditPublisher := publisher.NewPublisher(auditSink,
		publisher.WithAsyncBuffer(cfg.AuditBufferSize),
		publisher.WithLogger(log),
	)

	rc, err := redis.New(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	if rc != nil {
		closers = append(closers, func() { _ = rc.Close() })
	}
	verifier := buildVerifier(cfg, rc, reg, log)
	gate := admin.NewGate(admin.Config{StaticToken: cfg.AdminToken, AdminEmail: cfg.AdminEmail}, verifier, log,
		admin.WithAuditPublisher(auditPublisher),
		admin.WithMetrics(admin.NewMetrics(reg)),
	)

	views, err := view.New()
	if err != nil {
		return err
	}
	opts := []service.Option{
		service.WithLogger(log),
		service.WithAuditPublisher(auditPublisher),
		service.WithMetrics(intakemetrics.New(reg)),
		service.WithTracer(otel.Tracer("intakedesk/intake")),
	}
	if cfg.PDFExportEnabled {
		raster := export.NewRodRasterizer(cfg.ChromeControlURL, cfg.ChromeBin)
		closers = append(closers, func() {
			if err := raster.Close(); err != nil {
				log.Warn("closing browser", "error", err)
			}
		})
		opts = append(opts, service.WithExporter(export.New(views, raster)))
	}
	svc := service.New(submissions, opts...)

	// Validated by config.Load.
	proxies, _ := metadata.ParseTrustedProxies(cfg.TrustedProxyList())

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recovery(log))
	router.Use(requesttime.Middleware)
	router.Use(metadata.ClientMetadata(proxies))
	router.Use(middleware.Logger(log))
	router.Use(middleware.Latency(metrics.New(reg)))
	router.Use(middleware.CORS(cfg.AllowedOriginList()))
	limiter := buildLimiter(ctx, cfg, rc, reg, log)
	handler.New(svc, gate.Require, views, log,
		handler.WithSubmissionThrottle(limiter.Middleware),
	).Register(router)
	router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := httpserver.New(cfg.HTTPAddr, http.TimeoutHandler(router, cfg.RequestTimeout, "Request timed out"),
		httpserver.WithRequestTimeout(cfg.RequestTimeout),
		httpserver.WithLogger(log),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return worker.NewWorker(auditSink, auditPublisher.Events(), log).Run(gctx)
	})
	g.Go(func() error {
		log.Info("starting intake server", "addr", cfg.HTTPAddr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		auditPublisher.Close()
		if err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		log.Info("server stopped")
		return nil
	})
	return g.Wait()
}

// buildVerifier connects the identity service, with the redis cache in front
// when REDIS_URL is set. Without IDENTITY_URL only the static token admits.
func buildVerifier(cfg *config.Config, rc *redis.Client, reg prometheus.Registerer, log *slog.Logger) auth.Verifier {
	if cfg.IdentityURL == "" {
		log.Warn("IDENTITY_URL not set; bearer tokens are refused")
		return nil
	}
	var verifier auth.Verifier = identity.NewClient(cfg.IdentityURL, cfg.IdentityServiceKey,
		identity.WithHTTPClient(&http.Client{Timeout: cfg.IdentityTimeout}),
	)
	if rc == nil {
		return verifier
	}
	log.Info("identity cache enabled", "max_ttl", cfg.IdentityCacheMaxTTL)
	return identity.NewCachedVerifier(verifier, identity.NewRedisCache(rc.Client), cfg.IdentityCacheMaxTTL,
		identity.WithCacheLogger(log),
		identity.WithCacheMetrics(identity.NewCacheMetrics(reg)),
	)
}

// buildLimiter throttles public submissions per client IP. Windows are shared
// through redis when it is configured; otherwise each replica counts alone and
// idle windows are swept until ctx ends.
func buildLimiter(ctx context.Context, cfg *config.Config, rc *redis.Client, reg prometheus.Registerer, log *slog.Logger) *ratelimit.Limiter {
	if cfg.IntakeRateLimit <= 0 {
		log.Info("intake rate limit disabled")
		return nil
	}
	var store ratelimit.Store
	if rc != nil {
		store = ratelimit.NewRedisStore(rc.Client)
	} else {
		mem := ratelimit.NewInMemoryStore()
		go func() {
			ticker := time.NewTicker(cfg.IntakeRateWindow)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					mem.Sweep(cfg.IntakeRateWindow)
				}
			}
		}()
		store = mem
	}
	log.Info("intake rate limit enabled", "limit", cfg.IntakeRateLimit, "window", cfg.IntakeRateWindow)
	return ratelimit.New(store, cfg.IntakeRateLimit, cfg.IntakeRateWindow,
		ratelimit.WithLogger(log),
		ratelimit.WithMetrics(ratelimit.NewMetrics(reg)),
	)
}
