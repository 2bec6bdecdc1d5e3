// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ManuGH/waitlistd/internal/audit"
	"github.com/ManuGH/waitlistd/internal/cache"
	"github.com/ManuGH/waitlistd/internal/config"
	"github.com/ManuGH/waitlistd/internal/domain/waitlist/calendar"
	"github.com/ManuGH/waitlistd/internal/domain/waitlist/catalog"
	"github.com/ManuGH/waitlistd/internal/domain/waitlist/clock"
	"github.com/ManuGH/waitlistd/internal/domain/waitlist/engine"
	"github.com/ManuGH/waitlistd/internal/domain/waitlist/notify"
	"github.com/ManuGH/waitlistd/internal/domain/waitlist/selector"
	"github.com/ManuGH/waitlistd/internal/domain/waitlist/store"
	"github.com/ManuGH/waitlistd/internal/domain/waitlist/token"
	"github.com/ManuGH/waitlistd/internal/health"
	xglog "github.com/ManuGH/waitlistd/internal/log"
	"github.com/ManuGH/waitlistd/internal/outbox"
	"github.com/ManuGH/waitlistd/internal/ratelimit"
	"github.com/ManuGH/waitlistd/internal/telemetry"
	waitlisthttp "github.com/ManuGH/waitlistd/internal/transport/http"
)

var (
	version   = "v0.1.0"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("waitlistd %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	xglog.Configure(xglog.Config{Level: "info", Service: "waitlistd", Version: version})
	logger := xglog.WithComponent("main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loader := config.NewLoader(*configPath)
	cfg, err := loader.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	if err := health.PerformStartupChecks(ctx, cfg); err != nil {
		logger.Fatal().Err(err).Msg("startup checks failed")
	}

	tracerProvider, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.TracingEnabled,
		ServiceName:    cfg.TracingServiceName,
		ServiceVersion: cfg.ServiceVersion,
		Environment:    cfg.Environment,
		ExporterType:   cfg.TracingExporterType,
		Endpoint:       cfg.TracingEndpoint,
		SamplingRate:   cfg.TracingSamplingRate,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize tracing")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("tracer shutdown failed")
		}
	}()

	s, err := newServer(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build server")
	}
	defer s.Close()

	go s.engine.Run(ctx)
	go s.calendarReconciler.Run(ctx)
	go s.outboxWorker.Run(ctx)

	holder := config.NewHolder(cfg, loader)
	if err := holder.StartWatcher(ctx, *configPath); err != nil {
		logger.Warn().Err(err).Msg("config watcher disabled")
	}

	router := waitlisthttp.NewRouter(
		waitlisthttp.NewServer(s.engine, s.limiter),
		waitlisthttp.DefaultRouterConfig(),
	)
	apiSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	opsMux := http.NewServeMux()
	opsMux.Handle("/metrics", promhttp.Handler())
	opsMux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { s.health.ServeHealth(w, r) })
	opsMux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) { s.health.ServeReady(w, r) })
	opsSrv := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           opsMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info().Str("addr", cfg.ListenAddr).Msg("waitlistd API listening")
		if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("api server: %w", err)
		}
	}()
	go func() {
		logger.Info().Str("addr", cfg.MetricsAddr).Msg("waitlistd ops listening")
		if err := opsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("ops server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = apiSrv.Shutdown(shutdownCtx)
	_ = opsSrv.Shutdown(shutdownCtx)
}

// server bundles every long-lived component wired in newServer, so main can
// start their background loops and close them uniformly on shutdown.
type server struct {
	engine             *engine.Engine
	limiter            *ratelimit.Limiter
	health             *health.Manager
	calendarReconciler *calendar.Reconciler
	outboxWorker       *outbox.Worker
	outboxQueue        *outbox.Queue
	closers            []func() error
}

func (s *server) Close() {
	for _, c := range s.closers {
		_ = c()
	}
}

// newServer wires config into the full set of waitlistd components: the
// Store backend, the Candidate Selector (optionally Redis-cached), the
// engine, the notification Dispatcher (outbox-queued webhook delivery),
// the Calendar Adapter, and health checkers.
func newServer(cfg config.Config) (*server, error) {
	s := &server{}

	st, storeCloser, err := buildStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("build store: %w", err)
	}
	s.closers = append(s.closers, storeCloser)

	realClock := clock.RealClock{}
	codec := token.NewCodec([]byte(cfg.TokenSigningKey), cfg.ConfirmTokenTTL)
	auditLogger := audit.NewLogger(st)
	sel := buildSelector(st, realClock, cfg)

	queue, err := outbox.Open(cfg.OutboxDir)
	if err != nil {
		return nil, fmt.Errorf("open outbox: %w", err)
	}
	s.outboxQueue = queue
	s.closers = append(s.closers, queue.Close)

	webhookTransport := notify.NewWebhookTransport(os.Getenv("WAITLISTD_NOTIFY_WEBHOOK_URL"))
	queuedTransport := notify.NewQueuedTransport(queue)
	svcCatalog := catalog.NewStatic()
	if seedPath := os.Getenv("WAITLISTD_CATALOG_SEED_PATH"); seedPath != "" {
		if err := catalog.LoadSeedFile(svcCatalog, seedPath); err != nil {
			return nil, fmt.Errorf("load catalog seed file: %w", err)
		}
		catalogWatcher := catalog.NewWatcher(svcCatalog, seedPath)
		if err := catalogWatcher.Start(context.Background()); err != nil {
			return nil, fmt.Errorf("watch catalog seed file: %w", err)
		}
		s.closers = append(s.closers, func() error { catalogWatcher.Stop(); return nil })
	}
	dispatcher := notify.New(queuedTransport, svcCatalog, svcCatalog)

	worker := outbox.NewWorker(queue, cfg.OutboxPollInterval, cfg.OutboxPageSize)
	notify.RegisterSendHandler(worker, webhookTransport)
	s.outboxWorker = worker

	calendarProvider := calendar.NewHTTPProvider(os.Getenv("WAITLISTD_CALENDAR_BASE_URL"))
	calendarAdapter := calendar.New(st, calendarProvider)
	s.calendarReconciler = calendar.NewReconciler(st, calendarProvider, cfg.CalendarReconcileInterval, cfg.CalendarReconcilePageSize)

	eng := engine.NewWithSelector(st, realClock, sel, codec, auditLogger, dispatcher, calendarAdapter, engine.Config{
		HoldTTL:                  cfg.HoldTTL,
		ConfirmTokenTTL:          cfg.ConfirmTokenTTL,
		CascadeFanoutK:           cfg.CascadeFanoutK,
		TickerInterval:           cfg.TickerInterval,
		TickerPageSize:           cfg.TickerPageSize,
		MaxActiveEntriesPerPhone: cfg.MaxActiveEntriesPerPhone,
	})
	s.engine = eng

	if cfg.RateLimitEnabled {
		s.limiter = ratelimit.New(ratelimit.DefaultConfig())
	}

	s.health = buildHealthManager(version, st, eng, cfg)

	return s, nil
}

// buildStore selects the Store backend per cfg.StoreDSN: ":memory:" for an
// ephemeral in-process store (tests, demos), otherwise a file-backed
// SQLite store.
func buildStore(cfg config.Config) (store.Store, func() error, error) {
	if cfg.StoreDSN == ":memory:" {
		return store.NewMemory(), func() error { return nil }, nil
	}
	sq, err := store.NewSqlite(cfg.StoreDSN)
	if err != nil {
		return nil, nil, err
	}
	return sq, sq.Close, nil
}

// buildSelector wraps a plain Selector with a Redis-backed candidate cache
// when cfg.RedisAddr is set, falling back to an in-memory cache otherwise
// (SPEC_FULL.md §3).
func buildSelector(st store.Store, c clock.Clock, cfg config.Config) selector.Interface {
	base := selector.New(st, c)

	var backing cache.Cache
	if cfg.RedisAddr != "" {
		redisCache, err := cache.NewRedisCache(cache.RedisConfig{Addr: cfg.RedisAddr}, zerolog.Nop())
		if err != nil {
			xglog.WithComponent("main").Warn().Err(err).Msg("redis cache unavailable, falling back to in-memory")
			backing = cache.NewMemoryCache(time.Minute)
		} else {
			backing = redisCache
		}
	} else {
		backing = cache.NewMemoryCache(time.Minute)
	}

	return selector.NewCaching(base, backing)
}

// buildHealthManager registers waitlistd's health checkers: a store ping
// and the Hold Ticker's last-run age.
func buildHealthManager(version string, st store.Store, eng *engine.Engine, cfg config.Config) *health.Manager {
	m := health.NewManager(version)
	m.RegisterChecker(health.NewStoreChecker(func(ctx context.Context) error {
		_, err := st.ListExpiredHolds(ctx, time.Now(), 1)
		return err
	}))
	m.RegisterChecker(health.NewTickerChecker(eng.LastTickerRun, cfg.TickerInterval*3))
	return m
}
