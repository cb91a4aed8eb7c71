package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/okian/clerb/internal/adapters/cache"
	"github.com/okian/clerb/internal/adapters/catalog"
	"github.com/okian/clerb/internal/adapters/changefeed"
	"github.com/okian/clerb/internal/adapters/colors"
	"github.com/okian/clerb/internal/adapters/http/api"
	"github.com/okian/clerb/internal/adapters/http/site"
	"github.com/okian/clerb/internal/adapters/http/swagger"
	"github.com/okian/clerb/internal/adapters/repository"
	service "github.com/okian/clerb/internal/app"
	"github.com/okian/clerb/internal/config"
	"github.com/okian/clerb/internal/domain/dedupe"
	"github.com/okian/clerb/pkg/logger"
	"github.com/okian/clerb/pkg/metrics"
)

// HTTP server timeout constants. The write timeout is left at zero so the
// change stream can stay open.
const (
	readTimeout            = 10 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	shutdownTimeout        = 30 * time.Second
	serviceMetricsInterval = 5 * time.Second
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	// A missing .env is normal outside development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		os.Stderr.WriteString("failed to read .env: " + err.Error() + "\n")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if cfg.LogFormat == "json" {
		if err := logger.InitWith(os.Stdout, logger.FormatJSON); err != nil {
			os.Stderr.WriteString("failed to switch log format: " + err.Error() + "\n")
		}
	}
	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	a, err := build(ctx, cfg)
	if err != nil {
		log.Error(ctx, "startup failed", logger.Error(err))
		os.Exit(1)
	}
	defer a.close()

	go startServiceMetricsUpdater(ctx, a.svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           a.mux,
		ReadTimeout:       readTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	// Closing the broker ends open change streams so Shutdown can finish.
	srv.RegisterOnShutdown(a.broker.Close)

	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr), logger.String("database", cfg.DatabaseType))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "server stopped")
}

// app holds everything main starts so it can be torn down in order.
type app struct {
	mux      *http.ServeMux
	svc      *service.Service
	store    *repository.SQLStore
	db       *repository.DB
	cache    cache.Cache
	broker   *changefeed.Broker
	listener *changefeed.PGListener
}

// build opens the store and wires the service and HTTP routes.
func build(ctx context.Context, cfg *config.Config) (*app, error) {
	db, err := repository.Open(ctx, cfg.DatabaseType, repository.DialectConfig{
		Path: cfg.DatabasePath,
		URL:  cfg.DatabaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if _, err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	a := &app{db: db}
	a.broker = changefeed.NewBroker(changefeed.WithDeduper(
		dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(cfg.DedupeSize)),
	))
	a.store = repository.NewSQLStore(ctx, db, repository.WithPublisher(a.broker))
	a.cache = newCache(ctx, cfg)

	ttl := time.Duration(cfg.CacheTTLSeconds) * time.Second
	catalogOpts := []catalog.Option{
		catalog.WithTimeout(time.Duration(cfg.CatalogTimeoutMS) * time.Millisecond),
		catalog.WithRateLimit(cfg.CatalogRatePerSecond, cfg.CatalogBurst),
		catalog.WithCache(a.cache, ttl),
	}

	a.svc = service.New(a.store,
		service.WithBroker(a.broker),
		service.WithCatalog(catalog.NewGoogleBooks(cfg.GoogleBooksURL, cfg.GoogleBooksKey, catalogOpts...)),
		service.WithEditions(catalog.NewOpenLibrary(cfg.OpenLibraryURL, catalogOpts...)),
		service.WithExtractor(colors.NewExtractor(colors.WithCache(a.cache, ttl))),
		service.WithWorkerCount(cfg.ColorWorkerCount),
		service.WithQueueSize(cfg.ColorQueueSize),
		service.WithDedupeSize(cfg.DedupeSize),
		service.WithLogger(logger.Named("service")),
	)
	if err := a.svc.Start(ctx); err != nil {
		a.close()
		return nil, fmt.Errorf("start service: %w", err)
	}

	if cfg.ListenChanges && cfg.IsPostgres() {
		a.listener = changefeed.NewPGListener(cfg.DatabaseURL, a.broker)
		a.listener.Start(ctx)
	}

	a.mux = http.NewServeMux()
	site.Register(ctx, a.mux)
	swagger.Register(ctx, a.mux)
	api.NewServer(a.svc, a.svc, healthCheck{db: db, cache: a.cache}).Register(ctx, a.mux)
	return a, nil
}

// close releases resources in reverse start order.
func (a *app) close() {
	if a.listener != nil {
		a.listener.Stop()
	}
	if a.svc != nil {
		a.svc.Stop()
	}
	if a.broker != nil {
		a.broker.Close()
	}
	if a.store != nil {
		_ = a.store.Close()
	}
	if a.cache != nil {
		_ = a.cache.Close()
	}
	_ = a.db.Close()
}

// newCache returns Redis when configured and reachable, memory otherwise.
func newCache(ctx context.Context, cfg *config.Config) cache.Cache {
	memory := func() cache.Cache {
		return cache.NewMemory(cache.WithMaxTTL(time.Duration(cfg.CacheTTLSeconds) * time.Second))
	}
	if cfg.RedisAddr == "" {
		return memory()
	}
	r := cache.NewRedis(cache.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := r.Ping(ctx); err != nil {
		logger.Get().Warn(ctx, "redis unreachable; using in-memory cache",
			logger.String("addr", cfg.RedisAddr), logger.Error(err))
		_ = r.Close()
		return memory()
	}
	return r
}

// healthCheck reports the store and cache as one dependency.
type healthCheck struct {
	db    *repository.DB
	cache cache.Cache
}

func (h healthCheck) Ping(ctx context.Context) error {
	if err := h.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if h.cache != nil {
		if err := h.cache.Ping(ctx); err != nil {
			return fmt.Errorf("cache: %w", err)
		}
	}
	return nil
}

func startServiceMetricsUpdater(ctx context.Context, svc *service.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
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

func updateServiceMetrics(svc *service.Service) {
	stats := svc.GetStats()
	if queueLen, ok := stats["queueLength"].(int); ok {
		metrics.UpdateQueueSize(queueLen)
	}
	if size, ok := stats["queueSize"].(int); ok {
		metrics.UpdateQueueCapacity(size)
	}
	if subs, ok := stats["subscribers"].(int); ok {
		metrics.UpdateChangeSubscribers(subs)
	}
}
