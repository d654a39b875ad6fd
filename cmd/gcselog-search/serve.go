package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/ajjswift/gcselog-search-new/internal/config"
	"github.com/ajjswift/gcselog-search-new/internal/db"
	dbPostgres "github.com/ajjswift/gcselog-search-new/internal/db/postgres"
	"github.com/ajjswift/gcselog-search-new/internal/db/query"
	dbRedis "github.com/ajjswift/gcselog-search-new/internal/db/redis"
	"github.com/ajjswift/gcselog-search-new/internal/domain"
	"github.com/ajjswift/gcselog-search-new/internal/domain/search/request"
	logpkg "github.com/ajjswift/gcselog-search-new/internal/logger"
	"github.com/ajjswift/gcselog-search-new/internal/metrics"
	"github.com/ajjswift/gcselog-search-new/internal/repository/embcache"
	searchrepo "github.com/ajjswift/gcselog-search-new/internal/repository/search"
	chiTransport "github.com/ajjswift/gcselog-search-new/internal/transport/chi"
	openaiEmb "github.com/ajjswift/gcselog-search-new/internal/transport/openai"
	healthuc "github.com/ajjswift/gcselog-search-new/internal/usecase/health"
	searchuc "github.com/ajjswift/gcselog-search-new/internal/usecase/search"
	"github.com/ajjswift/gcselog-search-new/internal/version"
)

func serve(ctx context.Context, env string) error {
	cfg, err := loadConfig(env)
	if err != nil {
		return err
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting gcselog search API",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("table", cfg.Search.Table),
		zap.Strings("cache_addrs", cfg.Cache.Addrs),
	)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := dbPostgres.NewStore(ctx, dbPostgres.Config{
		DSN:             cfg.Database.DSN,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: time.Duration(cfg.Database.MaxConnLifetime) * time.Second,
		MaxConnIdleTime: time.Duration(cfg.Database.MaxConnIdleTime) * time.Second,
	})
	if err != nil {
		return fmt.Errorf("create database store: %w", err)
	}
	defer store.Close()

	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		return fmt.Errorf("database not ready: %w", err)
	}
	logger.Info("Connected to database")

	// Leave the interface nil (not a typed nil *Store) when no shared cache is configured.
	var cache db.CacheStore
	if len(cfg.Cache.Addrs) > 0 {
		redisStore, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Cache.Addrs,
			Password: cfg.Cache.Password,
		})
		if err != nil {
			return fmt.Errorf("create cache store: %w", err)
		}
		defer redisStore.Close()

		if err := redisStore.WaitForReady(ctx, time.Duration(cfg.Cache.ReadinessTimeout)*time.Second); err != nil {
			// Optional: the local LRU still serves.
			logger.Warn("Embedding cache not ready, continuing", zap.Error(err))
		}
		cache = redisStore
	}

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterSearchMetrics()
	metrics.RegisterHTTPMetrics()

	embedder, err := buildEmbedder(cfg.Embedding, cfg.Cache, cache, logger)
	if err != nil {
		return err
	}
	logger.Info("Embedder created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	compiler, err := query.NewCompiler(compilerConfig(cfg.Search))
	if err != nil {
		return fmt.Errorf("create query compiler: %w", err)
	}

	searchSvc := searchuc.New(compiler, searchrepo.New(store), embedder, metrics.SearchObserver{})
	healthSvc := healthuc.New(store, cache, newEmbeddingHealthChecker(embedder))

	server := chiTransport.NewServer(searchSvc, healthSvc, searchLimits(cfg.Search), logger)

	r := chi.NewRouter()
	useMiddleware(r, logger)
	server.Mount(r)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSONError(w, http.StatusNotFound, "not_found", "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})

	readTimeout, writeTimeout, shutdownTimeout := cfg.HTTP.HTTPTimeouts()
	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
	return nil
}

func compilerConfig(c config.SearchConfig) query.Config {
	return query.Config{
		Table:            c.Table,
		TextSearchConfig: c.TextSearchConfig,
		FuzzyThreshold:   c.FuzzyThreshold,
	}
}

func searchLimits(c config.SearchConfig) request.Limits {
	return request.Limits{
		DefaultLimit:   c.DefaultPageSize,
		MaxLimit:       c.MaxPageSize,
		MaxQueryLength: c.MaxQueryLength,
	}
}

// embeddingHealthChecker wraps domain.Embedder to implement health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instruction.
// cache may be nil, in which case only the in-process LRU is used.
func buildEmbedder(
	embCfg config.EmbeddingConfig,
	cacheCfg config.CacheConfig,
	cache db.KVStore,
	logger *zap.Logger,
) (domain.Embedder, error) {
	// Base provider (with transport metrics built-in)
	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     embCfg.APIKey,
		BaseURL:    embCfg.BaseURL,
		Model:      embCfg.Model,
		Dimensions: embCfg.Dimensions,
		Provider:   embCfg.Provider,
		Timeout:    time.Duration(embCfg.TimeoutSec) * time.Second,
		Logger:     logger,
	})

	cached, err := embcache.New(base, cache, embcache.Options{
		Model:      embCfg.Model,
		Dimensions: embCfg.Dimensions,
		TTL:        time.Duration(cacheCfg.TTLSec) * time.Second,
		LocalSize:  cacheCfg.LocalSize,
	}, metrics.EmbeddingCacheTotal, logger)
	if err != nil {
		return nil, fmt.Errorf("create embedding cache: %w", err)
	}

	// Instruction prefix (outermost, so the cache key includes it)
	if embCfg.QueryInstruction != "" {
		return domain.NewInstructionEmbedder(cached, embCfg.QueryInstruction), nil
	}
	return cached, nil
}

// useMiddleware installs the shared middleware stack. The recoverer sits inside
// the wide-event middleware so a panicking request still gets its request ID
// header and canonical log line.
func useMiddleware(r chi.Router, logger *zap.Logger) {
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(jsonRecoverer(logger))
	r.Use(metrics.Middleware())
}
