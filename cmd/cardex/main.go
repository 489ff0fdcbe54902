package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/shirokane-labs/cardex/internal/config"
	dbRedis "github.com/shirokane-labs/cardex/internal/db/redis"
	"github.com/shirokane-labs/cardex/internal/domain"
	"github.com/shirokane-labs/cardex/internal/domain/nlquery"
	logpkg "github.com/shirokane-labs/cardex/internal/logger"
	"github.com/shirokane-labs/cardex/internal/metrics"
	corpusrepo "github.com/shirokane-labs/cardex/internal/repository/corpus"
	indexrepo "github.com/shirokane-labs/cardex/internal/repository/index"
	chiTransport "github.com/shirokane-labs/cardex/internal/transport/chi"
	openaiTransport "github.com/shirokane-labs/cardex/internal/transport/openai"
	classifyuc "github.com/shirokane-labs/cardex/internal/usecase/classify"
	dbfilteruc "github.com/shirokane-labs/cardex/internal/usecase/dbfilter"
	healthuc "github.com/shirokane-labs/cardex/internal/usecase/health"
	hybriduc "github.com/shirokane-labs/cardex/internal/usecase/hybrid"
	vectoruc "github.com/shirokane-labs/cardex/internal/usecase/vector"
	"github.com/shirokane-labs/cardex/internal/version"
)

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting cardex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterRetrievalMetrics()

	// Card corpus, loaded once and hot-reloadable over HTTP
	corpus := corpusrepo.New(cfg.Corpus.Path, logger)
	if err := corpus.Load(ctx); err != nil {
		logger.Fatal("Failed to load card corpus", zap.Error(err))
	}
	logger.Info("Card corpus loaded", zap.Int("records", corpus.Len()))

	queryEmbedder := buildEmbedder(cfg, logger)

	// Classification: heuristic always available, remote provider optional
	heuristic := classifyuc.NewHeuristic(cfg.Retrieval.ToleranceFraction)
	var provider classifyuc.Provider
	if cfg.Classifier.Mode == "openai" {
		provCfg := cfg.Embedding.Providers[cfg.Classifier.Provider]
		provider = openaiTransport.NewClassifier(&openaiTransport.ClassifierConfig{
			APIKey:  provCfg.APIKey,
			BaseURL: provCfg.BaseURL,
			Model:   cfg.Classifier.Model,
			Logger:  logger,
		})
		logger.Info("Classifier provider configured",
			zap.String("provider", cfg.Classifier.Provider),
			zap.String("model", cfg.Classifier.Model),
		)
	}
	classifier := classifyuc.New(provider, heuristic, logger)

	// Retrieval engines
	filterEngine := dbfilteruc.New(corpus, nlquery.NewParser(cfg.Retrieval.ToleranceFraction), logger)
	vectorEngine := vectoruc.New(indexrepo.New(store), vectoruc.Options{
		StdDevThreshold: cfg.Retrieval.StdDevThreshold,
		SpreadThreshold: cfg.Retrieval.SpreadThreshold,
		Namespaces:      buildNamespaces(cfg.Retrieval),
		Parallel:        cfg.Retrieval.Parallel,
	}, logger)

	orchestrator := hybriduc.New(
		classifier, filterEngine, vectorEngine, queryEmbedder, corpus,
		cfg.Retrieval.MinScore, logger,
	)

	healthSvc := healthuc.New(store, newEmbeddingHealthChecker(queryEmbedder), corpus)

	server := chiTransport.NewServer(&topKDefaulter{
		inner:       orchestrator,
		defaultTopK: cfg.Retrieval.DefaultTopK,
	}, corpus, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// topKDefaulter substitutes the configured default when a request carries no
// top_k.
type topKDefaulter struct {
	inner       *hybriduc.Service
	defaultTopK int
}

func (d *topKDefaulter) Search(ctx context.Context, rawQuery string, topK int) hybriduc.Result {
	if topK <= 0 {
		topK = d.defaultTopK
	}
	return d.inner.Search(ctx, rawQuery, topK)
}

// buildEmbedder picks the configured query vectorizer. The deterministic
// pseudo provider keeps the whole pipeline runnable without API credentials.
func buildEmbedder(cfg config.Config, logger *zap.Logger) domain.Embedder {
	var vecCfg config.VectorizerConfig
	var name string
	for n, vc := range cfg.Embedding.Vectorizers {
		vecCfg = vc
		name = n
		break
	}

	if name == "" || vecCfg.Provider == "pseudo" {
		dims := vecCfg.Dimensions
		if dims <= 0 {
			dims = 1024
		}
		logger.Info("Using pseudo embedder", zap.Int("dimensions", dims))
		return domain.NewPseudoEmbedder(dims)
	}

	provCfg := cfg.Embedding.Providers[vecCfg.Provider]
	var embedder domain.Embedder = openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     provCfg.APIKey,
		BaseURL:    provCfg.BaseURL,
		Model:      vecCfg.Model,
		Dimensions: vecCfg.Dimensions,
		Provider:   vecCfg.Provider,
		Logger:     logger,
	})
	if vecCfg.QueryInstruction != "" {
		embedder = domain.NewInstructionEmbedder(embedder, vecCfg.QueryInstruction)
	}
	logger.Info("Embedder created",
		zap.String("provider", vecCfg.Provider),
		zap.String("model", vecCfg.Model),
		zap.Int("dimensions", vecCfg.Dimensions),
	)
	return embedder
}

func buildNamespaces(cfg config.RetrievalConfig) vectoruc.Namespaces {
	ns := vectoruc.DefaultNamespaces()
	if len(cfg.EffectNamespaces) > 0 {
		ns.Effects = cfg.EffectNamespaces
	}
	if cfg.CombinedNamespace != "" {
		ns.Combined = cfg.CombinedNamespace
	}
	return ns
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

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			reqLogger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}
