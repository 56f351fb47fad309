package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/studytask/taskparse/internal/config"
	"github.com/studytask/taskparse/internal/database"
	"github.com/studytask/taskparse/internal/extraction"
	"github.com/studytask/taskparse/internal/handlers"
	"github.com/studytask/taskparse/internal/logger"
	"github.com/studytask/taskparse/internal/middleware"
	"github.com/studytask/taskparse/internal/parser"
	"github.com/studytask/taskparse/internal/queue"
	"github.com/studytask/taskparse/internal/reconcile"
	"github.com/studytask/taskparse/internal/services/embedding"
	"github.com/studytask/taskparse/internal/services/inference"
	"github.com/studytask/taskparse/internal/telemetry"
	"github.com/studytask/taskparse/internal/tokenize"
	"github.com/studytask/taskparse/internal/vocab"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"
)

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	debugMode := cfg.ServerDebugMode || *debugFlag

	zapLogger, err := logger.NewProductionLogger(debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		if syncErr := zapLogger.Sync(); syncErr != nil {
			// Ignore sync errors in production
			_ = syncErr
		}
	}()

	zapLogger.Info("starting_server",
		zap.Bool("debug_mode", debugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.String("frontend_url", cfg.FrontendURL),
		zap.String("vocab_path", cfg.VocabPath),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
	)

	// Initialize OpenTelemetry if enabled
	var tracerProvider interface{ Shutdown(context.Context) error }
	if cfg.OTELEnabled {
		if cfg.OTELEndpoint == "" {
			zapLogger.Warn("otel_enabled_but_endpoint_not_configured")
		} else {
			tp, err := telemetry.InitTracer(context.Background(), "taskparse-api", cfg.OTELEndpoint)
			if err != nil {
				zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
			} else {
				tracerProvider = tp
				zapLogger.Info("otel_tracer_initialized",
					zap.String("endpoint", cfg.OTELEndpoint),
				)
				defer func() {
					shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer shutdownCancel()
					if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
						zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
					}
				}()
			}
		}
	}

	// Connect to database
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("failed_to_close_database_connection", zap.Error(err))
		}
	}()

	zapLogger.Info("connected_to_database")

	// Connect to Redis for rate limiting and the similarity cache
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		zapLogger.Fatal("invalid_redis_url", zap.Error(err))
	}
	redisClient := redis.NewClient(redisOpts)
	defer func() {
		if err := redisClient.Close(); err != nil {
			zapLogger.Warn("failed_to_close_redis_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_redis")

	// Connect to RabbitMQ for job queue (required)
	// Retry connection with exponential backoff to handle RabbitMQ startup delays
	const maxRetries = 10
	const initialDelay = 2 * time.Second
	var jobQueue queue.JobQueue
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		jobQueue, err = queue.NewRabbitMQQueue(cfg.RabbitMQURL, zapLogger)
		if err == nil {
			zapLogger.Info("connected_to_rabbitmq")
			defer func() {
				if err := jobQueue.Close(); err != nil {
					zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
				}
			}()
			break
		}

		lastErr = err
		delay := initialDelay * time.Duration(1<<uint(attempt))
		if delay > 30*time.Second {
			delay = 30 * time.Second
		}
		zapLogger.Warn("failed_to_connect_to_rabbitmq_retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", maxRetries),
			zap.Error(err),
			zap.Duration("retry_delay", delay),
		)
		time.Sleep(delay)
	}

	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_rabbitmq_after_retries",
			zap.Int("max_retries", maxRetries),
			zap.Error(lastErr),
		)
	}

	// Initialize repositories
	taskRepo := database.NewTaskRepository(db)

	// Build the extraction pipeline
	pipeline, ensemble, err := buildPipeline(cfg, redisClient, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed_to_build_extraction_pipeline", zap.Error(err))
	}

	// Initialize handlers
	extractHandler := handlers.NewExtractHandler(pipeline)
	taskHandler := handlers.NewTaskHandler(taskRepo, pipeline, jobQueue)
	weightsHandler := handlers.NewWeightsHandler(ensemble)
	healthChecker := handlers.NewHealthChecker(db, jobQueue)

	// Setup router
	r := mux.NewRouter()

	// Apply middleware (order matters - executed in reverse order of registration)
	zapLogger.Info("setting_up_middleware")

	// 0. OpenTelemetry tracing (if enabled)
	if cfg.OTELEnabled && tracerProvider != nil {
		r.Use(otelmux.Middleware("taskparse-api"))
		zapLogger.Info("otel_middleware_enabled")
	}
	// 1. Security headers (should be set on all responses)
	r.Use(middleware.SecurityHeaders(cfg.EnableHSTS))
	// 2. CORS from FRONTEND_URL
	r.Use(middleware.CORSFromEnv(cfg.FrontendURL))
	// Rate limit middleware (applied selectively to specific routes, not globally)
	rateLimitMW, err := middleware.RateLimit(redisClient, middleware.DefaultRateLimit)
	if err != nil {
		zapLogger.Fatal("failed_to_create_rate_limiter", zap.Error(err))
	}
	// 3. Request size limits (protects against DoS)
	r.Use(middleware.MaxRequestSize(middleware.DefaultMaxRequestSize))
	// 4. Content-Type validation for POST/PATCH/PUT requests
	r.Use(middleware.ContentType)
	// 5. Request timeout
	r.Use(middleware.Timeout(middleware.DefaultRequestTimeout))
	// 6. Error handler (catches panics)
	r.Use(middleware.ErrorHandler(zapLogger))
	// 7. Logging (innermost, executes last before handler)
	r.Use(middleware.Logging(zapLogger))

	// Public routes (no rate limiting for health checks)
	r.HandleFunc("/healthz", healthChecker.HealthCheck).Methods("GET")
	r.HandleFunc("/version", versionInfo).Methods("GET")

	// API v1 routes
	apiRouter := r.PathPrefix("/api/v1").Subrouter()

	// One-shot extraction (stateless, no persistence)
	extractRouter := apiRouter.PathPrefix("/extract").Subrouter()
	extractRouter.Use(rateLimitMW)
	extractRouter.HandleFunc("", extractHandler.Extract).Methods("POST")

	// Task routes
	tasksRouter := apiRouter.PathPrefix("/tasks").Subrouter()
	tasksRouter.Use(rateLimitMW)
	taskHandler.RegisterRoutes(tasksRouter)

	// Ensemble weight routes
	ensembleRouter := apiRouter.PathPrefix("/ensemble").Subrouter()
	ensembleRouter.Use(rateLimitMW)
	ensembleRouter.HandleFunc("/weights", weightsHandler.GetWeights).Methods("GET")
	ensembleRouter.HandleFunc("/weights", weightsHandler.AdjustWeights).Methods("POST")

	// Catch-all OPTIONS handler for preflight requests
	// The CORS middleware sets headers before this is called
	r.Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	// Setup server
	srv := &http.Server{
		Addr:           ":" + cfg.ServerPort,
		Handler:        r,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1MB max header size
	}

	gcCtx, gcCancel := context.WithCancel(context.Background())
	defer gcCancel()

	// Start DLQ garbage collector if the queue implementation supports it
	// Run every hour, retain messages for 24 hours
	if dlqPurger, ok := jobQueue.(queue.DLQPurger); ok {
		dlqGC := queue.NewGarbageCollector(dlqPurger, 1*time.Hour, 24*time.Hour, zapLogger)
		go func() {
			if err := dlqGC.Start(gcCtx); err != nil && err != context.Canceled {
				zapLogger.Error("dlq_garbage_collector_stopped_with_error", zap.Error(err))
			}
		}()
		zapLogger.Info("started_dlq_garbage_collector",
			zap.Duration("interval", 1*time.Hour),
			zap.Duration("retention", 24*time.Hour),
		)
	}

	// Start server in a goroutine
	go func() {
		zapLogger.Info("server_starting",
			zap.String("port", cfg.ServerPort),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("server_failed_to_start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("server_shutting_down")
	gcCancel()

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Fatal("server_forced_to_shutdown", zap.Error(err))
	}

	zapLogger.Info("server_exited")
}

// buildPipeline assembles the rule parser, embedding ensemble, inference
// service and reconciler into the shared extraction pipeline. The
// ensemble is returned separately so the weights handler can adjust it.
func buildPipeline(cfg *config.Config, redisClient *redis.Client, zapLogger *zap.Logger) (*extraction.Pipeline, *embedding.Ensemble, error) {
	v := vocab.Default()
	if cfg.VocabPath != "" {
		loaded, err := vocab.Load(cfg.VocabPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load vocabulary: %w", err)
		}
		v = loaded
	}

	tokenizer := tokenize.ScriptSegmenter{}

	factories := map[string]embedding.Factory{
		"ngram": func() (embedding.Provider, error) {
			return embedding.NewNGramProvider(cfg.NGramSize), nil
		},
	}
	if cfg.WordVecPath != "" {
		factories["wordvec"] = embedding.NewWordVecFactory(cfg.WordVecPath, tokenizer)
	}
	if cfg.OpenAIKey != "" {
		factories["openai"] = embedding.NewOpenAIFactory(cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.EmbeddingModel)
	}

	cache := embedding.NewRedisCache(redisClient, cfg.SimilarityCacheTTL, zapLogger)
	ensemble := embedding.NewEnsemble(v, factories,
		embedding.WithCache(cache),
		embedding.WithLogger(zapLogger),
	)

	analyzer := inference.New(ensemble, v,
		inference.WithLogger(zapLogger),
		inference.WithTokenizer(tokenizer),
	)

	ruleParser := parser.New(v)
	reconciler := reconcile.New(v, reconcile.WithLogger(zapLogger))

	pipeline := extraction.New(ruleParser, reconciler,
		extraction.WithAnalyzer(analyzer),
		extraction.WithLogger(zapLogger),
	)
	return pipeline, ensemble, nil
}

func versionInfo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := fmt.Fprintf(w, `{"version":"1.0.0","timestamp":"%s"}`, time.Now().UTC().Format(time.RFC3339)); err != nil {
		_ = err
	}
}
