package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/studytask/taskparse/internal/config"
	"github.com/studytask/taskparse/internal/database"
	"github.com/studytask/taskparse/internal/extraction"
	"github.com/studytask/taskparse/internal/logger"
	"github.com/studytask/taskparse/internal/parser"
	"github.com/studytask/taskparse/internal/queue"
	"github.com/studytask/taskparse/internal/reconcile"
	"github.com/studytask/taskparse/internal/services/embedding"
	"github.com/studytask/taskparse/internal/services/inference"
	"github.com/studytask/taskparse/internal/tokenize"
	"github.com/studytask/taskparse/internal/vocab"
	"github.com/studytask/taskparse/internal/workers"
	"go.uber.org/zap"
)

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	debugMode := cfg.WorkerDebugMode || *debugFlag

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

	zapLogger.Info("Starting worker",
		zap.Bool("debug_mode", debugMode),
		zap.String("vocab_path", cfg.VocabPath),
		zap.String("wordvec_path", cfg.WordVecPath),
	)

	// Initialize database connection
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("Failed to close database connection", zap.Error(err))
		}
	}()

	zapLogger.Info("Connected to database")

	// Redis backs the similarity cache shared with the API server
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		zapLogger.Fatal("Invalid Redis URL", zap.Error(err))
	}
	redisClient := redis.NewClient(redisOpts)
	defer func() {
		if err := redisClient.Close(); err != nil {
			zapLogger.Warn("Failed to close Redis connection", zap.Error(err))
		}
	}()

	// Initialize RabbitMQ queue
	jobQueue, err := queue.NewRabbitMQQueue(cfg.RabbitMQURL, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
	}
	defer func() {
		if err := jobQueue.Close(); err != nil {
			zapLogger.Warn("Failed to close RabbitMQ connection", zap.Error(err))
		}
	}()

	zapLogger.Info("Connected to RabbitMQ",
		zap.Int("prefetch", cfg.RabbitMQPrefetch),
	)

	// Build the extraction pipeline
	pipeline, err := buildPipeline(cfg, redisClient, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to build extraction pipeline", zap.Error(err))
	}

	taskRepo := database.NewTaskRepository(db)

	// Create extraction worker
	extractor := workers.NewExtractor(pipeline, taskRepo, jobQueue, zapLogger)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start consuming messages
	msgChan, errChan, err := jobQueue.Consume(ctx, cfg.RabbitMQPrefetch)
	if err != nil {
		zapLogger.Fatal("Failed to start consuming messages", zap.Error(err))
	}

	zapLogger.Info("Worker started, consuming messages from queue")

	// Nightly scheduler enqueues re-extraction jobs for stale tasks
	scheduler := workers.NewScheduler(jobQueue, taskRepo, zapLogger)
	go func() {
		if err := scheduler.Run(ctx); err != nil && err != context.Canceled {
			zapLogger.Error("Scheduler stopped with error", zap.Error(err))
		}
	}()

	// Process messages
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgChan:
				if !ok {
					zapLogger.Info("Message channel closed")
					return
				}

				if err := extractor.ProcessJob(ctx, msg); err != nil {
					zapLogger.Error("Failed to process job",
						zap.Error(err),
						zap.String("job_id", msg.GetJob().ID.String()),
						zap.String("job_type", string(msg.GetJob().Type)),
					)
				}
			}
		}
	}()

	// Handle errors
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-errChan:
				if !ok {
					return
				}
				zapLogger.Error("Queue error", zap.Error(err))
			}
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	zapLogger.Info("Shutdown signal received, stopping worker...")

	cancel()

	zapLogger.Info("Worker stopped")
}

// buildPipeline mirrors the API server wiring so a job processed here
// produces the same extraction result as a synchronous request.
func buildPipeline(cfg *config.Config, redisClient *redis.Client, zapLogger *zap.Logger) (*extraction.Pipeline, error) {
	v := vocab.Default()
	if cfg.VocabPath != "" {
		loaded, err := vocab.Load(cfg.VocabPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load vocabulary: %w", err)
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

	return extraction.New(ruleParser, reconciler,
		extraction.WithAnalyzer(analyzer),
		extraction.WithLogger(zapLogger),
	), nil
}
