package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"github.com/SAMeh-ZAGhloul/QGenAI/internal/config"
	"github.com/SAMeh-ZAGhloul/QGenAI/internal/database"
	"github.com/SAMeh-ZAGhloul/QGenAI/internal/eino/llm"
	"github.com/SAMeh-ZAGhloul/QGenAI/internal/eino/rag"
	"github.com/SAMeh-ZAGhloul/QGenAI/internal/handler"
	"github.com/SAMeh-ZAGhloul/QGenAI/internal/pkg/redis"
	"github.com/SAMeh-ZAGhloul/QGenAI/internal/repository"
	"github.com/SAMeh-ZAGhloul/QGenAI/internal/service"
	"github.com/SAMeh-ZAGhloul/QGenAI/internal/task"
)

func main() {
	// Load .env file if exists
	godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	usePgvector := cfg.VectorIndex == config.VectorIndexPgvector && !database.IsSQLite(cfg.DatabaseURL)
	if err := database.AutoMigrate(db, usePgvector); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	ctx := context.Background()

	var embedder service.Embedder = service.NewEmbeddingService(service.EmbeddingConfig{
		APIKey:     cfg.EmbeddingAPIKey,
		BaseURL:    cfg.EmbeddingBaseURL,
		Model:      cfg.EmbeddingModel,
		Dimensions: cfg.EmbeddingDimensions,
		BatchSize:  cfg.EmbeddingBatchSize,
		Timeout:    cfg.EmbeddingTimeout,
	})

	if cfg.RedisURL != "" {
		cache, err := redis.NewClient(cfg.RedisURL)
		if err != nil {
			log.Printf("[Embedding] Redis unavailable, caching disabled: %v", err)
		} else {
			defer cache.Close()
			embedder = service.NewCachedEmbedder(embedder, cache, cfg.EmbeddingCacheTTL)
			log.Printf("[Embedding] Redis cache enabled (ttl=%s)", cfg.EmbeddingCacheTTL)
		}
	}

	index, err := newVectorIndex(ctx, cfg, db, embedder, usePgvector)
	if err != nil {
		log.Fatalf("Failed to open vector index: %v", err)
	}

	provider, err := llm.NewProvider(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to create LLM provider: %v", err)
	}
	chain, err := rag.NewGroundedChain(ctx, provider)
	if err != nil {
		log.Fatalf("Failed to compile answer chain: %v", err)
	}

	docs := repository.NewDocumentRepository(db)
	chunks := repository.NewChunkRepository(db)
	queries := repository.NewQueryRepository(db)

	processor := service.NewDocumentProcessor(
		docs,
		chunks,
		service.NewTextExtractor(),
		service.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap),
		index,
	)
	engine := service.NewQueryEngine(index, chain, queries, cfg.QueryTopK)

	// Setup background tasks
	scheduler := task.NewScheduler(10 * time.Minute)
	scheduler.RegisterTask(task.NewReindexTask(processor))

	// Run startup tasks once
	scheduler.RunOnce(ctx)
	if cfg.ReindexInterval > 0 {
		scheduler.StartPeriodic(ctx, cfg.ReindexInterval)
		defer scheduler.Stop()
	}

	router := handler.SetupRouter(cfg, handler.Dependencies{
		DB:        db,
		Documents: service.NewDocumentService(docs, chunks, index, processor, cfg),
		Queries:   service.NewQueryService(queries, engine),
	})

	srv := &http.Server{
		Addr:    cfg.Host + ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("Knowledge Navigator starting on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

func newVectorIndex(ctx context.Context, cfg *config.Config, db *gorm.DB, embedder service.Embedder, usePgvector bool) (service.VectorIndex, error) {
	if usePgvector {
		log.Printf("[VectorIndex] Using pgvector collection %s", cfg.VectorCollection)
		return service.NewPgvectorIndex(ctx, db, cfg.VectorCollection, embedder)
	}
	if cfg.VectorIndex == config.VectorIndexPgvector {
		log.Printf("[VectorIndex] pgvector needs postgres, falling back to local index at %s", cfg.VectorDBPath)
	}
	return service.NewLocalIndex(cfg.VectorDBPath, cfg.VectorCollection, embedder)
}
