package main

import (
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"csv-rag-service/internal/ai"
	"csv-rag-service/internal/config"
	"csv-rag-service/internal/logger"
	"csv-rag-service/internal/telemetry"
	"csv-rag-service/internal/vectorstore"
	"csv-rag-service/middleware"
	"csv-rag-service/routes"
	"csv-rag-service/services"

	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.InitLogger(cfg)

	shutdownTracer, err := telemetry.InitTracer(cfg)
	if err != nil {
		log.Fatal("Failed to initialize tracer:", err)
	}
	defer shutdownTracer()

	metrics, err := telemetry.InitMetrics()
	if err != nil {
		log.Fatal("Failed to initialize metrics:", err)
	}

	if cfg.CompletionAPIKey == "" {
		logger.Warn("GROQ_API_KEY not found in environment variables")
	}

	ctx := context.Background()

	// Embedding function and vector store
	embedder, err := ai.NewEmbedder(ctx, cfg, metrics)
	if err != nil {
		log.Fatal("Failed to initialize embeddings:", err)
	}
	if c, ok := embedder.(io.Closer); ok {
		defer c.Close()
	}

	store, err := vectorstore.Open(ctx, cfg.VectorDBPath, cfg.CollectionName, embedder)
	if err != nil {
		log.Fatal("Failed to open vector store:", err)
	}
	defer store.Close()
	logger.Info("Vector store ready", "path", cfg.VectorDBPath, "collection", cfg.CollectionName, "embedder", embedder.Name())

	completion := ai.NewCompletionClient(cfg, ai.WithMetrics(metrics))
	ingestion := services.NewIngestionService(store, cfg.IngestBatch, metrics)
	answers := services.NewAnswerService(store, completion, cfg.RetrievalTopK)

	// Optional Redis for rate limiting
	rdb, err := config.NewRedisClient(cfg)
	if err != nil {
		logger.Warn("Rate limiting disabled", "error", err)
	}
	if rdb != nil {
		defer rdb.Close()
	}

	// Initialize Gin router
	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.CORSOrigins))
	if cfg.OTelEnabled {
		router.Use(middleware.TracingMiddleware(cfg.ServiceName))
		router.Use(middleware.EnrichTrace())
	}
	router.Use(middleware.MetricsMiddleware(metrics))
	router.Use(middleware.RateLimitMiddleware(rdb, cfg.RateLimitReqs, cfg.RateLimitWindow))
	router.Use(middleware.RequestSizeLimit(cfg.MaxFileSize))

	routes.SetupRAGRoutes(router, ingestion, answers, store, cfg.MaxFileSize)

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server exited")
}
