package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	GinMode     string
	CORSOrigins []string
	MaxFileSize int64

	// Completion API (OpenAI-compatible chat completions)
	CompletionAPIKey       string
	CompletionAPIURL       string
	CompletionModel        string
	CompletionTimeoutSecs  int
	CompletionMaxAttempts  int
	CompletionInitialDelay int

	// Vector store
	VectorDBPath   string
	CollectionName string
	IngestBatch    int
	RetrievalTopK  int

	// Embeddings configuration
	EmbeddingsProvider    string // "local" (default), "openai", "google"
	EmbeddingDimensions   int
	EmbeddingsRPM         int
	OpenAIAPIKey          string
	OpenAIEmbeddingsModel string
	GeminiAPIKey          string
	GoogleEmbeddingsModel string

	// Redis Configuration (rate limiting is disabled when RedisURL is empty)
	RedisURL        string
	RedisPassword   string
	RedisDB         int
	RateLimitReqs   int
	RateLimitWindow int

	// OpenTelemetry
	OTelEnabled  bool
	OTelEndpoint string
	ServiceName  string
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8000"),
		GinMode:     getEnv("GIN_MODE", "debug"),
		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "*"), ","),
		MaxFileSize: getEnvInt64("MAX_FILE_SIZE", 52428800), // 50MB

		CompletionAPIKey:       getEnv("GROQ_API_KEY", ""),
		CompletionAPIURL:       getEnv("COMPLETION_API_URL", "https://api.groq.com/openai/v1/chat/completions"),
		CompletionModel:        getEnv("COMPLETION_MODEL", "llama3-70b-8192"),
		CompletionTimeoutSecs:  getEnvInt("COMPLETION_TIMEOUT_SECONDS", 60),
		CompletionMaxAttempts:  getEnvInt("COMPLETION_MAX_ATTEMPTS", 3),
		CompletionInitialDelay: getEnvInt("COMPLETION_RETRY_DELAY_SECONDS", 2),

		VectorDBPath:   getEnv("VECTOR_DB_PATH", "./vector_db/chunks.sqlite"),
		CollectionName: getEnv("COLLECTION_NAME", "csv_chunks"),
		IngestBatch:    getEnvInt("INGEST_BATCH_SIZE", 500),
		RetrievalTopK:  getEnvInt("RETRIEVAL_TOP_K", 5),

		EmbeddingsProvider:    strings.ToLower(getEnv("EMBEDDINGS_PROVIDER", "local")),
		EmbeddingDimensions:   getEnvInt("EMBEDDING_DIM", 384),
		EmbeddingsRPM:         getEnvInt("EMBEDDINGS_RPM", 600),
		OpenAIAPIKey:          getEnv("OPENAI_API_KEY", ""),
		OpenAIEmbeddingsModel: getEnv("OPENAI_EMBEDDINGS_MODEL", "text-embedding-3-small"),
		GeminiAPIKey:          getEnv("GEMINI_API_KEY", ""),
		GoogleEmbeddingsModel: getEnv("GOOGLE_EMBEDDINGS_MODEL", "text-embedding-004"),

		RedisURL:        getEnv("REDIS_URL", ""),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisDB:         getEnvInt("REDIS_DB", 0),
		RateLimitReqs:   getEnvInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow: getEnvInt("RATE_LIMIT_WINDOW", 60),

		OTelEnabled:  getEnvBool("OTEL_ENABLED", false),
		OTelEndpoint: getEnv("OTEL_EXPORTER_ENDPOINT", "localhost:4317"),
		ServiceName:  getEnv("OTEL_SERVICE_NAME", "csv-rag-service"),
	}

	// Validate required fields. The completion key is deliberately not
	// required here: answering fails per call when it is missing.
	if cfg.VectorDBPath == "" {
		return nil, fmt.Errorf("VECTOR_DB_PATH must not be empty")
	}
	if cfg.CollectionName == "" {
		return nil, fmt.Errorf("COLLECTION_NAME must not be empty")
	}

	switch cfg.EmbeddingsProvider {
	case "local":
		if cfg.EmbeddingDimensions <= 0 {
			return nil, fmt.Errorf("EMBEDDING_DIM must be positive")
		}
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required when EMBEDDINGS_PROVIDER=openai")
		}
	case "google":
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required when EMBEDDINGS_PROVIDER=google")
		}
	default:
		return nil, fmt.Errorf("unknown EMBEDDINGS_PROVIDER: %s", cfg.EmbeddingsProvider)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
