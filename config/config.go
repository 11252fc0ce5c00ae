package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Chroma    ChromaConfig
	AI        AIConfig
	Search    SearchConfig
	Retrieval RetrievalConfig
	Ingest    IngestConfig
	Telemetry TelemetryConfig
}

type AppConfig struct {
	Port          string `validate:"required"`
	Environment   string `validate:"oneof=development production test"`
	LogFilePath   string `validate:"required"`
	StoreBackend  string `validate:"oneof=embedded postgres chroma"`
	MemoryBackend string `validate:"oneof=embedded postgres redis"`

	// EmbeddedStorePath persists the embedded vector store when set.
	EmbeddedStorePath string
}

type DatabaseConfig struct {
	Connection string
}

type RedisConfig struct {
	URL string
	Key string `validate:"required"`
}

type ChromaConfig struct {
	URL        string
	Collection string `validate:"required"`
}

type AIConfig struct {
	GeminiAPIKey         string
	LLMModel             string `validate:"required"`
	EmbeddingProvider    string `validate:"oneof=gemini ollama"`
	EmbeddingModel       string `validate:"required"`
	OllamaBaseURL        string
	OllamaEmbeddingModel string
	MaxRoutingIterations int `validate:"min=1,max=64"`
}

type SearchConfig struct {
	TavilyAPIKey string
	TavilyURL    string
	MaxResults   int `validate:"min=1,max=20"`
}

type RetrievalConfig struct {
	TopK              int `validate:"min=1"`
	MemoryRecentLimit int `validate:"min=1"`
}

type IngestConfig struct {
	ChunkSize        int `validate:"min=1"`
	ChunkOverlap     int `validate:"min=0,ltfield=ChunkSize"`
	IndexPath        string
	UnidocLicenseKey string
}

type TelemetryConfig struct {
	OtelEnabled  bool
	OtelEndpoint string
}

// Load reads the optional .env file, then the process environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:          getEnv("APP_PORT", "8080"),
			Environment:   getEnv("GO_ENV", "development"),
			LogFilePath:   getEnv("LOG_FILE_PATH", "logs/app.log"),
			StoreBackend:  getEnv("STORE_BACKEND", "embedded"),
			MemoryBackend: getEnv("MEMORY_BACKEND", "embedded"),

			EmbeddedStorePath: getEnv("EMBEDDED_STORE_PATH", ""),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", "redis://localhost:6379"),
			Key: getEnv("REDIS_CHAT_HISTORY_KEY", "ragchat:chat_history"),
		},
		Chroma: ChromaConfig{
			URL:        getEnv("CHROMA_URL", "http://localhost:8000"),
			Collection: getEnv("CHROMA_COLLECTION", "document_chunks"),
		},
		AI: AIConfig{
			GeminiAPIKey:         getEnv("GEMINI_API_KEY", ""),
			LLMModel:             getEnv("LLM_MODEL", "gemini-2.0-flash"),
			EmbeddingProvider:    getEnv("EMBEDDING_PROVIDER", "gemini"),
			EmbeddingModel:       getEnv("EMBEDDING_MODEL", "text-embedding-004"),
			OllamaBaseURL:        getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaEmbeddingModel: getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text:v1.5"),
			MaxRoutingIterations: getEnvAsInt("MAX_ROUTING_ITERATIONS", 8),
		},
		Search: SearchConfig{
			TavilyAPIKey: getEnv("TAVILY_API_KEY", ""),
			TavilyURL:    getEnv("TAVILY_URL", "https://api.tavily.com/search"),
			MaxResults:   getEnvAsInt("SEARCH_MAX_RESULTS", 3),
		},
		Retrieval: RetrievalConfig{
			TopK:              getEnvAsInt("RAG_TOP_K", 3),
			MemoryRecentLimit: getEnvAsInt("MEMORY_RECENT_LIMIT", 20),
		},
		Ingest: IngestConfig{
			ChunkSize:        getEnvAsInt("CHUNK_SIZE", 500),
			ChunkOverlap:     getEnvAsInt("CHUNK_OVERLAP", 50),
			IndexPath:        getEnv("INDEX_PATH", ""),
			UnidocLicenseKey: getEnv("UNIDOC_LICENSE_KEY", ""),
		},
		Telemetry: TelemetryConfig{
			OtelEnabled:  getEnv("OTEL_ENABLED", "false") == "true",
			OtelEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		},
	}
}

// Validate checks value ranges and the settings each selected backend needs.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if (c.App.StoreBackend == "postgres" || c.App.MemoryBackend == "postgres") && c.Database.Connection == "" {
		return fmt.Errorf("invalid configuration: DB_CONNECTION_STRING is required for the postgres backend")
	}
	return nil
}

// IsProduction reports whether GO_ENV is production.
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}
