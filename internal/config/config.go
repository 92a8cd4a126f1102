package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App     AppConfig
	Session SessionConfig
	Ai      AIConfig
	Catalog CatalogConfig
	Events  EventsConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	RedisURL           string
}

type SessionConfig struct {
	TTLHours           int
	MaxContextMessages int
	ClearAllToken      string
}

type AIConfig struct {
	OllamaBaseURL  string
	EmbeddingModel string
	LLMModel       string
	EmbeddingDim   int
}

type CatalogConfig struct {
	Path        string
	VectorsPath string
}

type EventsConfig struct {
	RecommendationTopic string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Session: SessionConfig{
			TTLHours:           getEnvAsInt("SESSION_TTL_HOURS", 24),
			MaxContextMessages: getEnvAsInt("MAX_CONTEXT_MESSAGES", 10),
			ClearAllToken:      getEnv("CLEAR_ALL_TOKEN", ""),
		},
		Ai: AIConfig{
			OllamaBaseURL:  getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			EmbeddingModel: getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			LLMModel:       getEnv("LLM_MODEL", "llama3"),
			EmbeddingDim:   getEnvAsInt("EMBEDDING_DIM", 768),
		},
		Catalog: CatalogConfig{
			Path:        getEnv("CATALOG_PATH", "data/catalog.json"),
			VectorsPath: getEnv("CATALOG_VECTORS_PATH", "data/vectors.json"),
		},
		Events: EventsConfig{
			RecommendationTopic: getEnv("RECOMMENDATION_TOPIC_NAME", "RECOMMENDATION_SERVED"),
		},
	}
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
