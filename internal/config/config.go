// Package config loads runtime configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds every tunable the binary reads from the environment.
type Config struct {
	// Providers
	OpenAIKey    string
	AnthropicKey string
	GitHubToken  string
	LLMProvider  string // "openai" or "anthropic"

	// Models
	EmbeddingModel      string
	EmbeddingDimensions int
	ChatModel           string

	// Storage
	VectorBackend string // "sqlite", "postgres" or "memory"
	DataDir       string
	PostgresURL   string

	// Pipeline tuning
	TopK           int
	MaxChunkTokens int
	ChunkOverlap   int
	HistoryWindow  int

	// Server
	HTTPAddr string
}

// Load reads configuration from a .env file when present, then the process
// environment. Environment variables win over the file.
func Load() (*Config, error) {
	// Missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := &Config{
		OpenAIKey:           os.Getenv("OPENAI_API_KEY"),
		AnthropicKey:        os.Getenv("ANTHROPIC_API_KEY"),
		GitHubToken:         os.Getenv("GITHUB_TOKEN"),
		LLMProvider:         getEnv("LLM_PROVIDER", "openai"),
		EmbeddingModel:      getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
		EmbeddingDimensions: getEnvInt("EMBEDDING_DIMENSIONS", 1536),
		ChatModel:           os.Getenv("CHAT_MODEL"),
		VectorBackend:       getEnv("VECTOR_BACKEND", "sqlite"),
		DataDir:             getEnv("DATA_DIR", "./data"),
		PostgresURL:         os.Getenv("POSTGRES_URL"),
		TopK:                getEnvInt("TOP_K", 5),
		MaxChunkTokens:      getEnvInt("MAX_CHUNK_TOKENS", 1000),
		ChunkOverlap:        getEnvInt("CHUNK_OVERLAP", 100),
		HistoryWindow:       getEnvInt("HISTORY_WINDOW", 12),
		HTTPAddr:            getEnv("HTTP_ADDR", ":8080"),
	}
	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	switch c.LLMProvider {
	case "openai":
		if c.OpenAIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when LLM_PROVIDER=openai")
		}
	case "anthropic":
		if c.AnthropicKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required when LLM_PROVIDER=anthropic")
		}
		if c.OpenAIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for embeddings")
		}
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q", c.LLMProvider)
	}

	switch c.VectorBackend {
	case "sqlite", "memory":
	case "postgres":
		if c.PostgresURL == "" {
			return fmt.Errorf("POSTGRES_URL is required when VECTOR_BACKEND=postgres")
		}
	default:
		return fmt.Errorf("unknown VECTOR_BACKEND %q", c.VectorBackend)
	}

	if c.ChunkOverlap >= c.MaxChunkTokens {
		return fmt.Errorf("CHUNK_OVERLAP (%d) must be smaller than MAX_CHUNK_TOKENS (%d)", c.ChunkOverlap, c.MaxChunkTokens)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
