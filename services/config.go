package services

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config collects every tunable the pipeline needs, read from environment
// variables (with a .env file loaded by main). Defaults mirror the values
// the assistant shipped with: 1000/200 character chunks, top-5 retrieval.
type Config struct {
	Port             string
	KnowledgeBaseDir string

	GeminiAPIKey string
	GeminiModel  string

	OllamaURL  string
	EmbedModel string

	ChunkSize    int
	ChunkOverlap int
	TopK         int

	// TokenBudget caps the assembled prompt size; RequestTimeout bounds each
	// external call (embedding and completion).
	TokenBudget    int
	MaxRetries     int
	RetryDelay     time.Duration
	RequestTimeout time.Duration

	VectorStore      string // "memory" or "chroma"
	ChromaURL        string
	ChromaCollection string

	UnidocLicenseKey string
}

// LoadConfig reads the configuration from the environment.
func LoadConfig() *Config {
	return &Config{
		Port:             envString("PORT", "8080"),
		KnowledgeBaseDir: envString("KNOWLEDGE_BASE_DIR", "knowledge_base"),
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		GeminiModel:      envString("GEMINI_MODEL", "gemini-2.5-flash"),
		OllamaURL:        envString("OLLAMA_URL", "http://localhost:11434"),
		EmbedModel:       envString("EMBED_MODEL", "nomic-embed-text:v1.5"),
		ChunkSize:        envInt("CHUNK_SIZE", 1000),
		ChunkOverlap:     envInt("CHUNK_OVERLAP", 200),
		TopK:             envInt("TOP_K", 5),
		TokenBudget:      envInt("TOKEN_BUDGET", 8192),
		MaxRetries:       envInt("MAX_RETRIES", 3),
		RetryDelay:       time.Duration(envInt("RETRY_DELAY_MS", 1000)) * time.Millisecond,
		RequestTimeout:   time.Duration(envInt("REQUEST_TIMEOUT_SECS", 30)) * time.Second,
		VectorStore:      envString("VECTOR_STORE", "memory"),
		ChromaURL:        envString("CHROMA_URL", "http://localhost:8000"),
		ChromaCollection: envString("CHROMA_COLLECTION", "support-kb"),
		UnidocLicenseKey: os.Getenv("UNIDOC_LICENSE_KEY"),
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("CONFIG: invalid value for %s (%q), using default %d", key, v, fallback)
		return fallback
	}
	return n
}
