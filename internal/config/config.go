// Package config loads the process configuration from the environment once
// at startup. The resulting Config is immutable; components receive the
// slices they need at construction and never re-read the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	_ "github.com/joho/godotenv/autoload"
)

// Backend names accepted for EMBEDDING_BACKEND and LLM_BACKEND.
const (
	EmbeddingGemini = "gemini"
	EmbeddingOllama = "ollama"
	EmbeddingMock   = "mock"

	LLMGemini = "gemini"
	LLMGroq   = "groq"
)

type Config struct {
	ServerAddr  string
	FrontendURL string

	QdrantAddr       string
	QdrantCollection string

	EmbeddingBackend string
	EmbeddingModel   string
	EmbeddingDim     int
	OllamaURL        string
	EmbeddingTimeout time.Duration

	LLMBackend        string
	LLMModel          string
	GroqAPIKey        string
	LLMTimeout        time.Duration
	StreamPullTimeout time.Duration

	RequestTimeout   time.Duration
	RetrievalTimeout time.Duration

	ScoreThreshold  float32
	TopK            int
	CandidatePool   int
	MaxPromptTokens int

	ChunkSize int
}

// Load reads and validates the environment. Anything unparsable fails the
// process at startup rather than on first use.
func Load() (*Config, error) {
	cfg := &Config{
		ServerAddr:       getEnv("SERVER_ADDR", ":1323"),
		FrontendURL:      getEnv("FRONTEND_URL", "http://localhost:5173"),
		QdrantAddr:       getEnv("QDRANT_ADDR", "localhost:6334"),
		QdrantCollection: getEnv("QDRANT_COLLECTION", "transcripts"),
		EmbeddingBackend: getEnv("EMBEDDING_BACKEND", EmbeddingGemini),
		EmbeddingModel:   getEnv("EMBEDDING_MODEL", "gemini-embedding-001"),
		OllamaURL:        getEnv("OLLAMA_URL", "http://localhost:11434/api/embed"),
		LLMBackend:       getEnv("LLM_BACKEND", LLMGemini),
		LLMModel:         getEnv("LLM_MODEL", "gemini-2.5-flash"),
		GroqAPIKey:       os.Getenv("GROQ_API_KEY"),
	}

	var err error
	if cfg.EmbeddingDim, err = getInt("EMBEDDING_DIM", 784); err != nil {
		return nil, err
	}
	if cfg.TopK, err = getInt("RETRIEVAL_K", 5); err != nil {
		return nil, err
	}
	if cfg.CandidatePool, err = getInt("RETRIEVAL_CANDIDATE_POOL", 300); err != nil {
		return nil, err
	}
	if cfg.MaxPromptTokens, err = getInt("MAX_PROMPT_TOKENS", 1500); err != nil {
		return nil, err
	}
	if cfg.ChunkSize, err = getInt("CHUNK_SIZE", 100); err != nil {
		return nil, err
	}
	if cfg.ScoreThreshold, err = getFloat32("SCORE_THRESHOLD", 0.85); err != nil {
		return nil, err
	}
	if cfg.RequestTimeout, err = getDuration("REQUEST_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.RetrievalTimeout, err = getDuration("RETRIEVAL_TIMEOUT", 500*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.EmbeddingTimeout, err = getDuration("EMBEDDING_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.LLMTimeout, err = getDuration("LLM_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.StreamPullTimeout, err = getDuration("STREAM_PULL_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}

	if cfg.EmbeddingDim <= 0 {
		return nil, fmt.Errorf("EMBEDDING_DIM must be positive, got %d", cfg.EmbeddingDim)
	}
	if cfg.TopK <= 0 {
		return nil, fmt.Errorf("RETRIEVAL_K must be positive, got %d", cfg.TopK)
	}
	if cfg.CandidatePool < cfg.TopK {
		return nil, fmt.Errorf("RETRIEVAL_CANDIDATE_POOL (%d) must be >= RETRIEVAL_K (%d)", cfg.CandidatePool, cfg.TopK)
	}
	if cfg.ScoreThreshold < -1 || cfg.ScoreThreshold > 1 {
		return nil, fmt.Errorf("SCORE_THRESHOLD must be within [-1, 1], got %v", cfg.ScoreThreshold)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getFloat32(key string, fallback float32) (float32, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 32)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return float32(f), nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
