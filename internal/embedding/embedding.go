// Package embedding converts text into fixed-length vectors through a
// pluggable backend. The backend is chosen once at construction; an unknown
// backend name fails construction instead of being discovered on first use.
package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ragserver/internal/config"
	"ragserver/internal/domain"
	"ragserver/internal/metrics"
)

// Generator produces one embedding per text. Implementations must return
// vectors of exactly Dimensions() length.
type Generator interface {
	Generate(ctx context.Context, text string) (domain.Embedding, error)
	Dimensions() int
	Name() string
}

// New builds the configured backend, wrapped with scoped timing. The backend
// set is closed: adding one means adding a case here and a type below.
func New(cfg *config.Config, rec metrics.Recorder, logger *slog.Logger) (Generator, error) {
	var backend Generator
	switch cfg.EmbeddingBackend {
	case config.EmbeddingGemini:
		g, err := newGemini(cfg.EmbeddingModel, cfg.EmbeddingDim, cfg.EmbeddingTimeout)
		if err != nil {
			return nil, err
		}
		backend = g
	case config.EmbeddingOllama:
		backend = newOllama(cfg.OllamaURL, cfg.EmbeddingModel, cfg.EmbeddingDim, cfg.EmbeddingTimeout)
	case config.EmbeddingMock:
		backend = &Mock{Dim: cfg.EmbeddingDim}
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrEmbeddingConfig, cfg.EmbeddingBackend)
	}
	logger.Info("embedding generator ready",
		slog.String("backend", backend.Name()),
		slog.Int("dimensions", backend.Dimensions()))
	return &timed{backend: backend, rec: rec}, nil
}

// timed wraps a backend so every call lands in the metrics recorder,
// failures included.
type timed struct {
	backend Generator
	rec     metrics.Recorder
}

func (t *timed) Generate(ctx context.Context, text string) (domain.Embedding, error) {
	defer metrics.Timer(t.rec, "embedding", metrics.Fields{"embedding_type": t.backend.Name()})()
	return t.backend.Generate(ctx, text)
}

func (t *timed) Dimensions() int { return t.backend.Dimensions() }
func (t *timed) Name() string    { return t.backend.Name() }

// budget applies the per-call embedding deadline unless the caller's context
// is already tighter.
func budget(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}
