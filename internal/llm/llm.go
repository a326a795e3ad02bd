// Package llm obtains completions from a chat model, either whole or as an
// incrementally streamed sequence of fragments. Backend faults are folded
// into the domain error taxonomy so callers never see transport specifics.
package llm

import (
	"context"
	"fmt"
	"log/slog"

	"ragserver/internal/config"
	"ragserver/internal/domain"
	"ragserver/internal/metrics"
)

// EmptyCompletionMessage is returned as the completion text (with a nil
// error) when the backend answers with an empty payload. Callers treat it as
// a valid, displayable message rather than a fault.
const EmptyCompletionMessage = "Error: received empty response from model"

// Usage carries the backend's token counters for cost metrics.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Completion is the full-response result.
type Completion struct {
	Message string
	Usage   Usage
}

// Fragment is one element of a streamed completion. A Fragment with Err set
// is terminal; otherwise the stream ends when the channel closes.
type Fragment struct {
	Text string
	Err  error
}

// Client is the completion capability. The stream is ordered, finite and
// non-restartable; the producer stops on context cancellation.
type Client interface {
	Complete(ctx context.Context, prompt string) (Completion, error)
	CompleteStream(ctx context.Context, prompt string) (<-chan Fragment, error)
	Model() string
}

// New builds the configured LLM backend with cost metrics attached.
func New(cfg *config.Config, rec metrics.Recorder, logger *slog.Logger) (Client, error) {
	var backend Client
	switch cfg.LLMBackend {
	case config.LLMGemini:
		g, err := newGemini(cfg.LLMModel, cfg.LLMTimeout)
		if err != nil {
			return nil, err
		}
		backend = g
	case config.LLMGroq:
		g, err := newGroq(cfg.GroqAPIKey, cfg.LLMModel, cfg.LLMTimeout)
		if err != nil {
			return nil, err
		}
		backend = g
	default:
		return nil, fmt.Errorf("%w: unknown llm backend %q", domain.ErrLLM, cfg.LLMBackend)
	}
	logger.Info("llm client ready",
		slog.String("backend", cfg.LLMBackend), slog.String("model", cfg.LLMModel))
	return &measured{backend: backend, rec: rec}, nil
}

// measured records duration and token usage of every sync completion.
type measured struct {
	backend Client
	rec     metrics.Recorder
}

func (m *measured) Complete(ctx context.Context, prompt string) (Completion, error) {
	fields := metrics.Fields{"model": m.backend.Model()}
	defer metrics.Timer(m.rec, "llm", fields)()

	completion, err := m.backend.Complete(ctx, prompt)
	if err == nil {
		fields["prompt_tokens"] = completion.Usage.PromptTokens
		fields["completion_tokens"] = completion.Usage.CompletionTokens
		fields["total_tokens"] = completion.Usage.TotalTokens
	}
	return completion, err
}

func (m *measured) CompleteStream(ctx context.Context, prompt string) (<-chan Fragment, error) {
	return m.backend.CompleteStream(ctx, prompt)
}

func (m *measured) Model() string { return m.backend.Model() }
