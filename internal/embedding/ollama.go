package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"ragserver/internal/domain"
)

// ollama embeds through a local Ollama-compatible HTTP endpoint.
type ollama struct {
	url     string
	model   string
	dim     int
	timeout time.Duration
	client  *http.Client
}

type ollamaRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type ollamaResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

func newOllama(url, model string, dim int, timeout time.Duration) *ollama {
	return &ollama{
		url:     url,
		model:   model,
		dim:     dim,
		timeout: timeout,
		client:  &http.Client{},
	}
}

func (o *ollama) Generate(ctx context.Context, text string) (domain.Embedding, error) {
	ctx, cancel := budget(ctx, o.timeout)
	defer cancel()

	body, err := json.Marshal(ollamaRequest{Model: o.model, Input: text})
	if err != nil {
		return domain.Embedding{}, fmt.Errorf("%w: ollama: %v", domain.ErrEmbeddingBackend, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.url, bytes.NewReader(body))
	if err != nil {
		return domain.Embedding{}, fmt.Errorf("%w: ollama: %v", domain.ErrEmbeddingBackend, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return domain.Embedding{}, fmt.Errorf("%w: ollama: %v", domain.ErrEmbeddingTimeout, err)
		}
		return domain.Embedding{}, fmt.Errorf("%w: ollama: %v", domain.ErrEmbeddingBackend, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.Embedding{}, fmt.Errorf("%w: ollama status %d", domain.ErrEmbeddingBackend, resp.StatusCode)
	}

	var parsed ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return domain.Embedding{}, fmt.Errorf("%w: ollama: %v", domain.ErrEmbeddingBackend, err)
	}
	if len(parsed.Embeddings) == 0 || len(parsed.Embeddings[0]) == 0 {
		return domain.Embedding{}, fmt.Errorf("%w: ollama returned empty embedding", domain.ErrEmbeddingBackend)
	}
	return domain.Embedding{Text: text, Vector: parsed.Embeddings[0]}, nil
}

func (o *ollama) Dimensions() int { return o.dim }
func (o *ollama) Name() string    { return "ollama" }
