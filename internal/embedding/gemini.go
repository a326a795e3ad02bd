package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/genai"

	"ragserver/internal/domain"
)

// gemini embeds through the Gemini embedding models. The genai client picks
// up GEMINI_API_KEY from the environment on its own.
type gemini struct {
	client  *genai.Client
	model   string
	dim     int
	timeout time.Duration
}

func newGemini(model string, dim int, timeout time.Duration) (*gemini, error) {
	client, err := genai.NewClient(context.Background(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: gemini client: %v", domain.ErrEmbeddingBackend, err)
	}
	return &gemini{client: client, model: model, dim: dim, timeout: timeout}, nil
}

func (g *gemini) Generate(ctx context.Context, text string) (domain.Embedding, error) {
	ctx, cancel := budget(ctx, g.timeout)
	defer cancel()

	dim := int32(g.dim)
	resp, err := g.client.Models.EmbedContent(ctx, g.model,
		genai.Text(text),
		&genai.EmbedContentConfig{OutputDimensionality: &dim},
	)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return domain.Embedding{}, fmt.Errorf("%w: gemini: %v", domain.ErrEmbeddingTimeout, err)
		}
		return domain.Embedding{}, fmt.Errorf("%w: gemini: %v", domain.ErrEmbeddingBackend, err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return domain.Embedding{}, fmt.Errorf("%w: gemini returned no embedding", domain.ErrEmbeddingBackend)
	}
	return domain.Embedding{Text: text, Vector: resp.Embeddings[0].Values}, nil
}

func (g *gemini) Dimensions() int { return g.dim }
func (g *gemini) Name() string    { return "gemini" }
