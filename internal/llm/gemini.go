package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/genai"

	"ragserver/internal/domain"
	"ragserver/internal/prompt"
)

// geminiClient completes through the Gemini API. The genai client reads
// GEMINI_API_KEY from the environment.
type geminiClient struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

func newGemini(model string, timeout time.Duration) (*geminiClient, error) {
	client, err := genai.NewClient(context.Background(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: gemini client: %v", domain.ErrLLMConnection, err)
	}
	return &geminiClient{client: client, model: model, timeout: timeout}, nil
}

// contents builds the system persona followed by the user prompt. Gemini has
// no separate system role on this call path, so both go in as user turns,
// persona first.
func (g *geminiClient) contents(userPrompt string) []*genai.Content {
	return []*genai.Content{
		{Role: genai.RoleUser, Parts: []*genai.Part{{Text: prompt.SystemMessage}}},
		{Role: genai.RoleUser, Parts: []*genai.Part{{Text: userPrompt}}},
	}
}

func (g *geminiClient) Complete(ctx context.Context, userPrompt string) (Completion, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.Models.GenerateContent(ctx, g.model, g.contents(userPrompt), nil)
	if err != nil {
		return Completion{}, classifyGeminiError(err)
	}

	completion := Completion{Message: EmptyCompletionMessage}
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil && len(resp.Candidates[0].Content.Parts) > 0 {
		if text := resp.Candidates[0].Content.Parts[0].Text; text != "" {
			completion.Message = text
		}
	}
	if resp.UsageMetadata != nil {
		completion.Usage = Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}
	return completion, nil
}

func (g *geminiClient) CompleteStream(ctx context.Context, userPrompt string) (<-chan Fragment, error) {
	fragments := make(chan Fragment)
	go func() {
		defer close(fragments)
		for resp, err := range g.client.Models.GenerateContentStream(ctx, g.model, g.contents(userPrompt), nil) {
			if err != nil {
				select {
				case fragments <- Fragment{Err: classifyGeminiError(err)}:
				case <-ctx.Done():
				}
				return
			}
			if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
				continue
			}
			for _, part := range resp.Candidates[0].Content.Parts {
				if part.Text == "" {
					continue
				}
				select {
				case fragments <- Fragment{Text: part.Text}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return fragments, nil
}

func (g *geminiClient) Model() string { return g.model }

func classifyGeminiError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: gemini: %v", domain.ErrLLMTimeout, err)
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusTooManyRequests:
			return fmt.Errorf("%w: gemini: %v", domain.ErrLLMConnection, err)
		}
	}
	return fmt.Errorf("%w: gemini: %v", domain.ErrLLM, err)
}
