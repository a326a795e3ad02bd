package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"ragserver/internal/domain"
	"ragserver/internal/prompt"
)

const groqURL = "https://api.groq.com/openai/v1/chat/completions"

// groqClient completes through Groq's OpenAI-compatible chat API.
type groqClient struct {
	apiKey  string
	model   string
	timeout time.Duration
	client  *http.Client
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Messages []chatMessage `json:"messages"`
	Model    string        `json:"model"`
	Stream   bool          `json:"stream"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	FinishReason string      `json:"finish_reason"`
	Message      chatMessage `json:"message"`
	Delta        chatMessage `json:"delta"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
	Usage   struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

func newGroq(apiKey, model string, timeout time.Duration) (*groqClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: GROQ_API_KEY env var not set", domain.ErrLLMConnection)
	}
	return &groqClient{apiKey: apiKey, model: model, timeout: timeout, client: &http.Client{}}, nil
}

func (g *groqClient) send(ctx context.Context, userPrompt string, stream bool) (*http.Response, error) {
	body, err := json.Marshal(chatRequest{
		Messages: []chatMessage{
			{Role: "system", Content: prompt.SystemMessage},
			{Role: "user", Content: userPrompt},
		},
		Model:  g.model,
		Stream: stream,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: groq: %v", domain.ErrLLM, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, groqURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: groq: %v", domain.ErrLLM, err)
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: groq: %v", domain.ErrLLMTimeout, err)
		}
		return nil, fmt.Errorf("%w: groq: %v", domain.ErrLLMConnection, err)
	}
	switch resp.StatusCode {
	case http.StatusOK:
		return resp, nil
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusTooManyRequests:
		resp.Body.Close()
		return nil, fmt.Errorf("%w: groq status %d", domain.ErrLLMConnection, resp.StatusCode)
	default:
		resp.Body.Close()
		return nil, fmt.Errorf("%w: groq status %d", domain.ErrLLM, resp.StatusCode)
	}
}

func (g *groqClient) Complete(ctx context.Context, userPrompt string) (Completion, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.send(ctx, userPrompt, false)
	if err != nil {
		return Completion{}, err
	}
	defer resp.Body.Close()

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Completion{}, fmt.Errorf("%w: groq decode: %v", domain.ErrLLM, err)
	}

	completion := Completion{
		Message: EmptyCompletionMessage,
		Usage: Usage{
			PromptTokens:     parsed.Usage.PromptTokens,
			CompletionTokens: parsed.Usage.CompletionTokens,
			TotalTokens:      parsed.Usage.TotalTokens,
		},
	}
	if len(parsed.Choices) > 0 && parsed.Choices[0].Message.Content != "" {
		completion.Message = parsed.Choices[0].Message.Content
	}
	return completion, nil
}

func (g *groqClient) CompleteStream(ctx context.Context, userPrompt string) (<-chan Fragment, error) {
	resp, err := g.send(ctx, userPrompt, true)
	if err != nil {
		return nil, err
	}
	return parseSSEStream(ctx, resp.Body), nil
}

func (g *groqClient) Model() string { return g.model }
