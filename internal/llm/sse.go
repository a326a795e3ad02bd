package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"ragserver/internal/domain"
)

// parseSSEStream turns a text/event-stream body into a fragment channel.
// Events are buffered up to the blank-line delimiter, then their "data:"
// payloads are decoded; "[DONE]" ends the stream. The body is closed by the
// producer goroutine, and a cancelled context stops it mid-stream.
func parseSSEStream(ctx context.Context, body io.ReadCloser) <-chan Fragment {
	fragments := make(chan Fragment)

	go func() {
		defer func() {
			body.Close()
			close(fragments)
		}()

		reader := bufio.NewReader(body)
		var buf bytes.Buffer
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				if errors.Is(err, io.EOF) || ctx.Err() != nil {
					return
				}
				emit(ctx, fragments, Fragment{Err: fmt.Errorf("%w: stream read: %v", domain.ErrLLMConnection, err)})
				return
			}

			// Blank line closes the current event.
			if line != "\n" && line != "\r\n" {
				buf.WriteString(line)
				continue
			}
			event := buf.String()
			buf.Reset()

			if !strings.HasPrefix(event, "data: ") {
				// Other SSE fields ("event:", "retry:") are not used here.
				continue
			}
			payload := strings.TrimSpace(strings.TrimPrefix(event, "data: "))
			if payload == "[DONE]" {
				return
			}

			var parsed chatResponse
			if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
				emit(ctx, fragments, Fragment{Err: fmt.Errorf("%w: stream decode: %v", domain.ErrLLM, err)})
				return
			}
			if len(parsed.Choices) == 0 || parsed.Choices[0].Delta.Content == "" {
				continue
			}
			if !emit(ctx, fragments, Fragment{Text: parsed.Choices[0].Delta.Content}) {
				return
			}
		}
	}()

	return fragments
}

func emit(ctx context.Context, out chan<- Fragment, f Fragment) bool {
	select {
	case out <- f:
		return true
	case <-ctx.Done():
		return false
	}
}
