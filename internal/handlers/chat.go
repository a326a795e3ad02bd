package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"ragserver/internal/domain"
)

type chatRequestBody struct {
	Question      string   `json:"question"`
	TypeOfRequest string   `json:"type_of_request"`
	NameSpaces    []string `json:"name_spaces"`
}

type streamMetadata struct {
	Metadatas []map[string]any `json:"metadatas"`
}

type streamDelta struct {
	Delta string `json:"delta"`
}

// PostChat answers a question. FULL mode returns one JSON body; STREAM mode
// switches to server-sent events and pushes fragments as they arrive.
func (h *Handler) PostChat(c echo.Context) error {
	var body chatRequestBody
	if err := c.Bind(&body); err != nil {
		return h.fail(c, fmt.Errorf("%w: %v", domain.ErrInputValidation, err))
	}

	q := domain.ChatQuery{
		Question:   body.Question,
		Mode:       domain.RequestMode(body.TypeOfRequest),
		Namespaces: body.NameSpaces,
	}

	switch q.Mode {
	case domain.ModeFull:
		return h.chatFull(c, q)
	case domain.ModeStream:
		return h.chatStream(c, q)
	default:
		return h.fail(c, fmt.Errorf("%w: type_of_request must be FULL or STREAM, got %q", domain.ErrInputValidation, body.TypeOfRequest))
	}
}

func (h *Handler) chatFull(c echo.Context, q domain.ChatQuery) error {
	resp, err := h.querier.Answer(c.Request().Context(), q)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// chatStream writes the SSE exchange: one metadata event up front so the
// client can render sources before the first token, then a data event per
// fragment, then the [DONE] marker. Errors after the 200 header can only be
// reported in-band as an error event.
func (h *Handler) chatStream(c echo.Context, q domain.ChatQuery) error {
	stream, err := h.querier.AnswerStream(c.Request().Context(), q)
	if err != nil {
		return h.fail(c, err)
	}

	flusher, err := sseFlusher(c)
	if err != nil {
		return h.fail(c, err)
	}

	w := c.Response()
	meta, _ := json.Marshal(streamMetadata{Metadatas: stream.Metadatas})
	fmt.Fprintf(w, "event: metadata\ndata: %s\n\n", meta)
	flusher.Flush()

	for fragment := range stream.Fragments {
		if fragment.Err != nil {
			code, _ := domain.CodeOf(fragment.Err)
			h.logger.Error("stream aborted",
				slog.String("code", code),
				slog.Any("error", fragment.Err))
			payload, _ := json.Marshal(ErrorBody{Code: code, Message: fragment.Err.Error()})
			fmt.Fprintf(w, "event: error\ndata: %s\n\n", payload)
			flusher.Flush()
			break
		}
		payload, _ := json.Marshal(streamDelta{Delta: fragment.Text})
		fmt.Fprintf(w, "data: %s\n\n", payload)
		flusher.Flush()
	}

	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
	return nil
}

// GetChunks returns the raw passages that would back a question, without a
// completion. An empty corpus match is a 200 with an empty list here, unlike
// the chat path where it becomes a fallback message.
func (h *Handler) GetChunks(c echo.Context) error {
	question := c.Param("question")
	namespaces := splitParam(c.QueryParam("name_spaces"))

	docs, err := h.querier.RetrieveOnly(c.Request().Context(), question, namespaces)
	if err != nil {
		if errors.Is(err, domain.ErrNoDocumentFound) {
			return c.JSON(http.StatusOK, chunksBody{Chunks: []chunkEntry{}})
		}
		return h.fail(c, err)
	}

	entries := make([]chunkEntry, len(docs))
	for i, doc := range docs {
		entries[i] = chunkEntry{Text: doc.Text, Metadata: doc.Metadata, Score: doc.Score}
	}
	return c.JSON(http.StatusOK, chunksBody{Chunks: entries})
}

type chunkEntry struct {
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata"`
	Score    float32        `json:"score"`
}

type chunksBody struct {
	Chunks []chunkEntry `json:"chunks"`
}

// splitParam parses a comma-separated query parameter, dropping empty parts.
func splitParam(raw string) []string {
	if raw == "" {
		return nil
	}
	var parts []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}
