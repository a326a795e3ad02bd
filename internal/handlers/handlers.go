// Package handlers is the HTTP edge: echo handlers that bind requests,
// delegate to the query and ingest services, and translate domain errors
// into stable {code, message} bodies.
package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"ragserver/internal/domain"
	"ragserver/internal/query"
)

// Querier is the question-answering surface the handlers call.
type Querier interface {
	Answer(ctx context.Context, q domain.ChatQuery) (*domain.ChatResponse, error)
	AnswerStream(ctx context.Context, q domain.ChatQuery) (*query.Stream, error)
	RetrieveOnly(ctx context.Context, question string, namespaces []string) ([]domain.RetrievedDocument, error)
}

// Ingestor accepts one source for fetch, chunk, embed and store.
type Ingestor interface {
	IngestAndStore(ctx context.Context, src domain.SourceMetadata) (int, error)
}

// Catalog is the corpus-management slice of the store.
type Catalog interface {
	Sources(ctx context.Context) ([]domain.SourceMetadata, error)
	DeleteSource(ctx context.Context, id string) error
	Count(ctx context.Context) (uint64, error)
}

type Handler struct {
	querier  Querier
	ingestor Ingestor
	catalog  Catalog
	logger   *slog.Logger
}

func New(querier Querier, ingestor Ingestor, catalog Catalog, logger *slog.Logger) *Handler {
	return &Handler{querier: querier, ingestor: ingestor, catalog: catalog, logger: logger}
}

// ErrorBody is the uniform error shape every endpoint returns on failure.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// fail maps a domain error onto its HTTP status and stable code, logging the
// full error server-side while the client only sees the classified form.
func (h *Handler) fail(c echo.Context, err error) error {
	code, status := domain.CodeOf(err)
	h.logger.Error("request failed",
		slog.String("path", c.Path()),
		slog.String("code", code),
		slog.Any("error", err))
	return c.JSON(status, ErrorBody{Code: code, Message: err.Error()})
}

// sseFlusher switches the response into event-stream mode and hands back the
// flusher that pushes each event out immediately.
func sseFlusher(c echo.Context) (http.Flusher, error) {
	c.Response().Header().Set("Content-Type", "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().WriteHeader(http.StatusOK)

	flusher, ok := c.Response().Writer.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support flushing")
	}
	return flusher, nil
}
