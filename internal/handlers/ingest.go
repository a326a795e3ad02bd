package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"ragserver/internal/domain"
)

type ingestRequestBody struct {
	ID            string `json:"id"`
	UpdatedAt     string `json:"updated_at"`
	Slug          string `json:"slug"`
	Title         string `json:"title"`
	TranscriptURL string `json:"transcript_url"`
}

type ingestResponseBody struct {
	Message  string `json:"message"`
	Inserted int    `json:"inserted"`
}

// PostIngest submits one source for ingestion. Re-submitting an already
// stored id succeeds with zero inserts.
func (h *Handler) PostIngest(c echo.Context) error {
	var body ingestRequestBody
	if err := c.Bind(&body); err != nil {
		return h.fail(c, fmt.Errorf("%w: %v", domain.ErrInputValidation, err))
	}
	if err := validateIngest(body); err != nil {
		return h.fail(c, err)
	}

	inserted, err := h.ingestor.IngestAndStore(c.Request().Context(), domain.SourceMetadata{
		ID:        body.ID,
		Title:     body.Title,
		Slug:      body.Slug,
		OriginURL: body.TranscriptURL,
		UpdatedAt: body.UpdatedAt,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, ingestResponseBody{Message: "success", Inserted: inserted})
}

func validateIngest(body ingestRequestBody) error {
	for field, value := range map[string]string{
		"id":             body.ID,
		"title":          body.Title,
		"transcript_url": body.TranscriptURL,
	} {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%w: %s must not be empty", domain.ErrInputValidation, field)
		}
	}
	return nil
}
