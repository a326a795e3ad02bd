package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"ragserver/internal/domain"
)

type sourcesBody struct {
	Sources []domain.SourceMetadata `json:"sources"`
}

// GetSources lists every distinct ingested source, ordered by title.
func (h *Handler) GetSources(c echo.Context) error {
	sources, err := h.catalog.Sources(c.Request().Context())
	if err != nil {
		return h.fail(c, err)
	}
	if sources == nil {
		sources = []domain.SourceMetadata{}
	}
	return c.JSON(http.StatusOK, sourcesBody{Sources: sources})
}

// DeleteSource removes every stored chunk of one source. Deleting an unknown
// id is a no-op success.
func (h *Handler) DeleteSource(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return h.fail(c, fmt.Errorf("%w: source id must not be empty", domain.ErrInputValidation))
	}
	if err := h.catalog.DeleteSource(c.Request().Context(), id); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "success"})
}
