package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type healthBody struct {
	Status string `json:"status"`
	Points uint64 `json:"points"`
}

// GetHealth reports liveness plus the stored point count, which doubles as a
// cheap store connectivity probe.
func (h *Handler) GetHealth(c echo.Context) error {
	count, err := h.catalog.Count(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, healthBody{Status: "degraded"})
	}
	return c.JSON(http.StatusOK, healthBody{Status: "ok", Points: count})
}
