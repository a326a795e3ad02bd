// Package routing wires the HTTP surface onto an echo instance.
package routing

import (
	"github.com/labstack/echo/v4"

	"ragserver/internal/handlers"
)

// InitRoutes registers every endpoint under /api/v1, plus the bare health
// probe.
func InitRoutes(e *echo.Echo, handler *handlers.Handler) {
	api := e.Group("/api/v1")
	api.POST("/chat", handler.PostChat)
	api.GET("/chunks/:question", handler.GetChunks)
	api.POST("/ingest", handler.PostIngest)
	api.GET("/sources", handler.GetSources)
	api.DELETE("/sources/:id", handler.DeleteSource)

	e.GET("/health", handler.GetHealth)
}
