// Command server runs the question-answering HTTP service. All collaborators
// are built once at startup; a missing backend or unreachable store fails the
// process immediately instead of on the first request.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"ragserver/internal/chunker"
	"ragserver/internal/config"
	"ragserver/internal/embedding"
	"ragserver/internal/handlers"
	"ragserver/internal/ingest"
	"ragserver/internal/llm"
	"ragserver/internal/metrics"
	"ragserver/internal/query"
	"ragserver/internal/routing"
	"ragserver/internal/vector"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("config", slog.Any("error", err))
		os.Exit(1)
	}

	recorder := metrics.NewLogRecorder(logger)

	embedder, err := embedding.New(cfg, recorder, logger)
	if err != nil {
		logger.Error("embedding backend", slog.Any("error", err))
		os.Exit(1)
	}

	client, err := llm.New(cfg, recorder, logger)
	if err != nil {
		logger.Error("llm backend", slog.Any("error", err))
		os.Exit(1)
	}

	connectCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	store, err := vector.Connect(connectCtx, cfg.QdrantAddr, cfg.QdrantCollection, cfg.EmbeddingDim, cfg.RetrievalTimeout, logger)
	cancel()
	if err != nil {
		logger.Error("vector store", slog.Any("error", err))
		os.Exit(1)
	}
	defer store.Close()

	orchestrator := query.New(embedder, store, client, logger, query.Options{
		Deadline:        cfg.RequestTimeout,
		TopK:            cfg.TopK,
		ScoreThreshold:  cfg.ScoreThreshold,
		CandidatePool:   cfg.CandidatePool,
		MaxPromptTokens: cfg.MaxPromptTokens,
		StreamPull:      cfg.StreamPullTimeout,
	})
	ingestor := ingest.New(chunker.New(cfg.ChunkSize), embedder, store, logger)
	handler := handlers.New(orchestrator, ingestor, store, logger)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{cfg.FrontendURL},
		AllowMethods:     []string{echo.GET, echo.POST, echo.DELETE, echo.OPTIONS},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
	}))
	routing.InitRoutes(e, handler)

	logger.Info("server starting",
		slog.String("addr", cfg.ServerAddr),
		slog.String("embedding", embedder.Name()),
		slog.String("model", client.Model()),
		slog.String("collection", cfg.QdrantCollection))
	e.Logger.Fatal(e.Start(cfg.ServerAddr))
}
