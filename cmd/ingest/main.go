// Command ingest is the operator tool for loading transcripts without going
// through the HTTP endpoint. It handles a single remote URL or a local
// directory of transcript files, and prints the stored point count when done.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"ragserver/internal/chunker"
	"ragserver/internal/config"
	"ragserver/internal/domain"
	"ragserver/internal/embedding"
	"ragserver/internal/ingest"
	"ragserver/internal/metrics"
	"ragserver/internal/vector"
)

func main() {
	var (
		transcriptURL = flag.String("url", "", "transcript URL to fetch and ingest")
		id            = flag.String("id", "", "source id for -url mode (defaults to the url)")
		title         = flag.String("title", "", "source title for -url mode")
		dir           = flag.String("dir", "", "directory of .srt, .txt and .pdf files to ingest")
		workers       = flag.Int("workers", 4, "concurrent ingestions in -dir mode")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if (*transcriptURL == "") == (*dir == "") {
		fmt.Fprintln(os.Stderr, "exactly one of -url or -dir is required")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Error("config", slog.Any("error", err))
		os.Exit(1)
	}

	embedder, err := embedding.New(cfg, metrics.NewLogRecorder(logger), logger)
	if err != nil {
		logger.Error("embedding backend", slog.Any("error", err))
		os.Exit(1)
	}

	ctx := context.Background()
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	store, err := vector.Connect(connectCtx, cfg.QdrantAddr, cfg.QdrantCollection, cfg.EmbeddingDim, cfg.RetrievalTimeout, logger)
	cancel()
	if err != nil {
		logger.Error("vector store", slog.Any("error", err))
		os.Exit(1)
	}
	defer store.Close()

	svc := ingest.New(chunker.New(cfg.ChunkSize), embedder, store, logger)

	var failed bool
	if *transcriptURL != "" {
		failed = ingestURL(ctx, svc, *transcriptURL, *id, *title, logger)
	} else {
		failed = ingestDir(ctx, svc, store, *dir, *workers, logger)
	}

	count, err := store.Count(ctx)
	if err != nil {
		logger.Error("count", slog.Any("error", err))
		os.Exit(1)
	}
	fmt.Printf("collection %s now holds %d points\n", cfg.QdrantCollection, count)
	if failed {
		os.Exit(1)
	}
}

func ingestURL(ctx context.Context, svc *ingest.Service, url, id, title string, logger *slog.Logger) (failed bool) {
	if id == "" {
		id = url
	}
	if title == "" {
		title = filepath.Base(url)
	}
	inserted, err := svc.IngestAndStore(ctx, domain.SourceMetadata{
		ID:        id,
		Title:     title,
		Slug:      slugOf(title),
		OriginURL: url,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		logger.Error("ingest", slog.String("url", url), slog.Any("error", err))
		return true
	}
	logger.Info("done", slog.String("url", url), slog.Int("inserted", inserted))
	return false
}

// ingestDir fans the directory's transcript files out over a bounded worker
// pool. A failed file is logged and skipped so one bad transcript does not
// abort the batch.
func ingestDir(ctx context.Context, svc *ingest.Service, store *vector.Store, dir string, workers int, logger *slog.Logger) (failed bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		logger.Error("read dir", slog.Any("error", err))
		return true
	}

	paths := make(chan string)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for range clampWorkers(workers) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range paths {
				if err := ingestFile(ctx, svc, store, path, logger); err != nil {
					logger.Error("ingest", slog.String("file", path), slog.Any("error", err))
					mu.Lock()
					failed = true
					mu.Unlock()
				}
			}
		}()
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".srt", ".txt", ".pdf":
			paths <- filepath.Join(dir, entry.Name())
		}
	}
	close(paths)
	wg.Wait()
	return failed
}

func ingestFile(ctx context.Context, svc *ingest.Service, store *vector.Store, path string, logger *slog.Logger) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	base := filepath.Base(path)
	title := strings.TrimSuffix(base, filepath.Ext(base))
	src := domain.SourceMetadata{
		ID:        base,
		Title:     title,
		Slug:      slugOf(title),
		OriginURL: "file://" + path,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
	}

	records, err := svc.IngestBytes(ctx, src, raw, chunker.FormatOf(base))
	if err != nil {
		return err
	}
	inserted, err := store.Insert(ctx, records)
	if err != nil {
		return err
	}
	logger.Info("file ingested", slog.String("file", base), slog.Int("inserted", inserted))
	return nil
}

// clampWorkers keeps at least one consumer alive; zero workers would leave
// the path channel with no readers and block the producer forever.
func clampWorkers(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

func slugOf(title string) string {
	slug := strings.ToLower(strings.TrimSpace(title))
	return strings.Join(strings.FieldsFunc(slug, func(r rune) bool {
		return r == ' ' || r == '_' || r == '.'
	}), "-")
}
