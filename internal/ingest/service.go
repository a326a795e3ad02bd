// Package ingest turns a remote transcript into vector records: fetch,
// chunk, embed every chunk, stamp provenance. Writing the records is the
// caller's step, so a failed ingestion never leaves a partial document in
// the store.
package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"ragserver/internal/chunker"
	"ragserver/internal/domain"
	"ragserver/internal/embedding"
)

// Chunker is the external chunking collaborator.
type Chunker interface {
	Chunk(filename string, raw []byte, format chunker.Format) ([]domain.Chunk, error)
}

// Inserter is the write slice of the embedding store.
type Inserter interface {
	Insert(ctx context.Context, records []domain.VectorRecord) (int, error)
}

type Service struct {
	chunker  Chunker
	embedder embedding.Generator
	store    Inserter
	client   *http.Client
	logger   *slog.Logger
}

func New(ch Chunker, embedder embedding.Generator, store Inserter, logger *slog.Logger) *Service {
	return &Service{
		chunker:  ch,
		embedder: embedder,
		store:    store,
		client:   &http.Client{},
		logger:   logger,
	}
}

// Ingest fetches and embeds one source. Any single embedding failure aborts
// the whole call: the store's id-based dedup makes a partially persisted
// document unrecoverable, so it is all or nothing.
func (s *Service) Ingest(ctx context.Context, src domain.SourceMetadata) ([]domain.VectorRecord, error) {
	raw, err := s.fetch(ctx, src.OriginURL)
	if err != nil {
		return nil, err
	}
	return s.IngestBytes(ctx, src, raw, formatOfURL(src.OriginURL))
}

// IngestBytes chunks and embeds transcript material that is already in hand,
// for callers that read from disk instead of fetching.
func (s *Service) IngestBytes(ctx context.Context, src domain.SourceMetadata, raw []byte, format chunker.Format) ([]domain.VectorRecord, error) {
	name := src.Slug
	if name == "" {
		name = src.Title
	}
	chunks, err := s.chunker.Chunk(name, raw, format)
	if err != nil {
		return nil, fmt.Errorf("%w: chunking %s: %v", domain.ErrSourceFetch, src.ID, err)
	}

	records := make([]domain.VectorRecord, len(chunks))
	for i, chunk := range chunks {
		chunk.SourceID = src.ID
		emb, err := s.embedder.Generate(ctx, chunk.Text)
		if err != nil {
			return nil, fmt.Errorf("embedding chunk %d of source %s: %w", i, src.ID, err)
		}
		records[i] = domain.VectorRecord{
			Vector:    emb.Vector,
			Dimension: len(emb.Vector),
			Chunk:     chunk,
			Source:    src,
		}
	}

	s.logger.Info("source ingested",
		slog.String("source_id", src.ID),
		slog.String("title", src.Title),
		slog.Int("chunks", len(records)))
	return records, nil
}

// IngestAndStore runs Ingest and submits the records. Returns how many were
// actually inserted; zero means the source was already present.
func (s *Service) IngestAndStore(ctx context.Context, src domain.SourceMetadata) (int, error) {
	records, err := s.Ingest(ctx, src)
	if err != nil {
		return 0, err
	}
	return s.store.Insert(ctx, records)
}

func (s *Service) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: bad transcript url %q: %v", domain.ErrSourceFetch, rawURL, err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSourceFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d from %s", domain.ErrSourceFetch, resp.StatusCode, rawURL)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", domain.ErrSourceFetch, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty transcript at %s", domain.ErrSourceFetch, rawURL)
	}
	return raw, nil
}

// formatOfURL guesses the transcript format from the URL path, ignoring any
// query string.
func formatOfURL(rawURL string) chunker.Format {
	u, err := url.Parse(rawURL)
	if err != nil {
		return chunker.FormatTXT
	}
	return chunker.FormatOf(u.Path)
}
