package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragserver/internal/chunker"
	"ragserver/internal/domain"
	"ragserver/internal/embedding"
)

type failAfterEmbedder struct {
	succeed int
	calls   int
}

func (f *failAfterEmbedder) Generate(ctx context.Context, text string) (domain.Embedding, error) {
	f.calls++
	if f.calls > f.succeed {
		return domain.Embedding{}, fmt.Errorf("%w: quota exhausted", domain.ErrEmbeddingBackend)
	}
	return domain.Embedding{Text: text, Vector: []float32{0.1, 0.2}}, nil
}

func (f *failAfterEmbedder) Dimensions() int { return 2 }
func (f *failAfterEmbedder) Name() string    { return "failing" }

type captureStore struct {
	records []domain.VectorRecord
	err     error
}

func (c *captureStore) Insert(ctx context.Context, records []domain.VectorRecord) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	c.records = records
	return len(records), nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newService(store Inserter, gen embedding.Generator) *Service {
	return New(chunker.New(5), gen, store, testLogger())
}

func src(url string) domain.SourceMetadata {
	return domain.SourceMetadata{
		ID:        "src-1",
		Title:     "A Talk",
		Slug:      "a-talk",
		OriginURL: url,
		UpdatedAt: "2026-01-01T00:00:00Z",
	}
}

func TestIngestFetchesChunksAndEmbeds(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "one two three four five six seven")
	}))
	defer ts.Close()

	svc := newService(&captureStore{}, &embedding.Mock{Dim: 4})
	records, err := svc.Ingest(context.Background(), src(ts.URL+"/a.txt"))
	require.NoError(t, err)
	require.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, "one two three four five", first.Chunk.Text)
	assert.Equal(t, "src-1", first.Chunk.SourceID)
	assert.Equal(t, "a-talk", first.Chunk.Namespace)
	assert.Equal(t, 4, first.Dimension)
	assert.Len(t, first.Vector, 4)
	assert.Equal(t, "src-1", first.Source.ID)
}

func TestIngestFetchFailureStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	svc := newService(&captureStore{}, &embedding.Mock{Dim: 4})
	_, err := svc.Ingest(context.Background(), src(ts.URL+"/gone.txt"))
	require.ErrorIs(t, err, domain.ErrSourceFetch)
}

func TestIngestEmptyBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer ts.Close()

	svc := newService(&captureStore{}, &embedding.Mock{Dim: 4})
	_, err := svc.Ingest(context.Background(), src(ts.URL+"/empty.txt"))
	require.ErrorIs(t, err, domain.ErrSourceFetch)
}

func TestIngestUnreachableHost(t *testing.T) {
	svc := newService(&captureStore{}, &embedding.Mock{Dim: 4})
	_, err := svc.Ingest(context.Background(), src("http://127.0.0.1:1/x.txt"))
	require.ErrorIs(t, err, domain.ErrSourceFetch)
}

func TestIngestAbortsOnEmbeddingFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "one two three four five six seven eight nine ten eleven")
	}))
	defer ts.Close()

	// Three chunks; the embedder dies on the second. No partial result.
	svc := newService(&captureStore{}, &failAfterEmbedder{succeed: 1})
	records, err := svc.Ingest(context.Background(), src(ts.URL+"/a.txt"))
	require.ErrorIs(t, err, domain.ErrEmbeddingBackend)
	assert.Nil(t, records)
}

func TestIngestAndStore(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "just a few words here")
	}))
	defer ts.Close()

	store := &captureStore{}
	svc := newService(store, &embedding.Mock{Dim: 4})

	inserted, err := svc.IngestAndStore(context.Background(), src(ts.URL+"/a.txt"))
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)
	require.Len(t, store.records, 1)
}

func TestIngestBytesSRT(t *testing.T) {
	srt := "1\n00:00:01,000 --> 00:00:02,000\nhello from the talk\n"

	svc := newService(&captureStore{}, &embedding.Mock{Dim: 4})
	records, err := svc.IngestBytes(context.Background(), src("file:///a.srt"), []byte(srt), chunker.FormatSRT)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "00:00:01,000", records[0].Chunk.TimeStart)
}

func TestFormatOfURLIgnoresQuery(t *testing.T) {
	assert.Equal(t, chunker.FormatSRT, formatOfURL("https://example.com/t.srt?token=abc"))
	assert.Equal(t, chunker.FormatPDF, formatOfURL("https://example.com/doc.pdf"))
	assert.Equal(t, chunker.FormatTXT, formatOfURL("https://example.com/plain"))
}
