package embedding

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragserver/internal/config"
	"ragserver/internal/domain"
	"ragserver/internal/metrics"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewUnknownBackend(t *testing.T) {
	cfg := &config.Config{EmbeddingBackend: "carrier-pigeon", EmbeddingDim: 8}

	_, err := New(cfg, &metrics.CaptureRecorder{}, discard())
	require.ErrorIs(t, err, domain.ErrEmbeddingConfig)
}

func TestMockDimensionsAndRange(t *testing.T) {
	cfg := &config.Config{EmbeddingBackend: config.EmbeddingMock, EmbeddingDim: 16}

	gen, err := New(cfg, &metrics.CaptureRecorder{}, discard())
	require.NoError(t, err)
	assert.Equal(t, 16, gen.Dimensions())
	assert.Equal(t, "mock", gen.Name())

	emb, err := gen.Generate(context.Background(), "some text")
	require.NoError(t, err)
	assert.Len(t, emb.Vector, 16)
	assert.Equal(t, "some text", emb.Text)
	for _, v := range emb.Vector {
		assert.GreaterOrEqual(t, v, float32(-1))
		assert.LessOrEqual(t, v, float32(1))
	}
}

func TestGenerateRecordsMetric(t *testing.T) {
	rec := &metrics.CaptureRecorder{}
	cfg := &config.Config{EmbeddingBackend: config.EmbeddingMock, EmbeddingDim: 4}

	gen, err := New(cfg, rec, discard())
	require.NoError(t, err)

	_, err = gen.Generate(context.Background(), "x")
	require.NoError(t, err)

	entries := rec.ByOp("embedding")
	require.Len(t, entries, 1)
	assert.Equal(t, "mock", entries[0].Fields["embedding_type"])
}
