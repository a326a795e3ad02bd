package query

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragserver/internal/domain"
	"ragserver/internal/llm"
)

type fakeEmbedder struct {
	vec []float32
	err error
}

func (f *fakeEmbedder) Generate(ctx context.Context, text string) (domain.Embedding, error) {
	if f.err != nil {
		return domain.Embedding{}, f.err
	}
	return domain.Embedding{Text: text, Vector: f.vec}, nil
}

func (f *fakeEmbedder) Dimensions() int { return len(f.vec) }
func (f *fakeEmbedder) Name() string    { return "fake" }

type fakeStore struct {
	docs       []domain.RetrievedDocument
	err        error
	gotVec     []float32
	namespaces []string
}

func (f *fakeStore) Retrieve(ctx context.Context, vec []float32, namespaces []string, k int, threshold float32, pool int) ([]domain.RetrievedDocument, error) {
	f.gotVec = vec
	f.namespaces = namespaces
	if f.err != nil {
		return nil, f.err
	}
	return f.docs, nil
}

type fakeLLM struct {
	message   string
	err       error
	fragments []llm.Fragment
	delay     time.Duration
	gotPrompt string
}

func (f *fakeLLM) Complete(ctx context.Context, prompt string) (llm.Completion, error) {
	f.gotPrompt = prompt
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return llm.Completion{}, fmt.Errorf("backend: %w", ctx.Err())
		}
	}
	if f.err != nil {
		return llm.Completion{}, f.err
	}
	return llm.Completion{Message: f.message}, nil
}

func (f *fakeLLM) CompleteStream(ctx context.Context, prompt string) (<-chan llm.Fragment, error) {
	f.gotPrompt = prompt
	if f.err != nil {
		return nil, f.err
	}
	ch := make(chan llm.Fragment, len(f.fragments))
	for _, fr := range f.fragments {
		ch <- fr
	}
	close(ch)
	return ch, nil
}

func (f *fakeLLM) Model() string { return "fake-model" }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testOptions() Options {
	return Options{
		Deadline:        time.Second,
		TopK:            5,
		ScoreThreshold:  0.85,
		CandidatePool:   300,
		MaxPromptTokens: 1500,
		StreamPull:      time.Second,
	}
}

func someDocs() []domain.RetrievedDocument {
	return []domain.RetrievedDocument{
		{Text: "a quote", Metadata: map[string]any{"name_space": "talk"}, Score: 0.9},
	}
}

func TestAnswerHappyPath(t *testing.T) {
	store := &fakeStore{docs: someDocs()}
	client := &fakeLLM{message: "the answer"}
	o := New(&fakeEmbedder{vec: []float32{1, 2}}, store, client, testLogger(), testOptions())

	resp, err := o.Answer(context.Background(), domain.ChatQuery{
		Question:   "what about patience?",
		Namespaces: []string{"talk"},
	})
	require.NoError(t, err)

	assert.Equal(t, "the answer", resp.Message)
	require.Len(t, resp.Metadatas, 1)
	assert.Equal(t, "talk", resp.Metadatas[0]["name_space"])
	assert.Equal(t, float32(0.9), resp.Metadatas[0]["score"])
	assert.Equal(t, []string{"talk"}, store.namespaces)
	assert.Contains(t, client.gotPrompt, "patience?")
}

func TestAnswerEmptyQuestion(t *testing.T) {
	o := New(&fakeEmbedder{}, &fakeStore{}, &fakeLLM{}, testLogger(), testOptions())

	_, err := o.Answer(context.Background(), domain.ChatQuery{Question: "   "})
	require.ErrorIs(t, err, domain.ErrInputValidation)
}

func TestAnswerBlankNamespace(t *testing.T) {
	o := New(&fakeEmbedder{}, &fakeStore{}, &fakeLLM{}, testLogger(), testOptions())

	_, err := o.Answer(context.Background(), domain.ChatQuery{
		Question:   "q",
		Namespaces: []string{"ok", "  "},
	})
	require.ErrorIs(t, err, domain.ErrInputValidation)
}

func TestAnswerNoDocumentsIsDegradedSuccess(t *testing.T) {
	store := &fakeStore{err: fmt.Errorf("%w: nothing above threshold", domain.ErrNoDocumentFound)}
	o := New(&fakeEmbedder{vec: []float32{1}}, store, &fakeLLM{}, testLogger(), testOptions())

	resp, err := o.Answer(context.Background(), domain.ChatQuery{Question: "anything relevant?"})
	require.NoError(t, err)

	assert.Equal(t, NoAnswerMessage, resp.Message)
	assert.Empty(t, resp.Metadatas)
	assert.NotNil(t, resp.Metadatas)
}

func TestAnswerDeadlineBecomesRequestTimeout(t *testing.T) {
	opts := testOptions()
	opts.Deadline = 20 * time.Millisecond
	client := &fakeLLM{delay: 500 * time.Millisecond}
	o := New(&fakeEmbedder{vec: []float32{1}}, &fakeStore{docs: someDocs()}, client, testLogger(), opts)

	_, err := o.Answer(context.Background(), domain.ChatQuery{Question: "slow one"})
	require.ErrorIs(t, err, domain.ErrRequestTimeout)
}

func TestAnswerStageErrorPassesThrough(t *testing.T) {
	store := &fakeStore{err: fmt.Errorf("%w: boom", domain.ErrRetrieval)}
	o := New(&fakeEmbedder{vec: []float32{1}}, store, &fakeLLM{}, testLogger(), testOptions())

	_, err := o.Answer(context.Background(), domain.ChatQuery{Question: "q"})
	require.ErrorIs(t, err, domain.ErrRetrieval)
	assert.False(t, errors.Is(err, domain.ErrRequestTimeout))
}

func TestAnswerStreamOrderAndTermination(t *testing.T) {
	client := &fakeLLM{fragments: []llm.Fragment{{Text: "one "}, {Text: "two"}}}
	o := New(&fakeEmbedder{vec: []float32{1}}, &fakeStore{docs: someDocs()}, client, testLogger(), testOptions())

	stream, err := o.AnswerStream(context.Background(), domain.ChatQuery{Question: "q"})
	require.NoError(t, err)
	require.Len(t, stream.Metadatas, 1)

	var texts []string
	for f := range stream.Fragments {
		require.NoError(t, f.Err)
		texts = append(texts, f.Text)
	}
	assert.Equal(t, []string{"one ", "two"}, texts)
}

func TestAnswerStreamDegraded(t *testing.T) {
	store := &fakeStore{err: fmt.Errorf("%w", domain.ErrNoDocumentFound)}
	o := New(&fakeEmbedder{vec: []float32{1}}, store, &fakeLLM{}, testLogger(), testOptions())

	stream, err := o.AnswerStream(context.Background(), domain.ChatQuery{Question: "q"})
	require.NoError(t, err)
	assert.Empty(t, stream.Metadatas)

	f, ok := <-stream.Fragments
	require.True(t, ok)
	assert.Equal(t, NoAnswerMessage, f.Text)
	_, ok = <-stream.Fragments
	assert.False(t, ok)
}

func TestAnswerStreamStallBecomesTimeoutFragment(t *testing.T) {
	opts := testOptions()
	opts.StreamPull = 20 * time.Millisecond

	// A channel nobody writes to models an upstream that stalls forever.
	stalled := make(chan llm.Fragment)
	client := &stallingLLM{ch: stalled}
	o := New(&fakeEmbedder{vec: []float32{1}}, &fakeStore{docs: someDocs()}, client, testLogger(), opts)

	stream, err := o.AnswerStream(context.Background(), domain.ChatQuery{Question: "q"})
	require.NoError(t, err)

	select {
	case f := <-stream.Fragments:
		require.ErrorIs(t, f.Err, domain.ErrLLMTimeout)
	case <-time.After(time.Second):
		t.Fatal("no timeout fragment")
	}
}

type stallingLLM struct {
	ch chan llm.Fragment
}

func (s *stallingLLM) Complete(ctx context.Context, prompt string) (llm.Completion, error) {
	return llm.Completion{}, nil
}

func (s *stallingLLM) CompleteStream(ctx context.Context, prompt string) (<-chan llm.Fragment, error) {
	return s.ch, nil
}

func (s *stallingLLM) Model() string { return "stalling" }

func TestRetrieveOnlyPassesNoDocumentThrough(t *testing.T) {
	store := &fakeStore{err: fmt.Errorf("%w", domain.ErrNoDocumentFound)}
	o := New(&fakeEmbedder{vec: []float32{1}}, store, &fakeLLM{}, testLogger(), testOptions())

	_, err := o.RetrieveOnly(context.Background(), "q", nil)
	require.ErrorIs(t, err, domain.ErrNoDocumentFound)
}

func TestRetrieveOnlyReturnsDocuments(t *testing.T) {
	store := &fakeStore{docs: someDocs()}
	o := New(&fakeEmbedder{vec: []float32{1}}, store, &fakeLLM{}, testLogger(), testOptions())

	docs, err := o.RetrieveOnly(context.Background(), "what is patience", []string{"talk"})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "a quote", docs[0].Text)
	assert.Equal(t, []string{"talk"}, store.namespaces)
}
