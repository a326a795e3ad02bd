// Package query drives one question through the pipeline:
// validate -> embed -> retrieve -> build prompt -> complete, under a single
// request deadline, with a degraded-success path when nothing relevant is
// found.
package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ragserver/internal/domain"
	"ragserver/internal/embedding"
	"ragserver/internal/llm"
	"ragserver/internal/prompt"
)

// NoAnswerMessage is the fixed degraded-success reply when no stored passage
// clears the similarity threshold.
const NoAnswerMessage = "I could not find any relevant passages to answer that. Could you rephrase the question, or ask about a different topic?"

// Store is the retrieval slice of the embedding store the orchestrator needs.
type Store interface {
	Retrieve(ctx context.Context, vec []float32, namespaces []string, k int, threshold float32, pool int) ([]domain.RetrievedDocument, error)
}

// Options are the per-pipeline tuning knobs, fixed at startup.
type Options struct {
	Deadline        time.Duration // whole pipeline, embedding through completion
	TopK            int
	ScoreThreshold  float32
	CandidatePool   int
	MaxPromptTokens int
	StreamPull      time.Duration // budget for each streamed fragment
}

// Orchestrator owns no state beyond its injected collaborators; one instance
// serves all requests concurrently.
type Orchestrator struct {
	embedder embedding.Generator
	store    Store
	llm      llm.Client
	logger   *slog.Logger
	opts     Options
}

func New(embedder embedding.Generator, store Store, client llm.Client, logger *slog.Logger, opts Options) *Orchestrator {
	return &Orchestrator{embedder: embedder, store: store, llm: client, logger: logger, opts: opts}
}

// Stream is the STREAM-mode result: provenance first, so a client can render
// "found N sources" before the first token, then the guarded fragment
// channel. Fragments ends by closing; a Fragment.Err is terminal.
type Stream struct {
	Metadatas []map[string]any
	Fragments <-chan llm.Fragment
}

// Answer runs the FULL-mode pipeline.
func (o *Orchestrator) Answer(ctx context.Context, q domain.ChatQuery) (*domain.ChatResponse, error) {
	question, err := validate(q)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, o.opts.Deadline)
	defer cancel()

	built, err := o.prepare(ctx, question, q.Namespaces)
	if err != nil {
		if errors.Is(err, domain.ErrNoDocumentFound) {
			// Degraded success, not a failure: the caller gets a fixed
			// clarification message and an empty source list.
			o.logger.Info("no documents above threshold", slog.String("question", question))
			return &domain.ChatResponse{Message: NoAnswerMessage, Metadatas: []map[string]any{}}, nil
		}
		return nil, err
	}

	completion, err := o.llm.Complete(ctx, built.prompt)
	if err != nil {
		return nil, o.classify(ctx, err)
	}
	return &domain.ChatResponse{Message: completion.Message, Metadatas: built.metadatas}, nil
}

// AnswerStream runs the STREAM-mode pipeline. The returned stream's
// fragments are each bounded by the per-pull budget; a stalled upstream
// surfaces as an ErrLLMTimeout fragment instead of hanging the consumer.
func (o *Orchestrator) AnswerStream(ctx context.Context, q domain.ChatQuery) (*Stream, error) {
	question, err := validate(q)
	if err != nil {
		return nil, err
	}

	// No cancel here: the pipeline context must outlive this call, it ends
	// with the stream. The deadline still bounds the whole exchange.
	ctx, cancel := context.WithTimeout(ctx, o.opts.Deadline)

	built, err := o.prepare(ctx, question, q.Namespaces)
	if err != nil {
		cancel()
		if errors.Is(err, domain.ErrNoDocumentFound) {
			return &Stream{Metadatas: []map[string]any{}, Fragments: singleFragment(NoAnswerMessage)}, nil
		}
		return nil, err
	}

	fragments, err := o.llm.CompleteStream(ctx, built.prompt)
	if err != nil {
		cancel()
		return nil, o.classify(ctx, err)
	}
	return &Stream{
		Metadatas: built.metadatas,
		Fragments: o.guard(ctx, cancel, fragments),
	}, nil
}

// RetrieveOnly answers "which passages would back this question" without a
// completion. Used by the chunks endpoint for corpus inspection and rating.
func (o *Orchestrator) RetrieveOnly(ctx context.Context, question string, namespaces []string) ([]domain.RetrievedDocument, error) {
	question, err := validate(domain.ChatQuery{Question: question, Namespaces: namespaces})
	if err != nil {
		return nil, err
	}
	emb, err := o.embedder.Generate(ctx, question)
	if err != nil {
		return nil, o.classify(ctx, err)
	}
	docs, err := o.store.Retrieve(ctx, emb.Vector, namespaces, o.opts.TopK, o.opts.ScoreThreshold, o.opts.CandidatePool)
	if err != nil {
		return nil, o.classify(ctx, err)
	}
	return docs, nil
}

type builtPrompt struct {
	prompt    string
	metadatas []map[string]any
}

// prepare runs the embed -> retrieve -> build stages shared by both modes.
func (o *Orchestrator) prepare(ctx context.Context, question string, namespaces []string) (*builtPrompt, error) {
	start := time.Now()

	emb, err := o.embedder.Generate(ctx, question)
	if err != nil {
		return nil, o.classify(ctx, err)
	}

	docs, err := o.store.Retrieve(ctx, emb.Vector, namespaces, o.opts.TopK, o.opts.ScoreThreshold, o.opts.CandidatePool)
	if err != nil {
		if errors.Is(err, domain.ErrNoDocumentFound) {
			return nil, err
		}
		return nil, o.classify(ctx, err)
	}

	built, err := prompt.Build(question, docs, o.opts.MaxPromptTokens)
	if err != nil {
		return nil, o.classify(ctx, err)
	}

	o.logger.Info("prompt prepared",
		slog.Int("documents", len(docs)),
		slog.Duration("elapsed", time.Since(start)))
	return &builtPrompt{prompt: built, metadatas: metadatasOf(docs)}, nil
}

// validate is the entry gate: a question must be non-empty after trimming,
// and namespace entries must not be blank. The preprocessed question comes
// back for the embedding stage.
func validate(q domain.ChatQuery) (string, error) {
	question := strings.TrimSpace(q.Question)
	if question == "" {
		return "", fmt.Errorf("%w: question must not be empty", domain.ErrInputValidation)
	}
	for _, ns := range q.Namespaces {
		if strings.TrimSpace(ns) == "" {
			return "", fmt.Errorf("%w: name_spaces entries must not be blank", domain.ErrInputValidation)
		}
	}
	return Preprocess(question), nil
}

// classify turns a stage error into the caller-facing one. When the overall
// request deadline has expired, the stage's own error is subordinate: the
// caller sees a request timeout regardless of which stage lost the race.
func (o *Orchestrator) classify(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrRequestTimeout, err)
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return fmt.Errorf("%w: request cancelled: %v", domain.ErrRequestTimeout, err)
	}
	return err
}

// guard relays fragments while enforcing the per-pull budget, and releases
// the pipeline context when the stream ends for any reason.
func (o *Orchestrator) guard(ctx context.Context, cancel context.CancelFunc, in <-chan llm.Fragment) <-chan llm.Fragment {
	out := make(chan llm.Fragment)
	go func() {
		defer func() {
			cancel()
			close(out)
		}()
		for {
			select {
			case f, ok := <-in:
				if !ok {
					return
				}
				select {
				case out <- f:
				case <-ctx.Done():
					return
				}
				if f.Err != nil {
					return
				}
			case <-time.After(o.opts.StreamPull):
				select {
				case out <- llm.Fragment{Err: fmt.Errorf("%w: no fragment within %s", domain.ErrLLMTimeout, o.opts.StreamPull)}:
				case <-ctx.Done():
				}
				return
			case <-ctx.Done():
				if errors.Is(ctx.Err(), context.DeadlineExceeded) {
					select {
					case out <- llm.Fragment{Err: fmt.Errorf("%w: stream exceeded request deadline", domain.ErrRequestTimeout)}:
					default:
					}
				}
				return
			}
		}
	}()
	return out
}

// metadatasOf exposes each document's provenance plus its score, so clients
// can show how strongly a passage matched.
func metadatasOf(docs []domain.RetrievedDocument) []map[string]any {
	metadatas := make([]map[string]any, len(docs))
	for i, doc := range docs {
		m := make(map[string]any, len(doc.Metadata)+1)
		for k, v := range doc.Metadata {
			m[k] = v
		}
		m["score"] = doc.Score
		metadatas[i] = m
	}
	return metadatas
}

// singleFragment is the degraded stream: one message, then done.
func singleFragment(text string) <-chan llm.Fragment {
	ch := make(chan llm.Fragment, 1)
	ch <- llm.Fragment{Text: text}
	close(ch)
	return ch
}
