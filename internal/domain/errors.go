package domain

import (
	"errors"
	"net/http"
)

// The failure taxonomy of the pipeline. Components wrap one of these
// sentinels with fmt.Errorf("...: %w", ...); the handler layer translates
// them into a {code, message} body via CodeOf. Nothing in between swallows
// or retries.
var (
	// ErrInputValidation indicates a malformed client request.
	ErrInputValidation = errors.New("input validation failed")

	// ErrEmbeddingConfig indicates an unknown embedding backend. This is a
	// programming/config error: construction fails, nothing is retried.
	ErrEmbeddingConfig = errors.New("unsupported embedding configuration")

	// ErrEmbeddingBackend indicates the embedding backend could not be
	// reached or rejected the call.
	ErrEmbeddingBackend = errors.New("embedding backend error")

	// ErrEmbeddingTimeout indicates the embedding call exceeded its budget.
	ErrEmbeddingTimeout = errors.New("embedding request timed out")

	// ErrRetrieval indicates the vector search failed.
	ErrRetrieval = errors.New("vector retrieval failed")

	// ErrRetrievalTimeout indicates the vector search exceeded its budget.
	ErrRetrievalTimeout = errors.New("vector retrieval timed out")

	// ErrInsert indicates a store write failure.
	ErrInsert = errors.New("vector insert failed")

	// ErrNoDocumentFound is the recognised empty-result outcome: nothing
	// survived the score threshold. Not a fault. The orchestrator converts
	// it to a degraded success, it never propagates to the caller.
	ErrNoDocumentFound = errors.New("no documents above threshold")

	// ErrPromptGeneration indicates prompt construction failed for a reason
	// other than the token budget (budget truncation is silent).
	ErrPromptGeneration = errors.New("prompt generation failed")

	// ErrLLM is the completion-stage catch-all.
	ErrLLM = errors.New("llm error")

	// ErrLLMConnection covers auth, rate-limit and connection faults of the
	// LLM backend.
	ErrLLMConnection = errors.New("llm connection error")

	// ErrLLMTimeout indicates a stalled completion or stream fragment.
	ErrLLMTimeout = errors.New("llm request timed out")

	// ErrSourceFetch indicates the remote transcript was unreachable or empty.
	ErrSourceFetch = errors.New("transcript fetch failed")

	// ErrRequestTimeout indicates the end-to-end pipeline deadline expired.
	ErrRequestTimeout = errors.New("request deadline exceeded")
)

// CodeOf maps a pipeline error to its wire code and HTTP status. Unclassified
// errors come back as internal_error so backend internals never leak.
func CodeOf(err error) (code string, status int) {
	switch {
	case errors.Is(err, ErrInputValidation):
		return "input_error", http.StatusBadRequest
	case errors.Is(err, ErrRequestTimeout):
		return "request_timeout", http.StatusRequestTimeout
	case errors.Is(err, ErrEmbeddingConfig):
		return "embedding_config_error", http.StatusInternalServerError
	case errors.Is(err, ErrEmbeddingTimeout):
		return "embedding_timeout", http.StatusInternalServerError
	case errors.Is(err, ErrEmbeddingBackend):
		return "embedding_error", http.StatusInternalServerError
	case errors.Is(err, ErrRetrievalTimeout):
		return "retrieval_timeout", http.StatusInternalServerError
	case errors.Is(err, ErrRetrieval):
		return "retrieval_error", http.StatusInternalServerError
	case errors.Is(err, ErrInsert):
		return "insert_error", http.StatusInternalServerError
	case errors.Is(err, ErrPromptGeneration):
		return "prompt_error", http.StatusInternalServerError
	case errors.Is(err, ErrLLMTimeout):
		return "llm_timeout", http.StatusInternalServerError
	case errors.Is(err, ErrLLMConnection):
		return "llm_connection_error", http.StatusInternalServerError
	case errors.Is(err, ErrLLM):
		return "llm_error", http.StatusInternalServerError
	case errors.Is(err, ErrSourceFetch):
		return "source_fetch_error", http.StatusBadGateway
	default:
		return "internal_error", http.StatusInternalServerError
	}
}
