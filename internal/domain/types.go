// Package domain holds the value types shared by every pipeline stage.
// Everything here is request-scoped and immutable once created; the only
// long-lived state in the system is the vector store connection.
package domain

// Chunk is one word-bounded slice of a transcript, produced by the chunker
// and consumed by the embedding generator. Never mutated after creation.
type Chunk struct {
	Text      string `json:"text"`
	Size      int    `json:"chunk_size"` // word count
	TimeStart string `json:"time_start,omitempty"`
	TimeEnd   string `json:"time_end,omitempty"`
	Namespace string `json:"name_space"`
	SourceID  string `json:"source_id,omitempty"`
}

// Embedding pairs a text with its vector representation. Produced once per
// chunk; the vector length is fixed by the embedding backend configuration.
type Embedding struct {
	Text   string
	Vector []float32
}

// SourceMetadata identifies the provenance of ingested material. ID is the
// dedup key: a source whose ID already exists in the store is not re-inserted.
type SourceMetadata struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Slug      string `json:"slug"`
	OriginURL string `json:"transcript_url"`
	UpdatedAt string `json:"updated_at"`
}

// VectorRecord is the durable unit written to the store.
// Invariant: Dimension == len(Vector).
type VectorRecord struct {
	Vector    []float32
	Dimension int
	Chunk     Chunk
	Source    SourceMetadata
}

// RetrievedDocument is one similarity-search hit at or above the configured
// score threshold. Score is cosine similarity.
type RetrievedDocument struct {
	Text     string
	Metadata map[string]any
	Score    float32
}

// RequestMode selects between a single full answer and an incremental stream.
type RequestMode string

const (
	ModeFull   RequestMode = "FULL"
	ModeStream RequestMode = "STREAM"
)

// ChatQuery is an inbound question. Request-scoped, never persisted.
type ChatQuery struct {
	Question   string
	Mode       RequestMode
	Namespaces []string
}

// ChatResponse is the full-mode answer with the provenance of every document
// that backed it.
type ChatResponse struct {
	Message   string           `json:"message"`
	Metadatas []map[string]any `json:"metadatas"`
}
