// Package chunker splits raw transcript material into word-bounded chunks.
// SRT input keeps subtitle timing on each chunk; TXT and PDF input produce
// untimed word windows.
package chunker

import (
	"fmt"
	"path/filepath"
	"strings"

	"ragserver/internal/domain"
)

// Format of the raw transcript material.
type Format string

const (
	FormatSRT Format = "srt"
	FormatTXT Format = "txt"
	FormatPDF Format = "pdf"

	// DefaultChunkSize is the word-count boundary of one chunk.
	DefaultChunkSize = 100
)

// FormatOf guesses the transcript format from a file name or URL path.
func FormatOf(name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".srt":
		return FormatSRT
	case ".pdf":
		return FormatPDF
	default:
		return FormatTXT
	}
}

// Chunker splits transcripts into word windows of roughly Size words.
type Chunker struct {
	Size int
}

func New(size int) *Chunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	return &Chunker{Size: size}
}

// Chunk splits raw transcript content. The chunk namespace is the file name
// without its extension.
func (c *Chunker) Chunk(filename string, raw []byte, format Format) ([]domain.Chunk, error) {
	namespace := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	switch format {
	case FormatSRT:
		return c.chunkSRT(namespace, string(raw))
	case FormatTXT:
		return c.chunkText(namespace, string(raw)), nil
	case FormatPDF:
		text, err := extractPDFText(raw)
		if err != nil {
			return nil, fmt.Errorf("pdf extraction: %w", err)
		}
		return c.chunkText(namespace, text), nil
	default:
		return nil, fmt.Errorf("unknown transcript format %q", format)
	}
}

// chunkSRT accumulates subtitle cues until the word window is full, keeping
// the first cue's start and the last cue's end as the chunk's time span.
func (c *Chunker) chunkSRT(namespace, text string) ([]domain.Chunk, error) {
	cues, err := parseSRT(text)
	if err != nil {
		return nil, err
	}

	var (
		chunks  []domain.Chunk
		current []cue
		words   int
	)
	for _, cu := range cues {
		current = append(current, cu)
		words += len(strings.Fields(cu.text))
		if words >= c.Size {
			chunks = append(chunks, buildTimedChunk(current, words, namespace))
			current = nil
			words = 0
		}
	}
	if len(current) > 0 {
		chunks = append(chunks, buildTimedChunk(current, words, namespace))
	}
	return chunks, nil
}

func buildTimedChunk(cues []cue, words int, namespace string) domain.Chunk {
	parts := make([]string, len(cues))
	for i, cu := range cues {
		parts[i] = strings.ReplaceAll(cu.text, "\n", " ")
	}
	return domain.Chunk{
		Text:      strings.Join(parts, " "),
		Size:      words,
		TimeStart: cues[0].start,
		TimeEnd:   cues[len(cues)-1].end,
		Namespace: namespace,
	}
}

// chunkText splits plain text into fixed word windows without timing.
func (c *Chunker) chunkText(namespace, text string) []domain.Chunk {
	words := strings.Fields(text)
	var chunks []domain.Chunk
	for i := 0; i < len(words); i += c.Size {
		end := i + c.Size
		if end > len(words) {
			end = len(words)
		}
		window := words[i:end]
		chunks = append(chunks, domain.Chunk{
			Text:      strings.Join(window, " "),
			Size:      len(window),
			Namespace: namespace,
		})
	}
	return chunks
}
