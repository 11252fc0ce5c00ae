package models

import (
	"fmt"
	"time"
)

// DocumentChunk is a bounded slice of an uploaded document stored with its embedding.
// ChunkIndex is unique within a DocID and only used for ordering and debugging.
type DocumentChunk struct {
	DocID      string    `json:"doc_id"`
	Filename   string    `json:"filename,omitempty"`
	Text       string    `json:"chunk"`
	Embedding  []float32 `json:"-"`
	ChunkIndex int       `json:"chunk_index"`
}

// ChatMemoryEntry is one completed exchange in the append-only chat memory log.
type ChatMemoryEntry struct {
	UserID    string    `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
	Query     string    `json:"user_query"`
	Response  string    `json:"response_text"`
}

// Format renders the entry the way the language model reads past exchanges.
func (e ChatMemoryEntry) Format() string {
	return fmt.Sprintf("User: %s\nBot: %s", e.Query, e.Response)
}

// RetrievalResult is produced fresh for every search and never persisted.
type RetrievalResult struct {
	Documents []string `json:"documents"`
	Memory    []string `json:"memory"`
	// Degraded is set when the result came from the substring fallback.
	Degraded bool `json:"degraded"`
	// Strategy names the retrieval strategy that produced the result.
	Strategy string `json:"strategy,omitempty"`
}

// EmptyRetrievalResult returns a well-formed result with no entries.
func EmptyRetrievalResult() *RetrievalResult {
	return &RetrievalResult{
		Documents: []string{},
		Memory:    []string{},
	}
}
