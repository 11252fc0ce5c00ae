// Package storage holds the document-chunk index and the chat-memory log.
//
// Every backend implements the same narrow read/append contract. Structured
// search (keyword and vector) may fail when a backend lacks the feature; the
// retrieval adapter then falls back to substring matching.
package storage

import (
	"context"
	"errors"

	"github/itish2003/ragchat/models"
)

// ErrSearchUnavailable is returned by backends that cannot run a structured query.
var ErrSearchUnavailable = errors.New("structured search unavailable")

// DocumentStore indexes document chunks for keyword, vector and substring search.
type DocumentStore interface {
	InsertChunks(ctx context.Context, chunks []models.DocumentChunk) error
	SearchByKeyword(ctx context.Context, text string, limit int) ([]models.DocumentChunk, error)
	SearchByVector(ctx context.Context, vector []float32, limit int) ([]models.DocumentChunk, error)
	SearchBySubstring(ctx context.Context, text string, limit int) ([]models.DocumentChunk, error)
	DeleteDocument(ctx context.Context, docID string) error
	Count(ctx context.Context) (int, error)
}

// MemoryStore is the append-only log of completed exchanges.
type MemoryStore interface {
	AppendEntry(ctx context.Context, entry models.ChatMemoryEntry) error
	SearchByKeyword(ctx context.Context, text string, limit int) ([]models.ChatMemoryEntry, error)
	SearchBySubstring(ctx context.Context, text string, limit int) ([]models.ChatMemoryEntry, error)
	// RecentEntries returns up to limit entries, oldest first.
	RecentEntries(ctx context.Context, limit int) ([]models.ChatMemoryEntry, error)
}
