package storage

import (
	"context"
	"sync"

	"github/itish2003/ragchat/models"
)

// EmbeddedMemoryStore is an in-process append-only chat log.
type EmbeddedMemoryStore struct {
	mu      sync.RWMutex
	entries []models.ChatMemoryEntry
}

func NewEmbeddedMemoryStore() *EmbeddedMemoryStore {
	return &EmbeddedMemoryStore{}
}

func (s *EmbeddedMemoryStore) AppendEntry(_ context.Context, entry models.ChatMemoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *EmbeddedMemoryStore) SearchByKeyword(_ context.Context, text string, limit int) ([]models.ChatMemoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return keywordMatchEntries(s.entries, text, limit), nil
}

func (s *EmbeddedMemoryStore) SearchBySubstring(_ context.Context, text string, limit int) ([]models.ChatMemoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return substringMatchEntries(s.entries, text, limit), nil
}

func (s *EmbeddedMemoryStore) RecentEntries(_ context.Context, limit int) ([]models.ChatMemoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := len(s.entries) - limit
	if start < 0 {
		start = 0
	}
	out := make([]models.ChatMemoryEntry, len(s.entries)-start)
	copy(out, s.entries[start:])
	return out, nil
}

// keywordMatchEntries ranks entries by keyword overlap with their query and response text.
func keywordMatchEntries(entries []models.ChatMemoryEntry, text string, limit int) []models.ChatMemoryEntry {
	texts := make([]string, len(entries))
	for i, e := range entries {
		texts[i] = e.Query + " " + e.Response
	}
	var out []models.ChatMemoryEntry
	for _, idx := range rankByKeyword(text, texts, limit) {
		out = append(out, entries[idx])
	}
	return out
}

func substringMatchEntries(entries []models.ChatMemoryEntry, text string, limit int) []models.ChatMemoryEntry {
	var out []models.ChatMemoryEntry
	for _, e := range entries {
		if len(out) >= limit {
			break
		}
		if containsFold(e.Query, text) || containsFold(e.Response, text) {
			out = append(out, e)
		}
	}
	return out
}
