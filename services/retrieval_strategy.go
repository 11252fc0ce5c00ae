package services

import (
	"context"

	"github/itish2003/ragchat/models"
	"github/itish2003/ragchat/storage"
)

// Strategy names, also used as metric labels.
const (
	StrategyStructured = "structured"
	StrategySubstring  = "substring"
	StrategyNone       = "none"
)

// RetrievalStrategy is one tier of the retrieval adapter. Tiers are tried in
// order; the first that returns without error produces the result.
type RetrievalStrategy interface {
	Name() string
	// Degraded reports whether results from this tier bypass structured search.
	Degraded() bool
	Retrieve(ctx context.Context, query string, vector []float32, topK int) (*models.RetrievalResult, error)
}

// StructuredStrategy merges keyword and vector hits over chunks with keyword
// hits over chat memory.
type StructuredStrategy struct {
	docs   storage.DocumentStore
	memory storage.MemoryStore
}

func NewStructuredStrategy(docs storage.DocumentStore, memory storage.MemoryStore) *StructuredStrategy {
	return &StructuredStrategy{docs: docs, memory: memory}
}

func (s *StructuredStrategy) Name() string  { return StrategyStructured }
func (s *StructuredStrategy) Degraded() bool { return false }

func (s *StructuredStrategy) Retrieve(ctx context.Context, query string, vector []float32, topK int) (*models.RetrievalResult, error) {
	keywordHits, err := s.docs.SearchByKeyword(ctx, query, topK)
	if err != nil {
		return nil, err
	}
	vectorHits, err := s.docs.SearchByVector(ctx, vector, topK)
	if err != nil {
		return nil, err
	}
	memoryHits, err := s.memory.SearchByKeyword(ctx, query, topK)
	if err != nil {
		return nil, err
	}

	return &models.RetrievalResult{
		Documents: uniqueChunkTexts(topK, keywordHits, vectorHits),
		Memory:    formatEntries(memoryHits, topK),
	}, nil
}

// SubstringStrategy is the fallback tier: case-insensitive substring matching
// with no vector similarity. When memory substring search also fails it
// returns the most recent exchanges instead.
type SubstringStrategy struct {
	docs        storage.DocumentStore
	memory      storage.MemoryStore
	recentLimit int
}

func NewSubstringStrategy(docs storage.DocumentStore, memory storage.MemoryStore, recentLimit int) *SubstringStrategy {
	return &SubstringStrategy{docs: docs, memory: memory, recentLimit: recentLimit}
}

func (s *SubstringStrategy) Name() string  { return StrategySubstring }
func (s *SubstringStrategy) Degraded() bool { return true }

func (s *SubstringStrategy) Retrieve(ctx context.Context, query string, _ []float32, topK int) (*models.RetrievalResult, error) {
	docHits, err := s.docs.SearchBySubstring(ctx, query, topK)
	if err != nil {
		return nil, err
	}

	memoryHits, err := s.memory.SearchBySubstring(ctx, query, topK)
	if err != nil {
		recent, recentErr := s.memory.RecentEntries(ctx, s.recentLimit)
		if recentErr != nil {
			return nil, err
		}
		// keep the newest topK, still oldest first
		if len(recent) > topK {
			recent = recent[len(recent)-topK:]
		}
		memoryHits = recent
	}

	return &models.RetrievalResult{
		Documents: uniqueChunkTexts(topK, docHits),
		Memory:    formatEntries(memoryHits, topK),
	}, nil
}

// uniqueChunkTexts concatenates hit lists in order, keeping the first
// occurrence of each byte-identical text, up to limit entries.
func uniqueChunkTexts(limit int, lists ...[]models.DocumentChunk) []string {
	out := []string{}
	seen := make(map[string]struct{})
	for _, list := range lists {
		for _, c := range list {
			if len(out) >= limit {
				return out
			}
			if _, dup := seen[c.Text]; dup {
				continue
			}
			seen[c.Text] = struct{}{}
			out = append(out, c.Text)
		}
	}
	return out
}

func formatEntries(entries []models.ChatMemoryEntry, limit int) []string {
	out := []string{}
	seen := make(map[string]struct{})
	for _, e := range entries {
		if len(out) >= limit {
			break
		}
		s := e.Format()
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
