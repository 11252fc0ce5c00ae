package services

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github/itish2003/ragchat/models"
	"github/itish2003/ragchat/storage"
)

var errBackendDown = errors.New("backend down")

type fakeEmbedder struct {
	err   error
	calls int
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []float32{float32(len(text)) + 1, 1}, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := f.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// fakeDocStore returns canned hits; each search kind can be made to fail.
type fakeDocStore struct {
	mu           sync.Mutex
	keyword      []models.DocumentChunk
	vector       []models.DocumentChunk
	substring    []models.DocumentChunk
	keywordErr   error
	vectorErr    error
	substringErr error
	inserted     []models.DocumentChunk
	deleted      []string
}

func (f *fakeDocStore) InsertChunks(_ context.Context, chunks []models.DocumentChunk) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserted = append(f.inserted, chunks...)
	return nil
}

func (f *fakeDocStore) SearchByKeyword(_ context.Context, _ string, limit int) ([]models.DocumentChunk, error) {
	return capChunks(f.keyword, limit), f.keywordErr
}

func (f *fakeDocStore) SearchByVector(_ context.Context, _ []float32, limit int) ([]models.DocumentChunk, error) {
	return capChunks(f.vector, limit), f.vectorErr
}

func (f *fakeDocStore) SearchBySubstring(_ context.Context, _ string, limit int) ([]models.DocumentChunk, error) {
	return capChunks(f.substring, limit), f.substringErr
}

func (f *fakeDocStore) DeleteDocument(_ context.Context, docID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, docID)
	return nil
}

func (f *fakeDocStore) Count(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.inserted), nil
}

func capChunks(in []models.DocumentChunk, limit int) []models.DocumentChunk {
	if len(in) > limit {
		return in[:limit]
	}
	return in
}

type fakeMemoryStore struct {
	mu           sync.Mutex
	entries      []models.ChatMemoryEntry
	keywordErr   error
	substringErr error
	recentErr    error
	appendErr    error
}

func (f *fakeMemoryStore) AppendEntry(_ context.Context, e models.ChatMemoryEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return f.appendErr
	}
	f.entries = append(f.entries, e)
	return nil
}

func (f *fakeMemoryStore) SearchByKeyword(_ context.Context, text string, limit int) ([]models.ChatMemoryEntry, error) {
	if f.keywordErr != nil {
		return nil, f.keywordErr
	}
	return f.match(text, limit), nil
}

func (f *fakeMemoryStore) SearchBySubstring(_ context.Context, text string, limit int) ([]models.ChatMemoryEntry, error) {
	if f.substringErr != nil {
		return nil, f.substringErr
	}
	return f.match(text, limit), nil
}

func (f *fakeMemoryStore) RecentEntries(_ context.Context, limit int) ([]models.ChatMemoryEntry, error) {
	if f.recentErr != nil {
		return nil, f.recentErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	start := len(f.entries) - limit
	if start < 0 {
		start = 0
	}
	return append([]models.ChatMemoryEntry(nil), f.entries[start:]...), nil
}

func (f *fakeMemoryStore) match(text string, limit int) []models.ChatMemoryEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ChatMemoryEntry
	for _, e := range f.entries {
		if len(out) >= limit {
			break
		}
		if strings.Contains(strings.ToLower(e.Query), strings.ToLower(text)) {
			out = append(out, e)
		}
	}
	return out
}

var (
	_ storage.DocumentStore = (*fakeDocStore)(nil)
	_ storage.MemoryStore   = (*fakeMemoryStore)(nil)
)

func chunks(texts ...string) []models.DocumentChunk {
	out := make([]models.DocumentChunk, len(texts))
	for i, t := range texts {
		out[i] = models.DocumentChunk{DocID: "doc", Text: t, ChunkIndex: i}
	}
	return out
}
