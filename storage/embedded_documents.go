package storage

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strconv"
	"sync"

	"github.com/philippgille/chromem-go"

	"github/itish2003/ragchat/models"
)

const (
	embeddedCollectionName = "document_chunks"
	embeddedIndexName      = "document_chunk_ids"
)

// indexEmbedding puts every index entry on the same point, so one query with
// nResults = Count lists them all.
var indexEmbedding = []float32{1}

// EmbeddedDocumentStore keeps chunks in process. Vector search runs on a
// chromem-go collection; keyword and substring search scan the chunk list,
// which is rebuilt from the collection when a persisted store is reopened.
type EmbeddedDocumentStore struct {
	mu         sync.RWMutex
	collection *chromem.Collection
	index      *chromem.Collection
	chunks     []models.DocumentChunk
	byID       map[string]int
}

// NewEmbeddedDocumentStore opens an in-memory store. When persistPath
// is set the chromem database is persisted there as gob files and any chunks
// already stored are loaded.
func NewEmbeddedDocumentStore(persistPath string) (*EmbeddedDocumentStore, error) {
	var db *chromem.DB
	if persistPath != "" {
		var err error
		db, err = chromem.NewPersistentDB(persistPath, false)
		if err != nil {
			return nil, fmt.Errorf("failed to open embedded vector db at %s: %w", persistPath, err)
		}
	} else {
		db = chromem.NewDB()
	}

	collection, err := db.GetOrCreateCollection(embeddedCollectionName, nil, precomputedEmbeddings)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create collection %q: %w", embeddedCollectionName, err)
	}
	index, err := db.GetOrCreateCollection(embeddedIndexName, nil, precomputedEmbeddings)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create collection %q: %w", embeddedIndexName, err)
	}

	s := &EmbeddedDocumentStore{
		collection: collection,
		index:      index,
		byID:       make(map[string]int),
	}
	if err := s.load(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

// precomputedEmbeddings is installed as the collections' embedding function.
// Chunks always arrive embedded, so chromem never needs to call it.
func precomputedEmbeddings(_ context.Context, _ string) ([]float32, error) {
	return nil, errors.New("embeddings must be computed before insertion")
}

func chunkID(docID string, index int) string {
	return docID + "#" + strconv.Itoa(index)
}

// load rebuilds the chunk list from the persisted collections.
func (s *EmbeddedDocumentStore) load(ctx context.Context) error {
	n := s.index.Count()
	if n == 0 {
		return nil
	}
	entries, err := s.index.QueryEmbedding(ctx, indexEmbedding, n, nil, nil)
	if err != nil {
		return fmt.Errorf("failed to list embedded chunks: %w", err)
	}

	chunks := make([]models.DocumentChunk, 0, len(entries))
	for _, e := range entries {
		doc, err := s.collection.GetByID(ctx, e.ID)
		if err != nil {
			// index entry without its chunk; the next delete of the doc cleans it up
			continue
		}
		idx, _ := strconv.Atoi(doc.Metadata["chunk_index"])
		chunks = append(chunks, models.DocumentChunk{
			DocID:      doc.Metadata["doc_id"],
			Filename:   doc.Metadata["filename"],
			Text:       doc.Content,
			Embedding:  doc.Embedding,
			ChunkIndex: idx,
		})
	}
	sort.Slice(chunks, func(i, j int) bool {
		if chunks[i].DocID != chunks[j].DocID {
			return chunks[i].DocID < chunks[j].DocID
		}
		return chunks[i].ChunkIndex < chunks[j].ChunkIndex
	})

	s.chunks = chunks
	s.reindex()
	return nil
}

func (s *EmbeddedDocumentStore) reindex() {
	s.byID = make(map[string]int, len(s.chunks))
	for i, c := range s.chunks {
		s.byID[chunkID(c.DocID, c.ChunkIndex)] = i
	}
}

func (s *EmbeddedDocumentStore) InsertChunks(ctx context.Context, chunks []models.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	docs := make([]chromem.Document, len(chunks))
	entries := make([]chromem.Document, len(chunks))
	for i, c := range chunks {
		if len(c.Embedding) == 0 {
			return fmt.Errorf("chunk %d of %s has no embedding", c.ChunkIndex, c.DocID)
		}
		id := chunkID(c.DocID, c.ChunkIndex)
		metadata := map[string]string{
			"doc_id":      c.DocID,
			"filename":    c.Filename,
			"chunk_index": strconv.Itoa(c.ChunkIndex),
		}
		docs[i] = chromem.Document{
			ID:        id,
			Content:   c.Text,
			Embedding: c.Embedding,
			Metadata:  metadata,
		}
		entries[i] = chromem.Document{
			ID:        id,
			Embedding: indexEmbedding,
			Metadata:  map[string]string{"doc_id": c.DocID},
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add chunks to embedded collection: %w", err)
	}
	if err := s.index.AddDocuments(ctx, entries, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add chunks to embedded index: %w", err)
	}
	for _, c := range chunks {
		id := chunkID(c.DocID, c.ChunkIndex)
		if pos, ok := s.byID[id]; ok {
			s.chunks[pos] = c
			continue
		}
		s.byID[id] = len(s.chunks)
		s.chunks = append(s.chunks, c)
	}
	return nil
}

func (s *EmbeddedDocumentStore) SearchByKeyword(_ context.Context, text string, limit int) ([]models.DocumentChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	texts := make([]string, len(s.chunks))
	for i, c := range s.chunks {
		texts[i] = c.Text
	}
	var out []models.DocumentChunk
	for _, idx := range rankByKeyword(text, texts, limit) {
		out = append(out, s.chunks[idx])
	}
	return out, nil
}

func (s *EmbeddedDocumentStore) SearchByVector(ctx context.Context, vector []float32, limit int) ([]models.DocumentChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := limit
	if count := s.collection.Count(); n > count {
		n = count
	}
	if n <= 0 {
		return nil, nil
	}

	results, err := s.collection.QueryEmbedding(ctx, vector, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("embedded vector query failed: %w", err)
	}

	out := make([]models.DocumentChunk, 0, len(results))
	for _, r := range results {
		idx, _ := strconv.Atoi(r.Metadata["chunk_index"])
		out = append(out, models.DocumentChunk{
			DocID:      r.Metadata["doc_id"],
			Filename:   r.Metadata["filename"],
			Text:       r.Content,
			ChunkIndex: idx,
		})
	}
	return out, nil
}

func (s *EmbeddedDocumentStore) SearchBySubstring(_ context.Context, text string, limit int) ([]models.DocumentChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.DocumentChunk
	for _, c := range s.chunks {
		if len(out) >= limit {
			break
		}
		if containsFold(c.Text, text) {
			out = append(out, c)
		}
	}
	return out, nil
}

// DeleteDocument drops every chunk of docID from the collections and the
// chunk list.
func (s *EmbeddedDocumentStore) DeleteDocument(ctx context.Context, docID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	where := map[string]string{"doc_id": docID}
	if err := s.collection.Delete(ctx, where, nil); err != nil {
		return fmt.Errorf("failed to delete chunks of %s: %w", docID, err)
	}
	if err := s.index.Delete(ctx, where, nil); err != nil {
		return fmt.Errorf("failed to delete index entries of %s: %w", docID, err)
	}

	kept := s.chunks[:0]
	for _, c := range s.chunks {
		if c.DocID != docID {
			kept = append(kept, c)
		}
	}
	s.chunks = kept
	s.reindex()
	return nil
}

func (s *EmbeddedDocumentStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks), nil
}
