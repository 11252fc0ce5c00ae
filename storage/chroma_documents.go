package storage

import (
	"context"
	"encoding/json"
	"fmt"

	chromago "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings"

	"github/itish2003/ragchat/models"
)

// ChromaDocumentStore keeps chunks in a remote ChromaDB collection.
// Chroma only answers nearest-neighbour queries, so keyword and substring
// search are evaluated client-side over the collection contents.
type ChromaDocumentStore struct {
	collection chromago.Collection
}

// NewChromaDocumentStore connects to ChromaDB and gets or creates the collection.
func NewChromaDocumentStore(ctx context.Context, baseURL, collectionName string) (*ChromaDocumentStore, chromago.Client, error) {
	client, err := chromago.NewHTTPClient(chromago.WithBaseURL(baseURL))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create chroma client: %w", err)
	}

	collection, err := client.GetOrCreateCollection(
		ctx,
		collectionName,
		chromago.WithCollectionMetadataCreate(
			chromago.NewMetadata(
				chromago.NewStringAttribute("description", "ragchat document chunks"),
				chromago.NewStringAttribute("created_by", "ragchat"),
			),
		),
	)
	if err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to get or create collection %q: %w", collectionName, err)
	}
	return &ChromaDocumentStore{collection: collection}, client, nil
}

func (s *ChromaDocumentStore) InsertChunks(ctx context.Context, chunks []models.DocumentChunk) error {
	for _, c := range chunks {
		metadata := chromago.NewDocumentMetadata(
			chromago.NewStringAttribute("doc_id", c.DocID),
			chromago.NewStringAttribute("filename", c.Filename),
			chromago.NewIntAttribute("chunk_index", int64(c.ChunkIndex)),
		)
		err := s.collection.Upsert(ctx,
			chromago.WithIDs(chromago.DocumentID(chunkID(c.DocID, c.ChunkIndex))),
			chromago.WithTexts(c.Text),
			chromago.WithEmbeddings(embeddings.NewEmbeddingFromFloat32(c.Embedding)),
			chromago.WithMetadatas(metadata),
		)
		if err != nil {
			return fmt.Errorf("failed to upsert chunk %d of %s to chromadb: %w", c.ChunkIndex, c.DocID, err)
		}
	}
	return nil
}

func (s *ChromaDocumentStore) SearchByVector(ctx context.Context, vector []float32, limit int) ([]models.DocumentChunk, error) {
	if limit <= 0 {
		return nil, nil
	}
	results, err := s.collection.Query(
		ctx,
		chromago.WithQueryEmbeddings(embeddings.NewEmbeddingFromFloat32(vector)),
		chromago.WithNResults(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query chromadb: %w", err)
	}

	var out []models.DocumentChunk
	documentGroups := results.GetDocumentsGroups()
	metadataGroups := results.GetMetadatasGroups()
	if len(documentGroups) == 0 {
		return out, nil
	}
	for i, doc := range documentGroups[0] {
		if doc.ContentString() == "" {
			continue
		}
		var meta any
		if len(metadataGroups) > 0 && i < len(metadataGroups[0]) {
			meta = metadataGroups[0][i]
		}
		out = append(out, chunkFromChroma(doc.ContentString(), meta))
	}
	return out, nil
}

func (s *ChromaDocumentStore) SearchByKeyword(ctx context.Context, text string, limit int) ([]models.DocumentChunk, error) {
	all, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	texts := make([]string, len(all))
	for i, c := range all {
		texts[i] = c.Text
	}
	var out []models.DocumentChunk
	for _, idx := range rankByKeyword(text, texts, limit) {
		out = append(out, all[idx])
	}
	return out, nil
}

func (s *ChromaDocumentStore) SearchBySubstring(ctx context.Context, text string, limit int) ([]models.DocumentChunk, error) {
	all, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	var out []models.DocumentChunk
	for _, c := range all {
		if len(out) >= limit {
			break
		}
		if containsFold(c.Text, text) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *ChromaDocumentStore) DeleteDocument(ctx context.Context, docID string) error {
	where := chromago.EqString("doc_id", docID)
	if err := s.collection.Delete(ctx, chromago.WithWhereDelete(where)); err != nil {
		return fmt.Errorf("failed to delete chunks of %s from chromadb: %w", docID, err)
	}
	return nil
}

func (s *ChromaDocumentStore) Count(ctx context.Context) (int, error) {
	count, err := s.collection.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count items in collection: %w", err)
	}
	return int(count), nil
}

func (s *ChromaDocumentStore) all(ctx context.Context) ([]models.DocumentChunk, error) {
	results, err := s.collection.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get documents from chromadb: %w", err)
	}
	documents := results.GetDocuments()
	metadatas := results.GetMetadatas()

	out := make([]models.DocumentChunk, 0, len(documents))
	for i := range documents {
		var meta any
		if i < len(metadatas) {
			meta = metadatas[i]
		}
		out = append(out, chunkFromChroma(documents[i].ContentString(), meta))
	}
	return out, nil
}

// chunkFromChroma rebuilds a chunk from stored text and metadata. Chroma
// metadata has no public accessor for all values, so it round-trips through JSON.
func chunkFromChroma(text string, metadata any) models.DocumentChunk {
	chunk := models.DocumentChunk{Text: text}
	if metadata == nil {
		return chunk
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return chunk
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return chunk
	}
	if v, ok := m["doc_id"].(string); ok {
		chunk.DocID = v
	}
	if v, ok := m["filename"].(string); ok {
		chunk.Filename = v
	}
	if v, ok := m["chunk_index"].(float64); ok {
		chunk.ChunkIndex = int(v)
	}
	return chunk
}
