package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/textsplitter"

	"github/itish2003/ragchat/logger"
	"github/itish2003/ragchat/models"
	"github/itish2003/ragchat/storage"
)

// Split preference: paragraph, line, word, character.
var chunkSeparators = []string{"\n\n", "\n", " ", ""}

// IngestService chunks, embeds and stores documents.
type IngestService struct {
	store    storage.DocumentStore
	embedder Embedder
	splitter textsplitter.TextSplitter
	log      logger.ILogger
}

func NewIngestService(store storage.DocumentStore, embedder Embedder, chunkSize, chunkOverlap int, log logger.ILogger) *IngestService {
	return &IngestService{
		store:    store,
		embedder: embedder,
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(chunkSize),
			textsplitter.WithChunkOverlap(chunkOverlap),
			textsplitter.WithSeparators(chunkSeparators),
		),
		log: log,
	}
}

// IngestDocument splits text into chunks, embeds them in one batch and stores
// them under docID. An empty docID gets a random one. Returns the number of
// chunks stored.
func (s *IngestService) IngestDocument(ctx context.Context, text, docID, filename string) (int, error) {
	if docID == "" {
		docID = uuid.New().String()
	}

	pieces, err := s.splitter.SplitText(text)
	if err != nil {
		return 0, fmt.Errorf("failed to split %s: %w", docID, err)
	}
	texts := pieces[:0]
	for _, p := range pieces {
		if strings.TrimSpace(p) != "" {
			texts = append(texts, p)
		}
	}
	if len(texts) == 0 {
		s.log.Warn("INGEST", "Document has no text, nothing stored", map[string]interface{}{"doc_id": docID})
		return 0, nil
	}

	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("could not embed chunks of %s: %w", docID, err)
	}
	if len(vectors) != len(texts) {
		return 0, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(texts))
	}

	chunks := make([]models.DocumentChunk, len(texts))
	for i, t := range texts {
		chunks[i] = models.DocumentChunk{
			DocID:      docID,
			Filename:   filename,
			Text:       t,
			Embedding:  vectors[i],
			ChunkIndex: i,
		}
	}
	if err := s.store.InsertChunks(ctx, chunks); err != nil {
		return 0, err
	}

	s.log.Info("INGEST", "Document indexed", map[string]interface{}{
		"doc_id":   docID,
		"filename": filename,
		"chunks":   len(chunks),
	})
	return len(chunks), nil
}

// IngestFile extracts the text of an uploaded file and ingests it with the
// filename as doc id, replacing any chunks of an earlier upload.
func (s *IngestService) IngestFile(ctx context.Context, filename string, data []byte) (int, error) {
	text, err := ExtractText(filename, data)
	if err != nil {
		return 0, err
	}
	if err := s.store.DeleteDocument(ctx, filename); err != nil {
		return 0, fmt.Errorf("failed to replace %s: %w", filename, err)
	}
	return s.IngestDocument(ctx, text, filename, filename)
}

func (s *IngestService) DeleteDocument(ctx context.Context, docID string) error {
	return s.store.DeleteDocument(ctx, docID)
}

func (s *IngestService) CountChunks(ctx context.Context) (int, error) {
	return s.store.Count(ctx)
}
