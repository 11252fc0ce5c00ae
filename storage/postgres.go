package storage

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/pgvector/pgvector-go"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github/itish2003/ragchat/models"
)

// DocumentChunkRecord is the Postgres row for one embedded chunk.
type DocumentChunkRecord struct {
	ID         uint            `gorm:"primaryKey"`
	DocID      string          `gorm:"type:text;not null;uniqueIndex:idx_doc_chunk"`
	ChunkIndex int             `gorm:"not null;uniqueIndex:idx_doc_chunk"`
	Filename   string          `gorm:"type:text"`
	Chunk      string          `gorm:"type:text;not null"`
	Embedding  pgvector.Vector `gorm:"type:vector"`
	CreatedAt  time.Time       `gorm:"autoCreateTime"`
}

func (DocumentChunkRecord) TableName() string {
	return "document_chunks"
}

// ChatMemoryRecord is the Postgres row for one completed exchange.
type ChatMemoryRecord struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    string    `gorm:"type:text;index"`
	Timestamp time.Time `gorm:"not null;index"`
	UserQuery string    `gorm:"type:text;not null"`
	Response  string    `gorm:"column:response_text;type:text;not null"`
}

func (ChatMemoryRecord) TableName() string {
	return "chat_history"
}

func gormLogger() gormlogger.Interface {
	return gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			ParameterizedQueries:      true,
			Colorful:                  false,
		},
	)
}

// NewGormDB opens a pooled Postgres connection and migrates the ragchat tables.
func NewGormDB(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS vector;`).Error; err != nil {
		return nil, fmt.Errorf("failed to enable pgvector: %w", err)
	}
	if err := db.AutoMigrate(&DocumentChunkRecord{}, &ChatMemoryRecord{}); err != nil {
		return nil, fmt.Errorf("auto-migrate failed: %w", err)
	}
	return db, nil
}

// tsQuery joins the meaningful query terms with OR so any overlap matches.
func tsQuery(text string) string {
	return strings.Join(tokenize(text), " | ")
}

func likePattern(text string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(text) + "%"
}

// PostgresDocumentStore indexes chunks in Postgres with pgvector and full-text search.
type PostgresDocumentStore struct {
	db *gorm.DB
}

func NewPostgresDocumentStore(db *gorm.DB) *PostgresDocumentStore {
	return &PostgresDocumentStore{db: db}
}

func (s *PostgresDocumentStore) InsertChunks(ctx context.Context, chunks []models.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	records := make([]DocumentChunkRecord, len(chunks))
	for i, c := range chunks {
		records[i] = DocumentChunkRecord{
			DocID:      c.DocID,
			ChunkIndex: c.ChunkIndex,
			Filename:   c.Filename,
			Chunk:      c.Text,
			Embedding:  pgvector.NewVector(c.Embedding),
		}
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "doc_id"}, {Name: "chunk_index"}},
			DoUpdates: clause.AssignmentColumns([]string{"filename", "chunk", "embedding"}),
		}).
		CreateInBatches(records, 100).Error
	if err != nil {
		return fmt.Errorf("failed to insert chunks: %w", err)
	}
	return nil
}

func (s *PostgresDocumentStore) SearchByKeyword(ctx context.Context, text string, limit int) ([]models.DocumentChunk, error) {
	q := tsQuery(text)
	if q == "" || limit <= 0 {
		return nil, nil
	}
	var records []DocumentChunkRecord
	err := s.db.WithContext(ctx).
		Where("to_tsvector('english', chunk) @@ to_tsquery('english', ?)", q).
		Order(clause.Expr{SQL: "ts_rank(to_tsvector('english', chunk), to_tsquery('english', ?)) DESC", Vars: []interface{}{q}}).
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("%w: keyword query failed: %v", ErrSearchUnavailable, err)
	}
	return chunksFromRecords(records), nil
}

func (s *PostgresDocumentStore) SearchByVector(ctx context.Context, vector []float32, limit int) ([]models.DocumentChunk, error) {
	if limit <= 0 {
		return nil, nil
	}
	var records []DocumentChunkRecord
	err := s.db.WithContext(ctx).
		Order(gorm.Expr("embedding <=> ?", pgvector.NewVector(vector))).
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("%w: vector query failed: %v", ErrSearchUnavailable, err)
	}
	return chunksFromRecords(records), nil
}

func (s *PostgresDocumentStore) SearchBySubstring(ctx context.Context, text string, limit int) ([]models.DocumentChunk, error) {
	var records []DocumentChunkRecord
	err := s.db.WithContext(ctx).
		Where("chunk ILIKE ?", likePattern(text)).
		Order("id").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("substring query failed: %w", err)
	}
	return chunksFromRecords(records), nil
}

func (s *PostgresDocumentStore) DeleteDocument(ctx context.Context, docID string) error {
	err := s.db.WithContext(ctx).
		Where("doc_id = ?", docID).
		Delete(&DocumentChunkRecord{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete chunks of %s: %w", docID, err)
	}
	return nil
}

func (s *PostgresDocumentStore) Count(ctx context.Context) (int, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&DocumentChunkRecord{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

func chunksFromRecords(records []DocumentChunkRecord) []models.DocumentChunk {
	out := make([]models.DocumentChunk, len(records))
	for i, r := range records {
		out[i] = models.DocumentChunk{
			DocID:      r.DocID,
			Filename:   r.Filename,
			Text:       r.Chunk,
			ChunkIndex: r.ChunkIndex,
		}
	}
	return out
}

// PostgresMemoryStore keeps the chat log in the chat_history table.
type PostgresMemoryStore struct {
	db *gorm.DB
}

func NewPostgresMemoryStore(db *gorm.DB) *PostgresMemoryStore {
	return &PostgresMemoryStore{db: db}
}

func (s *PostgresMemoryStore) AppendEntry(ctx context.Context, entry models.ChatMemoryEntry) error {
	record := ChatMemoryRecord{
		UserID:    entry.UserID,
		Timestamp: entry.Timestamp,
		UserQuery: entry.Query,
		Response:  entry.Response,
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("failed to append chat entry: %w", err)
	}
	return nil
}

func (s *PostgresMemoryStore) SearchByKeyword(ctx context.Context, text string, limit int) ([]models.ChatMemoryEntry, error) {
	q := tsQuery(text)
	if q == "" || limit <= 0 {
		return nil, nil
	}
	const doc = "to_tsvector('english', user_query || ' ' || response_text)"
	var records []ChatMemoryRecord
	err := s.db.WithContext(ctx).
		Where(doc+" @@ to_tsquery('english', ?)", q).
		Order(clause.Expr{SQL: "ts_rank(" + doc + ", to_tsquery('english', ?)) DESC", Vars: []interface{}{q}}).
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("%w: keyword query failed: %v", ErrSearchUnavailable, err)
	}
	return entriesFromRecords(records), nil
}

func (s *PostgresMemoryStore) SearchBySubstring(ctx context.Context, text string, limit int) ([]models.ChatMemoryEntry, error) {
	pattern := likePattern(text)
	var records []ChatMemoryRecord
	err := s.db.WithContext(ctx).
		Where("user_query ILIKE ? OR response_text ILIKE ?", pattern, pattern).
		Order("timestamp").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("substring query failed: %w", err)
	}
	return entriesFromRecords(records), nil
}

func (s *PostgresMemoryStore) RecentEntries(ctx context.Context, limit int) ([]models.ChatMemoryEntry, error) {
	var records []ChatMemoryRecord
	err := s.db.WithContext(ctx).
		Order("timestamp DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("recent entries query failed: %w", err)
	}
	// newest-first from the query; callers expect chronological order
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	return entriesFromRecords(records), nil
}

func entriesFromRecords(records []ChatMemoryRecord) []models.ChatMemoryEntry {
	out := make([]models.ChatMemoryEntry, len(records))
	for i, r := range records {
		out[i] = models.ChatMemoryEntry{
			UserID:    r.UserID,
			Timestamp: r.Timestamp,
			Query:     r.UserQuery,
			Response:  r.Response,
		}
	}
	return out
}
