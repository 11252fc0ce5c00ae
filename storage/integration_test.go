package storage

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github/itish2003/ragchat/models"
)

func TestPostgresStores(t *testing.T) {
	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}
	ctx := context.Background()
	db, err := NewGormDB(dsn)
	require.NoError(t, err)

	docs := NewPostgresDocumentStore(db)
	docID := fmt.Sprintf("it-%d.txt", time.Now().UnixNano())
	chunks := testChunks()[:2]
	for i := range chunks {
		chunks[i].DocID = docID
	}
	require.NoError(t, docs.InsertChunks(ctx, chunks))
	t.Cleanup(func() { _ = docs.DeleteDocument(ctx, docID) })

	got, err := docs.SearchByKeyword(ctx, "revenue", 10)
	require.NoError(t, err)
	assert.NotEmpty(t, got)

	got, err = docs.SearchBySubstring(ctx, "HEADCOUNT stayed", 10)
	require.NoError(t, err)
	assert.NotEmpty(t, got)

	memory := NewPostgresMemoryStore(db)
	require.NoError(t, memory.AppendEntry(ctx, models.ChatMemoryEntry{
		UserID: "it", Timestamp: time.Now(), Query: "integration ping", Response: "pong",
	}))
	recent, err := memory.RecentEntries(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "integration ping", recent[0].Query)
}

func TestRedisMemoryStore(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("Skipping integration test: REDIS_URL not set")
	}
	ctx := context.Background()
	client, err := NewRedisClient(ctx, url)
	require.NoError(t, err)
	defer client.Close()

	key := fmt.Sprintf("ragchat:test:%d", time.Now().UnixNano())
	t.Cleanup(func() { client.Del(ctx, key) })
	store := NewRedisMemoryStore(client, key)

	for _, q := range []string{"first question", "second question"} {
		require.NoError(t, store.AppendEntry(ctx, models.ChatMemoryEntry{Timestamp: time.Now(), Query: q, Response: "ok"}))
	}
	recent, err := store.RecentEntries(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "second question", recent[0].Query)

	hits, err := store.SearchByKeyword(ctx, "first", 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
}

func TestChromaDocumentStore(t *testing.T) {
	url := os.Getenv("CHROMA_URL")
	if url == "" {
		t.Skip("Skipping integration test: CHROMA_URL not set")
	}
	ctx := context.Background()
	store, client, err := NewChromaDocumentStore(ctx, url, fmt.Sprintf("ragchat_test_%d", time.Now().UnixNano()))
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, store.InsertChunks(ctx, testChunks()))
	got, err := store.SearchByVector(ctx, []float32{1, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Q3 revenue rose 12%", got[0].Text)

	require.NoError(t, store.DeleteDocument(ctx, "notes.txt"))
	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
