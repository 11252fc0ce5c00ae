package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github/itish2003/ragchat/logger"
)

func TestFileIndexingService_ScanAndIndexDirectory(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.md")
	require.NoError(t, os.WriteFile(a, []byte("alpha notes"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("# beta"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.bin"), []byte{0}, 0o644))

	store := &fakeDocStore{}
	svc := NewFileIndexingService(NewIngestService(store, &fakeEmbedder{}, 500, 50, logger.NewNop()), logger.NewNop())
	ctx := context.Background()

	require.NoError(t, svc.ScanAndIndexDirectory(ctx, dir))
	assert.Len(t, store.inserted, 2)

	// unchanged files are skipped on rescan
	require.NoError(t, svc.ScanAndIndexDirectory(ctx, dir))
	assert.Len(t, store.inserted, 2)

	require.NoError(t, os.Remove(b))
	require.NoError(t, svc.ScanAndIndexDirectory(ctx, dir))
	assert.Contains(t, store.deleted, b)
	assert.ElementsMatch(t, []string{a}, svc.indexedPaths())
}

func TestFileIndexingService_WatchDirectory(t *testing.T) {
	dir := t.TempDir()
	store := &fakeDocStore{}
	svc := NewFileIndexingService(NewIngestService(store, &fakeEmbedder{}, 500, 50, logger.NewNop()), logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.WatchDirectory(ctx, dir) }()

	// give the watcher time to register before writing
	time.Sleep(100 * time.Millisecond)
	path := filepath.Join(dir, "new.txt")
	require.NoError(t, os.WriteFile(path, []byte("fresh content"), 0o644))

	assert.Eventually(t, func() bool {
		n, _ := store.Count(context.Background())
		return n > 0
	}, 3*time.Second, 20*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}
