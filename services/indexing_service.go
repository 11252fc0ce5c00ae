package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github/itish2003/ragchat/logger"
)

// FileIndexingService keeps a watched directory in sync with the document store.
// Each file is indexed with its path as doc id.
type FileIndexingService struct {
	ingest *IngestService
	log    logger.ILogger

	mu     sync.Mutex
	hashes map[string]string
}

func NewFileIndexingService(ingest *IngestService, log logger.ILogger) *FileIndexingService {
	return &FileIndexingService{
		ingest: ingest,
		log:    log,
		hashes: make(map[string]string),
	}
}

// WatchDirectory blocks, re-indexing files on create/write and dropping them
// on remove/rename, until ctx is cancelled.
func (s *FileIndexingService) WatchDirectory(ctx context.Context, dirPath string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(dirPath); err != nil {
		return err
	}
	s.log.Info("WATCHER", "Watching directory", map[string]interface{}{"path": dirPath})

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !IsSupportedFile(event.Name) {
				continue
			}
			s.handleEvent(ctx, event)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.log.Error("WATCHER", "Watcher error", map[string]interface{}{"error": err.Error()})

		case <-ctx.Done():
			s.log.Info("WATCHER", "Context cancelled, shutting down watcher", nil)
			return nil
		}
	}
}

func (s *FileIndexingService) handleEvent(ctx context.Context, event fsnotify.Event) {
	switch {
	case event.Has(fsnotify.Write) || event.Has(fsnotify.Create):
		if err := s.IndexFile(ctx, event.Name); err != nil {
			s.log.Error("WATCHER", "Failed to index file", map[string]interface{}{
				"path":  event.Name,
				"error": err.Error(),
			})
		}
	case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
		s.log.Info("WATCHER", "File removed, dropping from index", map[string]interface{}{"path": event.Name})
		if err := s.RemoveFile(ctx, event.Name); err != nil {
			s.log.Error("WATCHER", "Failed to delete records", map[string]interface{}{
				"path":  event.Name,
				"error": err.Error(),
			})
		}
	}
}

// ScanAndIndexDirectory indexes every supported file under dirPath that is
// new or changed since the last scan, and drops files that disappeared.
func (s *FileIndexingService) ScanAndIndexDirectory(ctx context.Context, dirPath string) error {
	s.log.Info("INDEXER", "Starting directory scan", map[string]interface{}{"path": dirPath})

	seen := make(map[string]bool)
	err := filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !IsSupportedFile(path) {
			return nil
		}
		seen[path] = true
		if err := s.IndexFile(ctx, path); err != nil {
			s.log.Error("INDEXER", "Failed to index file", map[string]interface{}{
				"path":  path,
				"error": err.Error(),
			})
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, path := range s.indexedPaths() {
		if seen[path] {
			continue
		}
		if err := s.RemoveFile(ctx, path); err != nil {
			s.log.Error("INDEXER", "Failed to delete records", map[string]interface{}{
				"path":  path,
				"error": err.Error(),
			})
		}
	}
	s.log.Info("INDEXER", "Directory scan finished", map[string]interface{}{"files": len(seen)})
	return nil
}

// IndexFile replaces the indexed chunks of path when its content changed.
func (s *FileIndexingService) IndexFile(ctx context.Context, path string) error {
	hash, err := calculateFileHash(path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	unchanged := s.hashes[path] == hash
	s.mu.Unlock()
	if unchanged {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	text, err := ExtractText(path, data)
	if err != nil {
		return err
	}
	if err := s.ingest.DeleteDocument(ctx, path); err != nil {
		return err
	}
	if _, err := s.ingest.IngestDocument(ctx, text, path, filepath.Base(path)); err != nil {
		return err
	}

	s.mu.Lock()
	s.hashes[path] = hash
	s.mu.Unlock()
	return nil
}

func (s *FileIndexingService) RemoveFile(ctx context.Context, path string) error {
	if err := s.ingest.DeleteDocument(ctx, path); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.hashes, path)
	s.mu.Unlock()
	return nil
}

func (s *FileIndexingService) indexedPaths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	paths := make([]string, 0, len(s.hashes))
	for p := range s.hashes {
		paths = append(paths, p)
	}
	return paths
}

func calculateFileHash(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()
	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}
