package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// FileSource reads a document from the local filesystem. Intended for
// development setups where the upstream documents are synced to disk.
type FileSource struct {
	name string
	path string
}

// NewFileSource creates a FileSource for the given path.
func NewFileSource(name, path string) *FileSource {
	return &FileSource{name: name, path: path}
}

// Name implements Source.
func (s *FileSource) Name() string { return s.name }

// Fetch implements Source.
func (s *FileSource) Fetch(ctx context.Context) ([]byte, error) {
	body, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("source: %s: read %s: %w", s.name, s.path, err)
	}
	return body, nil
}

// Watch invalidates the source's cache entry whenever the file changes, so
// edits show up on the next poll instead of after the TTL expires. It blocks
// until ctx is cancelled. The parent directory is watched because editors
// typically replace the file rather than write it in place.
func (s *FileSource) Watch(ctx context.Context, cache *Cache) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("source: %s: watcher: %w", s.name, err)
	}
	defer watcher.Close()

	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("source: %s: watch %s: %w", s.name, dir, err)
	}

	target := filepath.Clean(s.path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				cache.Invalidate(s.name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("source: %s: watch: %w", s.name, err)
		}
	}
}
