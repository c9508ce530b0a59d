package retrieve

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// CachingSource keeps each chunk's raw provider text on disk so reruns over
// overlapping windows do not hit the provider again. At most maxFiles chunk
// files are kept; the least recently written go first.
type CachingSource struct {
	next     Source
	dir      string
	maxFiles int
	logger   *slog.Logger

	mu sync.Mutex // serializes writes and pruning
}

// NewCachingSource wraps next with a cache in dir. maxFiles <= 0 uses 64.
func NewCachingSource(next Source, dir string, maxFiles int, logger *slog.Logger) *CachingSource {
	if maxFiles <= 0 {
		maxFiles = 64
	}
	return &CachingSource{
		next:     next,
		dir:      dir,
		maxFiles: maxFiles,
		logger:   logger,
	}
}

// Fetch serves q from disk when present, otherwise from the wrapped source.
// A cache write failure is logged and does not fail the fetch.
func (c *CachingSource) Fetch(ctx context.Context, q Query) ([]byte, error) {
	path := filepath.Join(c.dir, q.CacheKey())

	data, err := os.ReadFile(path)
	if err == nil {
		c.logger.Debug("chunk cache hit", "component", "retrieve", "query", q.String(), "path", path)
		return data, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		c.logger.Warn("chunk cache read failed", "component", "retrieve", "path", path, "error", err)
	}

	data, err = c.next.Fetch(ctx, q)
	if err != nil {
		return nil, err
	}

	if err := c.write(path, data); err != nil {
		c.logger.Warn("chunk cache write failed", "component", "retrieve", "path", path, "error", err)
	}
	return data, nil
}

func (c *CachingSource) write(path string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing cache file: %w", err)
	}
	return c.prune()
}

type cacheFile struct {
	name    string
	modTime time.Time
}

func (c *CachingSource) listFiles() ([]cacheFile, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing cache dir: %w", err)
	}

	var files []cacheFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasPrefix(name, "3le_") || !strings.HasSuffix(name, ".txt") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, cacheFile{name: name, modTime: info.ModTime()})
	}

	sort.Slice(files, func(i, j int) bool {
		if files[i].modTime.Equal(files[j].modTime) {
			return files[i].name < files[j].name
		}
		return files[i].modTime.Before(files[j].modTime)
	})
	return files, nil
}

func (c *CachingSource) prune() error {
	files, err := c.listFiles()
	if err != nil {
		return err
	}
	if len(files) <= c.maxFiles {
		return nil
	}

	for _, f := range files[:len(files)-c.maxFiles] {
		if err := os.Remove(filepath.Join(c.dir, f.name)); err != nil {
			return fmt.Errorf("pruning cache file %s: %w", f.name, err)
		}
	}
	return nil
}
