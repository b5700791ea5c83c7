package cache

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	pdxerrors "github.com/plugdex/plugdex/pkg/errors"
)

// FileCache stores entries as files under a root directory, laid out as
// root/kind/owner/repo/id.json. Entries carry no metadata beyond the file
// itself; freshness is judged from modification time.
type FileCache struct {
	root string
}

// NewFileCache creates a file-based cache rooted at dir.
// The directory is created if it doesn't exist.
func NewFileCache(dir string) (*FileCache, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, err
	}
	return &FileCache{root: abs}, nil
}

// Root returns the absolute path of the cache root directory.
func (c *FileCache) Root() string { return c.root }

// Get retrieves a cached value. A maxAge of 0 means entries never expire.
func (c *FileCache) Get(ctx context.Context, kind, repo, id string, maxAge time.Duration) ([]byte, bool, error) {
	path, err := c.entryPath(kind, repo, id)
	if err != nil {
		return nil, false, err
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if maxAge > 0 && time.Since(info.ModTime()) > maxAge {
		return nil, false, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Set stores a value, creating intermediate directories as needed.
func (c *FileCache) Set(ctx context.Context, kind, repo, id string, data []byte) error {
	path, err := c.entryPath(kind, repo, id)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Close does nothing for the file cache.
func (c *FileCache) Close() error { return nil }

// entryPath validates the key and resolves it to a file path, verifying
// the result stays inside the cache root. A key that resolves outside the
// root is a contract violation and is rejected, never rewritten.
func (c *FileCache) entryPath(kind, repo, id string) (string, error) {
	if err := ValidateKey(kind, repo, id); err != nil {
		return "", err
	}
	owner, name, _ := strings.Cut(repo, "/")
	path := filepath.Join(c.root, kind, owner, name, id+".json")

	rel, err := filepath.Rel(c.root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", pdxerrors.Wrap(pdxerrors.ErrCodeInvalidPath, ErrInvalidKey,
			"key %s/%s/%s escapes cache root", kind, repo, id)
	}
	return path, nil
}

var _ Cache = (*FileCache)(nil)
