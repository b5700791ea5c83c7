// Package cache provides content-addressable caching for immutable crawl
// data. Values are keyed by kind (tree, file, ...), repository, and a
// content identifier — for tree data the identifier is the default-branch
// commit SHA, which never changes for a given commit, so cached entries
// need pruning for hygiene but never invalidation.
//
// The cache is a pure accelerator: every call site must behave correctly
// with a [NullCache] or an empty directory. Backends are FileCache for
// local runs and RedisCache for shared deployments; MemoryCache layers an
// LRU front over either.
package cache

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	pdxerrors "github.com/plugdex/plugdex/pkg/errors"
)

// Cache kinds partition the key space. A kind maps to the first directory
// level of the file backend's layout.
const (
	KindTree   = "tree"
	KindFile   = "file"
	KindRepo   = "repo"
	KindSearch = "search"
)

// ErrInvalidKey is returned when a key component fails validation.
// Invalid keys are rejected outright, never rewritten into a safe form.
var ErrInvalidKey = errors.New("invalid cache key")

// Cache stores immutable blobs keyed by (kind, repo, id).
//
// Get returns (nil, false, nil) on a miss. A maxAge of 0 means entries
// never expire, which is the normal mode for commit-hash keys.
type Cache interface {
	Get(ctx context.Context, kind, repo, id string, maxAge time.Duration) ([]byte, bool, error)
	Set(ctx context.Context, kind, repo, id string, data []byte) error
	Close() error
}

// validComponent matches a single safe key component. Path separators,
// parent references, and empty strings all fail.
var validComponent = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,127}$`)

// forbiddenIdents are identifiers that collide with object-prototype
// internals in naive key-to-object mappings. The published artifacts are
// consumed by a JavaScript front end, so keys that could pollute a
// prototype chain are rejected at the source.
var forbiddenIdents = map[string]bool{
	"__proto__":   true,
	"constructor": true,
	"prototype":   true,
}

// ValidateComponent checks a single key component (kind, owner, repo name,
// or content id). It rejects empty values, values with path separators or
// leading dots (which covers ".." escapes), and forbidden identifiers.
func ValidateComponent(s string) error {
	if !validComponent.MatchString(s) {
		return pdxerrors.Wrap(pdxerrors.ErrCodeInvalidCacheKey, ErrInvalidKey, "component %q", s)
	}
	if forbiddenIdents[s] {
		return pdxerrors.Wrap(pdxerrors.ErrCodeInvalidCacheKey, ErrInvalidKey, "forbidden identifier %q", s)
	}
	return nil
}

// ValidateKey checks all components of a cache key. The repo is an
// "owner/name" pair; both halves are validated independently so a crafted
// name cannot introduce extra path levels.
func ValidateKey(kind, repo, id string) error {
	if err := ValidateComponent(kind); err != nil {
		return err
	}
	owner, name, ok := strings.Cut(repo, "/")
	if !ok {
		return pdxerrors.Wrap(pdxerrors.ErrCodeInvalidCacheKey, ErrInvalidKey, "repo %q is not owner/name", repo)
	}
	for _, part := range []string{owner, name, id} {
		if err := ValidateComponent(part); err != nil {
			return err
		}
	}
	return nil
}
