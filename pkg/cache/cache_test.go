package cache

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestCache(t *testing.T) *FileCache {
	t.Helper()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	return c
}

func TestFileCacheRoundTrip(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	value := []byte(`{"entries":[{"path":"README.md"}]}`)
	if err := c.Set(ctx, KindTree, "octo/widgets", "a1b2c3", value); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, ok, err := c.Get(ctx, KindTree, "octo/widgets", "a1b2c3", 0)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("expected cache hit")
	}
	if !bytes.Equal(got, value) {
		t.Errorf("Get = %q, want %q", got, value)
	}
}

func TestFileCacheMiss(t *testing.T) {
	c := newTestCache(t)
	_, ok, err := c.Get(context.Background(), KindTree, "octo/widgets", "missing", 0)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Error("expected miss for absent key")
	}
}

func TestFileCacheMaxAge(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, KindSearch, "octo/widgets", "page1", []byte("x")); err != nil {
		t.Fatal(err)
	}

	// Backdate the entry.
	path := filepath.Join(c.Root(), KindSearch, "octo", "widgets", "page1.json")
	old := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatal(err)
	}

	if _, ok, _ := c.Get(ctx, KindSearch, "octo/widgets", "page1", time.Hour); ok {
		t.Error("expected expired entry to miss")
	}
	if _, ok, _ := c.Get(ctx, KindSearch, "octo/widgets", "page1", 0); !ok {
		t.Error("maxAge 0 should never expire")
	}
}

func TestFileCacheRejectsTraversal(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	bad := []struct{ kind, repo, id string }{
		{KindTree, "octo/widgets", "../../etc/passwd"},
		{KindTree, "octo/widgets", ".."},
		{KindTree, "../octo/widgets", "abc"},
		{KindTree, "octo/../..", "abc"},
		{"../tree", "octo/widgets", "abc"},
		{KindTree, "octowidgets", "abc"}, // no owner/name split
		{KindTree, "octo/widgets", ""},
	}
	for _, tt := range bad {
		if err := c.Set(ctx, tt.kind, tt.repo, tt.id, []byte("x")); err == nil {
			t.Errorf("Set(%q,%q,%q) should reject", tt.kind, tt.repo, tt.id)
		}
		if _, _, err := c.Get(ctx, tt.kind, tt.repo, tt.id, 0); err == nil {
			t.Errorf("Get(%q,%q,%q) should reject", tt.kind, tt.repo, tt.id)
		}
	}
}

func TestValidateComponentForbiddenIdents(t *testing.T) {
	for _, ident := range []string{"__proto__", "constructor", "prototype"} {
		if err := ValidateComponent(ident); err == nil {
			t.Errorf("ValidateComponent(%q) should reject forbidden identifier", ident)
		}
	}
	if err := ValidateComponent("a1b2c3d4"); err != nil {
		t.Errorf("ValidateComponent(plain sha) = %v", err)
	}
}

func TestNullCacheAlwaysMisses(t *testing.T) {
	c := NewNullCache()
	ctx := context.Background()

	if err := c.Set(ctx, KindTree, "octo/widgets", "abc", []byte("x")); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := c.Get(ctx, KindTree, "octo/widgets", "abc", 0); ok {
		t.Error("null cache should never hit")
	}
}

func TestMemoryCacheFrontsBacking(t *testing.T) {
	file := newTestCache(t)
	c, err := NewMemoryCache(file, 8)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if err := c.Set(ctx, KindFile, "octo/widgets", "abc", []byte("hello")); err != nil {
		t.Fatal(err)
	}

	// Remove the on-disk entry; the LRU should still serve it.
	path := filepath.Join(file.Root(), KindFile, "octo", "widgets", "abc.json")
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}

	got, ok, err := c.Get(ctx, KindFile, "octo/widgets", "abc", 0)
	if err != nil || !ok {
		t.Fatalf("Get after backing delete: ok=%v err=%v", ok, err)
	}
	if string(got) != "hello" {
		t.Errorf("Get = %q", got)
	}
}

func TestMemoryCacheValidates(t *testing.T) {
	c, err := NewMemoryCache(NewNullCache(), 8)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := c.Get(context.Background(), KindTree, "octo/widgets", "__proto__", 0); err == nil {
		t.Error("memory cache should validate keys")
	}
}
