package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/plugdex/plugdex/pkg/errors"
	"github.com/plugdex/plugdex/pkg/httputil"
)

func silentLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(StaticToken("test-token"), silentLogger())
	c.SetBaseURL(srv.URL)
	// Tests should not sit through real backoff waits.
	c.httpClient = srv.Client()
	return c
}

func TestTokenIsLazy(t *testing.T) {
	calls := 0
	c := NewClient(func() (string, error) {
		calls++
		return "", errors.New(errors.ErrCodeMissingToken, "no token")
	}, silentLogger())

	if calls != 0 {
		t.Fatal("constructing a client must not request the token")
	}
	_, err := c.GetTree(context.Background(), "octo", "widgets", "main")
	if !errors.Is(err, errors.ErrCodeMissingToken) {
		t.Errorf("expected MISSING_TOKEN on first call, got %v", err)
	}
	if calls != 1 {
		t.Errorf("token func called %d times, want 1", calls)
	}
}

func TestGetTree(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization = %q", got)
		}
		if r.URL.Path != "/repos/octo/widgets/git/trees/abc123" {
			t.Errorf("path = %q", r.URL.Path)
		}
		fmt.Fprint(w, `{
			"tree": [
				{"path": ".claude-plugin/marketplace.json", "type": "blob", "size": 512},
				{"path": "commands", "type": "tree"}
			],
			"truncated": true
		}`)
	}))

	tree, err := c.GetTree(context.Background(), "octo", "widgets", "abc123")
	if err != nil {
		t.Fatalf("GetTree: %v", err)
	}
	if len(tree.Entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(tree.Entries))
	}
	if tree.Entries[0].Path != ".claude-plugin/marketplace.json" || tree.Entries[0].Kind != "blob" {
		t.Errorf("entry[0] = %+v", tree.Entries[0])
	}
	if !tree.Truncated {
		t.Error("truncated flag should survive, not fail the call")
	}
}

func TestFetchFileDecodesBase64(t *testing.T) {
	content := `{"name": "acme-tools"}`
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(contentResponse{
			Path:     ".claude-plugin/marketplace.json",
			Size:     len(content),
			Content:  base64.StdEncoding.EncodeToString([]byte(content)),
			Encoding: "base64",
		})
	}))

	fc, err := c.FetchFile(context.Background(), "octo", "widgets", ".claude-plugin/marketplace.json", "main")
	if err != nil {
		t.Fatalf("FetchFile: %v", err)
	}
	if fc.Content != content {
		t.Errorf("Content = %q, want %q", fc.Content, content)
	}
}

func TestNotFoundIsNotRetried(t *testing.T) {
	var calls int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := c.GetTree(context.Background(), "octo", "gone", "main")
	if !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("404 should not retry; got %d calls", n)
	}
}

func TestPlainForbiddenIsNotRetried(t *testing.T) {
	var calls int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusForbidden)
	}))

	_, err := c.GetTree(context.Background(), "octo", "private", "main")
	if !errors.Is(err, errors.ErrCodeForbidden) {
		t.Errorf("expected FORBIDDEN, got %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("plain 403 should not retry; got %d calls", n)
	}
}

func TestRateLimit403IsRetryable(t *testing.T) {
	resp := &http.Response{
		StatusCode: http.StatusForbidden,
		Header:     http.Header{"X-Ratelimit-Remaining": []string{"0"}},
	}
	err := checkStatus(resp)
	var re *httputil.RetryableError
	if !stderrors.As(err, &re) {
		t.Fatalf("rate-limit 403 should be retryable, got %T: %v", err, err)
	}

	resp = &http.Response{
		StatusCode: http.StatusTooManyRequests,
		Header:     http.Header{"Retry-After": []string{"30"}},
	}
	err = checkStatus(resp)
	if !stderrors.As(err, &re) {
		t.Fatalf("429 should be retryable, got %v", err)
	}
	var rl *errors.RateLimitedError
	if !stderrors.As(re.Err, &rl) || rl.RetryAfter != 30 {
		t.Errorf("expected RateLimitedError with RetryAfter=30, got %v", re.Err)
	}
}

func TestServerErrorIsRetryable(t *testing.T) {
	resp := &http.Response{StatusCode: http.StatusBadGateway, Header: http.Header{}}
	var re *httputil.RetryableError
	if !stderrors.As(checkStatus(resp), &re) {
		t.Error("5xx should be retryable")
	}
}

func TestSafeCallAbsorbsFailure(t *testing.T) {
	v, ok := SafeCall(silentLogger(), "boom", func() (int, error) {
		return 0, errors.New(errors.ErrCodeNetwork, "down")
	})
	if ok || v != 0 {
		t.Errorf("SafeCall on failure = (%v, %v), want (0, false)", v, ok)
	}

	v, ok = SafeCall(silentLogger(), "fine", func() (int, error) { return 7, nil })
	if !ok || v != 7 {
		t.Errorf("SafeCall on success = (%v, %v), want (7, true)", v, ok)
	}
}

func TestSearchCodeAllStopsOnShortPage(t *testing.T) {
	var pages int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&pages, 1)
		page := r.URL.Query().Get("page")

		var items []string
		count := searchPerPage
		if page == "2" {
			count = 3 // short page ends pagination
		}
		for i := 0; i < count; i++ {
			items = append(items, fmt.Sprintf(
				`{"path": ".claude-plugin/marketplace.json", "repository": {"name": "r%s-%d", "full_name": "o/r%s-%d", "owner": {"login": "o"}}}`,
				page, i, page, i))
		}
		fmt.Fprintf(w, `{"total_count": 103, "items": [%s]}`, strings.Join(items, ","))
	}))

	items, err := c.SearchCodeAll(context.Background(), "filename:marketplace.json", 0)
	if err != nil {
		t.Fatalf("SearchCodeAll: %v", err)
	}
	if len(items) != searchPerPage+3 {
		t.Errorf("items = %d, want %d", len(items), searchPerPage+3)
	}
	if atomic.LoadInt32(&pages) != 2 {
		t.Errorf("pages fetched = %d, want 2", pages)
	}
}

func TestSearchCodeAllHonorsLimit(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var items []string
		for i := 0; i < searchPerPage; i++ {
			items = append(items, fmt.Sprintf(
				`{"path": "p", "repository": {"name": "r%d", "full_name": "o/r%d", "owner": {"login": "o"}}}`, i, i))
		}
		fmt.Fprintf(w, `{"total_count": 5000, "items": [%s]}`, strings.Join(items, ","))
	}))

	items, err := c.SearchCodeAll(context.Background(), "q", 10)
	if err != nil {
		t.Fatalf("SearchCodeAll: %v", err)
	}
	if len(items) != 10 {
		t.Errorf("items = %d, want limit 10", len(items))
	}
}
