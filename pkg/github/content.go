package github

import (
	"context"
	"encoding/base64"
	"net/url"
	"strings"
)

// GetTree retrieves the full recursive tree of a repository at ref.
// Listings past the API's entry cap set Truncated instead of failing.
// Callers key cached trees by the default-branch commit — a commit's
// tree is immutable, so those entries never need invalidation.
func (c *Client) GetTree(ctx context.Context, owner, repo, ref string) (*Tree, error) {
	if ref == "" {
		ref = "HEAD"
	}
	u := c.restURL("/repos/%s/%s/git/trees/%s?recursive=1",
		url.PathEscape(owner), url.PathEscape(repo), url.PathEscape(ref))

	var resp treeResponse
	if err := c.getJSON(ctx, regimeREST, "get_tree", u, &resp); err != nil {
		return nil, err
	}

	tree := &Tree{
		Entries:   make([]TreeEntry, 0, len(resp.Tree)),
		Truncated: resp.Truncated,
	}
	for _, item := range resp.Tree {
		tree.Entries = append(tree.Entries, TreeEntry{Path: item.Path, Kind: item.Type, Size: item.Size})
	}
	return tree, nil
}

// FetchFile retrieves one file's content at ref via the REST contents
// endpoint, decoding the base64 payload.
func (c *Client) FetchFile(ctx context.Context, owner, repo, path, ref string) (*FileContent, error) {
	u := c.restURL("/repos/%s/%s/contents/%s?ref=%s",
		url.PathEscape(owner), url.PathEscape(repo), escapePath(path), url.QueryEscape(ref))

	var resp contentResponse
	if err := c.getJSON(ctx, regimeREST, "fetch_file", u, &resp); err != nil {
		return nil, err
	}

	content := resp.Content
	if resp.Encoding == "base64" {
		decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(resp.Content, "\n", ""))
		if err != nil {
			return nil, err
		}
		content = string(decoded)
	}
	return &FileContent{Path: resp.Path, Size: resp.Size, Content: content}, nil
}

// escapePath percent-encodes each segment of a slash-separated path.
func escapePath(path string) string {
	segments := strings.Split(path, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}
