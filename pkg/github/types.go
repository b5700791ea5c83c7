package github

import "time"

// RepoRef identifies a repository by owner and name.
type RepoRef struct {
	Owner string `json:"owner"`
	Repo  string `json:"repo"`
}

// FullName returns the "owner/repo" form.
func (r RepoRef) FullName() string { return r.Owner + "/" + r.Repo }

// SearchItem is one code-search match: a repository plus the matched
// file path.
type SearchItem struct {
	Owner    string `json:"owner"`
	Repo     string `json:"repo"`
	FullName string `json:"full_name"`
	Path     string `json:"path"`
}

// SearchPage is one page of code-search results.
type SearchPage struct {
	TotalCount int          `json:"total_count"`
	Items      []SearchItem `json:"items"`
}

// Repo holds repository metadata from a batched lookup.
type Repo struct {
	FullName            string     `json:"full_name"`
	DefaultBranch       string     `json:"default_branch"`
	DefaultBranchCommit string     `json:"default_branch_commit"`
	Description         string     `json:"description"`
	Homepage            string     `json:"homepage"`
	Stars               int        `json:"stars"`
	Forks               int        `json:"forks"`
	PushedAt            *time.Time `json:"pushed_at,omitempty"`
	CreatedAt           *time.Time `json:"created_at,omitempty"`
	License             string     `json:"license,omitempty"`
	OwnerLogin          string     `json:"owner_login"`
}

// Owner holds user or organization metadata, shared across repositories
// with the same owner.
type Owner struct {
	Login       string `json:"login"`
	DisplayName string `json:"display_name"`
	Type        string `json:"type"` // "User" or "Organization"
	AvatarURL   string `json:"avatar_url"`
	URL         string `json:"url"`
	Bio         string `json:"bio,omitempty"`
	Company     string `json:"company,omitempty"`
	Followers   int    `json:"followers"`
}

// BatchRepos is the merged result of a batched repository lookup.
// Owners are deduplicated by login: a shared owner is fetched once
// regardless of how many repositories reference it.
type BatchRepos struct {
	Repos  map[string]Repo  `json:"repos"`  // keyed by full_name
	Owners map[string]Owner `json:"owners"` // keyed by login

	// Failed lists refs whose batch could not be fetched after
	// exhausting retries. Callers record these as drops.
	Failed []RepoRef `json:"failed,omitempty"`
}

// TreeEntry is one entry of a recursive tree listing.
type TreeEntry struct {
	Path string `json:"path"`
	Kind string `json:"kind"` // "blob" or "tree"
	Size int    `json:"size,omitempty"`
}

// Tree is a full recursive listing of a repository at one commit.
// Truncated is set instead of failing when the listing exceeds the API's
// entry cap (~100k entries).
type Tree struct {
	Entries   []TreeEntry `json:"entries"`
	Truncated bool        `json:"truncated"`
}

// FileContent is the fetched content of a single file.
type FileContent struct {
	Path    string `json:"path"`
	Size    int    `json:"size"`
	Content string `json:"content"`
}

// REST wire types below mirror the GitHub API response shapes.

type searchResponse struct {
	TotalCount int `json:"total_count"`
	Items      []struct {
		Path       string `json:"path"`
		Repository struct {
			Name     string `json:"name"`
			FullName string `json:"full_name"`
			Owner    struct {
				Login string `json:"login"`
			} `json:"owner"`
		} `json:"repository"`
	} `json:"items"`
}

type treeResponse struct {
	Tree []struct {
		Path string `json:"path"`
		Type string `json:"type"`
		Size int    `json:"size"`
	} `json:"tree"`
	Truncated bool `json:"truncated"`
}

type contentResponse struct {
	Path     string `json:"path"`
	Size     int    `json:"size"`
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}
