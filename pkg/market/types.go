// Package market holds the marketplace domain model and the engines
// that fold crawled data into the published author aggregate.
package market

import "time"

// Drop reasons. These strings are stable; downstream tooling greps for
// them and the consistency check categorizes on them.
const (
	DropNotFound        = "not_found"
	DropInvalidManifest = "invalid_manifest"
	DropInvalidRepoRef  = "invalid_repo_ref"
	DropFetchFailed     = "fetch_failed"
)

// AcceptableDrop reports whether a drop reason satisfies the
// completeness check: every discovered repository must either appear in
// the aggregate or carry one of these.
func AcceptableDrop(reason string) bool {
	return reason == DropNotFound || reason == DropInvalidManifest
}

// DropRecord is an intentional, recorded exclusion of a repository.
type DropRecord struct {
	FullName string `json:"full_name"`
	Reason   string `json:"reason"`
}

// DiscoveredRepo is one search hit: a repository plus the manifest path
// that matched. Deduplicated by FullName before fetching.
type DiscoveredRepo struct {
	Owner        string `json:"owner"`
	Repo         string `json:"repo"`
	FullName     string `json:"full_name"`
	ManifestPath string `json:"manifest_path"`
}

// ManifestPlugin is one plugin entry as declared in a manifest.
type ManifestPlugin struct {
	Name        string   `json:"name"`
	Source      string   `json:"source,omitempty"`
	Description string   `json:"description,omitempty"`
	Version     string   `json:"version,omitempty"`
	Author      string   `json:"author,omitempty"`
	Category    string   `json:"category,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
}

// Manifest is the validated marketplace declaration.
type Manifest struct {
	Name        string           `json:"name"`
	Version     string           `json:"version,omitempty"`
	Description string           `json:"description,omitempty"`
	Plugins     []ManifestPlugin `json:"plugins,omitempty"`
}

// ParsedManifest pairs a validated manifest with its source location.
type ParsedManifest struct {
	FullName string   `json:"full_name"`
	Path     string   `json:"path"`
	Data     Manifest `json:"data"`
}

// ComponentCounts tallies the plugin component files found in a
// repository tree.
type ComponentCounts struct {
	Commands int `json:"commands"`
	Skills   int `json:"skills"`
	Agents   int `json:"agents"`
	Hooks    int `json:"hooks"`
}

// Total returns the combined component count.
func (c ComponentCounts) Total() int {
	return c.Commands + c.Skills + c.Agents + c.Hooks
}

// Plugin is one enriched plugin in the published aggregate.
type Plugin struct {
	Name            string   `json:"name"`
	Description     string   `json:"description,omitempty"`
	Version         string   `json:"version,omitempty"`
	Source          string   `json:"source,omitempty"`
	Category        string   `json:"category,omitempty"`
	Keywords        []string `json:"keywords,omitempty"`
	InstallCommands []string `json:"install_commands"`
}

// Signals carries the per-repository popularity data attached to a
// marketplace. Trending fields are zero until the trending stage fills
// them in.
type Signals struct {
	Stars            int        `json:"stars"`
	Forks            int        `json:"forks"`
	PushedAt         *time.Time `json:"pushed_at,omitempty"`
	CreatedAt        *time.Time `json:"created_at,omitempty"`
	License          string     `json:"license,omitempty"`
	TrendingScore    float64    `json:"trending_score"`
	StarsGained7d    int        `json:"stars_gained_7d"`
	StarsVelocity    float64    `json:"stars_velocity"`
	InsufficientData bool       `json:"insufficient_data"`
}

// EnrichedMarketplace is one marketplace in the published aggregate,
// carrying its plugins and repository signals.
type EnrichedMarketplace struct {
	Name         string          `json:"name"`
	Version      string          `json:"version,omitempty"`
	Description  string          `json:"description,omitempty"`
	RepoFullName string          `json:"repo_full_name"`
	RepoURL      string          `json:"repo_url"`
	Signals      Signals         `json:"signals"`
	Plugins      []Plugin        `json:"plugins"`
	Categories   []string        `json:"categories,omitempty"`
	Components   ComponentCounts `json:"components"`
}

// AuthorStats is the derived rollup over an author's marketplaces. It
// is always recomputed from the marketplace list, never mutated in
// place.
type AuthorStats struct {
	TotalMarketplaces int `json:"total_marketplaces"`
	TotalPlugins      int `json:"total_plugins"`
	TotalStars        int `json:"total_stars"`
	TotalForks        int `json:"total_forks"`
}

// EnrichedAuthor is one author entry in the published aggregate.
type EnrichedAuthor struct {
	ID           string                `json:"id"`
	DisplayName  string                `json:"display_name"`
	Type         string                `json:"type,omitempty"`
	AvatarURL    string                `json:"avatar_url,omitempty"`
	URL          string                `json:"url,omitempty"`
	Bio          string                `json:"bio,omitempty"`
	Company      string                `json:"company,omitempty"`
	Followers    int                   `json:"followers"`
	Stats        AuthorStats           `json:"stats"`
	Marketplaces []EnrichedMarketplace `json:"marketplaces"`
}

// Totals are the global counts repeated across published documents.
// Every document that carries them must agree byte for byte.
type Totals struct {
	TotalAuthors      int `json:"total_authors"`
	TotalMarketplaces int `json:"total_marketplaces"`
	TotalPlugins      int `json:"total_plugins"`
	TotalStars        int `json:"total_stars"`
}

// Aggregate is the full author-centric output of the merge stage.
type Aggregate struct {
	GeneratedAt  time.Time        `json:"generated_at"`
	Totals       Totals           `json:"totals"`
	Authors      []EnrichedAuthor `json:"authors"`
	DroppedRepos []DropRecord     `json:"dropped_repos"`
}

// Snapshot is a single dated stars/forks observation. Date is a
// calendar day in 2006-01-02 form; one snapshot per repository per day.
type Snapshot struct {
	Date  string `json:"date"`
	Stars int    `json:"stars"`
	Forks int    `json:"forks"`
}

// SignalsHistory is the append-only snapshot store, keyed by
// repository full name.
type SignalsHistory struct {
	Repos         map[string][]Snapshot `json:"repos"`
	SnapshotCount int                   `json:"snapshot_count"`
	LastRun       time.Time             `json:"last_run"`
}

// TrendingResult is the bounded trending signal for one repository.
type TrendingResult struct {
	TrendingScore    float64 `json:"trending_score"`
	StarsGained7d    int     `json:"stars_gained_7d"`
	StarsVelocity    float64 `json:"stars_velocity"`
	InsufficientData bool    `json:"insufficient_data"`
}
