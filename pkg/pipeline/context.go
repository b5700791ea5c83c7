package pipeline

import (
	"io"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/plugdex/plugdex/pkg/cache"
	"github.com/plugdex/plugdex/pkg/config"
	"github.com/plugdex/plugdex/pkg/github"
	"github.com/plugdex/plugdex/pkg/market"
)

// RepoTree is the filtered tree listing kept per repository: the
// default-branch commit it was fetched at, the blob paths of interest,
// and whether the remote listing was truncated.
type RepoTree struct {
	Commit    string   `json:"commit"`
	Paths     []string `json:"paths"`
	Truncated bool     `json:"truncated"`
}

// RunContext is the shared state threaded through a pipeline run. It is
// an explicit value passed to every stage, never a package-level
// singleton, so independent runs can coexist.
//
// Each field is written by exactly one stage and read by later ones.
// The only cross-stage mutation is drop recording, which is guarded
// because stages in a parallel group may drop concurrently.
type RunContext struct {
	Config *config.Config
	Client *github.Client
	Cache  cache.Cache
	Logger *log.Logger

	Discovered []market.DiscoveredRepo
	Repos      map[string]github.Repo
	Owners     map[string]github.Owner
	Trees      map[string]RepoTree
	Files      map[string]map[string]string
	Manifests  []market.ParsedManifest
	Invalid    []market.ValidationResult
	Components map[string]market.ComponentCounts
	History    *market.SignalsHistory
	Aggregate  *market.Aggregate

	dropMu sync.Mutex
	drops  []market.DropRecord
}

// NewRunContext creates a context for one run. cache may be nil to
// disable caching; logger may be nil for a silent run.
func NewRunContext(cfg *config.Config, client *github.Client, c cache.Cache, logger *log.Logger) *RunContext {
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &RunContext{
		Config: cfg,
		Client: client,
		Cache:  c,
		Logger: logger,
	}
}

// Drop records a repository exclusion. Safe for concurrent use.
func (rc *RunContext) Drop(fullName, reason string) {
	rc.dropMu.Lock()
	defer rc.dropMu.Unlock()
	rc.drops = append(rc.drops, market.DropRecord{FullName: fullName, Reason: reason})
}

// Drops returns a copy of the recorded drops.
func (rc *RunContext) Drops() []market.DropRecord {
	rc.dropMu.Lock()
	defer rc.dropMu.Unlock()
	out := make([]market.DropRecord, len(rc.drops))
	copy(out, rc.drops)
	return out
}

// DataDir returns the configured artifact directory.
func (rc *RunContext) DataDir() string { return rc.Config.DataDir }
