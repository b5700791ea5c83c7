package pipeline

import (
	"context"

	"github.com/plugdex/plugdex/pkg/github"
	"github.com/plugdex/plugdex/pkg/market"
)

// canonicalManifestPath is the preferred manifest location. Search can
// surface the same repository under other paths; discovery keeps one
// path per repository, preferring the canonical one.
const canonicalManifestPath = ".claude-plugin/marketplace.json"

const searchQuery = `filename:marketplace.json path:.claude-plugin`

// DiscoverStage searches the platform for repositories declaring a
// marketplace manifest.
type DiscoverStage struct{}

func (DiscoverStage) ID() string { return "discover" }

func (DiscoverStage) Run(ctx context.Context, rc *RunContext, progress Progress) error {
	items, err := rc.Client.SearchCodeAll(ctx, searchQuery, rc.Config.RepoLimit)
	if err != nil {
		if len(items) == 0 {
			return err
		}
		// Partial results beat no results; later stages account for
		// anything that went missing.
		rc.Logger.Warn("search ended early, continuing with partial results",
			"found", len(items), "err", err)
	}

	seen := make(map[string]int, len(items))
	var discovered []market.DiscoveredRepo
	for i, item := range items {
		progress(i+1, len(items))

		if idx, ok := seen[item.FullName]; ok {
			if item.Path == canonicalManifestPath {
				discovered[idx].ManifestPath = item.Path
			}
			continue
		}

		if _, err := github.ParseRepoRef(item.FullName); err != nil {
			rc.Logger.Warn("skipping malformed repository name", "repo", item.FullName)
			rc.Drop(item.FullName, market.DropInvalidRepoRef)
			continue
		}

		seen[item.FullName] = len(discovered)
		discovered = append(discovered, market.DiscoveredRepo{
			Owner:        item.Owner,
			Repo:         item.Repo,
			FullName:     item.FullName,
			ManifestPath: item.Path,
		})
	}

	rc.Discovered = discovered
	return writeArtifact(rc.DataDir(), "discover",
		map[string]int{"repositories": len(discovered)}, discovered)
}

func (DiscoverStage) Metrics(rc *RunContext) map[string]int {
	return map[string]int{"repositories": len(rc.Discovered)}
}
