package pipeline

import (
	"context"

	"github.com/plugdex/plugdex/pkg/github"
	"github.com/plugdex/plugdex/pkg/market"
)

// FetchReposStage resolves repository and owner metadata for every
// discovered repository in batched queries.
type FetchReposStage struct{}

func (FetchReposStage) ID() string { return "fetch-repos" }

// fetchReposArtifact is the stage's persisted output, reloaded by
// downstream stages on partial runs.
type fetchReposArtifact struct {
	Repos  map[string]github.Repo  `json:"repos"`
	Owners map[string]github.Owner `json:"owners"`
}

func (FetchReposStage) Run(ctx context.Context, rc *RunContext, progress Progress) error {
	if err := rc.hydrateDiscovered(); err != nil {
		return err
	}

	refs := make([]github.RepoRef, 0, len(rc.Discovered))
	for _, d := range rc.Discovered {
		refs = append(refs, github.RepoRef{Owner: d.Owner, Repo: d.Repo})
	}

	batch, err := rc.Client.BatchGetRepos(ctx, refs)
	if err != nil {
		return err
	}
	rc.Repos = batch.Repos
	rc.Owners = batch.Owners
	progress(len(refs), len(refs))

	// Refs whose batch exhausted retries are fetch failures, not
	// missing repositories.
	failed := make(map[string]bool, len(batch.Failed))
	for _, ref := range batch.Failed {
		failed[ref.FullName()] = true
		rc.Drop(ref.FullName(), market.DropFetchFailed)
	}

	// Repositories the batch nulled out were deleted or made private
	// between discovery and now.
	for _, d := range rc.Discovered {
		if _, ok := rc.Repos[d.FullName]; !ok && !failed[d.FullName] {
			rc.Drop(d.FullName, market.DropNotFound)
		}
	}

	payload := fetchReposArtifact{Repos: rc.Repos, Owners: rc.Owners}
	return writeArtifact(rc.DataDir(), "fetch-repos", map[string]int{
		"repositories": len(rc.Repos),
		"owners":       len(rc.Owners),
	}, payload)
}

func (FetchReposStage) Metrics(rc *RunContext) map[string]int {
	return map[string]int{
		"repositories": len(rc.Repos),
		"owners":       len(rc.Owners),
	}
}
