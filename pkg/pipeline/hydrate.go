package pipeline

import (
	"fmt"

	"github.com/plugdex/plugdex/pkg/github"
	"github.com/plugdex/plugdex/pkg/market"
)

// Input hydration for partial runs. When a stage order starts mid-chain
// the RunContext fields its predecessors would have filled are nil;
// each stage reloads them from the predecessor artifacts before doing
// any work, so a partial run can never mistake "stage skipped" for
// "nothing discovered" and overwrite good data with emptiness.

// requireArtifact loads a predecessor's artifact and fails when it does
// not exist; a partial run without prior run data cannot proceed.
func requireArtifact(dataDir, stageID string, v any) error {
	found, err := readArtifact(dataDir, stageID, v)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("no %s artifact in %s: run the earlier stages first", stageID, dataDir)
	}
	return nil
}

func (rc *RunContext) hydrateDiscovered() error {
	if rc.Discovered != nil {
		return nil
	}
	return requireArtifact(rc.DataDir(), "discover", &rc.Discovered)
}

func (rc *RunContext) hydrateRepos() error {
	if rc.Repos != nil {
		return nil
	}
	var payload fetchReposArtifact
	if err := requireArtifact(rc.DataDir(), "fetch-repos", &payload); err != nil {
		return err
	}
	rc.Repos = payload.Repos
	rc.Owners = payload.Owners
	if rc.Repos == nil {
		rc.Repos = make(map[string]github.Repo)
	}
	if rc.Owners == nil {
		rc.Owners = make(map[string]github.Owner)
	}
	return nil
}

func (rc *RunContext) hydrateTrees() error {
	if rc.Trees != nil {
		return nil
	}
	if err := requireArtifact(rc.DataDir(), "fetch-trees", &rc.Trees); err != nil {
		return err
	}
	if rc.Trees == nil {
		rc.Trees = make(map[string]RepoTree)
	}
	return nil
}

func (rc *RunContext) hydrateFiles() error {
	if rc.Files != nil {
		return nil
	}
	if err := requireArtifact(rc.DataDir(), "fetch-files", &rc.Files); err != nil {
		return err
	}
	if rc.Files == nil {
		rc.Files = make(map[string]map[string]string)
	}
	return nil
}

// hydrateParsed restores the parse outputs, including the drops
// accumulated up to that stage so merge keeps its accounting intact.
func (rc *RunContext) hydrateParsed() error {
	if rc.Components != nil {
		return nil
	}
	var payload parseArtifact
	if err := requireArtifact(rc.DataDir(), "parse", &payload); err != nil {
		return err
	}
	rc.Manifests = payload.Manifests
	rc.Invalid = payload.Invalid
	rc.Components = payload.Components
	if rc.Components == nil {
		rc.Components = make(map[string]market.ComponentCounts)
	}
	rc.dropMu.Lock()
	if len(rc.drops) == 0 {
		rc.drops = payload.Drops
	}
	rc.dropMu.Unlock()
	return nil
}
