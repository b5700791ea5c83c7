package pipeline

import (
	"context"
	"encoding/json"
	"path"
	"strings"

	"github.com/plugdex/plugdex/pkg/cache"
	"github.com/plugdex/plugdex/pkg/github"
	"github.com/plugdex/plugdex/pkg/observability"
)

// maxFileSize bounds which blobs are eligible for fetching. Anything
// larger stays out of the allow list.
const maxFileSize = 200 * 1024

// binaryExtensions are skipped before fetch; their content is never
// useful to the aggregate.
var binaryExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".ico": true,
	".svg": true, ".pdf": true, ".zip": true, ".gz": true, ".tar": true,
	".woff": true, ".woff2": true, ".ttf": true, ".mp4": true, ".webp": true,
}

// FetchTreesStage lists each repository's file tree at its default
// branch commit. Trees are cached by commit SHA, which is immutable,
// so cached entries never expire.
type FetchTreesStage struct{}

func (FetchTreesStage) ID() string { return "fetch-trees" }

func (FetchTreesStage) Run(ctx context.Context, rc *RunContext, progress Progress) error {
	if err := rc.hydrateDiscovered(); err != nil {
		return err
	}
	if err := rc.hydrateRepos(); err != nil {
		return err
	}
	rc.Trees = make(map[string]RepoTree, len(rc.Repos))

	total := len(rc.Discovered)
	for i, d := range rc.Discovered {
		progress(i+1, total)

		repo, ok := rc.Repos[d.FullName]
		if !ok {
			continue
		}
		commit := repo.DefaultBranchCommit

		if commit != "" {
			if data, hit, err := rc.Cache.Get(ctx, cache.KindTree, d.FullName, commit, 0); err == nil && hit {
				var t RepoTree
				if json.Unmarshal(data, &t) == nil {
					observability.Cache().OnCacheHit(ctx, cache.KindTree)
					rc.Trees[d.FullName] = t
					continue
				}
			}
			observability.Cache().OnCacheMiss(ctx, cache.KindTree)
		}

		tree, ok := github.SafeCall(rc.Logger, "get_tree "+d.FullName, func() (*github.Tree, error) {
			return rc.Client.GetTree(ctx, d.Owner, d.Repo, repo.DefaultBranch)
		})
		if !ok {
			// Tree failures are not drops: the manifest can still be
			// fetched at its discovered path.
			rc.Trees[d.FullName] = RepoTree{Commit: commit}
			continue
		}
		if tree.Truncated {
			rc.Logger.Warn("tree listing truncated", "repo", d.FullName)
		}

		t := RepoTree{Commit: commit, Truncated: tree.Truncated}
		for _, e := range tree.Entries {
			if e.Kind == "blob" && interestingPath(e.Path) {
				t.Paths = append(t.Paths, e.Path)
			}
		}
		rc.Trees[d.FullName] = t

		if commit != "" {
			if data, err := json.Marshal(t); err == nil {
				if err := rc.Cache.Set(ctx, cache.KindTree, d.FullName, commit, data); err == nil {
					observability.Cache().OnCacheSet(ctx, cache.KindTree, len(data))
				}
			}
		}
	}

	truncated := 0
	for _, t := range rc.Trees {
		if t.Truncated {
			truncated++
		}
	}
	return writeArtifact(rc.DataDir(), "fetch-trees", map[string]int{
		"trees":     len(rc.Trees),
		"truncated": truncated,
	}, rc.Trees)
}

func (FetchTreesStage) Metrics(rc *RunContext) map[string]int {
	return map[string]int{"trees": len(rc.Trees)}
}

// interestingPath keeps the tree listing down to what later stages
// read: plugin metadata, component files, and the README fallback.
func interestingPath(p string) bool {
	if binaryExtensions[strings.ToLower(path.Ext(p))] {
		return false
	}
	if strings.HasPrefix(p, ".claude-plugin/") {
		return true
	}
	if p == "README.md" {
		return true
	}
	if !strings.HasSuffix(p, ".md") {
		return false
	}
	first, _, _ := strings.Cut(p, "/")
	switch first {
	case "commands", "skills", "agents", "hooks":
		return true
	}
	return false
}
