package pipeline

import (
	"context"

	"github.com/plugdex/plugdex/pkg/cache"
	"github.com/plugdex/plugdex/pkg/market"
	"github.com/plugdex/plugdex/pkg/observability"
)

// maxFilesPerRepo caps how many component files are fetched for one
// repository so a single sprawling repo cannot eat the quota budget.
const maxFilesPerRepo = 50

// FetchFilesStage retrieves the allow-listed file contents for every
// repository: the manifest, plugin descriptors, component markdown, and
// the README. Files are cached by commit plus path hash.
type FetchFilesStage struct{}

func (FetchFilesStage) ID() string { return "fetch-files" }

func (FetchFilesStage) Run(ctx context.Context, rc *RunContext, progress Progress) error {
	if err := rc.hydrateDiscovered(); err != nil {
		return err
	}
	if err := rc.hydrateRepos(); err != nil {
		return err
	}
	if err := rc.hydrateTrees(); err != nil {
		return err
	}
	rc.Files = make(map[string]map[string]string, len(rc.Repos))

	total := len(rc.Discovered)
	for i, d := range rc.Discovered {
		progress(i+1, total)

		repo, ok := rc.Repos[d.FullName]
		if !ok {
			continue
		}
		tree := rc.Trees[d.FullName]
		paths := selectPaths(d.ManifestPath, tree.Paths)

		files := make(map[string]string, len(paths))
		var missing []string
		for _, p := range paths {
			id := fileCacheID(tree.Commit, p)
			if id == "" {
				missing = append(missing, p)
				continue
			}
			if data, hit, err := rc.Cache.Get(ctx, cache.KindFile, d.FullName, id, 0); err == nil && hit {
				observability.Cache().OnCacheHit(ctx, cache.KindFile)
				files[p] = string(data)
				continue
			}
			observability.Cache().OnCacheMiss(ctx, cache.KindFile)
			missing = append(missing, p)
		}

		var fetchErr error
		if len(missing) > 0 {
			fetched, err := rc.Client.BatchGetFiles(ctx, d.Owner, d.Repo, repo.DefaultBranch, missing)
			if err != nil {
				fetchErr = err
				rc.Logger.Warn("file fetch failed", "repo", d.FullName, "err", err)
			}
			for p, fc := range fetched {
				files[p] = fc.Content
				if id := fileCacheID(tree.Commit, p); id != "" {
					if err := rc.Cache.Set(ctx, cache.KindFile, d.FullName, id, []byte(fc.Content)); err == nil {
						observability.Cache().OnCacheSet(ctx, cache.KindFile, len(fc.Content))
					}
				}
			}
		}
		// A repo whose manifest could not be fetched after retries is
		// dropped here rather than misreported as missing downstream.
		if _, ok := files[d.ManifestPath]; !ok && fetchErr != nil {
			rc.Drop(d.FullName, market.DropFetchFailed)
		}
		rc.Files[d.FullName] = files
	}

	fileCount := 0
	for _, files := range rc.Files {
		fileCount += len(files)
	}
	return writeArtifact(rc.DataDir(), "fetch-files", map[string]int{
		"repositories": len(rc.Files),
		"files":        fileCount,
	}, rc.Files)
}

func (FetchFilesStage) Metrics(rc *RunContext) map[string]int {
	files := 0
	for _, m := range rc.Files {
		files += len(m)
	}
	return map[string]int{"files": files}
}

// selectPaths builds the fetch list for one repository: the discovered
// manifest path always, then everything interesting the tree surfaced,
// capped per repository.
func selectPaths(manifestPath string, treePaths []string) []string {
	out := []string{manifestPath}
	seen := map[string]bool{manifestPath: true}
	for _, p := range treePaths {
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
		if len(out) >= maxFilesPerRepo {
			break
		}
	}
	return out
}

// fileCacheID keys a file by its commit and path. Without a commit the
// content is not addressable and is fetched fresh.
func fileCacheID(commit, path string) string {
	if commit == "" {
		return ""
	}
	return commit + "-" + cache.ShortHash([]byte(path))
}
