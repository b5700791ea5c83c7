package pipeline

import (
	"context"
	"strings"

	"github.com/plugdex/plugdex/pkg/market"
)

// ParseStage validates manifests and counts plugin components. Invalid
// manifests become drops with their validation errors preserved; they
// never abort the stage.
type ParseStage struct{}

func (ParseStage) ID() string { return "parse" }

// parseArtifact is the stage's persisted output. It carries the drops
// accumulated so far so a partial run starting at merge keeps the full
// accounting.
type parseArtifact struct {
	Manifests  []market.ParsedManifest           `json:"manifests"`
	Invalid    []market.ValidationResult         `json:"invalid"`
	Components map[string]market.ComponentCounts `json:"components"`
	Drops      []market.DropRecord               `json:"drops"`
}

func (ParseStage) Run(ctx context.Context, rc *RunContext, progress Progress) error {
	if err := rc.hydrateDiscovered(); err != nil {
		return err
	}
	if err := rc.hydrateRepos(); err != nil {
		return err
	}
	if err := rc.hydrateTrees(); err != nil {
		return err
	}
	if err := rc.hydrateFiles(); err != nil {
		return err
	}

	rc.Components = make(map[string]market.ComponentCounts, len(rc.Repos))
	documented := 0

	total := len(rc.Discovered)
	for i, d := range rc.Discovered {
		progress(i+1, total)

		if _, ok := rc.Repos[d.FullName]; !ok {
			continue
		}

		content, ok := rc.Files[d.FullName][d.ManifestPath]
		if !ok || content == "" {
			rc.Drop(d.FullName, market.DropNotFound)
			continue
		}

		manifest, result := market.ParseManifest(d.FullName, d.ManifestPath, content)
		if manifest == nil {
			rc.Logger.Warn("invalid manifest", "repo", d.FullName, "errors", strings.Join(result.Errors, "; "))
			rc.Invalid = append(rc.Invalid, result)
			rc.Drop(d.FullName, market.DropInvalidManifest)
			continue
		}
		rc.Manifests = append(rc.Manifests, *manifest)

		tree := rc.Trees[d.FullName]
		rc.Components[d.FullName] = market.CountComponents(tree.Paths)
		documented += countDocumented(rc.Files[d.FullName])
	}

	payload := parseArtifact{
		Manifests:  rc.Manifests,
		Invalid:    rc.Invalid,
		Components: rc.Components,
		Drops:      rc.Drops(),
	}
	return writeArtifact(rc.DataDir(), "parse", map[string]int{
		"manifests":  len(rc.Manifests),
		"invalid":    len(rc.Invalid),
		"documented": documented,
	}, payload)
}

func (ParseStage) Metrics(rc *RunContext) map[string]int {
	return map[string]int{
		"manifests": len(rc.Manifests),
		"invalid":   len(rc.Invalid),
	}
}

// countDocumented tallies component files carrying a parseable front
// matter description.
func countDocumented(files map[string]string) int {
	n := 0
	for path, content := range files {
		if !strings.HasSuffix(path, ".md") || path == "README.md" {
			continue
		}
		fm, _, err := market.ParseFrontMatter(content)
		if err == nil && fm.Description != "" {
			n++
		}
	}
	return n
}
