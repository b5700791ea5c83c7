package market

import (
	"io"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/plugdex/plugdex/pkg/github"
)

// CategoryRule tags a marketplace with a category when any keyword
// appears in its name, description, or plugin names. Rules are data,
// not logic; the engine treats them as opaque.
type CategoryRule struct {
	Category string
	Keywords []string
}

// DefaultCategoryRules is the built-in tagging table.
var DefaultCategoryRules = []CategoryRule{
	{Category: "development", Keywords: []string{"dev", "code", "build", "test", "debug", "lint"}},
	{Category: "productivity", Keywords: []string{"workflow", "task", "note", "productivity", "automation"}},
	{Category: "data", Keywords: []string{"data", "sql", "database", "query", "analytics"}},
	{Category: "devops", Keywords: []string{"deploy", "docker", "kubernetes", "ci", "infra", "terraform"}},
	{Category: "ai", Keywords: []string{"ai", "llm", "agent", "prompt", "ml"}},
	{Category: "documentation", Keywords: []string{"doc", "readme", "writing", "markdown"}},
}

// MergeInput carries the outputs of the fetch and parse stages into
// the merge.
type MergeInput struct {
	Discovered []DiscoveredRepo
	Repos      map[string]github.Repo
	Owners     map[string]github.Owner
	Manifests  []ParsedManifest
	Components map[string]ComponentCounts
	// Drops accumulated by earlier stages. The merge appends its own
	// and never re-drops a repository already accounted for.
	Drops []DropRecord
}

// MergeEngine joins the fetched datasets into the author aggregate.
type MergeEngine struct {
	rules  []CategoryRule
	logger *log.Logger
	now    func() time.Time
}

// NewMergeEngine creates an engine with the given category rules.
// logger may be nil.
func NewMergeEngine(rules []CategoryRule, logger *log.Logger) *MergeEngine {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if rules == nil {
		rules = DefaultCategoryRules
	}
	return &MergeEngine{rules: rules, logger: logger, now: time.Now}
}

// Merge runs the join. It indexes manifests by repository once, then
// walks the discovered list a single time; per-repository failures
// become DropRecords, never errors.
func (e *MergeEngine) Merge(in MergeInput) *Aggregate {
	manifestIdx := make(map[string]*ParsedManifest, len(in.Manifests))
	for i := range in.Manifests {
		manifestIdx[in.Manifests[i].FullName] = &in.Manifests[i]
	}

	dropped := make(map[string]bool, len(in.Drops))
	drops := make([]DropRecord, 0, len(in.Drops))
	for _, d := range in.Drops {
		if !dropped[d.FullName] {
			dropped[d.FullName] = true
			drops = append(drops, d)
		}
	}
	drop := func(fullName, reason string) {
		if dropped[fullName] {
			return
		}
		dropped[fullName] = true
		drops = append(drops, DropRecord{FullName: fullName, Reason: reason})
	}

	byAuthor := make(map[string]*EnrichedAuthor)
	var authorOrder []string

	for _, disc := range in.Discovered {
		if dropped[disc.FullName] {
			continue
		}
		ref, err := github.ParseRepoRef(disc.FullName)
		if err != nil {
			e.logger.Warn("malformed repository identifier", "repo", disc.FullName)
			drop(disc.FullName, DropInvalidRepoRef)
			continue
		}

		repo, ok := in.Repos[disc.FullName]
		if !ok {
			drop(disc.FullName, DropNotFound)
			continue
		}
		manifest, ok := manifestIdx[disc.FullName]
		if !ok {
			drop(disc.FullName, DropInvalidManifest)
			continue
		}

		mkt := e.buildMarketplace(ref, repo, manifest, in.Components[disc.FullName])

		author, ok := byAuthor[ref.Owner]
		if !ok {
			a := e.buildAuthor(ref.Owner, in.Owners)
			byAuthor[ref.Owner] = &a
			author = &a
			authorOrder = append(authorOrder, ref.Owner)
		}
		author.Marketplaces = append(author.Marketplaces, mkt)
	}

	authors := make([]EnrichedAuthor, 0, len(authorOrder))
	for _, login := range authorOrder {
		a := byAuthor[login]
		a.Stats = RecomputeStats(a.Marketplaces)
		authors = append(authors, *a)
	}
	sort.SliceStable(authors, func(i, j int) bool {
		if authors[i].Stats.TotalStars != authors[j].Stats.TotalStars {
			return authors[i].Stats.TotalStars > authors[j].Stats.TotalStars
		}
		return authors[i].ID < authors[j].ID
	})

	return &Aggregate{
		GeneratedAt:  e.now(),
		Totals:       ComputeTotals(authors),
		Authors:      authors,
		DroppedRepos: drops,
	}
}

func (e *MergeEngine) buildMarketplace(ref github.RepoRef, repo github.Repo, manifest *ParsedManifest, components ComponentCounts) EnrichedMarketplace {
	mkt := EnrichedMarketplace{
		Name:         manifest.Data.Name,
		Version:      manifest.Data.Version,
		Description:  firstNonEmpty(manifest.Data.Description, repo.Description),
		RepoFullName: repo.FullName,
		RepoURL:      "https://github.com/" + repo.FullName,
		Signals: Signals{
			Stars:     repo.Stars,
			Forks:     repo.Forks,
			PushedAt:  repo.PushedAt,
			CreatedAt: repo.CreatedAt,
			License:   repo.License,
		},
		Plugins:    e.dedupPlugins(ref.FullName(), manifest),
		Components: components,
	}
	mkt.Categories = e.categorize(mkt)
	return mkt
}

// dedupPlugins maps manifest plugins to enriched plugins, keeping the
// first occurrence of each name.
func (e *MergeEngine) dedupPlugins(repoFullName string, manifest *ParsedManifest) []Plugin {
	seen := make(map[string]bool, len(manifest.Data.Plugins))
	out := make([]Plugin, 0, len(manifest.Data.Plugins))
	for _, p := range manifest.Data.Plugins {
		if seen[p.Name] {
			e.logger.Warn("duplicate plugin name, keeping first",
				"repo", repoFullName, "plugin", p.Name)
			continue
		}
		seen[p.Name] = true
		out = append(out, Plugin{
			Name:            p.Name,
			Description:     p.Description,
			Version:         p.Version,
			Source:          p.Source,
			Category:        p.Category,
			Keywords:        p.Keywords,
			InstallCommands: GenerateInstallCommands(repoFullName, manifest.Data.Name, p.Name),
		})
	}
	return out
}

func (e *MergeEngine) buildAuthor(login string, owners map[string]github.Owner) EnrichedAuthor {
	owner, ok := owners[login]
	if !ok {
		// Repository fetched but owner lookup nulled out; publish a
		// minimal entry rather than dropping the whole author.
		return EnrichedAuthor{ID: login, DisplayName: login}
	}
	return EnrichedAuthor{
		ID:          owner.Login,
		DisplayName: owner.DisplayName,
		Type:        owner.Type,
		AvatarURL:   owner.AvatarURL,
		URL:         owner.URL,
		Bio:         owner.Bio,
		Company:     owner.Company,
		Followers:   owner.Followers,
	}
}

// categorize matches the rule table against the marketplace's
// lowercased name, description, and plugin names.
func (e *MergeEngine) categorize(mkt EnrichedMarketplace) []string {
	var b strings.Builder
	b.WriteString(strings.ToLower(mkt.Name))
	b.WriteByte(' ')
	b.WriteString(strings.ToLower(mkt.Description))
	for _, p := range mkt.Plugins {
		b.WriteByte(' ')
		b.WriteString(strings.ToLower(p.Name))
	}
	haystack := b.String()

	var cats []string
	for _, rule := range e.rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(haystack, kw) {
				cats = append(cats, rule.Category)
				break
			}
		}
	}
	return cats
}

// RecomputeStats derives author stats from the marketplace list. Stats
// are never mutated incrementally; every caller recomputes.
func RecomputeStats(marketplaces []EnrichedMarketplace) AuthorStats {
	stats := AuthorStats{TotalMarketplaces: len(marketplaces)}
	for _, m := range marketplaces {
		stats.TotalPlugins += len(m.Plugins)
		stats.TotalStars += m.Signals.Stars
		stats.TotalForks += m.Signals.Forks
	}
	return stats
}

// ComputeTotals derives the global counts repeated across published
// documents.
func ComputeTotals(authors []EnrichedAuthor) Totals {
	t := Totals{TotalAuthors: len(authors)}
	for _, a := range authors {
		t.TotalMarketplaces += a.Stats.TotalMarketplaces
		t.TotalPlugins += a.Stats.TotalPlugins
		t.TotalStars += a.Stats.TotalStars
	}
	return t
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
