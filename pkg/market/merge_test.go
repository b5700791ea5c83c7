package market

import (
	"testing"
	"time"

	"github.com/plugdex/plugdex/pkg/github"
)

func testMergeInput() MergeInput {
	pushed := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	return MergeInput{
		Discovered: []DiscoveredRepo{
			{Owner: "octo", Repo: "widgets", FullName: "octo/widgets", ManifestPath: ".claude-plugin/marketplace.json"},
			{Owner: "octo", Repo: "tools", FullName: "octo/tools", ManifestPath: ".claude-plugin/marketplace.json"},
			{Owner: "acme", Repo: "kit", FullName: "acme/kit", ManifestPath: ".claude-plugin/marketplace.json"},
		},
		Repos: map[string]github.Repo{
			"octo/widgets": {FullName: "octo/widgets", Stars: 50, Forks: 5, OwnerLogin: "octo", PushedAt: &pushed},
			"octo/tools":   {FullName: "octo/tools", Stars: 10, Forks: 1, OwnerLogin: "octo"},
			"acme/kit":     {FullName: "acme/kit", Stars: 200, Forks: 20, OwnerLogin: "acme", Description: "deploy helpers"},
		},
		Owners: map[string]github.Owner{
			"octo": {Login: "octo", DisplayName: "Octo Labs", Type: "Organization", Followers: 30},
			"acme": {Login: "acme", DisplayName: "Acme", Type: "User", Followers: 7},
		},
		Manifests: []ParsedManifest{
			{FullName: "octo/widgets", Data: Manifest{Name: "widgets", Plugins: []ManifestPlugin{
				{Name: "deploy", Description: "first"},
				{Name: "deploy", Description: "second"},
				{Name: "lint"},
			}}},
			{FullName: "octo/tools", Data: Manifest{Name: "tools", Plugins: []ManifestPlugin{{Name: "fmt"}}}},
			{FullName: "acme/kit", Data: Manifest{Name: "kit", Plugins: []ManifestPlugin{{Name: "ship"}}}},
		},
		Components: map[string]ComponentCounts{
			"octo/widgets": {Commands: 2, Skills: 1},
		},
	}
}

func TestMergeStatsInvariant(t *testing.T) {
	agg := NewMergeEngine(nil, nil).Merge(testMergeInput())

	for _, a := range agg.Authors {
		if a.Stats.TotalMarketplaces != len(a.Marketplaces) {
			t.Errorf("author %s: total_marketplaces = %d, marketplaces = %d",
				a.ID, a.Stats.TotalMarketplaces, len(a.Marketplaces))
		}
		plugins := 0
		for _, m := range a.Marketplaces {
			plugins += len(m.Plugins)
		}
		if a.Stats.TotalPlugins != plugins {
			t.Errorf("author %s: total_plugins = %d, want %d", a.ID, a.Stats.TotalPlugins, plugins)
		}
	}

	if agg.Totals.TotalAuthors != 2 {
		t.Errorf("total_authors = %d, want 2", agg.Totals.TotalAuthors)
	}
	if agg.Totals.TotalMarketplaces != 3 {
		t.Errorf("total_marketplaces = %d, want 3", agg.Totals.TotalMarketplaces)
	}
}

func TestMergePluginDedupFirstWins(t *testing.T) {
	agg := NewMergeEngine(nil, nil).Merge(testMergeInput())

	var widgets *EnrichedMarketplace
	for i := range agg.Authors {
		for j := range agg.Authors[i].Marketplaces {
			if agg.Authors[i].Marketplaces[j].RepoFullName == "octo/widgets" {
				widgets = &agg.Authors[i].Marketplaces[j]
			}
		}
	}
	if widgets == nil {
		t.Fatal("octo/widgets missing from aggregate")
	}

	deploys := 0
	for _, p := range widgets.Plugins {
		if p.Name == "deploy" {
			deploys++
			if p.Description != "first" {
				t.Errorf("dedup kept %q, want the first occurrence", p.Description)
			}
		}
	}
	if deploys != 1 {
		t.Errorf("plugin 'deploy' appears %d times, want 1", deploys)
	}
	if len(widgets.Plugins) != 2 {
		t.Errorf("plugins = %d, want 2 after dedup", len(widgets.Plugins))
	}
}

func TestMergeInstallCommands(t *testing.T) {
	agg := NewMergeEngine(nil, nil).Merge(testMergeInput())

	for _, a := range agg.Authors {
		for _, m := range a.Marketplaces {
			for _, p := range m.Plugins {
				want := []string{
					"/plugin marketplace add " + m.RepoFullName,
					"/plugin install " + p.Name + "@" + m.Name,
				}
				if len(p.InstallCommands) != 2 || p.InstallCommands[0] != want[0] || p.InstallCommands[1] != want[1] {
					t.Errorf("install commands for %s = %v, want %v", p.Name, p.InstallCommands, want)
				}
			}
		}
	}
}

func TestMergeDropAccounting(t *testing.T) {
	in := testMergeInput()
	in.Discovered = append(in.Discovered,
		DiscoveredRepo{FullName: "ghost/gone"},     // no repo record
		DiscoveredRepo{FullName: "octo/noparse"},   // repo but no manifest
		DiscoveredRepo{FullName: "not-a-fullname"}, // unsplittable
	)
	in.Repos["octo/noparse"] = github.Repo{FullName: "octo/noparse", OwnerLogin: "octo"}
	in.Drops = []DropRecord{{FullName: "prior/dropped", Reason: DropInvalidManifest}}
	in.Discovered = append(in.Discovered, DiscoveredRepo{FullName: "prior/dropped"})

	agg := NewMergeEngine(nil, nil).Merge(in)

	reasons := make(map[string]string, len(agg.DroppedRepos))
	for _, d := range agg.DroppedRepos {
		if prev, dup := reasons[d.FullName]; dup {
			t.Errorf("%s dropped twice (%s, %s)", d.FullName, prev, d.Reason)
		}
		reasons[d.FullName] = d.Reason
	}

	if reasons["ghost/gone"] != DropNotFound {
		t.Errorf("ghost/gone reason = %q, want %q", reasons["ghost/gone"], DropNotFound)
	}
	if reasons["octo/noparse"] != DropInvalidManifest {
		t.Errorf("octo/noparse reason = %q, want %q", reasons["octo/noparse"], DropInvalidManifest)
	}
	if reasons["not-a-fullname"] != DropInvalidRepoRef {
		t.Errorf("not-a-fullname reason = %q, want %q", reasons["not-a-fullname"], DropInvalidRepoRef)
	}
	if reasons["prior/dropped"] != DropInvalidManifest {
		t.Errorf("carried drop lost or rewritten: %q", reasons["prior/dropped"])
	}

	// Completeness: every discovered repo is merged or dropped once.
	merged := make(map[string]bool)
	for _, a := range agg.Authors {
		for _, m := range a.Marketplaces {
			merged[m.RepoFullName] = true
		}
	}
	for _, d := range in.Discovered {
		if !merged[d.FullName] && reasons[d.FullName] == "" {
			t.Errorf("%s neither merged nor dropped", d.FullName)
		}
	}
}

func TestMergeAuthorOrdering(t *testing.T) {
	agg := NewMergeEngine(nil, nil).Merge(testMergeInput())

	if len(agg.Authors) != 2 {
		t.Fatalf("authors = %d, want 2", len(agg.Authors))
	}
	// acme has 200 stars, octo 60; descending by stars.
	if agg.Authors[0].ID != "acme" || agg.Authors[1].ID != "octo" {
		t.Errorf("order = [%s, %s], want [acme, octo]", agg.Authors[0].ID, agg.Authors[1].ID)
	}
}

func TestMergeCategorization(t *testing.T) {
	agg := NewMergeEngine(DefaultCategoryRules, nil).Merge(testMergeInput())

	for _, a := range agg.Authors {
		for _, m := range a.Marketplaces {
			if m.RepoFullName != "acme/kit" {
				continue
			}
			found := false
			for _, c := range m.Categories {
				if c == "devops" {
					found = true
				}
			}
			if !found {
				t.Errorf("acme/kit categories = %v, want devops (description mentions deploy)", m.Categories)
			}
		}
	}
}

func TestGenerateInstallCommands(t *testing.T) {
	got := GenerateInstallCommands("a/b", "mkt", "plug")
	want := []string{"/plugin marketplace add a/b", "/plugin install plug@mkt"}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("GenerateInstallCommands = %v, want %v", got, want)
	}
}
