package pipeline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/plugdex/plugdex/pkg/config"
	"github.com/plugdex/plugdex/pkg/github"
	"github.com/plugdex/plugdex/pkg/market"
)

func noProgress(int, int) {}

func TestParseStage(t *testing.T) {
	dir := t.TempDir()
	rc := testRunContext(t, dir)

	rc.Discovered = []market.DiscoveredRepo{
		{Owner: "octo", Repo: "good", FullName: "octo/good", ManifestPath: canonicalManifestPath},
		{Owner: "octo", Repo: "bad", FullName: "octo/bad", ManifestPath: canonicalManifestPath},
		{Owner: "octo", Repo: "empty", FullName: "octo/empty", ManifestPath: canonicalManifestPath},
	}
	rc.Repos = map[string]github.Repo{
		"octo/good":  {FullName: "octo/good"},
		"octo/bad":   {FullName: "octo/bad"},
		"octo/empty": {FullName: "octo/empty"},
	}
	rc.Trees = map[string]RepoTree{
		"octo/good": {Paths: []string{"commands/deploy.md", "skills/review/SKILL.md"}},
	}
	rc.Files = map[string]map[string]string{
		"octo/good": {
			canonicalManifestPath: `{"name": "good", "plugins": [{"name": "deploy"}]}`,
			"commands/deploy.md":  "---\ndescription: Ship it\n---\nbody",
		},
		"octo/bad": {
			canonicalManifestPath: `{"plugins": "nope"`,
		},
	}

	if err := (ParseStage{}).Run(context.Background(), rc, noProgress); err != nil {
		t.Fatalf("ParseStage: %v", err)
	}

	if len(rc.Manifests) != 1 || rc.Manifests[0].FullName != "octo/good" {
		t.Errorf("manifests = %+v", rc.Manifests)
	}
	if len(rc.Invalid) != 1 {
		t.Errorf("invalid = %d, want 1", len(rc.Invalid))
	}
	if got := rc.Components["octo/good"]; got.Commands != 1 || got.Skills != 1 {
		t.Errorf("components = %+v", got)
	}

	reasons := map[string]string{}
	for _, d := range rc.Drops() {
		reasons[d.FullName] = d.Reason
	}
	if reasons["octo/bad"] != market.DropInvalidManifest {
		t.Errorf("octo/bad reason = %q", reasons["octo/bad"])
	}
	if reasons["octo/empty"] != market.DropNotFound {
		t.Errorf("octo/empty reason = %q", reasons["octo/empty"])
	}
}

func TestTrendingStageFillsSignals(t *testing.T) {
	dir := t.TempDir()
	rc := testRunContext(t, dir)

	now := time.Now()
	day := func(ago int) string { return now.AddDate(0, 0, -ago).Format("2006-01-02") }

	rc.History = &market.SignalsHistory{Repos: map[string][]market.Snapshot{
		"octo/widgets": {
			{Date: day(14), Stars: 100},
			{Date: day(7), Stars: 110},
		},
	}}
	rc.Aggregate = &market.Aggregate{
		Totals: market.Totals{TotalMarketplaces: 2},
		Authors: []market.EnrichedAuthor{{
			ID: "octo",
			Marketplaces: []market.EnrichedMarketplace{
				{RepoFullName: "octo/widgets", Signals: market.Signals{Stars: 130}},
				{RepoFullName: "octo/fresh", Signals: market.Signals{Stars: 5}},
			},
		}},
	}

	if err := (TrendingStage{}).Run(context.Background(), rc, noProgress); err != nil {
		t.Fatalf("TrendingStage: %v", err)
	}

	scored := rc.Aggregate.Authors[0].Marketplaces[0].Signals
	if scored.InsufficientData {
		t.Error("two snapshots should be sufficient")
	}
	if scored.StarsGained7d != 20 {
		t.Errorf("stars_gained_7d = %d, want 20", scored.StarsGained7d)
	}

	fresh := rc.Aggregate.Authors[0].Marketplaces[1].Signals
	if !fresh.InsufficientData {
		t.Error("no history should flag insufficient_data")
	}
}

func TestInterestingPath(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{".claude-plugin/marketplace.json", true},
		{".claude-plugin/plugin.json", true},
		{"commands/deploy.md", true},
		{"skills/review/SKILL.md", true},
		{"agents/helper.md", true},
		{"hooks/pre.md", true},
		{"README.md", true},
		{"docs/guide.md", false},
		{"commands/logo.png", false},
		{"src/main.go", false},
	}
	for _, tt := range tests {
		if got := interestingPath(tt.path); got != tt.want {
			t.Errorf("interestingPath(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestSelectPaths(t *testing.T) {
	tree := make([]string, 100)
	for i := range tree {
		tree[i] = "commands/c" + string(rune('a'+i%26)) + ".md"
	}
	got := selectPaths(canonicalManifestPath, tree)
	if got[0] != canonicalManifestPath {
		t.Errorf("manifest path must come first, got %q", got[0])
	}
	if len(got) > maxFilesPerRepo {
		t.Errorf("paths = %d, cap is %d", len(got), maxFilesPerRepo)
	}
}

func TestSignalsStagePartialRunKeepsHistory(t *testing.T) {
	dir := t.TempDir()

	// Prior run's repo metadata and snapshot history on disk, nothing
	// in memory: the stage order started at signals.
	payload := fetchReposArtifact{
		Repos: map[string]github.Repo{"octo/widgets": {FullName: "octo/widgets", Stars: 130, Forks: 4}},
	}
	if err := writeArtifact(dir, "fetch-repos", nil, payload); err != nil {
		t.Fatal(err)
	}
	now := time.Now()
	day := func(ago int) string { return now.AddDate(0, 0, -ago).Format("2006-01-02") }
	seeded := &market.SignalsHistory{Repos: map[string][]market.Snapshot{
		"octo/widgets": {
			{Date: day(2), Stars: 100},
			{Date: day(1), Stars: 110},
		},
	}}
	if err := saveSignals(dir, seeded); err != nil {
		t.Fatal(err)
	}

	rc := testRunContext(t, dir)
	if err := (SignalsStage{}).Run(context.Background(), rc, noProgress); err != nil {
		t.Fatalf("SignalsStage: %v", err)
	}

	got, err := loadSignals(dir)
	if err != nil {
		t.Fatal(err)
	}
	snaps := got.Repos["octo/widgets"]
	if len(snaps) != 3 {
		t.Fatalf("snapshots = %d, want the 2 seeded plus today's", len(snaps))
	}
	if snaps[2].Stars != 130 {
		t.Errorf("today's snapshot stars = %d, want 130", snaps[2].Stars)
	}
}

func TestMergeStagePartialRunUsesArtifacts(t *testing.T) {
	dir := t.TempDir()

	discovered := []market.DiscoveredRepo{
		{Owner: "octo", Repo: "widgets", FullName: "octo/widgets", ManifestPath: canonicalManifestPath},
		{Owner: "ghost", Repo: "gone", FullName: "ghost/gone", ManifestPath: canonicalManifestPath},
	}
	if err := writeArtifact(dir, "discover", nil, discovered); err != nil {
		t.Fatal(err)
	}
	repos := fetchReposArtifact{
		Repos:  map[string]github.Repo{"octo/widgets": {FullName: "octo/widgets", Stars: 50}},
		Owners: map[string]github.Owner{"octo": {Login: "octo", DisplayName: "Octo"}},
	}
	if err := writeArtifact(dir, "fetch-repos", nil, repos); err != nil {
		t.Fatal(err)
	}
	parsed := parseArtifact{
		Manifests: []market.ParsedManifest{{
			FullName: "octo/widgets",
			Path:     canonicalManifestPath,
			Data: market.Manifest{
				Name:    "widgets",
				Plugins: []market.ManifestPlugin{{Name: "deploy"}},
			},
		}},
		Drops: []market.DropRecord{{FullName: "ghost/gone", Reason: market.DropNotFound}},
	}
	if err := writeArtifact(dir, "parse", nil, parsed); err != nil {
		t.Fatal(err)
	}

	rc := testRunContext(t, dir)
	if err := (MergeStage{}).Run(context.Background(), rc, noProgress); err != nil {
		t.Fatalf("MergeStage: %v", err)
	}

	if rc.Aggregate.Totals.TotalMarketplaces != 1 || rc.Aggregate.Totals.TotalPlugins != 1 {
		t.Errorf("totals = %+v, want 1 marketplace with 1 plugin", rc.Aggregate.Totals)
	}
	reasons := map[string]string{}
	for _, d := range rc.Aggregate.DroppedRepos {
		reasons[d.FullName] = d.Reason
	}
	if reasons["ghost/gone"] != market.DropNotFound {
		t.Errorf("prior drops were not carried: %v", reasons)
	}
}

func TestPartialRunWithoutArtifactsFails(t *testing.T) {
	rc := testRunContext(t, t.TempDir())
	if err := (SignalsStage{}).Run(context.Background(), rc, noProgress); err == nil {
		t.Error("signals without a fetch-repos artifact must fail, not prune everything")
	}
	if err := (MergeStage{}).Run(context.Background(), rc, noProgress); err == nil {
		t.Error("merge without predecessor artifacts must fail, not publish emptiness")
	}
}

func TestFetchReposStageRecordsFetchFailedDrops(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	client := github.NewClient(github.StaticToken("t"), nil)
	client.SetBaseURL(srv.URL)

	dir := t.TempDir()
	rc := NewRunContext(&config.Config{DataDir: dir}, client, nil, nil)
	rc.Discovered = []market.DiscoveredRepo{
		{Owner: "octo", Repo: "a", FullName: "octo/a", ManifestPath: canonicalManifestPath},
		{Owner: "octo", Repo: "b", FullName: "octo/b", ManifestPath: canonicalManifestPath},
	}

	if err := (FetchReposStage{}).Run(context.Background(), rc, noProgress); err != nil {
		t.Fatalf("a failed batch must not abort the stage: %v", err)
	}

	reasons := map[string]string{}
	for _, d := range rc.Drops() {
		reasons[d.FullName] = d.Reason
	}
	for _, name := range []string{"octo/a", "octo/b"} {
		if reasons[name] != market.DropFetchFailed {
			t.Errorf("%s reason = %q, want %q", name, reasons[name], market.DropFetchFailed)
		}
	}
}
