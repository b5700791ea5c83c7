package market

import "testing"

func TestParseManifest(t *testing.T) {
	content := `{
		"name": "acme-tools",
		"version": "1.2.0",
		"description": "Helpers",
		"plugins": [
			{"name": "deploy", "source": "./plugins/deploy", "description": "Ship it"},
			"bare-name",
			{"name": "lint", "author": {"name": "Acme"}}
		]
	}`
	m, res := ParseManifest("acme/tools", ".claude-plugin/marketplace.json", content)
	if !res.Valid() {
		t.Fatalf("validation errors: %v", res.Errors)
	}
	if m.Data.Name != "acme-tools" || m.Data.Version != "1.2.0" {
		t.Errorf("manifest header = %+v", m.Data)
	}
	if len(m.Data.Plugins) != 3 {
		t.Fatalf("plugins = %d, want 3", len(m.Data.Plugins))
	}
	if m.Data.Plugins[0].Source != "./plugins/deploy" {
		t.Errorf("source = %q", m.Data.Plugins[0].Source)
	}
	if m.Data.Plugins[1].Name != "bare-name" {
		t.Errorf("bare string plugin = %+v", m.Data.Plugins[1])
	}
	if m.Data.Plugins[2].Author != "Acme" {
		t.Errorf("structured author flattened to %q, want Acme", m.Data.Plugins[2].Author)
	}
}

func TestParseManifestInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"malformed json", `{"name": "x",`},
		{"missing name", `{"plugins": []}`},
		{"blank name", `{"name": "   "}`},
		{"plugin without name", `{"name": "m", "plugins": [{"description": "no name"}]}`},
		{"plugin empty string", `{"name": "m", "plugins": [""]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, res := ParseManifest("o/r", "path", tt.content)
			if m != nil {
				t.Error("invalid manifest should return nil")
			}
			if res.Valid() {
				t.Error("validation result should carry errors")
			}
			if res.FullName != "o/r" {
				t.Errorf("result keeps provenance, got %q", res.FullName)
			}
		})
	}
}

func TestCountComponents(t *testing.T) {
	paths := []string{
		"commands/deploy.md",
		"commands/nested/build.md",
		"skills/review/SKILL.md",
		"agents/helper.md",
		"hooks/pre-commit.md",
		"commands/ignore.txt",
		"README.md",
		"docs/commands.md",
	}
	got := CountComponents(paths)
	want := ComponentCounts{Commands: 2, Skills: 1, Agents: 1, Hooks: 1}
	if got != want {
		t.Errorf("CountComponents = %+v, want %+v", got, want)
	}
	if got.Total() != 5 {
		t.Errorf("Total = %d, want 5", got.Total())
	}
}

func TestParseFrontMatter(t *testing.T) {
	fm, body, err := ParseFrontMatter("---\nname: deploy\ndescription: Ship it\n---\n# Deploy\n")
	if err != nil {
		t.Fatalf("ParseFrontMatter: %v", err)
	}
	if fm.Name != "deploy" || fm.Description != "Ship it" {
		t.Errorf("front matter = %+v", fm)
	}
	if body != "# Deploy\n" {
		t.Errorf("body = %q", body)
	}

	fm, body, err = ParseFrontMatter("# Plain doc\n")
	if err != nil || fm.Name != "" || body != "# Plain doc\n" {
		t.Errorf("no front matter: fm=%+v body=%q err=%v", fm, body, err)
	}

	if _, _, err := ParseFrontMatter("---\n\t: bad\n---\nbody"); err == nil {
		t.Error("bad YAML header should error")
	}
}
