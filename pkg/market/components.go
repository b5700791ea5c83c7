package market

import (
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

// Component directories recognized inside a plugin repository.
var componentDirs = map[string]func(*ComponentCounts){
	"commands": func(c *ComponentCounts) { c.Commands++ },
	"skills":   func(c *ComponentCounts) { c.Skills++ },
	"agents":   func(c *ComponentCounts) { c.Agents++ },
	"hooks":    func(c *ComponentCounts) { c.Hooks++ },
}

// CountComponents tallies component files from a repository tree
// listing. A component is a markdown file under one of the known
// directories, at any nesting depth.
func CountComponents(paths []string) ComponentCounts {
	var counts ComponentCounts
	for _, p := range paths {
		if !strings.HasSuffix(p, ".md") {
			continue
		}
		for _, seg := range strings.Split(path.Dir(p), "/") {
			if bump, ok := componentDirs[seg]; ok {
				bump(&counts)
				break
			}
		}
	}
	return counts
}

// FrontMatter is the YAML header of a command/skill/agent file.
type FrontMatter struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

const frontMatterDelim = "---"

// ParseFrontMatter splits a markdown document into its YAML front
// matter and body. Documents without a front matter block return a zero
// FrontMatter and the full content as body.
func ParseFrontMatter(content string) (FrontMatter, string, error) {
	var fm FrontMatter

	rest, ok := strings.CutPrefix(content, frontMatterDelim+"\n")
	if !ok {
		return fm, content, nil
	}
	header, body, ok := strings.Cut(rest, "\n"+frontMatterDelim)
	if !ok {
		return fm, content, nil
	}
	body = strings.TrimPrefix(body, "\n")

	if err := yaml.Unmarshal([]byte(header), &fm); err != nil {
		return FrontMatter{}, content, err
	}
	return fm, body, nil
}
