package market

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ValidationResult records why a manifest was rejected. Invalid
// manifests are excluded with their error list attached, never
// silently dropped.
type ValidationResult struct {
	FullName string   `json:"full_name"`
	Path     string   `json:"path"`
	Errors   []string `json:"errors"`
}

// Valid reports whether the manifest passed validation.
func (v ValidationResult) Valid() bool { return len(v.Errors) == 0 }

// manifestWire tolerates the loose shapes manifests appear in: plugins
// may be objects or bare name strings, and source may be a string or a
// structured object.
type manifestWire struct {
	Name        string            `json:"name"`
	Version     string            `json:"version"`
	Description string            `json:"description"`
	Owner       json.RawMessage   `json:"owner"`
	Plugins     []json.RawMessage `json:"plugins"`
}

type pluginWire struct {
	Name        string          `json:"name"`
	Source      json.RawMessage `json:"source"`
	Description string          `json:"description"`
	Version     string          `json:"version"`
	Author      json.RawMessage `json:"author"`
	Category    string          `json:"category"`
	Keywords    []string        `json:"keywords"`
}

// ParseManifest parses and validates a raw manifest document. On
// success the returned ValidationResult has no errors; on failure the
// manifest is nil and the result lists every problem found.
func ParseManifest(fullName, path, content string) (*ParsedManifest, ValidationResult) {
	result := ValidationResult{FullName: fullName, Path: path}

	var wire manifestWire
	if err := json.Unmarshal([]byte(content), &wire); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("malformed JSON: %v", err))
		return nil, result
	}

	if strings.TrimSpace(wire.Name) == "" {
		result.Errors = append(result.Errors, "manifest has no name")
	}

	m := Manifest{
		Name:        strings.TrimSpace(wire.Name),
		Version:     wire.Version,
		Description: wire.Description,
	}

	for i, raw := range wire.Plugins {
		p, errs := parsePlugin(i, raw)
		if len(errs) > 0 {
			result.Errors = append(result.Errors, errs...)
			continue
		}
		m.Plugins = append(m.Plugins, p)
	}

	if len(result.Errors) > 0 {
		return nil, result
	}
	return &ParsedManifest{FullName: fullName, Path: path, Data: m}, result
}

func parsePlugin(i int, raw json.RawMessage) (ManifestPlugin, []string) {
	// Bare string form: the name alone.
	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		if strings.TrimSpace(name) == "" {
			return ManifestPlugin{}, []string{fmt.Sprintf("plugins[%d]: empty name", i)}
		}
		return ManifestPlugin{Name: strings.TrimSpace(name)}, nil
	}

	var wire pluginWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return ManifestPlugin{}, []string{fmt.Sprintf("plugins[%d]: not an object or string: %v", i, err)}
	}
	if strings.TrimSpace(wire.Name) == "" {
		return ManifestPlugin{}, []string{fmt.Sprintf("plugins[%d]: missing name", i)}
	}

	return ManifestPlugin{
		Name:        strings.TrimSpace(wire.Name),
		Source:      flattenRaw(wire.Source),
		Description: wire.Description,
		Version:     wire.Version,
		Author:      flattenRaw(wire.Author),
		Category:    wire.Category,
		Keywords:    wire.Keywords,
	}, nil
}

// flattenRaw reduces a string-or-object field to a display string. An
// object is reduced to its "name" or "source" member when present.
func flattenRaw(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return ""
	}
	for _, key := range []string{"name", "source", "url"} {
		if v, ok := obj[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
