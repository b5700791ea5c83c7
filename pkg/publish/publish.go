// Package publish materializes the final browse documents consumed by
// the directory front end: a global index, one detail document per
// author, and flattened marketplace and plugin listings with
// denormalized author fields so clients render without joins.
package publish

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/charmbracelet/log"

	"github.com/plugdex/plugdex/pkg/github"
	"github.com/plugdex/plugdex/pkg/market"
)

// Document filenames under the publish directory.
const (
	IndexFile        = "index.json"
	MarketplacesFile = "marketplaces.json"
	PluginsFile      = "plugins.json"
	AuthorsDir       = "authors"
)

// AuthorSummary is one row of the index document.
type AuthorSummary struct {
	ID          string             `json:"id"`
	DisplayName string             `json:"display_name"`
	Type        string             `json:"type,omitempty"`
	AvatarURL   string             `json:"avatar_url,omitempty"`
	Stats       market.AuthorStats `json:"stats"`
}

// IndexDoc is the top-level directory document.
type IndexDoc struct {
	GeneratedAt time.Time           `json:"generated_at"`
	Totals      market.Totals       `json:"totals"`
	Authors     []AuthorSummary     `json:"authors"`
	Dropped     []market.DropRecord `json:"dropped_repos"`
}

// AuthorDoc is one author's detail document.
type AuthorDoc struct {
	GeneratedAt time.Time             `json:"generated_at"`
	Totals      market.Totals         `json:"totals"`
	Author      market.EnrichedAuthor `json:"author"`
}

// MarketplaceRow is a flattened marketplace carrying its author fields.
type MarketplaceRow struct {
	market.EnrichedMarketplace
	AuthorID   string `json:"author_id"`
	AuthorName string `json:"author_name"`
}

// MarketplacesDoc is the flattened marketplace listing, ordered by
// trending score descending.
type MarketplacesDoc struct {
	GeneratedAt  time.Time        `json:"generated_at"`
	Totals       market.Totals    `json:"totals"`
	Marketplaces []MarketplaceRow `json:"marketplaces"`
}

// PluginRow is a flattened plugin carrying author and marketplace
// fields.
type PluginRow struct {
	market.Plugin
	MarketplaceName string `json:"marketplace_name"`
	RepoFullName    string `json:"repo_full_name"`
	AuthorID        string `json:"author_id"`
	AuthorName      string `json:"author_name"`
	Stars           int    `json:"stars"`
}

// PluginsDoc is the flattened plugin listing, ordered by stars
// descending.
type PluginsDoc struct {
	GeneratedAt time.Time     `json:"generated_at"`
	Totals      market.Totals `json:"totals"`
	Plugins     []PluginRow   `json:"plugins"`
}

// Writer publishes the aggregate into a directory.
type Writer struct {
	dir    string
	logger *log.Logger
	now    func() time.Time
}

// NewWriter creates a writer rooted at dir. logger may be nil.
func NewWriter(dir string, logger *log.Logger) *Writer {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Writer{dir: dir, logger: logger, now: time.Now}
}

// WriteAll publishes every document and returns how many were written.
// The totals embedded in each document come from the same aggregate
// value, so they agree byte for byte everywhere they repeat.
func (w *Writer) WriteAll(agg *market.Aggregate) (int, error) {
	if err := os.MkdirAll(filepath.Join(w.dir, AuthorsDir), 0o755); err != nil {
		return 0, err
	}
	now := w.now()
	written := 0

	index := IndexDoc{GeneratedAt: now, Totals: agg.Totals, Dropped: agg.DroppedRepos}
	for _, a := range agg.Authors {
		index.Authors = append(index.Authors, AuthorSummary{
			ID:          a.ID,
			DisplayName: a.DisplayName,
			Type:        a.Type,
			AvatarURL:   a.AvatarURL,
			Stats:       a.Stats,
		})
	}
	if err := w.writeJSON(IndexFile, index); err != nil {
		return written, err
	}
	written++

	for _, a := range agg.Authors {
		// Author ids become filenames; only validated logins pass.
		if err := github.ValidateOwner(a.ID); err != nil {
			w.logger.Warn("skipping author with unsafe id", "id", a.ID)
			continue
		}
		doc := AuthorDoc{GeneratedAt: now, Totals: agg.Totals, Author: a}
		if err := w.writeJSON(filepath.Join(AuthorsDir, a.ID+".json"), doc); err != nil {
			return written, err
		}
		written++
	}

	if err := w.writeJSON(MarketplacesFile, w.marketplacesDoc(agg, now)); err != nil {
		return written, err
	}
	written++

	if err := w.writeJSON(PluginsFile, w.pluginsDoc(agg, now)); err != nil {
		return written, err
	}
	written++

	w.logger.Info("published documents", "dir", w.dir, "files", written)
	return written, nil
}

func (w *Writer) marketplacesDoc(agg *market.Aggregate, now time.Time) MarketplacesDoc {
	doc := MarketplacesDoc{GeneratedAt: now, Totals: agg.Totals}
	for _, a := range agg.Authors {
		for _, m := range a.Marketplaces {
			doc.Marketplaces = append(doc.Marketplaces, MarketplaceRow{
				EnrichedMarketplace: m,
				AuthorID:            a.ID,
				AuthorName:          a.DisplayName,
			})
		}
	}
	sort.SliceStable(doc.Marketplaces, func(i, j int) bool {
		mi, mj := doc.Marketplaces[i], doc.Marketplaces[j]
		if mi.Signals.TrendingScore != mj.Signals.TrendingScore {
			return mi.Signals.TrendingScore > mj.Signals.TrendingScore
		}
		if mi.Signals.Stars != mj.Signals.Stars {
			return mi.Signals.Stars > mj.Signals.Stars
		}
		return mi.RepoFullName < mj.RepoFullName
	})
	return doc
}

func (w *Writer) pluginsDoc(agg *market.Aggregate, now time.Time) PluginsDoc {
	doc := PluginsDoc{GeneratedAt: now, Totals: agg.Totals}
	for _, a := range agg.Authors {
		for _, m := range a.Marketplaces {
			for _, p := range m.Plugins {
				doc.Plugins = append(doc.Plugins, PluginRow{
					Plugin:          p,
					MarketplaceName: m.Name,
					RepoFullName:    m.RepoFullName,
					AuthorID:        a.ID,
					AuthorName:      a.DisplayName,
					Stars:           m.Signals.Stars,
				})
			}
		}
	}
	sort.SliceStable(doc.Plugins, func(i, j int) bool {
		if doc.Plugins[i].Stars != doc.Plugins[j].Stars {
			return doc.Plugins[i].Stars > doc.Plugins[j].Stars
		}
		return doc.Plugins[i].Name < doc.Plugins[j].Name
	})
	return doc
}

func (w *Writer) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(w.dir, name)
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
