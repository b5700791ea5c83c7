package github

import (
	"context"
	"net/url"
)

// Code search caps results at 1000 regardless of total_count.
const (
	searchPerPage   = 100
	searchResultCap = 1000
)

// SearchCode runs one page of a code search. Pages are 1-based.
func (c *Client) SearchCode(ctx context.Context, query string, page int) (*SearchPage, error) {
	if page < 1 {
		page = 1
	}
	u := c.restURL("/search/code?q=%s&per_page=%d&page=%d", url.QueryEscape(query), searchPerPage, page)

	var resp searchResponse
	if err := c.getJSON(ctx, regimeSearch, "search_code", u, &resp); err != nil {
		return nil, err
	}

	out := &SearchPage{TotalCount: resp.TotalCount, Items: make([]SearchItem, 0, len(resp.Items))}
	for _, item := range resp.Items {
		out.Items = append(out.Items, SearchItem{
			Owner:    item.Repository.Owner.Login,
			Repo:     item.Repository.Name,
			FullName: item.Repository.FullName,
			Path:     item.Path,
		})
	}
	return out, nil
}

// SearchCodeAll paginates a code search to completion. It stops on an
// empty page, on a page shorter than a full page, on the hard 1000-result
// cap, or when limit results have been collected (limit 0 = unbounded).
func (c *Client) SearchCodeAll(ctx context.Context, query string, limit int) ([]SearchItem, error) {
	var items []SearchItem
	for page := 1; ; page++ {
		p, err := c.SearchCode(ctx, query, page)
		if err != nil {
			return items, err
		}
		items = append(items, p.Items...)

		if limit > 0 && len(items) >= limit {
			return items[:limit], nil
		}
		if len(p.Items) == 0 || len(p.Items) < searchPerPage {
			return items, nil
		}
		if page*searchPerPage >= searchResultCap {
			c.logger.Warn("search hit the result cap", "query", query, "cap", searchResultCap)
			return items, nil
		}
	}
}
