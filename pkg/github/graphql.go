package github

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// batchSize is the number of sub-queries combined into one GraphQL round
// trip. Around 15 keeps each query comfortably under the cost-point
// budget while still collapsing most of the round trips.
const batchSize = 15

// EscapeString escapes a value for interpolation into a GraphQL string
// literal: backslashes first, then double quotes. Every free-text value
// that reaches a query document must pass through here.
func EscapeString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}

type gqlError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type gqlResponse struct {
	Data   map[string]json.RawMessage `json:"data"`
	Errors []gqlError                 `json:"errors"`
}

// repoNode mirrors the repository sub-query result.
type repoNode struct {
	NameWithOwner  string     `json:"nameWithOwner"`
	Description    string     `json:"description"`
	HomepageURL    string     `json:"homepageUrl"`
	StargazerCount int        `json:"stargazerCount"`
	ForkCount      int        `json:"forkCount"`
	PushedAt       *time.Time `json:"pushedAt"`
	CreatedAt      *time.Time `json:"createdAt"`
	LicenseInfo    *struct {
		SpdxID string `json:"spdxId"`
	} `json:"licenseInfo"`
	DefaultBranchRef *struct {
		Name   string `json:"name"`
		Target struct {
			OID string `json:"oid"`
		} `json:"target"`
	} `json:"defaultBranchRef"`
	Owner struct {
		Login     string `json:"login"`
		Typename  string `json:"__typename"`
		AvatarURL string `json:"avatarUrl"`
		URL       string `json:"url"`
		Name      string `json:"name"`
		Bio       string `json:"bio"`
		Company   string `json:"company"`
		Followers *struct {
			TotalCount int `json:"totalCount"`
		} `json:"followers"`
	} `json:"owner"`
}

// blobNode mirrors the object(expression:) sub-query result.
type blobNode struct {
	Text     string `json:"text"`
	ByteSize int    `json:"byteSize"`
	IsBinary bool   `json:"isBinary"`
}

const repoFragment = `fragment repoFields on Repository {
  nameWithOwner
  description
  homepageUrl
  stargazerCount
  forkCount
  pushedAt
  createdAt
  licenseInfo { spdxId }
  defaultBranchRef { name target { oid } }
  owner {
    login
    __typename
    avatarUrl
    url
    ... on User { name bio company followers { totalCount } }
    ... on Organization { name description }
  }
}`

// buildRepoBatchQuery combines one batch of repo lookups into a single
// query document. Aliases carry the batch index so no two batches can
// ever produce colliding keys.
func buildRepoBatchQuery(batch int, refs []RepoRef) string {
	var b strings.Builder
	b.WriteString("query {\n")
	for i, ref := range refs {
		fmt.Fprintf(&b, "  b%d_r%d: repository(owner: \"%s\", name: \"%s\") { ...repoFields }\n",
			batch, i, EscapeString(ref.Owner), EscapeString(ref.Repo))
	}
	b.WriteString("}\n")
	b.WriteString(repoFragment)
	return b.String()
}

// BatchGetRepos fetches metadata for a list of repositories in combined
// queries of up to batchSize sub-queries each. Owners are merged by
// login. Repositories the API reports as null (deleted, renamed, or
// private) are simply absent from the result; the caller records the
// drop. A batch that fails after exhausting retries lands its refs in
// Failed and never discards what earlier batches fetched; only a
// cancelled context aborts the walk.
func (c *Client) BatchGetRepos(ctx context.Context, refs []RepoRef) (*BatchRepos, error) {
	out := &BatchRepos{
		Repos:  make(map[string]Repo, len(refs)),
		Owners: make(map[string]Owner),
	}

	for batch := 0; batch*batchSize < len(refs); batch++ {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		chunk := refs[batch*batchSize : min((batch+1)*batchSize, len(refs))]

		var resp gqlResponse
		if err := c.postGraphQL(ctx, "batch_get_repos", buildRepoBatchQuery(batch, chunk), &resp); err != nil {
			c.logger.Warn("repo batch failed", "batch", batch, "repos", len(chunk), "err", err)
			out.Failed = append(out.Failed, chunk...)
			continue
		}
		for _, e := range resp.Errors {
			// NOT_FOUND errors just null the alias; anything else is logged.
			if e.Type != "NOT_FOUND" {
				c.logger.Warn("graphql error", "op", "batch_get_repos", "type", e.Type, "msg", e.Message)
			}
		}

		for i := range chunk {
			raw, ok := resp.Data[fmt.Sprintf("b%d_r%d", batch, i)]
			if !ok || string(raw) == "null" {
				continue
			}
			var node repoNode
			if err := json.Unmarshal(raw, &node); err != nil {
				c.logger.Warn("bad repo node", "repo", chunk[i].FullName(), "err", err)
				continue
			}
			repo, owner := node.toRecords()
			out.Repos[repo.FullName] = repo
			if _, seen := out.Owners[owner.Login]; !seen {
				out.Owners[owner.Login] = owner
			}
		}
	}
	return out, nil
}

func (n *repoNode) toRecords() (Repo, Owner) {
	repo := Repo{
		FullName:    n.NameWithOwner,
		Description: n.Description,
		Homepage:    n.HomepageURL,
		Stars:       n.StargazerCount,
		Forks:       n.ForkCount,
		PushedAt:    n.PushedAt,
		CreatedAt:   n.CreatedAt,
		OwnerLogin:  n.Owner.Login,
	}
	if n.LicenseInfo != nil {
		repo.License = n.LicenseInfo.SpdxID
	}
	if n.DefaultBranchRef != nil {
		repo.DefaultBranch = n.DefaultBranchRef.Name
		repo.DefaultBranchCommit = n.DefaultBranchRef.Target.OID
	}

	owner := Owner{
		Login:       n.Owner.Login,
		DisplayName: n.Owner.Name,
		Type:        n.Owner.Typename,
		AvatarURL:   n.Owner.AvatarURL,
		URL:         n.Owner.URL,
		Bio:         n.Owner.Bio,
		Company:     n.Owner.Company,
	}
	if owner.DisplayName == "" {
		owner.DisplayName = n.Owner.Login
	}
	if n.Owner.Followers != nil {
		owner.Followers = n.Owner.Followers.TotalCount
	}
	return repo, owner
}

// buildFileBatchQuery combines one batch of blob lookups against a single
// repository and ref.
func buildFileBatchQuery(batch int, owner, repo, ref string, paths []string) string {
	var b strings.Builder
	b.WriteString("query {\n")
	fmt.Fprintf(&b, "  repository(owner: \"%s\", name: \"%s\") {\n",
		EscapeString(owner), EscapeString(repo))
	for i, path := range paths {
		fmt.Fprintf(&b, "    b%d_f%d: object(expression: \"%s:%s\") { ... on Blob { text byteSize isBinary } }\n",
			batch, i, EscapeString(ref), EscapeString(path))
	}
	b.WriteString("  }\n}\n")
	return b.String()
}

type fileQueryResponse struct {
	Data struct {
		Repository map[string]*blobNode `json:"repository"`
	} `json:"data"`
	Errors []gqlError `json:"errors"`
}

// BatchGetFiles fetches the contents of paths at ref in combined queries.
// When a whole batch fails, it falls back to one-at-a-time REST fetches
// so a single bad path cannot sink its batch. Binary blobs and paths the
// API nulls out are omitted from the result.
func (c *Client) BatchGetFiles(ctx context.Context, owner, repo, ref string, paths []string) (map[string]FileContent, error) {
	out := make(map[string]FileContent, len(paths))

	for batch := 0; batch*batchSize < len(paths); batch++ {
		chunk := paths[batch*batchSize : min((batch+1)*batchSize, len(paths))]

		var resp fileQueryResponse
		err := c.postGraphQL(ctx, "batch_get_files", buildFileBatchQuery(batch, owner, repo, ref, chunk), &resp)
		if err != nil || resp.Data.Repository == nil {
			if err != nil {
				c.logger.Warn("file batch failed, falling back to single fetches",
					"repo", owner+"/"+repo, "paths", len(chunk), "err", err)
			}
			c.fetchFilesSingly(ctx, owner, repo, ref, chunk, out)
			continue
		}

		for i, path := range chunk {
			node := resp.Data.Repository[fmt.Sprintf("b%d_f%d", batch, i)]
			if node == nil || node.IsBinary {
				continue
			}
			out[path] = FileContent{Path: path, Size: node.ByteSize, Content: node.Text}
		}
	}
	return out, nil
}

func (c *Client) fetchFilesSingly(ctx context.Context, owner, repo, ref string, paths []string, out map[string]FileContent) {
	for _, path := range paths {
		fc, ok := SafeCall(c.logger, "fetch_file "+path, func() (*FileContent, error) {
			return c.FetchFile(ctx, owner, repo, path, ref)
		})
		if ok && fc != nil {
			out[path] = *fc
		}
	}
}
