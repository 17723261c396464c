// Package github implements the repository source client over the
// GitHub REST API via go-github. Containers are repositories the token
// can access; items are markdown files from repositories pushed to
// inside the sync window.
package github

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v80/github"
	"golang.org/x/oauth2"

	"github.com/custodia-labs/inlet/internal/core/domain"
	"github.com/custodia-labs/inlet/internal/core/ports/driven"
)

const (
	// DefaultTimeout is the HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// MaxItemsPerContainer caps markdown files fetched per repository.
	MaxItemsPerContainer = 1000

	// maxFileSize skips blobs above this size (bytes). Larger files
	// need the raw download endpoint and rarely hold prose.
	maxFileSize = 1 << 20
)

// Ensure Client implements the interface.
var _ driven.SourceClient = (*Client)(nil)

// Client fetches repositories and markdown content from GitHub.
type Client struct {
	gh      *gh.Client
	limiter *RateLimiter
}

// Option configures the client.
type Option func(*Client)

// WithBaseURL points the client at a different API root. Used by tests.
func WithBaseURL(raw string) Option {
	return func(c *Client) {
		u, err := url.Parse(strings.TrimSuffix(raw, "/") + "/")
		if err != nil {
			return
		}
		c.gh.BaseURL = u
	}
}

// New creates a GitHub client authenticated with a personal access
// token.
func New(token string, opts ...Option) *Client {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	tc := oauth2.NewClient(context.Background(), ts)
	tc.Timeout = DefaultTimeout

	c := &Client{
		gh:      gh.NewClient(tc),
		limiter: NewRateLimiter(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Provider returns the connector type this client serves.
func (c *Client) Provider() domain.ConnectorType {
	return domain.ConnectorGitHub
}

// LookbackGrace returns the same-day re-cover span.
func (c *Client) LookbackGrace() time.Duration {
	return domain.DefaultLookbackGrace
}

// ListContainers returns every repository the token can access, owned
// plus collaborator plus organization repos.
func (c *Client) ListContainers(ctx context.Context) ([]driven.Container, error) {
	var containers []driven.Container

	opts := &gh.RepositoryListByAuthenticatedUserOptions{
		Visibility:  "all",
		Affiliation: "owner,collaborator,organization_member",
		Sort:        "updated",
		Direction:   "desc",
		ListOptions: gh.ListOptions{PerPage: 100},
	}

	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		repos, resp, err := c.gh.Repositories.ListByAuthenticatedUser(ctx, opts)
		if err != nil {
			return nil, wrapError(err, "list repositories", c.limiter)
		}
		c.updateRateLimit(resp)

		for _, repo := range repos {
			containers = append(containers, driven.Container{
				ID:         repo.GetFullName(),
				Name:       repo.GetFullName(),
				Accessible: !repo.GetDisabled(),
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return containers, nil
}

// FetchItems returns a repository's markdown files as items, one per
// file. Repositories not pushed to inside the window yield no items,
// so idle repositories cost one request per run.
func (c *Client) FetchItems(ctx context.Context, containerID string, window domain.SyncWindow) ([]driven.RawItem, error) {
	owner, name, err := splitFullName(containerID)
	if err != nil {
		return nil, err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	repo, resp, err := c.gh.Repositories.Get(ctx, owner, name)
	if err != nil {
		return nil, wrapError(err, "get repository", c.limiter)
	}
	c.updateRateLimit(resp)

	pushedAt := repo.GetPushedAt().Time
	if !window.Contains(pushedAt) {
		return nil, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	tree, resp, err := c.gh.Git.GetTree(ctx, owner, name, repo.GetDefaultBranch(), true)
	if err != nil {
		return nil, wrapError(err, "get tree", c.limiter)
	}
	c.updateRateLimit(resp)

	var items []driven.RawItem
	for _, entry := range tree.Entries {
		if entry.GetType() != "blob" || !isMarkdown(entry.GetPath()) || entry.GetSize() > maxFileSize {
			continue
		}
		if len(items) >= MaxItemsPerContainer {
			break
		}

		content, err := c.blobContent(ctx, owner, name, entry.GetSHA())
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(content) == "" {
			continue
		}

		items = append(items, driven.RawItem{
			ID:          containerID + "/" + entry.GetPath(),
			ContainerID: containerID,
			Author:      entry.GetPath(),
			Timestamp:   pushedAt,
			Text:        content,
		})
	}

	return items, nil
}

// blobContent fetches and decodes one blob.
func (c *Client) blobContent(ctx context.Context, owner, name, sha string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	blob, resp, err := c.gh.Git.GetBlob(ctx, owner, name, sha)
	if err != nil {
		return "", wrapError(err, "get blob", c.limiter)
	}
	c.updateRateLimit(resp)

	content := blob.GetContent()
	if blob.GetEncoding() == "base64" {
		decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(content, "\n", ""))
		if err != nil {
			return "", fmt.Errorf("github: decode blob %s: %w", sha, err)
		}
		return string(decoded), nil
	}
	return content, nil
}

func (c *Client) updateRateLimit(resp *gh.Response) {
	if resp == nil || resp.Response == nil {
		return
	}
	c.limiter.UpdateFromResponse(resp.Response)
}

// splitFullName splits "owner/repo" into its parts.
func splitFullName(fullName string) (owner, name string, err error) {
	owner, name, ok := strings.Cut(fullName, "/")
	if !ok || owner == "" || name == "" {
		return "", "", fmt.Errorf("%w: repository id %q is not owner/name",
			domain.ErrInvalidInput, fullName)
	}
	return owner, name, nil
}

// isMarkdown reports whether a path looks like a markdown document.
func isMarkdown(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasSuffix(lower, ".md") || strings.HasSuffix(lower, ".markdown")
}
