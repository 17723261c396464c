// Package linear implements the issue source client over the Linear
// GraphQL API. Containers are teams; items are the team's issues
// updated inside the sync window, with their comment threads inlined.
package linear

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/inlet/internal/core/domain"
	"github.com/custodia-labs/inlet/internal/core/ports/driven"
)

const (
	// DefaultEndpoint is the Linear GraphQL endpoint.
	DefaultEndpoint = "https://api.linear.app/graphql"

	// MaxItemsPerContainer caps items fetched per team per run.
	MaxItemsPerContainer = 1000

	// pageSize is the per-request issue page size.
	pageSize = 50

	// requestTimeout bounds one API call.
	requestTimeout = 30 * time.Second

	// apiRate is the proactive throttle (Linear allows ~1500 req/h).
	apiRate = rate.Limit(0.4)
)

const teamsQuery = `
query Teams($cursor: String) {
  teams(first: 100, after: $cursor) {
    nodes { id name }
    pageInfo { hasNextPage endCursor }
  }
}`

const issuesQuery = `
query TeamIssues($team: ID!, $from: DateTimeOrDuration!, $to: DateTimeOrDuration!, $first: Int!, $cursor: String) {
  issues(
    filter: {team: {id: {eq: $team}}, updatedAt: {gte: $from, lt: $to}}
    first: $first
    after: $cursor
    orderBy: updatedAt
  ) {
    nodes {
      identifier
      title
      description
      updatedAt
      creator { displayName }
      comments {
        nodes {
          body
          createdAt
          user { displayName }
        }
      }
    }
    pageInfo { hasNextPage endCursor }
  }
}`

// Ensure Client implements the interface.
var _ driven.SourceClient = (*Client)(nil)

// Client fetches teams and issues from Linear.
type Client struct {
	http     *http.Client
	endpoint string
	apiKey   string

	limiter *rate.Limiter
}

// Option configures the client.
type Option func(*Client)

// WithEndpoint overrides the GraphQL endpoint. Used by tests.
func WithEndpoint(u string) Option {
	return func(c *Client) { c.endpoint = u }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// New creates a Linear client with the given API key.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		http:     &http.Client{Timeout: requestTimeout},
		endpoint: DefaultEndpoint,
		apiKey:   apiKey,
		limiter:  rate.NewLimiter(apiRate, 2),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Provider returns the connector type this client serves.
func (c *Client) Provider() domain.ConnectorType {
	return domain.ConnectorLinear
}

// LookbackGrace returns the same-day re-cover span.
func (c *Client) LookbackGrace() time.Duration {
	return domain.DefaultLookbackGrace
}

type pageInfo struct {
	HasNextPage bool   `json:"hasNextPage"`
	EndCursor   string `json:"endCursor"`
}

type teamsData struct {
	Teams struct {
		Nodes []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"nodes"`
		PageInfo pageInfo `json:"pageInfo"`
	} `json:"teams"`
}

// ListContainers enumerates the workspace's teams.
func (c *Client) ListContainers(ctx context.Context) ([]driven.Container, error) {
	var containers []driven.Container

	cursor := ""
	for {
		vars := map[string]any{}
		if cursor != "" {
			vars["cursor"] = cursor
		}

		var data teamsData
		if err := c.query(ctx, teamsQuery, vars, &data); err != nil {
			return nil, err
		}

		for _, team := range data.Teams.Nodes {
			containers = append(containers, driven.Container{
				ID:         team.ID,
				Name:       team.Name,
				Accessible: true,
			})
		}

		if !data.Teams.PageInfo.HasNextPage {
			break
		}
		cursor = data.Teams.PageInfo.EndCursor
	}

	return containers, nil
}

type issuesData struct {
	Issues struct {
		Nodes []struct {
			Identifier  string    `json:"identifier"`
			Title       string    `json:"title"`
			Description string    `json:"description"`
			UpdatedAt   time.Time `json:"updatedAt"`
			Creator     *struct {
				DisplayName string `json:"displayName"`
			} `json:"creator"`
			Comments struct {
				Nodes []struct {
					Body      string    `json:"body"`
					CreatedAt time.Time `json:"createdAt"`
					User      *struct {
						DisplayName string `json:"displayName"`
					} `json:"user"`
				} `json:"nodes"`
			} `json:"comments"`
		} `json:"nodes"`
		PageInfo pageInfo `json:"pageInfo"`
	} `json:"issues"`
}

// FetchItems returns a team's issues updated inside the window. Each
// issue yields one item for its description and one per comment, so
// the chat renderer reads as a thread.
func (c *Client) FetchItems(ctx context.Context, containerID string, window domain.SyncWindow) ([]driven.RawItem, error) {
	var items []driven.RawItem

	cursor := ""
	for len(items) < MaxItemsPerContainer {
		vars := map[string]any{
			"team":  containerID,
			"from":  window.From.UTC().Format(time.RFC3339),
			"to":    window.To.UTC().Format(time.RFC3339),
			"first": pageSize,
		}
		if cursor != "" {
			vars["cursor"] = cursor
		}

		var data issuesData
		if err := c.query(ctx, issuesQuery, vars, &data); err != nil {
			return nil, err
		}

		for _, issue := range data.Issues.Nodes {
			creator := "Unknown"
			if issue.Creator != nil && issue.Creator.DisplayName != "" {
				creator = issue.Creator.DisplayName
			}

			text := issue.Title
			if strings.TrimSpace(issue.Description) != "" {
				text += "\n\n" + issue.Description
			}
			items = append(items, driven.RawItem{
				ID:          issue.Identifier,
				ContainerID: containerID,
				Author:      issue.Identifier + " " + creator,
				Timestamp:   issue.UpdatedAt,
				Text:        text,
			})

			for i, comment := range issue.Comments.Nodes {
				author := "Unknown"
				if comment.User != nil && comment.User.DisplayName != "" {
					author = comment.User.DisplayName
				}
				items = append(items, driven.RawItem{
					ID:          fmt.Sprintf("%s/comment/%d", issue.Identifier, i),
					ContainerID: containerID,
					Author:      author,
					Timestamp:   comment.CreatedAt,
					Text:        comment.Body,
				})
			}

			if len(items) >= MaxItemsPerContainer {
				break
			}
		}

		if !data.Issues.PageInfo.HasNextPage {
			break
		}
		cursor = data.Issues.PageInfo.EndCursor
	}

	if len(items) > MaxItemsPerContainer {
		items = items[:MaxItemsPerContainer]
	}
	return items, nil
}

// graphqlError is one entry of a GraphQL errors array.
type graphqlError struct {
	Message    string `json:"message"`
	Extensions struct {
		Code string `json:"code"`
	} `json:"extensions"`
}

// query performs one GraphQL request and decodes the data field.
func (c *Client) query(ctx context.Context, query string, vars map[string]any, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	body, err := json.Marshal(map[string]any{"query": query, "variables": vars})
	if err != nil {
		return fmt.Errorf("linear: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("linear: create request: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("linear: query: %w", err)
	}
	defer resp.Body.Close()

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []graphqlError  `json:"errors"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 8<<20)).Decode(&envelope); err != nil {
		if resp.StatusCode != http.StatusOK {
			return mapError(resp.StatusCode, "", resp.Status)
		}
		return fmt.Errorf("linear: decode response: %w", err)
	}

	if len(envelope.Errors) > 0 {
		first := envelope.Errors[0]
		return mapError(resp.StatusCode, first.Extensions.Code, first.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return mapError(resp.StatusCode, "", resp.Status)
	}

	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("linear: decode data: %w", err)
	}
	return nil
}
