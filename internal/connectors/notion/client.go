// Package notion implements the page source client over the Notion
// REST API. Containers are pages shared with the integration; items
// are the page's top-level blocks, carrying their child block trees.
package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/inlet/internal/core/domain"
	"github.com/custodia-labs/inlet/internal/core/ports/driven"
)

const (
	// DefaultBaseURL is the Notion REST API root.
	DefaultBaseURL = "https://api.notion.com"

	// apiVersion pins the Notion-Version header.
	apiVersion = "2022-06-28"

	// MaxItemsPerContainer caps top-level blocks fetched per page.
	MaxItemsPerContainer = 1000

	// maxFetchDepth bounds child-block recursion per page.
	maxFetchDepth = 32

	// pageSize is the per-request result page size.
	pageSize = 100

	// requestTimeout bounds one API call.
	requestTimeout = 30 * time.Second

	// apiRate is the proactive throttle (Notion allows ~3 req/s).
	apiRate = rate.Limit(3)
)

// Ensure Client implements the interface.
var _ driven.SourceClient = (*Client)(nil)

// Client fetches pages and block trees from Notion.
type Client struct {
	http    *http.Client
	baseURL string
	token   string

	limiter *rate.Limiter
}

// Option configures the client.
type Option func(*Client)

// WithBaseURL overrides the API root. Used by tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimSuffix(u, "/") }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// New creates a Notion client with the given integration token.
func New(token string, opts ...Option) *Client {
	c := &Client{
		http:    &http.Client{Timeout: requestTimeout},
		baseURL: DefaultBaseURL,
		token:   token,
		limiter: rate.NewLimiter(apiRate, 3),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Provider returns the connector type this client serves.
func (c *Client) Provider() domain.ConnectorType {
	return domain.ConnectorNotion
}

// LookbackGrace returns the same-day re-cover span.
func (c *Client) LookbackGrace() time.Duration {
	return domain.DefaultLookbackGrace
}

// searchResponse is the /v1/search payload subset.
type searchResponse struct {
	Results []struct {
		ID             string                     `json:"id"`
		LastEditedTime time.Time                  `json:"last_edited_time"`
		Properties     map[string]json.RawMessage `json:"properties"`
	} `json:"results"`
	HasMore    bool   `json:"has_more"`
	NextCursor string `json:"next_cursor"`
}

// titleProperty is the shape of a page's title property value.
type titleProperty struct {
	Type  string `json:"type"`
	Title []struct {
		PlainText string `json:"plain_text"`
	} `json:"title"`
}

// ListContainers enumerates pages shared with the integration via the
// search endpoint.
func (c *Client) ListContainers(ctx context.Context) ([]driven.Container, error) {
	var containers []driven.Container

	cursor := ""
	for {
		body := map[string]any{
			"filter":    map[string]string{"property": "object", "value": "page"},
			"page_size": pageSize,
		}
		if cursor != "" {
			body["start_cursor"] = cursor
		}

		var resp searchResponse
		if err := c.call(ctx, http.MethodPost, "/v1/search", body, &resp); err != nil {
			return nil, err
		}

		for _, page := range resp.Results {
			containers = append(containers, driven.Container{
				ID:         page.ID,
				Name:       pageTitle(page.Properties),
				Accessible: true,
			})
		}

		if !resp.HasMore || resp.NextCursor == "" {
			break
		}
		cursor = resp.NextCursor
	}

	return containers, nil
}

// pageResponse is the /v1/pages/{id} payload subset.
type pageResponse struct {
	ID             string    `json:"id"`
	LastEditedTime time.Time `json:"last_edited_time"`
}

// blockChildrenResponse is the /v1/blocks/{id}/children payload subset.
type blockChildrenResponse struct {
	Results    []apiBlock `json:"results"`
	HasMore    bool       `json:"has_more"`
	NextCursor string     `json:"next_cursor"`
}

// apiBlock is one block from the children endpoint. Type-specific
// content lives under a key named after the block type, so the raw
// object is kept for a second decode pass.
type apiBlock struct {
	ID          string                     `json:"id"`
	Type        string                     `json:"type"`
	HasChildren bool                       `json:"has_children"`
	Raw         map[string]json.RawMessage `json:"-"`
}

func (b *apiBlock) UnmarshalJSON(data []byte) error {
	type alias apiBlock
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*b = apiBlock(a)
	return json.Unmarshal(data, &b.Raw)
}

// blockContent is the common shape of type-specific block payloads.
type blockContent struct {
	RichText []struct {
		PlainText string `json:"plain_text"`
	} `json:"rich_text"`
	External struct {
		URL string `json:"url"`
	} `json:"external"`
	File struct {
		URL string `json:"url"`
	} `json:"file"`
}

// FetchItems returns a page's top-level blocks as items, each carrying
// its child block tree. Pages last edited outside the window yield no
// items, so unchanged pages cost one request per run.
func (c *Client) FetchItems(ctx context.Context, containerID string, window domain.SyncWindow) ([]driven.RawItem, error) {
	var page pageResponse
	if err := c.call(ctx, http.MethodGet, "/v1/pages/"+url.PathEscape(containerID), nil, &page); err != nil {
		return nil, err
	}
	if !window.Contains(page.LastEditedTime) {
		return nil, nil
	}

	blocks, err := c.fetchBlockChildren(ctx, containerID, 0)
	if err != nil {
		return nil, err
	}
	if len(blocks) > MaxItemsPerContainer {
		blocks = blocks[:MaxItemsPerContainer]
	}

	items := make([]driven.RawItem, 0, len(blocks))
	for i, blk := range blocks {
		items = append(items, driven.RawItem{
			ID:          fmt.Sprintf("%s/%d", containerID, i),
			ContainerID: containerID,
			Timestamp:   page.LastEditedTime,
			Blocks:      []driven.Block{blk},
		})
	}
	return items, nil
}

// fetchBlockChildren fetches one block's children, recursing into
// blocks that have their own children up to maxFetchDepth.
func (c *Client) fetchBlockChildren(ctx context.Context, blockID string, depth int) ([]driven.Block, error) {
	if depth >= maxFetchDepth {
		return nil, nil
	}

	var blocks []driven.Block

	cursor := ""
	for {
		path := fmt.Sprintf("/v1/blocks/%s/children?page_size=%d", url.PathEscape(blockID), pageSize)
		if cursor != "" {
			path += "&start_cursor=" + url.QueryEscape(cursor)
		}

		var resp blockChildrenResponse
		if err := c.call(ctx, http.MethodGet, path, nil, &resp); err != nil {
			return nil, err
		}

		for _, ab := range resp.Results {
			blk := driven.Block{
				Type:    ab.Type,
				Content: blockText(ab),
			}
			if ab.HasChildren {
				children, err := c.fetchBlockChildren(ctx, ab.ID, depth+1)
				if err != nil {
					return nil, err
				}
				blk.Children = children
			}
			blocks = append(blocks, blk)
		}

		if !resp.HasMore || resp.NextCursor == "" {
			break
		}
		cursor = resp.NextCursor
	}

	return blocks, nil
}

// blockText extracts a block's plain text. Rich text runs are joined;
// image blocks yield their URL.
func blockText(b apiBlock) string {
	raw, ok := b.Raw[b.Type]
	if !ok {
		return ""
	}
	var content blockContent
	if err := json.Unmarshal(raw, &content); err != nil {
		return ""
	}

	if b.Type == "image" {
		if content.File.URL != "" {
			return content.File.URL
		}
		return content.External.URL
	}

	var sb strings.Builder
	for _, rt := range content.RichText {
		sb.WriteString(rt.PlainText)
	}
	return sb.String()
}

// pageTitle digs the title out of a page's properties. The title
// property's name varies by parent, so every property is probed.
func pageTitle(props map[string]json.RawMessage) string {
	for _, raw := range props {
		var tp titleProperty
		if err := json.Unmarshal(raw, &tp); err != nil || tp.Type != "title" {
			continue
		}
		var sb strings.Builder
		for _, t := range tp.Title {
			sb.WriteString(t.PlainText)
		}
		if sb.Len() > 0 {
			return sb.String()
		}
	}
	return "Untitled"
}

// call performs one API request with the pinned Notion version.
func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("notion: encode request: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("notion: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Notion-Version", apiVersion)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("notion: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errBody struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&errBody)
		return mapError(resp.StatusCode, errBody.Code, errBody.Message)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("notion: decode response: %w", err)
	}
	return nil
}
