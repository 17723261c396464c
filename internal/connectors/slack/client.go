// Package slack implements the chat source client over the Slack Web
// API. Containers are channels; items are channel messages inside the
// sync window, with bot and join/leave noise filtered out.
package slack

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/inlet/internal/core/domain"
	"github.com/custodia-labs/inlet/internal/core/ports/driven"
)

const (
	// DefaultBaseURL is the Slack Web API root.
	DefaultBaseURL = "https://slack.com/api"

	// MaxItemsPerContainer caps messages fetched per channel per run.
	MaxItemsPerContainer = 1000

	// pageSize is the per-request message/channel page size.
	pageSize = 200

	// requestTimeout bounds one API call.
	requestTimeout = 30 * time.Second

	// apiRate is the proactive throttle (Slack tier 3 is ~50 req/min).
	apiRate = rate.Limit(0.8)
)

// Noise message subtypes dropped before normalization.
var noiseSubtypes = map[string]bool{
	"bot_message":   true,
	"channel_join":  true,
	"channel_leave": true,
}

// Ensure Client implements the interface.
var _ driven.SourceClient = (*Client)(nil)

// Client fetches channel history from Slack.
type Client struct {
	http    *http.Client
	baseURL string
	token   string

	limiter *rate.Limiter

	// userNames caches user id -> display name for message headers.
	// Guarded by mu: channels are fetched concurrently within a run.
	mu          sync.Mutex
	userNames   map[string]string
	usersLoaded bool
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

// New creates a Slack client with the given bot token.
func New(token string, opts ...Option) *Client {
	c := &Client{
		http:      &http.Client{Timeout: requestTimeout},
		baseURL:   DefaultBaseURL,
		token:     token,
		limiter:   rate.NewLimiter(apiRate, 3),
		userNames: make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Provider returns the connector type this client serves.
func (c *Client) Provider() domain.ConnectorType {
	return domain.ConnectorSlack
}

// LookbackGrace returns the same-day re-cover span. Chat history moves
// fast, so a full week is re-covered rather than a single day.
func (c *Client) LookbackGrace() time.Duration {
	return 7 * 24 * time.Hour
}

// conversationsListResponse is the conversations.list payload subset.
type conversationsListResponse struct {
	OK       bool   `json:"ok"`
	Error    string `json:"error"`
	Channels []struct {
		ID        string `json:"id"`
		Name      string `json:"name"`
		IsPrivate bool   `json:"is_private"`
		IsMember  bool   `json:"is_member"`
	} `json:"channels"`
	ResponseMetadata struct {
		NextCursor string `json:"next_cursor"`
	} `json:"response_metadata"`
}

// ListContainers enumerates channels the bot can see. Private channels
// the bot is not a member of are returned inaccessible so the run can
// record them as skips.
func (c *Client) ListContainers(ctx context.Context) ([]driven.Container, error) {
	var containers []driven.Container

	cursor := ""
	for {
		params := url.Values{
			"types": {"public_channel,private_channel"},
			"limit": {strconv.Itoa(pageSize)},
		}
		if cursor != "" {
			params.Set("cursor", cursor)
		}

		var resp conversationsListResponse
		if err := c.call(ctx, "conversations.list", params, &resp); err != nil {
			return nil, err
		}
		if !resp.OK {
			return nil, mapError("conversations.list", resp.Error)
		}

		for _, ch := range resp.Channels {
			containers = append(containers, driven.Container{
				ID:         ch.ID,
				Name:       ch.Name,
				Accessible: !ch.IsPrivate || ch.IsMember,
			})
		}

		cursor = resp.ResponseMetadata.NextCursor
		if cursor == "" {
			break
		}
	}

	return containers, nil
}

// historyResponse is the conversations.history payload subset.
type historyResponse struct {
	OK       bool   `json:"ok"`
	Error    string `json:"error"`
	Messages []struct {
		TS      string `json:"ts"`
		User    string `json:"user"`
		Text    string `json:"text"`
		Subtype string `json:"subtype"`
	} `json:"messages"`
	HasMore          bool `json:"has_more"`
	ResponseMetadata struct {
		NextCursor string `json:"next_cursor"`
	} `json:"response_metadata"`
}

// FetchItems returns a channel's messages inside the window, oldest
// first, capped at MaxItemsPerContainer, with noise subtypes dropped.
func (c *Client) FetchItems(ctx context.Context, containerID string, window domain.SyncWindow) ([]driven.RawItem, error) {
	var items []driven.RawItem

	cursor := ""
	for len(items) < MaxItemsPerContainer {
		params := url.Values{
			"channel": {containerID},
			"oldest":  {slackTS(window.From)},
			"latest":  {slackTS(window.To)},
			"limit":   {strconv.Itoa(pageSize)},
		}
		if cursor != "" {
			params.Set("cursor", cursor)
		}

		var resp historyResponse
		if err := c.call(ctx, "conversations.history", params, &resp); err != nil {
			return nil, err
		}
		if !resp.OK {
			return nil, mapError("conversations.history", resp.Error)
		}

		for _, msg := range resp.Messages {
			if noiseSubtypes[msg.Subtype] || msg.Text == "" {
				continue
			}
			items = append(items, driven.RawItem{
				ID:          msg.TS,
				ContainerID: containerID,
				Author:      c.userName(ctx, msg.User),
				Timestamp:   parseSlackTS(msg.TS),
				Text:        msg.Text,
			})
			if len(items) >= MaxItemsPerContainer {
				break
			}
		}

		cursor = resp.ResponseMetadata.NextCursor
		if !resp.HasMore || cursor == "" {
			break
		}
	}

	// History pages arrive newest first; normalization wants
	// chronological order.
	sort.Slice(items, func(i, j int) bool {
		return items[i].Timestamp.Before(items[j].Timestamp)
	})

	return items, nil
}

// usersListResponse is the users.list payload subset.
type usersListResponse struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error"`
	Members []struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		RealName string `json:"real_name"`
	} `json:"members"`
}

// userName resolves a user id to a display name, loading the workspace
// user list once on first use. Resolution failures degrade to the raw
// id rather than failing the fetch.
func (c *Client) userName(ctx context.Context, userID string) string {
	if userID == "" {
		return "Unknown User"
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if name, ok := c.userNames[userID]; ok {
		return name
	}

	if !c.usersLoaded {
		c.usersLoaded = true
		var resp usersListResponse
		if err := c.call(ctx, "users.list", url.Values{}, &resp); err == nil && resp.OK {
			for _, m := range resp.Members {
				name := m.RealName
				if name == "" {
					name = m.Name
				}
				c.userNames[m.ID] = name
			}
		}
		if name, ok := c.userNames[userID]; ok {
			return name
		}
	}

	c.userNames[userID] = userID
	return userID
}

// call performs one GET against the Slack Web API.
func (c *Client) call(ctx context.Context, method string, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/"+method+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("slack: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("slack: %s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return mapError(method, "ratelimited")
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return mapError(method, "invalid_auth")
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &APIError{Code: fmt.Sprintf("http_%d: %s", resp.StatusCode, body), Method: method}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("slack: decode %s response: %w", method, err)
	}
	return nil
}

// slackTS formats a time as a Slack message timestamp.
func slackTS(t time.Time) string {
	return strconv.FormatFloat(float64(t.UnixNano())/1e9, 'f', 6, 64)
}

// parseSlackTS parses a Slack "seconds.micros" message timestamp.
func parseSlackTS(ts string) time.Time {
	f, err := strconv.ParseFloat(ts, 64)
	if err != nil {
		return time.Time{}
	}
	sec := int64(f)
	nsec := int64((f - float64(sec)) * 1e9)
	return time.Unix(sec, nsec).UTC()
}
