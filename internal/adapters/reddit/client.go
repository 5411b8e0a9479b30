// Package reddit adapts the Reddit JSON API to the domain interfaces for
// history, flair, and activity snapshots.
package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/flairward/flairward/internal/domain/model"
	"github.com/flairward/flairward/pkg/logger"
)

// Default client configuration constants.
const (
	defaultBaseURL     = "https://oauth.reddit.com"
	defaultUserAgent   = "flairward/1.0"
	defaultHTTPTimeout = 30 * time.Second
	defaultPageSize    = 100

	kindComment = "t1"
	kindPost    = "t3"
)

// Client is a thin Reddit API client. It implements history.Source,
// flair.Setter, flair.Fetcher, and dispatch.ActivitySource.
type Client struct {
	baseURL   string
	userAgent string
	token     string
	community string
	pageSize  int

	httpClient *http.Client
	logger     logger.Logger
}

// NewClient creates a Reddit client for the given community.
func NewClient(community string, opts ...Option) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		userAgent:  defaultUserAgent,
		community:  community,
		pageSize:   defaultPageSize,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		logger:     nil, // resolved after options
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = logger.Get().Named("reddit")
	}

	return c
}

// listing mirrors the envelope Reddit wraps every collection response in.
type listing struct {
	Data struct {
		After    string `json:"after"`
		Children []struct {
			Kind string `json:"kind"`
			Data thing  `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type thing struct {
	Name          string  `json:"name"`
	Author        string  `json:"author"`
	Subreddit     string  `json:"subreddit"`
	Score         int     `json:"score"`
	CreatedUTC    float64 `json:"created_utc"`
	BannedBy      string  `json:"banned_by"`
	Title         string  `json:"title"`
	Body          string  `json:"body"`
	Selftext      string  `json:"selftext"`
	AuthorFlair   string  `json:"author_flair_text"`
	AuthorFlairCl string  `json:"author_flair_css_class"`
}

func (t *thing) text() string {
	if t.Body != "" {
		return t.Body
	}
	return t.Selftext
}

// UserContributions returns one page of a user's comments and posts, newest
// first, plus the cursor for the next page. An empty next cursor means the
// listing is exhausted.
func (c *Client) UserContributions(ctx context.Context, username, cursor string) ([]model.Contribution, string, error) {
	q := url.Values{}
	q.Set("limit", fmt.Sprintf("%d", c.pageSize))
	q.Set("sort", "new")
	if cursor != "" {
		q.Set("after", cursor)
	}

	var l listing
	if err := c.getJSON(ctx, fmt.Sprintf("/user/%s/overview.json", url.PathEscape(username)), q, &l); err != nil {
		return nil, "", fmt.Errorf("user overview for %s: %w", username, err)
	}

	batch := make([]model.Contribution, 0, len(l.Data.Children))
	for _, child := range l.Data.Children {
		contrib := model.Contribution{
			FullID:    child.Data.Name,
			Community: child.Data.Subreddit,
			Score:     child.Data.Score,
			CreatedAt: time.Unix(int64(child.Data.CreatedUTC), 0).UTC(),
			Removed:   child.Data.BannedBy != "",
			Title:     child.Data.Title,
			Body:      child.Data.text(),
		}
		switch child.Kind {
		case kindComment:
			contrib.Kind = model.KindComment
		case kindPost:
			contrib.Kind = model.KindPost
		default:
			continue
		}
		batch = append(batch, contrib)
	}

	return batch, l.Data.After, nil
}

// CurrentActivity snapshots the community's recent posts and comments as
// content events.
func (c *Client) CurrentActivity(ctx context.Context) ([]model.ContentEvent, error) {
	posts, err := c.communityListing(ctx, "new")
	if err != nil {
		return nil, err
	}
	comments, err := c.communityListing(ctx, "comments")
	if err != nil {
		return nil, err
	}
	return append(posts, comments...), nil
}

// communityListing fetches one community listing page as content events.
func (c *Client) communityListing(ctx context.Context, feed string) ([]model.ContentEvent, error) {
	q := url.Values{}
	q.Set("limit", fmt.Sprintf("%d", c.pageSize))

	var l listing
	path := fmt.Sprintf("/r/%s/%s.json", url.PathEscape(c.community), feed)
	if err := c.getJSON(ctx, path, q, &l); err != nil {
		return nil, fmt.Errorf("community %s feed: %w", feed, err)
	}

	events := make([]model.ContentEvent, 0, len(l.Data.Children))
	for _, child := range l.Data.Children {
		events = append(events, model.ContentEvent{
			FullID:        child.Data.Name,
			Author:        child.Data.Author,
			Title:         child.Data.Title,
			Body:          child.Data.text(),
			FlairText:     child.Data.AuthorFlair,
			FlairCategory: child.Data.AuthorFlairCl,
		})
	}
	return events, nil
}

// FetchFlair reads a user's current flair in the community.
func (c *Client) FetchFlair(ctx context.Context, username string) (string, string, error) {
	q := url.Values{}
	q.Set("name", username)

	var resp struct {
		Users []struct {
			FlairText     string `json:"flair_text"`
			FlairCSSClass string `json:"flair_css_class"`
		} `json:"users"`
	}
	path := fmt.Sprintf("/r/%s/api/flairlist.json", url.PathEscape(c.community))
	if err := c.getJSON(ctx, path, q, &resp); err != nil {
		return "", "", fmt.Errorf("flair lookup for %s: %w", username, err)
	}

	if len(resp.Users) == 0 {
		return "", "", nil
	}
	return resp.Users[0].FlairText, resp.Users[0].FlairCSSClass, nil
}

// SetFlair writes a user's flair in the community.
func (c *Client) SetFlair(ctx context.Context, username, text, category string) error {
	form := url.Values{}
	form.Set("api_type", "json")
	form.Set("name", username)
	form.Set("text", text)
	form.Set("css_class", category)

	path := fmt.Sprintf("/r/%s/api/flair", url.PathEscape(c.community))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build flair request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("set flair for %s: %w", username, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body) //nolint:errcheck // drain for connection reuse

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("set flair for %s: %w (status %d)", username, ErrUnexpectedStatus, resp.StatusCode)
	}

	c.logger.Debug(ctx, "flair written",
		logger.String("username", username),
		logger.String("text", text),
		logger.String("category", category),
	)
	return nil
}

// getJSON performs an authenticated GET and decodes the response body.
func (c *Client) getJSON(ctx context.Context, path string, q url.Values, out any) error {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body) //nolint:errcheck // drain for connection reuse
		return fmt.Errorf("request %s: %w (status %d)", path, ErrUnexpectedStatus, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
