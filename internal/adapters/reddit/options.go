package reddit

import (
	"net/http"
	"time"

	"github.com/flairward/flairward/pkg/logger"
)

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = u
		}
	}
}

// WithUserAgent sets the User-Agent header sent on every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithToken sets the OAuth bearer token.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithPageSize sets the listing page size.
func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithClientLogger sets a custom logger for the client.
func WithClientLogger(l logger.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// PollerOption configures a Poller.
type PollerOption func(*Poller)

// WithPollInterval sets the delay between live polls.
func WithPollInterval(d time.Duration) PollerOption {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithSeenCapacity bounds how many content IDs the poller remembers.
func WithSeenCapacity(n int) PollerOption {
	return func(p *Poller) {
		if n > 0 {
			p.seenCapacity = n
		}
	}
}

// WithPollerLogger sets a custom logger for the poller.
func WithPollerLogger(l logger.Logger) PollerOption {
	return func(p *Poller) {
		p.logger = l
	}
}
