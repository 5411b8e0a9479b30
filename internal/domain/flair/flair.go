// Package flair mirrors one user's visible flair against remote truth and
// commits semantic changes.
package flair

import (
	"context"
	"strings"
)

// Marker is the newcomer fragment inserted into flair text.
const Marker = "🌱 New Contributor"

// Separator joins the marker to the rest of the flair text.
const separator = " | "

// markerFragments includes previous spellings of the marker so old flairs
// are cleaned up too.
var markerFragments = []string{Marker}

// Setter pushes a flair update to the content platform.
type Setter interface {
	SetFlair(ctx context.Context, username, text, category string) error
}

// Fetcher reads the current remote flair for a user.
type Fetcher interface {
	FetchFlair(ctx context.Context, username string) (text, category string, err error)
}

// Auditor records flair transitions.
type Auditor interface {
	FlairUpdate(ctx context.Context, username, oldText, oldCategory, newText, newCategory string) error
}

// Context is one user's flair as local working state mirrored against the
// remote value. It is created per evaluation and discarded after Commit.
type Context struct {
	setter  Setter
	auditor Auditor
	dryRun  bool

	username       string
	Text           string
	Category       string
	remoteText     string
	remoteCategory string
}

// Factory builds flair contexts, either preloaded from possibly-stale
// caller data or fetched live.
type Factory struct {
	setter  Setter
	fetcher Fetcher
	auditor Auditor
	dryRun  bool
}

// FactoryOption applies a configuration option to the Factory.
type FactoryOption func(*Factory)

// WithDryRun disables remote writes; diffs and audit records still happen.
func WithDryRun(dryRun bool) FactoryOption {
	return func(f *Factory) {
		f.dryRun = dryRun
	}
}

// NewFactory creates a flair context factory.
func NewFactory(setter Setter, fetcher Fetcher, auditor Auditor, opts ...FactoryOption) *Factory {
	f := &Factory{
		setter:  setter,
		fetcher: fetcher,
		auditor: auditor,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Preloaded builds a trial context seeded from caller-supplied flair state,
// which can be quite old depending on queue depth.
func (f *Factory) Preloaded(username, text, category string) *Context {
	return newContext(f, username, text, category)
}

// Fetched builds an authoritative context from the live remote flair.
func (f *Factory) Fetched(ctx context.Context, username string) (*Context, error) {
	text, category, err := f.fetcher.FetchFlair(ctx, username)
	if err != nil {
		return nil, err
	}
	return newContext(f, username, text, category), nil
}

func newContext(f *Factory, username, text, category string) *Context {
	return &Context{
		setter:         f.setter,
		auditor:        f.auditor,
		dryRun:         f.dryRun,
		username:       username,
		Text:           text,
		Category:       category,
		remoteText:     text,
		remoteCategory: category,
	}
}

// Username returns the owner of this context.
func (c *Context) Username() string {
	return c.username
}

// SetNewcomerTag rewrites the working text to carry, or not carry, the
// newcomer marker. Applying the same flag twice yields the same text as
// applying it once.
func (c *Context) SetNewcomerTag(flag bool) {
	if strings.TrimSpace(c.Text) != "" {
		// Strip any existing marker, old spellings included.
		for _, frag := range markerFragments {
			c.Text = strings.ReplaceAll(c.Text, frag, "")
		}
		c.Text = strings.TrimLeft(strings.TrimSpace(c.Text), " |")
	}

	if flag {
		if strings.TrimSpace(c.Text) == "" {
			c.Text = Marker
		} else {
			c.Text = Marker + separator + c.Text
		}
	}
}

// IsSemanticallyChanged reports whether committing would change the remote
// flair. Category-only changes are ignored while the working text is blank,
// guarding against category churn with no visible flair.
func (c *Context) IsSemanticallyChanged() bool {
	if strings.TrimSpace(c.Text) != strings.TrimSpace(c.remoteText) {
		return true
	}
	return strings.TrimSpace(c.Text) != "" && c.Category != c.remoteCategory
}

// Commit pushes the working state to the platform when it differs
// semantically from the remote mirror. The old-to-new transition is always
// audited; the remote write is skipped in dry-run mode. The mirror is
// updated regardless so repeated commits within one process run do not
// re-diff an already applied delta. Reports whether a change was committed.
func (c *Context) Commit(ctx context.Context) (bool, error) {
	if !c.IsSemanticallyChanged() {
		return false, nil
	}

	if err := c.auditor.FlairUpdate(ctx, c.username, c.remoteText, c.remoteCategory, c.Text, c.Category); err != nil {
		return false, err
	}

	if !c.dryRun {
		if err := c.setter.SetFlair(ctx, c.username, c.Text, c.Category); err != nil {
			return false, err
		}
	}

	c.remoteText = c.Text
	c.remoteCategory = c.Category

	return true, nil
}
