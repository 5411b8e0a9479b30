// Package audit records flair transitions and scoring outcomes to the
// append-only audit trail.
package audit

import (
	"context"
	"fmt"

	"github.com/flairward/flairward/internal/adapters/store"
	"github.com/flairward/flairward/pkg/logger"
)

// Client writes audit records. Every write is also logged so the audit
// trail can be followed live.
type Client struct {
	sink store.AuditSink
	log  logger.Logger
}

// NewClient creates an audit client over the given sink.
func NewClient(sink store.AuditSink, log logger.Logger) *Client {
	if log == nil {
		log = logger.Get().Named("audit")
	}
	return &Client{sink: sink, log: log}
}

// Write appends a generic audit record.
func (c *Client) Write(ctx context.Context, typ, subject, data string) error {
	c.log.Info(ctx, "audit",
		logger.String("type", typ),
		logger.String("subject", subject),
		logger.String("data", data),
	)
	return c.sink.WriteAudit(ctx, typ, subject, data)
}

// FlairUpdate appends an audit record for an old-to-new flair transition.
func (c *Client) FlairUpdate(ctx context.Context, username, oldText, oldCategory, newText, newCategory string) error {
	data := fmt.Sprintf("Update '%s'/'%s' to '%s'/'%s'", oldText, oldCategory, newText, newCategory)
	return c.Write(ctx, "flair-update", username, data)
}

// DataPoint appends one scoring evaluation outcome.
func (c *Client) DataPoint(ctx context.Context, p store.DataPoint) error {
	c.log.Debug(ctx, "scoring data point",
		logger.String("author", p.Author),
		logger.Bool("newcomer", p.IsNewcomer),
		logger.Bool("flairChanged", p.FlairChanged),
		logger.Bool("catchUp", p.IsCatchUp),
		logger.Int("communityScore", p.CommunityScore),
	)
	return c.sink.WriteDataPoint(ctx, p)
}
