// Package model contains domain models passed between layers.
package model

import (
	"errors"
	"fmt"
	"time"
)

// Kind tags the contribution variants.
type Kind string

// Contribution kinds.
const (
	KindComment Kind = "comment"
	KindPost    Kind = "post"
)

// Sentinel kinds for model validation errors.
var (
	ErrMissingFullID    = errors.New("contribution full id is empty")
	ErrMissingCommunity = errors.New("contribution community is empty")
	ErrMissingCreatedAt = errors.New("contribution creation time is empty")
)

// Contribution is a single comment or post authored by a user. FullID is the
// merge key; Score and Removed may be refreshed on later fetches of the same
// id. All kinds share this capability set so the merge and scoring code is
// written once.
type Contribution struct {
	FullID    string    `json:"full_id"`
	Community string    `json:"community"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"created_at"`
	Removed   bool      `json:"removed,omitempty"` // removed by mods, not deleted by the author
	Kind      Kind      `json:"-"`
	Title     string    `json:"title,omitempty"`
	Body      string    `json:"body,omitempty"`
}

// Validate checks the fields every kind must carry.
func (c Contribution) Validate() error {
	if c.FullID == "" {
		return ErrMissingFullID
	}
	if c.Community == "" {
		return fmt.Errorf("%w: %s", ErrMissingCommunity, c.FullID)
	}
	if c.CreatedAt.IsZero() {
		return fmt.Errorf("%w: %s", ErrMissingCreatedAt, c.FullID)
	}
	return nil
}
