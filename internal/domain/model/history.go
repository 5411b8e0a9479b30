package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// History is a user's merged contribution record, keyed by FullID. Entries
// are only ever added or updated in place; a refresh never drops previously
// known contributions.
type History struct {
	byID            map[string]Contribution
	lastRefreshedAt time.Time
}

// NewHistory returns an empty history.
func NewHistory() *History {
	return &History{byID: make(map[string]Contribution)}
}

// Upsert merges a contribution by FullID. It reports true when the id was
// new, false when an existing entry was updated in place.
func (h *History) Upsert(c Contribution) bool {
	_, existed := h.byID[c.FullID]
	h.byID[c.FullID] = c
	return !existed
}

// Len returns the number of distinct contributions.
func (h *History) Len() int {
	return len(h.byID)
}

// Sorted returns all contributions ordered descending by creation time,
// the order the scoring walk consumes.
func (h *History) Sorted() []Contribution {
	out := make([]Contribution, 0, len(h.byID))
	for _, c := range h.byID {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// NewestCreatedAt returns the creation time of the newest known
// contribution, or the zero time for an empty history.
func (h *History) NewestCreatedAt() time.Time {
	var newest time.Time
	for _, c := range h.byID {
		if c.CreatedAt.After(newest) {
			newest = c.CreatedAt
		}
	}
	return newest
}

// CommunityCount returns how many contributions belong to the given
// community.
func (h *History) CommunityCount(community string) int {
	n := 0
	for _, c := range h.byID {
		if c.Community == community {
			n++
		}
	}
	return n
}

// LastRefreshedAt returns when the history was last rebuilt from the
// content platform.
func (h *History) LastRefreshedAt() time.Time {
	return h.lastRefreshedAt
}

// MarkRefreshed records a completed refresh.
func (h *History) MarkRefreshed(t time.Time) {
	h.lastRefreshedAt = t
}

// historyPayload is the persisted form: ordered comment and post
// collections. The kind tag is implied by the collection.
type historyPayload struct {
	Comments        []Contribution `json:"comments"`
	Posts           []Contribution `json:"posts,omitempty"`
	LastRefreshedAt time.Time      `json:"last_refreshed_at,omitempty"`
}

// MarshalJSON serializes the history as descending-ordered comment and post
// collections.
func (h *History) MarshalJSON() ([]byte, error) {
	p := historyPayload{
		Comments:        []Contribution{},
		LastRefreshedAt: h.lastRefreshedAt,
	}
	for _, c := range h.Sorted() {
		switch c.Kind {
		case KindPost:
			p.Posts = append(p.Posts, c)
		default:
			p.Comments = append(p.Comments, c)
		}
	}
	return json.Marshal(p)
}

// UnmarshalJSON rebuilds the FullID-keyed map and validates every entry so
// a corrupt persisted value surfaces as an error instead of a bad merge.
func (h *History) UnmarshalJSON(data []byte) error {
	var p historyPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	h.byID = make(map[string]Contribution, len(p.Comments)+len(p.Posts))
	h.lastRefreshedAt = p.LastRefreshedAt

	for _, c := range p.Comments {
		c.Kind = KindComment
		if err := c.Validate(); err != nil {
			return fmt.Errorf("invalid comment entry: %w", err)
		}
		h.byID[c.FullID] = c
	}
	for _, c := range p.Posts {
		c.Kind = KindPost
		if err := c.Validate(); err != nil {
			return fmt.Errorf("invalid post entry: %w", err)
		}
		h.byID[c.FullID] = c
	}
	return nil
}
