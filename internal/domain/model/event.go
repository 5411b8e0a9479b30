package model

import "strings"

// ContentEvent is one observed contribution flowing through the dispatcher
// queues. Live events come from the platform listener; catch-up events are
// re-delivered from the periodic front-page rescan.
type ContentEvent struct {
	FullID        string
	Author        string
	Title         string
	Body          string
	FlairText     string
	FlairCategory string
	CatchUp       bool
}

// DeletedAuthor reports whether the author account is gone.
func (e ContentEvent) DeletedAuthor() bool {
	return strings.Contains(strings.ToLower(e.Author), "[deleted]")
}

// ShortText returns a log-friendly excerpt of the event's visible text.
func (e ContentEvent) ShortText() string {
	text := e.Title
	if text == "" {
		text = e.Body
	}
	text = strings.ReplaceAll(text, "\n", " ")
	const max = 40
	runes := []rune(text)
	if len(runes) > max {
		return string(runes[:max]) + "…"
	}
	return text
}
