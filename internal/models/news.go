package models

import "time"

// NewsItem is the common shape every source is normalized into,
// regardless of whether it came from an RSS feed or a structured API.
// Text fields have been sanitized before the item is constructed.
type NewsItem struct {
	Title          string `json:"title"`
	Link           string `json:"link"`
	PubDate        string `json:"pubDate"`
	Source         string `json:"source"`
	ContentSnippet string `json:"contentSnippet,omitempty"`
	Category       string `json:"category,omitempty"`

	// Published is the parsed publication time, kept for sorting.
	Published time.Time `json:"-"`
}
