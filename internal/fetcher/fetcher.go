// Package fetcher retrieves one configured RSS/Atom feed and normalizes
// it into NewsItems. A fetch never returns an error to the caller: every
// failure mode is logged and collapses to an empty result, so one bad
// source cannot fail the whole aggregation.
package fetcher

import (
	"context"
	"net/http"
	"strings"
	"time"

	"regwatch/internal/config"
	"regwatch/internal/logger"
	"regwatch/internal/metrics"
	"regwatch/internal/models"
	"regwatch/internal/sanitize"

	"github.com/mmcdole/gofeed"
	"github.com/sirupsen/logrus"
)

const (
	// FetchTimeout bounds each individual source fetch. Expiry cancels
	// only that fetch, never its siblings.
	FetchTimeout = 8 * time.Second

	maxItemsPerSource = 10
	snippetMaxLen     = 200
	placeholderLink   = "#"

	userAgent    = "regwatch/1.0 (+https://regwatch.example.com; regulatory news aggregator)"
	acceptHeader = "application/rss+xml, application/atom+xml, application/xml;q=0.9, text/xml;q=0.8, */*;q=0.7"
)

// Fetcher fetches a single configured feed. Client is exported so tests
// can substitute an httptest TLS client.
type Fetcher struct {
	Client *http.Client
	parser *gofeed.Parser
	src    config.Source
}

func New(src config.Source) *Fetcher {
	return &Fetcher{
		Client: &http.Client{},
		parser: gofeed.NewParser(),
		src:    src,
	}
}

// Label returns the configured display name for this source.
func (f *Fetcher) Label() string {
	return f.src.Name
}

// Fetch retrieves and parses the feed, returning at most 10 sanitized
// items. Non-https URLs are rejected before any network call is issued.
func (f *Fetcher) Fetch(ctx context.Context) []models.NewsItem {
	log := logger.Log.WithFields(logrus.Fields{
		"source": f.src.Name,
		"url":    f.src.URL,
	})

	if !strings.HasPrefix(f.src.URL, "https://") {
		metrics.SourceFetchesTotal.WithLabelValues(f.src.Name, "blocked_scheme").Inc()
		log.Warn("Blocked feed URL with insecure scheme")
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, FetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.src.URL, nil)
	if err != nil {
		metrics.SourceFetchesTotal.WithLabelValues(f.src.Name, "request_error").Inc()
		log.Errorf("Failed to build feed request: %v", err)
		return nil
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", acceptHeader)

	resp, err := f.Client.Do(req)
	if err != nil {
		metrics.SourceFetchesTotal.WithLabelValues(f.src.Name, "request_error").Inc()
		log.Errorf("Failed to fetch feed: %v", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.SourceFetchesTotal.WithLabelValues(f.src.Name, "bad_status").Inc()
		log.WithField("status", resp.StatusCode).Error("Feed returned non-success status")
		return nil
	}

	feed, err := f.parser.Parse(resp.Body)
	if err != nil {
		metrics.SourceFetchesTotal.WithLabelValues(f.src.Name, "parse_error").Inc()
		log.Errorf("Failed to parse feed: %v", err)
		return nil
	}

	entries := feed.Items
	if len(entries) > maxItemsPerSource {
		entries = entries[:maxItemsPerSource]
	}

	now := time.Now()
	items := make([]models.NewsItem, 0, len(entries))
	for _, entry := range entries {
		items = append(items, f.newsItem(entry, now))
	}

	metrics.SourceFetchesTotal.WithLabelValues(f.src.Name, "ok").Inc()
	log.WithField("items", len(items)).Debug("Fetched feed")
	return items
}

// newsItem maps one feed entry into the common shape, applying the
// fallback chains: published date → updated date → fetch time, and
// description → content for the snippet.
func (f *Fetcher) newsItem(entry *gofeed.Item, now time.Time) models.NewsItem {
	published := now
	if entry.PublishedParsed != nil {
		published = *entry.PublishedParsed
	} else if entry.UpdatedParsed != nil {
		published = *entry.UpdatedParsed
	}

	link := entry.Link
	if link == "" {
		link = placeholderLink
	}

	snippet := entry.Description
	if snippet == "" {
		snippet = entry.Content
	}

	return models.NewsItem{
		Title:          sanitize.Clean(entry.Title),
		Link:           link,
		PubDate:        published.UTC().Format(time.RFC3339),
		Source:         f.src.Name,
		ContentSnippet: sanitize.Snippet(snippet, snippetMaxLen),
		Category:       f.src.Category,
		Published:      published,
	}
}
