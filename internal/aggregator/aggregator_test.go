package aggregator_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"regwatch/internal/aggregator"
	"regwatch/internal/models"

	"github.com/stretchr/testify/require"
)

// stubSource is a test double for the Source interface.
type stubSource struct {
	label string
	items []models.NewsItem
	delay time.Duration
}

func (s *stubSource) Label() string { return s.label }

func (s *stubSource) Fetch(ctx context.Context) []models.NewsItem {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil
		}
	}
	return s.items
}

func item(source string, published time.Time) models.NewsItem {
	return models.NewsItem{
		Title:     "item from " + source,
		Link:      "https://example.com/" + source,
		PubDate:   published.UTC().Format(time.RFC3339),
		Source:    source,
		Published: published,
	}
}

func TestAggregate_PartialFailureIsolation(t *testing.T) {
	today := time.Now()
	yesterday := today.Add(-24 * time.Hour)

	// Source A: 3 items dated today. Source B: fails (empty result, as a
	// timed-out fetch would produce). Source C: 2 items dated yesterday.
	agg := aggregator.New(
		&stubSource{label: "A", items: []models.NewsItem{
			item("A", today), item("A", today.Add(-time.Hour)), item("A", today.Add(-2*time.Hour)),
		}},
		&stubSource{label: "B", items: nil},
		&stubSource{label: "C", items: []models.NewsItem{
			item("C", yesterday), item("C", yesterday.Add(-time.Hour)),
		}},
	)

	got := agg.Aggregate(context.Background())
	require.Len(t, got, 5)
	for _, it := range got[:3] {
		require.Equal(t, "A", it.Source)
	}
	for _, it := range got[3:] {
		require.Equal(t, "C", it.Source)
	}
}

func TestAggregate_SortedByRecencyDescending(t *testing.T) {
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	agg := aggregator.New(
		&stubSource{label: "old", items: []models.NewsItem{item("old", base.Add(-48*time.Hour))}},
		&stubSource{label: "new", items: []models.NewsItem{item("new", base)}},
		&stubSource{label: "mid", items: []models.NewsItem{item("mid", base.Add(-24*time.Hour))}},
	)

	got := agg.Aggregate(context.Background())
	require.Len(t, got, 3)
	for i := 0; i < len(got)-1; i++ {
		require.False(t, got[i].Published.Before(got[i+1].Published),
			"items must be ordered by descending publication time")
	}
}

func TestAggregate_TruncatesToMaxItems(t *testing.T) {
	base := time.Now()
	agg := aggregator.New()
	for s := 0; s < 15; s++ {
		var items []models.NewsItem
		for i := 0; i < 10; i++ {
			items = append(items, item(fmt.Sprintf("s%d", s), base.Add(-time.Duration(s*10+i)*time.Minute)))
		}
		agg.AddSource(&stubSource{label: fmt.Sprintf("s%d", s), items: items})
	}

	got := agg.Aggregate(context.Background())
	require.Len(t, got, aggregator.MaxItems)
}

func TestAggregate_AllSourcesEmpty(t *testing.T) {
	agg := aggregator.New(
		&stubSource{label: "a"},
		&stubSource{label: "b"},
	)

	require.Empty(t, agg.Aggregate(context.Background()))
}

func TestAggregate_ConcurrentFanOut(t *testing.T) {
	// Five slow sources fetched concurrently must finish in roughly one
	// source's latency, not five.
	now := time.Now()
	agg := aggregator.New()
	for i := 0; i < 5; i++ {
		agg.AddSource(&stubSource{
			label: fmt.Sprintf("slow%d", i),
			delay: 100 * time.Millisecond,
			items: []models.NewsItem{item(fmt.Sprintf("slow%d", i), now)},
		})
	}

	start := time.Now()
	got := agg.Aggregate(context.Background())
	elapsed := time.Since(start)

	require.Len(t, got, 5)
	require.Less(t, elapsed, 400*time.Millisecond)
}
