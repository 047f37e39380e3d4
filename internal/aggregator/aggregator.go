// Package aggregator fans out to every configured news source
// concurrently and merges the results into one bounded, recency-sorted
// list. Sources swallow their own failures, so aggregation itself has no
// error path: a total outage of all sources yields an empty, valid list.
package aggregator

import (
	"context"
	"sort"
	"sync"

	"regwatch/internal/config"
	"regwatch/internal/fetcher"
	"regwatch/internal/logger"
	"regwatch/internal/models"
	"regwatch/internal/trials"
)

// MaxItems bounds the aggregated result regardless of how many items the
// combined sources produce.
const MaxItems = 100

// Source is anything that can produce NewsItems: an RSS fetcher, the
// clinical-trials adapter, or a stub in tests.
type Source interface {
	Label() string
	Fetch(ctx context.Context) []models.NewsItem
}

type Aggregator struct {
	sources []Source
}

func New(sources ...Source) *Aggregator {
	return &Aggregator{sources: sources}
}

// AddSource registers another source.
func (a *Aggregator) AddSource(s Source) {
	a.sources = append(a.sources, s)
}

// FromConfig builds an aggregator with one fetcher per configured RSS
// source plus the clinical-trials adapter.
func FromConfig(cfg *config.Config) *Aggregator {
	agg := New()
	for _, src := range cfg.Sources {
		agg.AddSource(fetcher.New(src))
	}
	agg.AddSource(trials.New(cfg.TrialsURL))
	return agg
}

// Aggregate fetches all sources concurrently, waits for every one to
// finish (success or swallowed failure), then merges, sorts by
// publication time descending and truncates to MaxItems. Total latency
// is bounded by the slowest source's timeout, not the sum.
func (a *Aggregator) Aggregate(ctx context.Context) []models.NewsItem {
	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		all []models.NewsItem
	)

	for _, src := range a.sources {
		wg.Add(1)
		go func(s Source) {
			defer wg.Done()

			items := s.Fetch(ctx)
			if len(items) == 0 {
				logger.Log.WithField("source", s.Label()).Debug("Source contributed no items")
				return
			}

			mu.Lock()
			all = append(all, items...)
			mu.Unlock()
		}(src)
	}
	wg.Wait()

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Published.After(all[j].Published)
	})
	if len(all) > MaxItems {
		all = all[:MaxItems]
	}

	logger.Log.WithField("items", len(all)).Debug("Aggregation complete")
	return all
}
