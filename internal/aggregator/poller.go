package aggregator

import (
	"context"
	"time"

	"regwatch/internal/logger"
	"regwatch/internal/models"
)

// Archiver persists aggregated items. Implemented by db.Database.
type Archiver interface {
	SaveNewsItem(ctx context.Context, item models.NewsItem) error
}

// StartArchivePolling runs an aggregation cycle immediately and then on
// every tick, archiving the results. Blocks until ctx is cancelled.
func (a *Aggregator) StartArchivePolling(ctx context.Context, store Archiver, interval time.Duration) {
	log := logger.Log.WithFields(map[string]interface{}{
		"service":  "poller",
		"interval": interval.String(),
	})

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	a.archiveOnce(ctx, store, log)

	for {
		select {
		case <-ticker.C:
			log.Info("Starting new archive cycle")
			a.archiveOnce(ctx, store, log)

		case <-ctx.Done():
			log.Info("Stopping poller by context")
			return
		}
	}
}

func (a *Aggregator) archiveOnce(ctx context.Context, store Archiver, log *logger.Entry) {
	items := a.Aggregate(ctx)

	saved := 0
	for _, item := range items {
		if err := store.SaveNewsItem(ctx, item); err != nil {
			log.Warnf("Failed to archive item: %v", err)
			continue
		}
		saved++
	}
	log.WithField("items", saved).Info("Archive cycle complete")
}
