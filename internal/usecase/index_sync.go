package usecase

import (
	"context"
	"fmt"
	"time"

	drepo "FinYield/internal/domain/repository"
	"FinYield/pkg/logger"
)

// IndexSync copies the latest observations of an index series from the
// publisher into the index store.
type IndexSync struct {
	feed     drepo.IndexFeed
	store    drepo.IndexStore
	metrics  drepo.Metrics
	log      *logger.Logger
	seriesID int
}

func NewIndexSync(feed drepo.IndexFeed, store drepo.IndexStore, metrics drepo.Metrics, log *logger.Logger, seriesID int) *IndexSync {
	if log == nil {
		log = logger.Nop()
	}
	return &IndexSync{feed: feed, store: store, metrics: metrics, log: log, seriesID: seriesID}
}

// Sync returns the number of points upserted.
func (s *IndexSync) Sync(ctx context.Context) (int, error) {
	start := time.Now()
	pts, err := s.feed.FetchSeries(ctx, s.seriesID)
	if err != nil {
		s.metrics.RecordError("index_fetch")
		return 0, err
	}
	if len(pts) == 0 {
		s.metrics.RecordError("index_empty")
		return 0, fmt.Errorf("series %d returned no points", s.seriesID)
	}
	if err := s.store.UpsertIndexPoints(ctx, pts); err != nil {
		s.metrics.RecordError("index_store")
		return 0, fmt.Errorf("upsert index points: %w", err)
	}

	last := pts[len(pts)-1]
	s.metrics.RecordLatency("index_sync", time.Since(start).Seconds())
	s.log.Info("index series synced",
		logger.String("series", last.Series),
		logger.Int("points", len(pts)),
		logger.String("last_date", last.Date.Format("2006-01-02")),
		logger.Float64("last_value", last.Value),
	)
	return len(pts), nil
}
