package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/KostasPapadooo/ev-charging-app/internal/config"
	"github.com/KostasPapadooo/ev-charging-app/internal/metrics"
	"github.com/KostasPapadooo/ev-charging-app/internal/models"
)

const batchJobName = "batch_sweep"

// BatchSummary reports one region reconciliation.
type BatchSummary struct {
	Region        string
	Fetched       int
	New           int
	Missing       int
	Inserted      int
	Updated       int
	Failed        int
	StatusChanges int
	Snapshots     int
}

// BatchSweep reconciles one region's stations against the provider on a slow
// cadence: full area fetch, diff against the store, bulk upsert, snapshot.
type BatchSweep struct {
	stations StationStore
	history  HistoryStore
	provider Provider

	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewBatchSweep(stations StationStore, history HistoryStore, provider Provider, logger *zap.Logger, m *metrics.Metrics) *BatchSweep {
	return &BatchSweep{
		stations: stations,
		history:  history,
		provider: provider,
		logger:   logger,
		metrics:  m,
	}
}

// Run reconciles a single region. A provider failure aborts the run without
// touching the store; stations the provider no longer reports are kept as-is
// and only counted as missing.
func (b *BatchSweep) Run(ctx context.Context, region config.Region) (*BatchSummary, error) {
	started := time.Now()
	summary := &BatchSummary{Region: region.Name}

	knownIDs, err := b.stations.IDsNear(ctx, region.Longitude, region.Latitude, float64(region.RadiusMeters))
	if err != nil {
		b.observe(started, "error")
		return nil, fmt.Errorf("project known ids for %s: %w", region.Name, err)
	}

	fetched, err := b.provider.SearchArea(ctx, region.Latitude, region.Longitude, region.RadiusMeters)
	if err != nil {
		b.observe(started, "error")
		return nil, fmt.Errorf("fetch region %s: %w", region.Name, err)
	}
	summary.Fetched = len(fetched)

	states, err := b.stations.StatesByID(ctx)
	if err != nil {
		b.observe(started, "error")
		return nil, fmt.Errorf("project states: %w", err)
	}

	known := make(map[string]bool, len(knownIDs))
	for _, id := range knownIDs {
		known[id] = true
	}

	now := time.Now().UTC()
	upserts := make([]models.Station, 0, len(fetched))
	for i := range fetched {
		station := fetched[i]
		station.LastUpdated = now

		if state, ok := states[station.TomTomID]; ok {
			station.StatusChanges = state.StatusChanges
			if state.Status != station.Status {
				station.StatusChanges++
				summary.StatusChanges++
			}
		} else {
			summary.New++
		}
		delete(known, station.TomTomID)
		upserts = append(upserts, station)
	}
	summary.Missing = len(known)

	result, err := b.stations.BulkUpsert(ctx, upserts)
	if err != nil {
		b.observe(started, "error")
		return nil, fmt.Errorf("bulk upsert region %s: %w", region.Name, err)
	}
	summary.Inserted = result.Inserted
	summary.Updated = result.Updated
	summary.Failed = len(result.Failed)
	for _, failure := range result.Failed {
		b.logger.Warn("station upsert failed during batch sweep",
			zap.String("region", region.Name),
			zap.String("station_id", failure.TomTomID),
			zap.Error(failure.Err))
	}

	failed := make(map[string]bool, len(result.Failed))
	for _, failure := range result.Failed {
		failed[failure.TomTomID] = true
	}
	snapshots := make([]models.HistoricalSnapshot, 0, len(upserts))
	for i := range upserts {
		if failed[upserts[i].TomTomID] {
			continue
		}
		snapshots = append(snapshots, models.NewSnapshot(&upserts[i], now))
	}
	written, err := b.history.AppendBatch(ctx, snapshots)
	summary.Snapshots = written
	if err != nil {
		b.logger.Warn("snapshot append failed during batch sweep",
			zap.String("region", region.Name),
			zap.Int("written", written),
			zap.Error(err))
	}

	b.metrics.StationsUpserts.WithLabelValues(batchJobName).Add(float64(result.Inserted + result.Updated))
	b.observe(started, "ok")
	b.logger.Info("batch sweep finished",
		zap.String("region", region.Name),
		zap.Int("fetched", summary.Fetched),
		zap.Int("new", summary.New),
		zap.Int("missing", summary.Missing),
		zap.Int("inserted", summary.Inserted),
		zap.Int("updated", summary.Updated),
		zap.Int("status_changes", summary.StatusChanges),
		zap.Duration("took", time.Since(started)))
	return summary, nil
}

func (b *BatchSweep) observe(started time.Time, result string) {
	b.metrics.SweepRuns.WithLabelValues(batchJobName, result).Inc()
	b.metrics.SweepDuration.WithLabelValues(batchJobName).Observe(time.Since(started).Seconds())
}
