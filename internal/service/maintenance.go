package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/KostasPapadooo/ev-charging-app/internal/models"
)

// Maintenance owns the periodic cleanup jobs: evicting stale cached stations
// and pruning the historical ledger past its retention window.
type Maintenance struct {
	stations StationStore
	history  HistoryStore

	cacheMaxAge      time.Duration
	historyRetention time.Duration

	logger *zap.Logger
}

func NewMaintenance(stations StationStore, history HistoryStore, cacheMaxAge, historyRetention time.Duration, logger *zap.Logger) *Maintenance {
	return &Maintenance{
		stations:         stations,
		history:          history,
		cacheMaxAge:      cacheMaxAge,
		historyRetention: historyRetention,
		logger:           logger,
	}
}

// EvictStale drops provider-sourced stations that no sweep or search has
// refreshed within the cache window.
func (m *Maintenance) EvictStale(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-m.cacheMaxAge)
	deleted, err := m.stations.DeleteStale(ctx, models.SourceTomTom, cutoff)
	if err != nil {
		return err
	}
	if deleted > 0 {
		m.logger.Info("evicted stale stations",
			zap.Int64("deleted", deleted),
			zap.Time("cutoff", cutoff))
	}
	return nil
}

// PruneHistory deletes snapshots older than the retention window.
func (m *Maintenance) PruneHistory(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-m.historyRetention)
	deleted, err := m.history.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return err
	}
	if deleted > 0 {
		m.logger.Info("pruned historical snapshots",
			zap.Int64("deleted", deleted),
			zap.Time("cutoff", cutoff))
	}
	return nil
}
