package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/KostasPapadooo/ev-charging-app/internal/metrics"
	"github.com/KostasPapadooo/ev-charging-app/internal/models"
	"github.com/KostasPapadooo/ev-charging-app/internal/pubsub"
)

const speedJobName = "speed_sweep"

// SpeedSummary reports one diff-and-notify run.
type SpeedSummary struct {
	Checked        int
	Reported       int
	Changed        int
	UpdateFailures int
	Published      bool
}

// SpeedSweep polls live availability for every tracked station on a fast
// cadence, persists the transitions it detects and pushes them out through
// the ledger, the pub/sub channel and the notification fan-out.
type SpeedSweep struct {
	stations  StationStore
	history   HistoryStore
	events    EventStore
	provider  Provider
	publisher pubsub.Publisher
	notifier  Notifier

	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewSpeedSweep(stations StationStore, history HistoryStore, events EventStore, provider Provider, publisher pubsub.Publisher, notifier Notifier, logger *zap.Logger, m *metrics.Metrics) *SpeedSweep {
	return &SpeedSweep{
		stations:  stations,
		history:   history,
		events:    events,
		provider:  provider,
		publisher: publisher,
		notifier:  notifier,
		logger:    logger,
		metrics:   m,
	}
}

// Run executes one sweep. Stations absent from the provider response are left
// untouched; per-station persistence failures skip that station's downstream
// effects without aborting the run.
func (s *SpeedSweep) Run(ctx context.Context) (*SpeedSummary, error) {
	started := time.Now()
	summary := &SpeedSummary{}

	states, err := s.stations.StatesByID(ctx)
	if err != nil {
		s.observe(started, "error")
		return nil, fmt.Errorf("project states: %w", err)
	}
	summary.Checked = len(states)
	if len(states) == 0 {
		s.observe(started, "ok")
		return summary, nil
	}

	ids := make([]string, 0, len(states))
	for id := range states {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	availability, err := s.provider.BulkStatus(ctx, ids)
	if err != nil {
		s.observe(started, "error")
		return nil, fmt.Errorf("bulk status: %w", err)
	}
	summary.Reported = len(availability)

	now := time.Now().UTC()
	changes := make([]models.StationChange, 0)
	for _, id := range ids {
		current, ok := availability[id]
		if !ok {
			// Absent means the provider had nothing to say, not offline.
			continue
		}
		previous := states[id]
		if current.Status == previous.Status {
			continue
		}

		updated, err := s.stations.UpdateStatus(ctx, id, current.Status, current.Connectors)
		if err != nil {
			summary.UpdateFailures++
			s.logger.Warn("status update failed during speed sweep",
				zap.String("station_id", id),
				zap.String("new_status", string(current.Status)),
				zap.Error(err))
			continue
		}

		snapshot := models.NewSnapshot(updated, now)
		if err := s.history.Append(ctx, &snapshot); err != nil {
			s.logger.Warn("snapshot append failed during speed sweep",
				zap.String("station_id", id),
				zap.Error(err))
		}
		event := models.ChangeEvent{
			EventType: models.EventStatusChange,
			StationID: id,
			OldStatus: previous.Status,
			NewStatus: current.Status,
			Payload: map[string]interface{}{
				"station_name": updated.Name,
				"connectors":   len(updated.Connectors),
			},
			Timestamp: now,
		}
		if err := s.events.Insert(ctx, &event); err != nil {
			s.logger.Warn("event append failed during speed sweep",
				zap.String("station_id", id),
				zap.Error(err))
		}

		changes = append(changes, models.StationChange{
			StationID:   id,
			StationName: updated.Name,
			OldStatus:   previous.Status,
			NewStatus:   current.Status,
			ChangedAt:   now,
		})
	}
	summary.Changed = len(changes)
	s.metrics.ChangesDetected.Add(float64(len(changes)))

	if len(changes) > 0 {
		batch := models.ChangeBatch{SweepStarted: started.UTC(), Changes: changes}
		if err := s.publisher.PublishChanges(ctx, batch); err != nil {
			s.logger.Warn("change batch publish failed", zap.Error(err))
		} else {
			summary.Published = true
			s.metrics.BatchesPublished.Inc()
		}

		s.notifier.Dispatch(ctx, changes)
	}

	s.observe(started, "ok")
	s.logger.Info("speed sweep finished",
		zap.Int("checked", summary.Checked),
		zap.Int("reported", summary.Reported),
		zap.Int("changed", summary.Changed),
		zap.Int("update_failures", summary.UpdateFailures),
		zap.Duration("took", time.Since(started)))
	return summary, nil
}

func (s *SpeedSweep) observe(started time.Time, result string) {
	s.metrics.SweepRuns.WithLabelValues(speedJobName, result).Inc()
	s.metrics.SweepDuration.WithLabelValues(speedJobName).Observe(time.Since(started).Seconds())
}
