package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/KostasPapadooo/ev-charging-app/internal/metrics"
	"github.com/KostasPapadooo/ev-charging-app/internal/models"
	"github.com/KostasPapadooo/ev-charging-app/internal/repository"
)

// SubscriptionSource resolves who subscribed to a station.
// *repository.SubscriptionRepository satisfies it.
type SubscriptionSource interface {
	ActiveForStation(ctx context.Context, stationID string) ([]repository.SubscriberCandidate, error)
}

// DeliveryLog records every attempted delivery; the daily cap counts its rows.
type DeliveryLog interface {
	Insert(ctx context.Context, notification *models.Notification) error
}

// Deliverer pushes one notification to one subscriber.
type Deliverer interface {
	Deliver(ctx context.Context, subscriber models.Subscriber, change models.StationChange) error
}

// Fanout dispatches detected status changes to subscribers. Every delivery
// for a sweep run is attempted concurrently and awaited; one failing
// subscriber never blocks the rest.
type Fanout struct {
	subscriptions SubscriptionSource
	log           DeliveryLog
	deliverer     Deliverer

	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewFanout(subscriptions SubscriptionSource, log DeliveryLog, deliverer Deliverer, logger *zap.Logger, m *metrics.Metrics) *Fanout {
	return &Fanout{
		subscriptions: subscriptions,
		log:           log,
		deliverer:     deliverer,
		logger:        logger,
		metrics:       m,
	}
}

// Dispatch resolves subscribers for every change and delivers to each one
// that opted into the new status and has daily budget left. It returns once
// all attempts have completed.
func (f *Fanout) Dispatch(ctx context.Context, changes []models.StationChange) {
	var wg sync.WaitGroup
	for _, change := range changes {
		wg.Add(1)
		go func(change models.StationChange) {
			defer wg.Done()
			f.dispatchChange(ctx, change)
		}(change)
	}
	wg.Wait()
}

func (f *Fanout) dispatchChange(ctx context.Context, change models.StationChange) {
	candidates, err := f.subscriptions.ActiveForStation(ctx, change.StationID)
	if err != nil {
		f.logger.Error("resolving subscribers failed",
			zap.String("station_id", change.StationID),
			zap.Error(err))
		return
	}

	var wg sync.WaitGroup
	for _, candidate := range candidates {
		if !candidate.Settings.Wants(change.NewStatus) {
			continue
		}
		if candidate.Settings.MaxPerDay > 0 && candidate.SentToday >= candidate.Settings.MaxPerDay {
			f.logger.Debug("daily notification cap reached",
				zap.Int64("user_id", candidate.Subscriber.UserID),
				zap.String("station_id", change.StationID))
			continue
		}
		wg.Add(1)
		go func(subscriber models.Subscriber) {
			defer wg.Done()
			f.deliver(ctx, subscriber, change)
		}(candidate.Subscriber)
	}
	wg.Wait()
}

func (f *Fanout) deliver(ctx context.Context, subscriber models.Subscriber, change models.StationChange) {
	record := models.Notification{
		UserID:    subscriber.UserID,
		StationID: change.StationID,
		OldStatus: change.OldStatus,
		NewStatus: change.NewStatus,
		Status:    models.NotificationSent,
		SentAt:    time.Now().UTC(),
	}

	if err := f.deliverer.Deliver(ctx, subscriber, change); err != nil {
		record.Status = models.NotificationFailed
		record.Error = err.Error()
		f.logger.Warn("notification delivery failed",
			zap.Int64("user_id", subscriber.UserID),
			zap.String("station_id", change.StationID),
			zap.Error(err))
		f.metrics.Notifications.WithLabelValues("failed").Inc()
	} else {
		f.metrics.Notifications.WithLabelValues("sent").Inc()
	}

	if err := f.log.Insert(ctx, &record); err != nil {
		f.logger.Error("recording notification failed",
			zap.Int64("user_id", subscriber.UserID),
			zap.Error(err))
	}
}
