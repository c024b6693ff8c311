package notify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/KostasPapadooo/ev-charging-app/internal/metrics"
	"github.com/KostasPapadooo/ev-charging-app/internal/models"
	"github.com/KostasPapadooo/ev-charging-app/internal/repository"
)

type fakeSubscriptions struct {
	byStation map[string][]repository.SubscriberCandidate
	err       error
}

func (f *fakeSubscriptions) ActiveForStation(_ context.Context, stationID string) ([]repository.SubscriberCandidate, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byStation[stationID], nil
}

type fakeLog struct {
	mu      sync.Mutex
	records []models.Notification
}

func (f *fakeLog) Insert(_ context.Context, notification *models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, *notification)
	return nil
}

type fakeDeliverer struct {
	mu        sync.Mutex
	delivered []models.Subscriber
	failFor   map[int64]error
}

func (f *fakeDeliverer) Deliver(_ context.Context, subscriber models.Subscriber, _ models.StationChange) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failFor[subscriber.UserID]; err != nil {
		return err
	}
	f.delivered = append(f.delivered, subscriber)
	return nil
}

func candidate(userID int64, settings models.NotificationSettings, sentToday int) repository.SubscriberCandidate {
	return repository.SubscriberCandidate{
		Subscriber: models.Subscriber{UserID: userID, Email: "user@example.com", StationID: "s1"},
		Settings:   settings,
		SentToday:  sentToday,
	}
}

func change(newStatus models.StationStatus) models.StationChange {
	return models.StationChange{
		StationID:   "s1",
		StationName: "Main Street",
		OldStatus:   models.StatusOccupied,
		NewStatus:   newStatus,
		ChangedAt:   time.Now().UTC(),
	}
}

func newFanout(subs SubscriptionSource, log DeliveryLog, deliverer Deliverer) *Fanout {
	return NewFanout(subs, log, deliverer, zap.NewNop(), metrics.New(prometheus.NewRegistry()))
}

func TestDispatchDeliversToOptedInSubscribers(t *testing.T) {
	subs := &fakeSubscriptions{byStation: map[string][]repository.SubscriberCandidate{
		"s1": {
			candidate(1, models.NotificationSettings{OnAvailable: true}, 0),
			candidate(2, models.NotificationSettings{OnOffline: true}, 0),
		},
	}}
	log := &fakeLog{}
	deliverer := &fakeDeliverer{}

	newFanout(subs, log, deliverer).Dispatch(context.Background(), []models.StationChange{change(models.StatusAvailable)})

	if len(deliverer.delivered) != 1 || deliverer.delivered[0].UserID != 1 {
		t.Fatalf("delivered = %+v, want only user 1", deliverer.delivered)
	}
	if len(log.records) != 1 || log.records[0].Status != models.NotificationSent {
		t.Fatalf("records = %+v, want one SENT", log.records)
	}
}

func TestDispatchEnforcesDailyCap(t *testing.T) {
	subs := &fakeSubscriptions{byStation: map[string][]repository.SubscriberCandidate{
		"s1": {
			candidate(1, models.NotificationSettings{OnAvailable: true, MaxPerDay: 5}, 5),
			candidate(2, models.NotificationSettings{OnAvailable: true, MaxPerDay: 5}, 4),
		},
	}}
	log := &fakeLog{}
	deliverer := &fakeDeliverer{}

	newFanout(subs, log, deliverer).Dispatch(context.Background(), []models.StationChange{change(models.StatusAvailable)})

	if len(deliverer.delivered) != 1 || deliverer.delivered[0].UserID != 2 {
		t.Fatalf("delivered = %+v, want only the user under the cap", deliverer.delivered)
	}
}

func TestDispatchRecordsFailuresAndContinues(t *testing.T) {
	subs := &fakeSubscriptions{byStation: map[string][]repository.SubscriberCandidate{
		"s1": {
			candidate(1, models.NotificationSettings{OnAvailable: true}, 0),
			candidate(2, models.NotificationSettings{OnAvailable: true}, 0),
		},
	}}
	log := &fakeLog{}
	deliverer := &fakeDeliverer{failFor: map[int64]error{1: errors.New("mailbox full")}}

	newFanout(subs, log, deliverer).Dispatch(context.Background(), []models.StationChange{change(models.StatusAvailable)})

	if len(deliverer.delivered) != 1 || deliverer.delivered[0].UserID != 2 {
		t.Fatalf("delivered = %+v, want user 2 despite user 1 failing", deliverer.delivered)
	}
	if len(log.records) != 2 {
		t.Fatalf("records = %d, want both attempts logged", len(log.records))
	}
	byUser := map[int64]string{}
	for _, r := range log.records {
		byUser[r.UserID] = r.Status
	}
	if byUser[1] != models.NotificationFailed || byUser[2] != models.NotificationSent {
		t.Errorf("statuses = %v, want user 1 FAILED and user 2 SENT", byUser)
	}
}

func TestDispatchSurvivesSubscriptionLookupFailure(t *testing.T) {
	subs := &fakeSubscriptions{err: errors.New("db down")}
	log := &fakeLog{}
	deliverer := &fakeDeliverer{}

	// Must return (not panic or hang) with nothing delivered.
	newFanout(subs, log, deliverer).Dispatch(context.Background(), []models.StationChange{change(models.StatusAvailable)})

	if len(deliverer.delivered) != 0 || len(log.records) != 0 {
		t.Errorf("nothing should be delivered when resolution fails")
	}
}

func TestBuildMessageMentionsTransition(t *testing.T) {
	msg := string(buildMessage("noreply@example.com",
		models.Subscriber{Email: "user@example.com", FirstName: "Ada"},
		change(models.StatusAvailable)))

	for _, want := range []string{"To: user@example.com", "Hi Ada", "OCCUPIED -> AVAILABLE", "Main Street"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
}
