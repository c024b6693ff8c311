package service

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/KostasPapadooo/ev-charging-app/internal/metrics"
	"github.com/KostasPapadooo/ev-charging-app/internal/models"
	"github.com/KostasPapadooo/ev-charging-app/internal/repository"
	"github.com/KostasPapadooo/ev-charging-app/internal/tomtom"
)

func testMetrics() *metrics.Metrics {
	return metrics.New(prometheus.NewRegistry())
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}

// fakeStore is an in-memory StationStore. Distance checks use a flat-earth
// approximation, close enough for test coordinates.
type fakeStore struct {
	mu       sync.Mutex
	stations map[string]*models.Station

	upsertErr    error
	updateErrFor map[string]error
	deleted      []string
}

func newFakeStore(stations ...models.Station) *fakeStore {
	s := &fakeStore{stations: make(map[string]*models.Station)}
	for i := range stations {
		st := stations[i]
		s.stations[st.TomTomID] = &st
	}
	return s
}

func approxMeters(lon1, lat1, lon2, lat2 float64) float64 {
	const metersPerDegree = 111_000
	dx := (lon2 - lon1) * metersPerDegree * math.Cos(lat1*math.Pi/180)
	dy := (lat2 - lat1) * metersPerDegree
	return math.Hypot(dx, dy)
}

func (s *fakeStore) Upsert(_ context.Context, station *models.Station) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.upsertErr != nil {
		return s.upsertErr
	}
	cp := *station
	s.stations[station.TomTomID] = &cp
	return nil
}

func (s *fakeStore) BulkUpsert(ctx context.Context, stations []models.Station) (repository.BulkResult, error) {
	var result repository.BulkResult
	for i := range stations {
		s.mu.Lock()
		_, exists := s.stations[stations[i].TomTomID]
		s.mu.Unlock()
		if err := s.Upsert(ctx, &stations[i]); err != nil {
			result.Failed = append(result.Failed, repository.BulkFailure{TomTomID: stations[i].TomTomID, Err: err})
			continue
		}
		if exists {
			result.Updated++
		} else {
			result.Inserted++
		}
	}
	return result, nil
}

func (s *fakeStore) GetByID(_ context.Context, id string) (*models.Station, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	station, ok := s.stations[id]
	if !ok {
		return nil, repository.ErrStationNotFound
	}
	cp := *station
	return &cp, nil
}

func (s *fakeStore) FindNear(_ context.Context, longitude, latitude, radiusMeters float64, statusFilter models.StationStatus, limit int) ([]models.Station, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Station
	for _, station := range s.stations {
		if approxMeters(longitude, latitude, station.Longitude, station.Latitude) > radiusMeters {
			continue
		}
		if statusFilter != "" && station.Status != statusFilter {
			continue
		}
		out = append(out, *station)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TomTomID < out[j].TomTomID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeStore) IDsNear(ctx context.Context, longitude, latitude, radiusMeters float64) ([]string, error) {
	stations, err := s.FindNear(ctx, longitude, latitude, radiusMeters, "", 0)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(stations))
	for _, st := range stations {
		ids = append(ids, st.TomTomID)
	}
	return ids, nil
}

func (s *fakeStore) StatesByID(context.Context) (map[string]repository.StationState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	states := make(map[string]repository.StationState, len(s.stations))
	for id, st := range s.stations {
		states[id] = repository.StationState{Name: st.Name, Status: st.Status, StatusChanges: st.StatusChanges}
	}
	return states, nil
}

func (s *fakeStore) UpdateStatus(_ context.Context, id string, newStatus models.StationStatus, connectors []models.Connector) (*models.Station, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.updateErrFor[id]; err != nil {
		return nil, err
	}
	station, ok := s.stations[id]
	if !ok {
		return nil, repository.ErrStationNotFound
	}
	if station.Status != newStatus {
		station.StatusChanges++
	}
	station.Status = newStatus
	if connectors != nil {
		station.Connectors = connectors
	}
	station.LastUpdated = time.Now().UTC()
	cp := *station
	return &cp, nil
}

func (s *fakeStore) DeleteStale(_ context.Context, source string, olderThan time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var deleted int64
	for id, st := range s.stations {
		if st.Source == source && st.LastUpdated.Before(olderThan) {
			delete(s.stations, id)
			s.deleted = append(s.deleted, id)
			deleted++
		}
	}
	return deleted, nil
}

type fakeProvider struct {
	mu          sync.Mutex
	searchCalls int
	bulkCalls   [][]string

	searchResult []models.Station
	searchErr    error
	bulkResult   map[string]tomtom.Availability
	bulkErr      error
}

func (p *fakeProvider) SearchArea(context.Context, float64, float64, int) ([]models.Station, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.searchCalls++
	if p.searchErr != nil {
		return nil, p.searchErr
	}
	return p.searchResult, nil
}

func (p *fakeProvider) BulkStatus(_ context.Context, ids []string) (map[string]tomtom.Availability, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bulkCalls = append(p.bulkCalls, append([]string(nil), ids...))
	if p.bulkErr != nil {
		return nil, p.bulkErr
	}
	return p.bulkResult, nil
}

type fakeHistory struct {
	mu        sync.Mutex
	snapshots []models.HistoricalSnapshot
	appendErr error
	pruned    []time.Time
}

func (h *fakeHistory) Append(_ context.Context, snapshot *models.HistoricalSnapshot) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.appendErr != nil {
		return h.appendErr
	}
	h.snapshots = append(h.snapshots, *snapshot)
	return nil
}

func (h *fakeHistory) AppendBatch(ctx context.Context, snapshots []models.HistoricalSnapshot) (int, error) {
	for i := range snapshots {
		if err := h.Append(ctx, &snapshots[i]); err != nil {
			return i, err
		}
	}
	return len(snapshots), nil
}

func (h *fakeHistory) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pruned = append(h.pruned, cutoff)
	var kept []models.HistoricalSnapshot
	var deleted int64
	for _, snap := range h.snapshots {
		if snap.Timestamp.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, snap)
	}
	h.snapshots = kept
	return deleted, nil
}

type fakeEvents struct {
	mu     sync.Mutex
	events []models.ChangeEvent
}

func (e *fakeEvents) Insert(_ context.Context, event *models.ChangeEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, *event)
	return nil
}

type fakePublisher struct {
	mu      sync.Mutex
	batches []models.ChangeBatch
	err     error
}

func (p *fakePublisher) PublishChanges(_ context.Context, batch models.ChangeBatch) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.batches = append(p.batches, batch)
	return nil
}

type fakeNotifier struct {
	mu         sync.Mutex
	dispatched [][]models.StationChange
}

func (n *fakeNotifier) Dispatch(_ context.Context, changes []models.StationChange) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.dispatched = append(n.dispatched, append([]models.StationChange(nil), changes...))
}
