package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/KostasPapadooo/ev-charging-app/internal/metrics"
	"github.com/KostasPapadooo/ev-charging-app/internal/models"
)

// Serving paths for a nearby search, reported back to the caller.
const (
	ServedLocal    = "local"
	ServedEnriched = "enriched"
	ServedDegraded = "degraded"
)

// SearchQuery is a geo search request.
type SearchQuery struct {
	Latitude     float64
	Longitude    float64
	RadiusMeters float64
	Status       models.StationStatus
	Limit        int
}

// SearchResult carries the matching stations plus which path served them.
type SearchResult struct {
	Stations []models.Station `json:"stations"`
	ServedBy string           `json:"served_by"`
}

// SearchService answers nearby searches cache-aside: the local store first,
// the provider only when local coverage is thin.
type SearchService struct {
	stations StationStore
	provider Provider

	minLocalResults int
	maxResults      int

	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewSearchService(stations StationStore, provider Provider, minLocalResults, maxResults int, logger *zap.Logger, m *metrics.Metrics) *SearchService {
	return &SearchService{
		stations:        stations,
		provider:        provider,
		minLocalResults: minLocalResults,
		maxResults:      maxResults,
		logger:          logger,
		metrics:         m,
	}
}

// Nearby serves a geo search. When the store already holds enough stations
// inside the radius the provider is never contacted. Otherwise the radius is
// fetched from the provider, folded into the store and re-queried, so the
// response always reflects persisted state. A provider failure degrades to
// whatever the store had.
func (s *SearchService) Nearby(ctx context.Context, q SearchQuery) (*SearchResult, error) {
	limit := q.Limit
	if limit <= 0 || limit > s.maxResults {
		limit = s.maxResults
	}

	local, err := s.stations.FindNear(ctx, q.Longitude, q.Latitude, q.RadiusMeters, q.Status, limit)
	if err != nil {
		return nil, err
	}
	if len(local) >= s.minLocalResults {
		s.metrics.SearchRequests.WithLabelValues(ServedLocal).Inc()
		return &SearchResult{Stations: local, ServedBy: ServedLocal}, nil
	}

	fetched, err := s.provider.SearchArea(ctx, q.Latitude, q.Longitude, int(q.RadiusMeters))
	if err != nil {
		s.logger.Warn("provider search failed, serving local results",
			zap.Float64("lat", q.Latitude),
			zap.Float64("lon", q.Longitude),
			zap.Error(err))
		s.metrics.SearchRequests.WithLabelValues(ServedDegraded).Inc()
		return &SearchResult{Stations: local, ServedBy: ServedDegraded}, nil
	}

	if err := s.fold(ctx, fetched); err != nil {
		s.logger.Warn("folding provider results into store failed", zap.Error(err))
	}

	merged, err := s.stations.FindNear(ctx, q.Longitude, q.Latitude, q.RadiusMeters, q.Status, limit)
	if err != nil {
		return nil, err
	}
	s.metrics.SearchRequests.WithLabelValues(ServedEnriched).Inc()
	return &SearchResult{Stations: merged, ServedBy: ServedEnriched}, nil
}

// fold upserts provider results, carrying each known station's change counter
// forward (and bumping it when the observed status differs).
func (s *SearchService) fold(ctx context.Context, fetched []models.Station) error {
	now := time.Now().UTC()
	var lastErr error
	for i := range fetched {
		station := fetched[i]
		station.LastUpdated = now

		existing, err := s.stations.GetByID(ctx, station.TomTomID)
		if err == nil && existing != nil {
			station.StatusChanges = existing.StatusChanges
			if existing.Status != station.Status {
				station.StatusChanges++
			}
		}

		if err := s.stations.Upsert(ctx, &station); err != nil {
			s.logger.Warn("station upsert failed",
				zap.String("station_id", station.TomTomID),
				zap.Error(err))
			lastErr = err
		}
	}
	return lastErr
}
