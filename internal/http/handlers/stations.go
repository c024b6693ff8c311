package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/KostasPapadooo/ev-charging-app/internal/models"
	"github.com/KostasPapadooo/ev-charging-app/internal/repository"
	"github.com/KostasPapadooo/ev-charging-app/internal/service"
)

// StationReader is the read surface the station handlers need.
// *repository.StationRepository satisfies it.
type StationReader interface {
	GetByID(ctx context.Context, tomtomID string) (*models.Station, error)
	List(ctx context.Context, statusFilter models.StationStatus, limit int) ([]models.Station, error)
	CountByStatus(ctx context.Context) (map[models.StationStatus]int64, error)
}

// Searcher answers geo queries. *service.SearchService satisfies it.
type Searcher interface {
	Nearby(ctx context.Context, q service.SearchQuery) (*service.SearchResult, error)
}

// HistoryReader reads a station's snapshot timeline.
type HistoryReader interface {
	StationHistory(ctx context.Context, stationID string, from, to time.Time, limit int) ([]models.HistoricalSnapshot, error)
}

// NewStationsListHandler returns GET /api/stations.
func NewStationsListHandler(stations StationReader, maxResults int, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, ok := statusFilter(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown status filter")
			return
		}
		limit, err := queryInt(r, "limit", maxResults)
		if err != nil || limit <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if limit > maxResults {
			limit = maxResults
		}

		list, err := stations.List(r.Context(), status, limit)
		if err != nil {
			logger.Error("listing stations failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to list stations")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"stations": list,
			"count":    len(list),
		})
	}
}

// NewStationByIDHandler returns GET /api/stations/{id}.
func NewStationByIDHandler(stations StationReader, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		station, err := stations.GetByID(r.Context(), id)
		if err != nil {
			if errors.Is(err, repository.ErrStationNotFound) {
				writeError(w, http.StatusNotFound, "station not found")
				return
			}
			logger.Error("fetching station failed", zap.String("station_id", id), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to fetch station")
			return
		}
		writeJSON(w, http.StatusOK, station)
	}
}

// NewNearbySearchHandler returns GET /api/stations/nearby/search.
func NewNearbySearchHandler(search Searcher, defaultRadiusMeters, maxResults int, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lat, hasLat, err := queryFloat(r, "lat")
		if err != nil || !hasLat || lat < -90 || lat > 90 {
			writeError(w, http.StatusBadRequest, "lat is required and must be within [-90, 90]")
			return
		}
		lon, hasLon, err := queryFloat(r, "lon")
		if err != nil || !hasLon || lon < -180 || lon > 180 {
			writeError(w, http.StatusBadRequest, "lon is required and must be within [-180, 180]")
			return
		}
		radius, hasRadius, err := queryFloat(r, "radius")
		if err != nil || (hasRadius && radius <= 0) {
			writeError(w, http.StatusBadRequest, "radius must be a positive number of meters")
			return
		}
		if !hasRadius {
			radius = float64(defaultRadiusMeters)
		}
		status, ok := statusFilter(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown status filter")
			return
		}
		limit, err := queryInt(r, "limit", maxResults)
		if err != nil || limit <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}

		result, err := search.Nearby(r.Context(), service.SearchQuery{
			Latitude:     lat,
			Longitude:    lon,
			RadiusMeters: radius,
			Status:       status,
			Limit:        limit,
		})
		if err != nil {
			logger.Error("nearby search failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "search failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"stations":  result.Stations,
			"count":     len(result.Stations),
			"served_by": result.ServedBy,
		})
	}
}

// NewStationHistoryHandler returns GET /api/stations/{id}/history.
// The window defaults to the last 24 hours; "hours" widens it.
func NewStationHistoryHandler(stations StationReader, history HistoryReader, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if _, err := stations.GetByID(r.Context(), id); err != nil {
			if errors.Is(err, repository.ErrStationNotFound) {
				writeError(w, http.StatusNotFound, "station not found")
				return
			}
			logger.Error("fetching station failed", zap.String("station_id", id), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to fetch station")
			return
		}

		hours, err := queryInt(r, "hours", 24)
		if err != nil || hours <= 0 {
			writeError(w, http.StatusBadRequest, "hours must be a positive integer")
			return
		}
		limit, err := queryInt(r, "limit", 500)
		if err != nil || limit <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}

		to := time.Now().UTC()
		from := to.Add(-time.Duration(hours) * time.Hour)
		snapshots, err := history.StationHistory(r.Context(), id, from, to, limit)
		if err != nil {
			logger.Error("fetching history failed", zap.String("station_id", id), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to fetch history")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"station_id": id,
			"from":       from,
			"to":         to,
			"snapshots":  snapshots,
			"count":      len(snapshots),
		})
	}
}

// EventsReader reads a station's change-event ledger.
type EventsReader interface {
	StationEvents(ctx context.Context, stationID string, since time.Time, limit int) ([]models.ChangeEvent, error)
}

// NewStationEventsHandler returns GET /api/stations/{id}/events.
func NewStationEventsHandler(stations StationReader, events EventsReader, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if _, err := stations.GetByID(r.Context(), id); err != nil {
			if errors.Is(err, repository.ErrStationNotFound) {
				writeError(w, http.StatusNotFound, "station not found")
				return
			}
			logger.Error("fetching station failed", zap.String("station_id", id), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to fetch station")
			return
		}

		hours, err := queryInt(r, "hours", 24)
		if err != nil || hours <= 0 {
			writeError(w, http.StatusBadRequest, "hours must be a positive integer")
			return
		}
		limit, err := queryInt(r, "limit", 100)
		if err != nil || limit <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}

		since := time.Now().UTC().Add(-time.Duration(hours) * time.Hour)
		list, err := events.StationEvents(r.Context(), id, since, limit)
		if err != nil {
			logger.Error("fetching events failed", zap.String("station_id", id), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to fetch events")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"station_id": id,
			"since":      since,
			"events":     list,
			"count":      len(list),
		})
	}
}

// NewStatsSummaryHandler returns GET /api/stations/stats/summary.
func NewStatsSummaryHandler(stations StationReader, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		counts, err := stations.CountByStatus(r.Context())
		if err != nil {
			logger.Error("counting stations failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to compute summary")
			return
		}
		var total int64
		byStatus := make(map[string]int64, len(counts))
		for status, n := range counts {
			byStatus[string(status)] = n
			total += n
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"total":     total,
			"by_status": byStatus,
		})
	}
}

// NewHealthHandler returns GET /health.
func NewHealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func statusFilter(r *http.Request) (models.StationStatus, bool) {
	raw := r.URL.Query().Get("status")
	if raw == "" {
		return "", true
	}
	status := models.StationStatus(raw)
	if !status.Valid() {
		return "", false
	}
	return status, true
}
