package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/KostasPapadooo/ev-charging-app/internal/models"
)

const stationColumns = `tomtom_id, name, longitude, latitude, address, connectors, status, source, status_changes, last_updated, created_at`

// StationRepository persists the cached station set. All writes are
// per-station upserts keyed by tomtom_id; the geospatial queries rely on the
// cube/earthdistance GiST index (see migrations/schema.sql).
type StationRepository struct {
	db *sql.DB
}

// NewStationRepository returns repository.
func NewStationRepository(db *sql.DB) *StationRepository {
	return &StationRepository{db: db}
}

// BulkResult summarizes a BulkUpsert. Failed items never abort the batch.
type BulkResult struct {
	Inserted int
	Updated  int
	Failed   []BulkFailure
}

// BulkFailure records one item that could not be written.
type BulkFailure struct {
	TomTomID string
	Err      error
}

func validateLocation(station *models.Station) error {
	if station.TomTomID == "" {
		return &ValidationError{Field: "tomtom_id", Reason: "is required"}
	}
	if station.Longitude == 0 && station.Latitude == 0 {
		return &ValidationError{Field: "location", Reason: "is missing"}
	}
	if station.Longitude < -180 || station.Longitude > 180 {
		return &ValidationError{Field: "longitude", Reason: "out of range"}
	}
	if station.Latitude < -90 || station.Latitude > 90 {
		return &ValidationError{Field: "latitude", Reason: "out of range"}
	}
	return nil
}

// Upsert replaces or inserts a station by its provider id. The change
// counter is written as supplied by the caller; upserts never reset it on
// their own. Idempotent beyond touching last_updated.
func (r *StationRepository) Upsert(ctx context.Context, station *models.Station) error {
	if err := validateLocation(station); err != nil {
		return err
	}
	if !station.Status.Valid() {
		station.Status = models.StatusUnknown
	}

	connectors, err := json.Marshal(station.Connectors)
	if err != nil {
		return err
	}

	const query = `
		INSERT INTO stations (tomtom_id, name, longitude, latitude, address, connectors, status, source, status_changes, last_updated, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		ON CONFLICT (tomtom_id) DO UPDATE SET
			name = EXCLUDED.name,
			longitude = EXCLUDED.longitude,
			latitude = EXCLUDED.latitude,
			address = EXCLUDED.address,
			connectors = EXCLUDED.connectors,
			status = EXCLUDED.status,
			source = EXCLUDED.source,
			status_changes = EXCLUDED.status_changes,
			last_updated = NOW()
		RETURNING status_changes, last_updated, created_at
	`
	return r.db.QueryRowContext(ctx, query,
		station.TomTomID,
		station.Name,
		station.Longitude,
		station.Latitude,
		station.Address,
		connectors,
		station.Status,
		station.Source,
		station.StatusChanges,
	).Scan(&station.StatusChanges, &station.LastUpdated, &station.CreatedAt)
}

// BulkUpsert writes each station independently; one item's failure does not
// abort the rest. Inserted vs updated is told apart via xmax = 0.
func (r *StationRepository) BulkUpsert(ctx context.Context, stations []models.Station) (BulkResult, error) {
	var result BulkResult
	const query = `
		INSERT INTO stations (tomtom_id, name, longitude, latitude, address, connectors, status, source, status_changes, last_updated, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		ON CONFLICT (tomtom_id) DO UPDATE SET
			name = EXCLUDED.name,
			longitude = EXCLUDED.longitude,
			latitude = EXCLUDED.latitude,
			address = EXCLUDED.address,
			connectors = EXCLUDED.connectors,
			status = EXCLUDED.status,
			source = EXCLUDED.source,
			status_changes = EXCLUDED.status_changes,
			last_updated = NOW()
		RETURNING (xmax = 0) AS inserted
	`

	for i := range stations {
		station := &stations[i]
		if err := validateLocation(station); err != nil {
			result.Failed = append(result.Failed, BulkFailure{TomTomID: station.TomTomID, Err: err})
			continue
		}
		connectors, err := json.Marshal(station.Connectors)
		if err != nil {
			result.Failed = append(result.Failed, BulkFailure{TomTomID: station.TomTomID, Err: err})
			continue
		}

		var inserted bool
		err = r.db.QueryRowContext(ctx, query,
			station.TomTomID,
			station.Name,
			station.Longitude,
			station.Latitude,
			station.Address,
			connectors,
			station.Status,
			station.Source,
			station.StatusChanges,
		).Scan(&inserted)
		if err != nil {
			result.Failed = append(result.Failed, BulkFailure{TomTomID: station.TomTomID, Err: err})
			continue
		}
		if inserted {
			result.Inserted++
		} else {
			result.Updated++
		}
	}
	return result, nil
}

// GetByID returns a station or ErrStationNotFound.
func (r *StationRepository) GetByID(ctx context.Context, tomtomID string) (*models.Station, error) {
	query := `SELECT ` + stationColumns + ` FROM stations WHERE tomtom_id = $1`
	station, err := scanStation(r.db.QueryRowContext(ctx, query, tomtomID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrStationNotFound
	}
	return station, err
}

// FindNear returns stations within radiusMeters of the point, nearest first.
// The radius is enforced in the WHERE clause, not just the ordering.
func (r *StationRepository) FindNear(ctx context.Context, longitude, latitude float64, radiusMeters float64, statusFilter models.StationStatus, limit int) ([]models.Station, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT ` + stationColumns + `
		FROM stations
		WHERE earth_box(ll_to_earth($1, $2), $3) @> ll_to_earth(latitude, longitude)
		  AND earth_distance(ll_to_earth($1, $2), ll_to_earth(latitude, longitude)) <= $3
	`
	args := []interface{}{latitude, longitude, radiusMeters}
	if statusFilter != "" {
		query += ` AND status = $4`
		args = append(args, statusFilter)
	}
	query += ` ORDER BY earth_distance(ll_to_earth($1, $2), ll_to_earth(latitude, longitude)) LIMIT ` + strconv.Itoa(limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanStations(rows)
}

// IDsNear returns only the station ids inside the area. Used by the batch
// sweep for its new/missing diff without fetching whole documents.
func (r *StationRepository) IDsNear(ctx context.Context, longitude, latitude float64, radiusMeters float64) ([]string, error) {
	const query = `
		SELECT tomtom_id
		FROM stations
		WHERE earth_box(ll_to_earth($1, $2), $3) @> ll_to_earth(latitude, longitude)
		  AND earth_distance(ll_to_earth($1, $2), ll_to_earth(latitude, longitude)) <= $3
	`
	rows, err := r.db.QueryContext(ctx, query, latitude, longitude, radiusMeters)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// StationState is the projection the sweeps diff against: current status
// plus what they need to carry counters and name notifications.
type StationState struct {
	Name          string
	Status        models.StationStatus
	StatusChanges int64
}

// StatesByID returns the id -> stored state projection for the sweeps.
func (r *StationRepository) StatesByID(ctx context.Context) (map[string]StationState, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT tomtom_id, name, status, status_changes FROM stations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	states := make(map[string]StationState)
	for rows.Next() {
		var id string
		var state StationState
		if err := rows.Scan(&id, &state.Name, &state.Status, &state.StatusChanges); err != nil {
			return nil, err
		}
		states[id] = state
	}
	return states, rows.Err()
}

// UpdateStatus sets status and last_updated atomically. The change counter
// increments in the same statement, only when the stored status differs, so
// concurrent sweeps cannot lose an increment. Connectors are replaced when
// non-nil.
func (r *StationRepository) UpdateStatus(ctx context.Context, tomtomID string, newStatus models.StationStatus, connectors []models.Connector) (*models.Station, error) {
	var connectorsJSON interface{}
	if connectors != nil {
		data, err := json.Marshal(connectors)
		if err != nil {
			return nil, err
		}
		connectorsJSON = data
	}

	query := `
		UPDATE stations
		SET status = $2,
		    status_changes = status_changes + CASE WHEN status IS DISTINCT FROM $2 THEN 1 ELSE 0 END,
		    connectors = COALESCE($3, connectors),
		    last_updated = NOW()
		WHERE tomtom_id = $1
		RETURNING ` + stationColumns

	station, err := scanStation(r.db.QueryRowContext(ctx, query, tomtomID, newStatus, connectorsJSON))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrStationNotFound
	}
	return station, err
}

// List returns stations with an optional status filter.
func (r *StationRepository) List(ctx context.Context, statusFilter models.StationStatus, limit int) ([]models.Station, error) {
	if limit <= 0 {
		limit = 200
	}
	query := `SELECT ` + stationColumns + ` FROM stations`
	args := []interface{}{}
	if statusFilter != "" {
		query += ` WHERE status = $1`
		args = append(args, statusFilter)
	}
	query += ` ORDER BY last_updated DESC LIMIT ` + strconv.Itoa(limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanStations(rows)
}

// CountByStatus returns the station count per status for the stats endpoint.
func (r *StationRepository) CountByStatus(ctx context.Context) (map[models.StationStatus]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM stations GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[models.StationStatus]int64)
	for rows.Next() {
		var status models.StationStatus
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

// DeleteStale evicts adapter-sourced records not touched since the cutoff.
func (r *StationRepository) DeleteStale(ctx context.Context, source string, olderThan time.Time) (int64, error) {
	const query = `DELETE FROM stations WHERE source = $1 AND last_updated < $2`
	result, err := r.db.ExecContext(ctx, query, source, olderThan)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanStation(row rowScanner) (*models.Station, error) {
	var station models.Station
	var connectors []byte
	err := row.Scan(
		&station.TomTomID,
		&station.Name,
		&station.Longitude,
		&station.Latitude,
		&station.Address,
		&connectors,
		&station.Status,
		&station.Source,
		&station.StatusChanges,
		&station.LastUpdated,
		&station.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(connectors) > 0 {
		if err := json.Unmarshal(connectors, &station.Connectors); err != nil {
			return nil, err
		}
	}
	return &station, nil
}

func scanStations(rows *sql.Rows) ([]models.Station, error) {
	var stations []models.Station
	for rows.Next() {
		station, err := scanStation(rows)
		if err != nil {
			return nil, err
		}
		stations = append(stations, *station)
	}
	return stations, rows.Err()
}
