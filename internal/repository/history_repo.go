package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/KostasPapadooo/ev-charging-app/internal/models"
)

// HistoryRepository is the append-only availability ledger. Rows are never
// mutated; retention deletes whole rows past the configured window.
type HistoryRepository struct {
	db *sql.DB
}

// NewHistoryRepository returns repository.
func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

const insertSnapshotQuery = `
	INSERT INTO historical_station_availability
		(station_id, station_status, total_connectors, available_connectors, occupied_connectors, offline_connectors, connector_details, recorded_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	RETURNING id
`

// Append writes one snapshot.
func (r *HistoryRepository) Append(ctx context.Context, snapshot *models.HistoricalSnapshot) error {
	connectors, err := json.Marshal(snapshot.Connectors)
	if err != nil {
		return err
	}
	return r.db.QueryRowContext(ctx, insertSnapshotQuery,
		snapshot.StationID,
		snapshot.Snapshot.StationStatus,
		snapshot.Snapshot.TotalConnectors,
		snapshot.Snapshot.AvailableConnectors,
		snapshot.Snapshot.OccupiedConnectors,
		snapshot.Snapshot.OfflineConnectors,
		connectors,
		snapshot.Timestamp,
	).Scan(&snapshot.ID)
}

// AppendBatch writes snapshots one by one and returns how many landed. A
// failure stops the batch; the sweep's next run re-records anyway.
func (r *HistoryRepository) AppendBatch(ctx context.Context, snapshots []models.HistoricalSnapshot) (int, error) {
	for i := range snapshots {
		if err := r.Append(ctx, &snapshots[i]); err != nil {
			return i, err
		}
	}
	return len(snapshots), nil
}

// StationHistory returns snapshots for one station in [from, to], oldest first.
func (r *HistoryRepository) StationHistory(ctx context.Context, stationID string, from, to time.Time, limit int) ([]models.HistoricalSnapshot, error) {
	if limit <= 0 {
		limit = 1000
	}
	if to.IsZero() {
		to = time.Now().UTC()
	}

	const query = `
		SELECT id, station_id, station_status, total_connectors, available_connectors, occupied_connectors, offline_connectors, connector_details, recorded_at
		FROM historical_station_availability
		WHERE station_id = $1 AND recorded_at >= $2 AND recorded_at <= $3
		ORDER BY recorded_at ASC
		LIMIT $4
	`
	rows, err := r.db.QueryContext(ctx, query, stationID, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snapshots []models.HistoricalSnapshot
	for rows.Next() {
		var snap models.HistoricalSnapshot
		var connectors []byte
		if err := rows.Scan(
			&snap.ID,
			&snap.StationID,
			&snap.Snapshot.StationStatus,
			&snap.Snapshot.TotalConnectors,
			&snap.Snapshot.AvailableConnectors,
			&snap.Snapshot.OccupiedConnectors,
			&snap.Snapshot.OfflineConnectors,
			&connectors,
			&snap.Timestamp,
		); err != nil {
			return nil, err
		}
		if len(connectors) > 0 {
			if err := json.Unmarshal(connectors, &snap.Connectors); err != nil {
				return nil, err
			}
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots, rows.Err()
}

// DeleteOlderThan enforces the retention window.
func (r *HistoryRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM historical_station_availability WHERE recorded_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
