package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/KostasPapadooo/ev-charging-app/internal/models"
)

// EventRepository stores the append-only change event stream written by the
// speed sweep.
type EventRepository struct {
	db *sql.DB
}

// NewEventRepository returns repository.
func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Insert appends one change event.
func (r *EventRepository) Insert(ctx context.Context, event *models.ChangeEvent) error {
	if event.EventType == "" {
		event.EventType = models.EventStatusChange
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return err
	}

	const query = `
		INSERT INTO station_events (event_type, station_id, connector_id, old_status, new_status, event_data, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	return r.db.QueryRowContext(ctx, query,
		event.EventType,
		event.StationID,
		event.ConnectorID,
		event.OldStatus,
		event.NewStatus,
		payload,
		event.Timestamp,
	).Scan(&event.ID)
}

// StationEvents returns a station's events since the given time, newest first.
func (r *EventRepository) StationEvents(ctx context.Context, stationID string, since time.Time, limit int) ([]models.ChangeEvent, error) {
	if limit <= 0 {
		limit = 100
	}

	const query = `
		SELECT id, event_type, station_id, connector_id, old_status, new_status, event_data, occurred_at
		FROM station_events
		WHERE station_id = $1 AND occurred_at >= $2
		ORDER BY occurred_at DESC
		LIMIT $3
	`
	rows, err := r.db.QueryContext(ctx, query, stationID, since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.ChangeEvent
	for rows.Next() {
		var event models.ChangeEvent
		var payload []byte
		if err := rows.Scan(
			&event.ID,
			&event.EventType,
			&event.StationID,
			&event.ConnectorID,
			&event.OldStatus,
			&event.NewStatus,
			&payload,
			&event.Timestamp,
		); err != nil {
			return nil, err
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &event.Payload); err != nil {
				return nil, err
			}
		}
		events = append(events, event)
	}
	return events, rows.Err()
}
