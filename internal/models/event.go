package models

import "time"

// EventStatusChange is the only event type the speed sweep emits.
const EventStatusChange = "STATION_STATUS_CHANGE"

// ChangeEvent records one observed status transition. ConnectorID is empty
// for station-level transitions. Events are append-only.
type ChangeEvent struct {
	ID          int64                  `json:"id"`
	EventType   string                 `json:"event_type"`
	StationID   string                 `json:"station_id"`
	ConnectorID string                 `json:"connector_id"`
	OldStatus   StationStatus          `json:"old_status"`
	NewStatus   StationStatus          `json:"new_status"`
	Payload     map[string]interface{} `json:"event_data,omitempty"`
	Timestamp   time.Time              `json:"timestamp"`
}

// StationChange is the fan-out/broadcast view of a detected transition.
type StationChange struct {
	StationID   string        `json:"station_id"`
	StationName string        `json:"station_name"`
	OldStatus   StationStatus `json:"old_status"`
	NewStatus   StationStatus `json:"new_status"`
	ChangedAt   time.Time     `json:"changed_at"`
}

// ChangeBatch is the single message published per speed-sweep run.
type ChangeBatch struct {
	SweepStarted time.Time       `json:"sweep_started"`
	Changes      []StationChange `json:"changes"`
}
