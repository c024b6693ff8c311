package models

import "time"

// StationStatus is the canonical availability status. Provider aliases
// (BUSY, OUT_OF_SERVICE, ...) are normalized at the adapter boundary and
// never appear past it.
type StationStatus string

const (
	StatusAvailable   StationStatus = "AVAILABLE"
	StatusOccupied    StationStatus = "OCCUPIED"
	StatusOffline     StationStatus = "OFFLINE"
	StatusMaintenance StationStatus = "MAINTENANCE"
	StatusUnknown     StationStatus = "UNKNOWN"
)

// Valid reports whether s is one of the canonical statuses.
func (s StationStatus) Valid() bool {
	switch s {
	case StatusAvailable, StatusOccupied, StatusOffline, StatusMaintenance, StatusUnknown:
		return true
	}
	return false
}

// Connector is owned by its station and matched across adapter responses
// by its provider-assigned id.
type Connector struct {
	ID          string        `json:"id"`
	Type        string        `json:"type"`
	PowerKW     float64       `json:"power_kw"`
	CurrentType string        `json:"current_type"`
	Status      StationStatus `json:"status"`
}

// Station is the cached view of one charging station. Identity is the
// external provider id; all writers upsert by it.
type Station struct {
	TomTomID      string        `json:"tomtom_id"`
	Name          string        `json:"name"`
	Longitude     float64       `json:"longitude"`
	Latitude      float64       `json:"latitude"`
	Address       string        `json:"address"`
	Connectors    []Connector   `json:"connectors"`
	Status        StationStatus `json:"status"`
	Source        string        `json:"source"`
	StatusChanges int64         `json:"status_changes"`
	LastUpdated   time.Time     `json:"last_updated"`
	CreatedAt     time.Time     `json:"created_at"`
}

// SourceTomTom tags records produced by the TomTom adapter; the cache
// eviction sweep only ever removes records carrying an adapter source tag.
const SourceTomTom = "TOMTOM"

// DeriveStatus computes the overall station status from its connectors:
// available beats occupied beats offline; maintenance only when every
// connector is in maintenance; no connectors means unknown.
func DeriveStatus(connectors []Connector) StationStatus {
	if len(connectors) == 0 {
		return StatusUnknown
	}

	var occupied, offline, maintenance int
	for _, c := range connectors {
		switch c.Status {
		case StatusAvailable:
			return StatusAvailable
		case StatusOccupied:
			occupied++
		case StatusOffline:
			offline++
		case StatusMaintenance:
			maintenance++
		}
	}

	switch {
	case occupied > 0:
		return StatusOccupied
	case maintenance == len(connectors):
		return StatusMaintenance
	case offline > 0:
		return StatusOffline
	default:
		return StatusUnknown
	}
}
