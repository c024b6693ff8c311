package models

import "time"

// StatusSnapshot is the per-instant connector breakdown stored with every
// historical record.
type StatusSnapshot struct {
	StationStatus       StationStatus `json:"station_status"`
	TotalConnectors     int           `json:"total_connectors"`
	AvailableConnectors int           `json:"available_connectors"`
	OccupiedConnectors  int           `json:"occupied_connectors"`
	OfflineConnectors   int           `json:"offline_connectors"`
}

// HistoricalSnapshot is one immutable ledger entry, keyed by
// (station id, timestamp). Written by the sweeps, expired by retention.
type HistoricalSnapshot struct {
	ID         int64          `json:"id"`
	StationID  string         `json:"station_id"`
	Snapshot   StatusSnapshot `json:"status_snapshot"`
	Connectors []Connector    `json:"connector_details"`
	Timestamp  time.Time      `json:"timestamp"`
}

// NewSnapshot captures the station's state at ts.
func NewSnapshot(station *Station, ts time.Time) HistoricalSnapshot {
	snap := StatusSnapshot{
		StationStatus:   station.Status,
		TotalConnectors: len(station.Connectors),
	}
	for _, c := range station.Connectors {
		switch c.Status {
		case StatusAvailable:
			snap.AvailableConnectors++
		case StatusOccupied:
			snap.OccupiedConnectors++
		case StatusOffline, StatusMaintenance:
			snap.OfflineConnectors++
		}
	}
	return HistoricalSnapshot{
		StationID:  station.TomTomID,
		Snapshot:   snap,
		Connectors: station.Connectors,
		Timestamp:  ts,
	}
}
