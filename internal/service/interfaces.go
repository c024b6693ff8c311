package service

import (
	"context"
	"time"

	"github.com/KostasPapadooo/ev-charging-app/internal/models"
	"github.com/KostasPapadooo/ev-charging-app/internal/repository"
	"github.com/KostasPapadooo/ev-charging-app/internal/tomtom"
)

// StationStore is the station persistence surface the services depend on.
// *repository.StationRepository satisfies it.
type StationStore interface {
	Upsert(ctx context.Context, station *models.Station) error
	BulkUpsert(ctx context.Context, stations []models.Station) (repository.BulkResult, error)
	GetByID(ctx context.Context, tomtomID string) (*models.Station, error)
	FindNear(ctx context.Context, longitude, latitude, radiusMeters float64, statusFilter models.StationStatus, limit int) ([]models.Station, error)
	IDsNear(ctx context.Context, longitude, latitude, radiusMeters float64) ([]string, error)
	StatesByID(ctx context.Context) (map[string]repository.StationState, error)
	UpdateStatus(ctx context.Context, tomtomID string, newStatus models.StationStatus, connectors []models.Connector) (*models.Station, error)
	DeleteStale(ctx context.Context, source string, olderThan time.Time) (int64, error)
}

// HistoryStore appends and prunes availability snapshots.
type HistoryStore interface {
	Append(ctx context.Context, snapshot *models.HistoricalSnapshot) error
	AppendBatch(ctx context.Context, snapshots []models.HistoricalSnapshot) (int, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// EventStore appends change events to the ledger.
type EventStore interface {
	Insert(ctx context.Context, event *models.ChangeEvent) error
}

// Provider is the upstream availability source. *tomtom.Client satisfies it.
type Provider interface {
	SearchArea(ctx context.Context, latitude, longitude float64, radiusMeters int) ([]models.Station, error)
	BulkStatus(ctx context.Context, ids []string) (map[string]tomtom.Availability, error)
}

// Notifier fans detected changes out to subscribers. Dispatch blocks until
// every delivery attempt has finished.
type Notifier interface {
	Dispatch(ctx context.Context, changes []models.StationChange)
}
