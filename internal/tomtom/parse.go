package tomtom

import (
	"errors"
	"strings"
	"time"

	"github.com/KostasPapadooo/ev-charging-app/internal/models"
)

var errMissingID = errors.New("record missing station id")

// normalizeStatus maps every provider status alias onto the canonical enum.
// This is the only place alias handling happens.
func normalizeStatus(raw string) models.StationStatus {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "AVAILABLE":
		return models.StatusAvailable
	case "OCCUPIED", "BUSY", "RESERVED":
		return models.StatusOccupied
	case "OUT_OF_SERVICE", "OUT_OF_ORDER", "OFFLINE":
		return models.StatusOffline
	case "MAINTENANCE":
		return models.StatusMaintenance
	default:
		return models.StatusUnknown
	}
}

func normalizeConnectorType(raw string) string {
	upper := strings.ToUpper(raw)
	switch {
	case strings.Contains(upper, "IEC_62196_TYPE_2"), strings.Contains(upper, "TYPE_2"):
		return "Type2"
	case strings.Contains(upper, "TYPE_1"):
		return "Type1"
	case strings.Contains(upper, "CCS"), strings.Contains(upper, "COMBO"):
		return "CCS"
	case strings.Contains(upper, "CHADEMO"):
		return "CHAdeMO"
	case strings.Contains(upper, "TESLA"):
		return "Tesla"
	default:
		if raw == "" {
			return "UNKNOWN"
		}
		return raw
	}
}

func normalizeCurrentType(raw string) string {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "AC", "AC1", "AC3":
		return "AC"
	case "DC":
		return "DC"
	default:
		return "UNKNOWN"
	}
}

// parseStation maps one raw search result into the internal Station shape.
// Station status comes from the connectors when per-connector availability
// is present, else from the charging-park level status.
func parseStation(raw searchResult, now time.Time) (*models.Station, error) {
	if raw.ID == "" {
		return nil, errMissingID
	}

	connectors := make([]models.Connector, 0, len(raw.ChargingPark.Connectors))
	perConnector := false
	for _, rc := range raw.ChargingPark.Connectors {
		status := normalizeStatus(rc.Availability.Status)
		if rc.Availability.Status != "" {
			perConnector = true
		}
		connectors = append(connectors, models.Connector{
			ID:          rc.ID,
			Type:        normalizeConnectorType(rc.ConnectorType),
			PowerKW:     rc.RatedPowerKW,
			CurrentType: normalizeCurrentType(rc.CurrentType),
			Status:      status,
		})
	}

	status := normalizeStatus(raw.ChargingPark.Availability.Status)
	if perConnector {
		status = models.DeriveStatus(connectors)
	}

	return &models.Station{
		TomTomID:    raw.ID,
		Name:        stationName(raw.Poi),
		Longitude:   raw.Position.Lon,
		Latitude:    raw.Position.Lat,
		Address:     joinAddress(raw.Address),
		Connectors:  connectors,
		Status:      status,
		Source:      models.SourceTomTom,
		LastUpdated: now,
	}, nil
}

func stationName(poi rawPoi) string {
	if poi.Name != "" {
		return poi.Name
	}
	if poi.BrandName != "" {
		return poi.BrandName
	}
	if len(poi.Brands) > 0 && poi.Brands[0].Name != "" {
		return poi.Brands[0].Name
	}
	return "EV Charging Station"
}

func joinAddress(addr rawAddress) string {
	parts := make([]string, 0, 3)
	street := strings.TrimSpace(addr.StreetNumber + " " + addr.StreetName)
	if street != "" {
		parts = append(parts, street)
	}
	if addr.Municipality != "" {
		parts = append(parts, addr.Municipality)
	}
	if addr.Country != "" {
		parts = append(parts, addr.Country)
	}
	if len(parts) == 0 {
		return "Unknown Address"
	}
	return strings.Join(parts, ", ")
}
