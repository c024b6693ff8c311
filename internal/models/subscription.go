package models

import "time"

// NotificationSettings selects which transitions a subscriber cares about
// and caps deliveries per day. Owned by the subscription collaborator;
// the engine only reads it.
type NotificationSettings struct {
	OnAvailable   bool `json:"on_available"`
	OnOccupied    bool `json:"on_occupied"`
	OnOffline     bool `json:"on_offline"`
	OnMaintenance bool `json:"on_maintenance"`
	MaxPerDay     int  `json:"max_notifications_per_day"`
}

// Wants reports whether the settings enable a notification for the new status.
func (s NotificationSettings) Wants(newStatus StationStatus) bool {
	switch newStatus {
	case StatusAvailable:
		return s.OnAvailable
	case StatusOccupied:
		return s.OnOccupied
	case StatusOffline:
		return s.OnOffline
	case StatusMaintenance:
		return s.OnMaintenance
	}
	return false
}

// Subscription maps a user to a station they monitor.
type Subscription struct {
	ID          int64                `json:"id"`
	UserID      int64                `json:"user_id"`
	StationID   string               `json:"station_id"`
	StationName string               `json:"station_name"`
	Settings    NotificationSettings `json:"notification_settings"`
	Active      bool                 `json:"is_active"`
	CreatedAt   time.Time            `json:"created_at"`
}

// Subscriber is a resolved fan-out target: subscription joined with the
// user's delivery address.
type Subscriber struct {
	UserID      int64  `json:"user_id"`
	Email       string `json:"email"`
	FirstName   string `json:"first_name"`
	StationID   string `json:"station_id"`
	StationName string `json:"station_name"`
}
