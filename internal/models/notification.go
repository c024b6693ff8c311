package models

import "time"

// Notification delivery outcomes.
const (
	NotificationSent   = "SENT"
	NotificationFailed = "FAILED"
)

// Notification is the log record for one attempted delivery. The daily cap
// check counts these rows per user.
type Notification struct {
	ID        int64         `json:"id"`
	UserID    int64         `json:"user_id"`
	StationID string        `json:"station_id"`
	OldStatus StationStatus `json:"old_status"`
	NewStatus StationStatus `json:"new_status"`
	Status    string        `json:"status"`
	Error     string        `json:"error_message,omitempty"`
	SentAt    time.Time     `json:"sent_at"`
}
