package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/KostasPapadooo/ev-charging-app/internal/models"
)

// NotificationRepository logs delivery attempts. The daily cap check in the
// subscription query counts these rows.
type NotificationRepository struct {
	db *sql.DB
}

// NewNotificationRepository returns repository.
func NewNotificationRepository(db *sql.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Insert records one delivery attempt, sent or failed.
func (r *NotificationRepository) Insert(ctx context.Context, notification *models.Notification) error {
	if notification.SentAt.IsZero() {
		notification.SentAt = time.Now().UTC()
	}

	const query = `
		INSERT INTO notifications (user_id, station_id, old_status, new_status, status, error_message, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	return r.db.QueryRowContext(ctx, query,
		notification.UserID,
		notification.StationID,
		notification.OldStatus,
		notification.NewStatus,
		notification.Status,
		notification.Error,
		notification.SentAt,
	).Scan(&notification.ID)
}
