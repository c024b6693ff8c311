package repository

import (
	"context"
	"database/sql"

	"github.com/KostasPapadooo/ev-charging-app/internal/models"
)

// SubscriberCandidate is an active subscription joined with its user and
// today's delivery count. The fan-out decides from this whether to notify;
// the repository only reads collaborator state.
type SubscriberCandidate struct {
	Subscriber models.Subscriber
	Settings   models.NotificationSettings
	SentToday  int
}

// SubscriptionRepository reads the subscription collaborator's data. The
// engine never writes subscriptions.
type SubscriptionRepository struct {
	db *sql.DB
}

// NewSubscriptionRepository returns repository.
func NewSubscriptionRepository(db *sql.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// ActiveForStation returns every active subscription for a station, with
// the subscriber's address and how many notifications they already received
// today (counted from the notifications log, UTC day boundary).
func (r *SubscriptionRepository) ActiveForStation(ctx context.Context, stationID string) ([]SubscriberCandidate, error) {
	const query = `
		SELECT s.user_id, u.email, u.first_name, s.station_id, s.station_name,
		       s.on_available, s.on_occupied, s.on_offline, s.on_maintenance, s.max_notifications_per_day,
		       (SELECT COUNT(*) FROM notifications n
		        WHERE n.user_id = s.user_id
		          AND n.sent_at >= date_trunc('day', NOW() AT TIME ZONE 'UTC')) AS sent_today
		FROM user_subscriptions s
		JOIN users u ON u.id = s.user_id
		WHERE s.station_id = $1 AND s.is_active
	`
	rows, err := r.db.QueryContext(ctx, query, stationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candidates []SubscriberCandidate
	for rows.Next() {
		var c SubscriberCandidate
		if err := rows.Scan(
			&c.Subscriber.UserID,
			&c.Subscriber.Email,
			&c.Subscriber.FirstName,
			&c.Subscriber.StationID,
			&c.Subscriber.StationName,
			&c.Settings.OnAvailable,
			&c.Settings.OnOccupied,
			&c.Settings.OnOffline,
			&c.Settings.OnMaintenance,
			&c.Settings.MaxPerDay,
			&c.SentToday,
		); err != nil {
			return nil, err
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}
