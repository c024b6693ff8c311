package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"

	"github.com/KostasPapadooo/ev-charging-app/internal/models"
)

// Mailer delivers notifications over SMTP. With no host configured it is a
// no-op, so deployments without a mail relay still run the sweeps.
type Mailer struct {
	addr   string
	host   string
	from   string
	auth   smtp.Auth
	logger *zap.Logger
}

func NewMailer(host string, port int, username, password, from string, logger *zap.Logger) *Mailer {
	m := &Mailer{
		addr:   fmt.Sprintf("%s:%d", host, port),
		host:   host,
		from:   from,
		logger: logger,
	}
	if username != "" {
		m.auth = smtp.PlainAuth("", username, password, host)
	}
	return m
}

// Deliver sends one status-change email. Blocking is bounded by the SMTP
// dial; callers run deliveries concurrently.
func (m *Mailer) Deliver(_ context.Context, subscriber models.Subscriber, change models.StationChange) error {
	if m.host == "" {
		m.logger.Debug("smtp not configured, skipping delivery",
			zap.Int64("user_id", subscriber.UserID))
		return nil
	}

	msg := buildMessage(m.from, subscriber, change)
	if err := smtp.SendMail(m.addr, m.auth, m.from, []string{subscriber.Email}, msg); err != nil {
		return fmt.Errorf("send mail to %s: %w", subscriber.Email, err)
	}
	return nil
}

func buildMessage(from string, subscriber models.Subscriber, change models.StationChange) []byte {
	name := subscriber.FirstName
	if name == "" {
		name = "there"
	}
	stationName := change.StationName
	if stationName == "" {
		stationName = change.StationID
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", subscriber.Email)
	fmt.Fprintf(&b, "Subject: %s is now %s\r\n", stationName, change.NewStatus)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	fmt.Fprintf(&b, "Hi %s,\r\n\r\n", name)
	fmt.Fprintf(&b, "The charging station %q changed status: %s -> %s at %s.\r\n",
		stationName, change.OldStatus, change.NewStatus, change.ChangedAt.Format("15:04 MST, Jan 2"))
	b.WriteString("\r\nYou receive this message because you subscribed to updates for this station.\r\n")
	return []byte(b.String())
}
