// Copyright (C) 2020  Lukas Dietrich <lukas@lukasdietrich.com>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package tracking

import (
	"context"
	"database/sql"
	"time"

	"github.com/spf13/viper"

	"github.com/lukasdietrich/mailtrack/internal/database"
	"github.com/lukasdietrich/mailtrack/internal/log"
	"github.com/lukasdietrich/mailtrack/internal/metrics"
	"github.com/lukasdietrich/mailtrack/internal/models"
	"github.com/lukasdietrich/mailtrack/internal/smtp"
)

func init() {
	viper.SetDefault("notify.from", "")
	viper.SetDefault("notify.recipients", []string{})
}

// Sender runs a single smtp session.
type Sender interface {
	Send(context.Context, smtp.Config) smtp.Outcome
}

// Report is the result of notifying every recipient.
type Report struct {
	From       string
	Recipients []string
	Failed     []string
	// Errors maps failed recipients to their diagnostic.
	Errors map[string]string
}

// Sent returns true if every recipient received the notification.
func (r *Report) Sent() bool {
	return len(r.Failed) == 0
}

// FirstError returns the diagnostic of the first failed recipient.
func (r *Report) FirstError() string {
	if len(r.Failed) == 0 {
		return ""
	}

	return r.Errors[r.Failed[0]]
}

// Notifier mails a message to all configured recipients, one session per
// recipient, and records every outcome in the delivery journal.
type Notifier struct {
	sender     Sender
	conn       database.Conn
	deliveries database.DeliveryDao
	now        func() time.Time
}

// NewNotifier creates a new Notifier.
func NewNotifier(sender Sender, conn database.Conn, deliveries database.DeliveryDao) *Notifier {
	return &Notifier{
		sender:     sender,
		conn:       conn,
		deliveries: deliveries,
		now:        time.Now,
	}
}

// Notify sends subject and body from `notify.from` to every address in
// `notify.recipients`. Recipients are notified in order, a failure does not
// stop the remaining sessions.
func (n *Notifier) Notify(ctx context.Context, filename, subject, body string) *Report {
	report := Report{
		From:       viper.GetString("notify.from"),
		Recipients: viper.GetStringSlice("notify.recipients"),
		Errors:     make(map[string]string),
	}

	entities := make([]models.DeliveryEntity, 0, len(report.Recipients))

	for _, to := range report.Recipients {
		cfg := smtp.NewConfig()
		cfg.Message = smtp.Message{
			From:    report.From,
			To:      to,
			Subject: subject,
			Body:    body,
		}

		outcome := n.sender.Send(ctx, cfg)

		if outcome.Delivered() {
			log.InfoContext(ctx).
				Str("to", to).
				Msg("notification sent")
		} else {
			log.WarnContext(ctx).
				Str("to", to).
				Stringer("stage", outcome.Stage).
				Str("diagnostic", outcome.Diagnostic()).
				Msg("notification failed")

			report.Failed = append(report.Failed, to)
			report.Errors[to] = outcome.Diagnostic()
		}

		if entity, ok := n.entity(filename, to, outcome); ok {
			entities = append(entities, entity)
		}
	}

	status := "sent"
	if !report.Sent() {
		status = "failed"
	}

	metrics.Notifications.WithLabelValues(status).Inc()

	if err := n.record(ctx, entities); err != nil {
		log.WarnContext(ctx).
			Err(err).
			Msg("could not record deliveries")
	}

	return &report
}

// entity converts an outcome for the journal. Invalid recipients cannot be
// stored and are only logged.
func (n *Notifier) entity(filename, to string, outcome smtp.Outcome) (models.DeliveryEntity, bool) {
	recipient, err := models.Parse(to)
	if err != nil {
		return models.DeliveryEntity{}, false
	}

	entity := models.DeliveryEntity{
		CreatedAt:  n.now().Unix(),
		Filename:   filename,
		Recipient:  recipient,
		Delivered:  outcome.Delivered(),
		Stage:      outcome.Stage.String(),
		Diagnostic: outcome.Diagnostic(),
	}

	if code := outcome.Code(); code > 0 {
		entity.Code = sql.NullInt64{Int64: int64(code), Valid: true}
	}

	return entity, true
}

func (n *Notifier) record(ctx context.Context, entities []models.DeliveryEntity) error {
	if n.conn == nil || len(entities) == 0 {
		return nil
	}

	tx, err := n.conn.Begin(ctx)
	if err != nil {
		return err
	}

	defer tx.RollbackWith(func() {
		log.InfoContext(ctx).Msg("an error occurred while recording deliveries, rolling back")
	})

	for i := range entities {
		if err := n.deliveries.Insert(ctx, tx, &entities[i]); err != nil {
			return err
		}
	}

	return tx.Commit()
}
