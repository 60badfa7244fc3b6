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
	"time"

	"github.com/spf13/viper"

	"github.com/lukasdietrich/mailtrack/internal/database"
	"github.com/lukasdietrich/mailtrack/internal/log"
)

func init() {
	viper.SetDefault("journal.retention", "2160h")
	viper.SetDefault("journal.cleaninterval", "1h")
}

// Cleaner deletes journal entries older than the configured retention.
type Cleaner struct {
	conn       database.Conn
	deliveries database.DeliveryDao
	now        func() time.Time
}

// NewCleaner creates a new Cleaner.
func NewCleaner(conn database.Conn, deliveries database.DeliveryDao) *Cleaner {
	return &Cleaner{
		conn:       conn,
		deliveries: deliveries,
		now:        time.Now,
	}
}

// Clean deletes all deliveries older than `journal.retention`. A retention
// <= 0 keeps everything.
func (c *Cleaner) Clean(ctx context.Context) error {
	retention := viper.GetDuration("journal.retention")
	if retention <= 0 {
		return nil
	}

	tx, err := c.conn.Begin(ctx)
	if err != nil {
		return err
	}

	defer tx.Rollback()

	n, err := c.deliveries.DeleteBefore(ctx, tx, c.now().Add(-retention).Unix())
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	if n > 0 {
		log.InfoContext(ctx).
			Int64("deliveries", n).
			Msg("deleted expired deliveries")
	}

	return nil
}

// Run cleans every `journal.cleaninterval` until ctx is done.
// Start runs the cleaner in the background. The returned function blocks
// until it has stopped, which happens after ctx is done and a running prune
// has finished.
func (c *Cleaner) Start(ctx context.Context) (wait func()) {
	done := make(chan struct{})

	go func() {
		defer close(done)
		c.Run(ctx)
	}()

	return func() { <-done }
}

func (c *Cleaner) Run(ctx context.Context) {
	interval := viper.GetDuration("journal.cleaninterval")
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		// A started prune runs to completion, even when ctx is done meanwhile.
		if err := c.Clean(context.WithoutCancel(ctx)); err != nil {
			log.WarnContext(ctx).Err(err).Msg("could not clean the journal")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
