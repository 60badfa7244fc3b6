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

package smtp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lukasdietrich/mailtrack/internal/crypto"
	"github.com/lukasdietrich/mailtrack/internal/log"
	"github.com/lukasdietrich/mailtrack/internal/metrics"
	"github.com/lukasdietrich/mailtrack/internal/models"
	"github.com/lukasdietrich/mailtrack/internal/textproto"
)

// Outcome is the result of a session. It is either delivered (Err is nil)
// or failed at Stage. Delivered outcomes report StageQuit.
type Outcome struct {
	Stage Stage
	Err   error
}

// Delivered returns true if the server accepted the message.
func (o Outcome) Delivered() bool {
	return o.Err == nil
}

// Code returns the reply code of a rejected stage or 0.
func (o Outcome) Code() int {
	var replyErr *ReplyError
	if errors.As(o.Err, &replyErr) {
		return replyErr.Code
	}

	return 0
}

// Line returns the offending server line of a failed outcome, if there was
// one.
func (o Outcome) Line() string {
	var (
		replyErr *ReplyError
		protoErr *ProtocolError
	)

	switch {
	case errors.As(o.Err, &replyErr):
		return replyErr.Line
	case errors.As(o.Err, &protoErr):
		return protoErr.Line
	}

	return ""
}

// Diagnostic returns a human readable description of the outcome.
func (o Outcome) Diagnostic() string {
	if o.Delivered() {
		return "message delivered"
	}

	return o.Err.Error()
}

// Client runs smtp sessions. Every call to Send uses a new connection, so a
// Client may be shared by multiple goroutines.
type Client struct {
	dialer Dialer
	ids    crypto.IDGenerator
}

// NewClient creates a new Client connecting with dialer.
func NewClient(dialer Dialer, ids crypto.IDGenerator) *Client {
	return &Client{
		dialer: dialer,
		ids:    ids,
	}
}

// Send runs a single session delivering cfg.Message. It blocks until the
// session ended and never panics. Ending ctx aborts the session.
func (c *Client) Send(ctx context.Context, cfg Config) (outcome Outcome) {
	start := time.Now()

	if id, err := c.ids.GenerateID(); err == nil {
		ctx = log.WithSession(ctx, id)
	}

	defer func() {
		if r := recover(); r != nil {
			log.ErrorContext(ctx).Interface("panic", r).Msg("smtp session panicked")
			outcome = Outcome{Stage: StageUnknown, Err: fmt.Errorf("%w: %v", ErrPanic, r)}
		}

		report(ctx, outcome, time.Since(start))
	}()

	if err := cfg.Validate(); err != nil {
		return Outcome{Stage: StageNone, Err: err}
	}

	stage, err := c.deliver(ctx, &cfg)
	return Outcome{Stage: stage, Err: err}
}

func (c *Client) deliver(ctx context.Context, cfg *Config) (Stage, error) {
	from, err := models.ParseEnvelope(cfg.From)
	if err != nil {
		return StageNone, err
	}

	to, err := models.ParseEnvelope(cfg.To)
	if err != nil {
		return StageNone, err
	}

	message, err := Compose(cfg.Message)
	if err != nil {
		return StageNone, err
	}

	log.DebugContext(ctx).
		Str("addr", cfg.Addr()).
		Msg("connecting")

	dialCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	netConn, err := c.dialer.DialContext(dialCtx, "tcp", cfg.Addr())
	cancel()

	if err != nil {
		return StageConnect, &ConnectError{Addr: cfg.Addr(), Err: err}
	}

	conn := textproto.NewConn(netConn)
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		conn.Close()
	})
	defer stop()

	s := newSession(ctx, conn, cfg)
	if err := s.run(s.steps(from, to, message)); err != nil {
		return s.stage, err
	}

	s.quit()
	return StageQuit, nil
}

func report(ctx context.Context, outcome Outcome, elapsed time.Duration) {
	result := "delivered"
	if !outcome.Delivered() {
		result = "failed"
	}

	metrics.SMTPSessions.WithLabelValues(outcome.Stage.String(), result).Inc()
	metrics.SMTPSessionDuration.WithLabelValues(result).Observe(elapsed.Seconds())

	if outcome.Delivered() {
		log.InfoContext(ctx).
			Dur("elapsed", elapsed).
			Msg("message delivered")
		return
	}

	log.WarnContext(ctx).
		Stringer("stage", outcome.Stage).
		Int("code", outcome.Code()).
		Err(outcome.Err).
		Dur("elapsed", elapsed).
		Msg("message not delivered")
}
