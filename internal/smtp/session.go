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
	"encoding/base64"
	"errors"
	"net"

	"github.com/lukasdietrich/mailtrack/internal/log"
	"github.com/lukasdietrich/mailtrack/internal/models"
	"github.com/lukasdietrich/mailtrack/internal/textproto"
)

// step is one command/reply exchange. A step without send only reads a
// reply.
type step struct {
	stage  Stage
	expect int
	send   func() error
}

type session struct {
	conn textproto.Conn
	cfg  *Config

	base  context.Context
	ctx   context.Context
	stage Stage
}

func newSession(ctx context.Context, conn textproto.Conn, cfg *Config) *session {
	return &session{
		conn:  conn,
		cfg:   cfg,
		base:  ctx,
		ctx:   ctx,
		stage: StageConnect,
	}
}

func (s *session) steps(from, to models.Address, message []byte) []step {
	return []step{
		{StageGreeting, 220, nil},
		{StageHello, 250, s.command("EHLO " + s.cfg.hello())},
		{StageAuthStart, 334, s.command("AUTH LOGIN")},
		{StageAuthUser, 334, s.secret(s.cfg.Username)},
		{StageAuthPass, 235, s.secret(s.cfg.Password)},
		{StageMailFrom, 250, s.command("MAIL FROM:" + from.Path())},
		{StageRcptTo, 250, s.command("RCPT TO:" + to.Path())},
		{StageDataStart, 354, s.command("DATA")},
		{StageDataBody, 250, s.data(message)},
	}
}

// run executes the steps in order and stops at the first failure.
func (s *session) run(steps []step) error {
	for _, st := range steps {
		if st.stage != s.stage.next() {
			panic("smtp: step " + st.stage.String() + " out of order after " + s.stage.String())
		}

		s.enter(st.stage)

		if err := s.exchange(st); err != nil {
			return err
		}

		log.DebugContext(s.ctx).Msg("stage completed")
	}

	return nil
}

// quit ends a successful session. Its result is only logged.
func (s *session) quit() {
	s.enter(StageQuit)

	if err := s.exchange(step{StageQuit, 221, s.command("QUIT")}); err != nil {
		log.DebugContext(s.ctx).Err(err).Msg("ignoring failed quit")
	}
}

func (s *session) enter(stage Stage) {
	s.stage = stage
	s.ctx = log.WithStage(s.base, stage.String())
}

func (s *session) exchange(st step) error {
	if st.send != nil {
		if err := s.conn.SetWriteTimeout(s.cfg.Timeout); err != nil {
			return s.ioError(err)
		}

		if err := st.send(); err != nil {
			return s.ioError(err)
		}

		if err := s.conn.Flush(); err != nil {
			return s.ioError(err)
		}
	}

	if err := s.conn.SetReadTimeout(s.cfg.Timeout); err != nil {
		return s.ioError(err)
	}

	reply, err := readReply(s.ctx, s.conn, s.cfg.maxReplyLines())
	if err != nil {
		return s.ioError(err)
	}

	if reply.Code != st.expect {
		return &ReplyError{
			Stage: s.stage,
			Code:  reply.Code,
			Line:  reply.Line,
		}
	}

	return nil
}

// ioError attributes an error of the connection to the current stage.
func (s *session) ioError(err error) error {
	if ctxErr := s.base.Err(); ctxErr != nil {
		return &TimeoutError{Stage: s.stage, Err: ctxErr}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &TimeoutError{Stage: s.stage, Err: err}
	}

	var protoErr *ProtocolError
	if errors.As(err, &protoErr) {
		protoErr.Stage = s.stage
		return protoErr
	}

	return &ProtocolError{
		Stage:  s.stage,
		Reason: "connection lost",
		Err:    err,
	}
}

func (s *session) command(line string) func() error {
	return func() error {
		log.TraceContext(s.ctx).Str("line", line).Msg("C")
		return s.conn.WriteLine(line)
	}
}

// secret sends a base64 encoded credential, which never reaches the log.
func (s *session) secret(value string) func() error {
	encoded := base64.StdEncoding.EncodeToString([]byte(value))

	return func() error {
		log.TraceContext(s.ctx).Str("line", log.Redact(encoded)).Msg("C")
		return s.conn.WriteLine(encoded)
	}
}

func (s *session) data(message []byte) func() error {
	return func() error {
		log.TraceContext(s.ctx).Int("size", len(message)).Msg("C")
		_, err := s.conn.Write(message)
		return err
	}
}
