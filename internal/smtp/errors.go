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
	"errors"
	"fmt"
)

var (
	// ErrMissingPassword is returned by Config.Validate when no password is
	// configured.
	ErrMissingPassword = errors.New("smtp: password not configured")

	// ErrInvalidPort is returned by Config.Validate for ports outside of
	// 1-65535.
	ErrInvalidPort = errors.New("smtp: invalid port")

	// ErrMissingHost is returned by Config.Validate when no host is
	// configured.
	ErrMissingHost = errors.New("smtp: host not configured")

	// ErrInvalidHello is returned by Config.Validate when the EHLO argument
	// contains whitespace.
	ErrInvalidHello = errors.New("smtp: invalid hello name")

	// ErrInvalidTimeout is returned by Config.Validate for timeouts <= 0.
	ErrInvalidTimeout = errors.New("smtp: invalid timeout")

	// ErrPanic is the cause of an Outcome when the session ended by a panic.
	ErrPanic = errors.New("smtp: session panicked")
)

// ConnectError is returned when the secured connection could not be
// established. It includes failed tls handshakes.
type ConnectError struct {
	Addr string
	Err  error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("smtp: could not connect to %s: %v", e.Addr, e.Err)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

// TimeoutError is returned when a read or write did not complete before its
// deadline or the context of the session ended.
type TimeoutError struct {
	Stage Stage
	Err   error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("smtp: %s: timeout: %v", e.Stage, e.Err)
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}

// Timeout implements the net.Error timeout check.
func (e *TimeoutError) Timeout() bool {
	return true
}

// ProtocolError is returned when the server sent something, that is not a
// valid reply, or the connection broke mid-session.
type ProtocolError struct {
	Stage  Stage
	Reason string
	Line   string
	Err    error
}

func (e *ProtocolError) Error() string {
	msg := fmt.Sprintf("smtp: %s: %s", e.Stage, e.Reason)

	if e.Line != "" {
		msg += fmt.Sprintf(" (%q)", e.Line)
	}

	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// ReplyError is returned when the server answered with a well formed reply,
// that has a code other than the one expected in the stage.
type ReplyError struct {
	Stage Stage
	Code  int
	Line  string
}

func (e *ReplyError) Error() string {
	return fmt.Sprintf("smtp: %s: %s", e.Stage.Describe(), e.Line)
}
