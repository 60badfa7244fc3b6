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

// Package textproto implements line based reading and buffered writing over
// a network connection for text protocols like SMTP.
package textproto

import (
	"net"
	"sync"
	"time"
)

// Conn is a wrapper around a network connection to enable line based reading
// and buffered writing.
type Conn interface {
	Reader
	Writer

	// SetReadTimeout sets the deadline for read calls to a time now + x
	SetReadTimeout(time.Duration) error

	// SetWriteTimeout sets the deadline for write calls to a time now + x
	SetWriteTimeout(time.Duration) error

	// Close closes the underlying network connection. Only the first call
	// reaches the network connection, later calls return the same result.
	Close() error
}

type conn struct {
	raw net.Conn

	closeOnce sync.Once
	closeErr  error

	Reader
	Writer
}

// NewConn wraps a network connection.
func NewConn(netConn net.Conn) Conn {
	return &conn{
		raw: netConn,

		Reader: NewReader(netConn),
		Writer: NewWriter(netConn),
	}
}

func (c *conn) SetReadTimeout(d time.Duration) error {
	return c.raw.SetReadDeadline(time.Now().Add(d))
}

func (c *conn) SetWriteTimeout(d time.Duration) error {
	return c.raw.SetWriteDeadline(time.Now().Add(d))
}

func (c *conn) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.raw.Close()
	})

	return c.closeErr
}
