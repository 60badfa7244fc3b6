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
	"crypto/tls"
	"net"
)

// Dialer establishes the connection of a session. Both *net.Dialer and
// *tls.Dialer implement it.
type Dialer interface {
	DialContext(ctx context.Context, network, addr string) (net.Conn, error)
}

// NewTLSDialer returns a Dialer for implicit tls ("smtps"). The handshake is
// completed before the connection is returned.
func NewTLSDialer(config *tls.Config) Dialer {
	return &tls.Dialer{
		NetDialer: new(net.Dialer),
		Config:    config,
	}
}
