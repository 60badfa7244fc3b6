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

package textproto

import (
	"crypto/tls"
	"errors"
	"net"
	"sync"
)

// Protocol is an interface for text based protocol implementations.
type Protocol interface {
	// Handle is supposed to consume a connection and manage all traffic
	// over it. Once Handle returns, the connection is closed.
	Handle(Conn)
}

// Server accepts connections from a listener and hands each of them to a
// Protocol. It is used to stand in for remote servers.
type Server struct {
	proto     Protocol
	tlsConfig *tls.Config

	wg sync.WaitGroup
}

// NewServer returns a Server using a specified protocol implementation.
// If the provided *tls.Config is non-nil, the Server will accept only
// connections over tls.
func NewServer(proto Protocol, tlsConfig *tls.Config) *Server {
	return &Server{
		proto:     proto,
		tlsConfig: tlsConfig,
	}
}

// Serve accepts connections until the listener is closed. Closing the
// listener is not reported as an error. Serve waits for running handlers
// before it returns.
func (s *Server) Serve(l net.Listener) error {
	defer s.wg.Wait()

	for {
		netConn, err := l.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}

			return err
		}

		s.wg.Add(1)
		go s.handle(netConn)
	}
}

// ServeConn handles a single, already established connection.
func (s *Server) ServeConn(netConn net.Conn) {
	s.wg.Add(1)
	s.handle(netConn)
}

func (s *Server) handle(netConn net.Conn) {
	defer s.wg.Done()

	if s.tlsConfig != nil {
		tlsConn := tls.Server(netConn, s.tlsConfig)
		if err := tlsConn.Handshake(); err != nil {
			netConn.Close()
			return
		}

		netConn = tlsConn
	}

	conn := NewConn(netConn)
	defer conn.Close()

	s.proto.Handle(conn)
}
