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

// Package smtptest provides a scripted smtp server to test clients against.
package smtptest

import (
	"context"
	"io"
	"net"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/lukasdietrich/mailtrack/internal/textproto"
)

type stepKind int

const (
	kindGreet stepKind = iota
	kindReply
	kindData
	kindHang
	kindHangup
)

// Step is one exchange of a Script.
type Step struct {
	kind  stepKind
	reply string
}

// Greet sends reply without reading a command first.
func Greet(reply string) Step {
	return Step{kind: kindGreet, reply: reply}
}

// Reply reads one command line and answers with reply. Multi-line replies
// are separated by "\n".
func Reply(reply string) Step {
	return Step{kind: kindReply, reply: reply}
}

// Data reads a dot-encoded message and answers with reply.
func Data(reply string) Step {
	return Step{kind: kindData, reply: reply}
}

// Hang reads one command line and never answers.
func Hang() Step {
	return Step{kind: kindHang}
}

// Hangup reads one command line and closes the connection.
func Hangup() Step {
	return Step{kind: kindHangup}
}

// Delivery returns the steps of a session, that accepts every command.
func Delivery() []Step {
	return []Step{
		Greet("220 smtp.example.com ESMTP ready"),
		Reply("250-smtp.example.com\n250-AUTH LOGIN PLAIN\n250 8BITMIME"),
		Reply("334 VXNlcm5hbWU6"),
		Reply("334 UGFzc3dvcmQ6"),
		Reply("235 2.7.0 Authentication successful"),
		Reply("250 2.1.0 Ok"),
		Reply("250 2.1.5 Ok"),
		Reply("354 End data with <CR><LF>.<CR><LF>"),
		Data("250 2.0.0 Ok: queued"),
		Reply("221 2.0.0 Bye"),
	}
}

// Script is a textproto.Protocol playing its steps in order. After the last
// step it keeps reading and recording commands until the client closes the
// connection. Every connection plays the steps from the start, recordings
// of all connections are collected.
type Script struct {
	steps []Step

	mu       sync.Mutex
	commands []string
	messages []string

	done     chan struct{}
	doneOnce sync.Once
	closes   int32
}

// NewScript creates a Script playing steps.
func NewScript(steps ...Step) *Script {
	return &Script{
		steps: steps,
		done:  make(chan struct{}),
	}
}

// Handle implements textproto.Protocol.
func (s *Script) Handle(conn textproto.Conn) {
	defer s.doneOnce.Do(func() { close(s.done) })

	for _, step := range s.steps {
		if step.kind == kindReply || step.kind == kindHang || step.kind == kindHangup {
			if !s.readCommand(conn) {
				return
			}
		}

		switch step.kind {
		case kindHangup:
			return
		case kindHang:
			s.drain(conn)
			return
		case kindData:
			if !s.readMessage(conn) {
				return
			}
		}

		if !s.writeReply(conn, step.reply) {
			return
		}
	}

	s.drain(conn)
}

func (s *Script) readCommand(conn textproto.Conn) bool {
	line, err := conn.ReadLine()
	if err != nil {
		return false
	}

	s.mu.Lock()
	s.commands = append(s.commands, string(line))
	s.mu.Unlock()

	return true
}

func (s *Script) readMessage(conn textproto.Conn) bool {
	message, err := io.ReadAll(conn.DotReader())
	if err != nil {
		return false
	}

	s.mu.Lock()
	s.messages = append(s.messages, string(message))
	s.mu.Unlock()

	return true
}

func (s *Script) writeReply(conn textproto.Conn, reply string) bool {
	for _, line := range strings.Split(reply, "\n") {
		if conn.WriteLine(line) != nil {
			return false
		}
	}

	return conn.Flush() == nil
}

// drain records commands until the connection is closed.
func (s *Script) drain(conn textproto.Conn) {
	for s.readCommand(conn) {
	}
}

// DialContext implements the dialer of smtp sessions by serving the script
// on one end of an in-memory connection and returning the other end.
func (s *Script) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	client, server := net.Pipe()
	go textproto.NewServer(s, nil).ServeConn(server)

	return &countingConn{Conn: client, closes: &s.closes}, nil
}

// Wait blocks until the first session ended.
func (s *Script) Wait() {
	<-s.done
}

// Commands returns the command lines received so far.
func (s *Script) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string(nil), s.commands...)
}

// Messages returns the decoded messages received so far.
func (s *Script) Messages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string(nil), s.messages...)
}

// Closes returns how often the client closed connections dialed through
// DialContext.
func (s *Script) Closes() int {
	return int(atomic.LoadInt32(&s.closes))
}

type countingConn struct {
	net.Conn
	closes *int32
}

func (c *countingConn) Close() error {
	atomic.AddInt32(c.closes, 1)
	return c.Conn.Close()
}
