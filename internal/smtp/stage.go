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

// Stage is a step of an smtp session. Stages are declared in the order a
// session passes them.
type Stage uint

const (
	// StageNone is reported when a session fails before it is started.
	StageNone Stage = iota
	StageConnect
	StageGreeting
	StageHello
	StageAuthStart
	StageAuthUser
	StageAuthPass
	StageMailFrom
	StageRcptTo
	StageDataStart
	StageDataBody
	StageQuit
	// StageUnknown is reported when a session ends unexpectedly and the
	// stage cannot be attributed.
	StageUnknown
)

var stageNames = [...]string{
	"none-yet",
	"connect",
	"greeting",
	"hello",
	"auth-start",
	"auth-user",
	"auth-pass",
	"mail-from",
	"rcpt-to",
	"data-start",
	"data-body",
	"quit",
	"unknown",
}

var stageDescriptions = [...]string{
	"session not started",
	"could not connect",
	"greeting failed",
	"EHLO failed",
	"AUTH LOGIN failed",
	"username rejected",
	"authentication failed",
	"MAIL FROM failed",
	"RCPT TO failed",
	"DATA command failed",
	"message rejected",
	"QUIT failed",
	"unexpected failure",
}

func (s Stage) String() string {
	if s > StageUnknown {
		return stageNames[StageUnknown]
	}

	return stageNames[s]
}

// Describe returns a short human readable description of a failure in this
// stage.
func (s Stage) Describe() string {
	if s > StageUnknown {
		return stageDescriptions[StageUnknown]
	}

	return stageDescriptions[s]
}

// next returns the stage following s.
func (s Stage) next() Stage {
	if s >= StageQuit {
		return StageUnknown
	}

	return s + 1
}

// MarshalText implements the encoding.TextMarshaler interface.
func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
