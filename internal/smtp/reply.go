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
	"io"
	"strconv"

	"github.com/lukasdietrich/mailtrack/internal/log"
	"github.com/lukasdietrich/mailtrack/internal/textproto"
)

// DefaultMaxReplyLines bounds the number of lines of a single reply.
const DefaultMaxReplyLines = 100

// Reply is the final line of a server reply.
type Reply struct {
	Code  int
	Text  string
	Line  string
	Lines int
}

type replyLine struct {
	code  int
	final bool
	text  string
}

// parseReplyLine splits a line of the form <code><sep><text>, where code
// are exactly three digits and sep is either "-" for continuation lines or
// " " for the final line. A line consisting of only a code is final.
func parseReplyLine(line string) (replyLine, bool) {
	if len(line) < 3 {
		return replyLine{}, false
	}

	for i := 0; i < 3; i++ {
		if line[i] < '0' || line[i] > '9' {
			return replyLine{}, false
		}
	}

	code, _ := strconv.Atoi(line[:3])

	if len(line) == 3 {
		return replyLine{code: code, final: true}, true
	}

	switch line[3] {
	case ' ':
		return replyLine{code: code, final: true, text: line[4:]}, true
	case '-':
		return replyLine{code: code, final: false, text: line[4:]}, true
	}

	return replyLine{}, false
}

// readReply reads lines until the final line of a reply. Errors of the
// underlying reader are returned as they are, malformed replies are
// returned as *ProtocolError without a stage.
func readReply(ctx context.Context, r textproto.Reader, maxLines int) (*Reply, error) {
	var (
		first replyLine
		lines int
	)

	for {
		raw, err := r.ReadLine()
		if err != nil {
			if err == textproto.ErrLineTooLong {
				return nil, &ProtocolError{Reason: "reply line too long", Err: err}
			}

			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return nil, &ProtocolError{Reason: "connection closed by server", Err: err}
			}

			return nil, err
		}

		line := string(raw)
		lines++

		log.TraceContext(ctx).Str("line", line).Msg("S")

		parsed, ok := parseReplyLine(line)
		if !ok {
			return nil, &ProtocolError{Reason: "malformed reply", Line: line}
		}

		if lines == 1 {
			first = parsed
		} else if parsed.code != first.code {
			return nil, &ProtocolError{Reason: "reply code changed mid-reply", Line: line}
		}

		if parsed.final {
			return &Reply{
				Code:  parsed.code,
				Text:  parsed.text,
				Line:  line,
				Lines: lines,
			}, nil
		}

		log.DebugContext(ctx).
			Int("code", parsed.code).
			Str("text", parsed.text).
			Msg("skipping continuation line")

		if lines >= maxLines {
			return nil, &ProtocolError{Reason: "too many reply lines", Line: line}
		}
	}
}
