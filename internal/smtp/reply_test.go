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
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/lukasdietrich/mailtrack/internal/textproto"
)

func readReplyString(input string, maxLines int) (*Reply, error) {
	return readReply(context.TODO(), textproto.NewReader(strings.NewReader(input)), maxLines)
}

func TestReadReplySingleLine(t *testing.T) {
	reply, err := readReplyString("220 smtp.example.com ESMTP\r\n", DefaultMaxReplyLines)
	require.NoError(t, err)
	assert.Equal(t, 220, reply.Code)
	assert.Equal(t, "smtp.example.com ESMTP", reply.Text)
	assert.Equal(t, "220 smtp.example.com ESMTP", reply.Line)
	assert.Equal(t, 1, reply.Lines)
}

func TestReadReplyMultiLine(t *testing.T) {
	reply, err := readReplyString("250-a\r\n250-b\r\n250 c\r\n", DefaultMaxReplyLines)
	require.NoError(t, err)
	assert.Equal(t, 250, reply.Code)
	assert.Equal(t, "c", reply.Text)
	assert.Equal(t, 3, reply.Lines)
}

func TestReadReplyCodeOnly(t *testing.T) {
	reply, err := readReplyString("250\r\n", DefaultMaxReplyLines)
	require.NoError(t, err)
	assert.Equal(t, 250, reply.Code)
	assert.Equal(t, "", reply.Text)
}

func TestReadReplyLeavesFollowingLines(t *testing.T) {
	reader := textproto.NewReader(strings.NewReader("250 first\r\n354 second\r\n"))

	first, err := readReply(context.TODO(), reader, DefaultMaxReplyLines)
	require.NoError(t, err)
	assert.Equal(t, 250, first.Code)

	second, err := readReply(context.TODO(), reader, DefaultMaxReplyLines)
	require.NoError(t, err)
	assert.Equal(t, 354, second.Code)
}

func TestReadReplyMismatchedCode(t *testing.T) {
	_, err := readReplyString("250-a\r\n251 b\r\n", DefaultMaxReplyLines)

	var protoErr *ProtocolError
	require.ErrorAs(t, err, &protoErr)
	assert.Equal(t, "251 b", protoErr.Line)
}

func TestReadReplyMalformed(t *testing.T) {
	for _, input := range []string{
		"2500 ok\r\n",
		"abc\r\n",
		"25\r\n",
		"\r\n",
		"25a ok\r\n",
		"250_ok\r\n",
		"ready\r\n",
	} {
		_, err := readReplyString(input, DefaultMaxReplyLines)

		var protoErr *ProtocolError
		if assert.ErrorAs(t, err, &protoErr, "input %q", input) {
			assert.Equal(t, strings.TrimSuffix(input, "\r\n"), protoErr.Line)
		}
	}
}

func TestReadReplyTooManyLines(t *testing.T) {
	input := "250-a\r\n250-b\r\n250-c\r\n250 d\r\n"

	_, err := readReplyString(input, 3)
	var protoErr *ProtocolError
	assert.ErrorAs(t, err, &protoErr)

	reply, err := readReplyString(input, 4)
	require.NoError(t, err)
	assert.Equal(t, "d", reply.Text)
}

func TestReadReplyConnectionClosed(t *testing.T) {
	for _, input := range []string{"", "250-a\r\n", "250 trunc"} {
		_, err := readReplyString(input, DefaultMaxReplyLines)

		var protoErr *ProtocolError
		assert.ErrorAs(t, err, &protoErr, "input %q", input)
	}
}

func TestReadReplyLineTooLong(t *testing.T) {
	_, err := readReplyString("250 "+strings.Repeat("x", textproto.MaxLineLength)+"\r\n", DefaultMaxReplyLines)

	var protoErr *ProtocolError
	require.ErrorAs(t, err, &protoErr)
	assert.ErrorIs(t, err, textproto.ErrLineTooLong)
}

func TestReadReplyProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		code := rapid.IntRange(100, 599).Draw(t, "code")
		continuations := rapid.SliceOfN(rapid.StringMatching(`[ -~]{0,40}`), 0, 10).Draw(t, "continuations")
		final := rapid.StringMatching(`[ -~]{0,40}`).Draw(t, "final")

		var input strings.Builder
		for _, text := range continuations {
			fmt.Fprintf(&input, "%d-%s\r\n", code, text)
		}
		fmt.Fprintf(&input, "%d %s\r\n", code, final)

		reply, err := readReplyString(input.String(), DefaultMaxReplyLines)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if reply.Code != code || reply.Text != final || reply.Lines != len(continuations)+1 {
			t.Fatalf("got %+v for code %d and final %q", reply, code, final)
		}
	})
}

func TestReadReplyMismatchProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		first := rapid.IntRange(100, 599).Draw(t, "first")
		second := rapid.IntRange(100, 599).Filter(func(c int) bool { return c != first }).Draw(t, "second")

		_, err := readReplyString(fmt.Sprintf("%d-a\r\n%d b\r\n", first, second), DefaultMaxReplyLines)

		var protoErr *ProtocolError
		if !assert.ErrorAs(t, err, &protoErr) {
			t.Fatalf("expected protocol error for %d/%d", first, second)
		}
	})
}
