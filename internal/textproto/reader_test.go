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
	"io"
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaderLines(t *testing.T) {
	reader := NewReader(strings.NewReader("first\r\nsecond\nthird\r\n"))

	for _, expected := range []string{"first", "second", "third"} {
		line, err := reader.ReadLine()
		require.NoError(t, err)
		assert.EqualValues(t, expected, line)
	}

	_, err := reader.ReadLine()
	assert.Equal(t, io.EOF, err)
}

func TestReaderIncompleteLine(t *testing.T) {
	reader := NewReader(strings.NewReader("complete\r\n250 trunc"))

	line, err := reader.ReadLine()
	require.NoError(t, err)
	assert.EqualValues(t, "complete", line)

	_, err = reader.ReadLine()
	assert.Equal(t, io.ErrUnexpectedEOF, err)
}

func TestReaderLineTooLong(t *testing.T) {
	{
		exact := strings.Repeat("a", MaxLineLength)
		reader := NewReader(strings.NewReader(exact + "\r\n"))

		line, err := reader.ReadLine()
		require.NoError(t, err)
		assert.Len(t, line, MaxLineLength)
	}

	{
		long := strings.Repeat("a", MaxLineLength+10)
		reader := NewReader(strings.NewReader(long + "\r\n"))

		_, err := reader.ReadLine()
		assert.Equal(t, ErrLineTooLong, err)
	}
}

type closeCounter struct {
	net.Conn
	closed int
}

func (c *closeCounter) Close() error {
	c.closed++
	return c.Conn.Close()
}

func TestConnCloseOnce(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	counter := &closeCounter{Conn: client}
	conn := NewConn(counter)

	assert.NoError(t, conn.Close())
	assert.NoError(t, conn.Close())
	assert.Equal(t, 1, counter.closed)
}
