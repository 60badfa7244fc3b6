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
	"bufio"
	"io"
)

// dotReader yields the payload of a dot-stuffed block, one line at a time,
// with CRLF line endings and the leading stuffing dot removed. It reports
// io.EOF at the terminating "." line.
type dotReader struct {
	r       *reader
	pending []byte
	done    bool
}

func (d *dotReader) Read(b []byte) (int, error) {
	for len(d.pending) == 0 {
		if d.done {
			return 0, io.EOF
		}

		line, err := d.r.ReadLine()
		if err != nil {
			return 0, err
		}

		if len(line) == 1 && line[0] == '.' {
			d.done = true
			return 0, io.EOF
		}

		if len(line) > 0 && line[0] == '.' {
			line = line[1:]
		}

		d.pending = append(append(d.pending[:0], line...), '\r', '\n')
	}

	n := copy(b, d.pending)
	d.pending = d.pending[n:]

	return n, nil
}

// dotWriter dot-stuffs a payload and normalises every line ending to CRLF.
// A bare LF and a bare CR each end a line.
type dotWriter struct {
	w *bufio.Writer

	midLine bool
	cr      bool
}

func (d *dotWriter) Write(b []byte) (int, error) {
	for i, c := range b {
		if err := d.writeByte(c); err != nil {
			return i, err
		}
	}

	return len(b), nil
}

func (d *dotWriter) writeByte(c byte) error {
	if d.cr {
		d.cr = false

		if err := d.endLine(); err != nil {
			return err
		}

		if c == '\n' {
			return nil
		}
	}

	switch c {
	case '\r':
		d.cr = true
		return nil
	case '\n':
		return d.endLine()
	}

	if !d.midLine {
		d.midLine = true

		if c == '.' {
			if err := d.w.WriteByte('.'); err != nil {
				return err
			}
		}
	}

	return d.w.WriteByte(c)
}

func (d *dotWriter) endLine() error {
	d.midLine = false
	_, err := d.w.WriteString("\r\n")
	return err
}

func (d *dotWriter) Close() error {
	if d.cr || d.midLine {
		d.cr = false

		if err := d.endLine(); err != nil {
			return err
		}
	}

	_, err := d.w.WriteString(".\r\n")
	return err
}
