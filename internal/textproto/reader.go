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
	"errors"
	"io"
)

// MaxLineLength is the maximum number of bytes a single line may have,
// excluding the line ending.
const MaxLineLength = 4096

// ErrLineTooLong is returned, when a line exceeds MaxLineLength.
var ErrLineTooLong = errors.New("textproto: line too long")

// Reader is a line based reader.
type Reader interface {
	// ReadLine reads the next line without its line ending. The returned
	// slice is only valid until the next call. At the end of the stream
	// io.EOF is returned.
	ReadLine() ([]byte, error)

	// DotReader returns an io.Reader, which decodes a dot-encoded sequence
	// of lines until the final dot line.
	DotReader() io.Reader
}

type reader struct {
	buffer *bufio.Scanner
}

// NewReader returns a Reader splitting r into lines of at most MaxLineLength
// bytes.
func NewReader(r io.Reader) Reader {
	buffer := bufio.NewScanner(r)
	buffer.Buffer(make([]byte, 0, 512), MaxLineLength+2)
	buffer.Split(scanCRLF)

	return &reader{buffer: buffer}
}

func (r *reader) ReadLine() ([]byte, error) {
	if !r.buffer.Scan() {
		err := r.buffer.Err()

		switch {
		case errors.Is(err, bufio.ErrTooLong):
			return nil, ErrLineTooLong
		case err != nil:
			return nil, err
		}

		return nil, io.EOF
	}

	line := r.buffer.Bytes()
	if len(line) > MaxLineLength {
		return nil, ErrLineTooLong
	}

	return line, nil
}

func (r *reader) DotReader() io.Reader {
	return &dotReader{r: r}
}

// scanCRLF is bufio.ScanLines, except that a final line without line ending
// is not returned. A connection closing mid-line is not a complete line.
func scanCRLF(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) > 0 {
		advance, token, err := bufio.ScanLines(data, false)
		if advance == 0 && err == nil {
			return len(data), nil, io.ErrUnexpectedEOF
		}

		return advance, token, err
	}

	return bufio.ScanLines(data, atEOF)
}
