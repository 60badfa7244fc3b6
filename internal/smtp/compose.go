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
	"bytes"
	"io"
	"mime"
	"strings"

	"github.com/lukasdietrich/mailtrack/internal/textproto"
)

var headerValueReplacer = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

// Compose returns the bytes sent after the DATA command: the header block,
// the body with normalized line endings and dot-stuffing applied and the
// final dot line.
func Compose(msg Message) ([]byte, error) {
	var buffer bytes.Buffer

	w := textproto.NewWriter(&buffer)
	encoder := w.DotWriter()

	headers := [][2]string{
		{"From", headerValue(msg.From)},
		{"To", headerValue(msg.To)},
		{"Subject", encodeSubject(headerValue(msg.Subject))},
		{"Content-Type", "text/plain; charset=UTF-8"},
	}

	for _, header := range headers {
		if _, err := io.WriteString(encoder, header[0]+": "+header[1]+"\r\n"); err != nil {
			return nil, err
		}
	}

	if _, err := io.WriteString(encoder, "\r\n"); err != nil {
		return nil, err
	}

	if _, err := io.WriteString(encoder, msg.Body); err != nil {
		return nil, err
	}

	if err := encoder.Close(); err != nil {
		return nil, err
	}

	if err := w.Flush(); err != nil {
		return nil, err
	}

	return buffer.Bytes(), nil
}

func headerValue(value string) string {
	return headerValueReplacer.Replace(value)
}

func encodeSubject(subject string) string {
	for i := 0; i < len(subject); i++ {
		if subject[i] >= 0x80 {
			return mime.QEncoding.Encode("UTF-8", subject)
		}
	}

	return subject
}
