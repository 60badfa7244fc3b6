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

// Package tracking receives download notifications over http and forwards
// them by mail.
package tracking

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
)

var (
	// ErrInvalidJSON is returned if a body does not contain a json object.
	ErrInvalidJSON = errors.New("tracking: body is not a json object")
)

// timestampLayouts are tried in order when parsing a client timestamp.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.RFC1123Z,
	time.RFC1123,
	"2006-01-02",
}

// payload is the raw notification. Fields are pointers, so required checks
// only test for presence.
type payload struct {
	Type      *string `validate:"required"`
	Filename  *string `validate:"required"`
	Timestamp *string
	UserAgent *string
	Referrer  *string
	URL       *string
}

// Download is a sanitized download notification.
type Download struct {
	Type      string
	Filename  string
	Timestamp string
	UserAgent string
	Referrer  string
	URL       string
	IP        string
	Location  string
}

// decodeBody decodes a json object. Clients using navigator.sendBeacon may
// wrap the object, so the outermost braces are tried as a fallback.
func decodeBody(body []byte) (map[string]interface{}, error) {
	var data map[string]interface{}

	if err := json.Unmarshal(body, &data); err == nil && data != nil {
		return data, nil
	}

	start := bytes.IndexByte(body, '{')
	end := bytes.LastIndexByte(body, '}')

	if start < 0 || end < start {
		return nil, ErrInvalidJSON
	}

	if err := json.Unmarshal(body[start:end+1], &data); err != nil || data == nil {
		return nil, ErrInvalidJSON
	}

	return data, nil
}

// receivedKeys returns the sorted keys of data.
func receivedKeys(data map[string]interface{}) []string {
	keys := make([]string, 0, len(data))
	for key := range data {
		keys = append(keys, key)
	}

	sort.Strings(keys)
	return keys
}

func newPayload(data map[string]interface{}) payload {
	return payload{
		Type:      stringField(data, "type"),
		Filename:  stringField(data, "filename"),
		Timestamp: stringField(data, "timestamp"),
		UserAgent: stringField(data, "userAgent"),
		Referrer:  stringField(data, "referrer"),
		URL:       stringField(data, "url"),
	}
}

func stringField(data map[string]interface{}, key string) *string {
	switch v := data[key].(type) {
	case nil:
		return nil
	case string:
		return &v
	default:
		s := fmt.Sprint(v)
		return &s
	}
}

// sanitizer strips markup from client supplied values.
type sanitizer struct {
	policy   *bluemonday.Policy
	validate *validator.Validate
}

func newSanitizer() *sanitizer {
	return &sanitizer{
		policy:   bluemonday.StrictPolicy(),
		validate: validator.New(),
	}
}

// download validates p and returns the sanitized download.
func (s *sanitizer) download(p payload) (*Download, error) {
	if err := s.validate.Struct(p); err != nil {
		return nil, err
	}

	d := Download{
		Type:      s.policy.Sanitize(*p.Type),
		Filename:  s.valueOr(p.Filename, "Unknown"),
		UserAgent: s.valueOr(p.UserAgent, "Unknown"),
		Referrer:  s.valueOr(p.Referrer, "direct"),
		URL:       s.valueOr(p.URL, "Unknown"),
	}

	if p.Timestamp != nil {
		d.Timestamp = *p.Timestamp
	}

	return &d, nil
}

func (s *sanitizer) valueOr(value *string, fallback string) string {
	if value == nil {
		return fallback
	}

	return s.policy.Sanitize(*value)
}

// formatTimestamp converts raw into loc. An empty raw value uses now and an
// unparsable one is returned unchanged.
func formatTimestamp(raw string, now time.Time, loc *time.Location) string {
	const layout = "2006-01-02 15:04:05 MST"

	if raw == "" {
		return now.In(loc).Format(layout)
	}

	for _, candidate := range timestampLayouts {
		if t, err := time.Parse(candidate, raw); err == nil {
			return t.In(loc).Format(layout)
		}
	}

	return raw
}

// forwardingHeaders are checked in order for the client address.
var forwardingHeaders = []string{
	"Client-Ip",
	"X-Forwarded-For",
	"X-Forwarded",
	"Forwarded-For",
	"Forwarded",
}

// clientIP returns the address of the client, preferring forwarding headers
// set by proxies.
func clientIP(r *http.Request) string {
	for _, header := range forwardingHeaders {
		if value := strings.TrimSpace(r.Header.Get(header)); value != "" {
			return value
		}
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}

	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}

	return "UNKNOWN"
}
