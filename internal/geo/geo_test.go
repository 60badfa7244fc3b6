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

package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocator(endpoint string) *Locator {
	return &Locator{
		client:   &http.Client{Timeout: time.Second},
		endpoint: endpoint,
		enabled:  true,
	}
}

func TestLocatePrivate(t *testing.T) {
	l := newTestLocator("http://127.0.0.1:1/")

	for _, ip := range []string{
		"127.0.0.1",
		"10.1.2.3",
		"192.168.0.10",
		"172.16.5.4",
		"::1",
		"fe80::1",
		"0.0.0.0",
		"not an ip",
		"",
	} {
		assert.Equal(t, LocationPrivate, l.Locate(context.Background(), ip), ip)
	}
}

func TestLocateSuccess(t *testing.T) {
	var path, fields string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		fields = r.URL.Query().Get("fields")

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"success","country":"Colombia","regionName":"Bogota D.C.",` +
			`"city":"Bogota","lat":4.6097,"lon":-74.0817,"isp":"Example ISP"}`))
	}))
	defer server.Close()

	l := newTestLocator(server.URL + "/json/")

	assert.Equal(t,
		"Bogota, Bogota D.C., Colombia (4.6097, -74.0817) [ISP: Example ISP]",
		l.Locate(context.Background(), "8.8.8.8"))
	assert.Equal(t, "/json/8.8.8.8", path)
	assert.Equal(t, "status,country,regionName,city,lat,lon,isp", fields)
}

func TestLocateUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"fail","message":"reserved range"}`))
	}))
	defer server.Close()

	l := newTestLocator(server.URL + "/")
	assert.Equal(t, LocationUnavailable, l.Locate(context.Background(), "8.8.4.4"))
}

func TestLocateFailed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	l := newTestLocator(server.URL + "/")
	assert.Equal(t, LocationFailed, l.Locate(context.Background(), "1.1.1.1"))

	server.Close()
	assert.Equal(t, LocationFailed, l.Locate(context.Background(), "1.1.1.1"))
}

func TestLocateDisabled(t *testing.T) {
	l := newTestLocator("http://127.0.0.1:1/")
	l.enabled = false

	assert.Equal(t, LocationDisabled, l.Locate(context.Background(), "8.8.8.8"))
}

func TestFormat(t *testing.T) {
	for _, test := range []struct {
		result   lookupResult
		expected string
	}{
		{lookupResult{}, "Unknown"},
		{lookupResult{Country: "Germany"}, "Germany"},
		{lookupResult{City: "Berlin", Country: "Germany"}, "Berlin, Germany"},
		{lookupResult{Lat: 1.5}, "Unknown"},
		{lookupResult{Lat: 1.5, Lon: 2}, "Unknown (1.5, 2)"},
		{lookupResult{ISP: "isp"}, "Unknown [ISP: isp]"},
	} {
		assert.Equal(t, test.expected, test.result.format())
	}
}

func TestNewLocatorDefaults(t *testing.T) {
	l := NewLocator()
	require.NotNil(t, l)

	assert.True(t, l.enabled)
	assert.Equal(t, "http://ip-api.com/json/", l.endpoint)
	assert.Equal(t, 3*time.Second, l.client.Timeout)
}
