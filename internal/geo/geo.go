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

// Package geo resolves ip addresses to a human readable location.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/netip"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/lukasdietrich/mailtrack/internal/log"
	"github.com/lukasdietrich/mailtrack/internal/metrics"
)

const (
	// LocationPrivate is returned for addresses, that are not routed publicly.
	LocationPrivate = "Local/Private IP"
	// LocationFailed is returned when the lookup service could not be reached.
	LocationFailed = "Location lookup failed"
	// LocationUnavailable is returned when the lookup service has no answer.
	LocationUnavailable = "Location not available"
	// LocationDisabled is returned when lookups are disabled.
	LocationDisabled = "Location lookup disabled"
)

func init() {
	viper.SetDefault("geo.enable", true)
	viper.SetDefault("geo.endpoint", "http://ip-api.com/json/")
	viper.SetDefault("geo.timeout", "3s")
}

// Locator looks up locations using the ip-api.com json interface.
type Locator struct {
	client   *http.Client
	endpoint string
	enabled  bool
}

// NewLocator creates a new Locator using configuration from viper.
//
// `geo.enable` turns lookups on or off.
// `geo.endpoint` is the url prefix, the ip address is appended to.
// `geo.timeout` is the timeout of a single lookup.
func NewLocator() *Locator {
	return &Locator{
		client:   &http.Client{Timeout: viper.GetDuration("geo.timeout")},
		endpoint: viper.GetString("geo.endpoint"),
		enabled:  viper.GetBool("geo.enable"),
	}
}

type lookupResult struct {
	Status     string  `json:"status"`
	Country    string  `json:"country"`
	RegionName string  `json:"regionName"`
	City       string  `json:"city"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	ISP        string  `json:"isp"`
}

// Locate returns a location of the form "City, Region, Country (lat, lon)
// [ISP: isp]". It never fails, errors are expressed by one of the Location*
// constants.
func (l *Locator) Locate(ctx context.Context, ip string) string {
	if !l.enabled {
		return LocationDisabled
	}

	if !isPublic(ip) {
		metrics.GeoLookups.WithLabelValues("private").Inc()
		return LocationPrivate
	}

	result, err := l.lookup(ctx, ip)
	if err != nil {
		log.WarnContext(ctx).
			Str("ip", ip).
			Err(err).
			Msg("could not look up location")

		metrics.GeoLookups.WithLabelValues("failed").Inc()
		return LocationFailed
	}

	if result.Status != "success" {
		metrics.GeoLookups.WithLabelValues("unavailable").Inc()
		return LocationUnavailable
	}

	metrics.GeoLookups.WithLabelValues("success").Inc()
	return result.format()
}

func (l *Locator) lookup(ctx context.Context, ip string) (*lookupResult, error) {
	query := make(url.Values)
	query.Set("fields", "status,country,regionName,city,lat,lon,isp")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		l.endpoint+url.PathEscape(ip)+"?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}

	res, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}

	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geo: unexpected status %s", res.Status)
	}

	var result lookupResult
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *lookupResult) format() string {
	var parts []string

	for _, part := range []string{r.City, r.RegionName, r.Country} {
		if part != "" {
			parts = append(parts, part)
		}
	}

	location := "Unknown"
	if len(parts) > 0 {
		location = strings.Join(parts, ", ")
	}

	if r.Lat != 0 && r.Lon != 0 {
		location += fmt.Sprintf(" (%s, %s)",
			strconv.FormatFloat(r.Lat, 'f', -1, 64),
			strconv.FormatFloat(r.Lon, 'f', -1, 64))
	}

	if r.ISP != "" {
		location += " [ISP: " + r.ISP + "]"
	}

	return location
}

// isPublic reports whether ip is a valid, publicly routed address.
func isPublic(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}

	addr = addr.Unmap()

	return !(addr.IsPrivate() ||
		addr.IsLoopback() ||
		addr.IsUnspecified() ||
		addr.IsLinkLocalUnicast() ||
		addr.IsLinkLocalMulticast() ||
		addr.IsInterfaceLocalMulticast() ||
		addr.IsMulticast())
}
