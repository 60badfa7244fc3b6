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

// Package metrics provides the prometheus collectors of mailtrack.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mailtrack"

var (
	// SMTPSessions counts finished smtp sessions by final stage and result.
	SMTPSessions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "smtp",
			Name:      "sessions_total",
			Help:      "Total number of smtp sessions by final stage and result",
		},
		[]string{"stage", "result"},
	)

	// SMTPSessionDuration measures the duration of smtp sessions in seconds.
	SMTPSessionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "smtp",
			Name:      "session_duration_seconds",
			Help:      "Duration of smtp sessions in seconds",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"result"},
	)
)

var (
	// Notifications counts download notifications by status.
	Notifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tracking",
			Name:      "notifications_total",
			Help:      "Total number of download notifications by status",
		},
		[]string{"status"},
	)

	// GeoLookups counts geolocation lookups by result.
	GeoLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "geo",
			Name:      "lookups_total",
			Help:      "Total number of geolocation lookups by result",
		},
		[]string{"result"},
	)
)

// Handler returns the http handler exposing all registered metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
