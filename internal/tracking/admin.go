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

package tracking

import (
	"crypto/subtle"
	"net/http"
	"strconv"

	"github.com/spf13/viper"

	"github.com/lukasdietrich/mailtrack/internal/crypto"
	"github.com/lukasdietrich/mailtrack/internal/log"
	"github.com/lukasdietrich/mailtrack/internal/models"
)

const (
	defaultDeliveriesLimit = 20
	maxDeliveriesLimit     = 500
)

func init() {
	viper.SetDefault("admin.username", "admin")
	viper.SetDefault("admin.passwordhash", "")
}

// requireAdmin checks basic auth credentials against `admin.username` and
// the argon2 hash `admin.passwordhash`. Without a hash the routes do not
// exist.
func (h *Handler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hash := viper.GetString("admin.passwordhash")
		if hash == "" {
			http.NotFound(w, r)
			return
		}

		username, password, ok := r.BasicAuth()
		if ok {
			expected := viper.GetString("admin.username")
			ok = subtle.ConstantTimeCompare([]byte(username), []byte(expected)) == 1
			ok = crypto.Verify(hash, []byte(password)) == nil && ok
		}

		if !ok {
			log.WarnContext(r.Context()).Msg("admin authentication failed")

			w.Header().Set("WWW-Authenticate", `Basic realm="mailtrack"`)
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "Unauthorized"})
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (h *Handler) listDeliveries(w http.ResponseWriter, r *http.Request) {
	limit := defaultDeliveriesLimit

	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid limit"})
			return
		}

		if n > maxDeliveriesLimit {
			n = maxDeliveriesLimit
		}

		limit = n
	}

	deliveries, err := h.deliveries.FindRecent(r.Context(), h.conn, limit)
	if err != nil {
		log.ErrorContext(r.Context()).Err(err).Msg("could not load deliveries")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal server error"})
		return
	}

	if deliveries == nil {
		deliveries = []models.DeliveryEntity{}
	}

	writeJSON(w, http.StatusOK, deliveries)
}
