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
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/viper"

	"github.com/lukasdietrich/mailtrack/internal/crypto"
	"github.com/lukasdietrich/mailtrack/internal/database"
	"github.com/lukasdietrich/mailtrack/internal/log"
	"github.com/lukasdietrich/mailtrack/internal/metrics"
	"github.com/lukasdietrich/mailtrack/internal/storage"
)

const (
	logTimeLayout = "2006-01-02 15:04:05 MST"
	maxBodySize   = 64 << 10
)

func init() {
	viper.SetDefault("notify.appname", "MVC Calculator")
	viper.SetDefault("notify.timezone", "America/Bogota")
	viper.SetDefault("http.address", ":8080")
	viper.SetDefault("http.path", "/track")
	viper.SetDefault("http.alloworigins", []string{"*"})
}

// Locator resolves ip addresses to a location.
type Locator interface {
	Locate(context.Context, string) string
}

// Handler serves the tracking endpoint and the administrative routes.
type Handler struct {
	notifier   *Notifier
	locator    Locator
	logbook    *storage.Logbook
	conn       database.Conn
	deliveries database.DeliveryDao
	ids        crypto.IDGenerator
	sanitizer  *sanitizer
	location   *time.Location
	now        func() time.Time
}

// NewHandler creates a new Handler using configuration from viper.
//
// `notify.timezone` is the zone timestamps are converted to.
func NewHandler(
	notifier *Notifier,
	locator Locator,
	logbook *storage.Logbook,
	conn database.Conn,
	deliveries database.DeliveryDao,
	ids crypto.IDGenerator,
) (*Handler, error) {
	location, err := time.LoadLocation(viper.GetString("notify.timezone"))
	if err != nil {
		return nil, fmt.Errorf("tracking: invalid timezone: %w", err)
	}

	return &Handler{
		notifier:   notifier,
		locator:    locator,
		logbook:    logbook,
		conn:       conn,
		deliveries: deliveries,
		ids:        ids,
		sanitizer:  newSanitizer(),
		location:   location,
		now:        time.Now,
	}, nil
}

// Routes returns the router of all endpoints.
//
// `http.path` is the path of the tracking endpoint.
// `http.alloworigins` are the origins allowed to post notifications.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(h.withRequestContext)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: viper.GetStringSlice("http.alloworigins"),
		AllowedMethods: []string{http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))

	r.MethodNotAllowed(h.methodNotAllowed)

	r.Post(viper.GetString("http.path"), h.track)
	r.With(h.requireAdmin).Get("/deliveries", h.listDeliveries)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.Get("/health", h.health)

	return r
}

func (h *Handler) withRequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := log.WithOrigin(r.Context(), r.RemoteAddr)

		if id, err := h.ids.GenerateID(); err == nil {
			ctx = log.WithRequest(ctx, id)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	var one int
	if err := h.conn.QueryRowxContext(r.Context(), `select 1 ;`).Scan(&one); err != nil {
		log.WarnContext(r.Context()).Err(err).Msg("database is not available")
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unhealthy", Database: "down"})
		return
	}

	writeJSON(w, http.StatusOK, healthResponse{Status: "healthy", Database: "up"})
}

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

func (h *Handler) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "Method not allowed"})
}

type errorResponse struct {
	Error        string                 `json:"error"`
	ReceivedData map[string]interface{} `json:"received_data,omitempty"`
}

type trackResponse struct {
	Success          bool     `json:"success"`
	Filename         string   `json:"filename"`
	Timestamp        string   `json:"timestamp"`
	IPAddress        string   `json:"ip_address"`
	Location         string   `json:"location"`
	EmailSent        bool     `json:"email_sent"`
	LogWritten       bool     `json:"log_written"`
	Recipients       []string `json:"recipients"`
	FailedRecipients []string `json:"failed_recipients"`
	FromEmail        string   `json:"from_email"`
	ToEmail          string   `json:"to_email"`

	EmailStatus    string `json:"email_status,omitempty"`
	EmailRecipient string `json:"email_recipient,omitempty"`
	EmailFrom      string `json:"email_from,omitempty"`

	Error       string            `json:"error,omitempty"`
	Warning     string            `json:"warning,omitempty"`
	Suggestion  string            `json:"suggestion,omitempty"`
	CheckLogs   string            `json:"check_logs,omitempty"`
	SMTPHost    string            `json:"smtp_host,omitempty"`
	SMTPPort    int               `json:"smtp_port,omitempty"`
	SMTPUser    string            `json:"smtp_user,omitempty"`
	EmailTo     string            `json:"email_to,omitempty"`
	SMTPErrors  map[string]string `json:"smtp_errors,omitempty"`
	ErrorDetail string            `json:"error_detail,omitempty"`
}

func (h *Handler) track(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		log.WarnContext(ctx).Err(err).Msg("could not read request body")
	}

	data, err := decodeBody(raw)
	if err != nil {
		log.WarnContext(ctx).
			Int("size", len(raw)).
			Err(err).
			Msg("could not decode notification")
	}

	download, err := h.sanitizer.download(newPayload(data))
	if err != nil {
		keys, _ := json.Marshal(receivedKeys(data))
		message := "Missing required fields. Received: " + string(keys)

		log.WarnContext(ctx).Msg(message)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: message, ReceivedData: data})
		return
	}

	// The notification outlives the request. Beacons do not wait for the
	// response.
	ctx = context.WithoutCancel(ctx)
	now := h.now()

	download.IP = clientIP(r)
	download.Location = h.locator.Locate(ctx, download.IP)
	download.Timestamp = formatTimestamp(download.Timestamp, now, h.location)

	log.InfoContext(ctx).
		Str("filename", download.Filename).
		Str("ip", download.IP).
		Msg("received download notification")

	logTime := now.In(h.location).Format(logTimeLayout)
	logWritten := h.appendDownload(ctx, logTime, download)

	appName := viper.GetString("notify.appname")
	report := h.notifier.Notify(ctx, download.Filename, subject(appName, download), body(download))

	if !report.Sent() {
		err := h.logbook.AppendFailure(ctx, storage.FailureEntry{
			Timestamp:  logTime,
			Filename:   download.Filename,
			Recipients: report.Failed,
			From:       report.From,
		})

		if err != nil {
			log.WarnContext(ctx).Err(err).Msg("could not write the errors log")
		}
	}

	status, response := h.trackResponse(download, report, logWritten)
	writeJSON(w, status, response)
}

func (h *Handler) appendDownload(ctx context.Context, logTime string, download *Download) bool {
	err := h.logbook.AppendDownload(ctx, storage.DownloadEntry{
		Timestamp: logTime,
		Filename:  download.Filename,
		IP:        download.IP,
		Location:  download.Location,
		UserAgent: download.UserAgent,
	})

	if err != nil {
		log.WarnContext(ctx).Err(err).Msg("could not write the downloads log")
		return false
	}

	return true
}

func (h *Handler) trackResponse(download *Download, report *Report, logWritten bool) (int, trackResponse) {
	recipients := append([]string{}, report.Recipients...)
	failed := append([]string{}, report.Failed...)

	firstRecipient := "none"
	if len(recipients) > 0 {
		firstRecipient = recipients[0]
	}

	response := trackResponse{
		Success:          true,
		Filename:         download.Filename,
		Timestamp:        download.Timestamp,
		IPAddress:        download.IP,
		Location:         download.Location,
		EmailSent:        report.Sent(),
		LogWritten:       logWritten,
		Recipients:       recipients,
		FailedRecipients: failed,
		FromEmail:        report.From,
		ToEmail:          firstRecipient,
		EmailFrom:        report.From,
	}

	if report.Sent() {
		response.EmailStatus = "Email sent successfully"
		response.EmailRecipient = firstRecipient

		return http.StatusOK, response
	}

	response.Error = "EMAIL FAILED TO SEND"
	response.Warning = "Email may have failed - check server mail configuration"
	response.Suggestion = "Check the server log for detailed SMTP error messages"
	response.CheckLogs = "Check the server log and tracking_errors.log for details"
	response.SMTPHost = viper.GetString("smtp.host")
	response.SMTPPort = viper.GetInt("smtp.port")
	response.SMTPUser = viper.GetString("smtp.username")
	response.EmailTo = firstRecipient
	response.SMTPErrors = report.Errors
	response.ErrorDetail = report.FirstError()

	if response.ErrorDetail == "" {
		response.ErrorDetail = "SMTP send failed (no error details available)"
	}

	return http.StatusMultiStatus, response
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "    ")

	if err := encoder.Encode(v); err != nil {
		log.Warn().Err(err).Msg("could not write response")
	}
}
