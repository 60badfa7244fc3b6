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

package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"sync"

	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/lukasdietrich/mailtrack/internal/log"
)

func init() {
	viper.SetDefault("storage.logs.foldername", "data/logs")
	viper.SetDefault("storage.logs.downloads", "downloads.log")
	viper.SetDefault("storage.logs.errors", "tracking_errors.log")
}

var fieldReplacer = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

// DownloadEntry is a line of the downloads log.
type DownloadEntry struct {
	Timestamp string
	Filename  string
	IP        string
	Location  string
	UserAgent string
}

func (e DownloadEntry) line() string {
	return joinFields(e.Timestamp, e.Filename, e.IP, e.Location, e.UserAgent)
}

// FailureEntry is a line of the errors log.
type FailureEntry struct {
	Timestamp  string
	Filename   string
	Recipients []string
	From       string
}

func (e FailureEntry) line() string {
	return joinFields(
		e.Timestamp,
		"Email failed",
		"File: "+e.Filename,
		"Failed recipients: "+strings.Join(e.Recipients, ", "),
		"From: "+e.From,
	)
}

func joinFields(fields ...string) string {
	for i, field := range fields {
		fields[i] = fieldReplacer.Replace(field)
	}

	return strings.Join(fields, " | ") + "\n"
}

// Logbook appends entries to the downloads and errors logs. Every entry is a
// single line, written while holding an exclusive lock on the file.
type Logbook struct {
	fs        afero.Fs
	downloads string
	errors    string

	mu sync.Mutex
}

// NewLogbook creates a new logbook using configuration from viper.
//
// `storage.logs.foldername` is the folder of both logs.
// `storage.logs.downloads` is the filename of the downloads log.
// `storage.logs.errors` is the filename of the errors log.
func NewLogbook(fs afero.Fs) (*Logbook, error) {
	folderName := viper.GetString("storage.logs.foldername")

	if err := fs.MkdirAll(folderName, 0700); err != nil {
		return nil, err
	}

	return &Logbook{
		fs:        fs,
		downloads: path.Join(folderName, viper.GetString("storage.logs.downloads")),
		errors:    path.Join(folderName, viper.GetString("storage.logs.errors")),
	}, nil
}

// AppendDownload appends a line to the downloads log.
func (l *Logbook) AppendDownload(ctx context.Context, entry DownloadEntry) error {
	return l.append(ctx, l.downloads, entry.line())
}

// AppendFailure appends a line to the errors log.
func (l *Logbook) AppendFailure(ctx context.Context, entry FailureEntry) error {
	return l.append(ctx, l.errors, entry.line())
}

func (l *Logbook) append(ctx context.Context, filename, line string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := l.fs.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}

	defer f.Close()

	unlock, err := lockFile(f)
	if err != nil {
		return fmt.Errorf("could not lock %s: %w", filename, err)
	}

	defer unlock()

	if _, err := io.WriteString(f, line); err != nil {
		log.WarnContext(ctx).
			Str("filename", filename).
			Err(err).
			Msg("could not append to log file")

		return err
	}

	return nil
}
