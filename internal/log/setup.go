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

package log

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

func init() {
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.pretty", false)
}

// Setup configures the global Logger using the "log.level" and "log.pretty"
// configuration keys.
func Setup() error {
	level, err := zerolog.ParseLevel(viper.GetString("log.level"))
	if err != nil {
		return err
	}

	var out io.Writer = os.Stderr
	if viper.GetBool("log.pretty") {
		out = zerolog.ConsoleWriter{Out: os.Stderr}
	}

	Logger = zerolog.New(out).Level(level).With().Timestamp().Logger()
	return nil
}

// Redact replaces a secret with a fixed placeholder, keeping only whether it
// was set at all.
func Redact(secret string) string {
	if secret == "" {
		return ""
	}

	return "[redacted]"
}
