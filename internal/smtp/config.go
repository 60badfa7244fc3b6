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
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/spf13/viper"

	"github.com/lukasdietrich/mailtrack/internal/models"
)

func init() {
	viper.SetDefault("smtp.host", "")
	viper.SetDefault("smtp.port", 465)
	viper.SetDefault("smtp.username", "")
	viper.SetDefault("smtp.password", "")
	viper.SetDefault("smtp.timeout", "30s")
	viper.SetDefault("smtp.hello", "")
	viper.SetDefault("smtp.maxreplylines", DefaultMaxReplyLines)
}

// Message is the single plain text message of a session.
type Message struct {
	From    string
	To      string
	Subject string
	Body    string
}

// Config holds everything a session needs. It must not be changed once the
// session started.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	// Timeout applies to connecting and to every single read and write.
	Timeout time.Duration
	// Hello is the argument of EHLO. Host is used if empty.
	Hello string
	// MaxReplyLines bounds the lines of a single reply. DefaultMaxReplyLines
	// is used if <= 0.
	MaxReplyLines int

	Message
}

// NewConfig returns a Config with the server settings read from the "smtp.*"
// configuration keys. The message is left empty.
func NewConfig() Config {
	return Config{
		Host:          viper.GetString("smtp.host"),
		Port:          viper.GetInt("smtp.port"),
		Username:      viper.GetString("smtp.username"),
		Password:      viper.GetString("smtp.password"),
		Timeout:       viper.GetDuration("smtp.timeout"),
		Hello:         viper.GetString("smtp.hello"),
		MaxReplyLines: viper.GetInt("smtp.maxreplylines"),
	}
}

// Addr returns the host:port pair to connect to.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Validate checks the configuration before a session is started.
func (c *Config) Validate() error {
	if c.Host == "" {
		return ErrMissingHost
	}

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPort, c.Port)
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidTimeout, c.Timeout)
	}

	if strings.IndexFunc(c.hello(), unicode.IsSpace) >= 0 {
		return fmt.Errorf("%w: %q", ErrInvalidHello, c.hello())
	}

	if c.Password == "" {
		return ErrMissingPassword
	}

	if _, err := models.ParseEnvelope(c.From); err != nil {
		return fmt.Errorf("smtp: invalid sender %q: %w", c.From, err)
	}

	if _, err := models.ParseEnvelope(c.To); err != nil {
		return fmt.Errorf("smtp: invalid recipient %q: %w", c.To, err)
	}

	return nil
}

func (c *Config) hello() string {
	if c.Hello != "" {
		return c.Hello
	}

	return c.Host
}

func (c *Config) maxReplyLines() int {
	if c.MaxReplyLines > 0 {
		return c.MaxReplyLines
	}

	return DefaultMaxReplyLines
}
