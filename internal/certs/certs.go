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

// Package certs builds the tls configuration used to connect to the smtp
// server.
package certs

import (
	"crypto/tls"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/spf13/viper"

	"github.com/lukasdietrich/mailtrack/internal/log"
)

const (
	// VerifyRelaxed accepts any server certificate, including self signed
	// and mismatching ones. The connection is still encrypted.
	VerifyRelaxed = "relaxed"
	// VerifyFull verifies the certificate chain and the server name.
	VerifyFull = "full"
)

var errNoClientCertificate = errors.New("certs: no client certificate configured")

func init() {
	viper.SetDefault("smtp.tls.verify", VerifyRelaxed)
	viper.SetDefault("smtp.tls.ca", "")
	viper.SetDefault("smtp.tls.servername", "")
}

// NewTLSConfig creates the client tls config according to the "smtp.tls.*"
// configuration keys. With "full" verification an optional CA bundle
// replaces the system roots. If a client certificate is configured, it is
// reloaded whenever its files change.
func NewTLSConfig() (*tls.Config, error) {
	config := &tls.Config{
		MinVersion: tls.VersionTLS12,
		ServerName: viper.GetString("smtp.tls.servername"),
	}

	switch verify := viper.GetString("smtp.tls.verify"); verify {
	case VerifyRelaxed:
		log.Warn().Msg("smtp server certificates are not verified")
		config.InsecureSkipVerify = true // nolint:gosec

	case VerifyFull:
		if filename := viper.GetString("smtp.tls.ca"); filename != "" {
			pool, err := loadCertPool(filename)
			if err != nil {
				return nil, err
			}

			config.RootCAs = pool
		}

	default:
		return nil, fmt.Errorf("certs: unknown verification policy %q", verify)
	}

	if source := newFilesCertSource(); source != nil {
		config.GetClientCertificate = reloadingCertificate(source)
	}

	return config, nil
}

type certSource interface {
	lastUpdate() (time.Time, error)
	load() (*tls.Certificate, error)
}

// reloadingCertificate loads a certificate from source whenever the source
// indicates an update.
func reloadingCertificate(source certSource) func(*tls.CertificateRequestInfo) (*tls.Certificate, error) {
	var (
		lastCert *tls.Certificate
		lastTime time.Time
		lock     sync.Mutex
	)

	return func(*tls.CertificateRequestInfo) (*tls.Certificate, error) {
		lock.Lock()
		defer lock.Unlock()

		newTime, err := source.lastUpdate()
		if err != nil {
			return nil, fmt.Errorf(
				"could not check for certificate updates: %w", err)
		}

		if newTime.After(lastTime) {
			newCert, err := source.load()
			if err != nil {
				return nil, fmt.Errorf(
					"could not load certificate: %w", err)
			}

			lastTime = newTime
			lastCert = newCert

			log.Debug().
				Time("updated", newTime).
				Msg("new client certificate loaded")
		}

		if lastCert == nil {
			return nil, errNoClientCertificate
		}

		return lastCert, nil
	}
}
