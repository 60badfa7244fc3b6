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

package certs

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

func init() {
	viper.SetDefault("smtp.tls.crt", "")
	viper.SetDefault("smtp.tls.key", "")
}

type filesCertSource struct {
	crtFilename string
	keyFilename string
}

// newFilesCertSource returns nil, if no client certificate is configured.
func newFilesCertSource() *filesCertSource {
	crt, key := viper.GetString("smtp.tls.crt"), viper.GetString("smtp.tls.key")
	if crt == "" || key == "" {
		return nil
	}

	return &filesCertSource{
		crtFilename: crt,
		keyFilename: key,
	}
}

func (s *filesCertSource) lastUpdate() (time.Time, error) {
	var updateTime time.Time

	for _, file := range [...]string{s.crtFilename, s.keyFilename} {
		info, err := os.Stat(file)
		if err != nil {
			return updateTime, err
		}

		if info.ModTime().After(updateTime) {
			updateTime = info.ModTime()
		}
	}

	return updateTime, nil
}

func (s *filesCertSource) load() (*tls.Certificate, error) {
	certificate, err := tls.LoadX509KeyPair(s.crtFilename, s.keyFilename)
	if err != nil {
		return nil, err
	}

	return &certificate, nil
}

func loadCertPool(filename string) (*x509.CertPool, error) {
	pem, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("certs: no certificates found in %s", filename)
	}

	return pool, nil
}
