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

package smtptest

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"net"
	"time"

	"github.com/lukasdietrich/mailtrack/internal/textproto"
)

// Listener serves a Protocol on a local tcp port.
type Listener struct {
	net.Listener
	done chan error
}

// Listen serves proto on a random local port. If tlsConfig is non-nil, only
// tls connections are accepted.
func Listen(proto textproto.Protocol, tlsConfig *tls.Config) (*Listener, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}

	done := make(chan error, 1)
	go func() {
		done <- textproto.NewServer(proto, tlsConfig).Serve(l)
	}()

	return &Listener{Listener: l, done: done}, nil
}

// Port returns the port the listener is bound to.
func (l *Listener) Port() int {
	return l.Addr().(*net.TCPAddr).Port
}

// Close stops accepting connections and waits for running sessions.
func (l *Listener) Close() error {
	if err := l.Listener.Close(); err != nil {
		return err
	}

	return <-l.done
}

// SelfSignedConfig returns a server tls config with a fresh self signed
// certificate for "localhost" and 127.0.0.1. The certificate is returned as
// well to build trusting client configs.
func SelfSignedConfig() (*tls.Config, *x509.Certificate, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, nil, err
	}

	template := x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "localhost"},
		DNSNames:              []string{"localhost"},
		IPAddresses:           []net.IP{net.IPv4(127, 0, 0, 1)},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return nil, nil, err
	}

	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, nil, err
	}

	config := &tls.Config{
		Certificates: []tls.Certificate{{
			Certificate: [][]byte{der},
			PrivateKey:  key,
			Leaf:        cert,
		}},
	}

	return config, cert, nil
}
