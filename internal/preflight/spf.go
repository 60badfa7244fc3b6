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

// Package preflight checks the mail setup before notifications are sent.
package preflight

import (
	"context"
	"fmt"
	"net"

	"github.com/spf13/viper"
	"github.com/zaccone/spf"

	"github.com/lukasdietrich/mailtrack/internal/log"
	"github.com/lukasdietrich/mailtrack/internal/models"
)

func init() {
	viper.SetDefault("preflight.spf", true)
}

// Resolver resolves hostnames to ip addresses.
type Resolver interface {
	LookupIP(ctx context.Context, network, host string) ([]net.IP, error)
}

type checkHostFunc func(ip net.IP, domain, sender string) (spf.Result, string, error)

// Result is the spf result of one address of the relay.
type Result struct {
	IP          net.IP
	SPF         spf.Result
	Explanation string
	Err         error
}

// Permitted returns true if the relay address may send for the sender.
func (r Result) Permitted() bool {
	return r.Err == nil && r.SPF == spf.Pass
}

// Checker checks whether the smtp relay is authorized by the spf record of
// the sender domain. Receivers may reject or flag mails otherwise.
type Checker struct {
	resolver  Resolver
	checkHost checkHostFunc
}

// NewChecker creates a new Checker using the default resolver.
func NewChecker() *Checker {
	return &Checker{
		resolver:  net.DefaultResolver,
		checkHost: spf.CheckHost,
	}
}

// CheckSPF evaluates the spf record of the domain of from for every address
// of relay. Failed lookups of single addresses are part of the results, only
// an unresolvable relay is an error.
func (c *Checker) CheckSPF(ctx context.Context, relay string, from models.Address) ([]Result, error) {
	if !viper.GetBool("preflight.spf") {
		return nil, nil
	}

	ips, err := c.resolver.LookupIP(ctx, "ip", relay)
	if err != nil {
		return nil, fmt.Errorf("preflight: could not resolve %q: %w", relay, err)
	}

	results := make([]Result, 0, len(ips))

	for _, ip := range ips {
		log.DebugContext(ctx).
			Str("relay", relay).
			Stringer("ip", ip).
			Stringer("from", from).
			Msg("looking up spf")

		result, explanation, err := c.checkHost(ip, from.Domain(), from.String())
		results = append(results, Result{
			IP:          ip,
			SPF:         result,
			Explanation: explanation,
			Err:         err,
		})

		event := log.InfoContext
		if err != nil || result != spf.Pass {
			event = log.WarnContext
		}

		event(ctx).
			Str("relay", relay).
			Stringer("ip", ip).
			Stringer("from", from).
			Stringer("result", result).
			AnErr("cause", err).
			Msg("spf result")
	}

	return results, nil
}
