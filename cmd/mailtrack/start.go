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

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/viper"

	"github.com/lukasdietrich/mailtrack/internal/log"
	"github.com/lukasdietrich/mailtrack/internal/models"
	"github.com/lukasdietrich/mailtrack/internal/preflight"
	"github.com/lukasdietrich/mailtrack/internal/tracking"
)

func init() {
	viper.SetDefault("http.readtimeout", "10s")
	viper.SetDefault("http.shutdowntimeout", "10s")
}

type startCommand struct {
	Handler *tracking.Handler
	Cleaner *tracking.Cleaner
	Checker *preflight.Checker
}

func (s *startCommand) run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s.preflight(ctx)

	waitCleaner := s.Cleaner.Start(ctx)
	defer func() {
		stop()
		waitCleaner()
	}()

	server := http.Server{
		Addr:              viper.GetString("http.address"),
		Handler:           s.Handler.Routes(),
		ReadHeaderTimeout: viper.GetDuration("http.readtimeout"),
		ReadTimeout:       viper.GetDuration("http.readtimeout"),
	}

	errs := make(chan error, 1)

	go func() {
		log.Info().
			Str("address", server.Addr).
			Str("path", viper.GetString("http.path")).
			Msg("starting http server")

		errs <- server.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return err

	case <-ctx.Done():
		log.Info().Msg("shutting down http server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		viper.GetDuration("http.shutdowntimeout"))
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if err := <-errs; !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

// preflight warns about a sender, that the relay may not send for.
func (s *startCommand) preflight(ctx context.Context) {
	from, err := models.Parse(viper.GetString("notify.from"))
	if err != nil {
		log.Warn().Err(err).Msg("notify.from is not a valid address")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := s.Checker.CheckSPF(ctx, viper.GetString("smtp.host"), from); err != nil {
		log.Warn().Err(err).Msg("could not check spf")
	}
}
