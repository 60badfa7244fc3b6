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

//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/lukasdietrich/mailtrack/internal/certs"
	"github.com/lukasdietrich/mailtrack/internal/crypto"
	"github.com/lukasdietrich/mailtrack/internal/database"
	"github.com/lukasdietrich/mailtrack/internal/geo"
	"github.com/lukasdietrich/mailtrack/internal/preflight"
	"github.com/lukasdietrich/mailtrack/internal/smtp"
	"github.com/lukasdietrich/mailtrack/internal/storage"
	"github.com/lukasdietrich/mailtrack/internal/tracking"
)

var wireSet = wire.NewSet(
	wire.Struct(new(startCommand), "*"),
	wire.Struct(new(sendCommand), "Client"),
	wire.Struct(new(shellCommand), "*"),

	openDatabase,
	database.NewDeliveryDao,

	storage.NewFilesystem,
	storage.NewLogbook,

	crypto.NewIDGenerator,
	certs.NewTLSConfig,
	smtp.NewTLSDialer,
	smtp.NewClient,
	wire.Bind(new(tracking.Sender), new(*smtp.Client)),

	geo.NewLocator,
	wire.Bind(new(tracking.Locator), new(*geo.Locator)),

	tracking.NewNotifier,
	tracking.NewHandler,
	tracking.NewCleaner,
	preflight.NewChecker,
)

func newStartCommand() (*startCommand, func(), error) {
	panic(wire.Build(wireSet))
}

func newSendCommand() (*sendCommand, func(), error) {
	panic(wire.Build(wireSet))
}

func newShellCommand() (*shellCommand, func(), error) {
	panic(wire.Build(wireSet))
}
