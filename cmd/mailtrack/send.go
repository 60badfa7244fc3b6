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
	"io/ioutil"
	"os"

	"github.com/spf13/viper"

	"github.com/lukasdietrich/mailtrack/internal/smtp"
)

type sendCommand struct {
	Client *smtp.Client

	recipient string
	subject   string
}

// run sends stdin to the recipient and reports the outcome.
func (s *sendCommand) run() error {
	body, err := ioutil.ReadAll(os.Stdin)
	if err != nil {
		return err
	}

	cfg := smtp.NewConfig()
	cfg.Message = smtp.Message{
		From:    viper.GetString("notify.from"),
		To:      s.recipient,
		Subject: s.subject,
		Body:    string(body),
	}

	outcome := s.Client.Send(context.Background(), cfg)
	if !outcome.Delivered() {
		return exitError{
			code: 1,
			msg:  outcome.Stage.String() + ": " + outcome.Diagnostic(),
		}
	}

	return nil
}
