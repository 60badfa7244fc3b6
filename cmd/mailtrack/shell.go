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
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/abiosoft/ishell"
	"github.com/spf13/viper"

	"github.com/lukasdietrich/mailtrack/internal/crypto"
	"github.com/lukasdietrich/mailtrack/internal/database"
	"github.com/lukasdietrich/mailtrack/internal/models"
	"github.com/lukasdietrich/mailtrack/internal/preflight"
	"github.com/lukasdietrich/mailtrack/internal/smtp"
)

type shellCommand struct {
	Conn        database.Conn
	DeliveryDao database.DeliveryDao
	Client      *smtp.Client
	Checker     *preflight.Checker
}

func (s *shellCommand) run() error {
	shell := ishell.New()
	s.setupShell(shell)
	shell.Run()

	return nil
}

func (s *shellCommand) setupShell(shell *ishell.Shell) {
	shell.AddCmd(&ishell.Cmd{
		Name: "send",
		Help: "send a test mail using the smtp configuration",
		Func: s.wrapShellFunc(s.send),
	})

	shell.AddCmd(composeShellCmd(
		ishell.Cmd{
			Name: "history",
			Help: "inspect the delivery journal",
		},
		[]*ishell.Cmd{
			{
				Name: "list",
				Help: "list the latest deliveries",
				Func: s.wrapShellFunc(s.historyList),
			},
			{
				Name: "prune",
				Help: "delete deliveries older than a number of days",
				Func: s.wrapShellFunc(s.historyPrune),
			},
		},
	))

	shell.AddCmd(&ishell.Cmd{
		Name: "hash",
		Help: "hash a password for admin.passwordhash",
		Func: s.wrapShellFunc(s.hash),
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "check",
		Help: "check the spf record of the sender domain",
		Func: s.wrapShellFunc(s.check),
	})
}

func (s *shellCommand) send(ctx shellContext) error {
	if !ctx.checkArgs(1) {
		return errors.New("Usage: send [RECIPIENT]")
	}

	subject, err := ctx.ask("Subject", false)
	if err != nil {
		return err
	}

	body, err := ctx.ask("Body", false)
	if err != nil {
		return err
	}

	cfg := smtp.NewConfig()
	cfg.Message = smtp.Message{
		From:    viper.GetString("notify.from"),
		To:      ctx.arg(0),
		Subject: subject,
		Body:    body,
	}

	outcome := s.Client.Send(ctx, cfg)
	if !outcome.Delivered() {
		return fmt.Errorf("%s: %s", outcome.Stage, outcome.Diagnostic())
	}

	ctx.printf("\n\tMail to %q delivered.\n\n", ctx.arg(0))
	return nil
}

func (s *shellCommand) historyList(ctx shellContext) error {
	limit := 10

	switch len(ctx.shell.Args) {
	case 0:
	case 1:
		n, err := strconv.Atoi(ctx.arg(0))
		if err != nil || n < 1 {
			return fmt.Errorf("invalid limit %q", ctx.arg(0))
		}

		limit = n
	default:
		return errors.New("Usage: history list [LIMIT]")
	}

	deliveries, err := s.DeliveryDao.FindRecent(ctx, ctx.tx, limit)
	if err != nil {
		return err
	}

	ctx.printf("\n(%d) Deliveries:\n", len(deliveries))
	for _, delivery := range deliveries {
		ctx.printf("\t%s\n", formatDelivery(delivery))
	}
	ctx.printf("\n")

	return nil
}

func formatDelivery(delivery models.DeliveryEntity) string {
	status := "failed"
	if delivery.Delivered {
		status = "delivered"
	}

	return strings.Join([]string{
		time.Unix(delivery.CreatedAt, 0).Format(time.RFC3339),
		delivery.Filename,
		delivery.Recipient.String(),
		status,
		delivery.Stage,
		delivery.Diagnostic,
	}, " | ")
}

func (s *shellCommand) historyPrune(ctx shellContext) error {
	if !ctx.checkArgs(1) {
		return errors.New("Usage: history prune [DAYS]")
	}

	days, err := strconv.Atoi(ctx.arg(0))
	if err != nil || days < 0 {
		return fmt.Errorf("invalid number of days %q", ctx.arg(0))
	}

	before := time.Now().AddDate(0, 0, -days).Unix()

	n, err := s.DeliveryDao.DeleteBefore(ctx, ctx.tx, before)
	if err != nil {
		return err
	}

	ctx.printf("\n\t%d deliveries deleted.\n\n", n)
	return nil
}

func (s *shellCommand) hash(ctx shellContext) error {
	if !ctx.checkArgs(0) {
		return errors.New("Usage: hash")
	}

	pass, err := ctx.ask("Password", true)
	if err != nil {
		return err
	}

	hash, err := crypto.Hash([]byte(pass))
	if err != nil {
		return err
	}

	ctx.printf("\n\t%s\n\n", hash)
	return nil
}

func (s *shellCommand) check(ctx shellContext) error {
	if !ctx.checkArgs(0) {
		return errors.New("Usage: check")
	}

	from, err := models.Parse(viper.GetString("notify.from"))
	if err != nil {
		return fmt.Errorf("notify.from: %w", err)
	}

	relay := viper.GetString("smtp.host")

	results, err := s.Checker.CheckSPF(ctx, relay, from)
	if err != nil {
		return err
	}

	ctx.printf("\n(%d) Addresses of %s:\n", len(results), relay)
	for _, result := range results {
		ctx.printf("\t%-40s %s %s\n", result.IP, result.SPF, result.Explanation)
	}
	ctx.printf("\n")

	return nil
}

type shellContext struct {
	context.Context

	shell *ishell.Context
	tx    database.Tx
}

func (c *shellContext) checkArgs(n int) bool {
	return len(c.shell.Args) == n
}

func (c *shellContext) arg(i int) string {
	return c.shell.Args[i]
}

func (c *shellContext) printf(format string, v ...interface{}) {
	c.shell.Printf(format, v...)
}

func (c *shellContext) ask(prompt string, hide bool) (string, error) {
	c.printf("%s: ", prompt)

	if hide {
		return c.shell.ReadPasswordErr()
	}

	return c.shell.ReadLineErr()
}

func composeShellCmd(cmd ishell.Cmd, children []*ishell.Cmd) *ishell.Cmd {
	for _, child := range children {
		cmd.AddCmd(child)
	}

	return &cmd
}

func (s *shellCommand) wrapShellFunc(fn func(shellContext) error) func(*ishell.Context) {
	return func(shell *ishell.Context) {
		tx, err := s.Conn.Begin(context.Background())
		if err != nil {
			shell.Err(err)
			return
		}

		defer tx.Rollback()

		ctx := shellContext{
			Context: context.Background(),
			shell:   shell,
			tx:      tx,
		}

		if err := fn(ctx); err != nil {
			shell.Err(err)
			return
		}

		if err := tx.Commit(); err != nil {
			shell.Err(err)
		}
	}
}
