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
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	_ "time/tzdata"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/lukasdietrich/mailtrack/internal/log"
)

const usageText = `
Usage:
  mailtrack [OPTIONS] COMMAND

  Track downloads and report them by mail.

Version:
  %s

Commands:
  start                      Start the tracking server
  send RECIPIENT SUBJECT     Send a single mail, the body is read from stdin
  shell                      Start an interactive administration shell

Options:
%s
`

var (
	// Version is set at compile-time.
	Version string
)

// secretKeys are masked when the configuration is printed.
var secretKeys = map[string]bool{
	"smtp.password":      true,
	"smtp.username":      true,
	"admin.passwordhash": true,
}

func main() {
	var configFilename string

	flags := pflag.NewFlagSet("mailtrack", pflag.ContinueOnError)
	flags.StringVarP(&configFilename, "config", "c", "", "Path to a configuration file")
	flags.Usage = printUsage(flags)

	if err := flags.Parse(os.Args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}

		log.Fatal().Err(err).Msg("could not parse flags")
	}

	switch commandName := flags.Arg(1); commandName {
	case "start", "shell":
		setup(configFilename)
		runCommand(commandName, nil)

	case "send":
		if flags.NArg() != 4 {
			flags.Usage()
			os.Exit(2)
		}

		setup(configFilename)
		runCommand(commandName, flags.Args()[2:])

	default:
		flags.Usage()
	}
}

type command interface {
	run() error
}

func runCommand(commandName string, args []string) {
	var (
		cmd     command
		cleanup func()
		err     error
	)

	switch commandName {
	case "start":
		cmd, cleanup, err = newStartCommand()
	case "send":
		var send *sendCommand
		if send, cleanup, err = newSendCommand(); err == nil {
			send.recipient, send.subject = args[0], args[1]
			cmd = send
		}
	case "shell":
		cmd, cleanup, err = newShellCommand()
	}

	if err != nil {
		log.Fatal().Err(err).Msg("could not initialize the application")
	}

	err = cmd.run()
	cleanup()

	if err != nil {
		var exit exitError
		if errors.As(err, &exit) {
			fmt.Fprintln(os.Stderr, exit.Error())
			os.Exit(exit.code)
		}

		log.Fatal().Err(err).Msg("command failed")
	}
}

// exitError ends the program with a status code instead of a log message.
type exitError struct {
	code int
	msg  string
}

func (e exitError) Error() string {
	return e.msg
}

func printUsage(flags *pflag.FlagSet) func() {
	return func() {
		fmt.Fprintf(os.Stderr, usageText,
			Version,
			flags.FlagUsages())
	}
}

func setup(configFilename string) {
	setupConfig(configFilename)

	if err := log.Setup(); err != nil {
		log.Fatal().Err(err).Msg("could not set up logging")
	}

	printConfig()
}

func setupConfig(filename string) {
	viper.SetTypeByDefaultValue(true)
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.SetEnvPrefix("MAILTRACK")

	if filename != "" {
		readConfig(filename)
	} else {
		log.Info().Msg("no config file provided. using environment only")
	}
}

func readConfig(filename string) {
	log.Info().Str("filename", filename).Msg("loading configuration")
	viper.SetConfigFile(filename)

	if err := viper.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			log.Warn().Err(err).Msg("configuration file missing")
		} else {
			log.Fatal().Err(err).Msg("could not load configuration")
		}
	}
}

func printConfig() {
	keys := viper.AllKeys()
	sort.Strings(keys)

	for _, key := range keys {
		value := viper.Get(key)
		if secretKeys[key] {
			value = log.Redact(viper.GetString(key))
		}

		v, _ := json.Marshal(value)
		log.Debug().Str("key", key).RawJSON("value", v).Msg("configuration")
	}
}
