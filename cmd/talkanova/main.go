// Copyright 2026 The TalkaNova Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/talkanova/talkanova/cmd/talkanova/cli"
	"github.com/talkanova/talkanova/lib/config"
	"github.com/talkanova/talkanova/lib/process"
	"github.com/talkanova/talkanova/lib/registration"
	"github.com/talkanova/talkanova/lib/sealed"
	"github.com/talkanova/talkanova/lib/version"
	"github.com/talkanova/talkanova/signaling"
)

func main() {
	os.Exit(process.Report(os.Stderr, newApp().root().Execute(os.Args[1:])))
}

// app holds what every command shares. Tests substitute the streams
// and the logger.
type app struct {
	stdin    io.Reader
	stdout   io.Writer
	stderr   io.Writer
	prompter *cli.Prompter
	logger   *slog.Logger
	sealer   sealed.Sealer

	// Bound by commonFlags.
	configPath string
	userID     string
}

func newApp() *app {
	return &app{
		stdin:    os.Stdin,
		stdout:   os.Stdout,
		stderr:   os.Stderr,
		prompter: cli.NewPrompter(),
	}
}

func (a *app) root() *cli.Command {
	return &cli.Command{
		Name:   "talkanova",
		Output: a.stderr,
		Subcommands: []*cli.Command{
			a.keygenCommand(),
			a.fingerprintCommand(),
			a.publishCommand(),
			a.roomCommand(),
			a.p2pCommand(),
			{
				Name:    "version",
				Summary: "print version information",
				Run: func([]string) error {
					fmt.Fprintf(a.stdout, "talkanova %s\n", version.Full())
					return nil
				},
			},
		},
	}
}

// commonFlags starts a flag set with --config and --user.
func (a *app) commonFlags(name string) *pflag.FlagSet {
	flagSet := pflag.NewFlagSet(name, pflag.ContinueOnError)
	flagSet.StringVar(&a.configPath, "config", "", "path to talkanova.yaml (default: $"+config.EnvironmentVariable+")")
	flagSet.StringVar(&a.userID, "user", "", "act as this user, overriding identity.user_id")
	return flagSet
}

// config loads and validates the configuration.
func (a *app) config() (*config.Config, error) {
	cfg, err := config.Resolve(a.configPath)
	if err != nil {
		return nil, err
	}
	if a.userID != "" {
		cfg.Identity.UserID = a.userID
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// identityConfig is config plus a required user ID.
func (a *app) identityConfig() (*config.Config, error) {
	cfg, err := a.config()
	if err != nil {
		return nil, err
	}
	if cfg.Identity.UserID == "" {
		return nil, cli.UsageErrorf("no user: set identity.user_id or pass --user")
	}
	return cfg, nil
}

func (a *app) log(cfg *config.Config) *slog.Logger {
	if a.logger != nil {
		return a.logger
	}
	level, _ := cfg.LogLevel()
	return cli.NewLogger(level)
}

func (a *app) relayClient(cfg *config.Config) *signaling.HTTPClient {
	return signaling.NewHTTPClient(cfg.Relay.BaseURL, cfg.Identity.UserID, nil)
}

func (a *app) keyStore(cfg *config.Config) registration.Store {
	return registration.Store{Dir: cfg.Identity.KeyDir, Sealer: a.sealer}
}

// loadBundle unseals the local key bundle.
func (a *app) loadBundle(cfg *config.Config) (*registration.Bundle, error) {
	passphrase, err := a.prompter.Passphrase("Key store passphrase", false)
	if err != nil {
		return nil, err
	}
	bundle, err := a.keyStore(cfg).Load(passphrase)
	if err != nil {
		return nil, fmt.Errorf("loading key bundle from %s: %w", cfg.Identity.KeyDir, err)
	}
	return bundle, nil
}

func displayName(cfg *config.Config) string {
	if cfg.Identity.UserName != "" {
		return cfg.Identity.UserName
	}
	return cfg.Identity.UserID
}
