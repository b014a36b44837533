// Copyright 2026 The TalkaNova Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"

	"github.com/talkanova/talkanova/lib/clock"
	"github.com/talkanova/talkanova/lib/config"
	"github.com/talkanova/talkanova/lib/process"
	"github.com/talkanova/talkanova/lib/version"
	"github.com/talkanova/talkanova/relay"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		process.Fatal(err)
	}
}

func run(args []string) error {
	var (
		configPath  string
		listen      string
		showVersion bool
	)
	flagSet := pflag.NewFlagSet("talkanova-relay", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to talkanova.yaml (default: $"+config.EnvironmentVariable+")")
	flagSet.StringVar(&listen, "listen", "", "listen address, overriding relay.listen_address")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if showVersion {
		fmt.Printf("talkanova-relay %s\n", version.Full())
		return nil
	}

	cfg, err := config.Resolve(configPath)
	if err != nil {
		return err
	}
	if listen != "" {
		cfg.Relay.ListenAddress = listen
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	level, _ := cfg.LogLevel()
	ttl, _ := cfg.SessionTTL()
	logger := newLogger(os.Stderr, level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clk := clock.Real()
	store, closeStore, err := openStore(ctx, cfg.Relay, clk)
	if err != nil {
		return err
	}
	defer closeStore()

	service := relay.NewService(relay.Config{
		Store:      store,
		Clock:      clk,
		SessionTTL: ttl,
		Logger:     logger,
	})
	server := relay.NewServer(relay.ServerConfig{
		Address: cfg.Relay.ListenAddress,
		Handler: routes(service, cfg.Relay.MetricsPath),
		Logger:  logger,
	})

	logger.Info("relay starting",
		"version", version.Info(),
		"listen", cfg.Relay.ListenAddress,
		"store", cfg.Relay.Store,
		"session_ttl", ttl,
	)
	return server.Serve(ctx)
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// routes mounts the API and, when metricsPath is set, the Prometheus
// endpoint beside it.
func routes(service *relay.Service, metricsPath string) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/", service.Handler())
	if metricsPath != "" {
		mux.Handle("GET "+metricsPath, service.MetricsHandler())
	}
	return mux
}

// openStore builds the configured session store. The returned func
// releases it.
func openStore(ctx context.Context, cfg config.RelayConfig, clk clock.Clock) (relay.Store, func(), error) {
	switch cfg.Store {
	case "memory":
		return relay.NewMemoryStore(clk), func() {}, nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("connecting to redis at %s: %w", cfg.Redis.Address, err)
		}
		return relay.NewRedisStore(client, clk, ""), func() { client.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown store %q", cfg.Store)
}
