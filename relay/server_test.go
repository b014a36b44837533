// Copyright 2026 The TalkaNova Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/talkanova/talkanova/lib/clock"
	"github.com/talkanova/talkanova/lib/testutil"
)

func TestServerLifecycle(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	service := NewService(Config{Store: NewMemoryStore(clock.Real()), Logger: logger})
	server := NewServer(ServerConfig{
		Address: "127.0.0.1:0",
		Handler: service.Handler(),
		Logger:  logger,
	})

	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() { served <- server.Serve(ctx) }()

	testutil.RequireClosed(t, server.Ready(), 5*time.Second, "server ready")
	response, err := http.Get("http://" + server.Addr().String() + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	response.Body.Close()
	if response.StatusCode != http.StatusOK {
		t.Errorf("health status = %d", response.StatusCode)
	}

	cancel()
	if err := testutil.RequireReceive(t, served, 5*time.Second, "Serve to return"); err != nil {
		t.Errorf("Serve = %v", err)
	}
}

func TestServerListenFailure(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	server := NewServer(ServerConfig{Address: "256.0.0.1:0", Handler: http.NotFoundHandler(), Logger: logger})
	if err := server.Serve(context.Background()); err == nil {
		t.Fatal("Serve on an invalid address succeeded")
	}
}

func TestNewServerPanicsOnMissingConfig(t *testing.T) {
	for name, config := range map[string]ServerConfig{
		"address": {Handler: http.NotFoundHandler(), Logger: slog.Default()},
		"handler": {Address: ":0", Logger: slog.Default()},
		"logger":  {Address: ":0", Handler: http.NotFoundHandler()},
	} {
		t.Run(name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Errorf("NewServer without %s did not panic", name)
				}
			}()
			NewServer(config)
		})
	}
}
