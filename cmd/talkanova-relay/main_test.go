// Copyright 2026 The TalkaNova Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/talkanova/talkanova/lib/clock"
	"github.com/talkanova/talkanova/lib/config"
	"github.com/talkanova/talkanova/relay"
)

func TestRoutes(t *testing.T) {
	service := relay.NewService(relay.Config{
		Store:  relay.NewMemoryStore(clock.Real()),
		Logger: slog.New(slog.NewJSONHandler(io.Discard, nil)),
	})
	server := httptest.NewServer(routes(service, "/metrics"))
	defer server.Close()

	for _, tc := range []struct {
		path string
		want int
	}{
		{"/health", http.StatusOK},
		{"/metrics", http.StatusOK},
		{"/api/v1/p2p/pending", http.StatusBadRequest},
		{"/nowhere", http.StatusNotFound},
	} {
		response, err := http.Get(server.URL + tc.path)
		if err != nil {
			t.Fatalf("GET %s: %v", tc.path, err)
		}
		response.Body.Close()
		if response.StatusCode != tc.want {
			t.Errorf("GET %s = %d, want %d", tc.path, response.StatusCode, tc.want)
		}
	}
}

func TestRoutes_MetricsDisabled(t *testing.T) {
	service := relay.NewService(relay.Config{Store: relay.NewMemoryStore(clock.Real())})
	server := httptest.NewServer(routes(service, ""))
	defer server.Close()

	response, err := http.Get(server.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	response.Body.Close()
	if response.StatusCode != http.StatusNotFound {
		t.Errorf("GET /metrics = %d, want 404 with metrics disabled", response.StatusCode)
	}
}

func TestOpenStore(t *testing.T) {
	store, release, err := openStore(context.Background(), config.RelayConfig{Store: "memory"}, clock.Real())
	if err != nil {
		t.Fatalf("memory store: %v", err)
	}
	defer release()
	if _, ok := store.(*relay.MemoryStore); !ok {
		t.Errorf("store is %T, want *relay.MemoryStore", store)
	}

	if _, _, err := openStore(context.Background(), config.RelayConfig{Store: "etcd"}, clock.Real()); err == nil {
		t.Error("openStore accepted an unknown store")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, _, err = openStore(ctx, config.RelayConfig{Store: "redis", Redis: config.RedisConfig{Address: "127.0.0.1:1"}}, clock.Real())
	if err == nil || !strings.Contains(err.Error(), "connecting to redis") {
		t.Errorf("unreachable redis: err = %v", err)
	}
}

func TestNewLogger(t *testing.T) {
	var buffer bytes.Buffer
	logger := newLogger(&buffer, slog.LevelWarn)
	logger.Info("quiet")
	logger.Warn("loud", "session", "s1")
	output := buffer.String()
	if strings.Contains(output, "quiet") {
		t.Error("info record passed a warn-level logger")
	}
	if !strings.Contains(output, "msg=loud") || !strings.Contains(output, "session=s1") {
		t.Errorf("output = %q", output)
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv(config.EnvironmentVariable, "")
	err := run([]string{"--listen", ":0", "--config", "/nonexistent/talkanova.yaml"})
	if err == nil {
		t.Fatal("run accepted a missing config file")
	}
	if err := run([]string{"--bogus"}); err == nil {
		t.Error("run accepted an unknown flag")
	}
}
