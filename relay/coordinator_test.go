// Copyright 2026 The TalkaNova Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/talkanova/talkanova/lib/clock"
	"github.com/talkanova/talkanova/lib/testutil"
	"github.com/talkanova/talkanova/signaling"
	"github.com/talkanova/talkanova/transport"
)

// TestCoordinatorsOverHTTP negotiates a real WebRTC session between
// two coordinators whose only link is this relay's HTTP API.
func TestCoordinatorsOverHTTP(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	service := NewService(Config{Store: NewMemoryStore(clock.Real()), Logger: logger})
	server := httptest.NewServer(service.Handler())
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	alice := signaling.NewHTTPClient(server.URL+APIPrefix, "alice", server.Client())
	bob := signaling.NewHTTPClient(server.URL+APIPrefix, "bob", server.Client())
	session, err := alice.Request(ctx, "bob", "Alice")
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if _, err := bob.Accept(ctx, session.ID, "127.0.0.1"); err != nil {
		t.Fatalf("Accept: %v", err)
	}

	start := func(client signaling.Client) (*transport.Coordinator, <-chan net.Conn) {
		coordinator, err := transport.New(transport.Config{
			Client:       client,
			SessionID:    session.ID,
			ICE:          transport.ICEConfig{IncludeLoopback: true},
			PollInterval: 50 * time.Millisecond,
			Logger:       logger,
		})
		if err != nil {
			t.Fatalf("transport.New: %v", err)
		}
		opened := make(chan net.Conn, 1)
		go func() {
			for {
				select {
				case event := <-coordinator.Events():
					if event.Kind == transport.EventChannelOpen {
						opened <- event.Conn
					}
				case <-coordinator.Done():
					return
				}
			}
		}()
		go coordinator.Run(ctx)
		return coordinator, opened
	}
	aliceCoordinator, aliceOpened := start(alice)
	bobCoordinator, bobOpened := start(bob)

	aliceConn := testutil.RequireReceive(t, aliceOpened, 30*time.Second, "alice's channel")
	bobConn := testutil.RequireReceive(t, bobOpened, 30*time.Second, "bob's channel")
	defer aliceConn.Close()
	defer bobConn.Close()

	go aliceConn.Write([]byte("ping"))
	buffer := make([]byte, 4)
	bobConn.SetReadDeadline(time.Now().Add(10 * time.Second))
	if _, err := io.ReadFull(bobConn, buffer); err != nil || string(buffer) != "ping" {
		t.Fatalf("read %q, %v", buffer, err)
	}

	if err := aliceCoordinator.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	// Bob observes the hang-up on a later poll.
	testutil.RequireClosed(t, bobCoordinator.Done(), 10*time.Second, "bob to see the hang-up")
	if bobCoordinator.Phase() != transport.PhaseClosed {
		t.Errorf("bob phase = %s", bobCoordinator.Phase())
	}
}
