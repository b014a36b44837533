// Copyright 2026 The TalkaNova Authors
// SPDX-License-Identifier: Apache-2.0

package signaling

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/talkanova/talkanova/lib/clock"
	"github.com/talkanova/talkanova/lib/registration"
)

func TestMemoryRelayLifecycle(t *testing.T) {
	ctx := context.Background()
	fake := clock.Fake(epoch)
	relay := NewMemoryRelay(fake, 0)
	alice, bob := relay.Client("alice"), relay.Client("bob")

	session, err := alice.Request(ctx, "bob", "Alice")
	if err != nil {
		t.Fatalf("Request: %v", err)
	}

	pending, err := bob.Pending(ctx)
	if err != nil || len(pending) != 1 || pending[0].ID != session.ID {
		t.Fatalf("Pending = %+v, %v", pending, err)
	}
	if pending, _ := alice.Pending(ctx); len(pending) != 0 {
		t.Errorf("initiator sees its own request as pending")
	}

	accepted, err := bob.Accept(ctx, session.ID, "192.0.2.2")
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if accepted.Status != StatusConnecting {
		t.Errorf("status after accept = %s", accepted.Status)
	}
	if pending, _ := bob.Pending(ctx); len(pending) != 0 {
		t.Error("accepted session still pending")
	}

	exchange, err := alice.ExchangeAddress(ctx, session.ID, "192.0.2.1")
	if err != nil {
		t.Fatalf("ExchangeAddress: %v", err)
	}
	if exchange.PeerAddress != "192.0.2.2" {
		t.Errorf("alice learned peer address %q", exchange.PeerAddress)
	}
	view, _ := bob.Status(ctx, session.ID)
	if view.PeerAddress != "192.0.2.1" {
		t.Errorf("bob sees peer address %q", view.PeerAddress)
	}

	if err := alice.PublishOffer(ctx, session.ID, Description{SDP: "v=0 offer", Type: "offer", Round: 1}); err != nil {
		t.Fatalf("PublishOffer: %v", err)
	}
	if err := bob.PublishOffer(ctx, session.ID, Description{SDP: "v=0 glare", Type: "offer", Round: 1}); !errors.Is(err, ErrConflict) {
		t.Fatalf("glare offer error = %v, want ErrConflict", err)
	}
	if err := bob.PublishAnswer(ctx, session.ID, Description{SDP: "v=0 answer", Type: "answer", Round: 1}); err != nil {
		t.Fatalf("PublishAnswer: %v", err)
	}
	if err := bob.PublishCandidate(ctx, session.ID, Candidate{Candidate: "candidate:1 1 udp 1 127.0.0.1 5000 typ host"}); err != nil {
		t.Fatalf("PublishCandidate: %v", err)
	}

	view, err = alice.Status(ctx, session.ID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if view.Status != StatusConnected || view.Answer == nil || len(view.Candidates) != 1 {
		t.Fatalf("session after negotiation = %+v", view)
	}

	if _, err := relay.Client("mallory").Status(ctx, session.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("outsider Status error = %v, want ErrForbidden", err)
	}

	if err := alice.Close(ctx, session.ID); err != nil {
		t.Fatalf("Close: %v", err)
	}
	view, _ = bob.Status(ctx, session.ID)
	if view.Status != StatusClosed {
		t.Errorf("status after close = %s", view.Status)
	}
}

func TestMemoryRelayExpiry(t *testing.T) {
	ctx := context.Background()
	fake := clock.Fake(epoch)
	relay := NewMemoryRelay(fake, time.Minute)
	alice := relay.Client("alice")

	session, err := alice.Request(ctx, "bob", "")
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	fake.Advance(time.Minute)
	if _, err := alice.Status(ctx, session.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expired Status error = %v, want ErrNotFound", err)
	}
	if pending, _ := relay.Client("bob").Pending(ctx); len(pending) != 0 {
		t.Error("expired session still pending")
	}
	if _, ok := relay.Snapshot(session.ID); ok {
		t.Error("expired session not swept")
	}
}

func TestMemoryRelayFailNext(t *testing.T) {
	ctx := context.Background()
	relay := NewMemoryRelay(clock.Fake(epoch), 0)
	unreachable := errors.New("connection refused")
	relay.FailNext("alice", unreachable)

	alice := relay.Client("alice")
	if _, err := alice.Request(ctx, "bob", ""); !errors.Is(err, unreachable) {
		t.Fatalf("first call error = %v, want injected failure", err)
	}
	if _, err := alice.Request(ctx, "bob", ""); err != nil {
		t.Fatalf("second call: %v", err)
	}
}

func TestMemoryRelayKeyDirectory(t *testing.T) {
	ctx := context.Background()
	relay := NewMemoryRelay(clock.Fake(epoch), 0)
	bundle, err := registration.Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	public := bundle.Public()
	bob := relay.Client("bob")

	if _, err := relay.Client("alice").FetchBundle(ctx, "bob"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("fetch before publish error = %v, want ErrNotFound", err)
	}

	tampered := public
	tampered.SignedPreKey = bundle.OneTimePreKeys[0].PublicKey.String()
	if err := bob.PublishBundle(ctx, tampered); !errors.Is(err, ErrInvalid) {
		t.Fatalf("tampered bundle error = %v, want ErrInvalid", err)
	}
	if err := bob.PublishBundle(ctx, public); err != nil {
		t.Fatalf("PublishBundle: %v", err)
	}

	identity, err := relay.Client("alice").FetchIdentity(ctx, "bob")
	if err != nil {
		t.Fatalf("FetchIdentity: %v", err)
	}
	if identity.OneTimePreKey != "" || identity.SignedPreKey != public.SignedPreKey {
		t.Fatalf("identity = %+v", identity)
	}

	issued := make(map[string]bool)
	for range registration.OneTimePreKeyCount {
		peer, err := relay.Client("alice").FetchBundle(ctx, "bob")
		if err != nil {
			t.Fatalf("FetchBundle: %v", err)
		}
		if peer.OneTimePreKey == "" || issued[peer.OneTimePreKey] {
			t.Fatalf("one-time pre-key %q issued twice or missing", peer.OneTimePreKey)
		}
		issued[peer.OneTimePreKey] = true
		if _, err := peer.Verify(); err != nil {
			t.Fatalf("issued bundle does not verify: %v", err)
		}
	}

	exhausted, err := relay.Client("carol").FetchBundle(ctx, "bob")
	if err != nil {
		t.Fatalf("FetchBundle after exhaustion: %v", err)
	}
	if exhausted.OneTimePreKey != "" {
		t.Errorf("exhausted bundle still carries %q", exhausted.OneTimePreKey)
	}
	if len(public.OneTimePreKeys) != registration.OneTimePreKeyCount {
		t.Error("relay consumed keys from the caller's slice")
	}
}
