// Copyright 2026 The TalkaNova Authors
// SPDX-License-Identifier: Apache-2.0

package signaling

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/talkanova/talkanova/lib/clock"
	"github.com/talkanova/talkanova/lib/registration"
)

// MemoryRelay is an in-process relay. Coordinators holding clients
// from the same MemoryRelay negotiate exactly as they would through
// the relay server, without HTTP.
type MemoryRelay struct {
	clock clock.Clock
	ttl   time.Duration

	mu       sync.Mutex
	sessions map[string]*Session
	bundles  map[string]*registration.PublicBundle

	// failures injects errors into the next calls made by a user.
	failures map[string][]error
}

// NewMemoryRelay returns an empty relay. Sessions expire ttl after
// creation on clk; a zero ttl means DefaultTTL.
func NewMemoryRelay(clk clock.Clock, ttl time.Duration) *MemoryRelay {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryRelay{
		clock:    clk,
		ttl:      ttl,
		sessions: make(map[string]*Session),
		bundles:  make(map[string]*registration.PublicBundle),
		failures: make(map[string][]error),
	}
}

// Client returns a Client acting as userID.
func (r *MemoryRelay) Client(userID string) Client {
	return &memoryClient{relay: r, userID: userID}
}

// FailNext makes the next len(errs) calls by userID fail with errs in
// order, as an unreachable relay would.
func (r *MemoryRelay) FailNext(userID string, errs ...error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[userID] = append(r.failures[userID], errs...)
}

// Snapshot returns the raw stored session, for test assertions.
func (r *MemoryRelay) Snapshot(sessionID string) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[sessionID]
	if !ok {
		return Session{}, false
	}
	return session.View(""), true
}

// begin takes the lock and consumes one injected failure. The caller
// must unlock when it returns nil.
func (r *MemoryRelay) begin(userID string) error {
	r.mu.Lock()
	if queued := r.failures[userID]; len(queued) > 0 {
		r.failures[userID] = queued[1:]
		r.mu.Unlock()
		return queued[0]
	}
	return nil
}

// lookupLocked returns a live session, dropping it once expired.
func (r *MemoryRelay) lookupLocked(sessionID string) (*Session, error) {
	session, ok := r.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: session %s", ErrNotFound, sessionID)
	}
	if session.Expired(r.clock.Now()) {
		delete(r.sessions, sessionID)
		return nil, fmt.Errorf("%w: session %s expired", ErrNotFound, sessionID)
	}
	return session, nil
}

// update applies mutate to a live session under the lock.
func (r *MemoryRelay) update(userID, sessionID string, mutate func(*Session) error) (Session, error) {
	if err := r.begin(userID); err != nil {
		return Session{}, err
	}
	defer r.mu.Unlock()

	session, err := r.lookupLocked(sessionID)
	if err != nil {
		return Session{}, err
	}
	working := session.View("")
	if err := mutate(&working); err != nil {
		return Session{}, err
	}
	working.PeerAddress = ""
	*session = working
	return working.View(userID), nil
}

type memoryClient struct {
	relay  *MemoryRelay
	userID string
}

// Compile-time interface check.
var _ Client = (*memoryClient)(nil)

func (c *memoryClient) UserID() string { return c.userID }

func (c *memoryClient) Request(_ context.Context, targetUserID, userName string) (Session, error) {
	r := c.relay
	if err := r.begin(c.userID); err != nil {
		return Session{}, err
	}
	defer r.mu.Unlock()

	session, err := NewSession(uuid.NewString(), c.userID, userName, targetUserID, r.clock.Now(), r.ttl)
	if err != nil {
		return Session{}, err
	}
	r.sessions[session.ID] = &session
	return session.View(c.userID), nil
}

func (c *memoryClient) Pending(context.Context) ([]Session, error) {
	r := c.relay
	if err := r.begin(c.userID); err != nil {
		return nil, err
	}
	defer r.mu.Unlock()

	var pending []Session
	for id := range r.sessions {
		session, err := r.lookupLocked(id)
		if err != nil {
			continue
		}
		if session.ResponderID == c.userID && session.Status == StatusPending {
			pending = append(pending, session.View(c.userID))
		}
	}
	SortByCreation(pending)
	return pending, nil
}

func (c *memoryClient) Accept(_ context.Context, sessionID, peerAddress string) (Session, error) {
	return c.relay.update(c.userID, sessionID, func(s *Session) error {
		return s.Accept(c.userID, peerAddress)
	})
}

func (c *memoryClient) ExchangeAddress(_ context.Context, sessionID, peerAddress string) (AddressExchange, error) {
	session, err := c.relay.update(c.userID, sessionID, func(s *Session) error {
		return s.ExchangeAddress(c.userID, peerAddress)
	})
	if err != nil {
		return AddressExchange{}, err
	}
	return AddressExchange{Status: session.Status, PeerAddress: session.PeerAddress}, nil
}

func (c *memoryClient) Status(_ context.Context, sessionID string) (Session, error) {
	return c.relay.update(c.userID, sessionID, func(s *Session) error {
		if !s.Participant(c.userID) {
			return fmt.Errorf("%w: %s is not part of session %s", ErrForbidden, c.userID, s.ID)
		}
		return nil
	})
}

func (c *memoryClient) PublishOffer(_ context.Context, sessionID string, offer Description) error {
	_, err := c.relay.update(c.userID, sessionID, func(s *Session) error {
		return s.SetOffer(c.userID, offer)
	})
	return err
}

func (c *memoryClient) PublishAnswer(_ context.Context, sessionID string, answer Description) error {
	_, err := c.relay.update(c.userID, sessionID, func(s *Session) error {
		return s.SetAnswer(c.userID, answer)
	})
	return err
}

func (c *memoryClient) PublishCandidate(_ context.Context, sessionID string, candidate Candidate) error {
	_, err := c.relay.update(c.userID, sessionID, func(s *Session) error {
		return s.AddCandidate(c.userID, candidate)
	})
	return err
}

func (c *memoryClient) Close(_ context.Context, sessionID string) error {
	_, err := c.relay.update(c.userID, sessionID, func(s *Session) error {
		return s.MarkClosed(c.userID)
	})
	return err
}

func (c *memoryClient) PublishBundle(_ context.Context, bundle registration.PublicBundle) error {
	if err := bundle.Verify(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	r := c.relay
	if err := r.begin(c.userID); err != nil {
		return err
	}
	defer r.mu.Unlock()
	bundle.OneTimePreKeys = append([]string(nil), bundle.OneTimePreKeys...)
	r.bundles[c.userID] = &bundle
	return nil
}

func (c *memoryClient) FetchBundle(_ context.Context, userID string) (registration.PeerBundle, error) {
	r := c.relay
	if err := r.begin(c.userID); err != nil {
		return registration.PeerBundle{}, err
	}
	defer r.mu.Unlock()
	stored, ok := r.bundles[userID]
	if !ok {
		return registration.PeerBundle{}, fmt.Errorf("%w: no bundle for %s", ErrNotFound, userID)
	}
	return IssueBundle(userID, stored), nil
}

func (c *memoryClient) FetchIdentity(_ context.Context, userID string) (registration.PeerBundle, error) {
	r := c.relay
	if err := r.begin(c.userID); err != nil {
		return registration.PeerBundle{}, err
	}
	defer r.mu.Unlock()
	stored, ok := r.bundles[userID]
	if !ok {
		return registration.PeerBundle{}, fmt.Errorf("%w: no bundle for %s", ErrNotFound, userID)
	}
	return IdentityBundle(userID, *stored), nil
}
