// Copyright 2026 The TalkaNova Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"context"
	"fmt"
	"sync"

	"github.com/talkanova/talkanova/lib/clock"
	"github.com/talkanova/talkanova/lib/registration"
	"github.com/talkanova/talkanova/signaling"
)

// Store holds sessions and key bundles. Implementations report missing
// and expired sessions as signaling.ErrNotFound, and never return a
// session past its ExpiresAt.
type Store interface {
	// Create stores a new session. IDs are unique by construction.
	Create(ctx context.Context, session signaling.Session) error

	// Get returns one session.
	Get(ctx context.Context, sessionID string) (signaling.Session, error)

	// Update applies mutate atomically to one session. If mutate
	// returns an error nothing is written and the error is returned
	// as is.
	Update(ctx context.Context, sessionID string, mutate func(*signaling.Session) error) (signaling.Session, error)

	// ListPending returns the pending sessions addressed to
	// responderID, oldest first.
	ListPending(ctx context.Context, responderID string) ([]signaling.Session, error)

	// PutBundle replaces userID's public key bundle.
	PutBundle(ctx context.Context, userID string, bundle registration.PublicBundle) error

	// TakeBundle issues userID's bundle with at most one one-time
	// pre-key, removing that key from the stored bundle.
	TakeBundle(ctx context.Context, userID string) (registration.PeerBundle, error)

	// GetBundle returns userID's stored bundle unchanged.
	GetBundle(ctx context.Context, userID string) (registration.PublicBundle, error)
}

// MemoryStore is a Store in process memory.
type MemoryStore struct {
	clock clock.Clock

	mu       sync.Mutex
	sessions map[string]signaling.Session
	bundles  map[string]*registration.PublicBundle
}

// Compile-time interface check.
var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store that expires sessions on clk.
func NewMemoryStore(clk clock.Clock) *MemoryStore {
	return &MemoryStore{
		clock:    clk,
		sessions: make(map[string]signaling.Session),
		bundles:  make(map[string]*registration.PublicBundle),
	}
}

func (s *MemoryStore) Create(_ context.Context, session signaling.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	s.sessions[session.ID] = record(session)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, sessionID string) (signaling.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookupLocked(sessionID)
}

func (s *MemoryStore) Update(_ context.Context, sessionID string, mutate func(*signaling.Session) error) (signaling.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	working, err := s.lookupLocked(sessionID)
	if err != nil {
		return signaling.Session{}, err
	}
	if err := mutate(&working); err != nil {
		return signaling.Session{}, err
	}
	s.sessions[sessionID] = record(working)
	return record(working), nil
}

func (s *MemoryStore) ListPending(_ context.Context, responderID string) ([]signaling.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	var pending []signaling.Session
	for _, session := range s.sessions {
		if session.ResponderID == responderID && session.Status == signaling.StatusPending {
			pending = append(pending, record(session))
		}
	}
	signaling.SortByCreation(pending)
	return pending, nil
}

func (s *MemoryStore) PutBundle(_ context.Context, userID string, bundle registration.PublicBundle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	bundle.OneTimePreKeys = append([]string(nil), bundle.OneTimePreKeys...)
	s.bundles[userID] = &bundle
	return nil
}

func (s *MemoryStore) TakeBundle(_ context.Context, userID string) (registration.PeerBundle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.bundles[userID]
	if !ok {
		return registration.PeerBundle{}, fmt.Errorf("%w: no key bundle for %s", signaling.ErrNotFound, userID)
	}
	return signaling.IssueBundle(userID, stored), nil
}

func (s *MemoryStore) GetBundle(_ context.Context, userID string) (registration.PublicBundle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.bundles[userID]
	if !ok {
		return registration.PublicBundle{}, fmt.Errorf("%w: no key bundle for %s", signaling.ErrNotFound, userID)
	}
	bundle := *stored
	bundle.OneTimePreKeys = append([]string(nil), stored.OneTimePreKeys...)
	return bundle, nil
}

// lookupLocked returns a copy of a live session, dropping it once
// expired.
func (s *MemoryStore) lookupLocked(sessionID string) (signaling.Session, error) {
	session, ok := s.sessions[sessionID]
	if !ok {
		return signaling.Session{}, fmt.Errorf("%w: session %s", signaling.ErrNotFound, sessionID)
	}
	if session.Expired(s.clock.Now()) {
		delete(s.sessions, sessionID)
		return signaling.Session{}, fmt.Errorf("%w: session %s expired", signaling.ErrNotFound, sessionID)
	}
	return record(session), nil
}

func (s *MemoryStore) sweepLocked() {
	now := s.clock.Now()
	for id, session := range s.sessions {
		if session.Expired(now) {
			delete(s.sessions, id)
		}
	}
}

// record is a deep copy of session as stored, without the
// caller-relative PeerAddress.
func record(session signaling.Session) signaling.Session {
	stored := session.View("")
	stored.PeerAddress = ""
	return stored
}
