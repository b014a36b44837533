// Copyright 2026 The TalkaNova Authors
// SPDX-License-Identifier: Apache-2.0

package signaling

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Status is the relay-side lifecycle of a session.
type Status string

const (
	StatusPending    Status = "pending"
	StatusAccepted   Status = "accepted"
	StatusConnecting Status = "connecting"
	StatusConnected  Status = "connected"
	StatusClosed     Status = "closed"
)

// DefaultTTL is how long a session lives after creation.
const DefaultTTL = 30 * time.Minute

// MaxCandidates bounds the candidate list of one session.
const MaxCandidates = 256

// Description is one SDP offer or answer.
type Description struct {
	SDP   string `json:"sdp"`
	Type  string `json:"type"`
	From  string `json:"from"`
	Round int    `json:"round"`
}

// Candidate is one trickled ICE candidate.
type Candidate struct {
	From          string  `json:"from"`
	Candidate     string  `json:"candidate"`
	SDPMid        *string `json:"sdp_mid,omitempty"`
	SDPMLineIndex *uint16 `json:"sdp_mline_index,omitempty"`
}

// Session is the relay-held record of one peer session. It is the
// durable source of truth both coordinators resume from.
type Session struct {
	ID            string `json:"session_id"`
	InitiatorID   string `json:"initiator_id"`
	InitiatorName string `json:"initiator_name,omitempty"`
	ResponderID   string `json:"responder_id"`
	Status        Status `json:"status"`

	// PeerAddress is the other participant's address, resolved for the
	// caller by View.
	PeerAddress      string `json:"peer_ip,omitempty"`
	InitiatorAddress string `json:"initiator_address,omitempty"`
	ResponderAddress string `json:"responder_address,omitempty"`

	Offer      *Description `json:"sdp_offer,omitempty"`
	Answer     *Description `json:"sdp_answer,omitempty"`
	Candidates []Candidate  `json:"ice_candidates,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewSession builds the pending session an initiator requests.
func NewSession(id, initiatorID, initiatorName, responderID string, now time.Time, ttl time.Duration) (Session, error) {
	if initiatorID == "" || responderID == "" {
		return Session{}, fmt.Errorf("%w: initiator and target are required", ErrInvalid)
	}
	if initiatorID == responderID {
		return Session{}, fmt.Errorf("%w: cannot request a session with yourself", ErrInvalid)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return Session{
		ID:            id,
		InitiatorID:   initiatorID,
		InitiatorName: initiatorName,
		ResponderID:   responderID,
		Status:        StatusPending,
		CreatedAt:     now.UTC(),
		ExpiresAt:     now.UTC().Add(ttl),
	}, nil
}

// Participant reports whether userID is one of the two peers.
func (s *Session) Participant(userID string) bool {
	return userID != "" && (userID == s.InitiatorID || userID == s.ResponderID)
}

// Peer returns the other participant's ID.
func (s *Session) Peer(userID string) string {
	if userID == s.InitiatorID {
		return s.ResponderID
	}
	return s.InitiatorID
}

// Expired reports whether the session has outlived its TTL.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// View returns a copy of the session as seen by caller, with
// PeerAddress set to the other side's address.
func (s Session) View(caller string) Session {
	view := s
	view.Candidates = append([]Candidate(nil), s.Candidates...)
	if caller == s.InitiatorID {
		view.PeerAddress = s.ResponderAddress
	} else {
		view.PeerAddress = s.InitiatorAddress
	}
	return view
}

// Accept moves a pending session to connecting. Only the target of the
// request may accept it.
func (s *Session) Accept(caller, address string) error {
	if caller != s.ResponderID {
		return fmt.Errorf("%w: only %s may accept session %s", ErrForbidden, s.ResponderID, s.ID)
	}
	if s.Status != StatusPending {
		return fmt.Errorf("%w: session %s is %s, not pending", ErrConflict, s.ID, s.Status)
	}
	s.Status = StatusConnecting
	s.ResponderAddress = address
	return nil
}

// ExchangeAddress records the caller's network address.
func (s *Session) ExchangeAddress(caller, address string) error {
	if !s.Participant(caller) {
		return fmt.Errorf("%w: %s is not part of session %s", ErrForbidden, caller, s.ID)
	}
	if caller == s.InitiatorID {
		s.InitiatorAddress = address
	} else {
		s.ResponderAddress = address
	}
	return nil
}

// SetOffer records an offer. Round 1 may be written once, by either
// participant. Round N+1 may be written only once round N has been
// answered.
func (s *Session) SetOffer(caller string, offer Description) error {
	if err := s.checkNegotiating(caller); err != nil {
		return err
	}
	if offer.SDP == "" || offer.Round < 1 {
		return fmt.Errorf("%w: offer needs an SDP and a round of at least 1", ErrInvalid)
	}

	switch {
	case offer.Round == 1 && s.Offer != nil:
		return fmt.Errorf("%w: session %s already has an offer", ErrConflict, s.ID)
	case offer.Round > 1 && (s.Offer == nil || s.Offer.Round != offer.Round-1):
		return fmt.Errorf("%w: round %d offer does not follow the current round", ErrConflict, offer.Round)
	case offer.Round > 1 && (s.Answer == nil || s.Answer.Round != offer.Round-1):
		return fmt.Errorf("%w: round %d is not answered yet", ErrConflict, offer.Round-1)
	}

	offer.From = caller
	if offer.Type == "" {
		offer.Type = "offer"
	}
	s.Offer = &offer
	return nil
}

// SetAnswer records an answer to the current offer and marks the
// session connected. A participant may not answer its own offer.
func (s *Session) SetAnswer(caller string, answer Description) error {
	if err := s.checkNegotiating(caller); err != nil {
		return err
	}
	if answer.SDP == "" {
		return fmt.Errorf("%w: answer needs an SDP", ErrInvalid)
	}
	if s.Offer == nil {
		return fmt.Errorf("%w: session %s has no offer to answer", ErrConflict, s.ID)
	}
	if s.Offer.From == caller {
		return fmt.Errorf("%w: %s authored the offer and cannot answer it", ErrForbidden, caller)
	}
	if answer.Round == 0 {
		answer.Round = s.Offer.Round
	}
	if answer.Round != s.Offer.Round {
		return fmt.Errorf("%w: answer for round %d, offer is round %d", ErrConflict, answer.Round, s.Offer.Round)
	}
	if s.Answer != nil && s.Answer.Round == answer.Round {
		return fmt.Errorf("%w: round %d already answered", ErrConflict, answer.Round)
	}

	answer.From = caller
	if answer.Type == "" {
		answer.Type = "answer"
	}
	s.Answer = &answer
	s.Status = StatusConnected
	return nil
}

// AddCandidate appends a candidate authored by caller.
func (s *Session) AddCandidate(caller string, candidate Candidate) error {
	if !s.Participant(caller) {
		return fmt.Errorf("%w: %s is not part of session %s", ErrForbidden, caller, s.ID)
	}
	if s.Status == StatusClosed {
		return fmt.Errorf("%w: session %s is closed", ErrConflict, s.ID)
	}
	if candidate.Candidate == "" {
		return fmt.Errorf("%w: empty candidate", ErrInvalid)
	}
	if len(s.Candidates) >= MaxCandidates {
		return fmt.Errorf("%w: session %s has too many candidates", ErrInvalid, s.ID)
	}
	candidate.From = caller
	s.Candidates = append(s.Candidates, candidate)
	return nil
}

// MarkClosed closes the session. Closing twice is not an error.
func (s *Session) MarkClosed(caller string) error {
	if !s.Participant(caller) {
		return fmt.Errorf("%w: %s is not part of session %s", ErrForbidden, caller, s.ID)
	}
	s.Status = StatusClosed
	return nil
}

func (s *Session) checkNegotiating(caller string) error {
	if !s.Participant(caller) {
		return fmt.Errorf("%w: %s is not part of session %s", ErrForbidden, caller, s.ID)
	}
	if s.Status != StatusConnecting && s.Status != StatusConnected {
		return fmt.Errorf("%w: session %s is %s", ErrConflict, s.ID, s.Status)
	}
	return nil
}

// SortByCreation orders sessions oldest first, breaking ties by ID.
func SortByCreation(sessions []Session) {
	slices.SortFunc(sessions, func(a, b Session) int {
		if order := a.CreatedAt.Compare(b.CreatedAt); order != 0 {
			return order
		}
		return strings.Compare(a.ID, b.ID)
	})
}
