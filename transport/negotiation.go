// Copyright 2026 The TalkaNova Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import "github.com/talkanova/talkanova/signaling"

// Phase is the local negotiation state of one peer session.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseOffering
	PhaseAwaitingAnswer
	PhaseNegotiatingICE
	PhaseConnected
	PhaseDisconnected
	PhaseFailed
	PhaseClosed
)

var phaseNames = [...]string{
	PhaseIdle:           "idle",
	PhaseOffering:       "offering",
	PhaseAwaitingAnswer: "awaiting_answer",
	PhaseNegotiatingICE: "negotiating_ice",
	PhaseConnected:      "connected",
	PhaseDisconnected:   "disconnected",
	PhaseFailed:         "failed",
	PhaseClosed:         "closed",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "unknown"
	}
	return phaseNames[p]
}

// Action is what one poll cycle should do.
type Action int

const (
	// ActionNone leaves everything as it is. Re-observing an offer,
	// answer, or candidate that was already applied lands here.
	ActionNone Action = iota

	// ActionCreateOffer opens the data channel and publishes the
	// round 1 offer.
	ActionCreateOffer

	// ActionAcceptOffer applies the peer's offer and publishes an
	// answer for its round.
	ActionAcceptOffer

	// ActionApplyAnswer applies the peer's answer to our offer.
	ActionApplyAnswer

	// ActionPeerClosed tears the session down after the peer hung up.
	ActionPeerClosed
)

var actionNames = [...]string{
	ActionNone:        "none",
	ActionCreateOffer: "create_offer",
	ActionAcceptOffer: "accept_offer",
	ActionApplyAnswer: "apply_answer",
	ActionPeerClosed:  "peer_closed",
}

func (a Action) String() string {
	if a < 0 || int(a) >= len(actionNames) {
		return "unknown"
	}
	return actionNames[a]
}

// Local is the part of a coordinator's state that decides the next
// action. Rounds count offer/answer exchanges: 1 is the initial
// negotiation, each renegotiation adds one.
type Local struct {
	UserID string

	HasDataChannel       bool
	HasLocalDescription  bool
	HasRemoteDescription bool

	// OfferRound is the round of the latest offer this side published,
	// zero if none.
	OfferRound int

	// AppliedRound is the latest round whose exchange completed on this
	// side: the answer was published, or the peer's answer applied.
	AppliedRound int

	Closed bool
}

// NextAction decides what to do given local state and the latest
// session snapshot. It is pure; the coordinator performs the I/O.
//
// Exactly one side answers any offer: the offerer only ever applies
// answers to rounds it authored, and the other side only accepts
// offers it did not author for rounds it has not completed.
func NextAction(local Local, session signaling.Session) Action {
	if local.Closed {
		return ActionNone
	}
	if session.Status == signaling.StatusClosed {
		return ActionPeerClosed
	}
	if session.Status != signaling.StatusConnecting && session.Status != signaling.StatusConnected {
		return ActionNone
	}

	offer, answer := session.Offer, session.Answer
	if offer == nil {
		if session.Status == signaling.StatusConnecting && !local.HasDataChannel && !local.HasLocalDescription {
			return ActionCreateOffer
		}
		return ActionNone
	}

	if offer.From == local.UserID {
		if answer != nil &&
			answer.Round == offer.Round &&
			local.OfferRound == offer.Round &&
			local.HasLocalDescription &&
			local.AppliedRound < offer.Round {
			return ActionApplyAnswer
		}
		return ActionNone
	}

	if offer.Round <= local.AppliedRound || (answer != nil && answer.Round >= offer.Round) {
		return ActionNone
	}
	if offer.Round == 1 && local.HasLocalDescription {
		// Our own round 1 offer is still installed; the coordinator
		// rebuilds after losing the race and accepts on the next cycle.
		return ActionNone
	}
	return ActionAcceptOffer
}
