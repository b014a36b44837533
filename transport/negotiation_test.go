// Copyright 2026 The TalkaNova Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"testing"

	"github.com/talkanova/talkanova/signaling"
)

func offerFrom(user string, round int) *signaling.Description {
	return &signaling.Description{SDP: "v=0", Type: "offer", From: user, Round: round}
}

func answerFrom(user string, round int) *signaling.Description {
	return &signaling.Description{SDP: "v=0", Type: "answer", From: user, Round: round}
}

func TestNextAction(t *testing.T) {
	fresh := Local{UserID: "alice"}
	offered := Local{UserID: "alice", HasDataChannel: true, HasLocalDescription: true, OfferRound: 1}
	answered := Local{UserID: "bob", HasDataChannel: true, HasLocalDescription: true, HasRemoteDescription: true, AppliedRound: 1}
	established := Local{UserID: "alice", HasDataChannel: true, HasLocalDescription: true, HasRemoteDescription: true, OfferRound: 1, AppliedRound: 1}

	tests := []struct {
		name    string
		local   Local
		session signaling.Session
		want    Action
	}{
		{
			name:    "pending session waits",
			local:   fresh,
			session: signaling.Session{Status: signaling.StatusPending},
			want:    ActionNone,
		},
		{
			name:    "accepted status waits for connecting",
			local:   fresh,
			session: signaling.Session{Status: signaling.StatusAccepted},
			want:    ActionNone,
		},
		{
			name:    "connecting with no offer creates one",
			local:   fresh,
			session: signaling.Session{Status: signaling.StatusConnecting},
			want:    ActionCreateOffer,
		},
		{
			name:    "data channel already open does not offer again",
			local:   Local{UserID: "alice", HasDataChannel: true},
			session: signaling.Session{Status: signaling.StatusConnecting},
			want:    ActionNone,
		},
		{
			name:    "own offer waiting for answer",
			local:   offered,
			session: signaling.Session{Status: signaling.StatusConnecting, Offer: offerFrom("alice", 1)},
			want:    ActionNone,
		},
		{
			name:    "peer offer is accepted",
			local:   Local{UserID: "bob"},
			session: signaling.Session{Status: signaling.StatusConnecting, Offer: offerFrom("alice", 1)},
			want:    ActionAcceptOffer,
		},
		{
			name:    "peer offer already answered by us",
			local:   answered,
			session: signaling.Session{Status: signaling.StatusConnected, Offer: offerFrom("alice", 1), Answer: answerFrom("bob", 1)},
			want:    ActionNone,
		},
		{
			name:    "answer to our offer is applied",
			local:   offered,
			session: signaling.Session{Status: signaling.StatusConnected, Offer: offerFrom("alice", 1), Answer: answerFrom("bob", 1)},
			want:    ActionApplyAnswer,
		},
		{
			name:    "applied answer is not applied twice",
			local:   established,
			session: signaling.Session{Status: signaling.StatusConnected, Offer: offerFrom("alice", 1), Answer: answerFrom("bob", 1)},
			want:    ActionNone,
		},
		{
			name:    "glare loser does not answer while its offer is installed",
			local:   Local{UserID: "bob", HasDataChannel: true, HasLocalDescription: true, OfferRound: 1},
			session: signaling.Session{Status: signaling.StatusConnecting, Offer: offerFrom("alice", 1)},
			want:    ActionNone,
		},
		{
			name:    "renegotiation from the peer is accepted",
			local:   answered,
			session: signaling.Session{Status: signaling.StatusConnected, Offer: offerFrom("alice", 2), Answer: answerFrom("bob", 1)},
			want:    ActionAcceptOffer,
		},
		{
			name:    "renegotiation answer is applied",
			local:   Local{UserID: "bob", HasDataChannel: true, HasLocalDescription: true, HasRemoteDescription: true, OfferRound: 2, AppliedRound: 1},
			session: signaling.Session{Status: signaling.StatusConnected, Offer: offerFrom("bob", 2), Answer: answerFrom("alice", 2)},
			want:    ActionApplyAnswer,
		},
		{
			name:    "stale answer from an earlier round is ignored",
			local:   Local{UserID: "bob", HasDataChannel: true, HasLocalDescription: true, HasRemoteDescription: true, OfferRound: 2, AppliedRound: 1},
			session: signaling.Session{Status: signaling.StatusConnected, Offer: offerFrom("bob", 2), Answer: answerFrom("alice", 1)},
			want:    ActionNone,
		},
		{
			name:    "offer from a round we completed is ignored",
			local:   Local{UserID: "bob", HasLocalDescription: true, HasRemoteDescription: true, AppliedRound: 3},
			session: signaling.Session{Status: signaling.StatusConnected, Offer: offerFrom("alice", 2)},
			want:    ActionNone,
		},
		{
			name:    "closed session tears down",
			local:   established,
			session: signaling.Session{Status: signaling.StatusClosed, Offer: offerFrom("alice", 1)},
			want:    ActionPeerClosed,
		},
		{
			name:    "locally closed coordinator does nothing",
			local:   Local{UserID: "alice", Closed: true},
			session: signaling.Session{Status: signaling.StatusClosed},
			want:    ActionNone,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := NextAction(test.local, test.session); got != test.want {
				t.Errorf("NextAction = %s, want %s", got, test.want)
			}
		})
	}
}

// The predicates for offering and answering must never both hold for
// the same side, and at most one side may answer a given offer.
func TestNextActionSingleAnswerer(t *testing.T) {
	session := signaling.Session{Status: signaling.StatusConnecting, Offer: offerFrom("alice", 1)}
	alice := Local{UserID: "alice", HasDataChannel: true, HasLocalDescription: true, OfferRound: 1}
	bob := Local{UserID: "bob"}

	if NextAction(alice, session) == ActionAcceptOffer {
		t.Fatal("offer author would answer its own offer")
	}
	if NextAction(bob, session) != ActionAcceptOffer {
		t.Fatal("non-author would not answer")
	}
}

// Re-running an offerer's poll against an unchanged session must not
// publish a second offer.
func TestNextActionSingleOffer(t *testing.T) {
	after := Local{UserID: "alice", HasDataChannel: true, HasLocalDescription: true, OfferRound: 1}
	session := signaling.Session{Status: signaling.StatusConnecting, Offer: offerFrom("alice", 1)}
	for cycle := range 5 {
		if action := NextAction(after, session); action == ActionCreateOffer {
			t.Fatalf("cycle %d produced a second offer", cycle)
		}
	}

	// Even before the relay reflects the offer, a side with a local
	// description never offers again.
	unreflected := signaling.Session{Status: signaling.StatusConnecting}
	if action := NextAction(after, unreflected); action != ActionNone {
		t.Fatalf("unreflected offer: NextAction = %s, want none", action)
	}
}

func TestPhaseAndActionStrings(t *testing.T) {
	if PhaseAwaitingAnswer.String() != "awaiting_answer" || Phase(99).String() != "unknown" {
		t.Error("Phase.String mismatch")
	}
	if ActionPeerClosed.String() != "peer_closed" || Action(-1).String() != "unknown" {
		t.Error("Action.String mismatch")
	}
}
