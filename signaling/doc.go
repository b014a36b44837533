// Copyright 2026 The TalkaNova Authors
// SPDX-License-Identifier: Apache-2.0

// Package signaling defines the relay contract that peer session
// negotiation runs over: the session record both peers poll, the
// rules for writing into it, and clients that speak to a relay.
//
// The relay is a storage intermediary, not a message bus. Each peer
// writes only its own half of a [Session]: an offer, an answer, or
// appended ICE candidates. The write rules in session.go are the only
// concurrency control between the two peers:
//
//   - Offers and answers are single-write per negotiation round. Round
//     1 is the initial negotiation; a renegotiation publishes round N+1
//     only after round N has been answered. A second write for a round
//     fails with [ErrConflict].
//   - Only the participant that did not author an offer may answer it
//     ([ErrForbidden] otherwise).
//   - Candidates are append-only and carry their author.
//
// The same rules back both the relay server (package relay) and the
// in-process [MemoryRelay], so tests exercise the semantics the
// coordinator meets in production.
//
// [HTTPClient] speaks the relay's JSON API under /api/v1. The caller's
// identity travels in the X-User-ID header and, where a body exists,
// in its user_id field.
package signaling
