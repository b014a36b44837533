// Copyright 2026 The TalkaNova Authors
// SPDX-License-Identifier: Apache-2.0

// Package relay is the signaling relay: a small HTTP service holding
// one record per peer session, plus a directory of published key
// bundles. Peers never talk to each other through it beyond the
// session record; it stores what each side writes and enforces who
// may write what.
//
// The API lives under /api/v1 and is consumed by
// [signaling.HTTPClient]. The caller's identity comes from the body's
// user_id field or, failing that, the X-User-ID header. Errors are
// JSON {"detail": "..."} bodies with the status codes of
// [signaling.HTTPStatus].
//
// Offers and answers are single-write per negotiation round, so the
// relay itself serializes the two peers' writes: a second offer or
// answer for a round is rejected with 409. Sessions expire a fixed
// time after creation and are dropped lazily on access.
//
// Records live in a [Store]: [MemoryStore] for a single process,
// [RedisStore] when several relay processes share state.
package relay
