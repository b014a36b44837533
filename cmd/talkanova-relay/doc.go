// Copyright 2026 The TalkaNova Authors
// SPDX-License-Identifier: Apache-2.0

// talkanova-relay is the signaling relay. It stores peer sessions and
// published key bundles and serves the HTTP API that clients poll
// during negotiation. It never sees message content or media.
//
// Configuration comes from --config or TALKANOVA_CONFIG; with neither,
// the built-in defaults apply (in-memory store on :8000). Set
// relay.store to "redis" to share sessions between relay processes.
//
//	talkanova-relay [--config talkanova.yaml] [--listen :8000]
package main
