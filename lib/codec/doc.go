// Copyright 2026 The TalkaNova Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec is the CBOR configuration for on-disk state.
//
// JSON is used for everything that crosses the network (relay API,
// data-channel frames, room chat frames). CBOR is used for local files:
// the sealed key store and the one-time pre-key ledger. Types that are
// only ever stored locally carry `cbor` struct tags.
package codec
