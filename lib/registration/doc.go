// Copyright 2026 The TalkaNova Authors
// SPDX-License-Identifier: Apache-2.0

// Package registration generates and verifies the key bundle a new
// identity publishes so that others can start an encrypted session
// with it while it is offline.
//
// A bundle has three parts:
//
//   - an Ed25519 identity key,
//   - an X25519 signed pre-key whose public half is signed by the
//     identity key,
//   - a batch of [OneTimePreKeyCount] X25519 one-time pre-keys.
//
// [Generate] returns all of it. [Bundle.Public] is the half that is
// published; the private half stays local and is persisted only
// through [Store], which seals it with lib/sealed.
//
// Consumers of a published bundle must call [PeerBundle.Verify] before
// any key agreement: a bundle whose pre-key signature fails is
// rejected outright, which is what stops a relay from substituting its
// own pre-key.
//
// One-time pre-keys are single use. The relay hands each one out at
// most once; locally, [Bundle.ConsumeOneTimePreKey] deletes the private
// half on first use and reports [ErrPreKeyConsumed] for any replay.
// Per-message ratcheting is not implemented here.
package registration
