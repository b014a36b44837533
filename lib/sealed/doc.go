// Copyright 2026 The TalkaNova Authors
// SPDX-License-Identifier: Apache-2.0

// Package sealed protects local-only secret key material at rest. It
// wraps filippo.io/age's scrypt passphrase recipient: the private half
// of a registration bundle is sealed under a passphrase the user types
// and is never written to disk in the clear.
//
// Sealed output is a binary age file. [Sealer.Seal] and [Sealer.Open]
// operate on byte slices; the caller owns the file I/O.
//
// Passphrase sealing is intentionally slow. [DefaultWorkFactor] is the
// age default (2^18 scrypt iterations); tests lower it through
// [Sealer.WorkFactor].
package sealed
