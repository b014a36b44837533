// Copyright 2026 The TalkaNova Authors
// SPDX-License-Identifier: Apache-2.0

// Package keys defines the key material shared by the room and direct
// ciphers and by the registration bundle generator.
//
// Three key shapes exist:
//
//   - [KeyPair]: an X25519 key pair used with NaCl box (Curve25519 key
//     agreement followed by XSalsa20-Poly1305). Both halves are 32
//     bytes.
//   - [SigningKeyPair]: an Ed25519 key pair. The secret half is the
//     64-byte expanded form (seed followed by public key), matching
//     what NaCl sign produces.
//   - [SymmetricKey]: a 32-byte secretbox key (room keys, file keys).
//
// Every authenticated ciphertext produced by this module travels as an
// [Envelope]: standard base64 of nonce followed by ciphertext. The
// nonce size is fixed by the cipher (24 bytes for both box and
// secretbox), so the split point is implicit.
//
// Secret halves never leave the owning process except through
// lib/sealed. Public halves are encoded with [EncodeKey] for transport
// in JSON bodies.
package keys
