// Copyright 2026 The TalkaNova Authors
// SPDX-License-Identifier: Apache-2.0

// Package roomcipher implements the shared-room symmetric scheme. Every
// member of a room derives the same key from the room code, so the
// relay carrying room traffic never needs to hold or see it.
//
// The key is PBKDF2-HMAC-SHA256 over the room code with a fixed salt
// and [Iterations] rounds. Messages are sealed with NaCl secretbox
// (XSalsa20-Poly1305) under a fresh random nonce and travel as a
// [keys.Envelope].
//
// The scheme has no forward secrecy: anyone holding the room code can
// decrypt every message ever sealed under it.
package roomcipher

import (
	"crypto/sha256"
	"errors"
	"unicode/utf8"

	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/pbkdf2"

	"github.com/talkanova/talkanova/lib/keys"
)

const (
	// Salt is the fixed PBKDF2 salt. It is shared by every room so that
	// a room code alone determines the key; changing it would orphan
	// every existing room.
	Salt = "talkanova_room_salt"

	// Iterations is the PBKDF2 iteration count.
	Iterations = 100_000
)

// ErrDecrypt is returned for every decryption failure: wrong room
// code, tampering, truncation, or bytes that were never an envelope.
// It deliberately carries no cause.
var ErrDecrypt = errors.New("roomcipher: cannot decrypt")

// ErrInvalidRoomCode reports a room code that is not UTF-8.
var ErrInvalidRoomCode = errors.New("roomcipher: invalid room code")

// DeriveRoomKey derives the room key from a room code. The result is a
// pure function of roomCode; the empty code is a valid code like any
// other.
func DeriveRoomKey(roomCode string) (keys.SymmetricKey, error) {
	var key keys.SymmetricKey
	if !utf8.ValidString(roomCode) {
		return key, ErrInvalidRoomCode
	}
	derived := pbkdf2.Key([]byte(roomCode), []byte(Salt), Iterations, keys.KeySize, sha256.New)
	copy(key[:], derived)
	keys.Wipe(derived)
	return key, nil
}

// Encrypt seals plaintext under key with a fresh random nonce.
func Encrypt(plaintext string, key keys.SymmetricKey) (keys.Envelope, error) {
	nonce, err := keys.NewNonce()
	if err != nil {
		return "", err
	}
	sealed := secretbox.Seal(nil, []byte(plaintext), nonce, (*[keys.KeySize]byte)(&key))
	return keys.SealEnvelope(nonce, sealed), nil
}

// Decrypt opens an envelope sealed by Encrypt. Any failure yields
// ErrDecrypt and an empty string; unauthenticated bytes are never
// returned.
func Decrypt(envelope keys.Envelope, key keys.SymmetricKey) (string, error) {
	nonce, ciphertext, err := envelope.Open()
	if err != nil {
		return "", ErrDecrypt
	}
	plaintext, ok := secretbox.Open(nil, ciphertext, &nonce, (*[keys.KeySize]byte)(&key))
	if !ok {
		return "", ErrDecrypt
	}
	return string(plaintext), nil
}
