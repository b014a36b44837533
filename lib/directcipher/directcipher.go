// Copyright 2026 The TalkaNova Authors
// SPDX-License-Identifier: Apache-2.0

// Package directcipher implements authenticated public-key encryption
// between two identified parties using NaCl box: X25519 key agreement
// between the sender's secret key and the recipient's public key,
// then XSalsa20-Poly1305 under the derived shared key.
//
// A ciphertext that authenticates under (senderPublic, recipientSecret)
// can only have been produced by the holder of the sender's secret key.
// This package does not bind a public key to a person; that binding
// is the job of lib/registration's signed bundles.
package directcipher

import (
	"errors"

	"golang.org/x/crypto/nacl/box"

	"github.com/talkanova/talkanova/lib/keys"
)

// ErrDecryption is returned when an envelope fails authentication:
// wrong keys, corruption, or input shorter than a nonce.
var ErrDecryption = errors.New("directcipher: decryption failed")

// Encrypt seals plaintext for recipientPublic using senderSecret.
func Encrypt(plaintext []byte, recipientPublic keys.PublicKey, senderSecret keys.SecretKey) (keys.Envelope, error) {
	nonce, err := keys.NewNonce()
	if err != nil {
		return "", err
	}
	sealed := box.Seal(nil, plaintext, nonce,
		(*[keys.KeySize]byte)(&recipientPublic), (*[keys.KeySize]byte)(&senderSecret))
	return keys.SealEnvelope(nonce, sealed), nil
}

// Decrypt opens an envelope sealed by senderPublic's owner for the
// holder of recipientSecret.
func Decrypt(envelope keys.Envelope, senderPublic keys.PublicKey, recipientSecret keys.SecretKey) ([]byte, error) {
	nonce, ciphertext, err := envelope.Open()
	if err != nil {
		return nil, ErrDecryption
	}
	plaintext, ok := box.Open(nil, ciphertext, &nonce,
		(*[keys.KeySize]byte)(&senderPublic), (*[keys.KeySize]byte)(&recipientSecret))
	if !ok {
		return nil, ErrDecryption
	}
	return plaintext, nil
}

// Session holds the precomputed shared key for one peer so long-lived
// channels skip the X25519 step on every message. Both directions use
// the same shared key; nonces are random per message, so the two
// sides never collide in practice.
type Session struct {
	shared [keys.KeySize]byte
}

// NewSession precomputes the shared key between localSecret and
// peerPublic.
func NewSession(peerPublic keys.PublicKey, localSecret keys.SecretKey) *Session {
	session := &Session{}
	box.Precompute(&session.shared, (*[keys.KeySize]byte)(&peerPublic), (*[keys.KeySize]byte)(&localSecret))
	return session
}

// Seal encrypts plaintext for the peer.
func (s *Session) Seal(plaintext []byte) (keys.Envelope, error) {
	nonce, err := keys.NewNonce()
	if err != nil {
		return "", err
	}
	return keys.SealEnvelope(nonce, box.SealAfterPrecomputation(nil, plaintext, nonce, &s.shared)), nil
}

// Open decrypts an envelope from the peer.
func (s *Session) Open(envelope keys.Envelope) ([]byte, error) {
	nonce, ciphertext, err := envelope.Open()
	if err != nil {
		return nil, ErrDecryption
	}
	plaintext, ok := box.OpenAfterPrecomputation(nil, ciphertext, &nonce, &s.shared)
	if !ok {
		return nil, ErrDecryption
	}
	return plaintext, nil
}

// Close zeroes the shared key.
func (s *Session) Close() {
	keys.Wipe(s.shared[:])
}
