// Copyright 2026 The TalkaNova Authors
// SPDX-License-Identifier: Apache-2.0

package keys

import (
	"encoding/base64"
	"errors"
)

// NonceSize is the nonce length of NaCl box and secretbox.
const NonceSize = 24

// ErrMalformedEnvelope reports an envelope that is not valid base64 or
// is too short to hold a nonce.
var ErrMalformedEnvelope = errors.New("keys: malformed envelope")

// Envelope is the wire form of an authenticated ciphertext:
// base64(nonce ‖ ciphertext).
type Envelope string

// SealEnvelope joins a nonce and ciphertext into an Envelope.
func SealEnvelope(nonce *[NonceSize]byte, ciphertext []byte) Envelope {
	combined := make([]byte, 0, NonceSize+len(ciphertext))
	combined = append(combined, nonce[:]...)
	combined = append(combined, ciphertext...)
	return Envelope(base64.StdEncoding.EncodeToString(combined))
}

// Open splits an Envelope into its nonce and ciphertext. An envelope
// shorter than the nonce fails with ErrMalformedEnvelope.
func (e Envelope) Open() (nonce [NonceSize]byte, ciphertext []byte, err error) {
	combined, err := base64.StdEncoding.DecodeString(string(e))
	if err != nil {
		return nonce, nil, ErrMalformedEnvelope
	}
	if len(combined) < NonceSize {
		return nonce, nil, ErrMalformedEnvelope
	}
	copy(nonce[:], combined[:NonceSize])
	return nonce, combined[NonceSize:], nil
}

// NewNonce returns a fresh random nonce.
func NewNonce() (*[NonceSize]byte, error) {
	var nonce [NonceSize]byte
	if err := ReadRandom(nonce[:]); err != nil {
		return nil, err
	}
	return &nonce, nil
}
