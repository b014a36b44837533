// Copyright 2026 The TalkaNova Authors
// SPDX-License-Identifier: Apache-2.0

package keys

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/box"
)

const (
	// KeySize is the size of X25519 public and secret keys and of
	// symmetric keys.
	KeySize = 32

	// SigningPublicKeySize is the size of an Ed25519 public key.
	SigningPublicKeySize = ed25519.PublicKeySize

	// SigningSecretKeySize is the size of an expanded Ed25519 secret key.
	SigningSecretKeySize = ed25519.PrivateKeySize

	// SignatureSize is the size of a detached Ed25519 signature.
	SignatureSize = ed25519.SignatureSize
)

// ErrRandomness reports that the system CSPRNG could not supply
// entropy. It is fatal: no key, nonce, or session may be produced
// after it is returned.
var ErrRandomness = errors.New("keys: system randomness unavailable")

// ErrKeySize reports a decoded key whose length does not match its type.
var ErrKeySize = errors.New("keys: wrong key length")

// Random is the entropy source for every key and nonce. Tests replace
// it to exercise the CSPRNG failure path.
var Random io.Reader = rand.Reader

// PublicKey is an X25519 public key.
type PublicKey [KeySize]byte

// SecretKey is an X25519 secret key.
type SecretKey [KeySize]byte

// KeyPair is an X25519 key pair for NaCl box encryption.
type KeyPair struct {
	PublicKey PublicKey
	SecretKey SecretKey
}

// SigningKeyPair is an Ed25519 key pair. It is used only to sign the
// signed pre-key at registration.
type SigningKeyPair struct {
	PublicKey ed25519.PublicKey
	SecretKey ed25519.PrivateKey
}

// SymmetricKey is a secretbox key.
type SymmetricKey [KeySize]byte

// GenerateKeyPair returns a fresh X25519 key pair.
func GenerateKeyPair() (KeyPair, error) {
	public, secret, err := box.GenerateKey(Random)
	if err != nil {
		return KeyPair{}, fmt.Errorf("%w: %v", ErrRandomness, err)
	}
	return KeyPair{PublicKey: *public, SecretKey: *secret}, nil
}

// GenerateSigningKeyPair returns a fresh Ed25519 key pair.
func GenerateSigningKeyPair() (SigningKeyPair, error) {
	public, secret, err := ed25519.GenerateKey(Random)
	if err != nil {
		return SigningKeyPair{}, fmt.Errorf("%w: %v", ErrRandomness, err)
	}
	return SigningKeyPair{PublicKey: public, SecretKey: secret}, nil
}

// NewSymmetricKey returns a random 32-byte key, used for per-file
// transfer keys.
func NewSymmetricKey() (SymmetricKey, error) {
	var key SymmetricKey
	if err := ReadRandom(key[:]); err != nil {
		return SymmetricKey{}, err
	}
	return key, nil
}

// ReadRandom fills buffer from Random, mapping any failure to
// ErrRandomness.
func ReadRandom(buffer []byte) error {
	if _, err := io.ReadFull(Random, buffer); err != nil {
		return fmt.Errorf("%w: %v", ErrRandomness, err)
	}
	return nil
}

// EncodeKey returns the standard base64 form of a key used in JSON
// bodies and on the wire.
func EncodeKey(key []byte) string {
	return base64.StdEncoding.EncodeToString(key)
}

// DecodeKey decodes a base64 key and checks that it has the expected
// length.
func DecodeKey(encoded string, size int) ([]byte, error) {
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decoding key: %w", err)
	}
	if len(decoded) != size {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrKeySize, len(decoded), size)
	}
	return decoded, nil
}

// ParsePublicKey decodes a base64 X25519 public key.
func ParsePublicKey(encoded string) (PublicKey, error) {
	var key PublicKey
	decoded, err := DecodeKey(encoded, KeySize)
	if err != nil {
		return key, err
	}
	copy(key[:], decoded)
	return key, nil
}

// ParseSecretKey decodes a base64 X25519 secret key.
func ParseSecretKey(encoded string) (SecretKey, error) {
	var key SecretKey
	decoded, err := DecodeKey(encoded, KeySize)
	if err != nil {
		return key, err
	}
	copy(key[:], decoded)
	return key, nil
}

// ParseSigningPublicKey decodes a base64 Ed25519 public key.
func ParseSigningPublicKey(encoded string) (ed25519.PublicKey, error) {
	decoded, err := DecodeKey(encoded, SigningPublicKeySize)
	if err != nil {
		return nil, err
	}
	return ed25519.PublicKey(decoded), nil
}

// ParseSigningSecretKey decodes a base64 expanded Ed25519 secret key.
func ParseSigningSecretKey(encoded string) (ed25519.PrivateKey, error) {
	decoded, err := DecodeKey(encoded, SigningSecretKeySize)
	if err != nil {
		return nil, err
	}
	return ed25519.PrivateKey(decoded), nil
}

// String returns the base64 form of the public key.
func (k PublicKey) String() string { return EncodeKey(k[:]) }

// Wipe zeroes the secret half of a key pair.
func (p *KeyPair) Wipe() { Wipe(p.SecretKey[:]) }

// Wipe zeroes the secret half of a signing key pair.
func (p *SigningKeyPair) Wipe() { Wipe(p.SecretKey) }

// Wipe zeroes b. Best effort: the Go runtime may hold other copies.
//
//go:noinline
func Wipe(b []byte) {
	for index := range b {
		b[index] = 0
	}
}
