// Copyright 2026 The TalkaNova Authors
// SPDX-License-Identifier: Apache-2.0

package registration

import (
	"crypto/ed25519"
	"errors"
	"fmt"

	"github.com/talkanova/talkanova/lib/keys"
)

// OneTimePreKeyCount is the number of one-time pre-keys generated per
// registration.
const OneTimePreKeyCount = 5

var (
	// ErrBadSignature reports a bundle whose pre-key signature does not
	// verify under its identity key.
	ErrBadSignature = errors.New("registration: pre-key signature verification failed")

	// ErrPreKeyConsumed reports an attempt to use a one-time pre-key
	// that has already been used. This is a protocol error.
	ErrPreKeyConsumed = errors.New("registration: one-time pre-key already consumed")

	// ErrUnknownPreKey reports a one-time pre-key this identity never
	// generated.
	ErrUnknownPreKey = errors.New("registration: unknown one-time pre-key")
)

// Bundle is the complete key material of one identity.
type Bundle struct {
	Identity       keys.SigningKeyPair
	SignedPreKey   keys.KeyPair
	Signature      []byte
	OneTimePreKeys []keys.KeyPair

	// spent holds the public halves of one-time pre-keys already used.
	spent map[keys.PublicKey]struct{}
}

// PublicBundle is the published half of a Bundle, as carried in the
// key directory API.
type PublicBundle struct {
	IdentityKey     string   `json:"identity_key"`
	SignedPreKey    string   `json:"signed_pre_key"`
	PreKeySignature string   `json:"pre_key_sig"`
	OneTimePreKeys  []string `json:"one_time_pre_keys"`
}

// PrivateBundle is the local-only half of a Bundle in transport form.
// It must never be sent over the network.
type PrivateBundle struct {
	IdentityKey    string   `json:"private_identity_key"`
	SignedPreKey   string   `json:"private_signed_pre_key"`
	OneTimePreKeys []string `json:"private_one_time_keys"`
}

// Generate creates a fresh identity: signing key, signed pre-key and
// its signature, and OneTimePreKeyCount one-time pre-keys. Any CSPRNG
// failure aborts generation with keys.ErrRandomness.
func Generate() (*Bundle, error) {
	identity, err := keys.GenerateSigningKeyPair()
	if err != nil {
		return nil, fmt.Errorf("generating identity key: %w", err)
	}
	signedPreKey, err := keys.GenerateKeyPair()
	if err != nil {
		return nil, fmt.Errorf("generating signed pre-key: %w", err)
	}

	bundle := &Bundle{
		Identity:     identity,
		SignedPreKey: signedPreKey,
		Signature:    ed25519.Sign(identity.SecretKey, signedPreKey.PublicKey[:]),
		spent:        make(map[keys.PublicKey]struct{}),
	}
	for index := range OneTimePreKeyCount {
		pair, err := keys.GenerateKeyPair()
		if err != nil {
			return nil, fmt.Errorf("generating one-time pre-key %d: %w", index, err)
		}
		bundle.OneTimePreKeys = append(bundle.OneTimePreKeys, pair)
	}
	return bundle, nil
}

// Verify reports whether signature is the identity key's signature
// over the signed pre-key's public bytes.
func Verify(identityPublic ed25519.PublicKey, signedPreKeyPublic keys.PublicKey, signature []byte) bool {
	if len(identityPublic) != ed25519.PublicKeySize || len(signature) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(identityPublic, signedPreKeyPublic[:], signature)
}

// Public returns the publishable half of the bundle. One-time pre-keys
// that have been consumed are omitted.
func (b *Bundle) Public() PublicBundle {
	public := PublicBundle{
		IdentityKey:     keys.EncodeKey(b.Identity.PublicKey),
		SignedPreKey:    b.SignedPreKey.PublicKey.String(),
		PreKeySignature: keys.EncodeKey(b.Signature),
		OneTimePreKeys:  []string{},
	}
	for _, pair := range b.OneTimePreKeys {
		public.OneTimePreKeys = append(public.OneTimePreKeys, pair.PublicKey.String())
	}
	return public
}

// Private returns the local-only half in transport form.
func (b *Bundle) Private() PrivateBundle {
	private := PrivateBundle{
		IdentityKey:    keys.EncodeKey(b.Identity.SecretKey),
		SignedPreKey:   keys.EncodeKey(b.SignedPreKey.SecretKey[:]),
		OneTimePreKeys: []string{},
	}
	for _, pair := range b.OneTimePreKeys {
		private.OneTimePreKeys = append(private.OneTimePreKeys, keys.EncodeKey(pair.SecretKey[:]))
	}
	return private
}

// ConsumeOneTimePreKey returns the secret half of the one-time pre-key
// whose public half is public, and deletes it from the bundle. A second
// call for the same key returns ErrPreKeyConsumed.
func (b *Bundle) ConsumeOneTimePreKey(public keys.PublicKey) (keys.SecretKey, error) {
	if _, used := b.spent[public]; used {
		return keys.SecretKey{}, ErrPreKeyConsumed
	}
	for index, pair := range b.OneTimePreKeys {
		if pair.PublicKey != public {
			continue
		}
		secret := pair.SecretKey
		b.OneTimePreKeys[index].Wipe()
		b.OneTimePreKeys = append(b.OneTimePreKeys[:index], b.OneTimePreKeys[index+1:]...)
		if b.spent == nil {
			b.spent = make(map[keys.PublicKey]struct{})
		}
		b.spent[public] = struct{}{}
		return secret, nil
	}
	return keys.SecretKey{}, ErrUnknownPreKey
}

// Wipe zeroes all secret material held by the bundle.
func (b *Bundle) Wipe() {
	b.Identity.Wipe()
	b.SignedPreKey.Wipe()
	for index := range b.OneTimePreKeys {
		b.OneTimePreKeys[index].Wipe()
	}
}
