// Copyright 2026 The TalkaNova Authors
// SPDX-License-Identifier: Apache-2.0

package registration

import (
	"crypto/ed25519"
	"fmt"

	"github.com/talkanova/talkanova/lib/keys"
)

// PeerBundle is another identity's bundle as returned by the key
// directory. The directory hands out at most one one-time pre-key per
// fetch; OneTimePreKey is empty once the peer's supply is exhausted.
type PeerBundle struct {
	UserID          string `json:"user_id,omitempty"`
	IdentityKey     string `json:"identity_key"`
	SignedPreKey    string `json:"signed_pre_key"`
	PreKeySignature string `json:"pre_key_sig"`
	OneTimePreKey   string `json:"one_time_pre_key,omitempty"`
}

// VerifiedPeer holds the parsed keys of a PeerBundle whose signature
// has been checked.
type VerifiedPeer struct {
	IdentityKey   ed25519.PublicKey
	SignedPreKey  keys.PublicKey
	OneTimePreKey *keys.PublicKey
}

// Verify parses the bundle and checks the pre-key signature. Nothing in
// this module performs key agreement against a bundle that has not
// passed Verify.
func (p PeerBundle) Verify() (VerifiedPeer, error) {
	identity, err := keys.ParseSigningPublicKey(p.IdentityKey)
	if err != nil {
		return VerifiedPeer{}, fmt.Errorf("parsing identity key: %w", err)
	}
	signedPreKey, err := keys.ParsePublicKey(p.SignedPreKey)
	if err != nil {
		return VerifiedPeer{}, fmt.Errorf("parsing signed pre-key: %w", err)
	}
	signature, err := keys.DecodeKey(p.PreKeySignature, keys.SignatureSize)
	if err != nil {
		return VerifiedPeer{}, fmt.Errorf("parsing pre-key signature: %w", err)
	}
	if !Verify(identity, signedPreKey, signature) {
		return VerifiedPeer{}, ErrBadSignature
	}

	verified := VerifiedPeer{IdentityKey: identity, SignedPreKey: signedPreKey}
	if p.OneTimePreKey != "" {
		oneTime, err := keys.ParsePublicKey(p.OneTimePreKey)
		if err != nil {
			return VerifiedPeer{}, fmt.Errorf("parsing one-time pre-key: %w", err)
		}
		verified.OneTimePreKey = &oneTime
	}
	return verified, nil
}

// Verify checks a published bundle's signature and key encodings. The
// key directory runs this before accepting a publication.
func (p PublicBundle) Verify() error {
	peer := PeerBundle{
		IdentityKey:     p.IdentityKey,
		SignedPreKey:    p.SignedPreKey,
		PreKeySignature: p.PreKeySignature,
	}
	if _, err := peer.Verify(); err != nil {
		return err
	}
	for index, encoded := range p.OneTimePreKeys {
		if _, err := keys.ParsePublicKey(encoded); err != nil {
			return fmt.Errorf("one-time pre-key %d: %w", index, err)
		}
	}
	return nil
}
