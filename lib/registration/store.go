// Copyright 2026 The TalkaNova Authors
// SPDX-License-Identifier: Apache-2.0

package registration

import (
	"bytes"
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"golang.org/x/crypto/curve25519"

	"github.com/talkanova/talkanova/lib/codec"
	"github.com/talkanova/talkanova/lib/keys"
	"github.com/talkanova/talkanova/lib/sealed"
)

const (
	// SecretFile holds the sealed private bundle.
	SecretFile = "identity.age"

	// PublicFile holds the published bundle as JSON.
	PublicFile = "bundle.json"
)

// ErrNoIdentity reports a store directory without a saved identity.
var ErrNoIdentity = errors.New("registration: no identity in store")

// storedBundle is the CBOR form of the private state. Key order is
// fixed by the deterministic encoder and Spent is kept sorted, so an
// unchanged bundle always encodes to the same plaintext.
type storedBundle struct {
	IdentitySecret     []byte   `cbor:"1,keyasint"`
	SignedPreKeySecret []byte   `cbor:"2,keyasint"`
	Signature          []byte   `cbor:"3,keyasint"`
	OneTimeSecrets     [][]byte `cbor:"4,keyasint"`
	Spent              [][]byte `cbor:"5,keyasint,omitempty"`
}

// Store persists a Bundle under a directory. The private half is CBOR
// encoded and sealed with a passphrase; the public half is written
// next to it in the clear.
type Store struct {
	Dir    string
	Sealer sealed.Sealer
}

// encodePrivate returns the CBOR plaintext that Save seals.
func encodePrivate(bundle *Bundle) ([]byte, error) {
	stored := storedBundle{
		IdentitySecret:     bundle.Identity.SecretKey,
		SignedPreKeySecret: bundle.SignedPreKey.SecretKey[:],
		Signature:          bundle.Signature,
	}
	for _, pair := range bundle.OneTimePreKeys {
		stored.OneTimeSecrets = append(stored.OneTimeSecrets, pair.SecretKey[:])
	}
	for public := range bundle.spent {
		stored.Spent = append(stored.Spent, public[:])
	}
	slices.SortFunc(stored.Spent, bytes.Compare)

	plaintext, err := codec.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("encoding bundle: %w", err)
	}
	return plaintext, nil
}

// Save writes the bundle to the store, replacing any previous one.
func (s Store) Save(bundle *Bundle, passphrase string) error {
	plaintext, err := encodePrivate(bundle)
	if err != nil {
		return err
	}
	defer keys.Wipe(plaintext)

	ciphertext, err := s.Sealer.Seal(plaintext, passphrase)
	if err != nil {
		return fmt.Errorf("sealing bundle: %w", err)
	}
	public, err := json.MarshalIndent(bundle.Public(), "", "  ")
	if err != nil {
		return fmt.Errorf("encoding public bundle: %w", err)
	}

	if err := os.MkdirAll(s.Dir, 0o700); err != nil {
		return fmt.Errorf("creating store directory: %w", err)
	}
	if err := writeFileAtomic(filepath.Join(s.Dir, SecretFile), ciphertext, 0o600); err != nil {
		return err
	}
	return writeFileAtomic(filepath.Join(s.Dir, PublicFile), append(public, '\n'), 0o644)
}

// Load reads and unseals the bundle. A wrong passphrase returns
// sealed.ErrWrongPassphrase.
func (s Store) Load(passphrase string) (*Bundle, error) {
	ciphertext, err := os.ReadFile(filepath.Join(s.Dir, SecretFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoIdentity
	}
	if err != nil {
		return nil, fmt.Errorf("reading sealed bundle: %w", err)
	}
	plaintext, err := s.Sealer.Open(ciphertext, passphrase)
	if err != nil {
		return nil, err
	}
	defer keys.Wipe(plaintext)

	var stored storedBundle
	if err := codec.Unmarshal(plaintext, &stored); err != nil {
		return nil, fmt.Errorf("decoding bundle: %w", err)
	}
	return stored.bundle()
}

// LoadPublic reads the public bundle without a passphrase.
func (s Store) LoadPublic() (PublicBundle, error) {
	data, err := os.ReadFile(filepath.Join(s.Dir, PublicFile))
	if errors.Is(err, os.ErrNotExist) {
		return PublicBundle{}, ErrNoIdentity
	}
	if err != nil {
		return PublicBundle{}, fmt.Errorf("reading public bundle: %w", err)
	}
	var public PublicBundle
	if err := json.Unmarshal(data, &public); err != nil {
		return PublicBundle{}, fmt.Errorf("decoding public bundle: %w", err)
	}
	return public, nil
}

func (stored storedBundle) bundle() (*Bundle, error) {
	if len(stored.IdentitySecret) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("identity key: %w", keys.ErrKeySize)
	}
	if len(stored.SignedPreKeySecret) != keys.KeySize {
		return nil, fmt.Errorf("signed pre-key: %w", keys.ErrKeySize)
	}

	identitySecret := ed25519.PrivateKey(append([]byte(nil), stored.IdentitySecret...))
	bundle := &Bundle{
		Identity: keys.SigningKeyPair{
			PublicKey: identitySecret.Public().(ed25519.PublicKey),
			SecretKey: identitySecret,
		},
		SignedPreKey: pairFromSecret(stored.SignedPreKeySecret),
		Signature:    stored.Signature,
		spent:        make(map[keys.PublicKey]struct{}),
	}
	if !Verify(bundle.Identity.PublicKey, bundle.SignedPreKey.PublicKey, bundle.Signature) {
		return nil, ErrBadSignature
	}
	for index, secret := range stored.OneTimeSecrets {
		if len(secret) != keys.KeySize {
			return nil, fmt.Errorf("one-time pre-key %d: %w", index, keys.ErrKeySize)
		}
		bundle.OneTimePreKeys = append(bundle.OneTimePreKeys, pairFromSecret(secret))
	}
	for _, spent := range stored.Spent {
		if len(spent) == keys.KeySize {
			bundle.spent[keys.PublicKey(spent)] = struct{}{}
		}
	}
	return bundle, nil
}

func pairFromSecret(secret []byte) keys.KeyPair {
	var pair keys.KeyPair
	copy(pair.SecretKey[:], secret)
	curve25519.ScalarBaseMult((*[32]byte)(&pair.PublicKey), (*[32]byte)(&pair.SecretKey))
	return pair
}

func writeFileAtomic(path string, data []byte, mode os.FileMode) error {
	temporary := path + ".tmp"
	if err := os.WriteFile(temporary, data, mode); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(temporary, path); err != nil {
		os.Remove(temporary)
		return fmt.Errorf("replacing %s: %w", filepath.Base(path), err)
	}
	return nil
}
