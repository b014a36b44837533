// Copyright 2026 The TalkaNova Authors
// SPDX-License-Identifier: Apache-2.0

package sealed

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"filippo.io/age"
)

// DefaultWorkFactor is the scrypt log2(N) used when Sealer.WorkFactor
// is zero.
const DefaultWorkFactor = 18

// ErrWrongPassphrase reports that the sealed data could not be opened
// with the given passphrase (or was not sealed by this package).
var ErrWrongPassphrase = errors.New("sealed: wrong passphrase or corrupt data")

// ErrEmptyPassphrase reports an empty passphrase.
var ErrEmptyPassphrase = errors.New("sealed: passphrase is required")

// Sealer seals and opens byte slices under a passphrase.
type Sealer struct {
	// WorkFactor is the scrypt log2(N). Zero means DefaultWorkFactor.
	WorkFactor int
}

func (s Sealer) workFactor() int {
	if s.WorkFactor <= 0 {
		return DefaultWorkFactor
	}
	return s.WorkFactor
}

// Seal encrypts plaintext under passphrase.
func (s Sealer) Seal(plaintext []byte, passphrase string) ([]byte, error) {
	if passphrase == "" {
		return nil, ErrEmptyPassphrase
	}
	recipient, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return nil, fmt.Errorf("creating scrypt recipient: %w", err)
	}
	recipient.SetWorkFactor(s.workFactor())

	var ciphertext bytes.Buffer
	writer, err := age.Encrypt(&ciphertext, recipient)
	if err != nil {
		return nil, fmt.Errorf("creating age encryptor: %w", err)
	}
	if _, err := writer.Write(plaintext); err != nil {
		return nil, fmt.Errorf("writing plaintext to age encryptor: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finalizing age encryption: %w", err)
	}
	return ciphertext.Bytes(), nil
}

// Open decrypts data produced by Seal. The caller should wipe the
// returned plaintext once it has been parsed.
func (s Sealer) Open(ciphertext []byte, passphrase string) ([]byte, error) {
	if passphrase == "" {
		return nil, ErrEmptyPassphrase
	}
	identity, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return nil, fmt.Errorf("creating scrypt identity: %w", err)
	}
	// Accept anything up to the default so files sealed with a lower
	// factor (tests, older builds) still open.
	maxFactor := s.workFactor()
	if maxFactor < DefaultWorkFactor {
		maxFactor = DefaultWorkFactor
	}
	identity.SetMaxWorkFactor(maxFactor)

	reader, err := age.Decrypt(bytes.NewReader(ciphertext), identity)
	if err != nil {
		return nil, ErrWrongPassphrase
	}
	plaintext, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("reading decrypted plaintext: %w", err)
	}
	return plaintext, nil
}
