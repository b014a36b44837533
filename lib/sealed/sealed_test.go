// Copyright 2026 The TalkaNova Authors
// SPDX-License-Identifier: Apache-2.0

package sealed

import (
	"bytes"
	"errors"
	"testing"
)

// testSealer keeps scrypt cheap enough for unit tests.
var testSealer = Sealer{WorkFactor: 10}

func TestSealOpen(t *testing.T) {
	plaintext := []byte("private signed pre-key material")

	ciphertext, err := testSealer.Seal(plaintext, "correct horse")
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if bytes.Contains(ciphertext, plaintext) {
		t.Fatal("sealed output contains the plaintext")
	}

	opened, err := testSealer.Open(ciphertext, "correct horse")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !bytes.Equal(opened, plaintext) {
		t.Errorf("Open = %q, want %q", opened, plaintext)
	}
}

func TestOpen_WrongPassphrase(t *testing.T) {
	ciphertext, err := testSealer.Seal([]byte("secret"), "right")
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if _, err := testSealer.Open(ciphertext, "wrong"); !errors.Is(err, ErrWrongPassphrase) {
		t.Errorf("Open error = %v, want ErrWrongPassphrase", err)
	}
}

func TestOpen_Garbage(t *testing.T) {
	if _, err := testSealer.Open([]byte("definitely not an age file"), "anything"); !errors.Is(err, ErrWrongPassphrase) {
		t.Errorf("Open error = %v, want ErrWrongPassphrase", err)
	}
}

func TestEmptyPassphrase(t *testing.T) {
	if _, err := testSealer.Seal([]byte("x"), ""); !errors.Is(err, ErrEmptyPassphrase) {
		t.Errorf("Seal error = %v, want ErrEmptyPassphrase", err)
	}
	if _, err := testSealer.Open([]byte("x"), ""); !errors.Is(err, ErrEmptyPassphrase) {
		t.Errorf("Open error = %v, want ErrEmptyPassphrase", err)
	}
}

func TestSeal_Randomized(t *testing.T) {
	first, err := testSealer.Seal([]byte("same"), "pass")
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	second, err := testSealer.Seal([]byte("same"), "pass")
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if bytes.Equal(first, second) {
		t.Error("two seals of the same plaintext are identical")
	}
}
