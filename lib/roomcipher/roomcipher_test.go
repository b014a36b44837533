// Copyright 2026 The TalkaNova Authors
// SPDX-License-Identifier: Apache-2.0

package roomcipher

import (
	"errors"
	"strings"
	"testing"

	"github.com/talkanova/talkanova/lib/keys"
)

func mustDerive(t *testing.T, roomCode string) keys.SymmetricKey {
	t.Helper()
	key, err := DeriveRoomKey(roomCode)
	if err != nil {
		t.Fatalf("DeriveRoomKey(%q): %v", roomCode, err)
	}
	return key
}

func TestDeriveRoomKey_Deterministic(t *testing.T) {
	first := mustDerive(t, "room123")
	second := mustDerive(t, "room123")
	if first != second {
		t.Error("same room code produced different keys")
	}

	other := mustDerive(t, "room124")
	if first == other {
		t.Error("different room codes produced the same key")
	}
}

func TestDeriveRoomKey_Invalid(t *testing.T) {
	if _, err := DeriveRoomKey("\xff\xfe"); !errors.Is(err, ErrInvalidRoomCode) {
		t.Errorf("DeriveRoomKey of invalid UTF-8 error = %v, want ErrInvalidRoomCode", err)
	}
}

func TestDeriveRoomKey_Empty(t *testing.T) {
	empty := mustDerive(t, "")
	if empty != mustDerive(t, "") {
		t.Error("empty room code produced different keys")
	}
	if empty == (keys.SymmetricKey{}) || empty == mustDerive(t, " ") {
		t.Error("empty room code key is not distinct")
	}
	envelope, err := Encrypt("hi", empty)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if got, err := Decrypt(envelope, empty); err != nil || got != "hi" {
		t.Errorf("Decrypt = %q, %v", got, err)
	}
}

func TestRoundTrip(t *testing.T) {
	key := mustDerive(t, "round-trip")

	plaintexts := []string{
		"",
		"hello room",
		"[FILE]:42:report.pdf:application/pdf",
		strings.Repeat("long message ", 500),
		"emoji \U0001F512 and accents éà",
	}
	for _, plaintext := range plaintexts {
		envelope, err := Encrypt(plaintext, key)
		if err != nil {
			t.Fatalf("Encrypt: %v", err)
		}
		got, err := Decrypt(envelope, key)
		if err != nil {
			t.Fatalf("Decrypt: %v", err)
		}
		if got != plaintext {
			t.Errorf("round trip = %q, want %q", got, plaintext)
		}
	}
}

func TestEncrypt_FreshNonce(t *testing.T) {
	key := mustDerive(t, "nonce-room")

	first, err := Encrypt("same text", key)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	second, err := Encrypt("same text", key)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if first == second {
		t.Error("two encryptions of the same plaintext produced identical envelopes")
	}
}

func TestDecrypt_WrongKey(t *testing.T) {
	right := mustDerive(t, "room123")
	wrong := mustDerive(t, "room124")

	envelope, err := Encrypt("secret plans", right)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	got, err := Decrypt(envelope, wrong)
	if !errors.Is(err, ErrDecrypt) {
		t.Fatalf("Decrypt error = %v, want ErrDecrypt", err)
	}
	if got != "" {
		t.Errorf("Decrypt returned %q alongside the failure", got)
	}
}

func TestDecrypt_Tampered(t *testing.T) {
	key := mustDerive(t, "tamper-room")

	envelope, err := Encrypt("do not modify", key)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	nonce, ciphertext, err := envelope.Open()
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ciphertext[len(ciphertext)-1] ^= 0x01
	tampered := keys.SealEnvelope(&nonce, ciphertext)

	if _, err := Decrypt(tampered, key); !errors.Is(err, ErrDecrypt) {
		t.Errorf("Decrypt error = %v, want ErrDecrypt", err)
	}
}

func TestDecrypt_FailuresAreIndistinguishable(t *testing.T) {
	key := mustDerive(t, "oracle-room")
	inputs := []keys.Envelope{"not base64 at all!", "", keys.Envelope(keys.EncodeKey([]byte("tiny")))}
	for _, input := range inputs {
		_, err := Decrypt(input, key)
		if err != ErrDecrypt {
			t.Errorf("Decrypt(%q) error = %v, want exactly ErrDecrypt", input, err)
		}
	}
}

func TestLegacyOpaqueIsNotARoomEnvelope(t *testing.T) {
	key := mustDerive(t, "legacy-room")

	for _, plaintext := range []string{"short", strings.Repeat("legacy payload long enough to cover a nonce ", 3)} {
		legacy := OpaqueEncode(plaintext)
		if _, err := Decrypt(keys.Envelope(legacy), key); !errors.Is(err, ErrDecrypt) {
			t.Errorf("Decrypt(legacy %q) error = %v, want ErrDecrypt", plaintext, err)
		}
		if got := OpaqueDecode(legacy); got != plaintext {
			t.Errorf("OpaqueDecode = %q, want %q", got, plaintext)
		}
	}
}

func TestOpaqueDecode_NonBase64(t *testing.T) {
	if got := OpaqueDecode("plain text from an old client"); got != "plain text from an old client" {
		t.Errorf("OpaqueDecode = %q, want input unchanged", got)
	}
}

func TestDecodeForDisplay(t *testing.T) {
	key := mustDerive(t, "display-room")
	other := mustDerive(t, "another-room")
	envelope, err := Encrypt("see you at noon", key)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	tests := []struct {
		name    string
		content string
		key     *keys.SymmetricKey
		want    string
	}{
		{"no key shows legacy plaintext", "hello from 2023", nil, "hello from 2023"},
		{"matching key decrypts", string(envelope), &key, "see you at noon"},
		{"wrong key shows placeholder", string(envelope), &other, UndecryptablePlaceholder},
		{"plaintext under key shows placeholder", "not an envelope", &key, UndecryptablePlaceholder},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := DecodeForDisplay(test.content, test.key); got != test.want {
				t.Errorf("DecodeForDisplay = %q, want %q", got, test.want)
			}
		})
	}
}
