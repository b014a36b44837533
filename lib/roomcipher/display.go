// Copyright 2026 The TalkaNova Authors
// SPDX-License-Identifier: Apache-2.0

package roomcipher

import "github.com/talkanova/talkanova/lib/keys"

// UndecryptablePlaceholder is shown in place of a message that fails
// to decrypt.
const UndecryptablePlaceholder = "[unable to decrypt]"

// DecodeForDisplay turns message content into display text. With no
// room key the content is legacy plaintext and is shown as is. With a
// key, anything that does not decrypt renders as the placeholder, so
// ciphertext bytes never reach the screen.
func DecodeForDisplay(content string, key *keys.SymmetricKey) string {
	if key == nil {
		return content
	}
	plaintext, err := Decrypt(keys.Envelope(content), *key)
	if err != nil {
		return UndecryptablePlaceholder
	}
	return plaintext
}
