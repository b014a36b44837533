// Copyright 2026 The TalkaNova Authors
// SPDX-License-Identifier: Apache-2.0

package roomcipher

import "encoding/base64"

// OpaqueEncode base64-encodes plaintext. It provides NO confidentiality.
//
// Deprecated: kept only so legacy payloads can be produced in tests and
// migrations. Use Encrypt for anything new.
func OpaqueEncode(plaintext string) string {
	return base64.StdEncoding.EncodeToString([]byte(plaintext))
}

// OpaqueDecode reverses OpaqueEncode for legacy unencrypted payloads.
// Input that is not base64 is returned unchanged, since older clients
// also sent raw text.
//
// Deprecated: legacy decoding only. The output was never confidential.
func OpaqueDecode(encoded string) string {
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return encoded
	}
	return string(decoded)
}
