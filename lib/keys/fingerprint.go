// Copyright 2026 The TalkaNova Authors
// SPDX-License-Identifier: Apache-2.0

package keys

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// fingerprintSize is the number of BLAKE3 output bytes shown to users.
const fingerprintSize = 10

// Fingerprint returns a short hex digest of a public key for display
// and out-of-band comparison. It is not a substitute for signature
// verification.
func Fingerprint(public []byte) string {
	sum := blake3.Sum256(public)
	return hex.EncodeToString(sum[:fingerprintSize])
}
