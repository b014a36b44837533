// Copyright 2026 The TalkaNova Authors
// SPDX-License-Identifier: Apache-2.0

package signaling

import "github.com/talkanova/talkanova/lib/registration"

// IssueBundle hands out stored as a PeerBundle carrying its first
// remaining one-time pre-key, and removes that key from stored so it
// is never issued twice.
func IssueBundle(userID string, stored *registration.PublicBundle) registration.PeerBundle {
	issued := IdentityBundle(userID, *stored)
	if len(stored.OneTimePreKeys) > 0 {
		issued.OneTimePreKey = stored.OneTimePreKeys[0]
		stored.OneTimePreKeys = stored.OneTimePreKeys[1:]
	}
	return issued
}

// IdentityBundle is stored without any one-time pre-key. Reading it
// leaves the peer's supply untouched.
func IdentityBundle(userID string, stored registration.PublicBundle) registration.PeerBundle {
	return registration.PeerBundle{
		UserID:          userID,
		IdentityKey:     stored.IdentityKey,
		SignedPreKey:    stored.SignedPreKey,
		PreKeySignature: stored.PreKeySignature,
	}
}
