// Copyright 2026 The TalkaNova Authors
// SPDX-License-Identifier: Apache-2.0

// talkanova is the chat client.
//
// Identity:
//
//	talkanova keygen          create the local key bundle
//	talkanova fingerprint     show the identity fingerprint
//	talkanova publish         upload the public bundle to the relay
//
// Rooms (server-relayed, end-to-end encrypted under the room code):
//
//	talkanova room encrypt --code CODE TEXT
//	talkanova room decrypt --code CODE ENVELOPE
//	talkanova room chat --code CODE ROOM
//
// Peer sessions (direct WebRTC, relay used only for signaling):
//
//	talkanova p2p request USER
//	talkanova p2p pending
//	talkanova p2p accept SESSION
//	talkanova p2p chat SESSION [--call audio|video]
//
// Configuration comes from --config or TALKANOVA_CONFIG. The key store
// passphrase is prompted for, or taken from TALKANOVA_PASSPHRASE.
package main
