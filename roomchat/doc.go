// Copyright 2026 The TalkaNova Authors
// SPDX-License-Identifier: Apache-2.0

// Package roomchat is the client side of server-relayed room chat.
//
// Frames arrive as JSON over a websocket. [DecodeFrame] maps each one
// onto a closed set of variants ([Message], [PresenceJoin],
// [PresenceLeave], [RoomUsers], [Typing]) and rejects anything else,
// including known types with missing fields. Message content is an
// encrypted room envelope when the room has a code; [Client] decrypts
// it with the room key before handing messages out, substituting a
// placeholder for anything that fails authentication.
package roomchat
