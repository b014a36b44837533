// Copyright 2026 The TalkaNova Authors
// SPDX-License-Identifier: Apache-2.0

// Package media adds audio and video calls to an established peer
// session.
//
// A [Call] opens local captures through a [Capturer], attaches their
// tracks to the session, and renegotiates only when the session is
// already connected; otherwise the tracks ride along with the initial
// negotiation. Ending a call stops the captures but leaves the chat
// channel and the session alone. Muting and disabling video gate the
// sample stream locally, with no signaling round-trip.
//
// [FileCapturer] stands in for capture devices by streaming an Ogg
// Opus file and an IVF video file into sample tracks.
package media
