// Copyright 2026 The TalkaNova Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"net"

	"github.com/pion/webrtc/v4"
)

// EventKind discriminates Event.
type EventKind int

const (
	// EventPhase reports a change of Phase.
	EventPhase EventKind = iota

	// EventChannelOpen delivers the opened, authenticated chat
	// channel in Conn. The receiver owns Conn.
	EventChannelOpen

	// EventRemoteTrack delivers a media track the peer added.
	EventRemoteTrack

	// EventError reports a failure the coordinator could not absorb,
	// such as a peer that failed authentication.
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventPhase:
		return "phase"
	case EventChannelOpen:
		return "channel_open"
	case EventRemoteTrack:
		return "remote_track"
	case EventError:
		return "error"
	}
	return "unknown"
}

// Event is one notification from a Coordinator. Only the fields
// belonging to Kind are set.
type Event struct {
	Kind  EventKind
	Phase Phase
	Conn  net.Conn
	Track *webrtc.TrackRemote
	Err   error
}
