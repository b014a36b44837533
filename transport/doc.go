// Copyright 2026 The TalkaNova Authors
// SPDX-License-Identifier: Apache-2.0

// Package transport negotiates one peer-to-peer WebRTC session through
// the signaling relay and delivers its chat channel.
//
// The decision logic is the pure function [NextAction]: given the
// coordinator's [Local] state and the latest relay [signaling.Session],
// it names the one thing this side should do next. Offers and answers
// are single-write per negotiation round on the relay, and only the side
// that did not author an offer may answer it, so the two peers never
// race to write the same field.
//
// [Coordinator] performs the actions against a pion PeerConnection. It
// polls the relay on a fixed interval (see [Coordinator.Run]), trickles
// local ICE candidates as pion gathers them, and applies the peer's
// candidates once a remote description is installed. Each coordinator
// owns exactly one PeerConnection and is torn down by
// [Coordinator.Close], which also marks the session closed on the relay.
//
// The chat data channel is detached and wrapped as a net.Conn
// ([DataChannelConn]). With an [Authenticator] configured, both peers
// complete a mutual Ed25519 challenge-response over the channel before
// it is handed to the caller, binding it to the identity keys in their
// registration bundles.
//
// Media tracks are added with [Coordinator.AddTrack] and announced by
// [Coordinator.Renegotiate], which publishes the next offer round.
package transport
