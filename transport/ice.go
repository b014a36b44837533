// Copyright 2026 The TalkaNova Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"strings"

	"github.com/pion/interceptor"
	"github.com/pion/webrtc/v4"
)

// DefaultSTUNServers are used when no ICE servers are configured.
var DefaultSTUNServers = []string{
	"stun:stun.l.google.com:19302",
	"stun:stun1.l.google.com:19302",
}

// ICEConfig holds the ICE settings for new PeerConnections.
type ICEConfig struct {
	// Servers is the list of STUN and TURN servers. Empty means host
	// candidates only, which is enough on one machine or LAN.
	Servers []webrtc.ICEServer

	// IncludeLoopback gathers 127.0.0.1 candidates. Tests and
	// same-host runs need it; pion skips loopback by default.
	IncludeLoopback bool
}

// ICEConfigFromURLs builds an ICEConfig from server URLs. Entries of
// the form "turn:user:credential@host:port" carry TURN credentials.
func ICEConfigFromURLs(urls []string, includeLoopback bool) ICEConfig {
	config := ICEConfig{IncludeLoopback: includeLoopback}
	var stun []string
	for _, raw := range urls {
		if raw = strings.TrimSpace(raw); raw == "" {
			continue
		}
		scheme, rest, _ := strings.Cut(raw, ":")
		userinfo, host, hasCredentials := strings.Cut(rest, "@")
		if (scheme == "turn" || scheme == "turns") && hasCredentials {
			username, credential, _ := strings.Cut(userinfo, ":")
			config.Servers = append(config.Servers, webrtc.ICEServer{
				URLs:       []string{scheme + ":" + host},
				Username:   username,
				Credential: credential,
			})
			continue
		}
		stun = append(stun, raw)
	}
	if len(stun) > 0 {
		config.Servers = append([]webrtc.ICEServer{{URLs: stun}}, config.Servers...)
	}
	return config
}

// newPeerConnection builds a PeerConnection able to carry both the
// chat data channel and audio/video tracks.
func newPeerConnection(config ICEConfig) (*webrtc.PeerConnection, error) {
	mediaEngine := &webrtc.MediaEngine{}
	if err := mediaEngine.RegisterDefaultCodecs(); err != nil {
		return nil, err
	}
	registry := &interceptor.Registry{}
	if err := webrtc.RegisterDefaultInterceptors(mediaEngine, registry); err != nil {
		return nil, err
	}

	// Detached data channels give a stream ReadWriteCloser instead of
	// message callbacks.
	settingEngine := webrtc.SettingEngine{}
	settingEngine.DetachDataChannels()
	settingEngine.SetIncludeLoopbackCandidate(config.IncludeLoopback)

	api := webrtc.NewAPI(
		webrtc.WithMediaEngine(mediaEngine),
		webrtc.WithInterceptorRegistry(registry),
		webrtc.WithSettingEngine(settingEngine),
	)
	return api.NewPeerConnection(webrtc.Configuration{ICEServers: config.Servers})
}
