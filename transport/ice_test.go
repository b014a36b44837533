// Copyright 2026 The TalkaNova Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import "testing"

func TestICEConfigFromURLs_Empty(t *testing.T) {
	config := ICEConfigFromURLs(nil, true)
	if len(config.Servers) != 0 {
		t.Errorf("servers = %v, want none", config.Servers)
	}
	if !config.IncludeLoopback {
		t.Error("IncludeLoopback not carried")
	}
}

func TestICEConfigFromURLs_STUNGrouped(t *testing.T) {
	config := ICEConfigFromURLs(DefaultSTUNServers, false)
	if len(config.Servers) != 1 {
		t.Fatalf("servers = %d, want one STUN entry", len(config.Servers))
	}
	if len(config.Servers[0].URLs) != 2 || config.Servers[0].URLs[0] != "stun:stun.l.google.com:19302" {
		t.Errorf("URLs = %v", config.Servers[0].URLs)
	}
}

func TestICEConfigFromURLs_TURNCredentials(t *testing.T) {
	config := ICEConfigFromURLs([]string{
		"stun:stun.example.org:3478",
		"turn:alice:s3cret@turn.example.org:3478?transport=udp",
		"  ",
	}, false)
	if len(config.Servers) != 2 {
		t.Fatalf("servers = %d, want 2", len(config.Servers))
	}
	turn := config.Servers[1]
	if turn.URLs[0] != "turn:turn.example.org:3478?transport=udp" {
		t.Errorf("TURN URL = %q", turn.URLs[0])
	}
	if turn.Username != "alice" || turn.Credential != "s3cret" {
		t.Errorf("credentials = %q / %v", turn.Username, turn.Credential)
	}
}

func TestNewPeerConnection(t *testing.T) {
	pc, err := newPeerConnection(ICEConfig{IncludeLoopback: true})
	if err != nil {
		t.Fatalf("newPeerConnection: %v", err)
	}
	defer pc.Close()
	if _, err := pc.CreateDataChannel("gather", nil); err != nil {
		t.Fatalf("CreateDataChannel: %v", err)
	}
	if _, err := pc.CreateOffer(nil); err != nil {
		t.Fatalf("CreateOffer: %v", err)
	}
}
