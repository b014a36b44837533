// Copyright 2026 The TalkaNova Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/talkanova/talkanova/cmd/talkanova/cli"
	"github.com/talkanova/talkanova/lib/clock"
	"github.com/talkanova/talkanova/lib/config"
	"github.com/talkanova/talkanova/lib/keys"
	"github.com/talkanova/talkanova/lib/process"
	"github.com/talkanova/talkanova/lib/registration"
	"github.com/talkanova/talkanova/lib/roomcipher"
	"github.com/talkanova/talkanova/lib/sealed"
	"github.com/talkanova/talkanova/relay"
	"github.com/talkanova/talkanova/roomchat"
	"github.com/talkanova/talkanova/signaling"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

type testApp struct {
	*app
	out *bytes.Buffer
	err *bytes.Buffer
}

// newTestApp writes a config for user pointing at relayURL with keys
// under its own directory.
func newTestApp(t *testing.T, user, relayURL string) testApp {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "talkanova.yaml")
	content := fmt.Sprintf("relay:\n  base_url: %s/api/v1\nidentity:\n  user_id: %s\n  key_dir: %s\nlog:\n  level: error\n",
		relayURL, user, filepath.Join(dir, "keys"))
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(config.EnvironmentVariable, path)
	t.Setenv(cli.PassphraseVariable, "correct horse")

	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	return testApp{
		app: &app{
			stdin:    strings.NewReader(""),
			stdout:   out,
			stderr:   errOut,
			prompter: &cli.Prompter{In: strings.NewReader(""), Out: errOut},
			logger:   discardLogger(),
			sealer:   sealed.Sealer{WorkFactor: 10},
		},
		out: out,
		err: errOut,
	}
}

// exec runs one command line and returns its stdout.
func (a testApp) exec(t *testing.T, args ...string) (string, error) {
	t.Helper()
	a.out.Reset()
	err := a.root().Execute(args)
	return a.out.String(), err
}

func (a testApp) mustExec(t *testing.T, args ...string) string {
	t.Helper()
	out, err := a.exec(t, args...)
	if err != nil {
		t.Fatalf("talkanova %s: %v", strings.Join(args, " "), err)
	}
	return out
}

func startRelay(t *testing.T) string {
	t.Helper()
	service := relay.NewService(relay.Config{
		Store:  relay.NewMemoryStore(clock.Real()),
		Logger: discardLogger(),
	})
	server := httptest.NewServer(service.Handler())
	t.Cleanup(server.Close)
	return server.URL
}

func TestKeygenAndFingerprint(t *testing.T) {
	alice := newTestApp(t, "alice", "http://127.0.0.1:1")

	out := alice.mustExec(t, "keygen")
	if !strings.Contains(out, "identity created") {
		t.Errorf("keygen output = %q", out)
	}
	fingerprint := strings.TrimSpace(alice.mustExec(t, "fingerprint"))
	if len(fingerprint) != 20 || !strings.Contains(out, fingerprint) {
		t.Errorf("fingerprint %q does not match keygen output %q", fingerprint, out)
	}

	if _, err := alice.exec(t, "keygen"); err == nil {
		t.Error("keygen replaced an identity without --force")
	}
	alice.mustExec(t, "keygen", "--force")
	if again := strings.TrimSpace(alice.mustExec(t, "fingerprint")); again == fingerprint {
		t.Error("keygen --force kept the old identity")
	}
}

func TestFingerprint_NoIdentity(t *testing.T) {
	alice := newTestApp(t, "alice", "http://127.0.0.1:1")
	if _, err := alice.exec(t, "fingerprint"); err == nil {
		t.Error("fingerprint succeeded without an identity")
	}
}

func TestRoomEncryptDecrypt(t *testing.T) {
	app := newTestApp(t, "alice", "http://127.0.0.1:1")

	envelope := strings.TrimSpace(app.mustExec(t, "room", "encrypt", "--code", "lobby", "meet at noon"))
	if envelope == "" || strings.Contains(envelope, "noon") {
		t.Fatalf("envelope = %q", envelope)
	}
	if plaintext := strings.TrimSpace(app.mustExec(t, "room", "decrypt", "--code", "lobby", envelope)); plaintext != "meet at noon" {
		t.Errorf("decrypt = %q", plaintext)
	}
	if _, err := app.exec(t, "room", "decrypt", "--code", "other", envelope); !errors.Is(err, roomcipher.ErrDecrypt) {
		t.Errorf("wrong code: err = %v, want ErrDecrypt", err)
	}
	_, err := app.exec(t, "room", "encrypt", "text")
	var usage *cli.UsageError
	if !errors.As(err, &usage) {
		t.Errorf("missing --code: err = %v, want UsageError", err)
	}
}

func TestSessionRequestFlow(t *testing.T) {
	relayURL := startRelay(t)
	alice := newTestApp(t, "alice", relayURL)

	out := alice.mustExec(t, "p2p", "request", "bob")
	fields := strings.Fields(out)
	if len(fields) < 2 || fields[0] != "session" {
		t.Fatalf("request output = %q", out)
	}
	sessionID := fields[1]

	pending := alice.mustExec(t, "p2p", "pending", "--user", "bob")
	if !strings.Contains(pending, sessionID) || !strings.Contains(pending, "alice") {
		t.Errorf("pending = %q, want session %s from alice", pending, sessionID)
	}
	if none := alice.mustExec(t, "p2p", "pending"); !strings.Contains(none, "no pending requests") {
		t.Errorf("alice's own pending = %q", none)
	}

	if _, err := alice.exec(t, "p2p", "accept", sessionID); !errors.Is(err, signaling.ErrForbidden) {
		t.Errorf("initiator accepting: err = %v, want ErrForbidden", err)
	}
	accepted := alice.mustExec(t, "p2p", "accept", "--user", "bob", "--address", "192.0.2.7", sessionID)
	if !strings.Contains(accepted, "accepted session "+sessionID) {
		t.Errorf("accept output = %q", accepted)
	}

	status, err := signaling.NewHTTPClient(relayURL+"/api/v1", "alice", nil).Status(context.Background(), sessionID)
	if err != nil {
		t.Fatal(err)
	}
	if status.Status != signaling.StatusConnecting || status.PeerAddress != "192.0.2.7" {
		t.Errorf("session = %s with peer %q, want connecting with 192.0.2.7", status.Status, status.PeerAddress)
	}
}

func TestPublish(t *testing.T) {
	relayURL := startRelay(t)
	bob := newTestApp(t, "bob", relayURL)
	bob.mustExec(t, "keygen")

	out := bob.mustExec(t, "publish")
	if !strings.Contains(out, "5 one-time pre-keys") {
		t.Errorf("publish output = %q", out)
	}
	peer, err := signaling.NewHTTPClient(relayURL+"/api/v1", "alice", nil).FetchBundle(context.Background(), "bob")
	if err != nil {
		t.Fatalf("FetchBundle: %v", err)
	}
	if _, err := peer.Verify(); err != nil {
		t.Errorf("published bundle does not verify: %v", err)
	}
}

func TestIdentityRequired(t *testing.T) {
	app := newTestApp(t, "", "http://127.0.0.1:1")
	_, err := app.exec(t, "p2p", "pending")
	var usage *cli.UsageError
	if !errors.As(err, &usage) {
		t.Errorf("err = %v, want UsageError", err)
	}
}

func TestUnknownCommandExitCode(t *testing.T) {
	app := newTestApp(t, "alice", "http://127.0.0.1:1")
	_, err := app.exec(t, "p2p", "chta", "s1")
	if code := process.Report(io.Discard, err); code != 2 {
		t.Errorf("exit code = %d, want 2 (err %v)", code, err)
	}
	if !strings.Contains(err.Error(), `did you mean "chat"`) {
		t.Errorf("err = %v", err)
	}
	if _, err := app.exec(t, "p2p", "chat", "--call", "screen", "s1"); err == nil {
		t.Error("p2p chat accepted an unknown call mode")
	}
}

func TestChatURL(t *testing.T) {
	for _, tc := range []struct{ base, want string }{
		{"http://127.0.0.1:8000/api/v1", "ws://127.0.0.1:8000/ws/general"},
		{"https://chat.example.org/api/v1", "wss://chat.example.org/ws/general"},
	} {
		got, err := chatURL(tc.base)
		if err != nil || got != tc.want {
			t.Errorf("chatURL(%q) = %q, %v; want %q", tc.base, got, err, tc.want)
		}
	}
}

func TestPrintFrame(t *testing.T) {
	app := newTestApp(t, "alice", "http://127.0.0.1:1")
	frames := []roomchat.Frame{
		roomchat.RoomUsers{Users: []roomchat.User{{UserID: "u1"}, {UserID: "u2"}}},
		roomchat.PresenceJoin{User: roomchat.User{UserID: "u3"}},
		roomchat.Message{SenderID: "u1", UserName: "Ada", Text: "hello"},
		roomchat.Message{SenderID: "u2", Text: "[FILE]:f1:plan.pdf:application/pdf"},
		roomchat.Message{SenderID: "u2", Text: roomcipher.UndecryptablePlaceholder},
		roomchat.PresenceLeave{User: roomchat.User{UserID: "u3"}},
		roomchat.Typing{User: roomchat.User{UserID: "u1"}},
	}
	for _, frame := range frames {
		app.printFrame(frame)
	}
	want := strings.Join([]string{
		"* online: u1, u2",
		"* u3 joined",
		"Ada: hello",
		"u2 shared plan.pdf (application/pdf, id f1)",
		"u2: [unable to decrypt]",
		"* u3 left",
		"",
	}, "\n")
	if app.out.String() != want {
		t.Errorf("output:\n%s\nwant:\n%s", app.out.String(), want)
	}
}

func TestConnectPeerKeepsOneTimePreKeys(t *testing.T) {
	ctx := context.Background()
	relayDouble := signaling.NewMemoryRelay(clock.Real(), 0)
	alice, err := registration.Generate()
	if err != nil {
		t.Fatal(err)
	}
	bob, err := registration.Generate()
	if err != nil {
		t.Fatal(err)
	}
	if err := relayDouble.Client("bob").PublishBundle(ctx, bob.Public()); err != nil {
		t.Fatal(err)
	}
	session, err := relayDouble.Client("alice").Request(ctx, "bob", "Alice")
	if err != nil {
		t.Fatal(err)
	}

	app := newTestApp(t, "alice", "http://127.0.0.1:1")
	for range 3 {
		coordinator, cipher, err := app.connectPeer(ctx, config.Default(), relayDouble.Client("alice"), session.ID, alice, discardLogger())
		if err != nil {
			t.Fatalf("connectPeer: %v", err)
		}
		if cipher == nil {
			t.Fatal("connectPeer returned no cipher session")
		}
		coordinator.Close(ctx)
	}
	if !strings.Contains(app.out.String(), "fingerprint "+keys.Fingerprint(bob.Identity.PublicKey)) {
		t.Errorf("output = %q, want bob's fingerprint", app.out.String())
	}

	// Every one-time pre-key is still available to other initiators.
	for i := range registration.OneTimePreKeyCount {
		issued, err := relayDouble.Client("carol").FetchBundle(ctx, "bob")
		if err != nil || issued.OneTimePreKey == "" {
			t.Fatalf("fetch %d after chats = %q, %v; want a one-time pre-key", i, issued.OneTimePreKey, err)
		}
	}
}
