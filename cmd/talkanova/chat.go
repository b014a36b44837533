// Copyright 2026 The TalkaNova Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/talkanova/talkanova/directchat"
	"github.com/talkanova/talkanova/lib/config"
	"github.com/talkanova/talkanova/lib/directcipher"
	"github.com/talkanova/talkanova/lib/keys"
	"github.com/talkanova/talkanova/lib/registration"
	"github.com/talkanova/talkanova/media"
	"github.com/talkanova/talkanova/signaling"
	"github.com/talkanova/talkanova/transport"
)

// hangUpTimeout bounds the relay close on the way out.
const hangUpTimeout = 5 * time.Second

type chatOptions struct {
	call      string
	audioFile string
	videoFile string
}

func (a *app) p2pChat(sessionID string, options chatOptions) error {
	cfg, err := a.identityConfig()
	if err != nil {
		return err
	}
	logger := a.log(cfg).With("session", sessionID)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bundle, err := a.loadBundle(cfg)
	if err != nil {
		return err
	}
	defer bundle.Wipe()

	relayClient := a.relayClient(cfg)
	coordinator, cipher, err := a.connectPeer(ctx, cfg, relayClient, sessionID, bundle, logger)
	if err != nil {
		return err
	}
	defer cipher.Close()
	go coordinator.Run(ctx)

	session := &chatSession{out: a.stdout, logger: logger, sender: displayName(cfg), cipher: cipher}
	if options.call != "" {
		session.call = media.NewCall(coordinator, &media.FileCapturer{
			AudioPath: options.audioFile,
			VideoPath: options.videoFile,
			Loop:      true,
			Logger:    logger,
		}, logger)
		if err := session.call.StartCall(ctx, media.Mode(options.call)); err != nil {
			coordinator.Close(context.Background())
			return err
		}
	}

	err = session.run(ctx, coordinator, scanLines(a.stdin))
	hangUp, cancel := context.WithTimeout(context.Background(), hangUpTimeout)
	defer cancel()
	if closeErr := coordinator.Close(hangUp); closeErr != nil && !errors.Is(closeErr, transport.ErrClosed) {
		logger.Warn("closing session", "error", closeErr)
	}
	return err
}

// connectPeer verifies the peer's published bundle and builds the
// coordinator that authenticates against it, plus the cipher session
// for chat messages.
func (a *app) connectPeer(ctx context.Context, cfg *config.Config, client signaling.Client, sessionID string, bundle *registration.Bundle, logger *slog.Logger) (*transport.Coordinator, *directcipher.Session, error) {
	session, err := client.Status(ctx, sessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("reading session %s: %w", sessionID, err)
	}
	if !session.Participant(client.UserID()) {
		return nil, nil, fmt.Errorf("session %s does not include %s", sessionID, client.UserID())
	}
	peerID := session.Peer(client.UserID())
	// Direct chat keys off signed pre-keys only, so no one-time
	// pre-key is taken from the peer's supply.
	peerBundle, err := client.FetchIdentity(ctx, peerID)
	if err != nil {
		return nil, nil, fmt.Errorf("fetching identity of %s: %w", peerID, err)
	}
	peer, err := peerBundle.Verify()
	if err != nil {
		return nil, nil, fmt.Errorf("key bundle of %s: %w", peerID, err)
	}
	fmt.Fprintf(a.stdout, "peer %s, fingerprint %s\n", peerID, keys.Fingerprint(peer.IdentityKey))

	interval, _ := cfg.PollInterval()
	coordinator, err := transport.New(transport.Config{
		Client:        client,
		SessionID:     sessionID,
		ICE:           transport.ICEConfigFromURLs(cfg.Peer.ICEServers, cfg.Peer.IncludeLoopback),
		PollInterval:  interval,
		Authenticator: transport.IdentityAuthenticator{Local: bundle.Identity, PeerKey: peer.IdentityKey},
		Logger:        logger,
	})
	if err != nil {
		return nil, nil, err
	}
	return coordinator, directchat.NewSession(bundle, peer), nil
}

// chatSession is the interactive side of one peer chat.
type chatSession struct {
	out    io.Writer
	logger *slog.Logger
	sender string
	cipher *directcipher.Session
	call   *media.Call

	chat *directchat.Conn
}

// peerSession is what the chat loop needs from a coordinator.
type peerSession interface {
	Events() <-chan transport.Event
	Done() <-chan struct{}
}

// run drives the chat until the user quits, input ends, or the session
// closes.
func (s *chatSession) run(ctx context.Context, peer peerSession, lines <-chan string) error {
	incoming := make(chan directchat.Message)
	fmt.Fprintln(s.out, "connecting; type /help for commands")
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-peer.Done():
			fmt.Fprintln(s.out, "session closed")
			return nil
		case event := <-peer.Events():
			s.handleEvent(ctx, event, incoming)
		case message := <-incoming:
			fmt.Fprintf(s.out, "[%s] %s: %s\n", message.Time.Local().Format(time.TimeOnly), message.Sender, message.Text)
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			quit, err := s.handleLine(ctx, line)
			if err != nil {
				fmt.Fprintf(s.out, "! %v\n", err)
			}
			if quit {
				return nil
			}
		}
	}
}

func (s *chatSession) handleEvent(ctx context.Context, event transport.Event, incoming chan<- directchat.Message) {
	switch event.Kind {
	case transport.EventPhase:
		s.logger.Debug("phase changed", "phase", event.Phase.String())
		switch event.Phase {
		case transport.PhaseConnected:
			fmt.Fprintln(s.out, "* connected")
		case transport.PhaseDisconnected:
			fmt.Fprintln(s.out, "* connection interrupted")
		case transport.PhaseFailed:
			fmt.Fprintln(s.out, "* connection failed")
		}
	case transport.EventChannelOpen:
		s.chat = directchat.NewConn(event.Conn, s.cipher, s.sender, nil)
		go s.receive(ctx, s.chat, incoming)
		fmt.Fprintln(s.out, "* chat channel open, peer verified")
	case transport.EventRemoteTrack:
		if s.call != nil {
			s.call.AddRemoteTrack(event.Track)
		}
		fmt.Fprintf(s.out, "* receiving %s from peer\n", event.Track.Kind())
	case transport.EventError:
		s.logger.Warn("session error", "error", event.Err)
	}
}

func (s *chatSession) receive(ctx context.Context, chat *directchat.Conn, incoming chan<- directchat.Message) {
	for {
		message, err := chat.Receive()
		if errors.Is(err, directcipher.ErrDecryption) || errors.Is(err, directchat.ErrMalformedMessage) {
			s.logger.Warn("dropping chat frame", "error", err)
			continue
		}
		if err != nil {
			s.logger.Debug("chat channel ended", "error", err)
			return
		}
		select {
		case incoming <- message:
		case <-ctx.Done():
			return
		}
	}
}

const chatHelp = `commands:
  /mute     toggle the microphone
  /video    toggle the camera
  /hangup   end the call, keep chatting
  /quit     leave the session`

// handleLine runs one line of input: a slash command or a message.
func (s *chatSession) handleLine(ctx context.Context, line string) (quit bool, err error) {
	line = strings.TrimSpace(line)
	switch line {
	case "":
		return false, nil
	case "/quit":
		return true, nil
	case "/help":
		fmt.Fprintln(s.out, chatHelp)
		return false, nil
	case "/mute", "/video", "/hangup":
		if s.call == nil {
			return false, errors.New("no call in progress")
		}
		if active, _ := s.call.Active(); !active {
			return false, errors.New("no call in progress")
		}
		switch line {
		case "/mute":
			if s.call.ToggleMute() {
				fmt.Fprintln(s.out, "* microphone muted")
			} else {
				fmt.Fprintln(s.out, "* microphone on")
			}
		case "/video":
			if s.call.ToggleVideo() {
				fmt.Fprintln(s.out, "* camera off")
			} else {
				fmt.Fprintln(s.out, "* camera on")
			}
		case "/hangup":
			if err := s.call.EndCall(); err != nil {
				return false, err
			}
			fmt.Fprintln(s.out, "* call ended")
		}
		return false, nil
	}
	if strings.HasPrefix(line, "/") {
		return false, fmt.Errorf("unknown command %s (try /help)", line)
	}
	if s.chat == nil {
		return false, errors.New("not connected yet")
	}
	if _, err := s.chat.Send(line); err != nil {
		return false, err
	}
	return false, nil
}
