// Copyright 2026 The TalkaNova Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/url"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/talkanova/talkanova/cmd/talkanova/cli"
	"github.com/talkanova/talkanova/lib/keys"
	"github.com/talkanova/talkanova/lib/roomcipher"
	"github.com/talkanova/talkanova/roomchat"
)

func (a *app) roomCommand() *cli.Command {
	return &cli.Command{
		Name:    "room",
		Summary: "room message encryption and chat",
		Subcommands: []*cli.Command{
			a.roomEncryptCommand(),
			a.roomDecryptCommand(),
			a.roomChatCommand(),
		},
	}
}

func roomCodeFlags(name string, code *string) *pflag.FlagSet {
	flagSet := pflag.NewFlagSet(name, pflag.ContinueOnError)
	flagSet.StringVar(code, "code", "", "room code the key is derived from")
	return flagSet
}

func deriveKey(code string) (keys.SymmetricKey, error) {
	if code == "" {
		return keys.SymmetricKey{}, cli.UsageErrorf("--code is required")
	}
	return roomcipher.DeriveRoomKey(code)
}

func (a *app) roomEncryptCommand() *cli.Command {
	var code string
	return &cli.Command{
		Name:    "encrypt",
		Summary: "encrypt a message under a room code",
		Usage:   "talkanova room encrypt --code CODE TEXT",
		Flags:   func() *pflag.FlagSet { return roomCodeFlags("encrypt", &code) },
		Run: func(args []string) error {
			if err := cli.RequireArgs(args, 1, "talkanova room encrypt --code CODE TEXT"); err != nil {
				return err
			}
			key, err := deriveKey(code)
			if err != nil {
				return err
			}
			envelope, err := roomcipher.Encrypt(args[0], key)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, envelope)
			return nil
		},
	}
}

func (a *app) roomDecryptCommand() *cli.Command {
	var code string
	return &cli.Command{
		Name:    "decrypt",
		Summary: "decrypt a room envelope",
		Usage:   "talkanova room decrypt --code CODE ENVELOPE",
		Flags:   func() *pflag.FlagSet { return roomCodeFlags("decrypt", &code) },
		Run: func(args []string) error {
			if err := cli.RequireArgs(args, 1, "talkanova room decrypt --code CODE ENVELOPE"); err != nil {
				return err
			}
			key, err := deriveKey(code)
			if err != nil {
				return err
			}
			plaintext, err := roomcipher.Decrypt(keys.Envelope(args[0]), key)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, plaintext)
			return nil
		},
	}
}

func (a *app) roomChatCommand() *cli.Command {
	var code, endpoint string
	return &cli.Command{
		Name:    "chat",
		Summary: "join a room and chat from the terminal",
		Usage:   "talkanova room chat [--code CODE] [--url URL] ROOM",
		Flags: func() *pflag.FlagSet {
			flagSet := a.commonFlags("chat")
			flagSet.StringVar(&code, "code", "", "room code; omit for a room without one")
			flagSet.StringVar(&endpoint, "url", "", "chat websocket URL (default: derived from relay.base_url)")
			return flagSet
		},
		Run: func(args []string) error {
			if err := cli.RequireArgs(args, 1, "talkanova room chat [--code CODE] [--url URL] ROOM"); err != nil {
				return err
			}
			cfg, err := a.identityConfig()
			if err != nil {
				return err
			}
			if endpoint == "" {
				if endpoint, err = chatURL(cfg.Relay.BaseURL); err != nil {
					return err
				}
			}
			var key *keys.SymmetricKey
			if code != "" {
				derived, err := roomcipher.DeriveRoomKey(code)
				if err != nil {
					return err
				}
				key = &derived
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			client, err := roomchat.Dial(ctx, roomchat.Config{
				URL:      endpoint,
				UserID:   cfg.Identity.UserID,
				UserName: displayName(cfg),
				RoomID:   args[0],
				Key:      key,
				Logger:   a.log(cfg),
			})
			if err != nil {
				return err
			}
			defer client.Close()
			return a.roomLoop(ctx, client, a.stdin)
		},
	}
}

// chatURL turns "http://host:port/api/v1" into
// "ws://host:port/ws/general".
func chatURL(baseURL string) (string, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("relay.base_url: %w", err)
	}
	switch parsed.Scheme {
	case "https":
		parsed.Scheme = "wss"
	default:
		parsed.Scheme = "ws"
	}
	parsed.Path = "/ws/general"
	return parsed.String(), nil
}

// roomLoop prints frames and sends each input line until either side
// ends.
func (a *app) roomLoop(ctx context.Context, client *roomchat.Client, input io.Reader) error {
	lines := scanLines(input)
	for {
		select {
		case <-ctx.Done():
			return nil
		case frame, ok := <-client.Frames():
			if !ok {
				return client.Err()
			}
			a.printFrame(frame)
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			if err := client.Send(line); err != nil {
				return err
			}
		}
	}
}

func (a *app) printFrame(frame roomchat.Frame) {
	switch frame := frame.(type) {
	case roomchat.Message:
		name := frame.UserName
		if name == "" {
			name = frame.SenderID
		}
		if attachment, ok := roomchat.ParseAttachment(frame.Text); ok {
			fmt.Fprintf(a.stdout, "%s shared %s (%s, id %s)\n", name, attachment.Filename, attachment.ContentType, attachment.ID)
			return
		}
		fmt.Fprintf(a.stdout, "%s: %s\n", name, frame.Text)
	case roomchat.PresenceJoin:
		fmt.Fprintf(a.stdout, "* %s joined\n", frame.UserID)
	case roomchat.PresenceLeave:
		fmt.Fprintf(a.stdout, "* %s left\n", frame.UserID)
	case roomchat.RoomUsers:
		ids := make([]string, len(frame.Users))
		for i, user := range frame.Users {
			ids[i] = user.UserID
		}
		fmt.Fprintf(a.stdout, "* online: %s\n", strings.Join(ids, ", "))
	case roomchat.Typing:
	}
}

// scanLines delivers input lines until EOF, then closes the channel.
func scanLines(input io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(input)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	return lines
}
