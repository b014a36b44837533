// Copyright 2026 The TalkaNova Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/talkanova/talkanova/cmd/talkanova/cli"
	"github.com/talkanova/talkanova/media"
)

func (a *app) p2pCommand() *cli.Command {
	return &cli.Command{
		Name:    "p2p",
		Summary: "direct peer sessions",
		Subcommands: []*cli.Command{
			a.p2pRequestCommand(),
			a.p2pPendingCommand(),
			a.p2pAcceptCommand(),
			a.p2pChatCommand(),
		},
	}
}

func (a *app) p2pRequestCommand() *cli.Command {
	return &cli.Command{
		Name:    "request",
		Summary: "ask a user for a peer session",
		Usage:   "talkanova p2p request USER",
		Flags:   func() *pflag.FlagSet { return a.commonFlags("request") },
		Run: func(args []string) error {
			if err := cli.RequireArgs(args, 1, "talkanova p2p request USER"); err != nil {
				return err
			}
			cfg, err := a.identityConfig()
			if err != nil {
				return err
			}
			session, err := a.relayClient(cfg).Request(context.Background(), args[0], displayName(cfg))
			if err != nil {
				return fmt.Errorf("requesting session with %s: %w", args[0], err)
			}
			fmt.Fprintf(a.stdout, "session %s requested; waiting for %s to accept\n", session.ID, args[0])
			return nil
		},
	}
}

func (a *app) p2pPendingCommand() *cli.Command {
	return &cli.Command{
		Name:    "pending",
		Summary: "list session requests waiting for you",
		Flags:   func() *pflag.FlagSet { return a.commonFlags("pending") },
		Run: func(args []string) error {
			if err := cli.RequireArgs(args, 0, "talkanova p2p pending"); err != nil {
				return err
			}
			cfg, err := a.identityConfig()
			if err != nil {
				return err
			}
			sessions, err := a.relayClient(cfg).Pending(context.Background())
			if err != nil {
				return fmt.Errorf("listing pending sessions: %w", err)
			}
			if len(sessions) == 0 {
				fmt.Fprintln(a.stdout, "no pending requests")
				return nil
			}
			table := tabwriter.NewWriter(a.stdout, 2, 0, 2, ' ', 0)
			fmt.Fprintln(table, "SESSION\tFROM\tNAME\tREQUESTED")
			for _, session := range sessions {
				fmt.Fprintf(table, "%s\t%s\t%s\t%s\n",
					session.ID, session.InitiatorID, session.InitiatorName,
					session.CreatedAt.Local().Format(time.DateTime))
			}
			return table.Flush()
		},
	}
}

func (a *app) p2pAcceptCommand() *cli.Command {
	var address string
	return &cli.Command{
		Name:    "accept",
		Summary: "accept a session request",
		Usage:   "talkanova p2p accept [--address ADDR] SESSION",
		Flags: func() *pflag.FlagSet {
			flagSet := a.commonFlags("accept")
			flagSet.StringVar(&address, "address", "", "address to share with the peer")
			return flagSet
		},
		Run: func(args []string) error {
			if err := cli.RequireArgs(args, 1, "talkanova p2p accept [--address ADDR] SESSION"); err != nil {
				return err
			}
			cfg, err := a.identityConfig()
			if err != nil {
				return err
			}
			session, err := a.relayClient(cfg).Accept(context.Background(), args[0], address)
			if err != nil {
				return fmt.Errorf("accepting session %s: %w", args[0], err)
			}
			fmt.Fprintf(a.stdout, "accepted session %s from %s; run 'talkanova p2p chat %s'\n",
				session.ID, session.InitiatorID, session.ID)
			return nil
		},
	}
}

func (a *app) p2pChatCommand() *cli.Command {
	var options chatOptions
	return &cli.Command{
		Name:    "chat",
		Summary: "connect to a peer and chat, optionally with a call",
		Usage:   "talkanova p2p chat [--call audio|video] SESSION",
		Flags: func() *pflag.FlagSet {
			flagSet := a.commonFlags("chat")
			flagSet.StringVar(&options.call, "call", "", "start a call: audio or video")
			flagSet.StringVar(&options.audioFile, "audio-file", "", "Ogg Opus file to send as the microphone")
			flagSet.StringVar(&options.videoFile, "video-file", "", "IVF file to send as the camera")
			return flagSet
		},
		Run: func(args []string) error {
			if err := cli.RequireArgs(args, 1, "talkanova p2p chat [--call audio|video] SESSION"); err != nil {
				return err
			}
			if options.call != "" {
				if _, err := media.ParseMode(options.call); err != nil {
					return cli.UsageErrorf("%v", err)
				}
			}
			return a.p2pChat(args[0], options)
		},
	}
}
