// Copyright 2026 The TalkaNova Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/pflag"

	"github.com/talkanova/talkanova/cmd/talkanova/cli"
	"github.com/talkanova/talkanova/lib/keys"
	"github.com/talkanova/talkanova/lib/registration"
)

func (a *app) keygenCommand() *cli.Command {
	var force bool
	return &cli.Command{
		Name:    "keygen",
		Summary: "create the local identity and key bundle",
		Flags: func() *pflag.FlagSet {
			flagSet := a.commonFlags("keygen")
			flagSet.BoolVar(&force, "force", false, "replace an existing identity")
			return flagSet
		},
		Run: func(args []string) error {
			if err := cli.RequireArgs(args, 0, "talkanova keygen [--force]"); err != nil {
				return err
			}
			cfg, err := a.config()
			if err != nil {
				return err
			}
			store := a.keyStore(cfg)
			if _, err := store.LoadPublic(); err == nil && !force {
				return fmt.Errorf("an identity already exists in %s (use --force to replace it)", store.Dir)
			} else if err != nil && !errors.Is(err, registration.ErrNoIdentity) {
				return err
			}

			passphrase, err := a.prompter.Passphrase("New key store passphrase", true)
			if err != nil {
				return err
			}
			bundle, err := registration.Generate()
			if err != nil {
				return err
			}
			defer bundle.Wipe()
			if err := store.Save(bundle, passphrase); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "identity created in %s\nfingerprint %s\n",
				store.Dir, keys.Fingerprint(bundle.Identity.PublicKey))
			return nil
		},
	}
}

func (a *app) fingerprintCommand() *cli.Command {
	return &cli.Command{
		Name:    "fingerprint",
		Summary: "print the identity key fingerprint",
		Flags:   func() *pflag.FlagSet { return a.commonFlags("fingerprint") },
		Run: func(args []string) error {
			if err := cli.RequireArgs(args, 0, "talkanova fingerprint"); err != nil {
				return err
			}
			cfg, err := a.config()
			if err != nil {
				return err
			}
			public, err := a.keyStore(cfg).LoadPublic()
			if err != nil {
				return err
			}
			identity, err := keys.ParseSigningPublicKey(public.IdentityKey)
			if err != nil {
				return fmt.Errorf("stored identity key: %w", err)
			}
			fmt.Fprintln(a.stdout, keys.Fingerprint(identity))
			return nil
		},
	}
}

func (a *app) publishCommand() *cli.Command {
	return &cli.Command{
		Name:    "publish",
		Summary: "upload the public key bundle to the relay",
		Flags:   func() *pflag.FlagSet { return a.commonFlags("publish") },
		Run: func(args []string) error {
			if err := cli.RequireArgs(args, 0, "talkanova publish"); err != nil {
				return err
			}
			cfg, err := a.identityConfig()
			if err != nil {
				return err
			}
			public, err := a.keyStore(cfg).LoadPublic()
			if err != nil {
				return err
			}
			if err := a.relayClient(cfg).PublishBundle(context.Background(), public); err != nil {
				return fmt.Errorf("publishing key bundle: %w", err)
			}
			fmt.Fprintf(a.stdout, "published bundle for %s with %d one-time pre-keys\n",
				cfg.Identity.UserID, len(public.OneTimePreKeys))
			return nil
		},
	}
}
