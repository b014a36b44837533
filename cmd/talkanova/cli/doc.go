// Copyright 2026 The TalkaNova Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the small command-tree framework behind the talkanova
// client: pflag parsing per command, subcommand dispatch with typo
// suggestions, generated help, a terminal-aware logger, and a
// no-echo passphrase prompt.
package cli
