// Copyright 2026 The TalkaNova Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports build information for --version.
//
// Values are injected with -ldflags, for example:
//
//	go build -ldflags "-X github.com/talkanova/talkanova/lib/version.GitCommit=$(git rev-parse --short HEAD)" ./cmd/...
//
// When nothing is injected, [Info] falls back to the module build info
// recorded by the Go toolchain.
package version
