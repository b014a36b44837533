// Copyright 2026 The TalkaNova Authors
// SPDX-License-Identifier: Apache-2.0

// Package process holds binary entrypoint helpers for errors that occur
// before or after the structured logger exists.
package process
