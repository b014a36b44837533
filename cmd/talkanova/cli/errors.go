// Copyright 2026 The TalkaNova Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import "fmt"

// UsageError is a mistake on the command line. It exits with status 2.
type UsageError struct {
	message string
}

// UsageErrorf formats a UsageError.
func UsageErrorf(format string, args ...any) *UsageError {
	return &UsageError{message: fmt.Sprintf(format, args...)}
}

func (e *UsageError) Error() string { return e.message }

// ExitCode implements process.ExitCoder.
func (e *UsageError) ExitCode() int { return 2 }

// RequireArgs checks the positional argument count.
func RequireArgs(args []string, want int, usage string) error {
	if len(args) != want {
		return UsageErrorf("usage: %s", usage)
	}
	return nil
}
