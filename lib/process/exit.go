// Copyright 2026 The TalkaNova Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"fmt"
	"io"
	"os"
)

// ExitCoder is an error that carries its own process exit status.
type ExitCoder interface {
	error
	ExitCode() int
}

// Fatal writes "error: err" to stderr and exits with the code from
// ExitCode.
func Fatal(err error) {
	os.Exit(Report(os.Stderr, err))
}

// Report writes "error: err" to w and returns the exit status for err:
// its own code for an ExitCoder, else 1. A nil err writes nothing and
// returns 0.
func Report(w io.Writer, err error) int {
	if err == nil {
		return 0
	}
	fmt.Fprintf(w, "error: %v\n", err)
	if coder, ok := err.(ExitCoder); ok {
		return coder.ExitCode()
	}
	return 1
}
