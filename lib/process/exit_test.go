// Copyright 2026 The TalkaNova Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"bytes"
	"errors"
	"testing"
)

type usageError struct{ message string }

func (e usageError) Error() string { return e.message }
func (usageError) ExitCode() int   { return 2 }

func TestReport(t *testing.T) {
	for _, tc := range []struct {
		name   string
		err    error
		code   int
		output string
	}{
		{"nil", nil, 0, ""},
		{"plain", errors.New("relay unreachable"), 1, "error: relay unreachable\n"},
		{"exit coder", usageError{"unknown command"}, 2, "error: unknown command\n"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var buffer bytes.Buffer
			if code := Report(&buffer, tc.err); code != tc.code {
				t.Errorf("code = %d, want %d", code, tc.code)
			}
			if buffer.String() != tc.output {
				t.Errorf("output = %q, want %q", buffer.String(), tc.output)
			}
		})
	}
}
