// Copyright 2026 The TalkaNova Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"runtime"
	"strings"
	"testing"
)

func TestInfo(t *testing.T) {
	originalCommit, originalVersion := GitCommit, Version
	t.Cleanup(func() { GitCommit, Version = originalCommit, originalVersion })

	GitCommit, Version = "abc1234", "1.2.3"
	if got := Info(); !strings.HasPrefix(got, "1.2.3 (abc1234, ") {
		t.Errorf("Info = %q", got)
	}
	if got := Full(); !strings.Contains(got, runtime.Version()) {
		t.Errorf("Full = %q, missing Go version", got)
	}
}
