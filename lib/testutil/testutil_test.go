// Copyright 2026 The TalkaNova Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"strings"
	"testing"
	"time"
)

// recorder captures Fatalf without stopping the test goroutine.
type recorder struct{ failure string }

func (r *recorder) Helper() {}

func (r *recorder) Fatalf(format string, args ...any) {
	r.failure = fmt.Sprintf(format, args...)
	panic(r)
}

func capture(fn func(TB)) (failure string) {
	r := &recorder{}
	defer func() {
		if recovered := recover(); recovered != nil && recovered != r {
			panic(recovered)
		}
		failure = r.failure
	}()
	fn(r)
	return ""
}

func TestRequireReceive(t *testing.T) {
	ch := make(chan int, 1)
	ch <- 7
	if got := RequireReceive(t, ch, time.Second); got != 7 {
		t.Errorf("RequireReceive = %d, want 7", got)
	}

	failure := capture(func(tb TB) { RequireReceive(tb, make(chan int), 10*time.Millisecond, "waiting for %s", "offer") })
	if !strings.Contains(failure, "timed out") || !strings.Contains(failure, "waiting for offer") {
		t.Errorf("timeout failure = %q", failure)
	}

	closed := make(chan int)
	close(closed)
	failure = capture(func(tb TB) { RequireReceive(tb, closed, time.Second) })
	if !strings.Contains(failure, "channel closed") {
		t.Errorf("closed failure = %q", failure)
	}
}

func TestRequireClosed(t *testing.T) {
	done := make(chan struct{})
	close(done)
	RequireClosed(t, done, time.Second)

	failure := capture(func(tb TB) { RequireClosed(tb, make(chan struct{}), 10*time.Millisecond, "teardown") })
	if !strings.Contains(failure, "teardown") {
		t.Errorf("failure = %q", failure)
	}
}

func TestUniqueID(t *testing.T) {
	first, second := UniqueID("user"), UniqueID("user")
	if first == second {
		t.Fatalf("UniqueID returned %q twice", first)
	}
	if !strings.HasPrefix(first, "user-") {
		t.Errorf("UniqueID = %q, want user- prefix", first)
	}
}
