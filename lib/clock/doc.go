// Copyright 2026 The TalkaNova Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock lets time-driven loops run against a controllable
// clock in tests.
//
// The signaling poll loop, the relay's session sweeper, and chat
// message timestamps all take a [Clock] instead of calling the time
// package. Binaries pass [Real]; tests pass [Fake] and step it:
//
//	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	go coordinator.Run(ctx)
//	fake.WaitForTimers(1)        // poll ticker registered
//	fake.Advance(2 * time.Second) // exactly one poll
//
// WaitForTimers closes the window between a goroutine creating its
// ticker and the test advancing past the first deadline.
package clock
