// Copyright 2026 The TalkaNova Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides helpers for tests that wait on channels.
//
// [RequireReceive] and [RequireClosed] wrap the select-with-timeout
// pattern so a broken negotiation fails the test instead of hanging
// it. They are the only place tests use wall-clock timeouts; poll
// loops themselves run on lib/clock's FakeClock.
//
// [UniqueID] returns distinct user and session identifiers for tests
// that share one relay.
package testutil
