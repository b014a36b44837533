// Copyright 2026 The TalkaNova Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"slices"
	"sync"
	"time"
)

// FakeClock is a Clock whose time moves only on Advance. It is safe
// for concurrent use.
type FakeClock struct {
	mu      sync.Mutex
	now     time.Time
	pending []*alarm
	changed *sync.Cond
}

// alarm is one registered After or ticker deadline.
type alarm struct {
	due      time.Time
	out      chan time.Time
	period   time.Duration // zero for one-shot alarms
	canceled bool
}

// Fake returns a FakeClock reading initial.
func Fake(initial time.Time) *FakeClock {
	fake := &FakeClock{now: initial}
	fake.changed = sync.NewCond(&fake.mu)
	return fake
}

// Now returns the fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// After registers a one-shot alarm.
func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(chan time.Time, 1)
	if d <= 0 {
		out <- c.now
		return out
	}
	c.addLocked(&alarm{due: c.now.Add(d), out: out})
	return out
}

// NewTicker registers a periodic alarm.
func (c *FakeClock) NewTicker(d time.Duration) *Ticker {
	if d <= 0 {
		panic("clock: non-positive ticker interval")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := &alarm{due: c.now.Add(d), out: make(chan time.Time, 1), period: d}
	c.addLocked(entry)
	return &Ticker{
		C: entry.out,
		stop: func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			entry.canceled = true
			c.changed.Broadcast()
		},
		reset: func(d time.Duration) {
			c.mu.Lock()
			defer c.mu.Unlock()
			entry.period = d
			entry.due = c.now.Add(d)
			if entry.canceled {
				entry.canceled = false
				c.addLocked(entry)
			}
		},
	}
}

func (c *FakeClock) addLocked(entry *alarm) {
	c.pending = append(c.pending, entry)
	c.changed.Broadcast()
}

// Advance moves time forward by d, firing every alarm that falls due
// in deadline order. A ticker spanning several periods fires once per
// period, but its one-slot channel keeps only the first undelivered
// tick.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)

	for {
		var due []*alarm
		kept := c.pending[:0]
		for _, entry := range c.pending {
			switch {
			case entry.canceled:
			case entry.due.After(c.now):
				kept = append(kept, entry)
			default:
				due = append(due, entry)
			}
		}
		if len(due) == 0 {
			c.pending = kept
			return
		}
		slices.SortStableFunc(due, func(a, b *alarm) int { return a.due.Compare(b.due) })
		for _, entry := range due {
			select {
			case entry.out <- c.now:
			default:
			}
			if entry.period > 0 {
				entry.due = entry.due.Add(entry.period)
				kept = append(kept, entry)
			}
		}
		c.pending = kept
	}
}

// WaitForTimers blocks until at least n alarms are registered.
func (c *FakeClock) WaitForTimers(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.activeLocked() < n {
		c.changed.Wait()
	}
}

// PendingCount returns the number of registered alarms.
func (c *FakeClock) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeLocked()
}

func (c *FakeClock) activeLocked() int {
	count := 0
	for _, entry := range c.pending {
		if !entry.canceled {
			count++
		}
	}
	return count
}
