// Copyright 2026 The TalkaNova Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"io"
	"net"
	"sync"
	"time"
)

// Compile-time interface check.
var _ net.Conn = (*DataChannelConn)(nil)

// DataChannelConn presents a detached data channel as a net.Conn. SCTP
// fragments and reassembles, so reads and writes behave like a stream.
//
// A deadline that passes closes the channel: pion's detached channel
// has no native deadlines, and closing is the only way to unblock a
// pending Read. The connection is unusable afterwards.
type DataChannelConn struct {
	stream io.ReadWriteCloser
	local  string
	remote string

	mu       sync.Mutex
	timers   [2]*time.Timer // read, write
	expired  bool
	closeErr error
	closed   bool
}

const (
	readTimer = iota
	writeTimer
)

// NewDataChannelConn wraps stream. local and remote label the two
// endpoints, typically "user/label".
func NewDataChannelConn(stream io.ReadWriteCloser, local, remote string) *DataChannelConn {
	return &DataChannelConn{stream: stream, local: local, remote: remote}
}

func (c *DataChannelConn) Read(buffer []byte) (int, error)  { return c.stream.Read(buffer) }
func (c *DataChannelConn) Write(buffer []byte) (int, error) { return c.stream.Write(buffer) }

// Close stops deadline timers and closes the channel. Later calls
// return the first call's result.
func (c *DataChannelConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked(readTimer)
	c.stopLocked(writeTimer)
	return c.closeLocked()
}

func (c *DataChannelConn) LocalAddr() net.Addr  { return channelAddr(c.local) }
func (c *DataChannelConn) RemoteAddr() net.Addr { return channelAddr(c.remote) }

func (c *DataChannelConn) SetDeadline(deadline time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.armLocked(readTimer, deadline)
	c.armLocked(writeTimer, deadline)
	return nil
}

func (c *DataChannelConn) SetReadDeadline(deadline time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.armLocked(readTimer, deadline)
	return nil
}

func (c *DataChannelConn) SetWriteDeadline(deadline time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.armLocked(writeTimer, deadline)
	return nil
}

// Expired reports whether a deadline closed the connection.
func (c *DataChannelConn) Expired() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expired
}

func (c *DataChannelConn) armLocked(which int, deadline time.Time) {
	c.stopLocked(which)
	if deadline.IsZero() || c.closed {
		return
	}
	remaining := time.Until(deadline)
	if remaining <= 0 {
		c.expireLocked()
		return
	}
	c.timers[which] = time.AfterFunc(remaining, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.expireLocked()
	})
}

func (c *DataChannelConn) stopLocked(which int) {
	if c.timers[which] != nil {
		c.timers[which].Stop()
		c.timers[which] = nil
	}
}

func (c *DataChannelConn) expireLocked() {
	if c.closed {
		return
	}
	c.expired = true
	c.closeLocked()
}

func (c *DataChannelConn) closeLocked() error {
	if !c.closed {
		c.closed = true
		c.closeErr = c.stream.Close()
	}
	return c.closeErr
}

// channelAddr is the synthetic address of a data channel endpoint.
type channelAddr string

func (channelAddr) Network() string  { return "webrtc" }
func (a channelAddr) String() string { return string(a) }
