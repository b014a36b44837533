// Copyright 2026 The TalkaNova Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/talkanova/talkanova/lib/testutil"
)

// connPair returns two DataChannelConns over a synchronous in-memory
// stream, standing in for the two ends of a detached data channel.
func connPair(t *testing.T) (*DataChannelConn, *DataChannelConn) {
	t.Helper()
	left, right := net.Pipe()
	a := NewDataChannelConn(left, "alice/chat", "bob/chat")
	b := NewDataChannelConn(right, "bob/chat", "alice/chat")
	t.Cleanup(func() {
		a.Close()
		b.Close()
	})
	return a, b
}

func TestDataChannelConn_ReadWrite(t *testing.T) {
	a, b := connPair(t)
	go func() {
		if _, err := a.Write([]byte("hello bob")); err != nil {
			t.Errorf("Write: %v", err)
		}
	}()

	buffer := make([]byte, 64)
	count, err := b.Read(buffer)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(buffer[:count]) != "hello bob" {
		t.Errorf("read %q", buffer[:count])
	}
}

func TestDataChannelConn_Addresses(t *testing.T) {
	a, _ := connPair(t)
	if a.LocalAddr().Network() != "webrtc" || a.LocalAddr().String() != "alice/chat" {
		t.Errorf("LocalAddr = %s/%s", a.LocalAddr().Network(), a.LocalAddr())
	}
	if a.RemoteAddr().String() != "bob/chat" {
		t.Errorf("RemoteAddr = %s", a.RemoteAddr())
	}
}

func TestDataChannelConn_PastDeadlineCloses(t *testing.T) {
	a, _ := connPair(t)
	if err := a.SetReadDeadline(time.Now().Add(-time.Second)); err != nil {
		t.Fatalf("SetReadDeadline: %v", err)
	}
	if _, err := a.Read(make([]byte, 1)); err == nil {
		t.Fatal("Read succeeded after an expired deadline")
	}
	if !a.Expired() {
		t.Error("Expired = false after deadline close")
	}
}

func TestDataChannelConn_DeadlineUnblocksRead(t *testing.T) {
	a, _ := connPair(t)
	if err := a.SetDeadline(time.Now().Add(20 * time.Millisecond)); err != nil {
		t.Fatalf("SetDeadline: %v", err)
	}
	done := make(chan error, 1)
	go func() {
		_, err := a.Read(make([]byte, 1))
		done <- err
	}()
	if err := testutil.RequireReceive(t, done, 5*time.Second, "blocked read"); err == nil {
		t.Fatal("blocked Read returned without error")
	}
}

func TestDataChannelConn_ClearedDeadlineDoesNotFire(t *testing.T) {
	a, b := connPair(t)
	a.SetReadDeadline(time.Now().Add(10 * time.Millisecond))
	a.SetReadDeadline(time.Time{})
	time.Sleep(30 * time.Millisecond)

	go b.Write([]byte("still here"))
	buffer := make([]byte, 32)
	count, err := a.Read(buffer)
	if err != nil {
		t.Fatalf("Read after clearing deadline: %v", err)
	}
	if string(buffer[:count]) != "still here" {
		t.Errorf("read %q", buffer[:count])
	}
}

func TestDataChannelConn_CloseIsIdempotent(t *testing.T) {
	a, b := connPair(t)
	a.SetDeadline(time.Now().Add(time.Hour))
	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if _, err := b.Read(make([]byte, 1)); err != io.EOF {
		t.Errorf("peer Read after close = %v, want EOF", err)
	}
	if a.Expired() {
		t.Error("explicit Close reported as expiry")
	}
}
