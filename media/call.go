// Copyright 2026 The TalkaNova Authors
// SPDX-License-Identifier: Apache-2.0

package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/talkanova/talkanova/transport"
)

// ErrDeviceUnavailable reports a capture device that could not be
// opened. The session and its chat channel are unaffected.
var ErrDeviceUnavailable = errors.New("media: capture device unavailable")

// ErrCallActive is returned by StartCall during a call.
var ErrCallActive = errors.New("media: call already active")

// Kind is the media type of one capture.
type Kind string

const (
	KindAudio Kind = "audio"
	KindVideo Kind = "video"
)

// Mode selects what a call sends.
type Mode string

const (
	// ModeAudio sends audio only.
	ModeAudio Mode = "audio"

	// ModeVideo sends audio and video.
	ModeVideo Mode = "video"
)

// ParseMode accepts "audio" and "video".
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeAudio, ModeVideo:
		return Mode(s), nil
	}
	return "", fmt.Errorf("media: unknown call mode %q", s)
}

func (m Mode) kinds() []Kind {
	if m == ModeVideo {
		return []Kind{KindAudio, KindVideo}
	}
	return []Kind{KindAudio}
}

// Capture is one running local capture.
type Capture interface {
	Kind() Kind
	Track() webrtc.TrackLocal

	// SetEnabled gates the sample stream. A disabled capture keeps
	// running but sends nothing.
	SetEnabled(enabled bool)

	// Stop ends the capture and releases the device.
	Stop() error
}

// Capturer opens captures.
type Capturer interface {
	Open(kind Kind) (Capture, error)
}

// Session is the part of a peer session a call needs.
// *transport.Coordinator implements it. A session announces tracks
// added before it connected, or while Renegotiate returned
// transport.ErrNotReady, on its own once the current round settles.
type Session interface {
	AddTrack(track webrtc.TrackLocal) error
	RemoveTrack(track webrtc.TrackLocal) error
	Renegotiate(ctx context.Context) error
	Phase() transport.Phase
}

// Compile-time interface check.
var _ Session = (*transport.Coordinator)(nil)

// Call manages the media of one session. The zero value is not
// usable; use NewCall.
type Call struct {
	session  Session
	capturer Capturer
	logger   *slog.Logger

	mu       sync.Mutex
	active   bool
	mode     Mode
	captures []Capture
	muted    bool
	videoOff bool
	remote   []*webrtc.TrackRemote
}

// NewCall returns an idle call on session.
func NewCall(session Session, capturer Capturer, logger *slog.Logger) *Call {
	if logger == nil {
		logger = slog.Default()
	}
	return &Call{session: session, capturer: capturer, logger: logger}
}

// StartCall opens the captures mode needs and attaches their tracks.
// If the session is connected it renegotiates so the peer learns of
// them at once; otherwise, or while a round is still open, the session
// announces them when it is ready. Any other renegotiation failure is
// returned but the call stays up.
// A capture that cannot be opened fails the call with
// ErrDeviceUnavailable and releases everything opened so far.
func (c *Call) StartCall(ctx context.Context, mode Mode) error {
	if _, err := ParseMode(string(mode)); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active {
		return ErrCallActive
	}

	var captures []Capture
	for _, kind := range mode.kinds() {
		capture, err := c.capturer.Open(kind)
		if err != nil {
			stopAll(captures)
			if !errors.Is(err, ErrDeviceUnavailable) {
				err = fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
			}
			return fmt.Errorf("opening %s capture: %w", kind, err)
		}
		captures = append(captures, capture)
	}

	for i, capture := range captures {
		if err := c.session.AddTrack(capture.Track()); err != nil {
			for _, attached := range captures[:i] {
				c.session.RemoveTrack(attached.Track())
			}
			stopAll(captures)
			return fmt.Errorf("attaching %s track: %w", capture.Kind(), err)
		}
	}

	c.active = true
	c.mode = mode
	c.captures = captures
	c.muted = false
	c.videoOff = false
	c.logger.Info("call started", "mode", string(mode))

	if c.session.Phase() != transport.PhaseConnected {
		return nil
	}
	err := c.session.Renegotiate(ctx)
	if errors.Is(err, transport.ErrNotReady) {
		c.logger.Info("call tracks wait for the open negotiation round", "error", err)
		return nil
	}
	if err != nil {
		return fmt.Errorf("renegotiating for %s call: %w", mode, err)
	}
	return nil
}

// EndCall stops local capture and forgets remote tracks. The session
// stays up. Ending an idle call does nothing.
func (c *Call) EndCall() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.active {
		return nil
	}
	var errs []error
	for _, capture := range c.captures {
		if err := c.session.RemoveTrack(capture.Track()); err != nil && !errors.Is(err, transport.ErrClosed) {
			errs = append(errs, err)
		}
	}
	errs = append(errs, stopAll(c.captures))
	c.active = false
	c.captures = nil
	c.remote = nil
	c.muted = false
	c.videoOff = false
	c.logger.Info("call ended")
	return errors.Join(errs...)
}

// ToggleMute flips the microphone gate and reports whether it is now
// muted. Outside a call it does nothing and reports false.
func (c *Call) ToggleMute() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.active {
		return false
	}
	c.muted = !c.muted
	c.gate(KindAudio, !c.muted)
	return c.muted
}

// ToggleVideo flips the camera gate and reports whether video is now
// off. Audio-only calls have no camera and always report true.
func (c *Call) ToggleVideo() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.active || c.mode != ModeVideo {
		return true
	}
	c.videoOff = !c.videoOff
	c.gate(KindVideo, !c.videoOff)
	return c.videoOff
}

// Active reports whether a call is up, and its mode.
func (c *Call) Active() (bool, Mode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active, c.mode
}

// AddRemoteTrack records a track the peer sent, typically from a
// transport.EventRemoteTrack.
func (c *Call) AddRemoteTrack(track *webrtc.TrackRemote) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.remote = append(c.remote, track)
}

// RemoteTracks returns the peer's tracks seen since the call started.
func (c *Call) RemoteTracks() []*webrtc.TrackRemote {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*webrtc.TrackRemote(nil), c.remote...)
}

func (c *Call) gate(kind Kind, enabled bool) {
	for _, capture := range c.captures {
		if capture.Kind() == kind {
			capture.SetEnabled(enabled)
		}
	}
}

func stopAll(captures []Capture) error {
	var errs []error
	for _, capture := range captures {
		if err := capture.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stopping %s capture: %w", capture.Kind(), err))
		}
	}
	return errors.Join(errs...)
}
