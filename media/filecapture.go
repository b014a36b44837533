// Copyright 2026 The TalkaNova Authors
// SPDX-License-Identifier: Apache-2.0

package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pion/webrtc/v4"
	pionmedia "github.com/pion/webrtc/v4/pkg/media"
	"github.com/pion/webrtc/v4/pkg/media/ivfreader"
	"github.com/pion/webrtc/v4/pkg/media/oggreader"

	"github.com/talkanova/talkanova/lib/clock"
)

// oggPageInterval paces Ogg Opus pages. Encoders emit one page per
// 20ms frame by default.
const oggPageInterval = 20 * time.Millisecond

// opusSampleRate is the Opus granule clock.
const opusSampleRate = 48000

// StreamID groups the tracks of one sender on the remote side.
const StreamID = "talkanova"

// FileCapturer streams media files as if they were capture devices.
// AudioPath names an Ogg Opus file and VideoPath an IVF file; an empty
// path makes that device unavailable.
type FileCapturer struct {
	AudioPath string
	VideoPath string

	// Loop restarts a file at EOF instead of ending the capture.
	Loop bool

	// Clock paces samples. Nil means the wall clock.
	Clock clock.Clock

	Logger *slog.Logger
}

// Compile-time interface check.
var _ Capturer = (*FileCapturer)(nil)

// Open starts streaming the file for kind.
func (f *FileCapturer) Open(kind Kind) (Capture, error) {
	path, mime, err := f.inspect(kind)
	if err != nil {
		return nil, err
	}
	track, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: mime}, string(kind), StreamID)
	if err != nil {
		return nil, fmt.Errorf("creating %s track: %w", kind, err)
	}

	clk := f.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := f.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	capture := &fileCapture{kind: kind, track: track, cancel: cancel, done: make(chan struct{})}
	capture.enabled.Store(true)

	go func() {
		defer close(capture.done)
		for {
			err := f.stream(ctx, kind, path, clk, capture)
			if err == nil && f.Loop && ctx.Err() == nil {
				continue
			}
			if err != nil && ctx.Err() == nil {
				logger.Warn("capture stopped", "kind", string(kind), "path", path, "error", err)
			}
			return
		}
	}()
	return capture, nil
}

// inspect opens the file once to check it exists and to learn its codec.
func (f *FileCapturer) inspect(kind Kind) (path, mime string, err error) {
	switch kind {
	case KindAudio:
		path = f.AudioPath
	case KindVideo:
		path = f.VideoPath
	default:
		return "", "", fmt.Errorf("%w: unknown kind %q", ErrDeviceUnavailable, kind)
	}
	if path == "" {
		return "", "", fmt.Errorf("%w: no %s source configured", ErrDeviceUnavailable, kind)
	}
	file, err := os.Open(path)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	defer file.Close()

	if kind == KindAudio {
		if _, _, err := oggreader.NewWith(file); err != nil {
			return "", "", fmt.Errorf("%w: %s: %v", ErrDeviceUnavailable, path, err)
		}
		return path, webrtc.MimeTypeOpus, nil
	}
	_, header, err := ivfreader.NewWith(file)
	if err != nil {
		return "", "", fmt.Errorf("%w: %s: %v", ErrDeviceUnavailable, path, err)
	}
	mime, err = ivfMimeType(header.FourCC)
	if err != nil {
		return "", "", fmt.Errorf("%w: %s: %v", ErrDeviceUnavailable, path, err)
	}
	return path, mime, nil
}

// stream plays path once into capture. A clean EOF returns nil.
func (f *FileCapturer) stream(ctx context.Context, kind Kind, path string, clk clock.Clock, capture *fileCapture) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	var source frameSource
	if kind == KindAudio {
		source, err = newOggSource(file)
	} else {
		source, err = newIVFSource(file)
	}
	if err != nil {
		return err
	}
	return pump(ctx, source, capture.track, &capture.enabled, clk)
}

func ivfMimeType(fourCC string) (string, error) {
	switch fourCC {
	case "VP80":
		return webrtc.MimeTypeVP8, nil
	case "VP90":
		return webrtc.MimeTypeVP9, nil
	case "AV01":
		return webrtc.MimeTypeAV1, nil
	}
	return "", fmt.Errorf("unsupported IVF codec %q", fourCC)
}

// frameSource yields encoded frames with their play-out duration.
type frameSource interface {
	next() (pionmedia.Sample, error)
	interval() time.Duration
}

type sampleWriter interface {
	WriteSample(sample pionmedia.Sample) error
}

// pump writes one sample per tick until the source ends or ctx is
// done. Samples read while the gate is closed are dropped.
func pump(ctx context.Context, source frameSource, out sampleWriter, enabled *atomic.Bool, clk clock.Clock) error {
	ticker := clk.NewTicker(source.interval())
	defer ticker.Stop()
	for {
		sample, err := source.next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if enabled.Load() {
			if err := out.WriteSample(sample); err != nil && !errors.Is(err, io.ErrClosedPipe) {
				return fmt.Errorf("writing sample: %w", err)
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

type ivfSource struct {
	reader *ivfreader.IVFReader
	frame  time.Duration
}

func newIVFSource(r io.Reader) (*ivfSource, error) {
	reader, header, err := ivfreader.NewWith(r)
	if err != nil {
		return nil, err
	}
	if header.TimebaseDenominator == 0 {
		return nil, errors.New("IVF header has a zero timebase")
	}
	frame := time.Duration(float64(time.Second) * float64(header.TimebaseNumerator) / float64(header.TimebaseDenominator))
	if frame <= 0 {
		frame = time.Second / 30
	}
	return &ivfSource{reader: reader, frame: frame}, nil
}

func (s *ivfSource) next() (pionmedia.Sample, error) {
	data, _, err := s.reader.ParseNextFrame()
	if err != nil {
		return pionmedia.Sample{}, err
	}
	return pionmedia.Sample{Data: data, Duration: s.frame}, nil
}

func (s *ivfSource) interval() time.Duration { return s.frame }

type oggSource struct {
	reader      *oggreader.OggReader
	lastGranule uint64
}

func newOggSource(r io.Reader) (*oggSource, error) {
	reader, _, err := oggreader.NewWith(r)
	if err != nil {
		return nil, err
	}
	return &oggSource{reader: reader}, nil
}

func (s *oggSource) next() (pionmedia.Sample, error) {
	data, header, err := s.reader.ParseNextPage()
	if err != nil {
		return pionmedia.Sample{}, err
	}
	samples := header.GranulePosition - s.lastGranule
	s.lastGranule = header.GranulePosition
	duration := time.Duration(samples) * time.Second / opusSampleRate
	return pionmedia.Sample{Data: data, Duration: duration}, nil
}

func (s *oggSource) interval() time.Duration { return oggPageInterval }

type fileCapture struct {
	kind    Kind
	track   *webrtc.TrackLocalStaticSample
	enabled atomic.Bool

	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

func (c *fileCapture) Kind() Kind               { return c.kind }
func (c *fileCapture) Track() webrtc.TrackLocal { return c.track }
func (c *fileCapture) SetEnabled(enabled bool)  { c.enabled.Store(enabled) }

func (c *fileCapture) Stop() error {
	c.stopOnce.Do(c.cancel)
	<-c.done
	return nil
}
