// Copyright 2026 The TalkaNova Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/talkanova/talkanova/lib/clock"
	"github.com/talkanova/talkanova/signaling"
)

// DefaultPollInterval is how often Run re-reads the session.
const DefaultPollInterval = 2 * time.Second

// ChannelLabel is the label of the chat data channel.
const ChannelLabel = "chat"

// eventBuffer bounds undelivered events. Phase events beyond it are
// dropped; Phase always reports the current value.
const eventBuffer = 64

// ErrClosed is returned by operations on a closed Coordinator.
var ErrClosed = errors.New("transport: coordinator closed")

// ErrNotReady is returned by Renegotiate while the previous round is
// still unanswered.
var ErrNotReady = errors.New("transport: negotiation in progress")

// Config configures a Coordinator.
type Config struct {
	// Client is the relay, acting as the local user.
	Client signaling.Client

	// SessionID is the relay session to negotiate over. The session
	// must already exist; accepting it is the caller's business.
	SessionID string

	ICE ICEConfig

	// Clock drives Run. Nil means the wall clock.
	Clock clock.Clock

	// PollInterval defaults to DefaultPollInterval.
	PollInterval time.Duration

	// Authenticator, when set, runs the mutual challenge-response on
	// the chat channel before it is delivered. A peer that fails it
	// moves the coordinator to PhaseFailed.
	Authenticator Authenticator

	Logger *slog.Logger
}

// Coordinator drives one peer session: it polls the relay, decides
// with NextAction what the session needs from this side, and performs
// it against a pion PeerConnection. Create one per session and Close
// it when done; a Coordinator is not reusable.
//
// Offers and answers are published to the relay before they are
// installed as the local description. A rejected publish therefore
// leaves the PeerConnection untouched, except for the round 1 offer,
// whose data channel is already attached. Losing that race rebuilds
// the PeerConnection.
type Coordinator struct {
	client    signaling.Client
	sessionID string
	userID    string
	ice       ICEConfig
	clock     clock.Clock
	interval  time.Duration
	auth      Authenticator
	logger    *slog.Logger

	// opMu serializes Poll, Renegotiate, Restart, and Close. pion
	// callbacks never take it.
	opMu sync.Mutex

	// pending is an offer or answer created but not yet confirmed by
	// the relay. Guarded by opMu.
	pending *pendingDescription

	// unannounced is set by AddTrack and cleared by the next offer this
	// side creates. Guarded by opMu.
	unannounced bool

	// remoteRound is the round of the description installed as remote,
	// and candidateIndex the count of session candidates already
	// examined. Guarded by opMu.
	remoteRound    int
	candidateIndex int

	// flushMu keeps one candidate publisher at a time.
	flushMu sync.Mutex

	// mu guards the fields below. pion callbacks take it, so it is
	// never held across a pion call.
	mu         sync.Mutex
	connection *webrtc.PeerConnection
	generation int
	local      Local
	phase      Phase
	peerID     string
	outbox     []signaling.Candidate
	tracks     []*trackBinding

	events    chan Event
	kick      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

type pendingDescription struct {
	description webrtc.SessionDescription
	round       int

	// announces is set on an offer that carries tracks added since the
	// previous offer. Dropping the offer makes them unannounced again.
	announces bool
}

type trackBinding struct {
	track  webrtc.TrackLocal
	sender *webrtc.RTPSender
}

// New builds a Coordinator with a fresh PeerConnection. Nothing is
// sent until the first Poll.
func New(config Config) (*Coordinator, error) {
	if config.Client == nil {
		return nil, errors.New("transport: Client is required")
	}
	if config.SessionID == "" {
		return nil, errors.New("transport: SessionID is required")
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollInterval
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	c := &Coordinator{
		client:    config.Client,
		sessionID: config.SessionID,
		userID:    config.Client.UserID(),
		ice:       config.ICE,
		clock:     config.Clock,
		interval:  config.PollInterval,
		auth:      config.Authenticator,
		logger:    config.Logger.With("session", config.SessionID),
		local:     Local{UserID: config.Client.UserID()},
		events:    make(chan Event, eventBuffer),
		kick:      make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	if err := c.rebuild(); err != nil {
		return nil, err
	}
	return c, nil
}

// Events delivers phase changes, the opened chat channel, remote
// tracks, and errors. It is never closed; select on Done as well.
func (c *Coordinator) Events() <-chan Event { return c.events }

// Done is closed once the coordinator has shut down.
func (c *Coordinator) Done() <-chan struct{} { return c.done }

// Phase returns the current phase.
func (c *Coordinator) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// LocalState returns a copy of the state NextAction is evaluated on.
func (c *Coordinator) LocalState() Local {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.local
}

// Run polls immediately and then every poll interval until ctx ends
// or the coordinator closes. Relay failures are logged and retried on
// the next tick. Locally gathered candidates are published as soon as
// they appear.
func (c *Coordinator) Run(ctx context.Context) error {
	ticker := c.clock.NewTicker(c.interval)
	defer ticker.Stop()

	poll := true
	for {
		if poll {
			if err := c.Poll(ctx); err != nil {
				if errors.Is(err, ErrClosed) {
					return nil
				}
				c.logger.Warn("signaling poll failed", "error", err)
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done:
			return nil
		case <-ticker.C:
			poll = true
		case <-c.kick:
			poll = false
			if err := c.flushCandidates(ctx); err != nil {
				c.logger.Warn("publishing ICE candidates failed", "error", err)
			}
		}
	}
}

// Poll runs one evaluation cycle: read the session, perform the action
// it calls for, apply new peer candidates, publish local candidates.
// Re-observing state that was already applied does nothing.
func (c *Coordinator) Poll(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	if c.isClosed() {
		return ErrClosed
	}

	session, err := c.client.Status(ctx, c.sessionID)
	if errors.Is(err, signaling.ErrNotFound) {
		c.logger.Info("session gone from relay, closing")
		c.teardown(ctx, false)
		return ErrClosed
	}
	if err != nil {
		return fmt.Errorf("reading session status: %w", err)
	}

	c.mu.Lock()
	if c.peerID == "" {
		c.peerID = session.Peer(c.userID)
	}
	c.mu.Unlock()

	if err := c.step(ctx, session); err != nil {
		return err
	}
	if c.isClosed() {
		return nil
	}
	c.applyRemoteCandidates(session)
	return c.flushCandidates(ctx)
}

func (c *Coordinator) step(ctx context.Context, session signaling.Session) error {
	if c.pending != nil {
		return c.resumePending(ctx, session)
	}

	action := NextAction(c.LocalState(), session)
	if action != ActionNone {
		c.logger.Debug("negotiation action", "action", action.String(), "status", session.Status)
	}
	switch action {
	case ActionCreateOffer:
		return c.createInitialOffer(ctx)
	case ActionAcceptOffer:
		return c.acceptOffer(ctx, *session.Offer)
	case ActionApplyAnswer:
		return c.applyAnswer(*session.Answer)
	case ActionPeerClosed:
		c.logger.Info("peer closed the session")
		c.teardown(ctx, false)
	case ActionNone:
		return c.announceTracks(ctx, session)
	}
	return nil
}

// announceTracks offers the next round when tracks were added since
// this side's last offer, once the session is connected and the
// current round is settled. Tracks attached before the answer to a
// data-only offer reach the peer this way.
func (c *Coordinator) announceTracks(ctx context.Context, session signaling.Session) error {
	if !c.unannounced || c.Phase() != PhaseConnected || !roundSettled(c.LocalState(), session) {
		return nil
	}
	round := session.Offer.Round + 1
	c.logger.Info("announcing local tracks", "round", round)
	return c.offer(ctx, round, nil)
}

// roundSettled reports whether the latest round is answered and
// applied on this side, so a new round may be opened.
func roundSettled(local Local, session signaling.Session) bool {
	return session.Offer != nil &&
		session.Answer != nil &&
		session.Answer.Round == session.Offer.Round &&
		local.AppliedRound == session.Offer.Round
}

func (c *Coordinator) createInitialOffer(ctx context.Context) error {
	connection, generation := c.current()
	channel, err := connection.CreateDataChannel(ChannelLabel, nil)
	if err != nil {
		return fmt.Errorf("creating data channel: %w", err)
	}
	c.watchChannel(channel, generation)

	c.mu.Lock()
	c.local.HasDataChannel = true
	c.mu.Unlock()

	c.setPhase(PhaseOffering)
	return c.offer(ctx, 1, nil)
}

// offer creates an offer for round and publishes it.
func (c *Coordinator) offer(ctx context.Context, round int, options *webrtc.OfferOptions) error {
	connection, _ := c.current()
	description, err := connection.CreateOffer(options)
	if err != nil {
		return fmt.Errorf("creating SDP offer: %w", err)
	}
	c.pending = &pendingDescription{description: description, round: round, announces: c.unannounced}
	c.unannounced = false
	return c.publishPending(ctx)
}

func (c *Coordinator) acceptOffer(ctx context.Context, offer signaling.Description) error {
	connection, _ := c.current()
	if c.remoteRound != offer.Round {
		remote := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: offer.SDP}
		if err := connection.SetRemoteDescription(remote); err != nil {
			return fmt.Errorf("applying remote offer for round %d: %w", offer.Round, err)
		}
		c.remoteRound = offer.Round
		c.mu.Lock()
		c.local.HasRemoteDescription = true
		c.mu.Unlock()
	}

	description, err := connection.CreateAnswer(nil)
	if err != nil {
		return fmt.Errorf("creating SDP answer: %w", err)
	}
	c.pending = &pendingDescription{description: description, round: offer.Round}
	return c.publishPending(ctx)
}

func (c *Coordinator) applyAnswer(answer signaling.Description) error {
	connection, _ := c.current()
	remote := webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: answer.SDP}
	if err := connection.SetRemoteDescription(remote); err != nil {
		return fmt.Errorf("applying remote answer for round %d: %w", answer.Round, err)
	}
	c.remoteRound = answer.Round
	c.mu.Lock()
	c.local.HasRemoteDescription = true
	c.local.AppliedRound = answer.Round
	c.mu.Unlock()
	c.advanceToICE()
	return nil
}

// publishPending sends the pending description to the relay and, once
// accepted, installs it locally.
func (c *Coordinator) publishPending(ctx context.Context) error {
	wire := signaling.Description{
		SDP:   c.pending.description.SDP,
		Type:  c.pending.description.Type.String(),
		From:  c.userID,
		Round: c.pending.round,
	}
	var err error
	if c.pending.description.Type == webrtc.SDPTypeOffer {
		err = c.client.PublishOffer(ctx, c.sessionID, wire)
	} else {
		err = c.client.PublishAnswer(ctx, c.sessionID, wire)
	}
	switch {
	case err == nil:
		return c.commitPending()
	case errors.Is(err, signaling.ErrConflict):
		c.logger.Info("relay already holds this round", "type", wire.Type, "round", wire.Round)
		return c.abandonPending()
	default:
		// The relay may or may not have stored it; the next poll
		// finds out in resumePending.
		return fmt.Errorf("publishing SDP %s for round %d: %w", wire.Type, wire.Round, err)
	}
}

// resumePending settles a description whose publish result was lost.
func (c *Coordinator) resumePending(ctx context.Context, session signaling.Session) error {
	published := session.Offer
	if c.pending.description.Type == webrtc.SDPTypeAnswer {
		published = session.Answer
	}
	if published != nil && published.Round >= c.pending.round {
		if published.From == c.userID && published.Round == c.pending.round && published.SDP == c.pending.description.SDP {
			return c.commitPending()
		}
		return c.abandonPending()
	}
	return c.publishPending(ctx)
}

// commitPending installs the description the relay accepted. The
// peer already sees it, so failing to install it leaves the session
// unable to progress: the coordinator moves to PhaseFailed and reports
// the error, and the caller should Close.
func (c *Coordinator) commitPending() error {
	pending := c.pending
	c.pending = nil

	connection, _ := c.current()
	if err := connection.SetLocalDescription(pending.description); err != nil {
		err = fmt.Errorf("installing local %s for round %d: %w", pending.description.Type, pending.round, err)
		c.unannounced = c.unannounced || pending.announces
		c.logger.Error("negotiation cannot continue", "error", err)
		c.setPhase(PhaseFailed)
		c.emit(Event{Kind: EventError, Err: err})
		return err
	}

	c.mu.Lock()
	c.local.HasLocalDescription = true
	if pending.description.Type == webrtc.SDPTypeOffer {
		c.local.OfferRound = pending.round
	} else {
		c.local.AppliedRound = pending.round
	}
	c.mu.Unlock()

	if pending.description.Type == webrtc.SDPTypeOffer {
		if pending.round == 1 {
			c.setPhase(PhaseAwaitingAnswer)
		}
	} else {
		c.advanceToICE()
	}
	return nil
}

// abandonPending drops a description the relay will never hold. A
// lost round 1 offer leaves a data channel on the PeerConnection, so
// it is rebuilt and the peer's offer answered on the next poll.
func (c *Coordinator) abandonPending() error {
	pending := c.pending
	c.pending = nil
	c.unannounced = c.unannounced || pending.announces
	if pending.description.Type == webrtc.SDPTypeOffer && pending.round == 1 {
		c.logger.Info("peer offered first, rebuilding peer connection")
		if err := c.rebuild(); err != nil {
			return fmt.Errorf("rebuilding peer connection: %w", err)
		}
		c.setPhase(PhaseIdle)
	}
	return nil
}

// Renegotiate publishes a new offer round for the current transport,
// typically after AddTrack. It returns ErrNotReady while the previous
// round is unanswered, or when the peer opened the same round first;
// tracks it was meant to announce are then announced by a later poll.
func (c *Coordinator) Renegotiate(ctx context.Context) error {
	return c.reoffer(ctx, nil)
}

// Restart renegotiates with fresh ICE credentials, the way out of
// PhaseDisconnected or PhaseFailed.
func (c *Coordinator) Restart(ctx context.Context) error {
	return c.reoffer(ctx, &webrtc.OfferOptions{ICERestart: true})
}

func (c *Coordinator) reoffer(ctx context.Context, options *webrtc.OfferOptions) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	if c.isClosed() {
		return ErrClosed
	}
	if c.pending != nil {
		return ErrNotReady
	}

	session, err := c.client.Status(ctx, c.sessionID)
	if err != nil {
		return fmt.Errorf("reading session status: %w", err)
	}
	if !roundSettled(c.LocalState(), session) {
		return ErrNotReady
	}
	if options != nil && options.ICERestart {
		c.setPhase(PhaseNegotiatingICE)
	}
	round := session.Offer.Round + 1
	if err := c.offer(ctx, round, options); err != nil {
		return err
	}
	if c.pending == nil && c.LocalState().OfferRound != round {
		return fmt.Errorf("%w: peer opened round %d first", ErrNotReady, round)
	}
	return nil
}

// AddTrack attaches a local media track. It survives a rebuild of the
// PeerConnection. Renegotiate announces it at once; otherwise Poll
// announces it in a new round once the session is connected and the
// current round is settled.
func (c *Coordinator) AddTrack(track webrtc.TrackLocal) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	if c.isClosed() {
		return ErrClosed
	}
	connection, _ := c.current()
	sender, err := connection.AddTrack(track)
	if err != nil {
		return fmt.Errorf("adding track %s: %w", track.ID(), err)
	}
	c.mu.Lock()
	c.tracks = append(c.tracks, &trackBinding{track: track, sender: sender})
	c.mu.Unlock()
	c.unannounced = true
	return nil
}

// RemoveTrack detaches a track added with AddTrack. Unknown tracks
// are ignored.
func (c *Coordinator) RemoveTrack(track webrtc.TrackLocal) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	index := slices.IndexFunc(c.tracks, func(b *trackBinding) bool { return b.track == track })
	if index < 0 {
		c.mu.Unlock()
		return nil
	}
	binding := c.tracks[index]
	c.tracks = slices.Delete(c.tracks, index, index+1)
	closed := c.local.Closed
	connection := c.connection
	c.mu.Unlock()

	if closed {
		return nil
	}
	if err := connection.RemoveTrack(binding.sender); err != nil {
		return fmt.Errorf("removing track %s: %w", track.ID(), err)
	}
	return nil
}

// Close hangs up: it stops polling, closes the PeerConnection, and
// marks the session closed on the relay. Later calls do nothing.
func (c *Coordinator) Close(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	return c.teardown(ctx, true)
}

// teardown is the single shutdown path. notify tells the relay.
func (c *Coordinator) teardown(ctx context.Context, notify bool) error {
	var result error
	c.closeOnce.Do(func() {
		c.setPhase(PhaseClosed)

		c.mu.Lock()
		c.local.Closed = true
		c.generation++
		connection := c.connection
		c.outbox = nil
		c.mu.Unlock()
		close(c.done)

		if err := connection.Close(); err != nil {
			result = fmt.Errorf("closing peer connection: %w", err)
		}
		if notify {
			if err := c.client.Close(ctx, c.sessionID); err != nil && !errors.Is(err, signaling.ErrNotFound) {
				result = errors.Join(result, fmt.Errorf("closing session on relay: %w", err))
			}
		}
	})
	return result
}

// rebuild replaces the PeerConnection and forgets everything the old
// one negotiated. Tracks are re-attached.
func (c *Coordinator) rebuild() error {
	connection, err := newPeerConnection(c.ice)
	if err != nil {
		return fmt.Errorf("creating peer connection: %w", err)
	}

	c.mu.Lock()
	old := c.connection
	c.generation++
	generation := c.generation
	c.connection = connection
	c.local = Local{UserID: c.userID}
	c.outbox = nil
	tracks := c.tracks
	c.mu.Unlock()
	c.remoteRound = 0
	c.candidateIndex = 0

	if old != nil {
		if err := old.Close(); err != nil {
			c.logger.Debug("closing replaced peer connection", "error", err)
		}
	}

	c.watchConnection(connection, generation)
	for _, binding := range tracks {
		sender, err := connection.AddTrack(binding.track)
		if err != nil {
			return fmt.Errorf("re-adding track %s: %w", binding.track.ID(), err)
		}
		binding.sender = sender
	}
	return nil
}

func (c *Coordinator) watchConnection(connection *webrtc.PeerConnection, generation int) {
	connection.OnICECandidate(func(candidate *webrtc.ICECandidate) {
		if candidate == nil {
			return
		}
		candidateInit := candidate.ToJSON()
		c.mu.Lock()
		if generation != c.generation {
			c.mu.Unlock()
			return
		}
		c.outbox = append(c.outbox, signaling.Candidate{
			From:          c.userID,
			Candidate:     candidateInit.Candidate,
			SDPMid:        candidateInit.SDPMid,
			SDPMLineIndex: candidateInit.SDPMLineIndex,
		})
		c.mu.Unlock()
		select {
		case c.kick <- struct{}{}:
		default:
		}
	})

	connection.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		if !c.isCurrent(generation) {
			return
		}
		c.logger.Info("peer connection state changed", "state", state.String())
		switch state {
		case webrtc.PeerConnectionStateConnected:
			c.setPhase(PhaseConnected)
		case webrtc.PeerConnectionStateDisconnected:
			c.setPhase(PhaseDisconnected)
		case webrtc.PeerConnectionStateFailed:
			c.setPhase(PhaseFailed)
		}
	})

	connection.OnDataChannel(func(channel *webrtc.DataChannel) {
		if channel.Label() != ChannelLabel {
			c.logger.Debug("ignoring data channel", "label", channel.Label())
			return
		}
		c.mu.Lock()
		if generation == c.generation {
			c.local.HasDataChannel = true
		}
		c.mu.Unlock()
		c.watchChannel(channel, generation)
	})

	connection.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		if !c.isCurrent(generation) {
			return
		}
		c.logger.Info("remote track added", "kind", track.Kind().String(), "track", track.ID())
		c.emit(Event{Kind: EventRemoteTrack, Track: track})
	})
}

// watchChannel detaches the chat channel on open and hands it to
// deliverChannel.
func (c *Coordinator) watchChannel(channel *webrtc.DataChannel, generation int) {
	channel.OnOpen(func() {
		raw, err := channel.Detach()
		if err != nil {
			c.logger.Error("detaching data channel failed", "error", err)
			return
		}
		c.mu.Lock()
		peerID := c.peerID
		c.mu.Unlock()

		conn := NewDataChannelConn(raw, c.userID+"/"+ChannelLabel, peerID+"/"+ChannelLabel)
		go c.deliverChannel(conn, peerID, generation)
	})
}

// deliverChannel authenticates the peer, when configured, and emits
// EventChannelOpen. It runs off the pion callback goroutine because
// the handshake blocks on the peer.
func (c *Coordinator) deliverChannel(conn *DataChannelConn, peerID string, generation int) {
	if c.auth != nil {
		if err := authenticateConn(conn, c.auth, c.userID, peerID); err != nil {
			conn.Close()
			c.logger.Warn("peer authentication failed", "peer", peerID, "error", err)
			if c.isCurrent(generation) {
				c.setPhase(PhaseFailed)
				c.emit(Event{Kind: EventError, Err: err})
			}
			return
		}
	}
	if !c.isCurrent(generation) {
		conn.Close()
		return
	}
	c.logger.Info("chat channel open", "peer", peerID)
	select {
	case c.events <- Event{Kind: EventChannelOpen, Conn: conn}:
	case <-c.done:
		conn.Close()
	}
}

// applyRemoteCandidates adds the peer's candidates not seen yet. They
// wait in the session until a remote description is installed.
func (c *Coordinator) applyRemoteCandidates(session signaling.Session) {
	if !c.LocalState().HasRemoteDescription {
		return
	}
	connection, _ := c.current()
	for ; c.candidateIndex < len(session.Candidates); c.candidateIndex++ {
		candidate := session.Candidates[c.candidateIndex]
		if candidate.From == c.userID {
			continue
		}
		remote := webrtc.ICECandidateInit{
			Candidate:     candidate.Candidate,
			SDPMid:        candidate.SDPMid,
			SDPMLineIndex: candidate.SDPMLineIndex,
		}
		if err := connection.AddICECandidate(remote); err != nil {
			c.logger.Debug("ignoring remote candidate", "candidate", candidate.Candidate, "error", err)
		}
	}
}

// flushCandidates publishes queued local candidates in order. A
// failed publish keeps the rest queued for the next attempt.
func (c *Coordinator) flushCandidates(ctx context.Context) error {
	c.flushMu.Lock()
	defer c.flushMu.Unlock()
	for {
		c.mu.Lock()
		if len(c.outbox) == 0 || c.local.Closed {
			c.mu.Unlock()
			return nil
		}
		candidate := c.outbox[0]
		generation := c.generation
		c.mu.Unlock()

		if err := c.client.PublishCandidate(ctx, c.sessionID, candidate); err != nil {
			return fmt.Errorf("publishing ICE candidate: %w", err)
		}

		c.mu.Lock()
		if generation == c.generation && len(c.outbox) > 0 {
			c.outbox = c.outbox[1:]
		}
		c.mu.Unlock()
	}
}

func (c *Coordinator) advanceToICE() {
	c.mu.Lock()
	phase := c.phase
	c.mu.Unlock()
	if phase != PhaseConnected {
		c.setPhase(PhaseNegotiatingICE)
	}
}

// setPhase records phase and reports a change. A closed coordinator
// stays closed.
func (c *Coordinator) setPhase(phase Phase) {
	c.mu.Lock()
	if c.phase == phase || c.phase == PhaseClosed {
		c.mu.Unlock()
		return
	}
	c.phase = phase
	c.mu.Unlock()
	c.emit(Event{Kind: EventPhase, Phase: phase})
}

// emit delivers event unless the buffer is full.
func (c *Coordinator) emit(event Event) {
	select {
	case c.events <- event:
	default:
		c.logger.Debug("event dropped", "kind", event.Kind.String())
	}
}

func (c *Coordinator) current() (*webrtc.PeerConnection, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connection, c.generation
}

func (c *Coordinator) isCurrent(generation int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return generation == c.generation && !c.local.Closed
}

func (c *Coordinator) isClosed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}
