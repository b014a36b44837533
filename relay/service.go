// Copyright 2026 The TalkaNova Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/talkanova/talkanova/lib/clock"
	"github.com/talkanova/talkanova/lib/netutil"
	"github.com/talkanova/talkanova/lib/registration"
	"github.com/talkanova/talkanova/signaling"
)

// APIPrefix is the path every relay route is mounted under.
const APIPrefix = "/api/v1"

// Config configures a Service.
type Config struct {
	Store Store

	// Clock stamps and expires sessions. Nil means the wall clock.
	Clock clock.Clock

	// SessionTTL defaults to signaling.DefaultTTL.
	SessionTTL time.Duration

	Logger *slog.Logger
}

// Service implements the relay API over a Store.
type Service struct {
	store   Store
	clock   clock.Clock
	ttl     time.Duration
	logger  *slog.Logger
	metrics *metrics
	handler http.Handler
}

// NewService builds the API. It panics without a Store, which is a
// wiring bug rather than a runtime condition.
func NewService(config Config) *Service {
	if config.Store == nil {
		panic("relay.Service: Store is required")
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.SessionTTL <= 0 {
		config.SessionTTL = signaling.DefaultTTL
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	s := &Service{
		store:   config.Store,
		clock:   config.Clock,
		ttl:     config.SessionTTL,
		logger:  config.Logger,
		metrics: newMetrics(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST "+APIPrefix+"/p2p/request", s.handleRequest)
	mux.HandleFunc("GET "+APIPrefix+"/p2p/pending", s.handlePending)
	mux.HandleFunc("POST "+APIPrefix+"/p2p/accept", s.handleAccept)
	mux.HandleFunc("POST "+APIPrefix+"/p2p/exchange-ip", s.handleExchangeAddress)
	mux.HandleFunc("GET "+APIPrefix+"/p2p/session/{id}", s.handleStatus)
	mux.HandleFunc("POST "+APIPrefix+"/p2p/signal/offer", s.handleOffer)
	mux.HandleFunc("POST "+APIPrefix+"/p2p/signal/answer", s.handleAnswer)
	mux.HandleFunc("POST "+APIPrefix+"/p2p/signal/ice", s.handleCandidate)
	mux.HandleFunc("POST "+APIPrefix+"/p2p/close/{id}", s.handleClose)
	mux.HandleFunc("PUT "+APIPrefix+"/keys", s.handlePutBundle)
	mux.HandleFunc("GET "+APIPrefix+"/keys/{user}", s.handleFetchBundle)
	mux.HandleFunc("GET "+APIPrefix+"/keys/{user}/identity", s.handleFetchIdentity)
	s.handler = s.metrics.instrument(mux)
	return s
}

// Handler serves the API.
func (s *Service) Handler() http.Handler { return s.handler }

// MetricsHandler serves the service's Prometheus metrics.
func (s *Service) MetricsHandler() http.Handler { return s.metrics.handler() }

// Request bodies. user_id, when present, names the caller and wins
// over the X-User-ID header.
type (
	requestBody struct {
		UserID       string `json:"user_id"`
		TargetUserID string `json:"target_user_id"`
		UserName     string `json:"user_name"`
	}
	addressBody struct {
		UserID      string `json:"user_id"`
		SessionID   string `json:"session_id"`
		PeerAddress string `json:"peer_address"`
	}
	descriptionBody struct {
		UserID    string `json:"user_id"`
		SessionID string `json:"session_id"`
		SDP       string `json:"sdp"`
		Type      string `json:"type"`
		Round     int    `json:"round"`
	}
	candidateBody struct {
		UserID        string  `json:"user_id"`
		SessionID     string  `json:"session_id"`
		Candidate     string  `json:"candidate"`
		SDPMid        *string `json:"sdp_mid"`
		SDPMLineIndex *uint16 `json:"sdp_mline_index"`
	}
)

type okResponse struct {
	Status string `json:"status"`
}

// caller resolves the acting user.
func caller(r *http.Request, bodyUserID string) (string, error) {
	if id := strings.TrimSpace(bodyUserID); id != "" {
		return id, nil
	}
	if id := strings.TrimSpace(r.Header.Get("X-User-ID")); id != "" {
		return id, nil
	}
	return "", fmt.Errorf("%w: user_id is required", signaling.ErrInvalid)
}

// decode reads a JSON body and resolves the caller from it.
func decode[T any](r *http.Request, userID func(*T) string) (T, string, error) {
	var body T
	if err := netutil.DecodeJSON(r.Body, &body); err != nil {
		return body, "", fmt.Errorf("%w: %v", signaling.ErrInvalid, err)
	}
	user, err := caller(r, userID(&body))
	return body, user, err
}

// fail writes err with the status of its taxonomy. Server-side faults
// are logged and hidden from the client.
func (s *Service) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := signaling.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("relay request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		netutil.WriteError(w, status, "internal error")
		return
	}
	s.logger.Debug("relay request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	netutil.WriteError(w, status, err.Error())
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	netutil.WriteJSON(w, http.StatusOK, okResponse{Status: "ok"})
}

func (s *Service) handleRequest(w http.ResponseWriter, r *http.Request) {
	body, user, err := decode(r, func(b *requestBody) string { return b.UserID })
	if err != nil {
		s.fail(w, r, err)
		return
	}
	session, err := signaling.NewSession(uuid.NewString(), user, body.UserName, body.TargetUserID, s.clock.Now(), s.ttl)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.store.Create(r.Context(), session); err != nil {
		s.fail(w, r, err)
		return
	}
	s.metrics.sessionsCreated.Inc()
	s.logger.Info("session requested", "session", session.ID, "initiator", user, "responder", body.TargetUserID)
	netutil.WriteJSON(w, http.StatusOK, session.View(user))
}

func (s *Service) handlePending(w http.ResponseWriter, r *http.Request) {
	user, err := caller(r, r.URL.Query().Get("user_id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	pending, err := s.store.ListPending(r.Context(), user)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	views := make([]signaling.Session, 0, len(pending))
	for _, session := range pending {
		views = append(views, session.View(user))
	}
	netutil.WriteJSON(w, http.StatusOK, map[string][]signaling.Session{"sessions": views})
}

func (s *Service) handleAccept(w http.ResponseWriter, r *http.Request) {
	body, user, err := decode(r, func(b *addressBody) string { return b.UserID })
	if err != nil {
		s.fail(w, r, err)
		return
	}
	session, err := s.update(r.Context(), body.SessionID, func(session *signaling.Session) error {
		return session.Accept(user, body.PeerAddress)
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.logger.Info("session accepted", "session", session.ID, "responder", user)
	netutil.WriteJSON(w, http.StatusOK, session.View(user))
}

func (s *Service) handleExchangeAddress(w http.ResponseWriter, r *http.Request) {
	body, user, err := decode(r, func(b *addressBody) string { return b.UserID })
	if err != nil {
		s.fail(w, r, err)
		return
	}
	session, err := s.update(r.Context(), body.SessionID, func(session *signaling.Session) error {
		return session.ExchangeAddress(user, body.PeerAddress)
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	view := session.View(user)
	netutil.WriteJSON(w, http.StatusOK, signaling.AddressExchange{Status: view.Status, PeerAddress: view.PeerAddress})
}

func (s *Service) handleStatus(w http.ResponseWriter, r *http.Request) {
	user, err := caller(r, r.URL.Query().Get("user_id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	session, err := s.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if !session.Participant(user) {
		s.fail(w, r, fmt.Errorf("%w: %s is not part of session %s", signaling.ErrForbidden, user, session.ID))
		return
	}
	netutil.WriteJSON(w, http.StatusOK, session.View(user))
}

func (s *Service) handleOffer(w http.ResponseWriter, r *http.Request) {
	s.handleDescription(w, r, "offer", (*signaling.Session).SetOffer)
}

func (s *Service) handleAnswer(w http.ResponseWriter, r *http.Request) {
	s.handleDescription(w, r, "answer", (*signaling.Session).SetAnswer)
}

func (s *Service) handleDescription(w http.ResponseWriter, r *http.Request, kind string, set func(*signaling.Session, string, signaling.Description) error) {
	body, user, err := decode(r, func(b *descriptionBody) string { return b.UserID })
	if err != nil {
		s.fail(w, r, err)
		return
	}
	// Clients predating rounds send none; their one offer is round 1.
	round := body.Round
	if round == 0 && kind == "offer" {
		round = 1
	}
	description := signaling.Description{SDP: body.SDP, Type: body.Type, Round: round}
	session, err := s.update(r.Context(), body.SessionID, func(session *signaling.Session) error {
		return set(session, user, description)
	})
	if errors.Is(err, signaling.ErrConflict) {
		s.metrics.conflicts.WithLabelValues(kind).Inc()
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.logger.Info("sdp published", "session", session.ID, "type", kind, "from", user, "round", round)
	netutil.WriteJSON(w, http.StatusOK, okResponse{Status: "ok"})
}

func (s *Service) handleCandidate(w http.ResponseWriter, r *http.Request) {
	body, user, err := decode(r, func(b *candidateBody) string { return b.UserID })
	if err != nil {
		s.fail(w, r, err)
		return
	}
	candidate := signaling.Candidate{
		Candidate:     body.Candidate,
		SDPMid:        body.SDPMid,
		SDPMLineIndex: body.SDPMLineIndex,
	}
	if _, err := s.update(r.Context(), body.SessionID, func(session *signaling.Session) error {
		return session.AddCandidate(user, candidate)
	}); err != nil {
		s.fail(w, r, err)
		return
	}
	netutil.WriteJSON(w, http.StatusOK, okResponse{Status: "ok"})
}

func (s *Service) handleClose(w http.ResponseWriter, r *http.Request) {
	user, err := caller(r, r.URL.Query().Get("user_id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	session, err := s.update(r.Context(), r.PathValue("id"), func(session *signaling.Session) error {
		return session.MarkClosed(user)
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.logger.Info("session closed", "session", session.ID, "by", user)
	netutil.WriteJSON(w, http.StatusOK, okResponse{Status: "ok"})
}

func (s *Service) handlePutBundle(w http.ResponseWriter, r *http.Request) {
	user, err := caller(r, "")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var bundle registration.PublicBundle
	if err := netutil.DecodeJSON(r.Body, &bundle); err != nil {
		s.fail(w, r, fmt.Errorf("%w: %v", signaling.ErrInvalid, err))
		return
	}
	if err := bundle.Verify(); err != nil {
		s.fail(w, r, fmt.Errorf("%w: %v", signaling.ErrInvalid, err))
		return
	}
	if err := s.store.PutBundle(r.Context(), user, bundle); err != nil {
		s.fail(w, r, err)
		return
	}
	s.logger.Info("key bundle published", "user", user, "one_time_pre_keys", len(bundle.OneTimePreKeys))
	netutil.WriteJSON(w, http.StatusOK, okResponse{Status: "ok"})
}

func (s *Service) handleFetchBundle(w http.ResponseWriter, r *http.Request) {
	bundle, err := s.store.TakeBundle(r.Context(), r.PathValue("user"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.metrics.bundlesIssued.WithLabelValues(strconv.FormatBool(bundle.OneTimePreKey != "")).Inc()
	netutil.WriteJSON(w, http.StatusOK, bundle)
}

func (s *Service) handleFetchIdentity(w http.ResponseWriter, r *http.Request) {
	user := r.PathValue("user")
	stored, err := s.store.GetBundle(r.Context(), user)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	netutil.WriteJSON(w, http.StatusOK, signaling.IdentityBundle(user, stored))
}

// update runs mutate through the store, rejecting unknown session IDs
// up front.
func (s *Service) update(ctx context.Context, sessionID string, mutate func(*signaling.Session) error) (signaling.Session, error) {
	if sessionID == "" {
		return signaling.Session{}, fmt.Errorf("%w: session_id is required", signaling.ErrInvalid)
	}
	return s.store.Update(ctx, sessionID, mutate)
}
