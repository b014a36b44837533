// Copyright 2026 The TalkaNova Authors
// SPDX-License-Identifier: Apache-2.0

package signaling

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/talkanova/talkanova/lib/netutil"
	"github.com/talkanova/talkanova/lib/registration"
)

// Compile-time interface check.
var _ Client = (*HTTPClient)(nil)

// HTTPClient talks to a relay over its JSON API.
type HTTPClient struct {
	baseURL    string
	userID     string
	httpClient *http.Client
}

// NewHTTPClient returns a client for the API rooted at baseURL (for
// example "http://127.0.0.1:8000/api/v1"), acting as userID. A nil
// httpClient uses one with a 15 second timeout.
func NewHTTPClient(baseURL, userID string, httpClient *http.Client) *HTTPClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userID:     userID,
		httpClient: httpClient,
	}
}

func (c *HTTPClient) UserID() string { return c.userID }

// Wire bodies. user_id duplicates the header, as the relay prefers the
// body when both are present.
type (
	requestBody struct {
		UserID       string `json:"user_id"`
		TargetUserID string `json:"target_user_id"`
		UserName     string `json:"user_name,omitempty"`
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
		SDPMid        *string `json:"sdp_mid,omitempty"`
		SDPMLineIndex *uint16 `json:"sdp_mline_index,omitempty"`
	}
	pendingBody struct {
		Sessions []Session `json:"sessions"`
	}
)

func (c *HTTPClient) Request(ctx context.Context, targetUserID, userName string) (Session, error) {
	var session Session
	err := c.do(ctx, http.MethodPost, "/p2p/request", requestBody{
		UserID: c.userID, TargetUserID: targetUserID, UserName: userName,
	}, &session)
	if err != nil {
		return Session{}, fmt.Errorf("requesting session with %s: %w", targetUserID, err)
	}
	return session, nil
}

func (c *HTTPClient) Pending(ctx context.Context) ([]Session, error) {
	var pending pendingBody
	if err := c.do(ctx, http.MethodGet, "/p2p/pending", nil, &pending); err != nil {
		return nil, fmt.Errorf("listing pending sessions: %w", err)
	}
	return pending.Sessions, nil
}

func (c *HTTPClient) Accept(ctx context.Context, sessionID, peerAddress string) (Session, error) {
	var session Session
	err := c.do(ctx, http.MethodPost, "/p2p/accept", addressBody{
		UserID: c.userID, SessionID: sessionID, PeerAddress: peerAddress,
	}, &session)
	if err != nil {
		return Session{}, fmt.Errorf("accepting session %s: %w", sessionID, err)
	}
	return session, nil
}

func (c *HTTPClient) ExchangeAddress(ctx context.Context, sessionID, peerAddress string) (AddressExchange, error) {
	var exchange AddressExchange
	err := c.do(ctx, http.MethodPost, "/p2p/exchange-ip", addressBody{
		UserID: c.userID, SessionID: sessionID, PeerAddress: peerAddress,
	}, &exchange)
	if err != nil {
		return AddressExchange{}, fmt.Errorf("exchanging address for session %s: %w", sessionID, err)
	}
	return exchange, nil
}

func (c *HTTPClient) Status(ctx context.Context, sessionID string) (Session, error) {
	var session Session
	if err := c.do(ctx, http.MethodGet, "/p2p/session/"+url.PathEscape(sessionID), nil, &session); err != nil {
		return Session{}, fmt.Errorf("reading session %s: %w", sessionID, err)
	}
	return session, nil
}

func (c *HTTPClient) PublishOffer(ctx context.Context, sessionID string, offer Description) error {
	if err := c.publishDescription(ctx, "/p2p/signal/offer", sessionID, offer); err != nil {
		return fmt.Errorf("publishing SDP offer: %w", err)
	}
	return nil
}

func (c *HTTPClient) PublishAnswer(ctx context.Context, sessionID string, answer Description) error {
	if err := c.publishDescription(ctx, "/p2p/signal/answer", sessionID, answer); err != nil {
		return fmt.Errorf("publishing SDP answer: %w", err)
	}
	return nil
}

func (c *HTTPClient) publishDescription(ctx context.Context, path, sessionID string, description Description) error {
	return c.do(ctx, http.MethodPost, path, descriptionBody{
		UserID:    c.userID,
		SessionID: sessionID,
		SDP:       description.SDP,
		Type:      description.Type,
		Round:     description.Round,
	}, nil)
}

func (c *HTTPClient) PublishCandidate(ctx context.Context, sessionID string, candidate Candidate) error {
	err := c.do(ctx, http.MethodPost, "/p2p/signal/ice", candidateBody{
		UserID:        c.userID,
		SessionID:     sessionID,
		Candidate:     candidate.Candidate,
		SDPMid:        candidate.SDPMid,
		SDPMLineIndex: candidate.SDPMLineIndex,
	}, nil)
	if err != nil {
		return fmt.Errorf("publishing ICE candidate: %w", err)
	}
	return nil
}

func (c *HTTPClient) Close(ctx context.Context, sessionID string) error {
	if err := c.do(ctx, http.MethodPost, "/p2p/close/"+url.PathEscape(sessionID), nil, nil); err != nil {
		return fmt.Errorf("closing session %s: %w", sessionID, err)
	}
	return nil
}

func (c *HTTPClient) PublishBundle(ctx context.Context, bundle registration.PublicBundle) error {
	if err := c.do(ctx, http.MethodPut, "/keys", bundle, nil); err != nil {
		return fmt.Errorf("publishing key bundle: %w", err)
	}
	return nil
}

func (c *HTTPClient) FetchBundle(ctx context.Context, userID string) (registration.PeerBundle, error) {
	var bundle registration.PeerBundle
	if err := c.do(ctx, http.MethodGet, "/keys/"+url.PathEscape(userID), nil, &bundle); err != nil {
		return registration.PeerBundle{}, fmt.Errorf("fetching key bundle of %s: %w", userID, err)
	}
	return bundle, nil
}

func (c *HTTPClient) FetchIdentity(ctx context.Context, userID string) (registration.PeerBundle, error) {
	var bundle registration.PeerBundle
	if err := c.do(ctx, http.MethodGet, "/keys/"+url.PathEscape(userID)+"/identity", nil, &bundle); err != nil {
		return registration.PeerBundle{}, fmt.Errorf("fetching identity of %s: %w", userID, err)
	}
	return bundle, nil
}

// do sends one request and decodes a 2xx response into out. Error
// statuses map onto ErrNotFound, ErrForbidden, ErrConflict, and
// ErrInvalid, with the relay's detail message attached.
func (c *HTTPClient) do(ctx context.Context, method, path string, in, out any) error {
	var body *bytes.Reader
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(encoded)
	} else {
		body = bytes.NewReader(nil)
	}

	request, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	request.Header.Set("X-User-ID", c.userID)
	if in != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		detail := relayDetail(netutil.ErrorBody(response.Body))
		if sentinel := errorForStatus(response.StatusCode); sentinel != nil {
			return fmt.Errorf("%w: %s", sentinel, detail)
		}
		return fmt.Errorf("relay returned %d: %s", response.StatusCode, detail)
	}
	if out == nil {
		return nil
	}
	return netutil.DecodeJSON(response.Body, out)
}

// relayDetail extracts the detail field of an error body, or returns
// the body as is.
func relayDetail(body string) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal([]byte(body), &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return strings.TrimSpace(body)
}
