// Copyright 2026 The TalkaNova Authors
// SPDX-License-Identifier: Apache-2.0

package signaling

import (
	"context"
	"errors"
	"net/http"

	"github.com/talkanova/talkanova/lib/registration"
)

var (
	// ErrNotFound reports an unknown or expired session, or a user
	// with no published bundle.
	ErrNotFound = errors.New("signaling: not found")

	// ErrForbidden reports a write the caller is not entitled to make,
	// such as answering its own offer.
	ErrForbidden = errors.New("signaling: forbidden")

	// ErrConflict reports a write whose precondition no longer holds,
	// most often a second offer or answer for the same round.
	ErrConflict = errors.New("signaling: conflict")

	// ErrInvalid reports a malformed request.
	ErrInvalid = errors.New("signaling: invalid request")
)

// AddressExchange is the relay's reply to ExchangeAddress.
type AddressExchange struct {
	Status      Status `json:"status"`
	PeerAddress string `json:"peer_ip,omitempty"`
}

// Client is one user's view of the relay. Every method is a single
// relay call; none retries.
type Client interface {
	// UserID is the identity this client acts as.
	UserID() string

	Request(ctx context.Context, targetUserID, userName string) (Session, error)
	Pending(ctx context.Context) ([]Session, error)
	Accept(ctx context.Context, sessionID, peerAddress string) (Session, error)
	ExchangeAddress(ctx context.Context, sessionID, peerAddress string) (AddressExchange, error)
	Status(ctx context.Context, sessionID string) (Session, error)

	PublishOffer(ctx context.Context, sessionID string, offer Description) error
	PublishAnswer(ctx context.Context, sessionID string, answer Description) error
	PublishCandidate(ctx context.Context, sessionID string, candidate Candidate) error
	Close(ctx context.Context, sessionID string) error

	// PublishBundle replaces the caller's published key bundle.
	PublishBundle(ctx context.Context, bundle registration.PublicBundle) error

	// FetchBundle returns another user's bundle with at most one
	// one-time pre-key, which the relay then discards.
	FetchBundle(ctx context.Context, userID string) (registration.PeerBundle, error)

	// FetchIdentity returns another user's identity key and signed
	// pre-key without issuing a one-time pre-key.
	FetchIdentity(ctx context.Context, userID string) (registration.PeerBundle, error)
}

// HTTPStatus maps an error from this package's taxonomy to the status
// code the relay answers with.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrInvalid):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// errorForStatus is the inverse of HTTPStatus. It returns nil for
// codes outside the taxonomy.
func errorForStatus(code int) error {
	switch code {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusConflict:
		return ErrConflict
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return ErrInvalid
	}
	return nil
}
