// Copyright 2026 The TalkaNova Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/talkanova/talkanova/lib/keys"
)

const (
	authNonceSize = 32
	authTimeout   = 10 * time.Second
)

// ErrPeerAuthentication reports a peer whose challenge response does
// not verify.
var ErrPeerAuthentication = errors.New("transport: peer authentication failed")

// Authenticator proves the local identity to a peer and checks the
// peer's proof.
type Authenticator interface {
	// Sign returns an Ed25519 signature over message by the local
	// identity key.
	Sign(message []byte) []byte

	// VerifyPeer checks that signature over message was made by the
	// identity key of peerID.
	VerifyPeer(peerID string, message, signature []byte) error
}

// IdentityAuthenticator authenticates against one known peer identity
// key, normally taken from the peer's verified registration bundle.
type IdentityAuthenticator struct {
	Local   keys.SigningKeyPair
	PeerKey ed25519.PublicKey
}

func (a IdentityAuthenticator) Sign(message []byte) []byte {
	return ed25519.Sign(a.Local.SecretKey, message)
}

func (a IdentityAuthenticator) VerifyPeer(peerID string, message, signature []byte) error {
	if len(a.PeerKey) != ed25519.PublicKeySize || !ed25519.Verify(a.PeerKey, message, signature) {
		return fmt.Errorf("%w: bad signature from %s", ErrPeerAuthentication, peerID)
	}
	return nil
}

// authenticateConn runs the handshake on conn under authTimeout and
// clears the deadline on success.
func authenticateConn(conn net.Conn, authenticator Authenticator, localID, peerID string) error {
	if err := conn.SetDeadline(time.Now().Add(authTimeout)); err != nil {
		return err
	}
	if err := runPeerAuth(conn, authenticator, localID, peerID); err != nil {
		return err
	}
	return conn.SetDeadline(time.Time{})
}

// runPeerAuth is a symmetric challenge-response; both peers run it at
// once on the same stream:
//
//  1. send a random nonce,
//  2. read the peer's nonce,
//  3. send Sign(peerNonce || peerID),
//  4. read the peer's signature and verify it over (ourNonce || localID).
//
// Binding the challenger's ID into the signed message stops a response
// to one peer from being replayed to another.
//
// The writes happen on a separate goroutine: on a synchronous stream
// both sides would otherwise block writing their nonce first.
func runPeerAuth(channel io.ReadWriter, authenticator Authenticator, localID, peerID string) error {
	nonce := make([]byte, authNonceSize)
	if err := keys.ReadRandom(nonce); err != nil {
		return fmt.Errorf("generating auth nonce: %w", err)
	}

	written := make(chan error, 1)
	signatures := make(chan []byte, 1)
	go func() {
		if _, err := channel.Write(nonce); err != nil {
			written <- fmt.Errorf("sending auth nonce: %w", err)
			return
		}
		signature, ok := <-signatures
		if !ok {
			written <- nil
			return
		}
		if _, err := channel.Write(signature); err != nil {
			written <- fmt.Errorf("sending auth signature: %w", err)
			return
		}
		written <- nil
	}()

	peerNonce := make([]byte, authNonceSize)
	if _, err := io.ReadFull(channel, peerNonce); err != nil {
		close(signatures)
		return fmt.Errorf("reading peer nonce: %w", err)
	}
	signatures <- authenticator.Sign(append(peerNonce, peerID...))

	peerSignature := make([]byte, ed25519.SignatureSize)
	if _, err := io.ReadFull(channel, peerSignature); err != nil {
		return fmt.Errorf("reading peer signature: %w", err)
	}
	if err := <-written; err != nil {
		return err
	}
	if err := authenticator.VerifyPeer(peerID, append(nonce, localID...), peerSignature); err != nil {
		return fmt.Errorf("authenticating %s: %w", peerID, err)
	}
	return nil
}
