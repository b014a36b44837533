// Copyright 2026 The TalkaNova Authors
// SPDX-License-Identifier: Apache-2.0

// Package directchat carries end-to-end encrypted text messages over
// an authenticated peer connection.
//
// Each message is a JSON object {sender, text, time} sealed with
// directcipher into an envelope and written as one line. Lines keep
// frame boundaries intact on stream transports, and on a data channel
// each line is one SCTP message.
package directchat

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/talkanova/talkanova/lib/clock"
	"github.com/talkanova/talkanova/lib/directcipher"
	"github.com/talkanova/talkanova/lib/keys"
	"github.com/talkanova/talkanova/lib/registration"
)

// MaxTextSize bounds the text of one message.
const MaxTextSize = 16 * 1024

// maxLineSize bounds one sealed line: the JSON frame, the box
// overhead, base64 expansion, and the newline.
const maxLineSize = 64 * 1024

var (
	// ErrMalformedMessage is returned for a frame that decrypted but is
	// not a valid message.
	ErrMalformedMessage = errors.New("directchat: malformed message")

	// ErrTextTooLong is returned by Send for text over MaxTextSize, or
	// whose sealed line would exceed what Receive accepts.
	ErrTextTooLong = errors.New("directchat: message text too long")
)

// Message is one chat message.
type Message struct {
	Sender string    `json:"sender"`
	Text   string    `json:"text"`
	Time   time.Time `json:"time"`
}

// NewSession returns the cipher session between the local identity and
// a verified peer, keyed on both signed pre-keys.
func NewSession(local *registration.Bundle, peer registration.VerifiedPeer) *directcipher.Session {
	return directcipher.NewSession(peer.SignedPreKey, local.SignedPreKey.SecretKey)
}

// Conn sends and receives messages on one connection. Send and Receive
// may be called from different goroutines; concurrent Sends are
// serialized.
type Conn struct {
	conn    net.Conn
	session *directcipher.Session
	sender  string
	clock   clock.Clock

	writeMu sync.Mutex
	reader  *bufio.Reader
}

// NewConn wraps conn. sender names the local user in outgoing
// messages. A nil clock means the wall clock.
func NewConn(conn net.Conn, session *directcipher.Session, sender string, clk clock.Clock) *Conn {
	if clk == nil {
		clk = clock.Real()
	}
	return &Conn{
		conn:    conn,
		session: session,
		sender:  sender,
		clock:   clk,
		reader:  bufio.NewReaderSize(conn, maxLineSize),
	}
}

// Send seals text and writes it, returning the message as sent.
func (c *Conn) Send(text string) (Message, error) {
	if len(text) > MaxTextSize {
		return Message{}, ErrTextTooLong
	}
	message := Message{Sender: c.sender, Text: text, Time: c.clock.Now().UTC()}
	var plaintext bytes.Buffer
	encoder := json.NewEncoder(&plaintext)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(message); err != nil {
		return Message{}, fmt.Errorf("encoding message: %w", err)
	}
	envelope, err := c.session.Seal(bytes.TrimSuffix(plaintext.Bytes(), []byte("\n")))
	if err != nil {
		return Message{}, fmt.Errorf("sealing message: %w", err)
	}
	line := append([]byte(envelope), '\n')
	if len(line) > maxLineSize {
		// Control characters escape to six bytes each.
		return Message{}, fmt.Errorf("%w: sealed frame is %d bytes", ErrTextTooLong, len(line))
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if _, err := c.conn.Write(line); err != nil {
		return Message{}, fmt.Errorf("writing message: %w", err)
	}
	return message, nil
}

// Receive reads the next message. A frame that fails to decrypt
// returns directcipher.ErrDecryption and one that is not a message
// returns ErrMalformedMessage; in both cases the stream stays aligned
// and Receive can be called again. Transport errors, including io.EOF,
// are returned unwrapped.
func (c *Conn) Receive() (Message, error) {
	line, err := c.reader.ReadSlice('\n')
	if errors.Is(err, bufio.ErrBufferFull) {
		// Discard the rest of the oversized line.
		for errors.Is(err, bufio.ErrBufferFull) {
			_, err = c.reader.ReadSlice('\n')
		}
		if err != nil {
			return Message{}, err
		}
		return Message{}, fmt.Errorf("%w: frame exceeds %d bytes", ErrMalformedMessage, maxLineSize)
	}
	if err != nil {
		return Message{}, err
	}

	plaintext, err := c.session.Open(keys.Envelope(bytes.TrimSuffix(line, []byte("\n"))))
	if err != nil {
		return Message{}, err
	}
	var message Message
	if err := json.Unmarshal(plaintext, &message); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if message.Sender == "" {
		return Message{}, fmt.Errorf("%w: no sender", ErrMalformedMessage)
	}
	return message, nil
}

// Close closes the connection. The cipher session belongs to the
// caller.
func (c *Conn) Close() error {
	return c.conn.Close()
}
