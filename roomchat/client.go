// Copyright 2026 The TalkaNova Authors
// SPDX-License-Identifier: Apache-2.0

package roomchat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/talkanova/talkanova/lib/keys"
	"github.com/talkanova/talkanova/lib/roomcipher"
)

const (
	// writeTimeout bounds a single frame write.
	writeTimeout = 10 * time.Second

	// maxFrameSize caps inbound frames.
	maxFrameSize = 64 * 1024

	frameBuffer = 64
)

// ErrClosed is returned by Send after the connection ended.
var ErrClosed = errors.New("roomchat: connection closed")

// Config describes a room connection.
type Config struct {
	// URL is the chat endpoint, e.g. "ws://127.0.0.1:8000/ws/general".
	URL string

	UserID   string
	UserName string
	RoomID   string

	// Key decrypts and encrypts message content. Nil means the room has
	// no code and content travels as plaintext.
	Key *keys.SymmetricKey

	// Dialer defaults to websocket.DefaultDialer.
	Dialer *websocket.Dialer

	Logger *slog.Logger
}

// Client is one websocket connection to a room.
type Client struct {
	conn   *websocket.Conn
	key    *keys.SymmetricKey
	logger *slog.Logger

	writeMu sync.Mutex

	frames    chan Frame
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	mu        sync.Mutex
	err       error
}

// Dial connects to the room and starts reading frames.
func Dial(ctx context.Context, config Config) (*Client, error) {
	if config.UserID == "" {
		return nil, errors.New("roomchat: UserID is required")
	}
	endpoint, err := url.Parse(config.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing room URL: %w", err)
	}
	query := endpoint.Query()
	query.Set("token", config.UserID)
	if config.UserName != "" {
		query.Set("name", config.UserName)
	}
	if config.RoomID != "" {
		query.Set("room_id", config.RoomID)
	}
	endpoint.RawQuery = query.Encode()

	dialer := config.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, response, err := dialer.DialContext(ctx, endpoint.String(), nil)
	if err != nil {
		if response != nil {
			return nil, fmt.Errorf("connecting to room: %w (HTTP %d)", err, response.StatusCode)
		}
		return nil, fmt.Errorf("connecting to room: %w", err)
	}
	conn.SetReadLimit(maxFrameSize)

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	client := &Client{
		conn:   conn,
		key:    config.Key,
		logger: logger.With("room", config.RoomID),
		frames: make(chan Frame, frameBuffer),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go client.readLoop()
	return client, nil
}

// Frames delivers decoded frames. It is closed when the connection
// ends; Err then reports why.
func (c *Client) Frames() <-chan Frame { return c.frames }

// Err returns the error that ended the connection, or nil if it is
// still open or was closed by Close or a normal closure.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Send encrypts text with the room key and sends it.
func (c *Client) Send(text string) error {
	content := text
	if c.key != nil {
		envelope, err := roomcipher.Encrypt(text, *c.key)
		if err != nil {
			return fmt.Errorf("encrypting message: %w", err)
		}
		content = string(envelope)
	}
	return c.write(outgoing{Type: "message", Content: content})
}

// SendAttachment announces a file.
func (c *Client) SendAttachment(attachment Attachment) error {
	return c.Send(attachment.String())
}

// SendTyping tells the room this user is composing.
func (c *Client) SendTyping() error {
	return c.write(outgoing{Type: "typing"})
}

func (c *Client) write(frame outgoing) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("sending %s frame: %w", frame.Type, err)
	}
	return nil
}

// Close ends the connection and waits for the reader to stop.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.stop)
		c.writeMu.Lock()
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeTimeout))
		c.writeMu.Unlock()
		c.conn.Close()
	})
	<-c.done
	return nil
}

func (c *Client) readLoop() {
	defer close(c.frames)
	defer close(c.done)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && !c.stopping() {
				c.mu.Lock()
				c.err = err
				c.mu.Unlock()
			}
			return
		}
		frame, err := DecodeFrame(data)
		if err != nil {
			c.logger.Warn("dropping room frame", "error", err)
			continue
		}
		if message, ok := frame.(Message); ok {
			message.Text = roomcipher.DecodeForDisplay(message.Content, c.key)
			frame = message
		}
		select {
		case c.frames <- frame:
		case <-c.stop:
			return
		}
	}
}

func (c *Client) stopping() bool {
	select {
	case <-c.stop:
		return true
	default:
		return false
	}
}
