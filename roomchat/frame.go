// Copyright 2026 The TalkaNova Authors
// SPDX-License-Identifier: Apache-2.0

package roomchat

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrUnknownFrame is returned for a frame whose type (or presence
	// event) is not one of the recognized variants.
	ErrUnknownFrame = errors.New("roomchat: unknown frame type")

	// ErrMalformedFrame is returned for a frame that is not valid JSON or
	// lacks a field its variant requires.
	ErrMalformedFrame = errors.New("roomchat: malformed frame")
)

// Frame is one decoded server frame. The set of implementations is
// closed: Message, PresenceJoin, PresenceLeave, RoomUsers and Typing.
type Frame interface {
	frame()
}

// Message is a chat message broadcast to the room.
type Message struct {
	ID       string
	SenderID string
	UserName string
	Avatar   string
	KeyID    string

	// Content is the wire content: a room envelope, or legacy plaintext
	// in rooms without a code.
	Content string

	// Text is Content decoded for display. DecodeFrame leaves it empty;
	// Client fills it in.
	Text string

	Timestamp time.Time
}

// User is one member of a room.
type User struct {
	UserID   string `json:"user_id"`
	UserName string `json:"user_name,omitempty"`
	Avatar   string `json:"pfp_url,omitempty"`
}

// PresenceJoin reports a user entering the room.
type PresenceJoin struct{ User }

// PresenceLeave reports a user leaving the room.
type PresenceLeave struct{ User }

// RoomUsers is the member list sent once right after connecting.
type RoomUsers struct {
	Users []User
}

// Typing reports that a user is composing a message.
type Typing struct{ User }

func (Message) frame()       {}
func (PresenceJoin) frame()  {}
func (PresenceLeave) frame() {}
func (RoomUsers) frame()     {}
func (Typing) frame()        {}

// wireFrame is the union of every field any variant carries.
type wireFrame struct {
	Type  string `json:"type"`
	Event string `json:"event"`

	ID            string  `json:"id"`
	SenderID      string  `json:"sender_id"`
	UserID        string  `json:"user_id"`
	UserName      string  `json:"user_name"`
	Avatar        *string `json:"avatar"`
	PfpURL        *string `json:"pfp_url"`
	KeyID         *string `json:"key_id"`
	Content       *string `json:"content"`
	BodyEncrypted *string `json:"body_encrypted"`
	Body          *string `json:"message"`
	Timestamp     string  `json:"timestamp"`

	Users *[]User `json:"users"`
}

// DecodeFrame parses one server frame.
func DecodeFrame(data []byte) (Frame, error) {
	var wire wireFrame
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	switch wire.Type {
	case "message":
		return decodeMessage(wire)
	case "presence":
		user, err := wire.user()
		if err != nil {
			return nil, err
		}
		switch wire.Event {
		case "join":
			return PresenceJoin{user}, nil
		case "leave":
			return PresenceLeave{user}, nil
		}
		return nil, fmt.Errorf("%w: presence event %q", ErrUnknownFrame, wire.Event)
	case "room_users":
		if wire.Users == nil {
			return nil, fmt.Errorf("%w: room_users without users", ErrMalformedFrame)
		}
		for i, user := range *wire.Users {
			if user.UserID == "" {
				return nil, fmt.Errorf("%w: room_users entry %d has no user_id", ErrMalformedFrame, i)
			}
		}
		return RoomUsers{Users: *wire.Users}, nil
	case "typing":
		user, err := wire.user()
		if err != nil {
			return nil, err
		}
		return Typing{user}, nil
	case "":
		return nil, fmt.Errorf("%w: frame has no type", ErrMalformedFrame)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFrame, wire.Type)
}

func decodeMessage(wire wireFrame) (Frame, error) {
	if wire.SenderID == "" {
		return nil, fmt.Errorf("%w: message without sender_id", ErrMalformedFrame)
	}
	// Older servers put the envelope in body_encrypted, older clients
	// in message.
	content := firstSet(wire.Content, wire.BodyEncrypted, wire.Body)
	if content == nil {
		return nil, fmt.Errorf("%w: message without content", ErrMalformedFrame)
	}
	timestamp, err := parseTimestamp(wire.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	return Message{
		ID:        wire.ID,
		SenderID:  wire.SenderID,
		UserName:  wire.UserName,
		Avatar:    deref(firstSet(wire.Avatar, wire.PfpURL)),
		KeyID:     deref(wire.KeyID),
		Content:   *content,
		Timestamp: timestamp,
	}, nil
}

func (w wireFrame) user() (User, error) {
	if w.UserID == "" {
		return User{}, fmt.Errorf("%w: %s frame without user_id", ErrMalformedFrame, w.Type)
	}
	return User{
		UserID:   w.UserID,
		UserName: w.UserName,
		Avatar:   deref(firstSet(w.PfpURL, w.Avatar)),
	}, nil
}

// timestampLayouts accepts RFC 3339 and the zone-less ISO form some
// servers emit, which is read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
}

func parseTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", value)
}

func firstSet(values ...*string) *string {
	for _, value := range values {
		if value != nil {
			return value
		}
	}
	return nil
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

// outgoing is the frame a client sends.
type outgoing struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
}
