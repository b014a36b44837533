// Copyright 2026 The TalkaNova Authors
// SPDX-License-Identifier: Apache-2.0

package roomchat

import "strings"

const attachmentPrefix = "[FILE]:"

// Attachment describes a file shared in a message. The file itself is
// fetched out of band by ID.
type Attachment struct {
	ID          string
	Filename    string
	ContentType string
}

// String renders the message body for a, "[FILE]:id:filename:type".
// The body is encrypted like any other message text.
func (a Attachment) String() string {
	return attachmentPrefix + a.ID + ":" + a.Filename + ":" + a.ContentType
}

// ParseAttachment recognizes a decrypted message body that announces a
// file. Filenames may contain colons; IDs and content types may not.
func ParseAttachment(text string) (Attachment, bool) {
	rest, ok := strings.CutPrefix(text, attachmentPrefix)
	if !ok {
		return Attachment{}, false
	}
	id, rest, ok := strings.Cut(rest, ":")
	if !ok {
		return Attachment{}, false
	}
	split := strings.LastIndexByte(rest, ':')
	if split < 0 {
		return Attachment{}, false
	}
	attachment := Attachment{ID: id, Filename: rest[:split], ContentType: rest[split+1:]}
	if attachment.ID == "" || attachment.Filename == "" || attachment.ContentType == "" {
		return Attachment{}, false
	}
	return attachment, true
}
