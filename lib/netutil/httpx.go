// Copyright 2026 The TalkaNova Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil holds the small HTTP and connection helpers shared
// by the relay, its client, and the data-channel transport.
//
// JSON bodies in both directions are bounded by [MaxBodySize]. The
// relay API only ever carries session descriptions, candidates, and
// key bundles, all a few kilobytes at most.
package netutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// MaxBodySize bounds every JSON body read by this module.
const MaxBodySize int64 = 1 << 20

// ErrBodyTooLarge reports a body that exceeds MaxBodySize.
var ErrBodyTooLarge = errors.New("netutil: body exceeds size limit")

// ReadBody reads at most MaxBodySize bytes. A longer body is an error
// rather than a silent truncation.
func ReadBody(body io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(body, MaxBodySize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > MaxBodySize {
		return nil, ErrBodyTooLarge
	}
	return data, nil
}

// DecodeJSON reads a bounded body and decodes it into v.
func DecodeJSON(body io.Reader, v any) error {
	data, err := ReadBody(body)
	if err != nil {
		return fmt.Errorf("reading body: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding body: %w", err)
	}
	return nil
}

// ErrorBody returns an error response body for use in a message. Read
// errors are ignored; a partial body is still useful.
func ErrorBody(body io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(body, 4096))
	return string(data)
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes {"detail": message}, the error shape the relay
// API uses.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{"detail": message})
}
