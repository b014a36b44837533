// Copyright 2026 The TalkaNova Authors
// SPDX-License-Identifier: Apache-2.0

package netutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http/httptest"
	"strings"
	"syscall"
	"testing"
)

func TestReadBody(t *testing.T) {
	data, err := ReadBody(strings.NewReader(`{"status":"ok"}`))
	if err != nil || string(data) != `{"status":"ok"}` {
		t.Fatalf("ReadBody = %q, %v", data, err)
	}

	exact := bytes.Repeat([]byte("a"), int(MaxBodySize))
	if _, err := ReadBody(bytes.NewReader(exact)); err != nil {
		t.Errorf("body at the limit rejected: %v", err)
	}
	over := append(exact, 'a')
	if _, err := ReadBody(bytes.NewReader(over)); !errors.Is(err, ErrBodyTooLarge) {
		t.Errorf("oversized body error = %v, want ErrBodyTooLarge", err)
	}
}

func TestDecodeJSON(t *testing.T) {
	var result struct {
		Name string `json:"name"`
	}
	if err := DecodeJSON(strings.NewReader(`{"name":"alice"}`), &result); err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}
	if result.Name != "alice" {
		t.Errorf("name = %q", result.Name)
	}
	if err := DecodeJSON(strings.NewReader(`{broken`), &result); err == nil {
		t.Error("DecodeJSON accepted malformed JSON")
	}
}

func TestWriteError(t *testing.T) {
	recorder := httptest.NewRecorder()
	WriteError(recorder, 409, "offer already published")

	if recorder.Code != 409 {
		t.Errorf("status = %d, want 409", recorder.Code)
	}
	if got := recorder.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("content type = %q", got)
	}
	var body map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body["detail"] != "offer already published" {
		t.Errorf("detail = %q", body["detail"])
	}
}

func TestErrorBody(t *testing.T) {
	if got := ErrorBody(strings.NewReader("bad request")); got != "bad request" {
		t.Errorf("ErrorBody = %q", got)
	}
}

func TestIsExpectedCloseError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{io.EOF, true},
		{fmt.Errorf("reading frame: %w", io.EOF), true},
		{io.ErrClosedPipe, true},
		{net.ErrClosed, true},
		{&net.OpError{Op: "write", Err: syscall.EPIPE}, true},
		{syscall.ECONNRESET, true},
		{syscall.ECONNREFUSED, false},
		{errors.New("decrypt failed"), false},
	}
	for _, test := range tests {
		if got := IsExpectedCloseError(test.err); got != test.want {
			t.Errorf("IsExpectedCloseError(%v) = %v, want %v", test.err, got, test.want)
		}
	}
}
