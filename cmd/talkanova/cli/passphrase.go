// Copyright 2026 The TalkaNova Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// PassphraseVariable, when set, supplies the key store passphrase
// without prompting.
const PassphraseVariable = "TALKANOVA_PASSPHRASE"

// ErrPassphraseMismatch is returned when confirmation differs.
var ErrPassphraseMismatch = errors.New("passphrases do not match")

// Prompter reads passphrases.
type Prompter struct {
	In  io.Reader
	Out io.Writer

	lines *bufio.Reader
}

// NewPrompter prompts on the process terminal.
func NewPrompter() *Prompter {
	return &Prompter{In: os.Stdin, Out: os.Stderr}
}

// Passphrase returns the passphrase from PassphraseVariable, or asks
// for it. With confirm, it asks twice and requires a match.
func (p *Prompter) Passphrase(prompt string, confirm bool) (string, error) {
	if value := os.Getenv(PassphraseVariable); value != "" {
		return value, nil
	}
	first, err := p.ask(prompt)
	if err != nil {
		return "", err
	}
	if !confirm {
		return first, nil
	}
	second, err := p.ask("Repeat " + strings.ToLower(prompt[:1]) + prompt[1:])
	if err != nil {
		return "", err
	}
	if first != second {
		return "", ErrPassphraseMismatch
	}
	return first, nil
}

func (p *Prompter) ask(prompt string) (string, error) {
	fmt.Fprintf(p.Out, "%s: ", prompt)
	line, err := p.read()
	fmt.Fprintln(p.Out)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return line, nil
}

func (p *Prompter) read() (string, error) {
	if file, ok := p.In.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
		secret, err := term.ReadPassword(int(file.Fd()))
		return string(secret), err
	}
	// Not a terminal: read a plain line, for scripts and tests.
	if p.lines == nil {
		p.lines = bufio.NewReader(p.In)
	}
	line, err := p.lines.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
