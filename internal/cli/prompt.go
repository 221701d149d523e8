// Copyright (c) 2025 TaskVault Project
//
// This file is part of go-taskvault.
//
// go-taskvault is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@taskvault.dev for commercial licensing options.

package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/taskvault/go-taskvault/internal/password"
	"github.com/taskvault/go-taskvault/pkg/types"
)

// stdinReader is shared across prompts so piped input is not lost to a
// discarded buffer between reads.
var stdinReader = bufio.NewReader(os.Stdin)

// promptPassword reads a passphrase without echo when stdin is a
// terminal, falling back to a plain line read for piped input.
func promptPassword(prompt string) (types.Password, error) {
	fmt.Fprint(os.Stderr, prompt)

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return nil, fmt.Errorf("failed to read passphrase: %w", err)
		}
		defer wipe(raw)
		return password.NewClearPassword(raw)
	}

	line, err := stdinReader.ReadString('\n')
	if err != nil && line == "" {
		return nil, fmt.Errorf("failed to read passphrase: %w", err)
	}
	return password.NewClearPasswordFromString(strings.TrimRight(line, "\r\n"))
}

// promptNewPassword prompts twice and verifies both entries match.
func promptNewPassword(prompt string) (types.Password, error) {
	first, err := promptPassword(prompt)
	if err != nil {
		return nil, err
	}

	second, err := promptPassword("Confirm passphrase: ")
	if err != nil {
		first.Clear()
		return nil, err
	}
	defer second.Clear()

	equal, err := password.Equal(first, second)
	if err != nil {
		first.Clear()
		return nil, err
	}
	if !equal {
		first.Clear()
		return nil, fmt.Errorf("passphrases do not match")
	}
	return first, nil
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
