// Copyright 2026 The Warren Authors
// SPDX-License-Identifier: Apache-2.0

// Package expand resolves the small, fixed set of shorthand tokens
// permitted in mount declarations: a leading ~, and the literal
// substrings $HOME and $USER.
//
// This is a security contract, not a convenience feature. Mount
// declarations are semi-trusted data, so the expander recognizes
// exactly three tokens and nothing else. Command substitution,
// arithmetic expansion, brace expansion, and every other $-prefixed
// name pass through byte-for-byte. Substituted values are never
// rescanned, so a HOME containing $USER cannot trigger a second
// round of expansion.
package expand

import (
	"os"
	"strings"
)

// Expand substitutes shorthand tokens in path using the given home
// and user values. The rules, applied in a single left-to-right pass:
//
//   - "~" at position 0, followed by "/" or end of string, becomes home.
//   - every literal occurrence of "$HOME" becomes home.
//   - every literal occurrence of "$USER" becomes user.
//
// A "~" anywhere past position 0 is left alone, as is "~name" at the
// start (user-qualified tilde expansion is deliberately unsupported).
// Empty input returns empty output.
func Expand(path, home, user string) string {
	if path == "" {
		return ""
	}

	var out strings.Builder
	out.Grow(len(path) + len(home))

	i := 0
	if path[0] == '~' && (len(path) == 1 || path[1] == '/') {
		out.WriteString(home)
		i = 1
	}

	for i < len(path) {
		if path[i] == '$' {
			rest := path[i:]
			switch {
			case strings.HasPrefix(rest, "$HOME"):
				out.WriteString(home)
				i += len("$HOME")
				continue
			case strings.HasPrefix(rest, "$USER"):
				out.WriteString(user)
				i += len("$USER")
				continue
			}
		}
		out.WriteByte(path[i])
		i++
	}

	return out.String()
}

// FromEnv applies Expand with the HOME and USER values of the current
// process environment.
func FromEnv(path string) string {
	return Expand(path, os.Getenv("HOME"), os.Getenv("USER"))
}
