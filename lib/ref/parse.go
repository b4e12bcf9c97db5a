// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package ref

import (
	"fmt"
	"strings"
)

// parseSigilID splits a Matrix identifier of the form
// "<sigil>localpart:server" into its localpart and server name.
// The sigil byte must already have been checked by the caller's
// wrapper; this helper validates everything after it.
func parseSigilID(raw string, sigil byte, label string) (localpart, server string, err error) {
	if raw == "" {
		return "", "", fmt.Errorf("empty %s", label)
	}
	if raw[0] != sigil {
		return "", "", fmt.Errorf("%s must start with %q: %q", label, string(sigil), raw)
	}

	colonIndex := strings.IndexByte(raw[1:], ':')
	if colonIndex < 0 {
		return "", "", fmt.Errorf("%s missing ':server' suffix: %q", label, raw)
	}
	if colonIndex == 0 {
		return "", "", fmt.Errorf("%s has empty localpart: %q", label, raw)
	}

	localpart = raw[1 : 1+colonIndex]
	server = raw[1+colonIndex+1:]
	if server == "" {
		return "", "", fmt.Errorf("%s has empty server name: %q", label, raw)
	}
	for i := 0; i < len(server); i++ {
		c := server[i]
		if c <= ' ' || c == '@' || c == '#' || c == '!' {
			return "", "", fmt.Errorf("%s server name %q: invalid character at position %d", label, server, i)
		}
	}
	return localpart, server, nil
}

// mustParse backs the MustParse* constructors: parse or panic with the
// constructor's name in the message.
func mustParse[T any](raw, constructor string, parse func(string) (T, error)) T {
	value, err := parse(raw)
	if err != nil {
		panic(fmt.Sprintf("ref.%s(%q): %v", constructor, raw, err))
	}
	return value
}

// unmarshalText backs the UnmarshalText implementations on the ID
// types. Empty input produces the zero value; anything else must
// parse.
func unmarshalText[T any](data []byte, parse func(string) (T, error), target *T) error {
	if len(data) == 0 {
		var zero T
		*target = zero
		return nil
	}
	parsed, err := parse(string(data))
	if err != nil {
		return err
	}
	*target = parsed
	return nil
}
