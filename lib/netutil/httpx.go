// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil bounds HTTP response reads. Matrix homeservers are
// remote input: a misbehaving or malicious server must not be able to
// drive unbounded memory allocation through a response body.
package netutil

import (
	"fmt"
	"io"
)

// MaxResponseSize caps JSON API response bodies at 256 MB. Legitimate
// client-server responses are orders of magnitude smaller; the cap is
// generous so a large initial sync never trips it. Media downloads
// should stream with io.Copy instead of passing through here.
const MaxResponseSize int64 = 256 << 20

// ReadResponse reads an API response body, failing if it exceeds
// MaxResponseSize rather than silently truncating a partial JSON
// document.
func ReadResponse(body io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(body, MaxResponseSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > MaxResponseSize {
		return nil, fmt.Errorf("netutil: response body exceeds %d bytes", MaxResponseSize)
	}
	return data, nil
}
