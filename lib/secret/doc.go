// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret keeps passwords and access tokens in protected
// memory for their whole lifetime.
//
// [Buffer] backs the secret with an anonymous mmap region outside the
// Go heap: mlock keeps it out of swap, madvise(MADV_DONTDUMP) keeps it
// out of core dumps, and Close zeroes it before unmapping. [Zero]
// scrubs transient byte slices that held secret material before it
// reached a Buffer.
//
// Read through [Buffer.Bytes] (aliases the region) or [Buffer.String]
// (heap copy, only for APIs that insist on strings). Any read after
// Close panics.
//
// The messaging client holds the access token this way; the login
// prompt holds the homeserver password this way.
package secret
