// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

// Package ref provides validated, immutable Matrix identifier types:
// user IDs, room IDs, room aliases, event IDs, and event types.
//
// Identifiers arrive from the homeserver (sync responses, pagination
// chunks, send acknowledgements) and from user input (room aliases on
// the command line). They are parsed into these types at the boundary;
// everything past the boundary works with validated values and never
// re-checks sigils or separators.
//
// All constructors validate their inputs and return errors for invalid
// identifiers. Once constructed a ref is immutable. The zero value of
// every type is "unset" and reports true from IsZero.
//
// JSON marshaling uses the canonical Matrix string form via
// encoding.TextMarshaler, so map keys and struct fields round-trip
// through sync response decoding with validation applied.
package ref
