// Copyright 2026 The tcbot Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec is tcbot's single CBOR configuration.
//
// Everything tcbot persists (compact build records, cache envelopes,
// cache keys) goes through this package so that identical logical
// values always produce identical bytes. The encoder uses Core
// Deterministic Encoding (RFC 8949 §4.2): sorted map keys, smallest
// integer encoding, no indefinite-length items.
//
// Persisted record types use `cbor:",toarray"` so that field names never
// reach storage. A toarray struct only decodes an array of exactly its
// own arity, so record layouts change only together with the record's
// schema version.
//
// JSON stays the format of the REST APIs tcbot talks to and of CLI
// output. Types shared between the two formats carry `json` tags, which
// fxamacker/cbor reads as a fallback when no `cbor` tag is present.
package codec
