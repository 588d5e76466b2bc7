// Copyright 2026 The tcbot Authors
// SPDX-License-Identifier: Apache-2.0

// Package kvstore is the byte-level key-value store underneath the
// build-result cache.
//
// A Store holds independent namespaces; tccache names them
// "<server-id>.<cache-name>". Three backends implement Store:
//
//   - [Memory]: process-local maps, for tests and one-shot CLI runs.
//   - [SQLite]: a single table in a zombiezen SQLite pool, the default
//     durable backend.
//   - [Redis]: one Redis hash per namespace, for deployments where
//     several tcbot processes share a cache.
//
// Every backend is safe for concurrent use. Store does not interpret
// values; [EncodeFrame] and [DecodeFrame] add the compression and
// integrity envelope that the cache layer writes around each value.
package kvstore
