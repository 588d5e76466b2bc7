// Copyright 2026 The tcbot Authors
// SPDX-License-Identifier: Apache-2.0

// Package tccache is the read-through cache between tcbot and a
// TeamCity server.
//
// Two primitives carry all caching policy. [LoadIfAbsent] serves a
// stored value when there is one and otherwise loads, conditionally
// stores, and returns a fresh one. [TimedLoadOrMerge] keeps a value in
// an [Envelope] stamped with its write time; once the envelope is as
// old as the TTL, the next read hands the previous value to a merge
// function and stores whatever it returns under a new stamp.
//
// Neither primitive locks across its read and its write. Concurrent
// misses on one key each run the loader and each write its result:
// fetches happen at least once, the last write wins, and duplicate
// fetches are not suppressed. Loaders are remote reads, so repeating
// one is harmless.
//
// [Server] binds the primitives to one TeamCity server. Every cache
// lives in the [kvstore.Store] namespace "<server id>.<cache name>",
// so several servers can share a store. Build results that the server
// reports as missing are cached as fake stubs, so a build that was
// deleted upstream is asked for once.
//
// Errors carry a [Kind]. Remote failures propagate unchanged in
// meaning; store failures are [KindStore] and are not recoverable by
// the caller; records that fail to decode or belong to another key are
// deleted, logged, and treated as absent.
package tccache
