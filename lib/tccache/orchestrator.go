// Copyright 2026 The tcbot Authors
// SPDX-License-Identifier: Apache-2.0

package tccache

import (
	"context"
	"time"

	"github.com/tcbot-project/tcbot/lib/clock"
)

// LoadFunc fetches the value for key from the source of truth.
type LoadFunc[K, V any] func(ctx context.Context, key K) (V, error)

// MergeFunc fetches the current value for key and combines it with
// previous, the value last stored under key (nil when there is none).
type MergeFunc[K, V any] func(ctx context.Context, key K, previous *V) (V, error)

// Envelope is a value stamped with the time it was written.
type Envelope[V any] struct {
	_ struct{} `cbor:",toarray"`
	// WrittenAt is epoch milliseconds.
	WrittenAt int64
	Value     V
}

// Fresh reports whether the envelope is younger than ttl at now.
func (e Envelope[V]) Fresh(now time.Time, ttl time.Duration) bool {
	return now.UnixMilli()-e.WrittenAt < ttl.Milliseconds()
}

// LoadIfAbsent returns the value cached under key. On a miss it calls
// load and stores the result if accept approves it (a nil accept
// approves everything), then returns the result whether or not it was
// stored. load is never called when a value is cached. Errors from
// load are returned as they are.
//
// Concurrent misses for one key may each call load; the last Put
// wins.
func LoadIfAbsent[K comparable, V any](ctx context.Context, cache *Cache[K, V], key K, load LoadFunc[K, V], accept func(V) bool) (V, error) {
	cached, found, err := cache.Get(ctx, key)
	if err != nil {
		var zero V
		return zero, err
	}
	if found {
		return cached, nil
	}

	loaded, err := load(ctx, key)
	if err != nil {
		cache.metrics.load(cache.name, loadError)
		var zero V
		return zero, err
	}
	if accept != nil && !accept(loaded) {
		cache.metrics.load(cache.name, loadRejected)
		return loaded, nil
	}
	cache.metrics.load(cache.name, loadStored)
	if err := cache.Put(ctx, key, loaded); err != nil {
		var zero V
		return zero, err
	}
	return loaded, nil
}

// TimedLoadOrMerge returns the value cached under key while its
// envelope is younger than ttl. Otherwise it calls merge with the
// previous value, stores the result in a new envelope stamped with the
// current time, and returns it. The envelope is rewritten on every
// refresh, even when merge returns the previous value unchanged, so a
// key is refreshed at most once per ttl. Errors from merge are
// returned as they are and leave the old envelope in place.
//
// Concurrent refreshes of one key may each call merge; the last Put
// wins.
func TimedLoadOrMerge[K comparable, V any](ctx context.Context, cache *Cache[K, Envelope[V]], clk clock.Clock, ttl time.Duration, key K, merge MergeFunc[K, V]) (V, error) {
	envelope, found, err := cache.Get(ctx, key)
	if err != nil {
		var zero V
		return zero, err
	}
	var previous *V
	if found {
		if envelope.Fresh(clk.Now(), ttl) {
			return envelope.Value, nil
		}
		cache.metrics.lookup(cache.name, lookupExpired)
		previous = &envelope.Value
	}

	merged, err := merge(ctx, key, previous)
	if err != nil {
		cache.metrics.load(cache.name, loadError)
		var zero V
		return zero, err
	}
	cache.metrics.load(cache.name, loadStored)
	if err := cache.Put(ctx, key, Envelope[V]{WrittenAt: clock.UnixMilli(clk), Value: merged}); err != nil {
		var zero V
		return zero, err
	}
	return merged, nil
}
