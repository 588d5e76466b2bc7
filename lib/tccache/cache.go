// Copyright 2026 The tcbot Authors
// SPDX-License-Identifier: Apache-2.0

package tccache

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tcbot-project/tcbot/lib/codec"
	"github.com/tcbot-project/tcbot/lib/kvstore"
)

// Cache is a typed view of one store namespace. Keys and values are
// CBOR-encoded with the deterministic encoder, so equal keys always
// map to equal bytes; values are framed with [kvstore.EncodeFrame].
type Cache[K comparable, V any] struct {
	name      string
	namespace string
	store     kvstore.Store
	frame     kvstore.FrameOptions
	logger    *slog.Logger
	metrics   *Metrics
}

// CacheConfig configures [NewCache].
type CacheConfig struct {
	// ServerID and Name form the namespace "<ServerID>.<Name>".
	ServerID string
	Name     string

	Store kvstore.Store
	Frame kvstore.FrameOptions

	// Logger receives a warning for every discarded record. Defaults
	// to slog.Default().
	Logger *slog.Logger

	// Metrics is optional.
	Metrics *Metrics
}

// NewCache returns the cache for cfg's namespace.
func NewCache[K comparable, V any](cfg CacheConfig) *Cache[K, V] {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache[K, V]{
		name:      cfg.Name,
		namespace: Namespace(cfg.ServerID, cfg.Name),
		store:     cfg.Store,
		frame:     cfg.Frame,
		logger:    logger,
		metrics:   cfg.Metrics,
	}
}

// Namespace returns the store namespace of a server's cache.
func Namespace(serverID, name string) string {
	return serverID + "." + name
}

// Name returns the logical cache name.
func (c *Cache[K, V]) Name() string { return c.name }

// Namespace returns the store namespace.
func (c *Cache[K, V]) Namespace() string { return c.namespace }

func (c *Cache[K, V]) encodeKey(key K) ([]byte, error) {
	encoded, err := codec.Marshal(key)
	if err != nil {
		return nil, fmt.Errorf("encoding key %v: %w", key, err)
	}
	return encoded, nil
}

// Get returns the value stored under key. A value that fails to
// decode is deleted and reported as absent.
func (c *Cache[K, V]) Get(ctx context.Context, key K) (V, bool, error) {
	var zero V
	encodedKey, err := c.encodeKey(key)
	if err != nil {
		return zero, false, storeError("get "+c.name, err)
	}
	frame, found, err := c.store.Get(ctx, c.namespace, encodedKey)
	if err != nil {
		return zero, false, storeError("get "+c.name, err)
	}
	if !found {
		c.metrics.lookup(c.name, lookupMiss)
		return zero, false, nil
	}
	value, err := c.decodeValue(frame)
	if err != nil {
		if discardErr := c.discard(ctx, encodedKey, err); discardErr != nil {
			return zero, false, discardErr
		}
		c.metrics.lookup(c.name, lookupMiss)
		return zero, false, nil
	}
	c.metrics.lookup(c.name, lookupHit)
	return value, true, nil
}

// Raw returns the stored CBOR encoding of the value under key, with
// the frame checksum verified and the payload decompressed. A frame
// that fails verification is reported as KindInconsistent and left in
// place.
func (c *Cache[K, V]) Raw(ctx context.Context, key K) ([]byte, bool, error) {
	encodedKey, err := c.encodeKey(key)
	if err != nil {
		return nil, false, storeError("get "+c.name, err)
	}
	frame, found, err := c.store.Get(ctx, c.namespace, encodedKey)
	if err != nil {
		return nil, false, storeError("get "+c.name, err)
	}
	if !found {
		return nil, false, nil
	}
	payload, err := kvstore.DecodeFrame(frame)
	if err != nil {
		return nil, true, &Error{Kind: KindInconsistent, Op: "get " + c.name, Err: err}
	}
	return payload, true, nil
}

func (c *Cache[K, V]) decodeValue(frame []byte) (V, error) {
	var value V
	payload, err := kvstore.DecodeFrame(frame)
	if err != nil {
		return value, err
	}
	if err := codec.Unmarshal(payload, &value); err != nil {
		return value, err
	}
	return value, nil
}

// Put stores value under key.
func (c *Cache[K, V]) Put(ctx context.Context, key K, value V) error {
	encodedKey, err := c.encodeKey(key)
	if err != nil {
		return storeError("put "+c.name, err)
	}
	payload, err := codec.Marshal(value)
	if err != nil {
		return storeError("put "+c.name, fmt.Errorf("encoding value: %w", err))
	}
	frame, err := kvstore.EncodeFrame(payload, c.frame)
	if err != nil {
		return storeError("put "+c.name, err)
	}
	if err := c.store.Put(ctx, c.namespace, encodedKey, frame); err != nil {
		return storeError("put "+c.name, err)
	}
	return nil
}

// Delete removes key.
func (c *Cache[K, V]) Delete(ctx context.Context, key K) error {
	encodedKey, err := c.encodeKey(key)
	if err != nil {
		return storeError("delete "+c.name, err)
	}
	if err := c.store.Delete(ctx, c.namespace, encodedKey); err != nil {
		return storeError("delete "+c.name, err)
	}
	return nil
}

// Scan calls fn for every decodable entry. Entries that fail to decode
// are skipped with a warning and left in place. Entries written during
// the scan may or may not be visited. An error from fn stops the scan
// and is returned unchanged.
func (c *Cache[K, V]) Scan(ctx context.Context, fn func(key K, value V) error) error {
	var visitErr error
	err := c.store.Scan(ctx, c.namespace, func(encodedKey, frame []byte) error {
		var key K
		if err := codec.Unmarshal(encodedKey, &key); err != nil {
			c.logger.Warn("skipping undecodable cache key",
				"namespace", c.namespace, "error", err)
			return nil
		}
		value, err := c.decodeValue(frame)
		if err != nil {
			c.logger.Warn("skipping undecodable cache value",
				"namespace", c.namespace, "key", key, "error", err)
			return nil
		}
		visitErr = fn(key, value)
		return visitErr
	})
	if visitErr != nil {
		return visitErr
	}
	if err != nil {
		return storeError("scan "+c.name, err)
	}
	return nil
}

// Discard deletes the record under key as inconsistent: it decoded
// but cannot be trusted, for example because it names another build.
func (c *Cache[K, V]) Discard(ctx context.Context, key K, reason error) error {
	encodedKey, err := c.encodeKey(key)
	if err != nil {
		return storeError("discard "+c.name, err)
	}
	return c.discard(ctx, encodedKey, reason)
}

// discard deletes a record that cannot be trusted.
func (c *Cache[K, V]) discard(ctx context.Context, encodedKey []byte, reason error) error {
	inconsistent := &Error{Kind: KindInconsistent, Op: "get " + c.name, Err: reason}
	c.logger.Warn("discarding inconsistent cache record",
		"namespace", c.namespace, "kind", inconsistent.Kind.String(), "error", inconsistent)
	c.metrics.discarded(c.name)
	if err := c.store.Delete(ctx, c.namespace, encodedKey); err != nil {
		return storeError("discard "+c.name, err)
	}
	return nil
}
