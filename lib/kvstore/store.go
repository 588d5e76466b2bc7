// Copyright 2026 The tcbot Authors
// SPDX-License-Identifier: Apache-2.0

package kvstore

import (
	"context"
	"errors"
	"fmt"
)

// Store is a namespaced byte key-value store.
type Store interface {
	// Get returns the value stored under key. A missing key is
	// reported as found == false with a nil error.
	Get(ctx context.Context, namespace string, key []byte) (value []byte, found bool, err error)

	// Put stores value under key, replacing any previous value.
	Put(ctx context.Context, namespace string, key, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, namespace string, key []byte) error

	// Scan calls fn for every entry of namespace. Memory and SQLite
	// visit keys in byte order; Redis order is unspecified. fn may
	// call back into the store. A non-nil error from fn stops the
	// scan and is returned unchanged.
	Scan(ctx context.Context, namespace string, fn func(key, value []byte) error) error

	// Close releases the backend's resources.
	Close() error
}

// ErrClosed is returned by operations on a closed Memory store.
var ErrClosed = errors.New("kvstore: store is closed")

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Options selects and configures a backend for Open.
type Options struct {
	Backend string
	SQLite  SQLiteConfig
	Redis   RedisConfig
}

// Open constructs the backend named by opts.Backend.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case BackendMemory, "":
		return NewMemory(), nil
	case BackendSQLite:
		return OpenSQLite(opts.SQLite)
	case BackendRedis:
		return NewRedis(ctx, opts.Redis)
	default:
		return nil, fmt.Errorf("kvstore: unknown backend %q", opts.Backend)
	}
}
