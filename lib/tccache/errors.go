// Copyright 2026 The tcbot Authors
// SPDX-License-Identifier: Apache-2.0

package tccache

import (
	"errors"
	"fmt"

	"github.com/tcbot-project/tcbot/lib/teamcity"
)

// Kind classifies a failure.
type Kind uint8

const (
	// KindTransient is a remote failure that may succeed on retry:
	// network errors, 5xx responses, timeouts.
	KindTransient Kind = iota

	// KindNotFound means the remote resource is confirmed absent.
	KindNotFound

	// KindStore is a failure of the backing key-value store.
	KindStore

	// KindInconsistent is a stored record that cannot be trusted: it
	// failed to decode or names a different build than its key.
	KindInconsistent
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindNotFound:
		return "not found"
	case KindStore:
		return "store"
	case KindInconsistent:
		return "inconsistent"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Error is a classified failure of a cache operation.
type Error struct {
	Kind Kind
	// Op names the failed operation, for example "get buildResults".
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("tccache: %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf classifies err. Errors without an [*Error] in their chain are
// NotFound when TeamCity answered 404 and Transient otherwise.
func KindOf(err error) Kind {
	var cacheError *Error
	if errors.As(err, &cacheError) {
		return cacheError.Kind
	}
	if teamcity.IsNotFound(err) {
		return KindNotFound
	}
	return KindTransient
}

// IsNotFound reports whether err means the remote resource is absent.
func IsNotFound(err error) bool { return err != nil && KindOf(err) == KindNotFound }

// remoteError classifies a loader failure. Errors already classified
// by this package pass through.
func remoteError(op string, err error) error {
	var cacheError *Error
	if errors.As(err, &cacheError) {
		return err
	}
	return &Error{Kind: KindOf(err), Op: op, Err: err}
}

func storeError(op string, err error) error {
	return &Error{Kind: KindStore, Op: op, Err: err}
}
