// Copyright 2026 The tcbot Authors
// SPDX-License-Identifier: Apache-2.0

package compact

// Interner maps strings to stable small ids. Implementations must
// return -1 for the empty string, never reuse an id, and keep ids
// valid for the lifetime of the store records are written to.
// lib/intern provides the production implementation.
type Interner interface {
	ID(s string) int32
	String(id int32) string
}

// unset is the stored value of an absent id, timestamp or duration.
const unset = -1

func idOrUnset(id int) int32 {
	if id <= 0 {
		return unset
	}
	return int32(id)
}
