// Copyright 2026 The tcbot Authors
// SPDX-License-Identifier: Apache-2.0

package tccache

import (
	"maps"
	"slices"
)

// Identified is anything keyed by a build id.
type Identified interface {
	BuildID() int
}

// MergeByID returns the union of persisted and actual in ascending id
// order. Where both lists hold an id, the entry from actual wins.
// Within one list a later entry replaces an earlier one with the same
// id.
//
// The merge is idempotent: MergeByID(a, a) holds the same entries as
// a, and merging the result with actual again changes nothing.
func MergeByID[T Identified](persisted, actual []T) []T {
	byID := make(map[int]T, len(persisted)+len(actual))
	for _, item := range persisted {
		byID[item.BuildID()] = item
	}
	for _, item := range actual {
		byID[item.BuildID()] = item
	}

	merged := make([]T, 0, len(byID))
	for _, id := range slices.Sorted(maps.Keys(byID)) {
		merged = append(merged, byID[id])
	}
	return merged
}
