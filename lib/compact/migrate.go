// Copyright 2026 The tcbot Authors
// SPDX-License-Identifier: Apache-2.0

package compact

// Migration is the outcome of FatBuild.Migrate.
type Migration uint8

const (
	// MigrationCurrent: the record is at the latest version.
	MigrationCurrent Migration = iota

	// MigrationUpgraded: the record passed the id check and now
	// carries LatestVersion. The caller must write it back.
	MigrationUpgraded

	// MigrationDiscard: the record is untrustworthy and must be
	// deleted.
	MigrationDiscard
)

func (m Migration) String() string {
	switch m {
	case MigrationCurrent:
		return "current"
	case MigrationUpgraded:
		return "upgraded"
	case MigrationDiscard:
		return "discard"
	default:
		return "invalid"
	}
}

// Migrate checks a record read under key. Records older than
// VersionIDConflictsPossible predate the current field set and are
// discarded. Records at that version are upgraded when their id equals
// key and discarded otherwise. Newer records are left alone.
func (b *FatBuild) Migrate(key int32) Migration {
	switch {
	case b.Version >= LatestVersion:
		return MigrationCurrent
	case b.Version < VersionIDConflictsPossible:
		return MigrationDiscard
	case b.ID != key:
		return MigrationDiscard
	}
	b.Version = LatestVersion
	return MigrationUpgraded
}
