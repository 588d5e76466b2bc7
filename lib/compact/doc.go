// Copyright 2026 The tcbot Authors
// SPDX-License-Identifier: Apache-2.0

// Package compact packs TeamCity builds into compact build records:
// the dense, versioned form tcbot persists for every finished build.
//
// A [FatBuild] holds a build's identity, timestamps, tests, problems,
// statistics, change ids, snapshot dependency ids, and trigger data.
// Every string is replaced by its id from an [Interner], every absent
// timestamp or id by -1, and every boolean by a two-bit tri-state slot
// in one [Flags] word. Free-text details are stored zstd-compressed.
//
// Conversion is explicit in both directions:
//
//	record := compact.New(strings, build)
//	record.AddTests(strings, tests.TestOccurrence)
//	...
//	build := record.ToBuild(strings)
//
// Hrefs are not stored. Decoding regenerates them from ids in the
// formats of lib/teamcity (for example
// "/app/rest/latest/testOccurrences?locator=build:(id:42)").
//
// A record carries a schema Version. Readers call [FatBuild.Migrate]
// with the key the record was stored under before trusting it: records
// at [VersionIDConflictsPossible] are upgraded only if their id
// matches the key, otherwise they must be discarded.
package compact
