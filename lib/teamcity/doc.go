// Copyright 2026 The tcbot Authors
// SPDX-License-Identifier: Apache-2.0

// Package teamcity is the domain model of TeamCity REST resources
// (builds, test occurrences, problem occurrences, statistics, changes)
// and a thin typed client for the endpoints tcbot reads.
//
// The types mirror the REST JSON closely enough to decode server
// responses directly. They are also the verbose form that
// lib/compact packs into compact build records.
//
// Resource addresses are hrefs relative to the server root, exactly as
// TeamCity returns them in "href" fields. The helpers in hrefs.go
// build the same hrefs from ids so that compact records need not store
// them.
package teamcity
