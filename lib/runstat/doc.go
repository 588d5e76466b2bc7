// Copyright 2026 The tcbot Authors
// SPDX-License-Identifier: Apache-2.0

// Package runstat aggregates test and suite run statistics from cached
// build data.
//
// [Analyze] folds every cached test occurrence into a per-test
// [RunStat]. It keeps nothing between calls: each call scans the whole
// corpus again, and because the fold only adds counters the result
// does not depend on scan order. [Top] selects the highest-ranked
// entries with a bounded heap. [History] folds the classified
// invocations of one suite.
package runstat
