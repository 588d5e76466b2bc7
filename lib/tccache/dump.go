// Copyright 2026 The tcbot Authors
// SPDX-License-Identifier: Apache-2.0

package tccache

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/tcbot-project/tcbot/lib/codec"
	"github.com/tcbot-project/tcbot/lib/teamcity"
)

// DumpEntry returns the stored value of one cache entry in CBOR
// diagnostic notation. The key is written the way the cache is keyed:
// "suite@branch" for the build lists, a build id for fatBuilds and the
// REST href for everything else. found is false when nothing is stored.
func (s *Server) DumpEntry(ctx context.Context, cache, key string) (diagnosis string, found bool, err error) {
	var payload []byte
	switch cache {
	case CacheFinishedBuilds, CacheFinishedBuildsIncludeFailed:
		suite, branch, ok := strings.Cut(key, "@")
		if !ok || suite == "" {
			return "", false, fmt.Errorf("tccache: %s keys are suite@branch, got %q", cache, key)
		}
		lists := s.finishedBuilds
		if cache == CacheFinishedBuildsIncludeFailed {
			lists = s.finishedBuildsIncludeFailed
		}
		payload, found, err = lists.Raw(ctx, teamcity.SuiteInBranch{SuiteID: suite, Branch: branch})
	case CacheFatBuilds:
		id, parseErr := strconv.ParseInt(key, 10, 32)
		if parseErr != nil || id <= 0 {
			return "", false, fmt.Errorf("tccache: %s keys are build ids, got %q", cache, key)
		}
		payload, found, err = s.fatBuilds.Raw(ctx, int32(id))
	case CacheBuildResults:
		payload, found, err = s.buildResults.Raw(ctx, key)
	case CacheProblems:
		payload, found, err = s.problems.Raw(ctx, key)
	case CacheTests:
		payload, found, err = s.tests.Raw(ctx, key)
	case CacheStat:
		payload, found, err = s.stat.Raw(ctx, key)
	case CacheTestFull:
		payload, found, err = s.testFull.Raw(ctx, key)
	default:
		return "", false, fmt.Errorf("tccache: unknown cache %q (known: %s)", cache, strings.Join(CacheNames(), ", "))
	}
	if err != nil || !found {
		return "", found, err
	}
	diagnosis, err = codec.Diagnose(payload)
	if err != nil {
		return "", true, &Error{Kind: KindInconsistent, Op: "dump " + cache, Err: err}
	}
	return diagnosis, true, nil
}

// CacheNames lists the caches DumpEntry accepts.
func CacheNames() []string {
	return []string{
		CacheFinishedBuilds,
		CacheFinishedBuildsIncludeFailed,
		CacheBuildResults,
		CacheProblems,
		CacheTests,
		CacheStat,
		CacheTestFull,
		CacheFatBuilds,
	}
}
