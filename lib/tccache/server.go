// Copyright 2026 The tcbot Authors
// SPDX-License-Identifier: Apache-2.0

package tccache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/tcbot-project/tcbot/lib/clock"
	"github.com/tcbot-project/tcbot/lib/compact"
	"github.com/tcbot-project/tcbot/lib/compress"
	"github.com/tcbot-project/tcbot/lib/kvstore"
	"github.com/tcbot-project/tcbot/lib/runstat"
	"github.com/tcbot-project/tcbot/lib/teamcity"
)

// Cache names. The store namespace of each is "<server id>.<name>".
const (
	CacheFinishedBuilds              = "finishedBuilds"
	CacheFinishedBuildsIncludeFailed = "finishedBuildsIncludeFailed"
	CacheBuildResults                = "buildResults"
	CacheProblems                    = "problems"
	CacheTests                       = "tests"
	CacheStat                        = "stat"
	CacheTestFull                    = "testOccurrenceFull"
	CacheFatBuilds                   = "fatBuilds"
)

// DefaultFinishedBuildsTTL is how long a fetched build list is served
// before the server is asked again.
const DefaultFinishedBuildsTTL = 60 * time.Second

// ServerConfig configures [NewServer].
type ServerConfig struct {
	// ServerID names the TeamCity server; it prefixes every cache
	// namespace. Required.
	ServerID string

	// Source fetches from the server. Required.
	Source Source

	// Store holds every cache. Required.
	Store kvstore.Store

	// Strings interns the string fields of compact build records.
	// Required.
	Strings compact.Interner

	// Clock stamps and ages build-list envelopes. Defaults to
	// clock.Real().
	Clock clock.Clock

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// FinishedBuildsTTL defaults to DefaultFinishedBuildsTTL.
	FinishedBuildsTTL time.Duration

	// Compression is the preferred codec for stored values.
	Compression compress.Tag

	// Metrics is optional.
	Metrics *Metrics
}

// Server serves one TeamCity server's build data through the caches.
// Its methods are safe for concurrent use, with the guarantees
// described in the package documentation.
type Server struct {
	serverID string
	source   Source
	strings  compact.Interner
	clock    clock.Clock
	logger   *slog.Logger
	ttl      time.Duration
	metrics  *Metrics

	finishedBuilds              *Cache[teamcity.SuiteInBranch, Envelope[[]teamcity.BuildRef]]
	finishedBuildsIncludeFailed *Cache[teamcity.SuiteInBranch, Envelope[[]teamcity.BuildRef]]
	buildResults                *Cache[string, *teamcity.Build]
	problems                    *Cache[string, *teamcity.ProblemOccurrences]
	tests                       *Cache[string, *teamcity.TestOccurrences]
	stat                        *Cache[string, *teamcity.Statistics]
	testFull                    *Cache[string, *teamcity.TestOccurrence]
	fatBuilds                   *Cache[int32, *compact.FatBuild]
}

// NewServer validates cfg and binds the caches.
func NewServer(cfg ServerConfig) (*Server, error) {
	switch {
	case cfg.ServerID == "":
		return nil, errors.New("tccache: ServerID is required")
	case cfg.Source == nil:
		return nil, errors.New("tccache: Source is required")
	case cfg.Store == nil:
		return nil, errors.New("tccache: Store is required")
	case cfg.Strings == nil:
		return nil, errors.New("tccache: Strings is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.FinishedBuildsTTL <= 0 {
		cfg.FinishedBuildsTTL = DefaultFinishedBuildsTTL
	}
	logger := cfg.Logger.With("server", cfg.ServerID)

	cacheConfig := func(name string) CacheConfig {
		return CacheConfig{
			ServerID: cfg.ServerID,
			Name:     name,
			Store:    cfg.Store,
			Frame:    kvstore.FrameOptions{Compression: cfg.Compression},
			Logger:   logger,
			Metrics:  cfg.Metrics,
		}
	}
	return &Server{
		serverID: cfg.ServerID,
		source:   cfg.Source,
		strings:  cfg.Strings,
		clock:    cfg.Clock,
		logger:   logger,
		ttl:      cfg.FinishedBuildsTTL,
		metrics:  cfg.Metrics,

		finishedBuilds:              NewCache[teamcity.SuiteInBranch, Envelope[[]teamcity.BuildRef]](cacheConfig(CacheFinishedBuilds)),
		finishedBuildsIncludeFailed: NewCache[teamcity.SuiteInBranch, Envelope[[]teamcity.BuildRef]](cacheConfig(CacheFinishedBuildsIncludeFailed)),
		buildResults:                NewCache[string, *teamcity.Build](cacheConfig(CacheBuildResults)),
		problems:                    NewCache[string, *teamcity.ProblemOccurrences](cacheConfig(CacheProblems)),
		tests:                       NewCache[string, *teamcity.TestOccurrences](cacheConfig(CacheTests)),
		stat:                        NewCache[string, *teamcity.Statistics](cacheConfig(CacheStat)),
		testFull:                    NewCache[string, *teamcity.TestOccurrence](cacheConfig(CacheTestFull)),
		fatBuilds:                   NewCache[int32, *compact.FatBuild](cacheConfig(CacheFatBuilds)),
	}, nil
}

// ServerID returns the id the caches are namespaced by.
func (s *Server) ServerID() string { return s.serverID }

// GetFinishedBuilds returns the finished builds of suiteID on branch
// in ascending id order. The list is refreshed from the server at most
// once per TTL; each refresh is merged into the stored list by build
// id, so builds the server no longer lists are kept.
func (s *Server) GetFinishedBuilds(ctx context.Context, suiteID, branch string) ([]teamcity.BuildRef, error) {
	return s.finishedBuildList(ctx, s.finishedBuilds, s.source.FinishedBuilds, suiteID, branch)
}

// GetFinishedBuildsIncludeSnDepFailed is GetFinishedBuilds including
// builds that failed to start because a snapshot dependency failed.
// It has its own cache and TTL window.
func (s *Server) GetFinishedBuildsIncludeSnDepFailed(ctx context.Context, suiteID, branch string) ([]teamcity.BuildRef, error) {
	return s.finishedBuildList(ctx, s.finishedBuildsIncludeFailed, s.source.FinishedBuildsIncludeSnDepFailed, suiteID, branch)
}

func (s *Server) finishedBuildList(
	ctx context.Context,
	cache *Cache[teamcity.SuiteInBranch, Envelope[[]teamcity.BuildRef]],
	fetch func(ctx context.Context, suiteID, branch string) ([]teamcity.BuildRef, error),
	suiteID, branch string,
) ([]teamcity.BuildRef, error) {
	key := teamcity.SuiteInBranch{SuiteID: suiteID, Branch: branch}
	builds, err := TimedLoadOrMerge(ctx, cache, s.clock, s.ttl, key,
		func(ctx context.Context, key teamcity.SuiteInBranch, previous *[]teamcity.BuildRef) ([]teamcity.BuildRef, error) {
			actual, err := fetch(ctx, key.SuiteID, key.Branch)
			if err != nil {
				return nil, err
			}
			var persisted []teamcity.BuildRef
			if previous != nil {
				persisted = *previous
			}
			return MergeByID(persisted, actual), nil
		})
	if err != nil {
		return nil, remoteError(cache.Name()+" "+key.String(), err)
	}
	return builds, nil
}

// GetBuildResults returns the build at href.
//
// Finished builds are cached; running ones are fetched every time. A
// build the server reports as missing is cached as a fake stub and
// the stub is returned, so it is fetched only once. When a fetched
// build has no project id it is fetched once more and the second
// answer replaces the cached one, whatever it holds; if that second
// fetch fails the first answer is returned.
func (s *Server) GetBuildResults(ctx context.Context, href string) (*teamcity.Build, error) {
	build, err := LoadIfAbsent(ctx, s.buildResults, href, s.source.BuildResults, (*teamcity.Build).HasFinishDate)
	if err != nil {
		if KindOf(err) != KindNotFound {
			return nil, remoteError("get build results "+href, err)
		}
		s.logger.Warn("build not found on server, caching fake build", "href", href, "error", err)
		stub := &teamcity.Build{FakeStub: true}
		if err := s.buildResults.Put(ctx, href, stub); err != nil {
			return nil, err
		}
		s.metrics.stubStored(s.serverID)
		return stub, nil
	}

	if build.IsFakeStub() || build.ProjectID() != "" {
		return build, nil
	}
	repaired, err := s.source.BuildResults(ctx, href)
	if err != nil {
		s.logger.Warn("re-fetching build without project id failed", "href", href, "error", err)
		s.metrics.repair(loadError)
		return build, nil
	}
	if err := s.buildResults.Put(ctx, href, repaired); err != nil {
		return nil, err
	}
	s.metrics.repair(loadStored)
	return repaired, nil
}

// GetProblems returns the problem occurrences at href.
func (s *Server) GetProblems(ctx context.Context, href string) (*teamcity.ProblemOccurrences, error) {
	problems, err := LoadIfAbsent(ctx, s.problems, href, s.source.Problems, nil)
	if err != nil {
		return nil, remoteError("get problems "+href, err)
	}
	return problems, nil
}

// GetTests returns the test occurrences at href.
func (s *Server) GetTests(ctx context.Context, href string) (*teamcity.TestOccurrences, error) {
	tests, err := LoadIfAbsent(ctx, s.tests, href, s.source.Tests, nil)
	if err != nil {
		return nil, remoteError("get tests "+href, err)
	}
	return tests, nil
}

// GetTestFull returns the single test occurrence at href.
func (s *Server) GetTestFull(ctx context.Context, href string) (*teamcity.TestOccurrence, error) {
	occurrence, err := LoadIfAbsent(ctx, s.testFull, href, s.source.TestFull, nil)
	if err != nil {
		return nil, remoteError("get test "+href, err)
	}
	return occurrence, nil
}

// GetBuildStat returns the statistics at href.
func (s *Server) GetBuildStat(ctx context.Context, href string) (*teamcity.Statistics, error) {
	stats, err := LoadIfAbsent(ctx, s.stat, href, s.source.Statistics, nil)
	if err != nil {
		return nil, remoteError("get statistics "+href, err)
	}
	return stats, nil
}

// TestStats folds every cached test list into per-test statistics.
func (s *Server) TestStats(ctx context.Context) (map[string]*runstat.RunStat, error) {
	return runstat.Analyze(ctx, func(ctx context.Context, visit func(*teamcity.TestOccurrences) error) error {
		return s.tests.Scan(ctx, func(_ string, tests *teamcity.TestOccurrences) error {
			return visit(tests)
		})
	})
}

// TopFailing returns the n cached tests with the highest fail rate.
func (s *Server) TopFailing(ctx context.Context, n int) ([]runstat.TestRunStat, error) {
	stats, err := s.TestStats(ctx)
	if err != nil {
		return nil, err
	}
	return runstat.TopFailing(stats, n), nil
}

// TopLongRunning returns the n cached tests with the longest mean
// duration.
func (s *Server) TopLongRunning(ctx context.Context, n int) ([]runstat.TestRunStat, error) {
	stats, err := s.TestStats(ctx)
	if err != nil {
		return nil, err
	}
	return runstat.TopLongRunning(stats, n), nil
}
