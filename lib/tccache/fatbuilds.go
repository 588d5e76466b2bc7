// Copyright 2026 The tcbot Authors
// SPDX-License-Identifier: Apache-2.0

package tccache

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/tcbot-project/tcbot/lib/compact"
	"github.com/tcbot-project/tcbot/lib/runstat"
	"github.com/tcbot-project/tcbot/lib/teamcity"
)

// GetFatBuild returns the compact record of buildID, building and
// storing it from the cached resources on a miss.
//
// A stored record older than the latest schema is checked against its
// key: a matching record is upgraded in place, anything else is
// deleted and rebuilt. Only records of finished builds and fake stubs
// are stored; a running build is rebuilt on every call.
func (s *Server) GetFatBuild(ctx context.Context, buildID int) (*compact.FatBuild, error) {
	if buildID <= 0 || buildID > math.MaxInt32 {
		return nil, fmt.Errorf("tccache: build id %d out of range", buildID)
	}
	key := int32(buildID)

	record, found, err := s.fatBuilds.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if found {
		switch record.Migrate(key) {
		case compact.MigrationCurrent:
			return record, nil
		case compact.MigrationUpgraded:
			if err := s.fatBuilds.Put(ctx, key, record); err != nil {
				return nil, err
			}
			return record, nil
		case compact.MigrationDiscard:
			reason := fmt.Errorf("record stored under %d names build %d (version %d)", key, record.ID, record.Version)
			if err := s.fatBuilds.Discard(ctx, key, reason); err != nil {
				return nil, err
			}
		}
	}

	record, finished, err := s.buildFatBuild(ctx, buildID)
	if err != nil {
		return nil, err
	}
	if finished || record.IsFakeStub() {
		if err := s.fatBuilds.Put(ctx, key, record); err != nil {
			return nil, err
		}
	}
	return record, nil
}

// buildFatBuild assembles a record from the build and its
// sub-resources. Sub-resources the server does not have are left
// empty.
func (s *Server) buildFatBuild(ctx context.Context, buildID int) (*compact.FatBuild, bool, error) {
	build, err := s.GetBuildResults(ctx, teamcity.BuildHref(buildID))
	if err != nil {
		return nil, false, err
	}
	if build.IsFakeStub() {
		return compact.NewFakeStub(buildID), false, nil
	}

	strings := &checkedInterner{Interner: s.strings}
	record := compact.New(strings, build)

	tests, err := s.GetTests(ctx, teamcity.TestsHref(buildID))
	if err := s.absentOK(err, "tests", buildID); err != nil {
		return nil, false, err
	}
	if tests != nil {
		record.AddTests(strings, tests.TestOccurrence)
	}

	problems, err := s.GetProblems(ctx, teamcity.ProblemsHref(buildID))
	if err := s.absentOK(err, "problems", buildID); err != nil {
		return nil, false, err
	}
	if problems != nil {
		record.AddProblems(strings, problems.ProblemOccurrence)
	}

	stats, err := s.GetBuildStat(ctx, teamcity.StatisticsHref(buildID))
	if err := s.absentOK(err, "statistics", buildID); err != nil {
		return nil, false, err
	}
	if stats != nil {
		record.SetStatistics(strings, stats)
	}

	changes, err := s.source.Changes(ctx, teamcity.ChangesHref(buildID))
	if err := s.absentOK(err, "changes", buildID); err != nil {
		return nil, false, remoteError("get changes", err)
	}
	if changes != nil {
		ids := make([]int32, 0, len(changes.Change))
		for _, change := range changes.Change {
			if change.ID > 0 && change.ID <= math.MaxInt32 {
				ids = append(ids, int32(change.ID))
			}
		}
		record.SetChanges(ids)
	}

	if strings.err != nil {
		return nil, false, storeError("intern strings of build "+strconv.Itoa(buildID), strings.err)
	}
	return record, build.HasFinishDate(), nil
}

// checkedInterner remembers the first failed id assignment, so a record
// holding an unset id in place of a string is never stored.
type checkedInterner struct {
	compact.Interner
	err error
}

func (c *checkedInterner) ID(s string) int32 {
	checked, ok := c.Interner.(interface{ Intern(string) (int32, error) })
	if !ok {
		return c.Interner.ID(s)
	}
	id, err := checked.Intern(s)
	if err != nil && c.err == nil {
		c.err = err
	}
	return id
}

// absentOK drops NotFound errors for sub-resources of a build that
// exists.
func (s *Server) absentOK(err error, resource string, buildID int) error {
	if err == nil {
		return nil
	}
	if IsNotFound(err) {
		s.logger.Debug("build sub-resource not found", "resource", resource, "build", buildID)
		return nil
	}
	return err
}

// SuiteHistory folds the newest runstat.MaxLatest finished builds of
// suiteID on branch into a run history, storing a compact record for
// each build not seen before. Fake stubs are skipped.
func (s *Server) SuiteHistory(ctx context.Context, suiteID, branch string) (*runstat.History, error) {
	refs, err := s.GetFinishedBuilds(ctx, suiteID, branch)
	if err != nil {
		return nil, err
	}
	if len(refs) > runstat.MaxLatest {
		refs = refs[len(refs)-runstat.MaxLatest:]
	}
	history := runstat.NewHistory(teamcity.SuiteInBranch{SuiteID: suiteID, Branch: branch})
	for _, ref := range refs {
		if ref.ID <= 0 {
			continue
		}
		record, err := s.GetFatBuild(ctx, ref.ID)
		if err != nil {
			return nil, err
		}
		if record.IsFakeStub() {
			continue
		}
		history.Add(record.ToInvocation(s.strings))
	}
	return history, nil
}
