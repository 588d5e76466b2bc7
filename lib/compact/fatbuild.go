// Copyright 2026 The tcbot Authors
// SPDX-License-Identifier: Apache-2.0

package compact

import (
	"slices"

	"github.com/tcbot-project/tcbot/lib/teamcity"
)

// Schema versions.
const (
	// VersionIDConflictsPossible records carry the full field set but
	// may have been stored under another build's key.
	VersionIDConflictsPossible int16 = 5

	// LatestVersion records have had their id checked against their
	// key.
	LatestVersion int16 = 6
)

// FatBuild is the compact record of one build and everything tcbot
// knows about it. The zero value is not useful; use New or
// NewFakeStub.
type FatBuild struct {
	BuildRef

	Version int16

	// Timestamps in epoch milliseconds, -1 when unset.
	StartDate  int64
	FinishDate int64
	QueuedDate int64

	ProjectID int32
	// Name is the build type (suite) name.
	Name int32

	Flags Flags

	tests        []Test
	problems     []Problem
	statistics   *Statistics
	changes      []int32
	snapshotDeps []int32
	triggered    *Triggered
}

// New packs the build-level fields of build. Tests, problems,
// statistics and changes come from separate resources and are added
// with the Add/Set methods.
//
// A snapshot dependency with an UNKNOWN status marks the record as
// failed to start.
func New(strings Interner, build *teamcity.Build) *FatBuild {
	record := &FatBuild{
		BuildRef:   NewBuildRef(strings, build.BuildRef),
		Version:    LatestVersion,
		StartDate:  build.StartDate.UnixMilli(),
		FinishDate: build.FinishDate.UnixMilli(),
		QueuedDate: build.QueuedDate.UnixMilli(),
		ProjectID:  unset,
		Name:       unset,
	}
	if build.BuildType != nil {
		record.ProjectID = strings.ID(build.BuildType.ProjectID)
		record.Name = strings.ID(build.BuildType.Name)
	}

	failedToStart := TriOf(build.FailedToStart)
	var deps []int32
	for _, dep := range build.SnapshotDependencyRefs() {
		if dep.HasUnknownStatus() {
			failedToStart = True
		}
		if dep.ID > 0 {
			deps = append(deps, int32(dep.ID))
		}
	}
	record.SetSnapshotDependencies(deps)

	record.Flags.Set(FlagDefaultBranch, TriOf(build.DefaultBranch))
	record.Flags.Set(FlagComposite, TriOf(build.Composite))
	record.Flags.Set(FlagFailedToStart, failedToStart)
	if build.FakeStub {
		record.Flags.Set(FlagFakeStub, True)
	}

	if build.Triggered != nil {
		record.triggered = newTriggered(strings, build.Triggered)
	}
	return record
}

// NewFakeStub returns the placeholder stored for a build the server
// does not have. buildID may be 0 when even the id is unknown.
func NewFakeStub(buildID int) *FatBuild {
	record := &FatBuild{
		BuildRef: BuildRef{
			ID:          idOrUnset(buildID),
			BuildTypeID: unset,
			BranchName:  unset,
			Status:      unset,
			State:       unset,
		},
		Version:    LatestVersion,
		StartDate:  unset,
		FinishDate: unset,
		QueuedDate: unset,
		ProjectID:  unset,
		Name:       unset,
	}
	record.Flags.Set(FlagFakeStub, True)
	return record
}

// IsFakeStub reports a placeholder: no id, or the fake-stub flag set.
func (b *FatBuild) IsFakeStub() bool {
	return !b.HasID() || b.Flags.Get(FlagFakeStub).IsTrue()
}

// SetFakeStub sets or clears the fake-stub flag.
func (b *FatBuild) SetFakeStub(fake bool) {
	b.Flags.Set(FlagFakeStub, TriBool(fake))
}

// IsComposite reports the composite flag; unset counts as false.
func (b *FatBuild) IsComposite() bool { return b.Flags.Get(FlagComposite).IsTrue() }

// IsFailedToStart reports the failed-to-start flag.
func (b *FatBuild) IsFailedToStart() bool { return b.Flags.Get(FlagFailedToStart).IsTrue() }

// SetCancelled marks the build as finished with UNKNOWN status, which
// is how TeamCity reports a cancelled build.
func (b *FatBuild) SetCancelled(strings Interner) {
	b.Status = strings.ID(teamcity.StatusUnknown)
	b.State = strings.ID(teamcity.StateFinished)
}

// SuiteName resolves the build type name.
func (b *FatBuild) SuiteName(strings Interner) string { return strings.String(b.Name) }

// Project resolves the project id.
func (b *FatBuild) Project(strings Interner) string { return strings.String(b.ProjectID) }

// AddTests appends packed occurrences.
func (b *FatBuild) AddTests(strings Interner, occurrences []teamcity.TestOccurrence) {
	for _, occurrence := range occurrences {
		b.tests = append(b.tests, NewTest(strings, occurrence))
	}
}

// Tests returns the packed tests in stored order.
func (b *FatBuild) Tests() []Test { return b.tests }

// TestsCount returns the number of stored tests.
func (b *FatBuild) TestsCount() int { return len(b.tests) }

// TestOccurrences unpacks the stored tests.
func (b *FatBuild) TestOccurrences(strings Interner) (*teamcity.TestOccurrences, error) {
	result := &teamcity.TestOccurrences{Count: len(b.tests)}
	if b.HasID() {
		result.Href = teamcity.TestsHref(b.BuildID())
	}
	for _, test := range b.tests {
		occurrence, err := test.ToOccurrence(strings, b.BuildID())
		if err != nil {
			return nil, err
		}
		result.TestOccurrence = append(result.TestOccurrence, occurrence)
	}
	return result, nil
}

// FailedNotMutedTests returns the failing tests that count against the
// build.
func (b *FatBuild) FailedNotMutedTests(strings Interner) []Test {
	var failed []Test
	for _, test := range b.tests {
		if test.IsFailedButNotMuted(strings) {
			failed = append(failed, test)
		}
	}
	return failed
}

// AllTestNames returns the names of every stored test.
func (b *FatBuild) AllTestNames(strings Interner) []string {
	names := make([]string, 0, len(b.tests))
	for _, test := range b.tests {
		names = append(names, test.TestName(strings))
	}
	return names
}

// AddProblems appends packed problem occurrences.
func (b *FatBuild) AddProblems(strings Interner, occurrences []teamcity.ProblemOccurrence) {
	for _, occurrence := range occurrences {
		b.problems = append(b.problems, NewProblem(strings, occurrence))
	}
}

// Problems returns the packed problems.
func (b *FatBuild) Problems() []Problem { return b.problems }

// ProblemOccurrences unpacks the stored problems.
func (b *FatBuild) ProblemOccurrences(strings Interner) ([]teamcity.ProblemOccurrence, error) {
	var result []teamcity.ProblemOccurrence
	for _, problem := range b.problems {
		occurrence, err := problem.ToOccurrence(strings, b.BuildID())
		if err != nil {
			return nil, err
		}
		result = append(result, occurrence)
	}
	return result, nil
}

// SetStatistics stores the numeric statistics of the build.
func (b *FatBuild) SetStatistics(strings Interner, stats *teamcity.Statistics) {
	b.statistics = NewStatistics(strings, stats)
}

// Statistics unpacks the stored statistics, nil when none were set.
func (b *FatBuild) Statistics(strings Interner) *teamcity.Statistics {
	if b.statistics == nil {
		return nil
	}
	return b.statistics.ToStatistics(strings, b.BuildID())
}

// BuildDuration returns the BuildDuration statistic in milliseconds.
func (b *FatBuild) BuildDuration(strings Interner) (int64, bool) {
	value, ok := b.statistics.Value(strings, teamcity.StatBuildDuration)
	return int64(value), ok
}

// SetChanges stores the ids of the build's changes. An empty list is
// stored as absent.
func (b *FatBuild) SetChanges(ids []int32) {
	b.changes = nilIfEmpty(ids)
}

// Changes returns the change ids, nil when none are stored.
func (b *FatBuild) Changes() []int32 { return slices.Clone(b.changes) }

// SetSnapshotDependencies stores snapshot dependency build ids. An
// empty list is stored as absent.
func (b *FatBuild) SetSnapshotDependencies(ids []int32) {
	b.snapshotDeps = nilIfEmpty(ids)
}

// SnapshotDependencies returns the dependency ids, nil when none are
// stored.
func (b *FatBuild) SnapshotDependencies() []int32 { return slices.Clone(b.snapshotDeps) }

func nilIfEmpty(ids []int32) []int32 {
	if len(ids) == 0 {
		return nil
	}
	return slices.Clone(ids)
}

func timestampOrNil(unixMilli int64) *teamcity.Timestamp {
	if unixMilli <= 0 {
		return nil
	}
	return teamcity.At(unixMilli)
}

// ToBuild unpacks the record. Hrefs are regenerated from the id, the
// build type is present only when any of its fields is, and sub-
// resource refs are present only for data the record holds.
func (b *FatBuild) ToBuild(strings Interner) *teamcity.Build {
	id := b.BuildID()
	build := &teamcity.Build{
		BuildRef:      b.BuildRef.ToBuildRef(strings),
		QueuedDate:    timestampOrNil(b.QueuedDate),
		StartDate:     timestampOrNil(b.StartDate),
		FinishDate:    timestampOrNil(b.FinishDate),
		FailedToStart: b.Flags.Get(FlagFailedToStart).Ptr(),
		FakeStub:      b.Flags.Get(FlagFakeStub).IsTrue(),
	}
	build.DefaultBranch = b.Flags.Get(FlagDefaultBranch).Ptr()
	build.Composite = b.Flags.Get(FlagComposite).Ptr()

	buildType := teamcity.BuildType{
		ID:        build.BuildTypeID,
		Name:      strings.String(b.Name),
		ProjectID: strings.String(b.ProjectID),
	}
	if buildType != (teamcity.BuildType{}) {
		build.BuildType = &buildType
	}

	if b.snapshotDeps != nil {
		deps := &teamcity.BuildRefs{Count: len(b.snapshotDeps)}
		for _, depID := range b.snapshotDeps {
			deps.Build = append(deps.Build, teamcity.BuildRef{
				ID:   int(depID),
				Href: teamcity.BuildHref(int(depID)),
			})
		}
		build.SnapshotDependencies = deps
	}
	if b.tests != nil {
		build.TestOccurrences = &teamcity.Ref{Href: teamcity.TestsHref(id), Count: len(b.tests)}
	}
	if b.problems != nil {
		build.ProblemOccurrences = &teamcity.Ref{Href: teamcity.ProblemsHref(id), Count: len(b.problems)}
	}
	if b.statistics != nil {
		build.Statistics = &teamcity.Ref{Href: teamcity.StatisticsHref(id)}
	}
	if b.changes != nil {
		build.Changes = &teamcity.Ref{Href: teamcity.ChangesHref(id), Count: len(b.changes)}
	}
	if b.triggered != nil {
		build.Triggered = b.triggered.toTriggered(strings, build.QueuedDate)
	}
	return build
}
