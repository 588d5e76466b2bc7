// Copyright 2026 The tcbot Authors
// SPDX-License-Identifier: Apache-2.0

package teamcity

// Build states and statuses as TeamCity reports them.
const (
	StateQueued   = "queued"
	StateRunning  = "running"
	StateFinished = "finished"

	StatusSuccess = "SUCCESS"
	StatusFailure = "FAILURE"
	StatusUnknown = "UNKNOWN"
)

// Problem occurrence types that mark a build as critically failed
// rather than merely failed.
const (
	ProblemExecutionTimeout = "TC_EXECUTION_TIMEOUT"
	ProblemJVMCrash         = "TC_JVM_CRASH"
	ProblemFailureOnMetric  = "BuildFailureOnMetric"
	ProblemCompilationError = "TC_COMPILATION_ERROR"

	ProblemFailedTests = "TC_FAILED_TESTS"
	ProblemExitCode    = "TC_EXIT_CODE"
)

// Statistic property names read by tcbot.
const (
	StatBuildDuration = "BuildDuration"
)

// BuildRef is the short form of a build returned by build lists and
// embedded in other resources. ID 0 means the build is unknown.
type BuildRef struct {
	ID            int    `json:"id,omitempty"`
	BuildTypeID   string `json:"buildTypeId,omitempty"`
	BranchName    string `json:"branchName,omitempty"`
	Status        string `json:"status,omitempty"`
	State         string `json:"state,omitempty"`
	Href          string `json:"href,omitempty"`
	DefaultBranch *bool  `json:"defaultBranch,omitempty"`
	Composite     *bool  `json:"composite,omitempty"`
}

// BuildID returns the build id; it makes BuildRef usable with
// merge-by-id reconciliation.
func (ref BuildRef) BuildID() int { return ref.ID }

// IsFinished reports whether the build has left the queue and agent.
func (ref BuildRef) IsFinished() bool { return ref.State == StateFinished }

// IsSuccess reports a SUCCESS status.
func (ref BuildRef) IsSuccess() bool { return ref.Status == StatusSuccess }

// HasUnknownStatus reports an UNKNOWN status, which TeamCity uses for
// cancelled builds and for dependencies that never started.
func (ref BuildRef) HasUnknownStatus() bool { return ref.Status == StatusUnknown }

// BuildRefs is the envelope of a build list.
type BuildRefs struct {
	Count    int        `json:"count"`
	NextHref string     `json:"nextHref,omitempty"`
	Build    []BuildRef `json:"build,omitempty"`
}

// BuildType identifies a build configuration (a "suite").
type BuildType struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name,omitempty"`
	ProjectID string `json:"projectId,omitempty"`
}

// Ref is a link to a sub-resource with an optional item count.
type Ref struct {
	Href  string `json:"href,omitempty"`
	Count int    `json:"count,omitempty"`
}

// User is the user who triggered a build.
type User struct {
	ID       int    `json:"id,omitempty"`
	Username string `json:"username,omitempty"`
}

// Triggered describes what queued a build.
type Triggered struct {
	Type  string     `json:"type,omitempty"`
	Date  *Timestamp `json:"date,omitempty"`
	User  *User      `json:"user,omitempty"`
	Build *BuildRef  `json:"build,omitempty"`
}

// Build is the full form of a build. A Build with ID 0 is a fake stub
// standing in for a build the server does not have.
type Build struct {
	BuildRef

	BuildType  *BuildType `json:"buildType,omitempty"`
	QueuedDate *Timestamp `json:"queuedDate,omitempty"`
	StartDate  *Timestamp `json:"startDate,omitempty"`
	FinishDate *Timestamp `json:"finishDate,omitempty"`

	FailedToStart *bool `json:"failedToStart,omitempty"`

	// FakeStub marks a placeholder built by tcbot, never sent by the
	// server.
	FakeStub bool `json:"fakeStub,omitempty"`

	SnapshotDependencies *BuildRefs `json:"snapshot-dependencies,omitempty"`
	TestOccurrences      *Ref       `json:"testOccurrences,omitempty"`
	ProblemOccurrences   *Ref       `json:"problemOccurrences,omitempty"`
	Statistics           *Ref       `json:"statistics,omitempty"`
	Changes              *Ref       `json:"changes,omitempty"`
	Triggered            *Triggered `json:"triggered,omitempty"`
}

// IsFakeStub reports whether b is a placeholder: it has no id or was
// explicitly marked.
func (b *Build) IsFakeStub() bool {
	return b == nil || b.ID == 0 || b.FakeStub
}

// HasFinishDate reports whether the server recorded a finish time.
// Only such builds are immutable and safe to cache.
func (b *Build) HasFinishDate() bool {
	return b != nil && b.FinishDate != nil
}

// ProjectID returns the owning project id, or "" when the server
// omitted the build type.
func (b *Build) ProjectID() string {
	if b == nil || b.BuildType == nil {
		return ""
	}
	return b.BuildType.ProjectID
}

// SnapshotDependencyRefs returns the snapshot dependency list, never
// nil-dereferencing.
func (b *Build) SnapshotDependencyRefs() []BuildRef {
	if b.SnapshotDependencies == nil {
		return nil
	}
	return b.SnapshotDependencies.Build
}

// TestRef identifies a test independently of any build.
type TestRef struct {
	ID int64 `json:"id,omitempty"`
}

// TestOccurrence is one test's outcome in one build. Duration is in
// milliseconds and absent for tests that did not run.
type TestOccurrence struct {
	ID                    string    `json:"id,omitempty"`
	Name                  string    `json:"name,omitempty"`
	Status                string    `json:"status,omitempty"`
	Duration              *int      `json:"duration,omitempty"`
	Href                  string    `json:"href,omitempty"`
	Muted                 bool      `json:"muted,omitempty"`
	CurrentlyMuted        bool      `json:"currentlyMuted,omitempty"`
	CurrentlyInvestigated bool      `json:"currentlyInvestigated,omitempty"`
	Ignored               bool      `json:"ignored,omitempty"`
	NewFailure            bool      `json:"newFailure,omitempty"`
	Details               string    `json:"details,omitempty"`
	Test                  *TestRef  `json:"test,omitempty"`
	Build                 *BuildRef `json:"build,omitempty"`
}

// IsFailed reports a FAILURE status.
func (t TestOccurrence) IsFailed() bool { return t.Status == StatusFailure }

// IsMutedOrIgnored reports whether the occurrence should be left out
// of failure statistics.
func (t TestOccurrence) IsMutedOrIgnored() bool {
	return t.Muted || t.CurrentlyMuted || t.Ignored
}

// IsFailedButNotMuted reports a failure that counts against the build.
func (t TestOccurrence) IsFailedButNotMuted() bool {
	return t.IsFailed() && !t.IsMutedOrIgnored()
}

// TestOccurrences is one page (or the whole list) of a build's tests.
type TestOccurrences struct {
	Count          int              `json:"count"`
	Href           string           `json:"href,omitempty"`
	NextHref       string           `json:"nextHref,omitempty"`
	TestOccurrence []TestOccurrence `json:"testOccurrence,omitempty"`
}

// ProblemOccurrence is one build problem. Build is the build that
// actually reported the problem, which differs from the queried build
// for composite builds.
type ProblemOccurrence struct {
	ID       string    `json:"id,omitempty"`
	Identity string    `json:"identity,omitempty"`
	Type     string    `json:"type,omitempty"`
	Href     string    `json:"href,omitempty"`
	Details  string    `json:"details,omitempty"`
	Build    *BuildRef `json:"build,omitempty"`
}

// IsCritical reports a problem type that makes the build a critical
// failure.
func (p ProblemOccurrence) IsCritical() bool {
	switch p.Type {
	case ProblemExecutionTimeout, ProblemJVMCrash, ProblemFailureOnMetric, ProblemCompilationError:
		return true
	}
	return false
}

// ProblemOccurrences is a build's problem list.
type ProblemOccurrences struct {
	Count             int                 `json:"count"`
	Href              string              `json:"href,omitempty"`
	ProblemOccurrence []ProblemOccurrence `json:"problemOccurrence,omitempty"`
}

// Property is one named statistic value. Values are decimal strings.
type Property struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Statistics is a build's statistic values.
type Statistics struct {
	Count    int        `json:"count,omitempty"`
	Href     string     `json:"href,omitempty"`
	Property []Property `json:"property,omitempty"`
}

// Value returns the named property's value.
func (s *Statistics) Value(name string) (string, bool) {
	if s == nil {
		return "", false
	}
	for _, property := range s.Property {
		if property.Name == name {
			return property.Value, true
		}
	}
	return "", false
}

// Change is a VCS change included in a build.
type Change struct {
	ID       int    `json:"id"`
	Version  string `json:"version,omitempty"`
	Username string `json:"username,omitempty"`
	Href     string `json:"href,omitempty"`
}

// Changes is a build's change list.
type Changes struct {
	Count  int      `json:"count"`
	Change []Change `json:"change,omitempty"`
}

// SuiteInBranch is the key of a build history query: one build
// configuration on one branch.
type SuiteInBranch struct {
	SuiteID string `json:"suite"`
	Branch  string `json:"branch"`
}

func (s SuiteInBranch) String() string { return s.SuiteID + "@" + s.Branch }
