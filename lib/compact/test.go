// Copyright 2026 The tcbot Authors
// SPDX-License-Identifier: Apache-2.0

package compact

import (
	"math"

	"github.com/tcbot-project/tcbot/lib/teamcity"
)

// Test occurrence flag bits.
const (
	testMuted uint8 = 1 << iota
	testCurrentlyMuted
	testCurrentlyInvestigated
	testIgnored
	testNewFailure
)

// Test is the compact form of one test occurrence.
type Test struct {
	_ struct{} `cbor:",toarray"`
	// IDInBuild is the occurrence's id within its build, -1 if the
	// server sent none.
	IDInBuild int32
	Name      int32
	Status    int32
	// Duration is in milliseconds, -1 when absent. Longer durations
	// are stored as math.MaxInt32.
	Duration int32
	Flags    uint8
	// TestID identifies the test across builds, -1 when absent.
	TestID  int64
	Details Details
}

// NewTest packs one occurrence.
func NewTest(strings Interner, occurrence teamcity.TestOccurrence) Test {
	test := Test{
		IDInBuild: unset,
		Name:      strings.ID(occurrence.Name),
		Status:    strings.ID(occurrence.Status),
		Duration:  unset,
		TestID:    unset,
		Details:   packDetails(occurrence.Details),
	}
	if id, ok := teamcity.ParseTestOccurrenceID(occurrence.ID); ok {
		test.IDInBuild = int32(id)
	}
	if occurrence.Duration != nil {
		test.Duration = clampDuration(*occurrence.Duration)
	}
	if occurrence.Test != nil {
		test.TestID = occurrence.Test.ID
	}
	if occurrence.Muted {
		test.Flags |= testMuted
	}
	if occurrence.CurrentlyMuted {
		test.Flags |= testCurrentlyMuted
	}
	if occurrence.CurrentlyInvestigated {
		test.Flags |= testCurrentlyInvestigated
	}
	if occurrence.Ignored {
		test.Flags |= testIgnored
	}
	if occurrence.NewFailure {
		test.Flags |= testNewFailure
	}
	return test
}

func clampDuration(ms int) int32 {
	switch {
	case ms < 0:
		return 0
	case int64(ms) > math.MaxInt32:
		return math.MaxInt32
	default:
		return int32(ms)
	}
}

func (t Test) has(bit uint8) bool { return t.Flags&bit != 0 }

// TestName resolves the test name.
func (t Test) TestName(strings Interner) string { return strings.String(t.Name) }

// IsFailed reports a FAILURE status.
func (t Test) IsFailed(strings Interner) bool {
	return strings.String(t.Status) == teamcity.StatusFailure
}

// IsMutedOrIgnored reports whether the occurrence is muted, currently
// muted, or ignored.
func (t Test) IsMutedOrIgnored() bool {
	return t.has(testMuted) || t.has(testCurrentlyMuted) || t.has(testIgnored)
}

// IsFailedButNotMuted reports a failure that counts against the build.
func (t Test) IsFailedButNotMuted(strings Interner) bool {
	return t.IsFailed(strings) && !t.IsMutedOrIgnored()
}

// ToOccurrence unpacks the test as an occurrence of buildID.
func (t Test) ToOccurrence(strings Interner, buildID int) (teamcity.TestOccurrence, error) {
	details, err := t.Details.Text()
	if err != nil {
		return teamcity.TestOccurrence{}, err
	}
	occurrence := teamcity.TestOccurrence{
		Name:                  strings.String(t.Name),
		Status:                strings.String(t.Status),
		Muted:                 t.has(testMuted),
		CurrentlyMuted:        t.has(testCurrentlyMuted),
		CurrentlyInvestigated: t.has(testCurrentlyInvestigated),
		Ignored:               t.has(testIgnored),
		NewFailure:            t.has(testNewFailure),
		Details:               details,
	}
	if t.IDInBuild >= 0 {
		occurrence.ID = teamcity.TestOccurrenceID(buildID, int(t.IDInBuild))
		occurrence.Href = teamcity.TestOccurrenceHref(buildID, int(t.IDInBuild))
	}
	if t.Duration >= 0 {
		duration := int(t.Duration)
		occurrence.Duration = &duration
	}
	if t.TestID >= 0 {
		occurrence.Test = &teamcity.TestRef{ID: t.TestID}
	}
	return occurrence, nil
}
