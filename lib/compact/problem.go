// Copyright 2026 The tcbot Authors
// SPDX-License-Identifier: Apache-2.0

package compact

import "github.com/tcbot-project/tcbot/lib/teamcity"

// Problem is the compact form of one problem occurrence.
type Problem struct {
	_         struct{} `cbor:",toarray"`
	ProblemID int32
	Type      int32
	Identity  int32
	// ActualBuildID is the build that reported the problem, -1 when
	// the server did not say.
	ActualBuildID int32
	Details       Details
}

// NewProblem packs one problem occurrence.
func NewProblem(strings Interner, occurrence teamcity.ProblemOccurrence) Problem {
	problem := Problem{
		ProblemID:     unset,
		Type:          strings.ID(occurrence.Type),
		Identity:      strings.ID(occurrence.Identity),
		ActualBuildID: unset,
		Details:       packDetails(occurrence.Details),
	}
	if id, ok := teamcity.ParseProblemOccurrenceID(occurrence.ID); ok {
		problem.ProblemID = int32(id)
	}
	if occurrence.Build != nil {
		problem.ActualBuildID = idOrUnset(occurrence.Build.ID)
	}
	return problem
}

// TypeName resolves the problem type.
func (p Problem) TypeName(strings Interner) string { return strings.String(p.Type) }

// IsCritical reports an execution timeout, a JVM crash, a failure on
// a metric threshold, or a compilation error.
func (p Problem) IsCritical(strings Interner) bool {
	return teamcity.ProblemOccurrence{Type: p.TypeName(strings)}.IsCritical()
}

// ToOccurrence unpacks the problem as reported for buildID.
func (p Problem) ToOccurrence(strings Interner, buildID int) (teamcity.ProblemOccurrence, error) {
	details, err := p.Details.Text()
	if err != nil {
		return teamcity.ProblemOccurrence{}, err
	}
	occurrence := teamcity.ProblemOccurrence{
		Type:     strings.String(p.Type),
		Identity: strings.String(p.Identity),
		Details:  details,
	}
	reporter := buildID
	if p.ActualBuildID > 0 {
		reporter = int(p.ActualBuildID)
		occurrence.Build = &teamcity.BuildRef{ID: reporter}
	}
	if p.ProblemID >= 0 {
		occurrence.ID = teamcity.ProblemOccurrenceID(int(p.ProblemID), reporter)
		occurrence.Href = teamcity.ProblemOccurrenceHref(int(p.ProblemID), reporter)
	}
	return occurrence, nil
}
