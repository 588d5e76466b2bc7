// Copyright 2026 The tcbot Authors
// SPDX-License-Identifier: Apache-2.0

package compact

// InvocationStatus classifies one run of a suite.
type InvocationStatus uint8

const (
	InvocationOK InvocationStatus = iota
	InvocationFailure
	InvocationCriticalFailure
)

func (s InvocationStatus) String() string {
	switch s {
	case InvocationOK:
		return "ok"
	case InvocationFailure:
		return "failure"
	case InvocationCriticalFailure:
		return "critical"
	default:
		return "invalid"
	}
}

// MarshalText renders the status by name, so JSON shows
// []InvocationStatus as a list of names rather than base64.
func (s InvocationStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Invocation is one build of a suite as seen by run history.
type Invocation struct {
	BuildID   int
	Status    InvocationStatus
	StartDate int64
	Changes   []int32
}

// Classify derives the invocation status from the stored problems
// alone: no problems is OK, any critical problem is a critical
// failure, anything else is an ordinary failure.
func (b *FatBuild) Classify(strings Interner) InvocationStatus {
	if len(b.problems) == 0 {
		return InvocationOK
	}
	for _, problem := range b.problems {
		if problem.IsCritical(strings) {
			return InvocationCriticalFailure
		}
	}
	return InvocationFailure
}

// ToInvocation summarizes the record for run history.
func (b *FatBuild) ToInvocation(strings Interner) Invocation {
	return Invocation{
		BuildID:   b.BuildID(),
		Status:    b.Classify(strings),
		StartDate: b.StartDate,
		Changes:   b.Changes(),
	}
}
