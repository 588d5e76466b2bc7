// Copyright 2026 The tcbot Authors
// SPDX-License-Identifier: Apache-2.0

package runstat

import (
	"github.com/tcbot-project/tcbot/lib/compact"
	"github.com/tcbot-project/tcbot/lib/teamcity"
)

// MaxLatest is how many recent statuses a History keeps.
const MaxLatest = 50

// History folds the invocations of one suite on one branch.
type History struct {
	Suite teamcity.SuiteInBranch

	Runs             int
	Failures         int
	CriticalFailures int

	// Latest holds the statuses of the most recent invocations in the
	// order they were added, oldest first, at most MaxLatest.
	Latest []compact.InvocationStatus

	// LastBuildID is the id of the invocation added last.
	LastBuildID int
}

// NewHistory returns an empty history of suite.
func NewHistory(suite teamcity.SuiteInBranch) *History {
	return &History{Suite: suite}
}

// Add folds one invocation. Invocations are expected in build order.
// Failures counts critical failures too.
func (h *History) Add(invocation compact.Invocation) {
	h.Runs++
	switch invocation.Status {
	case compact.InvocationCriticalFailure:
		h.CriticalFailures++
		h.Failures++
	case compact.InvocationFailure:
		h.Failures++
	}
	if len(h.Latest) == MaxLatest {
		copy(h.Latest, h.Latest[1:])
		h.Latest[MaxLatest-1] = invocation.Status
	} else {
		h.Latest = append(h.Latest, invocation.Status)
	}
	h.LastBuildID = invocation.BuildID
}

// FailRate is Failures/Runs, 0 before the first run.
func (h *History) FailRate() float64 {
	if h.Runs == 0 {
		return 0
	}
	return float64(h.Failures) / float64(h.Runs)
}

// CriticalFailRate is CriticalFailures/Runs, 0 before the first run.
func (h *History) CriticalFailRate() float64 {
	if h.Runs == 0 {
		return 0
	}
	return float64(h.CriticalFailures) / float64(h.Runs)
}

// LatestString renders Latest one character per run: '.' for OK, 'x'
// for a failure, '!' for a critical failure.
func (h *History) LatestString() string {
	marks := make([]byte, len(h.Latest))
	for i, status := range h.Latest {
		switch status {
		case compact.InvocationOK:
			marks[i] = '.'
		case compact.InvocationCriticalFailure:
			marks[i] = '!'
		default:
			marks[i] = 'x'
		}
	}
	return string(marks)
}
