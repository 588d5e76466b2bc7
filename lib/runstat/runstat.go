// Copyright 2026 The tcbot Authors
// SPDX-License-Identifier: Apache-2.0

package runstat

import (
	"cmp"
	"context"
	"fmt"

	"github.com/tcbot-project/tcbot/lib/teamcity"
)

// RunStat counts the runs of one test.
type RunStat struct {
	Runs     int
	Failures int
	// TotalDurationMs sums the durations the server reported.
	// Occurrences without a duration count as zero.
	TotalDurationMs int64
}

// Add folds one occurrence into the statistic.
func (s *RunStat) Add(occurrence teamcity.TestOccurrence) {
	s.Runs++
	if occurrence.IsFailed() {
		s.Failures++
	}
	if occurrence.Duration != nil {
		s.TotalDurationMs += int64(*occurrence.Duration)
	}
}

// FailRate is Failures/Runs, 0 before the first run.
func (s RunStat) FailRate() float64 {
	if s.Runs == 0 {
		return 0
	}
	return float64(s.Failures) / float64(s.Runs)
}

// AverageDurationMs is the mean duration per run, 0 before the first
// run.
func (s RunStat) AverageDurationMs() int64 {
	if s.Runs == 0 {
		return 0
	}
	return s.TotalDurationMs / int64(s.Runs)
}

// TestRunStat is a RunStat with the test it describes.
type TestRunStat struct {
	Name string
	RunStat
}

func (s TestRunStat) String() string {
	return fmt.Sprintf("%s: %d/%d failed (%.1f%%), avg %dms",
		s.Name, s.Failures, s.Runs, 100*s.FailRate(), s.AverageDurationMs())
}

// ScanFunc calls visit for every cached test list. An error from visit
// must stop the scan and be returned.
type ScanFunc func(ctx context.Context, visit func(*teamcity.TestOccurrences) error) error

// Analyze folds every occurrence the scan yields into a statistic per
// test name. Unnamed occurrences and muted or ignored ones are
// skipped.
func Analyze(ctx context.Context, scan ScanFunc) (map[string]*RunStat, error) {
	stats := make(map[string]*RunStat)
	err := scan(ctx, func(occurrences *teamcity.TestOccurrences) error {
		if occurrences == nil {
			return nil
		}
		for _, occurrence := range occurrences.TestOccurrence {
			if occurrence.Name == "" || occurrence.IsMutedOrIgnored() {
				continue
			}
			stat, ok := stats[occurrence.Name]
			if !ok {
				stat = &RunStat{}
				stats[occurrence.Name] = stat
			}
			stat.Add(occurrence)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("runstat: analyzing tests: %w", err)
	}
	return stats, nil
}

// ByFailRate orders by fail rate, then by name with earlier names
// ranking higher.
func ByFailRate(a, b TestRunStat) int {
	if c := cmp.Compare(a.FailRate(), b.FailRate()); c != 0 {
		return c
	}
	return cmp.Compare(b.Name, a.Name)
}

// ByAverageDuration orders by mean duration, then by name with earlier
// names ranking higher.
func ByAverageDuration(a, b TestRunStat) int {
	if c := cmp.Compare(a.AverageDurationMs(), b.AverageDurationMs()); c != 0 {
		return c
	}
	return cmp.Compare(b.Name, a.Name)
}

// TopFailing returns the n tests with the highest fail rate.
func TopFailing(stats map[string]*RunStat, n int) []TestRunStat {
	return Top(flatten(stats), n, ByFailRate)
}

// TopLongRunning returns the n tests with the longest mean duration.
func TopLongRunning(stats map[string]*RunStat, n int) []TestRunStat {
	return Top(flatten(stats), n, ByAverageDuration)
}

func flatten(stats map[string]*RunStat) []TestRunStat {
	items := make([]TestRunStat, 0, len(stats))
	for name, stat := range stats {
		items = append(items, TestRunStat{Name: name, RunStat: *stat})
	}
	return items
}
