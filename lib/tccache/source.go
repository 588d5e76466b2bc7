// Copyright 2026 The tcbot Authors
// SPDX-License-Identifier: Apache-2.0

package tccache

import (
	"context"

	"github.com/tcbot-project/tcbot/lib/teamcity"
)

// Source is the remote build-data source. *teamcity.Client implements
// it. A missing resource must be reported with an error for which
// teamcity.IsNotFound is true.
type Source interface {
	FinishedBuilds(ctx context.Context, suiteID, branch string) ([]teamcity.BuildRef, error)
	FinishedBuildsIncludeSnDepFailed(ctx context.Context, suiteID, branch string) ([]teamcity.BuildRef, error)
	BuildResults(ctx context.Context, href string) (*teamcity.Build, error)
	Tests(ctx context.Context, href string) (*teamcity.TestOccurrences, error)
	TestFull(ctx context.Context, href string) (*teamcity.TestOccurrence, error)
	Problems(ctx context.Context, href string) (*teamcity.ProblemOccurrences, error)
	Statistics(ctx context.Context, href string) (*teamcity.Statistics, error)
	Changes(ctx context.Context, href string) (*teamcity.Changes, error)
}

var _ Source = (*teamcity.Client)(nil)
