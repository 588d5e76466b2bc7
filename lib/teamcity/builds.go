// Copyright 2026 The tcbot Authors
// SPDX-License-Identifier: Apache-2.0

package teamcity

import (
	"context"
	"fmt"
)

// maxPages bounds nextHref chains so a server that keeps returning a
// nextHref cannot loop the client forever.
const maxPages = 1000

// FinishedBuilds lists the finished builds of suiteID on branch,
// following nextHref pagination.
func (client *Client) FinishedBuilds(ctx context.Context, suiteID, branch string) ([]BuildRef, error) {
	return client.buildList(ctx, FinishedBuildsHref(suiteID, branch, false))
}

// FinishedBuildsIncludeSnDepFailed is FinishedBuilds widened to builds
// that failed to start because of a snapshot dependency.
func (client *Client) FinishedBuildsIncludeSnDepFailed(ctx context.Context, suiteID, branch string) ([]BuildRef, error) {
	return client.buildList(ctx, FinishedBuildsHref(suiteID, branch, true))
}

func (client *Client) buildList(ctx context.Context, href string) ([]BuildRef, error) {
	var all []BuildRef
	for page := 0; href != ""; page++ {
		if page == maxPages {
			return nil, fmt.Errorf("teamcity: build list exceeded %d pages", maxPages)
		}
		var refs BuildRefs
		if err := client.get(ctx, href, &refs); err != nil {
			return nil, err
		}
		all = append(all, refs.Build...)
		href = refs.NextHref
	}
	return all, nil
}

// BuildResults fetches the full build at href.
func (client *Client) BuildResults(ctx context.Context, href string) (*Build, error) {
	var build Build
	if err := client.get(ctx, href, &build); err != nil {
		return nil, err
	}
	return &build, nil
}

// Tests fetches every test occurrence of the list at href. Pages are
// concatenated into one TestOccurrences whose Count is the total.
func (client *Client) Tests(ctx context.Context, href string) (*TestOccurrences, error) {
	result := &TestOccurrences{Href: href}
	next := href
	for page := 0; next != ""; page++ {
		if page == maxPages {
			return nil, fmt.Errorf("teamcity: test list exceeded %d pages", maxPages)
		}
		var occurrences TestOccurrences
		if err := client.get(ctx, next, &occurrences); err != nil {
			return nil, err
		}
		result.TestOccurrence = append(result.TestOccurrence, occurrences.TestOccurrence...)
		next = occurrences.NextHref
	}
	result.Count = len(result.TestOccurrence)
	return result, nil
}

// TestFull fetches a single test occurrence with its details.
func (client *Client) TestFull(ctx context.Context, href string) (*TestOccurrence, error) {
	var occurrence TestOccurrence
	if err := client.get(ctx, href, &occurrence); err != nil {
		return nil, err
	}
	return &occurrence, nil
}

// Problems fetches a build's problem occurrences.
func (client *Client) Problems(ctx context.Context, href string) (*ProblemOccurrences, error) {
	var problems ProblemOccurrences
	if err := client.get(ctx, href, &problems); err != nil {
		return nil, err
	}
	return &problems, nil
}

// Statistics fetches a build's statistic values.
func (client *Client) Statistics(ctx context.Context, href string) (*Statistics, error) {
	var statistics Statistics
	if err := client.get(ctx, href, &statistics); err != nil {
		return nil, err
	}
	return &statistics, nil
}

// Changes fetches a build's change list.
func (client *Client) Changes(ctx context.Context, href string) (*Changes, error) {
	var changes Changes
	if err := client.get(ctx, href, &changes); err != nil {
		return nil, err
	}
	return &changes, nil
}
