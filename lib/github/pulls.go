// Copyright 2026 The tcbot Authors
// SPDX-License-Identifier: Apache-2.0

package github

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// ListPullRequestsOptions filters ListPullRequests. Zero fields are
// left to GitHub's defaults.
type ListPullRequestsOptions struct {
	State     string // "open", "closed", "all"
	Sort      string // "created", "updated", "popularity", "long-running"
	Direction string // "asc", "desc"
	PerPage   int    // at most 100
}

func (options ListPullRequestsOptions) query() string {
	values := url.Values{}
	if options.State != "" {
		values.Set("state", options.State)
	}
	if options.Sort != "" {
		values.Set("sort", options.Sort)
	}
	if options.Direction != "" {
		values.Set("direction", options.Direction)
	}
	if options.PerPage > 0 {
		values.Set("per_page", strconv.Itoa(options.PerPage))
	}
	return values.Encode()
}

// GetPullRequest fetches one pull request.
func (client *Client) GetPullRequest(ctx context.Context, owner, repo string, number int) (*PullRequest, error) {
	var pullRequest PullRequest
	path := fmt.Sprintf("/repos/%s/%s/pulls/%d", owner, repo, number)
	if err := client.get(ctx, path, &pullRequest); err != nil {
		return nil, fmt.Errorf("getting PR %s/%s#%d: %w", owner, repo, number, err)
	}
	return &pullRequest, nil
}

// ListPullRequests iterates over a repository's pull requests.
func (client *Client) ListPullRequests(owner, repo string, options ListPullRequestsOptions) *PageIterator[PullRequest] {
	path := fmt.Sprintf("/repos/%s/%s/pulls", owner, repo)
	if query := options.query(); query != "" {
		path += "?" + query
	}
	return list[PullRequest](client, path)
}
