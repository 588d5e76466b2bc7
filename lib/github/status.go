// Copyright 2026 The tcbot Authors
// SPDX-License-Identifier: Apache-2.0

package github

import (
	"context"
	"fmt"
)

// CreateStatusRequest is the body of a commit status.
type CreateStatusRequest struct {
	// State is one of the Status* constants.
	State string `json:"state"`

	// TargetURL is the "Details" link in the GitHub UI.
	TargetURL string `json:"target_url,omitempty"`

	// Description is shown next to the status; GitHub truncates it at
	// 140 characters.
	Description string `json:"description,omitempty"`

	// Context distinguishes statuses from different sources on one
	// commit.
	Context string `json:"context,omitempty"`
}

// CreateCommitStatus attaches a status to the commit sha.
func (client *Client) CreateCommitStatus(ctx context.Context, owner, repo, sha string, request CreateStatusRequest) (*CommitStatus, error) {
	var status CommitStatus
	path := fmt.Sprintf("/repos/%s/%s/statuses/%s", owner, repo, sha)
	if err := client.post(ctx, path, request, &status); err != nil {
		return nil, fmt.Errorf("creating status on %s/%s@%s: %w", owner, repo, sha[:min(len(sha), 8)], err)
	}
	return &status, nil
}
