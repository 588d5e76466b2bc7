// Copyright 2026 The tcbot Authors
// SPDX-License-Identifier: Apache-2.0

package compact

import "github.com/tcbot-project/tcbot/lib/teamcity"

// BuildRef is the compact form of a build reference. FatBuild embeds
// it, so a full record's identity fields are these fields.
type BuildRef struct {
	// ID is the TeamCity build id, or -1 when unknown.
	ID          int32
	BuildTypeID int32
	BranchName  int32
	Status      int32
	State       int32
}

// NewBuildRef interns the identity fields of ref.
func NewBuildRef(strings Interner, ref teamcity.BuildRef) BuildRef {
	return BuildRef{
		ID:          idOrUnset(ref.ID),
		BuildTypeID: strings.ID(ref.BuildTypeID),
		BranchName:  strings.ID(ref.BranchName),
		Status:      strings.ID(ref.Status),
		State:       strings.ID(ref.State),
	}
}

// HasID reports whether the build id is known.
func (r BuildRef) HasID() bool { return r.ID > 0 }

// BuildID returns the id as an int, 0 when unknown.
func (r BuildRef) BuildID() int {
	if !r.HasID() {
		return 0
	}
	return int(r.ID)
}

// ToBuildRef resolves the interned fields and regenerates the href.
func (r BuildRef) ToBuildRef(strings Interner) teamcity.BuildRef {
	ref := teamcity.BuildRef{
		ID:          r.BuildID(),
		BuildTypeID: strings.String(r.BuildTypeID),
		BranchName:  strings.String(r.BranchName),
		Status:      strings.String(r.Status),
		State:       strings.String(r.State),
	}
	if r.HasID() {
		ref.Href = teamcity.BuildHref(ref.ID)
	}
	return ref
}

// IsFinished reports a finished state.
func (r BuildRef) IsFinished(strings Interner) bool {
	return strings.String(r.State) == teamcity.StateFinished
}

// IsSuccess reports a SUCCESS status.
func (r BuildRef) IsSuccess(strings Interner) bool {
	return strings.String(r.Status) == teamcity.StatusSuccess
}
