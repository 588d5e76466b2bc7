// Copyright 2026 The tcbot Authors
// SPDX-License-Identifier: Apache-2.0

package compact

import (
	"fmt"

	"github.com/tcbot-project/tcbot/lib/codec"
)

// fatBuildWire is the stored layout of a FatBuild: one CBOR array.
// Append-only; any other change needs a new schema version.
type fatBuildWire struct {
	_            struct{} `cbor:",toarray"`
	Version      int16
	ID           int32
	BuildTypeID  int32
	BranchName   int32
	Status       int32
	State        int32
	ProjectID    int32
	Name         int32
	StartDate    int64
	FinishDate   int64
	QueuedDate   int64
	Flags        uint32
	Tests        []Test
	Problems     []Problem
	Statistics   *Statistics
	Changes      []int32
	SnapshotDeps []int32
	Triggered    *Triggered
}

// MarshalCBOR encodes the record in its stored layout.
func (b *FatBuild) MarshalCBOR() ([]byte, error) {
	return codec.Marshal(fatBuildWire{
		Version:      b.Version,
		ID:           b.ID,
		BuildTypeID:  b.BuildTypeID,
		BranchName:   b.BranchName,
		Status:       b.Status,
		State:        b.State,
		ProjectID:    b.ProjectID,
		Name:         b.Name,
		StartDate:    b.StartDate,
		FinishDate:   b.FinishDate,
		QueuedDate:   b.QueuedDate,
		Flags:        uint32(b.Flags),
		Tests:        b.tests,
		Problems:     b.problems,
		Statistics:   b.statistics,
		Changes:      b.changes,
		SnapshotDeps: b.snapshotDeps,
		Triggered:    b.triggered,
	})
}

// UnmarshalCBOR decodes the stored layout. Empty id arrays decode as
// absent.
func (b *FatBuild) UnmarshalCBOR(data []byte) error {
	var wire fatBuildWire
	if err := codec.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("compact: decoding fat build: %w", err)
	}
	*b = FatBuild{
		BuildRef: BuildRef{
			ID:          wire.ID,
			BuildTypeID: wire.BuildTypeID,
			BranchName:  wire.BranchName,
			Status:      wire.Status,
			State:       wire.State,
		},
		Version:      wire.Version,
		StartDate:    wire.StartDate,
		FinishDate:   wire.FinishDate,
		QueuedDate:   wire.QueuedDate,
		ProjectID:    wire.ProjectID,
		Name:         wire.Name,
		Flags:        Flags(wire.Flags),
		tests:        wire.Tests,
		problems:     wire.Problems,
		statistics:   wire.Statistics,
		changes:      nilIfEmpty(wire.Changes),
		snapshotDeps: nilIfEmpty(wire.SnapshotDeps),
		triggered:    wire.Triggered,
	}
	return nil
}
