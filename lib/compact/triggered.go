// Copyright 2026 The tcbot Authors
// SPDX-License-Identifier: Apache-2.0

package compact

import "github.com/tcbot-project/tcbot/lib/teamcity"

// Triggered is the compact form of a build's trigger. The trigger
// date is not stored: TeamCity sets it to the queued date.
type Triggered struct {
	_        struct{} `cbor:",toarray"`
	Type     int32
	UserID   int32
	Username int32
	BuildID  int32
}

func newTriggered(strings Interner, triggered *teamcity.Triggered) *Triggered {
	packed := &Triggered{
		Type:     strings.ID(triggered.Type),
		UserID:   unset,
		Username: unset,
		BuildID:  unset,
	}
	if triggered.User != nil {
		packed.UserID = idOrUnset(triggered.User.ID)
		packed.Username = strings.ID(triggered.User.Username)
	}
	if triggered.Build != nil {
		packed.BuildID = idOrUnset(triggered.Build.ID)
	}
	return packed
}

func (t *Triggered) toTriggered(strings Interner, queued *teamcity.Timestamp) *teamcity.Triggered {
	triggered := &teamcity.Triggered{
		Type: strings.String(t.Type),
		Date: queued,
	}
	if t.UserID > 0 {
		triggered.User = &teamcity.User{ID: int(t.UserID), Username: strings.String(t.Username)}
	}
	if t.BuildID > 0 {
		triggered.Build = &teamcity.BuildRef{ID: int(t.BuildID)}
	}
	return triggered
}
