// Copyright 2026 The tcbot Authors
// SPDX-License-Identifier: Apache-2.0

package teamcity

import (
	"fmt"
	"strconv"
	"time"
)

// timestampLayout is TeamCity's REST date format, e.g.
// "20260114T093012+0300".
const timestampLayout = "20060102T150405-0700"

// Timestamp is a TeamCity REST date. It marshals to and from the
// TeamCity wire format in JSON and as a text string in CBOR.
type Timestamp struct {
	time.Time
}

// At returns a Timestamp for the given epoch milliseconds, in UTC.
func At(unixMilli int64) *Timestamp {
	return &Timestamp{Time: time.UnixMilli(unixMilli).UTC()}
}

func (ts Timestamp) MarshalText() ([]byte, error) {
	return []byte(ts.Time.Format(timestampLayout)), nil
}

func (ts *Timestamp) UnmarshalText(data []byte) error {
	parsed, err := time.Parse(timestampLayout, string(data))
	if err != nil {
		return fmt.Errorf("teamcity: bad timestamp %q: %w", data, err)
	}
	ts.Time = parsed.UTC()
	return nil
}

func (ts Timestamp) MarshalJSON() ([]byte, error) {
	text, _ := ts.MarshalText()
	return []byte(strconv.Quote(string(text))), nil
}

func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	unquoted, err := strconv.Unquote(string(data))
	if err != nil {
		return fmt.Errorf("teamcity: timestamp is not a string: %s", data)
	}
	return ts.UnmarshalText([]byte(unquoted))
}

// UnixMilli returns ts in epoch milliseconds, or -1 for a nil
// timestamp.
func (ts *Timestamp) UnixMilli() int64 {
	if ts == nil {
		return -1
	}
	return ts.Time.UnixMilli()
}
