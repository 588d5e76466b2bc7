// Copyright 2026 The tcbot Authors
// SPDX-License-Identifier: Apache-2.0

package teamcity

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/tcbot-project/tcbot/lib/codec"
)

func TestTimestampJSON(t *testing.T) {
	var ts Timestamp
	if err := json.Unmarshal([]byte(`"20260301T000000+0100"`), &ts); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	want := time.Date(2026, 2, 28, 23, 0, 0, 0, time.UTC)
	if !ts.Time.Equal(want) {
		t.Errorf("parsed %v, want %v", ts.Time, want)
	}

	encoded, err := json.Marshal(ts)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(encoded) != `"20260228T230000+0000"` {
		t.Errorf("Marshal = %s", encoded)
	}

	if err := json.Unmarshal([]byte(`"yesterday"`), &ts); err == nil {
		t.Error("bad timestamp accepted")
	}
}

func TestTimestampUnixMilli(t *testing.T) {
	var missing *Timestamp
	if got := missing.UnixMilli(); got != -1 {
		t.Errorf("nil UnixMilli = %d, want -1", got)
	}
	if got := At(1_700_000_000_000).UnixMilli(); got != 1_700_000_000_000 {
		t.Errorf("At roundtrip = %d", got)
	}
}

func TestBuildCBORRoundtrip(t *testing.T) {
	yes := true
	build := Build{
		BuildRef:   BuildRef{ID: 9, Status: StatusSuccess, State: StateFinished, DefaultBranch: &yes},
		BuildType:  &BuildType{ID: "Suite", ProjectID: "Project"},
		FinishDate: At(1_700_000_000_000),
	}
	data, err := codec.Marshal(build)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded Build
	if err := codec.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.ID != 9 || !decoded.HasFinishDate() || decoded.FinishDate.UnixMilli() != 1_700_000_000_000 {
		t.Errorf("decoded %+v", decoded)
	}
	if decoded.DefaultBranch == nil || !*decoded.DefaultBranch {
		t.Error("DefaultBranch lost")
	}
}

func TestFakeStubClassification(t *testing.T) {
	var nilBuild *Build
	cases := []struct {
		name  string
		build *Build
		fake  bool
	}{
		{"nil", nilBuild, true},
		{"no id", &Build{}, true},
		{"marked", &Build{BuildRef: BuildRef{ID: 3}, FakeStub: true}, true},
		{"real", &Build{BuildRef: BuildRef{ID: 3}}, false},
	}
	for _, tc := range cases {
		if got := tc.build.IsFakeStub(); got != tc.fake {
			t.Errorf("%s: IsFakeStub = %v, want %v", tc.name, got, tc.fake)
		}
	}
}

func TestHrefs(t *testing.T) {
	if got := TestsHref(123); got != "/app/rest/latest/testOccurrences?locator=build:(id:123)" {
		t.Errorf("TestsHref = %q", got)
	}
	if got := TestOccurrenceHref(5, 17); got != "/app/rest/latest/testOccurrences/build:(id:5),id:17" {
		t.Errorf("TestOccurrenceHref = %q", got)
	}
	if got := BuildHref(7); got != "/app/rest/latest/builds/id:7" {
		t.Errorf("BuildHref = %q", got)
	}

	if id, ok := ParseTestOccurrenceID(TestOccurrenceID(5, 17)); !ok || id != 17 {
		t.Errorf("ParseTestOccurrenceID = %d, %v", id, ok)
	}
	if _, ok := ParseTestOccurrenceID("garbage"); ok {
		t.Error("garbage test occurrence id parsed")
	}
	if id, ok := ParseProblemOccurrenceID(ProblemOccurrenceID(13, 42)); !ok || id != 13 {
		t.Errorf("ParseProblemOccurrenceID = %d, %v", id, ok)
	}
	if _, ok := ParseProblemOccurrenceID("build:(id:1)"); ok {
		t.Error("non-problem id parsed")
	}
}

func TestStatisticsValue(t *testing.T) {
	stats := &Statistics{Property: []Property{{Name: StatBuildDuration, Value: "60000"}}}
	if value, ok := stats.Value(StatBuildDuration); !ok || value != "60000" {
		t.Errorf("Value = %q, %v", value, ok)
	}
	var missing *Statistics
	if _, ok := missing.Value(StatBuildDuration); ok {
		t.Error("nil statistics returned a value")
	}
}
