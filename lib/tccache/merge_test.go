// Copyright 2026 The tcbot Authors
// SPDX-License-Identifier: Apache-2.0

package tccache

import (
	"reflect"
	"testing"

	"github.com/tcbot-project/tcbot/lib/teamcity"
)

func ref(id int, status string) teamcity.BuildRef {
	return teamcity.BuildRef{ID: id, Status: status}
}

func TestMergeByIDOverride(t *testing.T) {
	persisted := []teamcity.BuildRef{ref(1, "old")}
	actual := []teamcity.BuildRef{ref(2, "x"), ref(1, "new")}

	got := MergeByID(persisted, actual)
	want := []teamcity.BuildRef{ref(1, "new"), ref(2, "x")}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("MergeByID = %v, want %v", got, want)
	}
}

func TestMergeByIDKeepsPersistedOnly(t *testing.T) {
	persisted := []teamcity.BuildRef{ref(5, "a"), ref(3, "b")}
	actual := []teamcity.BuildRef{ref(4, "c")}

	got := MergeByID(persisted, actual)
	want := []teamcity.BuildRef{ref(3, "b"), ref(4, "c"), ref(5, "a")}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("MergeByID = %v, want %v", got, want)
	}
}

func TestMergeByIDIdempotent(t *testing.T) {
	a := []teamcity.BuildRef{ref(3, "a3"), ref(1, "a1"), ref(7, "a7")}
	b := []teamcity.BuildRef{ref(7, "b7"), ref(2, "b2")}

	sortedA := MergeByID(nil, a)
	if got := MergeByID(a, a); !reflect.DeepEqual(got, sortedA) {
		t.Errorf("merge(A, A) = %v, want %v", got, sortedA)
	}
	once := MergeByID(a, b)
	if twice := MergeByID(once, b); !reflect.DeepEqual(twice, once) {
		t.Errorf("merge(merge(A, B), B) = %v, want %v", twice, once)
	}
	if again := MergeByID(a, b); !reflect.DeepEqual(again, once) {
		t.Error("merge is not deterministic")
	}
}

func TestMergeByIDEmpty(t *testing.T) {
	if got := MergeByID[teamcity.BuildRef](nil, nil); len(got) != 0 {
		t.Errorf("MergeByID(nil, nil) = %v", got)
	}
}
