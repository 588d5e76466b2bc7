// Copyright 2026 The tcbot Authors
// SPDX-License-Identifier: Apache-2.0

package teamcity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(t *testing.T, token string, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(Config{
		ServerID:   "apache",
		BaseURL:    server.URL,
		Token:      token,
		HTTPClient: server.Client(),
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func writeJSON(t *testing.T, w http.ResponseWriter, value any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(value); err != nil {
		t.Errorf("encoding response: %v", err)
	}
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(Config{BaseURL: "https://ci.example.org"}); err == nil {
		t.Error("missing ServerID should fail")
	}
	if _, err := NewClient(Config{ServerID: "x", BaseURL: "ci.example.org"}); err == nil {
		t.Error("scheme-less BaseURL should fail")
	}
}

func TestBuildResultsSendsTokenAndDecodes(t *testing.T) {
	client := newTestClient(t, "secret", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Authorization = %q", got)
		}
		if r.URL.Path != "/app/rest/latest/builds/id:42" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write([]byte(`{
			"id": 42,
			"buildTypeId": "Ignite_Cache",
			"branchName": "pull/77/head",
			"status": "FAILURE",
			"state": "finished",
			"buildType": {"id": "Ignite_Cache", "name": "Cache", "projectId": "Ignite"},
			"startDate": "20260114T093012+0300",
			"finishDate": "20260114T101500+0300",
			"snapshot-dependencies": {"count": 1, "build": [{"id": 41, "status": "UNKNOWN"}]},
			"triggered": {"type": "user", "user": {"id": 7, "username": "dev"}}
		}`))
	}))

	build, err := client.BuildResults(context.Background(), BuildHref(42))
	if err != nil {
		t.Fatalf("BuildResults: %v", err)
	}
	if build.ID != 42 || build.ProjectID() != "Ignite" || !build.IsFinished() {
		t.Errorf("decoded build %+v", build.BuildRef)
	}
	wantStart := time.Date(2026, 1, 14, 6, 30, 12, 0, time.UTC)
	if !build.StartDate.Time.Equal(wantStart) {
		t.Errorf("StartDate = %v, want %v", build.StartDate.Time, wantStart)
	}
	if build.StartDate.Location() != time.UTC {
		t.Errorf("StartDate not normalized to UTC: %v", build.StartDate.Location())
	}
	deps := build.SnapshotDependencyRefs()
	if len(deps) != 1 || !deps[0].HasUnknownStatus() {
		t.Errorf("snapshot dependencies = %+v", deps)
	}
	if build.Triggered == nil || build.Triggered.User == nil || build.Triggered.User.Username != "dev" {
		t.Errorf("triggered = %+v", build.Triggered)
	}
	if build.IsFakeStub() {
		t.Error("real build classified as fake stub")
	}
}

func TestGuestAuthWithoutToken(t *testing.T) {
	client := newTestClient(t, "", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/guestAuth/app/rest/latest/builds/id:1" {
			t.Errorf("path = %q, want guestAuth prefix", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "" {
			t.Error("Authorization header sent without a token")
		}
		w.Write([]byte(`{"id": 1}`))
	}))
	if _, err := client.BuildResults(context.Background(), BuildHref(1)); err != nil {
		t.Fatalf("BuildResults: %v", err)
	}
}

func TestNotFoundIsClassified(t *testing.T) {
	client := newTestClient(t, "token", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Nothing is found by locator 'id:404'", http.StatusNotFound)
	}))
	_, err := client.BuildResults(context.Background(), BuildHref(404))
	if !IsNotFound(err) {
		t.Fatalf("error = %v, want not found", err)
	}
	if IsUnauthorized(err) {
		t.Error("404 classified as unauthorized")
	}
}

func TestServerErrorIsNotNotFound(t *testing.T) {
	client := newTestClient(t, "token", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	_, err := client.Problems(context.Background(), ProblemsHref(1))
	if err == nil || IsNotFound(err) {
		t.Fatalf("error = %v, want a non-404 API error", err)
	}
}

func TestFinishedBuildsFollowsNextHref(t *testing.T) {
	var requests int
	client := newTestClient(t, "token", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if r.URL.Query().Get("page") == "2" {
			writeJSON(t, w, BuildRefs{Count: 1, Build: []BuildRef{{ID: 3}}})
			return
		}
		locator := r.URL.Query().Get("locator")
		if locator != "buildType:Ignite_Cache,state:finished,count:1000,branch:(name:master)" {
			t.Errorf("locator = %q", locator)
		}
		writeJSON(t, w, BuildRefs{
			Count:    2,
			NextHref: "/app/rest/latest/builds?page=2",
			Build:    []BuildRef{{ID: 1}, {ID: 2}},
		})
	}))

	refs, err := client.FinishedBuilds(context.Background(), "Ignite_Cache", "master")
	if err != nil {
		t.Fatalf("FinishedBuilds: %v", err)
	}
	if len(refs) != 3 || refs[2].ID != 3 {
		t.Errorf("refs = %+v", refs)
	}
	if requests != 2 {
		t.Errorf("requests = %d, want 2", requests)
	}
}

func TestTestsConcatenatesPages(t *testing.T) {
	duration := 12
	client := newTestClient(t, "token", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("start") == "1" {
			writeJSON(t, w, TestOccurrences{Count: 1, TestOccurrence: []TestOccurrence{{Name: "b", Status: StatusFailure}}})
			return
		}
		writeJSON(t, w, TestOccurrences{
			Count:          1,
			NextHref:       "/app/rest/latest/testOccurrences?start=1",
			TestOccurrence: []TestOccurrence{{Name: "a", Status: StatusSuccess, Duration: &duration}},
		})
	}))

	tests, err := client.Tests(context.Background(), TestsHref(5))
	if err != nil {
		t.Fatalf("Tests: %v", err)
	}
	if tests.Count != 2 || len(tests.TestOccurrence) != 2 {
		t.Fatalf("tests = %+v", tests)
	}
	if !tests.TestOccurrence[1].IsFailedButNotMuted() {
		t.Error("second test should be an unmuted failure")
	}
	if tests.Href != TestsHref(5) {
		t.Errorf("Href = %q", tests.Href)
	}
}
