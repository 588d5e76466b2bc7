// Copyright 2026 The tcbot Authors
// SPDX-License-Identifier: Apache-2.0

package prnotify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/tcbot-project/tcbot/lib/compact"
	"github.com/tcbot-project/tcbot/lib/github"
	"github.com/tcbot-project/tcbot/lib/intern"
	"github.com/tcbot-project/tcbot/lib/teamcity"
)

type fakeGitHub struct {
	heads     map[int]string
	getErr    error
	statusErr error

	posted []postedStatus
}

type postedStatus struct {
	owner, repo, sha string
	request          github.CreateStatusRequest
}

func (f *fakeGitHub) GetPullRequest(_ context.Context, owner, repo string, number int) (*github.PullRequest, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	sha, ok := f.heads[number]
	if !ok {
		return nil, &github.APIError{StatusCode: 404, Message: "Not Found"}
	}
	return &github.PullRequest{Number: number, Head: github.Branch{SHA: sha}}, nil
}

func (f *fakeGitHub) CreateCommitStatus(_ context.Context, owner, repo, sha string, request github.CreateStatusRequest) (*github.CommitStatus, error) {
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	f.posted = append(f.posted, postedStatus{owner, repo, sha, request})
	return &github.CommitStatus{ID: int64(len(f.posted)), State: request.State}, nil
}

func newNotifier(t *testing.T, client GitHub) *Notifier {
	t.Helper()
	notifier, err := New(client, Config{
		Owner:  "apache",
		Repo:   "ignite",
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return notifier
}

func TestPullRequestNumber(t *testing.T) {
	tests := []struct {
		branch string
		want   int
		ok     bool
	}{
		{"pull/5012/head", 5012, true},
		{"refs/pull/7/head", 7, true},
		{"pull/5012/merge", 0, false},
		{"pull//head", 0, false},
		{"pull/-3/head", 0, false},
		{"pull/abc/head", 0, false},
		{"<default>", 0, false},
		{"master", 0, false},
		{"ignite-2.16", 0, false},
	}
	for _, tc := range tests {
		got, ok := PullRequestNumber(tc.branch)
		if got != tc.want || ok != tc.ok {
			t.Errorf("PullRequestNumber(%q) = %d, %v; want %d, %v", tc.branch, got, ok, tc.want, tc.ok)
		}
	}
}

func TestNotifyPostsStatusOnHeadCommit(t *testing.T) {
	client := &fakeGitHub{heads: map[int]string{5012: "abc123"}}
	notifier := newNotifier(t, client)

	summary := Summary{Suite: "RunAll", BuildID: 42, WebURL: "https://ci/viewLog.html?buildId=42",
		Finished: true, Status: compact.InvocationFailure, FailedTests: 3}
	if !notifier.Notify(context.Background(), "pull/5012/head", summary) {
		t.Fatal("Notify returned false")
	}
	if len(client.posted) != 1 {
		t.Fatalf("posted %d statuses", len(client.posted))
	}
	posted := client.posted[0]
	if posted.owner != "apache" || posted.repo != "ignite" || posted.sha != "abc123" {
		t.Errorf("posted to %s/%s@%s", posted.owner, posted.repo, posted.sha)
	}
	want := github.CreateStatusRequest{
		State:       github.StatusFailure,
		TargetURL:   "https://ci/viewLog.html?buildId=42",
		Description: "RunAll #42: 3 failed tests",
		Context:     "tcbot",
	}
	if posted.request != want {
		t.Errorf("request = %+v, want %+v", posted.request, want)
	}
}

func TestNotifyIgnoresOtherBranches(t *testing.T) {
	client := &fakeGitHub{heads: map[int]string{1: "x"}}
	if newNotifier(t, client).Notify(context.Background(), "master", Summary{Finished: true}) {
		t.Error("Notify on master returned true")
	}
	if len(client.posted) != 0 {
		t.Error("status posted for a non pull request branch")
	}
}

func TestNotifyFailuresReturnFalse(t *testing.T) {
	tests := []struct {
		name   string
		client *fakeGitHub
	}{
		{"unknown pull request", &fakeGitHub{heads: map[int]string{}}},
		{"get fails", &fakeGitHub{getErr: errors.New("connection refused")}},
		{"post fails", &fakeGitHub{heads: map[int]string{9: "def"}, statusErr: &github.APIError{StatusCode: 403, Message: "Resource not accessible"}}},
		{"no head sha", &fakeGitHub{heads: map[int]string{9: ""}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if newNotifier(t, tc.client).Notify(context.Background(), "pull/9/head", Summary{Finished: true}) {
				t.Error("Notify returned true")
			}
		})
	}
}

func TestSummaryState(t *testing.T) {
	tests := []struct {
		summary   Summary
		state     string
		described string
	}{
		{Summary{Suite: "S", BuildID: 1}, github.StatusPending, "S #1 is running"},
		{Summary{Suite: "S", BuildID: 2, Finished: true}, github.StatusSuccess, "S #2 passed"},
		{Summary{Suite: "S", BuildID: 3, Finished: true, FailedTests: 1}, github.StatusFailure, "S #3: 1 failed test"},
		{Summary{Suite: "S", BuildID: 4, Finished: true, Status: compact.InvocationFailure}, github.StatusFailure, "S #4: build problems"},
		{Summary{Suite: "S", BuildID: 5, Finished: true, Status: compact.InvocationCriticalFailure, FailedTests: 9}, github.StatusError, "S #5: critical failure"},
		{Summary{BuildID: 6, Finished: true}, github.StatusSuccess, "build #6 passed"},
	}
	for _, tc := range tests {
		if got := tc.summary.state(); got != tc.state {
			t.Errorf("%+v: state = %q, want %q", tc.summary, got, tc.state)
		}
		if got := tc.summary.description(); got != tc.described {
			t.Errorf("%+v: description = %q, want %q", tc.summary, got, tc.described)
		}
	}
}

func TestDescriptionTruncated(t *testing.T) {
	summary := Summary{Suite: strings.Repeat("x", 200), BuildID: 1, Finished: true}
	description := summary.description()
	if len(description) != maxDescription || !strings.HasSuffix(description, "...") {
		t.Errorf("description length %d: %q", len(description), description)
	}
}

func TestSummaryOf(t *testing.T) {
	strings := intern.NewMemory()
	build := compact.New(strings, &teamcity.Build{
		BuildRef: teamcity.BuildRef{ID: 77, BuildTypeID: "RunAll", Status: teamcity.StatusFailure, State: teamcity.StateFinished},
		BuildType: &teamcity.BuildType{ID: "RunAll", Name: "Run All", ProjectID: "Ignite"},
	})
	build.AddTests(strings, []teamcity.TestOccurrence{
		{Name: "a.Test1", Status: teamcity.StatusFailure},
		{Name: "a.Test2", Status: teamcity.StatusSuccess},
	})
	build.AddProblems(strings, []teamcity.ProblemOccurrence{{Type: "TC_FAILED_TESTS"}})

	summary := SummaryOf(strings, build, "https://ci/77")
	if summary.BuildID != 77 || !summary.Finished || summary.FailedTests != 1 || summary.Status != compact.InvocationFailure {
		t.Errorf("summary = %+v", summary)
	}
	if summary.Suite != "Run All" {
		t.Errorf("suite = %q", summary.Suite)
	}
}

func TestNewValidation(t *testing.T) {
	if _, err := New(nil, Config{Owner: "a", Repo: "b"}); err == nil {
		t.Error("nil client accepted")
	}
	if _, err := New(&fakeGitHub{}, Config{Owner: "a"}); err == nil {
		t.Error("missing repo accepted")
	}
}
