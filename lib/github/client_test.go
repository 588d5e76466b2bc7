// Copyright 2026 The tcbot Authors
// SPDX-License-Identifier: Apache-2.0

package github

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tcbot-project/tcbot/lib/clock"
)

func newTestClient(t *testing.T, server *httptest.Server, clk clock.Clock) *Client {
	t.Helper()
	if clk == nil {
		clk = clock.Real()
	}
	client, err := NewClient(Config{
		BaseURL:    server.URL,
		Token:      "test-token",
		HTTPClient: server.Client(),
		Clock:      clk,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(Config{BaseURL: "http://api.github.com", Token: "x"}); err == nil ||
		err.Error() != `github: API client requires HTTPS (got "http://api.github.com")` {
		t.Errorf("plain HTTP: err = %v", err)
	}
	if _, err := NewClient(Config{}); err == nil {
		t.Error("missing token accepted")
	}
	client, err := NewClient(Config{Token: "x"})
	if err != nil || client.baseURL != defaultBaseURL {
		t.Errorf("default base URL: %v, %v", client, err)
	}
}

func TestGetPullRequest(t *testing.T) {
	var authorization, accept, version, path string
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authorization = r.Header.Get("Authorization")
		accept = r.Header.Get("Accept")
		version = r.Header.Get("X-GitHub-Api-Version")
		path = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"number":5012,"title":"IGNITE-9000 fix","state":"open","head":{"ref":"ignite-9000","sha":"abc123"}}`))
	}))
	defer server.Close()

	pullRequest, err := newTestClient(t, server, nil).GetPullRequest(context.Background(), "apache", "ignite", 5012)
	if err != nil {
		t.Fatalf("GetPullRequest: %v", err)
	}
	if pullRequest.Number != 5012 || pullRequest.Head.SHA != "abc123" {
		t.Errorf("pull request = %+v", pullRequest)
	}
	if authorization != "Bearer test-token" || accept != "application/vnd.github+json" || version != apiVersion {
		t.Errorf("headers: authorization=%q accept=%q version=%q", authorization, accept, version)
	}
	if path != "/repos/apache/ignite/pulls/5012" {
		t.Errorf("path = %q", path)
	}
}

func TestGetPullRequestNotFound(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"Not Found","documentation_url":"https://docs.github.com/rest"}`))
	}))
	defer server.Close()

	_, err := newTestClient(t, server, nil).GetPullRequest(context.Background(), "apache", "ignite", 1)
	if !IsNotFound(err) {
		t.Fatalf("err = %v, want not found", err)
	}
	if IsRateLimited(err) {
		t.Error("404 classified as rate limited")
	}
}

func TestListPullRequestsFollowsLinks(t *testing.T) {
	var serverURL string
	var queries []string
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		queries = append(queries, r.URL.RawQuery)
		switch r.URL.Query().Get("page") {
		case "":
			w.Header().Set("Link", `<`+serverURL+`/repos/apache/ignite/pulls?page=2>; rel="next", <`+serverURL+`/repos/apache/ignite/pulls?page=2>; rel="last"`)
			w.Write([]byte(`[{"number":3},{"number":2}]`))
		case "2":
			w.Write([]byte(`[{"number":1}]`))
		}
	}))
	defer server.Close()
	serverURL = server.URL

	iterator := newTestClient(t, server, nil).ListPullRequests("apache", "ignite",
		ListPullRequestsOptions{Sort: "updated", Direction: "desc"})
	pulls, err := iterator.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(pulls) != 3 || pulls[2].Number != 1 {
		t.Errorf("pulls = %+v", pulls)
	}
	if queries[0] != "direction=desc&sort=updated" {
		t.Errorf("first query = %q", queries[0])
	}
	if iterator.NextURL() != "" {
		t.Errorf("NextURL after last page = %q", iterator.NextURL())
	}
}

func TestCreateCommitStatus(t *testing.T) {
	var method, path string
	var request CreateStatusRequest
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Content-Type = %q", r.Header.Get("Content-Type"))
		}
		if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":77,"state":"failure","context":"tcbot"}`))
	}))
	defer server.Close()

	status, err := newTestClient(t, server, nil).CreateCommitStatus(context.Background(), "apache", "ignite",
		"0123456789abcdef0123456789abcdef01234567",
		CreateStatusRequest{State: StatusFailure, Description: "2 new failures", Context: "tcbot"})
	if err != nil {
		t.Fatalf("CreateCommitStatus: %v", err)
	}
	if status.ID != 77 || method != http.MethodPost || path != "/repos/apache/ignite/statuses/0123456789abcdef0123456789abcdef01234567" {
		t.Errorf("status=%+v method=%s path=%s", status, method, path)
	}
	if request.State != StatusFailure || request.Description != "2 new failures" {
		t.Errorf("request = %+v", request)
	}
}

func TestETagRevalidation(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		w.Write([]byte(`{"number":9,"title":"cached"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server, nil)
	for i := 0; i < 2; i++ {
		pullRequest, err := client.GetPullRequest(context.Background(), "apache", "ignite", 9)
		if err != nil {
			t.Fatalf("GetPullRequest #%d: %v", i, err)
		}
		if pullRequest.Title != "cached" {
			t.Errorf("call %d: title = %q", i, pullRequest.Title)
		}
	}
	if requests.Load() != 2 {
		t.Errorf("requests = %d, want 2", requests.Load())
	}
}

func TestRateLimitedRequestRetriedOnce(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) == 1 {
			w.Header().Set("Retry-After", "30")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"message":"You have exceeded a secondary rate limit"}`))
			return
		}
		w.Write([]byte(`{"number":4}`))
	}))
	defer server.Close()

	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	client := newTestClient(t, server, fake)

	type result struct {
		pullRequest *PullRequest
		err         error
	}
	done := make(chan result, 1)
	go func() {
		pullRequest, err := client.GetPullRequest(context.Background(), "apache", "ignite", 4)
		done <- result{pullRequest, err}
	}()

	fake.WaitForTimers(1)
	fake.Advance(30 * time.Second)
	got := <-done
	if got.err != nil || got.pullRequest.Number != 4 {
		t.Fatalf("after backoff: %+v, %v", got.pullRequest, got.err)
	}
	if requests.Load() != 2 {
		t.Errorf("requests = %d, want 2", requests.Load())
	}
}

func TestRateLimitMessageClassification(t *testing.T) {
	cases := []struct {
		err  *APIError
		want bool
	}{
		{&APIError{StatusCode: 429}, true},
		{&APIError{StatusCode: 403, Message: "API rate limit exceeded for user"}, true},
		{&APIError{StatusCode: 403, Message: "Resource not accessible by integration"}, false},
		{&APIError{StatusCode: 500, Message: "rate limit"}, false},
	}
	for _, tc := range cases {
		if got := IsRateLimited(tc.err); got != tc.want {
			t.Errorf("IsRateLimited(%d %q) = %v", tc.err.StatusCode, tc.err.Message, got)
		}
	}
}

func TestParseAPIErrorPlainBody(t *testing.T) {
	err := parseAPIError(http.StatusBadGateway, []byte("  upstream timeout\n"))
	if err.Message != "upstream timeout" || !strings.Contains(err.Error(), "HTTP 502") {
		t.Errorf("err = %v", err)
	}
}
