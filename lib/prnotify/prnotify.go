// Copyright 2026 The tcbot Authors
// SPDX-License-Identifier: Apache-2.0

// Package prnotify reports suite results on GitHub pull requests.
//
// TeamCity builds a pull request on the branch "pull/<n>/head". For
// such a branch the [Notifier] looks up the pull request's head
// commit and attaches a commit status summarizing the latest build.
// Other branches are ignored.
//
// Notification is best effort: [Notifier.Notify] logs a failure and
// reports it as false, it never returns an error.
package prnotify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/tcbot-project/tcbot/lib/compact"
	"github.com/tcbot-project/tcbot/lib/github"
)

// defaultContext is the commit status context when none is set.
const defaultContext = "tcbot"

// maxDescription is GitHub's limit on a status description.
const maxDescription = 140

// GitHub is the part of the GitHub API the notifier uses.
// *github.Client implements it.
type GitHub interface {
	GetPullRequest(ctx context.Context, owner, repo string, number int) (*github.PullRequest, error)
	CreateCommitStatus(ctx context.Context, owner, repo, sha string, request github.CreateStatusRequest) (*github.CommitStatus, error)
}

var _ GitHub = (*github.Client)(nil)

// Config configures [New].
type Config struct {
	Owner string
	Repo  string

	// Context labels the posted statuses. Defaults to "tcbot".
	Context string

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Notifier posts commit statuses for one repository.
type Notifier struct {
	client  GitHub
	owner   string
	repo    string
	context string
	logger  *slog.Logger
}

// New returns a notifier posting through client.
func New(client GitHub, cfg Config) (*Notifier, error) {
	if client == nil {
		return nil, errors.New("prnotify: client is required")
	}
	if cfg.Owner == "" || cfg.Repo == "" {
		return nil, errors.New("prnotify: Owner and Repo are required")
	}
	if cfg.Context == "" {
		cfg.Context = defaultContext
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Notifier{
		client:  client,
		owner:   cfg.Owner,
		repo:    cfg.Repo,
		context: cfg.Context,
		logger:  cfg.Logger.With("repo", cfg.Owner+"/"+cfg.Repo),
	}, nil
}

// PullRequestNumber extracts n from a "pull/<n>/head" branch name. A
// "refs/" prefix is accepted.
func PullRequestNumber(branch string) (int, bool) {
	rest, ok := strings.CutPrefix(strings.TrimPrefix(branch, "refs/"), "pull/")
	if !ok {
		return 0, false
	}
	digits, ok := strings.CutSuffix(rest, "/head")
	if !ok {
		return 0, false
	}
	number, err := strconv.Atoi(digits)
	if err != nil || number <= 0 {
		return 0, false
	}
	return number, true
}

// Summary is the result a status reports.
type Summary struct {
	Suite   string
	BuildID int

	// WebURL links the status to the build page. Optional.
	WebURL string

	Finished bool

	// Status is the invocation status of a finished build.
	Status compact.InvocationStatus

	// FailedTests counts failed tests that are not muted.
	FailedTests int
}

// SummaryOf summarizes a compact build record.
func SummaryOf(strings compact.Interner, build *compact.FatBuild, webURL string) Summary {
	return Summary{
		Suite:       build.SuiteName(strings),
		BuildID:     build.BuildID(),
		WebURL:      webURL,
		Finished:    build.IsFinished(strings),
		Status:      build.Classify(strings),
		FailedTests: len(build.FailedNotMutedTests(strings)),
	}
}

func (s Summary) state() string {
	switch {
	case !s.Finished:
		return github.StatusPending
	case s.Status == compact.InvocationCriticalFailure:
		return github.StatusError
	case s.Status == compact.InvocationFailure || s.FailedTests > 0:
		return github.StatusFailure
	default:
		return github.StatusSuccess
	}
}

func (s Summary) description() string {
	suite := s.Suite
	if suite == "" {
		suite = "build"
	}
	var text string
	switch {
	case !s.Finished:
		text = fmt.Sprintf("%s #%d is running", suite, s.BuildID)
	case s.Status == compact.InvocationCriticalFailure:
		text = fmt.Sprintf("%s #%d: critical failure", suite, s.BuildID)
	case s.FailedTests == 1:
		text = fmt.Sprintf("%s #%d: 1 failed test", suite, s.BuildID)
	case s.FailedTests > 0:
		text = fmt.Sprintf("%s #%d: %d failed tests", suite, s.BuildID, s.FailedTests)
	case s.Status == compact.InvocationFailure:
		text = fmt.Sprintf("%s #%d: build problems", suite, s.BuildID)
	default:
		text = fmt.Sprintf("%s #%d passed", suite, s.BuildID)
	}
	if len(text) > maxDescription {
		text = text[:maxDescription-3] + "..."
	}
	return text
}

// Notify posts summary to the pull request behind branch. It returns
// true when a status was posted. A branch that is not a pull request
// branch returns false without contacting GitHub.
func (n *Notifier) Notify(ctx context.Context, branch string, summary Summary) bool {
	number, ok := PullRequestNumber(branch)
	if !ok {
		n.logger.Debug("branch is not a pull request, not notifying", "branch", branch)
		return false
	}

	pullRequest, err := n.client.GetPullRequest(ctx, n.owner, n.repo, number)
	if err != nil {
		n.logger.Error("failed to notify GitHub", "pull_request", number, "error", err)
		return false
	}
	if pullRequest.Head.SHA == "" {
		n.logger.Error("failed to notify GitHub", "pull_request", number, "error", "pull request has no head commit")
		return false
	}

	request := github.CreateStatusRequest{
		State:       summary.state(),
		TargetURL:   summary.WebURL,
		Description: summary.description(),
		Context:     n.context,
	}
	if _, err := n.client.CreateCommitStatus(ctx, n.owner, n.repo, pullRequest.Head.SHA, request); err != nil {
		n.logger.Error("failed to notify GitHub", "pull_request", number, "sha", pullRequest.Head.SHA, "error", err)
		return false
	}
	n.logger.Info("posted pull request status",
		"pull_request", number, "state", request.State, "build_id", summary.BuildID)
	return true
}
