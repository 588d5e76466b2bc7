// Copyright 2026 The tcbot Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/tcbot-project/tcbot/cmd/tcbot/cli"
	"github.com/tcbot-project/tcbot/lib/compact"
	"github.com/tcbot-project/tcbot/lib/runstat"
	"github.com/tcbot-project/tcbot/lib/teamcity"
)

// stdout is where query results go. Tests replace it.
var stdout io.Writer = os.Stdout

type queryParams struct {
	ConfigFlags
	cli.JSONOutput
}

type suiteParams struct {
	queryParams
	Suite         string `flag:"suite" desc:"build type id (required)"`
	Branch        string `flag:"branch,b" default:"<default>" desc:"branch name"`
	IncludeFailed bool   `flag:"include-failed" desc:"include builds whose snapshot dependencies failed"`
}

func buildsCommand() *cli.Command {
	var params suiteParams
	return &cli.Command{
		Name:    "builds",
		Summary: "List the finished builds of a suite on a branch",
		Description: `List the finished builds of a suite on a branch, oldest first.

The list is served from the cache while it is younger than
cache.finished_builds_ttl; otherwise the server is asked again and
the answer merged into the cached list by build id.`,
		Flags: func() *pflag.FlagSet { return cli.FlagsFromParams("builds", &params) },
		Examples: []cli.Example{
			{Description: "Builds of a pull request", Command: "tcbot builds --suite IgniteTests24Java8_RunAll -b pull/5012/head"},
		},
		Run: func(ctx context.Context, args []string, _ *slog.Logger) error {
			if params.Suite == "" {
				return errors.New("--suite is required")
			}
			return withEnvironment(ctx, params.ConfigFlags, func(env *environment) error {
				server, err := env.server(params.Server)
				if err != nil {
					return err
				}
				var builds []teamcity.BuildRef
				if params.IncludeFailed {
					builds, err = server.GetFinishedBuildsIncludeSnDepFailed(ctx, params.Suite, params.Branch)
				} else {
					builds, err = server.GetFinishedBuilds(ctx, params.Suite, params.Branch)
				}
				if err != nil {
					return err
				}
				if done, err := params.EmitJSON(builds); done {
					return err
				}
				tw := tabwriter.NewWriter(stdout, 2, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tSTATUS\tSTATE\tBRANCH")
				for _, build := range builds {
					fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", build.ID, build.Status, build.State, build.BranchName)
				}
				return tw.Flush()
			})
		},
	}
}

func buildCommand() *cli.Command {
	var params queryParams
	return &cli.Command{
		Name:    "build",
		Summary: "Show one build",
		Usage:   "tcbot build <build-id> [flags]",
		Flags:   func() *pflag.FlagSet { return cli.FlagsFromParams("build", &params) },
		Run: func(ctx context.Context, args []string, _ *slog.Logger) error {
			buildID, err := parseBuildID(args)
			if err != nil {
				return err
			}
			return withEnvironment(ctx, params.ConfigFlags, func(env *environment) error {
				server, err := env.server(params.Server)
				if err != nil {
					return err
				}
				build, err := server.GetBuildResults(ctx, teamcity.BuildHref(buildID))
				if err != nil {
					return err
				}
				if done, err := params.EmitJSON(build); done {
					return err
				}
				if build.IsFakeStub() {
					fmt.Fprintf(stdout, "build %d is not known to server %s\n", buildID, server.ServerID())
					return nil
				}
				tw := tabwriter.NewWriter(stdout, 2, 0, 2, ' ', 0)
				fmt.Fprintf(tw, "ID:\t%d\n", build.ID)
				fmt.Fprintf(tw, "Suite:\t%s\n", build.BuildTypeID)
				fmt.Fprintf(tw, "Project:\t%s\n", build.ProjectID())
				fmt.Fprintf(tw, "Branch:\t%s\n", build.BranchName)
				fmt.Fprintf(tw, "Status:\t%s (%s)\n", build.Status, build.State)
				fmt.Fprintf(tw, "Started:\t%s\n", formatTimestamp(build.StartDate))
				fmt.Fprintf(tw, "Finished:\t%s\n", formatTimestamp(build.FinishDate))
				return tw.Flush()
			})
		},
	}
}

type testsParams struct {
	queryParams
	Failed bool `flag:"failed" desc:"only failed tests that are not muted"`
}

func testsCommand() *cli.Command {
	var params testsParams
	return &cli.Command{
		Name:    "tests",
		Summary: "List the test occurrences of a build",
		Usage:   "tcbot tests <build-id> [flags]",
		Flags:   func() *pflag.FlagSet { return cli.FlagsFromParams("tests", &params) },
		Run: func(ctx context.Context, args []string, _ *slog.Logger) error {
			buildID, err := parseBuildID(args)
			if err != nil {
				return err
			}
			return withEnvironment(ctx, params.ConfigFlags, func(env *environment) error {
				server, err := env.server(params.Server)
				if err != nil {
					return err
				}
				tests, err := server.GetTests(ctx, teamcity.TestsHref(buildID))
				if err != nil {
					return err
				}
				occurrences := tests.TestOccurrence
				if params.Failed {
					occurrences = nil
					for _, occurrence := range tests.TestOccurrence {
						if occurrence.IsFailedButNotMuted() {
							occurrences = append(occurrences, occurrence)
						}
					}
				}
				if done, err := params.EmitJSON(occurrences); done {
					return err
				}
				tw := tabwriter.NewWriter(stdout, 2, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "STATUS\tDURATION\tMUTED\tNAME")
				for _, occurrence := range occurrences {
					duration := "-"
					if occurrence.Duration != nil {
						duration = (time.Duration(*occurrence.Duration) * time.Millisecond).String()
					}
					fmt.Fprintf(tw, "%s\t%s\t%t\t%s\n", occurrence.Status, duration, occurrence.IsMutedOrIgnored(), occurrence.Name)
				}
				return tw.Flush()
			})
		},
	}
}

func problemsCommand() *cli.Command {
	var params queryParams
	return &cli.Command{
		Name:    "problems",
		Summary: "List the problems of a build",
		Usage:   "tcbot problems <build-id> [flags]",
		Flags:   func() *pflag.FlagSet { return cli.FlagsFromParams("problems", &params) },
		Run: func(ctx context.Context, args []string, _ *slog.Logger) error {
			buildID, err := parseBuildID(args)
			if err != nil {
				return err
			}
			return withEnvironment(ctx, params.ConfigFlags, func(env *environment) error {
				server, err := env.server(params.Server)
				if err != nil {
					return err
				}
				problems, err := server.GetProblems(ctx, teamcity.ProblemsHref(buildID))
				if err != nil {
					return err
				}
				if done, err := params.EmitJSON(problems.ProblemOccurrence); done {
					return err
				}
				tw := tabwriter.NewWriter(stdout, 2, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "TYPE\tCRITICAL\tIDENTITY")
				for _, problem := range problems.ProblemOccurrence {
					fmt.Fprintf(tw, "%s\t%t\t%s\n", problem.Type, problem.IsCritical(), problem.Identity)
				}
				return tw.Flush()
			})
		},
	}
}

func statCommand() *cli.Command {
	var params queryParams
	return &cli.Command{
		Name:    "stat",
		Summary: "Print the statistics of a build",
		Usage:   "tcbot stat <build-id> [flags]",
		Flags:   func() *pflag.FlagSet { return cli.FlagsFromParams("stat", &params) },
		Run: func(ctx context.Context, args []string, _ *slog.Logger) error {
			buildID, err := parseBuildID(args)
			if err != nil {
				return err
			}
			return withEnvironment(ctx, params.ConfigFlags, func(env *environment) error {
				server, err := env.server(params.Server)
				if err != nil {
					return err
				}
				stats, err := server.GetBuildStat(ctx, teamcity.StatisticsHref(buildID))
				if err != nil {
					return err
				}
				if done, err := params.EmitJSON(stats.Property); done {
					return err
				}
				tw := tabwriter.NewWriter(stdout, 2, 0, 2, ' ', 0)
				for _, property := range stats.Property {
					fmt.Fprintf(tw, "%s\t%s\n", property.Name, property.Value)
				}
				return tw.Flush()
			})
		},
	}
}

// fatBuildView is the printable form of a compact build record.
type fatBuildView struct {
	Build       *teamcity.Build `json:"build"`
	FakeStub    bool            `json:"fakeStub"`
	Invocation  string          `json:"invocation"`
	Tests       int             `json:"tests"`
	FailedTests []string        `json:"failedTests"`
	Problems    []string        `json:"problems"`
	DurationMs  *int64          `json:"durationMs,omitempty"`
	Changes     []int32         `json:"changes"`
}

func newFatBuildView(strings compact.Interner, record *compact.FatBuild) fatBuildView {
	view := fatBuildView{
		Build:      record.ToBuild(strings),
		FakeStub:   record.IsFakeStub(),
		Invocation: record.Classify(strings).String(),
		Tests:      record.TestsCount(),
		Changes:    record.Changes(),
	}
	for _, test := range record.FailedNotMutedTests(strings) {
		view.FailedTests = append(view.FailedTests, test.TestName(strings))
	}
	for _, problem := range record.Problems() {
		view.Problems = append(view.Problems, problem.TypeName(strings))
	}
	if duration, ok := record.BuildDuration(strings); ok {
		view.DurationMs = &duration
	}
	return view
}

func fatBuildCommand() *cli.Command {
	var params queryParams
	return &cli.Command{
		Name:    "fatbuild",
		Summary: "Show the compact record of a build",
		Description: `Show the compact record of a build, assembling it from the build,
its tests, problems, statistics and changes on first use.`,
		Usage: "tcbot fatbuild <build-id> [flags]",
		Flags: func() *pflag.FlagSet { return cli.FlagsFromParams("fatbuild", &params) },
		Run: func(ctx context.Context, args []string, _ *slog.Logger) error {
			buildID, err := parseBuildID(args)
			if err != nil {
				return err
			}
			return withEnvironment(ctx, params.ConfigFlags, func(env *environment) error {
				server, err := env.server(params.Server)
				if err != nil {
					return err
				}
				record, err := server.GetFatBuild(ctx, buildID)
				if err != nil {
					return err
				}
				view := newFatBuildView(env.strings, record)
				if done, err := params.EmitJSON(view); done {
					return err
				}
				if view.FakeStub {
					fmt.Fprintf(stdout, "build %d is not known to server %s\n", buildID, server.ServerID())
					return nil
				}
				tw := tabwriter.NewWriter(stdout, 2, 0, 2, ' ', 0)
				fmt.Fprintf(tw, "ID:\t%d\n", view.Build.ID)
				fmt.Fprintf(tw, "Suite:\t%s\n", view.Build.BuildTypeID)
				fmt.Fprintf(tw, "Branch:\t%s\n", view.Build.BranchName)
				fmt.Fprintf(tw, "Status:\t%s (%s)\n", view.Build.Status, view.Invocation)
				if view.DurationMs != nil {
					fmt.Fprintf(tw, "Duration:\t%s\n", time.Duration(*view.DurationMs)*time.Millisecond)
				}
				fmt.Fprintf(tw, "Tests:\t%d (%d failed)\n", view.Tests, len(view.FailedTests))
				fmt.Fprintf(tw, "Changes:\t%d\n", len(view.Changes))
				if err := tw.Flush(); err != nil {
					return err
				}
				for _, problem := range view.Problems {
					fmt.Fprintf(stdout, "problem: %s\n", problem)
				}
				for _, name := range view.FailedTests {
					fmt.Fprintf(stdout, "failed: %s\n", name)
				}
				return nil
			})
		},
	}
}

type topParams struct {
	queryParams
	Count int `flag:"count,n" default:"10" desc:"number of tests"`
}

func topCommand() *cli.Command {
	var params topParams
	return &cli.Command{
		Name:    "top",
		Summary: "Rank cached tests by fail rate or average duration",
		Usage:   "tcbot top failing|long-running [flags]",
		Description: `Rank every test in the cached test lists of a server.

"failing" orders by fail rate, "long-running" by average duration.
Ties go to the alphabetically earlier name. Muted and ignored
occurrences are not counted.`,
		Flags: func() *pflag.FlagSet { return cli.FlagsFromParams("top", &params) },
		Run: func(ctx context.Context, args []string, _ *slog.Logger) error {
			if len(args) != 1 || (args[0] != "failing" && args[0] != "long-running") {
				return errors.New(`expected "failing" or "long-running"`)
			}
			if params.Count <= 0 {
				return errors.New("--count must be positive")
			}
			return withEnvironment(ctx, params.ConfigFlags, func(env *environment) error {
				server, err := env.server(params.Server)
				if err != nil {
					return err
				}
				var top []runstat.TestRunStat
				if args[0] == "failing" {
					top, err = server.TopFailing(ctx, params.Count)
				} else {
					top, err = server.TopLongRunning(ctx, params.Count)
				}
				if err != nil {
					return err
				}
				if done, err := params.EmitJSON(top); done {
					return err
				}
				writeTop(stdout, top)
				return nil
			})
		},
	}
}

func writeTop(w io.Writer, top []runstat.TestRunStat) {
	tw := tabwriter.NewWriter(w, 2, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FAIL RATE\tFAILED\tRUNS\tAVG\tTEST")
	for _, stat := range top {
		fmt.Fprintf(tw, "%.1f%%\t%d\t%d\t%s\t%s\n", 100*stat.FailRate(), stat.Failures, stat.Runs,
			time.Duration(stat.AverageDurationMs())*time.Millisecond, stat.Name)
	}
	tw.Flush()
}

func historyCommand() *cli.Command {
	var params suiteParams
	return &cli.Command{
		Name:    "history",
		Summary: "Summarize the run history of a suite on a branch",
		Description: `Summarize the run history of a suite on a branch from the compact
build records: run count, failure rates and the latest results as
one character per run ('.' ok, 'x' failure, '!' critical failure).`,
		Flags: func() *pflag.FlagSet { return cli.FlagsFromParams("history", &params) },
		Run: func(ctx context.Context, args []string, _ *slog.Logger) error {
			if params.Suite == "" {
				return errors.New("--suite is required")
			}
			return withEnvironment(ctx, params.ConfigFlags, func(env *environment) error {
				server, err := env.server(params.Server)
				if err != nil {
					return err
				}
				history, err := server.SuiteHistory(ctx, params.Suite, params.Branch)
				if err != nil {
					return err
				}
				if done, err := params.EmitJSON(history); done {
					return err
				}
				tw := tabwriter.NewWriter(stdout, 2, 0, 2, ' ', 0)
				fmt.Fprintf(tw, "Suite:\t%s\n", history.Suite)
				fmt.Fprintf(tw, "Runs:\t%d\n", history.Runs)
				fmt.Fprintf(tw, "Failures:\t%d (%.1f%%)\n", history.Failures, 100*history.FailRate())
				fmt.Fprintf(tw, "Critical:\t%d (%.1f%%)\n", history.CriticalFailures, 100*history.CriticalFailRate())
				fmt.Fprintf(tw, "Latest:\t%s\n", history.LatestString())
				fmt.Fprintf(tw, "Last build:\t%d\n", history.LastBuildID)
				return tw.Flush()
			})
		},
	}
}

func formatTimestamp(ts *teamcity.Timestamp) string {
	if ts == nil {
		return "-"
	}
	return time.UnixMilli(ts.UnixMilli()).UTC().Format(time.RFC3339)
}
