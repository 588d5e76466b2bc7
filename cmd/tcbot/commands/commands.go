// Copyright 2026 The tcbot Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the tcbot CLI command tree.
package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tcbot-project/tcbot/cmd/tcbot/cli"
	"github.com/tcbot-project/tcbot/lib/version"
)

// Root builds and returns the complete tcbot CLI command tree.
func Root() *cli.Command {
	return &cli.Command{
		Name: "tcbot",
		Description: `tcbot: a caching front end for TeamCity build results.

Build lists, build results, tests, problems and statistics are cached
in a local or shared key-value store. Finished builds are kept as
compact records that feed run history and test failure statistics.`,
		Subcommands: []*cli.Command{
			buildsCommand(),
			buildCommand(),
			testsCommand(),
			problemsCommand(),
			statCommand(),
			fatBuildCommand(),
			topCommand(),
			historyCommand(),
			serveCommand(),
			dumpCommand(),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(_ context.Context, args []string, _ *slog.Logger) error {
					fmt.Fprintf(stdout, "tcbot %s\n", version.Full())
					return nil
				},
			},
		},
		Examples: []cli.Example{
			{
				Description: "Most failing tests across the cached test lists",
				Command:     "tcbot top failing -n 20",
			},
			{
				Description: "Run history of a suite on master",
				Command:     "tcbot history --suite IgniteTests24Java8_RunAll -b master",
			},
			{
				Description: "Keep tracked suites fresh",
				Command:     "tcbot serve --config /etc/tcbot/tcbot.yaml",
			},
		},
	}
}
