// Copyright 2026 The tcbot Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/pflag"

	"github.com/tcbot-project/tcbot/cmd/tcbot/cli"
	"github.com/tcbot-project/tcbot/lib/tccache"
)

type dumpParams struct {
	ConfigFlags
}

func dumpCommand() *cli.Command {
	var params dumpParams
	return &cli.Command{
		Name:    "dump",
		Summary: "Print a raw cache entry",
		Description: `Print one stored cache entry in CBOR diagnostic notation, as it sits
in the store. Nothing is fetched from the server.

Caches: ` + strings.Join(tccache.CacheNames(), ", ") + `.

Build lists are keyed by suite@branch, fatBuilds by build id and the
other caches by the REST href they were loaded from.`,
		Usage: "tcbot dump <cache> <key> [flags]",
		Flags: func() *pflag.FlagSet { return cli.FlagsFromParams("dump", &params) },
		Examples: []cli.Example{
			{Description: "Compact record of build 4242", Command: "tcbot dump fatBuilds 4242"},
			{Description: "Cached build list of a suite", Command: "tcbot dump finishedBuilds IgniteTests24Java8_RunAll@master"},
		},
		Run: func(ctx context.Context, args []string, _ *slog.Logger) error {
			if len(args) != 2 {
				return errors.New("usage: tcbot dump <cache> <key>")
			}
			return withEnvironment(ctx, params.ConfigFlags, func(env *environment) error {
				server, err := env.server(params.Server)
				if err != nil {
					return err
				}
				diagnosis, found, err := server.DumpEntry(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				if !found {
					return fmt.Errorf("no %s entry for %q on server %s", args[0], args[1], server.ServerID())
				}
				_, err = fmt.Fprintln(stdout, diagnosis)
				return err
			})
		},
	}
}
