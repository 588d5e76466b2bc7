// Copyright 2026 The tcbot Authors
// SPDX-License-Identifier: Apache-2.0

// tcbot queries and caches TeamCity build results. See
// "tcbot --help" for the command list.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/tcbot-project/tcbot/cmd/tcbot/cli"
	"github.com/tcbot-project/tcbot/cmd/tcbot/commands"
	"github.com/tcbot-project/tcbot/lib/process"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := commands.Root().Execute(ctx, os.Args[1:], cli.NewCommandLogger())
	stop()
	if err != nil {
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		process.Fatal(err)
	}
}
