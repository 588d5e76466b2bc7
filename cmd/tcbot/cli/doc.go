// Copyright 2026 The tcbot Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli provides the command-line framework for the tcbot CLI.
//
// The central type is [Command], a named subcommand with optional
// nested [Command.Subcommands], a [pflag.FlagSet] factory, and a Run
// function. Commands are assembled into a tree in cmd/tcbot/commands
// and dispatched via [Command.Execute], which handles flag parsing,
// subcommand routing, and help output with examples.
//
// An unknown subcommand or flag gets a "did you mean" suggestion
// computed by Levenshtein distance (at most 3).
//
// [FlagsFromParams] binds flags from struct tags, and [JSONOutput]
// adds a --json flag to any params struct.
package cli
