// Copyright 2026 The tcbot Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func execute(command *Command, args ...string) error {
	return command.Execute(context.Background(), args, discard)
}

func TestExecuteDispatchesToSubcommand(t *testing.T) {
	var called string
	var receivedArgs []string
	root := &Command{
		Name:   "tcbot",
		Output: io.Discard,
		Subcommands: []*Command{
			{Name: "version", Run: func(context.Context, []string, *slog.Logger) error {
				called = "version"
				return nil
			}},
			{Name: "fatbuild", Run: func(_ context.Context, args []string, _ *slog.Logger) error {
				called = "fatbuild"
				receivedArgs = args
				return nil
			}},
		},
	}

	if err := execute(root, "fatbuild", "4242"); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if called != "fatbuild" || len(receivedArgs) != 1 || receivedArgs[0] != "4242" {
		t.Errorf("called %q with %v", called, receivedArgs)
	}
}

func TestExecuteFlagParsing(t *testing.T) {
	var count int
	var ttl time.Duration
	command := &Command{
		Name: "top",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("top", pflag.ContinueOnError)
			flagSet.IntVarP(&count, "count", "n", 10, "number of tests")
			flagSet.DurationVar(&ttl, "ttl", time.Minute, "ttl")
			return flagSet
		},
		Run: func(_ context.Context, args []string, _ *slog.Logger) error {
			if len(args) != 1 || args[0] != "failing" {
				t.Errorf("args = %v", args)
			}
			return nil
		},
	}
	if err := execute(command, "-n", "3", "--ttl=30s", "failing"); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if count != 3 || ttl != 30*time.Second {
		t.Errorf("count=%d ttl=%v", count, ttl)
	}
}

func TestExecuteUnknownSubcommandSuggests(t *testing.T) {
	root := &Command{
		Name:   "tcbot",
		Output: io.Discard,
		Subcommands: []*Command{
			{Name: "history", Run: func(context.Context, []string, *slog.Logger) error { return nil }},
			{Name: "problems", Run: func(context.Context, []string, *slog.Logger) error { return nil }},
		},
	}
	err := execute(root, "histroy")
	if err == nil || !strings.Contains(err.Error(), `did you mean "history"`) {
		t.Errorf("err = %v", err)
	}
	err = execute(root, "zzzzzzzzzz")
	if err == nil || strings.Contains(err.Error(), "did you mean") {
		t.Errorf("distant command got a suggestion: %v", err)
	}
}

func TestExecuteUnknownFlagSuggests(t *testing.T) {
	var branch string
	command := &Command{
		Name: "builds",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("builds", pflag.ContinueOnError)
			flagSet.StringVar(&branch, "branch", "", "branch")
			return flagSet
		},
		Run: func(context.Context, []string, *slog.Logger) error { return nil },
	}
	err := execute(command, "--brnch", "master")
	if err == nil || !strings.Contains(err.Error(), "did you mean --branch?") {
		t.Errorf("err = %v", err)
	}
}

func TestExecuteRequiresSubcommand(t *testing.T) {
	var help bytes.Buffer
	root := &Command{
		Name:        "tcbot",
		Output:      &help,
		Subcommands: []*Command{{Name: "serve", Summary: "Run the refresh loop"}},
	}
	if err := execute(root); err == nil || err.Error() != "subcommand required" {
		t.Errorf("err = %v", err)
	}
	if !strings.Contains(help.String(), "serve") || !strings.Contains(help.String(), "Run the refresh loop") {
		t.Errorf("help output:\n%s", help.String())
	}
}

func TestHelpFlag(t *testing.T) {
	var help bytes.Buffer
	ran := false
	command := &Command{
		Name:        "stat",
		Description: "Print a build's statistics.",
		Output:      &help,
		Examples:    []Example{{Description: "Show build 42", Command: "tcbot stat 42"}},
		Run: func(context.Context, []string, *slog.Logger) error {
			ran = true
			return nil
		},
	}
	if err := execute(command, "--help"); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if ran {
		t.Error("Run called for --help")
	}
	for _, want := range []string{"Print a build's statistics.", "Usage:\n  stat [flags]", "# Show build 42", "tcbot stat 42"} {
		if !strings.Contains(help.String(), want) {
			t.Errorf("help missing %q:\n%s", want, help.String())
		}
	}
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"top", "top", 0},
		{"top", "tpo", 2},
		{"kitten", "sitting", 3},
		{"builds", "build", 1},
	}
	for _, tc := range tests {
		if got := levenshtein(tc.a, tc.b); got != tc.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestSuggestFlag(t *testing.T) {
	newFlagSet := func() *pflag.FlagSet {
		flagSet := pflag.NewFlagSet("builds", pflag.ContinueOnError)
		flagSet.StringP("branch", "b", "", "branch")
		flagSet.String("suite", "", "suite")
		return flagSet
	}
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"--brnch", "master"}, "--branch"},
		{[]string{"--suite", "S", "--brnch=master"}, "--branch"},
		{[]string{"-b", "master", "--suiet", "S"}, "--suite"},
		{[]string{"-bmaster", "--suiet=S"}, "--suite"},
		{[]string{"-x"}, ""},
		{[]string{"--completely-unrelated"}, ""},
		{[]string{"--", "--brnch"}, ""},
		{[]string{"-"}, ""},
	}
	for _, tt := range tests {
		if got := suggestFlag(tt.args, newFlagSet()); got != tt.want {
			t.Errorf("suggestFlag(%q) = %q, want %q", tt.args, got, tt.want)
		}
	}
}
