// Copyright 2026 The tcbot Authors
// SPDX-License-Identifier: Apache-2.0

// Package process holds binary entrypoint helpers.
package process

import (
	"fmt"
	"os"
)

// Fatal writes "error: err" to stderr and exits with status 1. main
// functions call it with the error returned by run, before or after
// the logger exists.
func Fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
