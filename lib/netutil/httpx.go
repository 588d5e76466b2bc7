// Copyright 2026 The tcbot Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil holds the bounded HTTP body readers shared by the
// TeamCity and GitHub REST clients.
package netutil

import (
	"encoding/json"
	"fmt"
	"io"
)

// MaxResponseSize bounds JSON API response reads. Test-occurrence
// pages of large suites reach tens of megabytes; the limit only guards
// against a misbehaving server.
const MaxResponseSize int64 = 256 << 20

// ReadResponse reads a response body up to MaxResponseSize bytes.
func ReadResponse(body io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(body, MaxResponseSize))
}

// DecodeResponse reads a bounded response body and JSON-decodes it
// into v.
func DecodeResponse(body io.Reader, v any) error {
	data, err := ReadResponse(body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}
	return json.Unmarshal(data, v)
}
