// Copyright 2026 The tcbot Authors
// SPDX-License-Identifier: Apache-2.0

package teamcity

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is a non-2xx response from the TeamCity REST API. TeamCity
// error bodies are plain text.
type APIError struct {
	StatusCode int
	Href       string
	Message    string
}

func (err *APIError) Error() string {
	return fmt.Sprintf("teamcity: HTTP %d for %s: %s", err.StatusCode, err.Href, err.Message)
}

// IsNotFound reports whether err is a 404 response: the resource is
// confirmed absent on the server.
func IsNotFound(err error) bool {
	var apiError *APIError
	return errors.As(err, &apiError) && apiError.StatusCode == http.StatusNotFound
}

// IsUnauthorized reports a 401 or 403 response.
func IsUnauthorized(err error) bool {
	var apiError *APIError
	return errors.As(err, &apiError) &&
		(apiError.StatusCode == http.StatusUnauthorized || apiError.StatusCode == http.StatusForbidden)
}
