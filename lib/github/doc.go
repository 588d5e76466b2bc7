// Copyright 2026 The tcbot Authors
// SPDX-License-Identifier: Apache-2.0

// Package github is the small slice of the GitHub REST API tcbot
// needs: reading pull requests and posting commit statuses for
// pull-request builds.
//
// The client authenticates with a static token, honours the
// X-RateLimit-* headers (blocking before a request when the budget is
// spent, retrying once after a rate-limited answer), follows RFC 5988
// Link headers for pagination, and revalidates repeated GETs with
// ETags so unchanged answers do not spend rate limit. Non-2xx answers
// become *APIError.
//
// Only HTTPS base URLs are accepted.
package github
