// Copyright 2026 The tcbot Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// Code that makes freshness decisions (cache TTLs, refresh loops,
// rate-limit backoff) takes a Clock instead of calling time.Now or
// time.NewTicker directly. Production wiring passes Real(); tests
// pass Fake() and move time forward with Advance:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	cache := tccache.NewServer(tccache.ServerConfig{Clock: c, ...})
//	c.Advance(61 * time.Second) // expire the finished-builds TTL
package clock
