// Copyright 2026 The tcbot Authors
// SPDX-License-Identifier: Apache-2.0

package github

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/tcbot-project/tcbot/lib/clock"
)

// rateLimitTracker follows the X-RateLimit-Remaining and
// X-RateLimit-Reset headers. Once the remaining budget reaches zero,
// wait blocks every request until the reset time.
type rateLimitTracker struct {
	clock clock.Clock

	mu        sync.Mutex
	known     bool
	remaining int
	reset     time.Time
}

func newRateLimitTracker(clk clock.Clock) *rateLimitTracker {
	return &rateLimitTracker{clock: clk}
}

func (tracker *rateLimitTracker) update(header http.Header) {
	remaining, err := strconv.Atoi(header.Get("X-RateLimit-Remaining"))
	if err != nil {
		return
	}
	reset, err := strconv.ParseInt(header.Get("X-RateLimit-Reset"), 10, 64)
	if err != nil {
		return
	}
	tracker.mu.Lock()
	defer tracker.mu.Unlock()
	tracker.known = true
	tracker.remaining = remaining
	tracker.reset = time.Unix(reset, 0)
}

// wait returns once a request may be sent, or with ctx's error.
func (tracker *rateLimitTracker) wait(ctx context.Context) error {
	tracker.mu.Lock()
	var delay time.Duration
	if tracker.known && tracker.remaining <= 0 {
		delay = tracker.reset.Sub(tracker.clock.Now())
	}
	tracker.mu.Unlock()
	if delay <= 0 {
		return nil
	}
	select {
	case <-tracker.clock.After(delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// retryAfter is the backoff a rate-limited answer asks for: Retry-After
// seconds for secondary limits, else the time until
// X-RateLimit-Reset. Zero means the answer gave no usable hint.
func (tracker *rateLimitTracker) retryAfter(header http.Header) time.Duration {
	if seconds, err := strconv.Atoi(header.Get("Retry-After")); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if reset, err := strconv.ParseInt(header.Get("X-RateLimit-Reset"), 10, 64); err == nil {
		if delay := time.Unix(reset, 0).Sub(tracker.clock.Now()); delay > 0 {
			return delay
		}
	}
	return 0
}
