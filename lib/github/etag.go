// Copyright 2026 The tcbot Authors
// SPDX-License-Identifier: Apache-2.0

package github

import "sync"

// etagCache remembers the last 2xx body of each GET URL with its ETag.
// The ETag is sent back as If-None-Match; a 304 answer is served from
// the remembered body and does not count against the rate limit.
// Entries live as long as the Client.
type etagCache struct {
	mu      sync.Mutex
	entries map[string]etagEntry
}

type etagEntry struct {
	etag string
	body []byte
}

func newETagCache() *etagCache {
	return &etagCache{entries: make(map[string]etagEntry)}
}

func (cache *etagCache) get(url string) string {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	return cache.entries[url].etag
}

func (cache *etagCache) body(url string) []byte {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	return cache.entries[url].body
}

// put records body under etag. An empty etag forgets url, so a stale
// body is never revalidated against an answer that has no ETag.
func (cache *etagCache) put(url, etag string, body []byte) {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	if etag == "" {
		delete(cache.entries, url)
		return
	}
	cache.entries[url] = etagEntry{etag: etag, body: body}
}
