// Copyright 2026 The tcbot Authors
// SPDX-License-Identifier: Apache-2.0

package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// maxPages bounds Collect against a server that never stops linking.
const maxPages = 100

// PageIterator walks a paginated list endpoint one page at a time.
// It is not safe for concurrent use.
type PageIterator[T any] struct {
	client  *Client
	nextURL string
}

func list[T any](client *Client, path string) *PageIterator[T] {
	return &PageIterator[T]{client: client, nextURL: client.baseURL + path}
}

// NextURL returns the URL the next call to Next fetches, "" once the
// last page has been read. A caller can persist it to resume later.
func (iterator *PageIterator[T]) NextURL() string { return iterator.nextURL }

// Next fetches one page. It returns nil, nil after the last page.
func (iterator *PageIterator[T]) Next(ctx context.Context) ([]T, error) {
	if iterator.nextURL == "" {
		return nil, nil
	}
	body, header, err := iterator.client.do(ctx, http.MethodGet, iterator.nextURL, nil)
	if err != nil {
		return nil, err
	}
	var items []T
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("github: decoding page: %w", err)
	}
	iterator.nextURL = parseLinkNext(header.Get("Link"))
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// Collect fetches every remaining page.
func (iterator *PageIterator[T]) Collect(ctx context.Context) ([]T, error) {
	var all []T
	for page := 0; iterator.nextURL != ""; page++ {
		if page == maxPages {
			return all, fmt.Errorf("github: list exceeded %d pages", maxPages)
		}
		items, err := iterator.Next(ctx)
		if err != nil {
			return all, err
		}
		all = append(all, items...)
	}
	return all, nil
}

// parseLinkNext returns the rel="next" URL of an RFC 5988 Link header,
// or "" when there is none:
//
//	<https://api.github.com/...?page=2>; rel="next", <...>; rel="last"
func parseLinkNext(header string) string {
	for _, link := range strings.Split(header, ",") {
		target, params, ok := strings.Cut(link, ";")
		if !ok {
			continue
		}
		isNext := false
		for _, param := range strings.Split(params, ";") {
			if strings.TrimSpace(param) == `rel="next"` {
				isNext = true
			}
		}
		if !isNext {
			continue
		}
		target = strings.TrimSpace(target)
		target = strings.TrimPrefix(target, "<")
		target = strings.TrimSuffix(target, ">")
		if target != "" {
			return target
		}
	}
	return ""
}
