// Copyright 2026 The tcbot Authors
// SPDX-License-Identifier: Apache-2.0

package github

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tcbot-project/tcbot/lib/clock"
	"github.com/tcbot-project/tcbot/lib/netutil"
)

const (
	apiVersion     = "2022-11-28"
	defaultBaseURL = "https://api.github.com"
)

// Config configures [NewClient].
type Config struct {
	// BaseURL defaults to https://api.github.com. Must be HTTPS.
	BaseURL string

	// Token is a personal access or fine-grained token. Required.
	Token string

	// HTTPClient defaults to http.DefaultClient.
	HTTPClient *http.Client

	// Clock times rate limit waits. Defaults to clock.Real().
	Clock clock.Clock

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Client is a GitHub REST API client. It is safe for concurrent use.
type Client struct {
	baseURL    string
	authHeader string
	httpClient *http.Client
	rateLimit  *rateLimitTracker
	etags      *etagCache
	clock      clock.Clock
	logger     *slog.Logger
}

// NewClient validates cfg and returns a client.
func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if !strings.HasPrefix(baseURL, "https://") {
		return nil, fmt.Errorf("github: API client requires HTTPS (got %q)", baseURL)
	}
	if cfg.Token == "" {
		return nil, errors.New("github: Token is required")
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Client{
		baseURL:    baseURL,
		authHeader: "Bearer " + cfg.Token,
		httpClient: cfg.HTTPClient,
		rateLimit:  newRateLimitTracker(cfg.Clock),
		etags:      newETagCache(),
		clock:      cfg.Clock,
		logger:     cfg.Logger,
	}, nil
}

// do sends an API request to url and returns the body of a 2xx
// answer. A rate-limited answer is retried once after the advertised
// backoff.
func (client *Client) do(ctx context.Context, method, url string, requestBody any) ([]byte, http.Header, error) {
	for attempt := 0; ; attempt++ {
		response, err := client.send(ctx, method, url, requestBody)
		if err != nil {
			return nil, nil, err
		}
		body, err := netutil.ReadResponse(response.Body)
		response.Body.Close()
		if err != nil {
			return nil, nil, fmt.Errorf("github: reading response body: %w", err)
		}

		if response.StatusCode == http.StatusNotModified {
			if cached := client.etags.body(url); cached != nil {
				return cached, response.Header, nil
			}
		}

		if response.StatusCode >= 200 && response.StatusCode < 300 {
			if method == http.MethodGet {
				client.etags.put(url, response.Header.Get("ETag"), body)
			}
			return body, response.Header, nil
		}

		apiError := parseAPIError(response.StatusCode, body)
		if attempt > 0 || !IsRateLimited(apiError) {
			return nil, nil, apiError
		}
		backoff := client.rateLimit.retryAfter(response.Header)
		if backoff <= 0 {
			return nil, nil, apiError
		}
		client.logger.Info("github rate limited, backing off",
			"duration", backoff, "method", method, "url", url)
		select {
		case <-client.clock.After(backoff):
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		}
	}
}

// send performs one authenticated request. The caller closes the
// response body.
func (client *Client) send(ctx context.Context, method, url string, requestBody any) (*http.Response, error) {
	if err := client.rateLimit.wait(ctx); err != nil {
		return nil, err
	}

	var bodyReader io.Reader
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return nil, fmt.Errorf("github: encoding request body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}
	request, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("github: creating request: %w", err)
	}
	request.Header.Set("Authorization", client.authHeader)
	request.Header.Set("Accept", "application/vnd.github+json")
	request.Header.Set("X-GitHub-Api-Version", apiVersion)
	if requestBody != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if method == http.MethodGet {
		if etag := client.etags.get(url); etag != "" {
			request.Header.Set("If-None-Match", etag)
		}
	}

	response, err := client.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("github: %s %s: %w", method, url, err)
	}
	client.rateLimit.update(response.Header)
	return response, nil
}

// get decodes the JSON answer to a GET of path into result.
func (client *Client) get(ctx context.Context, path string, result any) error {
	body, _, err := client.do(ctx, http.MethodGet, client.baseURL+path, nil)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, result)
}

// post sends requestBody to path and decodes the answer into result
// when result is non-nil.
func (client *Client) post(ctx context.Context, path string, requestBody, result any) error {
	body, _, err := client.do(ctx, http.MethodPost, client.baseURL+path, requestBody)
	if err != nil {
		return err
	}
	if result == nil {
		return nil
	}
	return json.Unmarshal(body, result)
}
