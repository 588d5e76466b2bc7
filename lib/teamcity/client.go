// Copyright 2026 The tcbot Authors
// SPDX-License-Identifier: Apache-2.0

package teamcity

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tcbot-project/tcbot/lib/netutil"
)

// Config holds configuration for NewClient.
type Config struct {
	// ServerID names the server in cache namespaces and logs, e.g.
	// "apache". Required.
	ServerID string

	// BaseURL is the server root, e.g. "https://ci.example.org".
	// Required.
	BaseURL string

	// Token is a TeamCity access token sent as a bearer token. When
	// empty, requests go to the guest-accessible /guestAuth prefix.
	Token string

	// HTTPClient defaults to http.DefaultClient. Callers set timeouts
	// here; the client adds none of its own.
	HTTPClient *http.Client

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Client is a typed TeamCity REST client. It is safe for concurrent
// use and performs no caching: that is lib/tccache's job.
type Client struct {
	serverID   string
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient validates cfg and returns a Client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.ServerID == "" {
		return nil, fmt.Errorf("teamcity: ServerID is required")
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if !strings.HasPrefix(baseURL, "https://") && !strings.HasPrefix(baseURL, "http://") {
		return nil, fmt.Errorf("teamcity: BaseURL must be an http(s) URL (got %q)", cfg.BaseURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		serverID:   cfg.ServerID,
		baseURL:    baseURL,
		token:      cfg.Token,
		httpClient: httpClient,
		logger:     logger.With("server", cfg.ServerID),
	}, nil
}

// ServerID returns the configured server id.
func (client *Client) ServerID() string { return client.serverID }

// URL returns the absolute URL of an href.
func (client *Client) URL(href string) string {
	if client.token == "" {
		if rest, ok := strings.CutPrefix(href, "/app/rest"); ok {
			href = "/guestAuth/app/rest" + rest
		}
	}
	return client.baseURL + href
}

// get fetches href and decodes the JSON body into result.
func (client *Client) get(ctx context.Context, href string, result any) error {
	url := client.URL(href)
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("teamcity: creating request: %w", err)
	}
	request.Header.Set("Accept", "application/json")
	if client.token != "" {
		request.Header.Set("Authorization", "Bearer "+client.token)
	}

	response, err := client.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("teamcity: GET %s: %w", href, err)
	}
	defer response.Body.Close()

	body, err := netutil.ReadResponse(response.Body)
	if err != nil {
		return fmt.Errorf("teamcity: reading %s: %w", href, err)
	}
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		client.logger.Debug("teamcity request failed", "href", href, "status", response.StatusCode)
		return &APIError{
			StatusCode: response.StatusCode,
			Href:       href,
			Message:    strings.TrimSpace(string(body)),
		}
	}
	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("teamcity: decoding %s: %w", href, err)
	}
	return nil
}
