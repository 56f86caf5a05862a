// Copyright 2026 The Capstan Authors
// SPDX-License-Identifier: Apache-2.0

package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/capstan-release/capstan/lib/clock"
)

// githubAPIVersion is the GitHub REST API version header. Pinning the
// version ensures consistent behavior as GitHub evolves the API.
const githubAPIVersion = "2022-11-28"

// defaultBaseURL is the base URL for the public GitHub API.
const defaultBaseURL = "https://api.github.com"

// maxResponseBytes bounds how much of a response body is read. Large
// enough for any release-engine payload, small enough that a
// misbehaving endpoint cannot exhaust memory.
const maxResponseBytes = 8 << 20

// maxRateLimitWait caps the backoff honored from a rate limit
// response. Longer waits are refused so an event fails within its
// processing deadline instead of stalling its repository's queue.
const maxRateLimitWait = 20 * time.Second

// Config holds configuration for creating a GitHub API Client.
type Config struct {
	// BaseURL is the root URL for API requests. Defaults to
	// "https://api.github.com". Must use HTTPS.
	BaseURL string

	// Token is a personal access token or installation token.
	// Required.
	Token string

	// HTTPClient is used for all HTTP requests. Defaults to
	// http.DefaultClient.
	HTTPClient *http.Client

	// Clock provides time operations. Defaults to clock.Real().
	// Inject clock.Fake() in tests for deterministic behavior.
	Clock clock.Clock

	// Logger is used for structured logging. Defaults to
	// slog.Default().
	Logger *slog.Logger
}

// Client is a typed GitHub REST API client with automatic
// authentication, rate limit backoff, and structured error handling.
// It implements forge.Operations.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	clock      clock.Clock
	logger     *slog.Logger
}

// NewClient creates a GitHub API client from the given configuration.
// Returns an error if the configuration is invalid (missing token,
// non-HTTPS URL).
func NewClient(config Config) (*Client, error) {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")

	if !strings.HasPrefix(baseURL, "https://") {
		return nil, fmt.Errorf("github: API client requires HTTPS (got %q)", baseURL)
	}
	if config.Token == "" {
		return nil, fmt.Errorf("github: no authentication configured (set Token)")
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    baseURL,
		token:      config.Token,
		httpClient: httpClient,
		clock:      clk,
		logger:     logger,
	}, nil
}

// do executes an authenticated GitHub API request. The path is
// relative to the base URL (e.g. "/repos/owner/repo/pulls"). For
// non-GET requests the body is JSON-encoded from requestBody (pass
// nil for no body).
//
// On a rate limit response the client backs off once for the duration
// the response indicates, then retries. On other non-2xx responses it
// returns an *APIError.
func (client *Client) do(ctx context.Context, method, path string, requestBody any) ([]byte, error) {
	return client.doWithRetry(ctx, method, path, requestBody, false)
}

// doWithRetry is the internal implementation of do with a retry flag
// to prevent infinite recursion on persistent rate limiting.
func (client *Client) doWithRetry(ctx context.Context, method, path string, requestBody any, isRetry bool) ([]byte, error) {
	var bodyReader io.Reader
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return nil, fmt.Errorf("github: encoding request body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	url := client.baseURL + path
	request, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("github: creating request: %w", err)
	}
	request.Header.Set("Authorization", "Bearer "+client.token)
	request.Header.Set("Accept", "application/vnd.github+json")
	request.Header.Set("X-GitHub-Api-Version", githubAPIVersion)
	if requestBody != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	response, err := client.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("github: %s %s: %w", method, url, err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(io.LimitReader(response.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("github: reading response body: %w", err)
	}

	if response.StatusCode >= 200 && response.StatusCode < 300 {
		return body, nil
	}

	apiError := parseAPIErrorFromBody(response.StatusCode, body)

	// One backoff-and-retry on a rate limit with a usable Retry-After.
	if !isRetry && isRateLimitResponse(response.StatusCode, apiError.Message) {
		if wait := retryAfter(response.Header, client.clock.Now()); wait > 0 && wait <= maxRateLimitWait {
			client.logger.Info("rate limited, backing off",
				"duration", wait,
				"method", method,
				"path", path,
			)
			select {
			case <-client.clock.After(wait):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			return client.doWithRetry(ctx, method, path, requestBody, true)
		}
	}

	return nil, apiError
}

// retryAfter extracts the backoff a rate limit response asks for.
// Prefers Retry-After (seconds); falls back to X-RateLimit-Reset (a
// Unix timestamp). Returns zero when neither is usable.
func retryAfter(header http.Header, now time.Time) time.Duration {
	if seconds := header.Get("Retry-After"); seconds != "" {
		var n int64
		if _, err := fmt.Sscanf(seconds, "%d", &n); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	if reset := header.Get("X-RateLimit-Reset"); reset != "" {
		var unix int64
		if _, err := fmt.Sscanf(reset, "%d", &unix); err == nil {
			if wait := time.Unix(unix, 0).Sub(now); wait > 0 {
				return wait
			}
		}
	}
	return 0
}

// get is a convenience method for GET requests that return a single
// JSON object. Decodes the response into result.
func (client *Client) get(ctx context.Context, path string, result any) error {
	body, err := client.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, result)
}

// post is a convenience method for POST requests that return a JSON
// object.
func (client *Client) post(ctx context.Context, path string, requestBody any, result any) error {
	body, err := client.do(ctx, http.MethodPost, path, requestBody)
	if err != nil {
		return err
	}
	if result != nil {
		return json.Unmarshal(body, result)
	}
	return nil
}

// patch is a convenience method for PATCH requests that return a JSON
// object.
func (client *Client) patch(ctx context.Context, path string, requestBody any, result any) error {
	body, err := client.do(ctx, http.MethodPatch, path, requestBody)
	if err != nil {
		return err
	}
	if result != nil {
		return json.Unmarshal(body, result)
	}
	return nil
}

// delete is a convenience method for DELETE requests.
func (client *Client) delete(ctx context.Context, path string) error {
	_, err := client.do(ctx, http.MethodDelete, path, nil)
	return err
}
