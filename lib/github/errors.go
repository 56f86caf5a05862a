// Copyright 2026 The Capstan Authors
// SPDX-License-Identifier: Apache-2.0

package github

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/capstan-release/capstan/lib/forge"
)

// APIError represents a non-2xx response from the GitHub REST API.
// GitHub returns structured JSON error bodies with a message, optional
// documentation URL, and optional field-level validation errors.
type APIError struct {
	// StatusCode is the HTTP response status code.
	StatusCode int

	// Message is the top-level error description from GitHub.
	Message string

	// DocumentationURL points to the relevant API documentation.
	DocumentationURL string

	// Errors contains field-level validation failures. Present only
	// on 422 Unprocessable Entity responses.
	Errors []ValidationError
}

// ValidationError describes a specific validation failure on a
// resource field. Returned by GitHub on 422 responses.
type ValidationError struct {
	Resource string `json:"resource"`
	Code     string `json:"code"`
	Field    string `json:"field"`
	Message  string `json:"message"`
}

func (err *APIError) Error() string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "github: HTTP %d: %s", err.StatusCode, err.Message)
	for _, validationError := range err.Errors {
		if validationError.Message != "" {
			fmt.Fprintf(&builder, "; %s.%s: %s", validationError.Resource, validationError.Field, validationError.Message)
		} else {
			fmt.Fprintf(&builder, "; %s.%s: %s", validationError.Resource, validationError.Field, validationError.Code)
		}
	}
	return builder.String()
}

// parseAPIErrorFromBody parses a GitHub API error from a status code
// and response body.
func parseAPIErrorFromBody(statusCode int, body []byte) *APIError {
	apiError := &APIError{StatusCode: statusCode}

	var wireError struct {
		Message          string            `json:"message"`
		DocumentationURL string            `json:"documentation_url"`
		Errors           []ValidationError `json:"errors"`
	}
	if json.Unmarshal(body, &wireError) == nil && wireError.Message != "" {
		apiError.Message = wireError.Message
		apiError.DocumentationURL = wireError.DocumentationURL
		apiError.Errors = wireError.Errors
	} else {
		apiError.Message = string(body)
	}

	return apiError
}

// isRateLimitResponse checks whether a response indicates a rate
// limit. GitHub returns 429 for secondary (abuse) limits and 403 with
// a recognizable message for the primary limit.
func isRateLimitResponse(statusCode int, message string) bool {
	if statusCode == 429 {
		return true
	}
	if statusCode != 403 {
		return false
	}
	lower := strings.ToLower(message)
	return strings.Contains(lower, "rate limit") ||
		strings.Contains(lower, "abuse detection")
}

// classify wraps err as a forge error with the kind the status code
// and body imply. Transport failures (no HTTP status at all) classify
// transient.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	var apiError *APIError
	if !errors.As(err, &apiError) {
		return &forge.Error{Kind: forge.KindTransient, Op: op, Err: err}
	}

	kind := forge.KindPermanent
	switch {
	case apiError.StatusCode == 404:
		kind = forge.KindNotFound
	case apiError.StatusCode == 409:
		kind = forge.KindConflict
	case apiError.StatusCode == 422 && isAlreadyExists(apiError):
		kind = forge.KindConflict
	case apiError.StatusCode >= 500:
		kind = forge.KindTransient
	case isRateLimitResponse(apiError.StatusCode, apiError.Message):
		kind = forge.KindTransient
	}

	return &forge.Error{
		Kind:       kind,
		Op:         op,
		Message:    apiError.Message,
		StatusCode: apiError.StatusCode,
		Err:        err,
	}
}

// isAlreadyExists reports whether a 422 response means the resource
// already exists. GitHub uses 422 both for validation failures and
// for duplicate refs and pull requests; duplicates are conflicts, not
// permanent failures.
func isAlreadyExists(apiError *APIError) bool {
	if strings.Contains(strings.ToLower(apiError.Message), "already exists") {
		return true
	}
	for _, validationError := range apiError.Errors {
		if validationError.Code == "already_exists" ||
			strings.Contains(strings.ToLower(validationError.Message), "already exists") {
			return true
		}
	}
	return false
}
