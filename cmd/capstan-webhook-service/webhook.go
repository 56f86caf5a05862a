// Copyright 2026 The Capstan Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/capstan-release/capstan/lib/forge"
	"github.com/capstan-release/capstan/lib/release"
	"github.com/capstan-release/capstan/lib/service"
)

// maxWebhookBodySize bounds the webhook payload we will read.
// Pull request payloads are well under 1 MB; 8 MB is generous.
const maxWebhookBodySize = 8 * 1024 * 1024

// deduplicationWindow is how long delivery IDs are tracked for
// replay protection. GitHub retries within minutes.
const deduplicationWindow = 1 * time.Hour

// WebhookHandler processes incoming GitHub webhooks. It verifies
// HMAC-SHA256 signatures, drops replayed deliveries, and translates
// pull request merge payloads into release events for the engine.
type WebhookHandler struct {
	secret []byte
	logger *slog.Logger

	// onEvent receives each verified, translated merge event. main
	// wires this to the engine's Submit.
	onEvent func(event release.Event)

	// deliveries tracks recently processed X-GitHub-Delivery IDs.
	mu         sync.Mutex
	deliveries map[string]time.Time
}

// NewWebhookHandler creates a handler that verifies webhooks using
// the given HMAC secret. Panics if secret is empty, logger is nil,
// or onEvent is nil.
func NewWebhookHandler(secret []byte, logger *slog.Logger, onEvent func(release.Event)) *WebhookHandler {
	if len(secret) == 0 {
		panic("WebhookHandler: secret is required")
	}
	if logger == nil {
		panic("WebhookHandler: logger is required")
	}
	if onEvent == nil {
		panic("WebhookHandler: onEvent callback is required")
	}
	return &WebhookHandler{
		secret:     secret,
		logger:     logger,
		onEvent:    onEvent,
		deliveries: make(map[string]time.Time),
	}
}

// ServeHTTP handles a single webhook delivery.
func (h *WebhookHandler) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	if request.Method != http.MethodPost {
		http.Error(writer, "", http.StatusMethodNotAllowed)
		return
	}

	// The raw bytes are needed for HMAC verification before any
	// parsing happens.
	body, err := io.ReadAll(io.LimitReader(request.Body, maxWebhookBodySize))
	if err != nil {
		h.logger.Error("webhook: failed to read body", "error", err)
		http.Error(writer, "", http.StatusInternalServerError)
		return
	}
	if len(body) == 0 {
		http.Error(writer, "", http.StatusBadRequest)
		return
	}

	signature := request.Header.Get("X-Hub-Signature-256")
	if err := service.VerifyWebhookHMAC(h.secret, body, signature); err != nil {
		h.logger.Warn("webhook: HMAC verification failed",
			"error", err,
			"remote_addr", request.RemoteAddr,
		)
		// 401 with no detail about what was wrong.
		http.Error(writer, "", http.StatusUnauthorized)
		return
	}

	eventType := request.Header.Get("X-GitHub-Event")
	deliveryID := request.Header.Get("X-GitHub-Delivery")

	if eventType == "" {
		h.logger.Warn("webhook: missing X-GitHub-Event header")
		http.Error(writer, "", http.StatusBadRequest)
		return
	}

	// Replay protection. 200 so GitHub does not redeliver.
	if deliveryID != "" && h.isDuplicate(deliveryID) {
		h.logger.Debug("webhook: duplicate delivery, ignoring",
			"delivery_id", deliveryID,
			"event_type", eventType,
		)
		writer.WriteHeader(http.StatusOK)
		return
	}

	event, handled, err := h.translateEvent(eventType, body)
	if err != nil {
		h.logger.Error("webhook: translation failed",
			"event_type", eventType,
			"delivery_id", deliveryID,
			"error", err,
		)
		// 200 so GitHub does not retry a payload we cannot parse.
		writer.WriteHeader(http.StatusOK)
		return
	}

	if !handled {
		h.logger.Debug("webhook: event ignored",
			"event_type", eventType,
			"delivery_id", deliveryID,
		)
		writer.WriteHeader(http.StatusOK)
		return
	}

	h.logger.Info("webhook received",
		"event_type", eventType,
		"delivery_id", deliveryID,
		"repository", event.Repo.String(),
		"number", event.Number,
	)

	h.onEvent(event)
	writer.WriteHeader(http.StatusOK)
}

// isDuplicate checks and records a delivery ID. Returns true if the
// delivery was already processed within the deduplication window.
func (h *WebhookHandler) isDuplicate(deliveryID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := time.Now()

	// The map holds at most one entry per delivery over the last
	// hour, so pruning on every check is cheap.
	for id, receivedAt := range h.deliveries {
		if now.Sub(receivedAt) > deduplicationWindow {
			delete(h.deliveries, id)
		}
	}

	if _, exists := h.deliveries[deliveryID]; exists {
		return true
	}
	h.deliveries[deliveryID] = now
	return false
}

// translateEvent converts a raw webhook payload into a release
// event. The handled result is false for event types and actions
// that do not concern the release engine (ping, opened pull
// requests, label changes).
func (h *WebhookHandler) translateEvent(eventType string, body []byte) (release.Event, bool, error) {
	if eventType != "pull_request" {
		// Ping, push, and anything GitHub adds later is
		// acknowledged without dispatch.
		return release.Event{}, false, nil
	}

	var payload pullRequestPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return release.Event{}, false, fmt.Errorf("parsing pull_request payload: %w", err)
	}

	// Only closures matter. Merged-versus-closed is resolved by
	// the engine so both outcomes reach the log with a correlation
	// ID.
	if payload.Action != "closed" {
		return release.Event{}, false, nil
	}

	event := release.Event{
		Action:         payload.Action,
		Merged:         payload.PullRequest.Merged,
		BaseRef:        payload.PullRequest.Base.Ref,
		HeadRef:        payload.PullRequest.Head.Ref,
		MergeCommitSHA: payload.PullRequest.MergeCommitSHA,
		Number:         payload.PullRequest.Number,
		Title:          payload.PullRequest.Title,
		Body:           payload.PullRequest.Body,
		Repo: forge.RepoName{
			Owner: payload.Repository.Owner.Login,
			Name:  payload.Repository.Name,
		},
	}
	return event, true, nil
}

// --- Wire types for the pull_request payload ---

type pullRequestPayload struct {
	Action      string `json:"action"`
	PullRequest struct {
		Number         int    `json:"number"`
		Title          string `json:"title"`
		Body           string `json:"body"`
		Merged         bool   `json:"merged"`
		MergeCommitSHA string `json:"merge_commit_sha"`
		Head           struct {
			Ref string `json:"ref"`
		} `json:"head"`
		Base struct {
			Ref string `json:"ref"`
		} `json:"base"`
	} `json:"pull_request"`
	Repository struct {
		Name  string `json:"name"`
		Owner struct {
			Login string `json:"login"`
		} `json:"owner"`
	} `json:"repository"`
}
