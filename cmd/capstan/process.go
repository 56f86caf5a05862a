// Copyright 2026 The Capstan Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/capstan-release/capstan/lib/clock"
	"github.com/capstan-release/capstan/lib/config"
	"github.com/capstan-release/capstan/lib/github"
	"github.com/capstan-release/capstan/lib/release"
)

// runProcess replays a single pull request event against the live
// API. The event file carries the same JSON shape the engine
// consumes, so a missed webhook delivery can be reconstructed from
// the GitHub delivery log and fed through here.
func runProcess(args []string) error {
	flags := pflag.NewFlagSet("capstan process", pflag.ContinueOnError)
	eventFile := flags.String("event", "", "path to the event JSON file (required)")
	verbose := flags.Bool("verbose", false, "log at debug level")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *eventFile == "" {
		return fmt.Errorf("--event is required")
	}

	event, err := loadEvent(*eventFile)
	if err != nil {
		return err
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	configuration, err := config.Load()
	if err != nil {
		return err
	}

	token := os.Getenv(configuration.GitHub.TokenEnv)
	if token == "" {
		return fmt.Errorf("%s is required", configuration.GitHub.TokenEnv)
	}

	client, err := github.NewClient(github.Config{
		BaseURL: configuration.GitHub.BaseURL,
		Token:   token,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("creating github client: %w", err)
	}

	engine, err := release.NewEngine(configuration, client, clock.Real(), logger)
	if err != nil {
		return fmt.Errorf("creating release engine: %w", err)
	}
	defer engine.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	outcome := engine.Process(ctx, event)
	fmt.Println(outcome.String())

	if outcome.Kind == release.OutcomeFailed {
		return fmt.Errorf("event processing failed")
	}
	return nil
}

// loadEvent reads and validates an event file.
func loadEvent(path string) (release.Event, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return release.Event{}, fmt.Errorf("reading event file: %w", err)
	}

	var event release.Event
	if err := json.Unmarshal(data, &event); err != nil {
		return release.Event{}, fmt.Errorf("parsing event file %s: %w", path, err)
	}
	if event.Repo.IsZero() {
		return release.Event{}, fmt.Errorf("event file %s: repo is required", path)
	}
	if event.Number <= 0 {
		return release.Event{}, fmt.Errorf("event file %s: number is required", path)
	}
	return event, nil
}
