// Copyright 2026 The Capstan Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/capstan-release/capstan/lib/clock"
	"github.com/capstan-release/capstan/lib/config"
	"github.com/capstan-release/capstan/lib/github"
	"github.com/capstan-release/capstan/lib/process"
	"github.com/capstan-release/capstan/lib/release"
	"github.com/capstan-release/capstan/lib/service"
	"github.com/capstan-release/capstan/lib/version"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var showVersion bool
	flag.BoolVar(&showVersion, "version", false, "print version information and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("capstan-webhook-service %s\n", version.Info())
		return nil
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	configuration, err := config.Load()
	if err != nil {
		return err
	}

	token := os.Getenv(configuration.GitHub.TokenEnv)
	if token == "" {
		return fmt.Errorf("%s is required", configuration.GitHub.TokenEnv)
	}

	secret := []byte(os.Getenv(configuration.Webhook.SecretEnv))
	if len(secret) == 0 {
		return fmt.Errorf("%s is required", configuration.Webhook.SecretEnv)
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

	// Submitted events settle asynchronously; the outcome is logged
	// when each repository's queue reaches it.
	webhookHandler := NewWebhookHandler(secret, logger, func(event release.Event) {
		err := engine.Submit(event, func(outcome release.Outcome) {
			logger.Info("event settled", "outcome", outcome.String())
		})
		if err != nil {
			logger.Error("submitting event",
				"repository", event.Repo.String(),
				"number", event.Number,
				"error", err,
			)
		}
	})

	mux := http.NewServeMux()
	mux.Handle("/webhook", webhookHandler)
	mux.HandleFunc("/healthz", func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusOK)
		fmt.Fprintln(writer, "ok")
	})

	httpServer := service.NewHTTPServer(service.HTTPServerConfig{
		Address: configuration.Webhook.ListenAddress,
		Handler: mux,
		Logger:  logger,
	})

	httpDone := make(chan error, 1)
	go func() {
		httpDone <- httpServer.Serve(ctx)
	}()

	select {
	case <-httpServer.Ready():
		logger.Info("capstan-webhook-service running",
			"address", httpServer.Addr().String(),
			"main_branch", configuration.MainBranch,
		)
	case <-ctx.Done():
		return ctx.Err()
	}

	<-ctx.Done()
	logger.Info("shutting down")

	if err := <-httpDone; err != nil {
		return err
	}
	return nil
}
