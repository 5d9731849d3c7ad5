// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// whiteboard-worker is the reference HTTP worker behind the whiteboard
// asset client. It stores uploaded blobs (PUT/GET /uploads/{key}) on
// the local filesystem or in an S3-compatible bucket, and serves
// link-preview metadata (GET /unfurl?url=) extracted from fetched
// pages.
//
// Configuration comes from the file named by --config or
// WHITEBOARD_CONFIG. Without either, built-in defaults are used: listen
// on :5858 and store uploads under ~/.cache/whiteboard/uploads.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/whiteboard/lib/clock"
	"github.com/bureau-foundation/whiteboard/lib/config"
	"github.com/bureau-foundation/whiteboard/lib/objectstore"
	"github.com/bureau-foundation/whiteboard/lib/process"
	"github.com/bureau-foundation/whiteboard/lib/service"
	"github.com/bureau-foundation/whiteboard/lib/unfurl"
	"github.com/bureau-foundation/whiteboard/lib/version"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var (
		configPath  string
		listen      string
		showVersion bool
	)

	flagSet := pflag.NewFlagSet("whiteboard-worker", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to whiteboard config file (default: $"+config.EnvVar+")")
	flagSet.StringVar(&listen, "listen", "", "listen address, overriding server.address")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	if showVersion {
		version.Print("whiteboard-worker")
		return nil
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if listen != "" {
		cfg.Server.Address = listen
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := service.NewLogger(cfg.SlogLevel())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}

	worker := &Worker{
		store: store,
		fetcher: &unfurl.Fetcher{
			HTTPClient: unfurlClient(cfg.Unfurl),
			UserAgent:  cfg.Unfurl.UserAgent,
			MaxBytes:   cfg.Unfurl.MaxBytes,
			Logger:     logger,
		},
		maxUploadBytes: cfg.Server.MaxUploadBytes,
		fetchTimeout:   cfg.Unfurl.FetchDuration(),
		clock:          clock.Real(),
		logger:         logger,
	}

	server := service.NewServer(service.ServerConfig{
		Address:      cfg.Server.Address,
		Handler:      worker.Handler(),
		Logger:       logger,
		DrainTimeout: cfg.Server.ShutdownDuration(),
	})

	logger.Info("whiteboard worker starting",
		"version", version.Info(),
		"environment", string(cfg.Environment),
		"storage", cfg.Storage.Backend,
	)
	return server.Serve(ctx)
}

// loadConfig reads the --config file, then $WHITEBOARD_CONFIG, and
// falls back to defaults when neither is given.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	if os.Getenv(config.EnvVar) != "" {
		return config.Load()
	}
	return config.Default(), nil
}

// unfurlClient restricts page fetches to public addresses unless the
// config explicitly opens private networks.
func unfurlClient(cfg config.UnfurlConfig) *http.Client {
	if cfg.AllowPrivateNetworks {
		return &http.Client{Timeout: cfg.FetchDuration()}
	}
	return unfurl.NewClient(unfurl.ClientOptions{Timeout: cfg.FetchDuration()})
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (objectstore.Backend, error) {
	switch cfg.Storage.Backend {
	case config.BackendS3:
		s3 := cfg.Storage.S3
		return objectstore.NewS3Store(ctx, objectstore.S3Options{
			Bucket:          s3.Bucket,
			Prefix:          s3.Prefix,
			Endpoint:        s3.Endpoint,
			AccessKeyID:     s3.AccessKeyID,
			AccessKeySecret: s3.AccessKeySecret,
			DisableHTTPS:    s3.DisableHTTPS,
			Logger:          logger,
		})
	default:
		if err := cfg.EnsurePaths(); err != nil {
			return nil, err
		}
		return objectstore.NewFileStore(cfg.Storage.Root, clock.Real())
	}
}
