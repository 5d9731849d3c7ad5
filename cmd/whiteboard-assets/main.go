// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// whiteboard-assets is a command-line client for a whiteboard worker.
// It exercises the same asset store and bookmark resolver the editor
// uses:
//
//	whiteboard-assets upload [--content-type TYPE] FILE
//	whiteboard-assets unfurl [--strict] URL
//	whiteboard-assets resolve SRC
//	whiteboard-assets connect-uri [ROOM]
//
// The worker endpoint comes from --endpoint, or from the worker
// section of the config file named by --config or WHITEBOARD_CONFIG.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/whiteboard/lib/config"
	"github.com/bureau-foundation/whiteboard/lib/process"
	"github.com/bureau-foundation/whiteboard/lib/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		process.Fatal(err)
	}
}

// globalOptions are the flags accepted before the subcommand.
type globalOptions struct {
	configPath  string
	endpoint    string
	logLevel    string
	showVersion bool
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var options globalOptions

	flagSet := pflag.NewFlagSet("whiteboard-assets", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.SetInterspersed(false)
	flagSet.StringVar(&options.configPath, "config", "", "path to whiteboard config file (default: $"+config.EnvVar+")")
	flagSet.StringVar(&options.endpoint, "endpoint", "", "worker base URL, overriding worker.endpoint")
	flagSet.StringVar(&options.logLevel, "log-level", "warn", "log level for diagnostics on stderr")
	flagSet.BoolVar(&options.showVersion, "version", false, "print version information and exit")
	flagSet.Usage = func() { printUsage(stderr, flagSet) }

	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	if options.showVersion {
		fmt.Fprintf(stdout, "whiteboard-assets %s\n", version.Info())
		return nil
	}

	remaining := flagSet.Args()
	if len(remaining) == 0 {
		printUsage(stderr, flagSet)
		return fmt.Errorf("missing command")
	}

	command, ok := commands[remaining[0]]
	if !ok {
		return fmt.Errorf("unknown command %q (run with --help for usage)", remaining[0])
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(options.logLevel)); err != nil {
		return fmt.Errorf("--log-level: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	env := &environment{
		options: options,
		stdout:  stdout,
		stderr:  stderr,
		logger:  logger,
	}
	return command.run(ctx, env, remaining[1:])
}

// loadConfig reads --config, then $WHITEBOARD_CONFIG, then defaults,
// and applies --endpoint.
func (e *environment) loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	switch {
	case e.options.configPath != "":
		cfg, err = config.LoadFile(e.options.configPath)
	case os.Getenv(config.EnvVar) != "":
		cfg, err = config.Load()
	default:
		cfg = config.Default()
	}
	if err != nil {
		return nil, err
	}
	if e.options.endpoint != "" {
		cfg.Worker.Endpoint = e.options.endpoint
	}
	return cfg, nil
}

func printUsage(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprintf(w, `whiteboard-assets: client for a whiteboard worker.

Usage:
  whiteboard-assets [global flags] COMMAND [flags] ARGS

Commands:
`)
	for _, name := range commandOrder {
		fmt.Fprintf(w, "  %-12s %s\n", name, commands[name].summary)
	}
	fmt.Fprintf(w, "\nGlobal flags:\n%s", flagSet.FlagUsages())
}
