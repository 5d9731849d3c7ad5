// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/whiteboard/lib/assetstore"
	"github.com/bureau-foundation/whiteboard/lib/bookmark"
	"github.com/bureau-foundation/whiteboard/lib/process"
	"github.com/bureau-foundation/whiteboard/lib/whiteboard"
)

// environment carries what every command needs.
type environment struct {
	options globalOptions
	stdout  io.Writer
	stderr  io.Writer
	logger  *slog.Logger
}

type command struct {
	summary string
	run     func(ctx context.Context, env *environment, args []string) error
}

var commandOrder = []string{"upload", "unfurl", "resolve", "connect-uri"}

var commands = map[string]command{
	"upload": {
		summary: "upload FILE to the worker and print its URL",
		run:     runUpload,
	},
	"unfurl": {
		summary: "print the bookmark record for URL",
		run:     runUnfurl,
	},
	"resolve": {
		summary: "print the display URL for an asset source",
		run:     runResolve,
	},
	"connect-uri": {
		summary: "print the sync connection URI for ROOM",
		run:     runConnectURI,
	},
}

// enricher is the strict path of the bookmark resolver: the raw
// metadata request with its error.
type enricher interface {
	Skeleton(rawURL string) bookmark.Asset
	Enrich(ctx context.Context, rawURL string) (bookmark.Metadata, error)
}

func newFlagSet(env *environment, name, usage string) *pflag.FlagSet {
	flagSet := pflag.NewFlagSet(name, pflag.ContinueOnError)
	flagSet.SetOutput(env.stderr)
	flagSet.Usage = func() {
		fmt.Fprintf(env.stderr, "Usage: whiteboard-assets %s %s\n%s", name, usage, flagSet.FlagUsages())
	}
	return flagSet
}

func (e *environment) handlers() (*whiteboard.Handlers, error) {
	cfg, err := e.loadConfig()
	if err != nil {
		return nil, err
	}
	return whiteboard.NewHandlers(cfg.Worker, e.logger)
}

func (e *environment) printJSON(value any) error {
	encoder := json.NewEncoder(e.stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}

func runUpload(ctx context.Context, env *environment, args []string) error {
	var contentType string
	flagSet := newFlagSet(env, "upload", "[--content-type TYPE] FILE")
	flagSet.StringVar(&contentType, "content-type", "", "media type sent with the upload (default: from extension or content)")
	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if flagSet.NArg() != 1 {
		flagSet.Usage()
		return fmt.Errorf("upload takes exactly one FILE")
	}
	path := flagSet.Arg(0)

	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}

	if contentType == "" {
		contentType, err = detectContentType(file)
		if err != nil {
			return err
		}
	}

	handlers, err := env.handlers()
	if err != nil {
		return err
	}

	ref, err := handlers.Assets.Upload(ctx, assetstore.Blob{
		Name:        filepath.Base(path),
		ContentType: contentType,
		Size:        info.Size(),
		Body:        file,
	})
	if err != nil {
		return err
	}
	return env.printJSON(ref)
}

// detectContentType uses the file extension, then the first 512
// bytes, and rewinds the file.
func detectContentType(file *os.File) (string, error) {
	if byExtension := mime.TypeByExtension(filepath.Ext(file.Name())); byExtension != "" {
		return byExtension, nil
	}
	head := make([]byte, 512)
	read, err := io.ReadFull(file, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", fmt.Errorf("reading %s: %w", file.Name(), err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewinding %s: %w", file.Name(), err)
	}
	return http.DetectContentType(head[:read]), nil
}

func runUnfurl(ctx context.Context, env *environment, args []string) error {
	var strict bool
	flagSet := newFlagSet(env, "unfurl", "[--strict] URL")
	flagSet.BoolVar(&strict, "strict", false, "exit non-zero when the worker cannot enrich the bookmark")
	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if flagSet.NArg() != 1 {
		flagSet.Usage()
		return fmt.Errorf("unfurl takes exactly one URL")
	}
	rawURL := flagSet.Arg(0)

	handlers, err := env.handlers()
	if err != nil {
		return err
	}

	if !strict {
		return env.printJSON(handlers.URLs.Unfurl(ctx, rawURL))
	}

	resolver, ok := handlers.URLs.(enricher)
	if !ok {
		return fmt.Errorf("--strict is not supported by this resolver")
	}
	asset := resolver.Skeleton(rawURL)
	metadata, enrichErr := resolver.Enrich(ctx, rawURL)
	if enrichErr == nil {
		asset.Props.Apply(metadata)
	}
	if err := env.printJSON(asset); err != nil {
		return err
	}
	if enrichErr != nil {
		fmt.Fprintf(env.stderr, "enrichment failed: %v\n", enrichErr)
		return &process.ExitError{Code: 2}
	}
	return nil
}

func runResolve(ctx context.Context, env *environment, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("resolve takes exactly one SRC")
	}
	handlers, err := env.handlers()
	if err != nil {
		return err
	}
	record := assetstore.AssetRecord{Props: assetstore.RecordProps{Src: args[0]}}
	_, err = fmt.Fprintln(env.stdout, handlers.Assets.Resolve(record))
	return err
}

func runConnectURI(ctx context.Context, env *environment, args []string) error {
	if len(args) > 1 {
		return fmt.Errorf("connect-uri takes at most one ROOM")
	}
	cfg, err := env.loadConfig()
	if err != nil {
		return err
	}
	room := cfg.Worker.Room
	if len(args) == 1 {
		room = args[0]
	}
	uri, err := whiteboard.ConnectURI(cfg.Worker.Endpoint, room)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(env.stdout, uri)
	return err
}
