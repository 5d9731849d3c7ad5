// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bookmark

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"golang.org/x/sync/singleflight"

	"github.com/bureau-foundation/whiteboard/lib/assetid"
	"github.com/bureau-foundation/whiteboard/lib/netutil"
)

// Config holds configuration for creating a Resolver.
type Config struct {
	// Endpoint is the worker base URL. Required.
	Endpoint string

	// Hash derives the record ID from the URL. Defaults to
	// assetid.HashString. Every client editing the same document must
	// use the same function.
	Hash assetid.HashFunc

	// HTTPClient is used for unfurl requests. Defaults to
	// http.DefaultClient.
	HTTPClient *http.Client

	// Logger receives enrichment failures. Defaults to slog.Default().
	Logger *slog.Logger

	// Coalesce makes concurrent Unfurl calls for the same URL share a
	// single in-flight worker request. Results are never cached: a
	// call that starts after the shared request finished queries the
	// worker again.
	Coalesce bool
}

// Resolver builds bookmark assets and enriches them from the worker.
// It holds only immutable configuration and is safe for concurrent
// use.
type Resolver struct {
	endpoint   string
	hash       assetid.HashFunc
	httpClient *http.Client
	logger     *slog.Logger

	// inflight is nil unless Config.Coalesce is set.
	inflight *singleflight.Group
}

// NewResolver creates a Resolver from config. Returns an error if the
// endpoint is missing or invalid.
func NewResolver(config Config) (*Resolver, error) {
	endpoint, err := assetid.NormalizeEndpoint(config.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("bookmark: %w", err)
	}

	hash := config.Hash
	if hash == nil {
		hash = assetid.HashString
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	resolver := &Resolver{
		endpoint:   endpoint,
		hash:       hash,
		httpClient: httpClient,
		logger:     logger,
	}
	if config.Coalesce {
		resolver.inflight = &singleflight.Group{}
	}
	return resolver, nil
}

// Skeleton returns the bookmark record for rawURL with every
// descriptive field empty. It performs no I/O and cannot fail.
func (r *Resolver) Skeleton(rawURL string) Asset {
	return Asset{
		ID:       assetid.BookmarkID(r.hash, rawURL),
		TypeName: TypeName,
		Type:     Type,
		Meta:     map[string]any{},
		Props:    Props{Src: rawURL},
	}
}

// Unfurl returns the bookmark record for rawURL, enriched with the
// worker's page metadata when it is available. Enrichment failures
// are logged and swallowed; the skeleton is returned instead. Unfurl
// never fails.
func (r *Resolver) Unfurl(ctx context.Context, rawURL string) Asset {
	asset := r.Skeleton(rawURL)

	metadata, err := r.enrich(ctx, rawURL)
	if err != nil {
		r.logger.WarnContext(ctx, "bookmark enrichment failed",
			"url", rawURL,
			"error", err,
		)
		return asset
	}

	asset.Props.Apply(metadata)
	return asset
}

// UnfurlAsync returns the skeleton immediately and enriches in the
// background. The returned channel receives exactly one record (the
// enriched record, or the skeleton again if enrichment failed) and is
// then closed. The caller inserts the skeleton without waiting and
// applies the later record with Props.Upgrade.
func (r *Resolver) UnfurlAsync(ctx context.Context, rawURL string) (Asset, <-chan Asset) {
	skeleton := r.Skeleton(rawURL)
	result := make(chan Asset, 1)
	go func() {
		defer close(result)
		result <- r.Unfurl(ctx, rawURL)
	}()
	return skeleton, result
}

// Enrich performs only the metadata request and reports its failure.
// Use Unfurl for the document insertion path.
func (r *Resolver) Enrich(ctx context.Context, rawURL string) (Metadata, error) {
	return r.enrich(ctx, rawURL)
}

// UnfurlURL is the worker request URL for rawURL.
func (r *Resolver) UnfurlURL(rawURL string) string {
	return r.endpoint + "/unfurl?" + url.Values{"url": {rawURL}}.Encode()
}

func (r *Resolver) enrich(ctx context.Context, rawURL string) (Metadata, error) {
	if r.inflight == nil {
		return r.fetch(ctx, rawURL)
	}

	// The shared request belongs to no single caller: it keeps the
	// first caller's values but not its cancellation, so one caller
	// giving up cannot fail the others. Each caller stops waiting when
	// its own context ends; the request itself is bounded only by the
	// HTTP client's timeout.
	shared := context.WithoutCancel(ctx)
	resultChannel := r.inflight.DoChan(rawURL, func() (any, error) {
		return r.fetch(shared, rawURL)
	})
	select {
	case result := <-resultChannel:
		if result.Err != nil {
			return Metadata{}, result.Err
		}
		return result.Val.(Metadata), nil
	case <-ctx.Done():
		return Metadata{}, ctx.Err()
	}
}

func (r *Resolver) fetch(ctx context.Context, rawURL string) (Metadata, error) {
	target := r.UnfurlURL(rawURL)

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Metadata{}, fmt.Errorf("creating unfurl request: %w", err)
	}
	request.Header.Set("Accept", "application/json")

	response, err := r.httpClient.Do(request)
	if err != nil {
		return Metadata{}, fmt.Errorf("GET %s: %w", target, err)
	}
	defer response.Body.Close()

	if !netutil.IsSuccess(response.StatusCode) {
		return Metadata{}, fmt.Errorf("unfurl service returned %s", response.Status)
	}

	var metadata Metadata
	if err := netutil.DecodeResponse(response.Body, &metadata); err != nil {
		return Metadata{}, fmt.Errorf("unfurl response: %w", err)
	}
	return metadata, nil
}
