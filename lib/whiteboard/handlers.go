// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package whiteboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/bureau-foundation/whiteboard/lib/assetid"
	"github.com/bureau-foundation/whiteboard/lib/assetstore"
	"github.com/bureau-foundation/whiteboard/lib/bookmark"
	"github.com/bureau-foundation/whiteboard/lib/config"
)

// AssetStore is the editor's asset persistence callback.
type AssetStore interface {
	Upload(ctx context.Context, blob assetstore.Blob) (assetstore.UploadedAssetRef, error)
	Resolve(record assetstore.AssetRecord) string
}

// URLAssetHandler is the editor's link-paste callback. Unfurl never
// fails: it returns at least the skeleton record.
type URLAssetHandler interface {
	Unfurl(ctx context.Context, rawURL string) bookmark.Asset
}

// Handlers holds the callbacks for one worker.
type Handlers struct {
	Assets AssetStore
	URLs   URLAssetHandler

	endpoint string
	room     string
}

// NewHandlers builds the asset store and bookmark resolver for the
// worker described by cfg. A non-zero request timeout is applied to
// the shared HTTP client; otherwise callers bound requests with their
// context.
func NewHandlers(cfg config.WorkerConfig, logger *slog.Logger) (*Handlers, error) {
	if logger == nil {
		logger = slog.Default()
	}

	httpClient := http.DefaultClient
	if timeout := cfg.Timeout(); timeout > 0 {
		httpClient = &http.Client{Timeout: timeout}
	}

	store, err := assetstore.NewStore(assetstore.Config{
		Endpoint:   cfg.Endpoint,
		HTTPClient: httpClient,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}

	resolver, err := bookmark.NewResolver(bookmark.Config{
		Endpoint:   cfg.Endpoint,
		HTTPClient: httpClient,
		Logger:     logger,
		Coalesce:   cfg.CoalesceUnfurl,
	})
	if err != nil {
		return nil, err
	}

	endpoint, err := assetid.NormalizeEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, err
	}

	return &Handlers{
		Assets:   store,
		URLs:     resolver,
		endpoint: endpoint,
		room:     cfg.Room,
	}, nil
}

// RoomURI returns the sync URI for the configured room.
func (h *Handlers) RoomURI() (string, error) {
	return ConnectURI(h.endpoint, h.room)
}

// ErrNoRoom is returned by ConnectURI when the room is empty.
var ErrNoRoom = errors.New("whiteboard: room is required")

// ConnectURI returns the sync connection address for room on the
// worker at endpoint: {endpoint}/connect/{room}.
func ConnectURI(endpoint, room string) (string, error) {
	if room == "" {
		return "", ErrNoRoom
	}
	normalized, err := assetid.NormalizeEndpoint(endpoint)
	if err != nil {
		return "", fmt.Errorf("whiteboard: %w", err)
	}
	return normalized + "/connect/" + url.PathEscape(room), nil
}
