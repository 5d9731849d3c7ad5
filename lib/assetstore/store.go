// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package assetstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/bureau-foundation/whiteboard/lib/assetid"
	"github.com/bureau-foundation/whiteboard/lib/netutil"
)

// defaultContentType is sent when a blob does not declare its media
// type.
const defaultContentType = "application/octet-stream"

// Blob is a binary asset being inserted into the board. It is owned by
// the caller until Upload returns.
type Blob struct {
	// Name is the file name. It becomes part of the storage key for
	// readability and extension only; it has no role in identity.
	Name string

	// ContentType is the media type. Empty means
	// application/octet-stream.
	ContentType string

	// Size is the body length in bytes, or 0 if unknown.
	Size int64

	// Body supplies the blob bytes.
	Body io.Reader
}

// UploadedAssetRef is the durable location of a persisted blob. It is
// embedded into the whiteboard document and outlives the session.
type UploadedAssetRef struct {
	URL string `json:"url"`
}

// AssetRecord is the part of a stored asset record that resolution
// needs.
type AssetRecord struct {
	ID    string      `json:"id,omitempty"`
	Type  string      `json:"type,omitempty"`
	Props RecordProps `json:"props"`
}

// RecordProps carries the asset's source URL.
type RecordProps struct {
	Src string `json:"src"`
}

// Config holds configuration for creating a Store.
type Config struct {
	// Endpoint is the worker base URL, e.g. "https://worker.example".
	// Required. Trailing slashes are trimmed.
	Endpoint string

	// IDs supplies the per-upload identifier. Defaults to
	// assetid.UUIDGenerator.
	IDs assetid.Generator

	// HTTPClient is used for upload requests. Defaults to
	// http.DefaultClient.
	HTTPClient *http.Client

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Store uploads blobs to the worker and resolves asset records. A
// Store holds only immutable configuration and is safe for concurrent
// use.
type Store struct {
	endpoint   string
	ids        assetid.Generator
	httpClient *http.Client
	logger     *slog.Logger
}

// NewStore creates a Store from config. Returns an error if the
// endpoint is missing or is not an absolute http(s) URL.
func NewStore(config Config) (*Store, error) {
	endpoint, err := assetid.NormalizeEndpoint(config.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("assetstore: %w", err)
	}

	ids := config.IDs
	if ids == nil {
		ids = assetid.UUIDGenerator{}
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{
		endpoint:   endpoint,
		ids:        ids,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// UploadURL returns the URL an object with the given key is written to
// and read from.
func (s *Store) UploadURL(key string) string {
	return s.endpoint + "/uploads/" + assetid.EscapeKey(key)
}

// Upload writes blob to the worker under a fresh key "{id}-{name}" and
// returns the request URL as the durable reference. A non-2xx response
// yields an *UploadError; transport failures are wrapped. Both match
// ErrUploadFailed.
func (s *Store) Upload(ctx context.Context, blob Blob) (UploadedAssetRef, error) {
	if blob.Name == "" {
		return UploadedAssetRef{}, errors.New("assetstore: blob name is required")
	}
	if blob.Body == nil {
		return UploadedAssetRef{}, errors.New("assetstore: blob body is required")
	}

	key := assetid.ObjectKey(s.ids.NewID(), blob.Name)
	target := s.UploadURL(key)

	request, err := http.NewRequestWithContext(ctx, http.MethodPut, target, blob.Body)
	if err != nil {
		return UploadedAssetRef{}, fmt.Errorf("assetstore: creating request: %w", err)
	}
	contentType := blob.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}
	request.Header.Set("Content-Type", contentType)
	if blob.Size > 0 {
		request.ContentLength = blob.Size
	}

	response, err := s.httpClient.Do(request)
	if err != nil {
		return UploadedAssetRef{}, fmt.Errorf("assetstore: PUT %s: %w: %w", target, ErrUploadFailed, err)
	}

	if !netutil.IsSuccess(response.StatusCode) {
		uploadErr := &UploadError{
			Key:        key,
			StatusCode: response.StatusCode,
			Status:     response.Status,
			Body:       strings.TrimSpace(netutil.ErrorBody(response.Body)),
		}
		response.Body.Close()
		s.logger.WarnContext(ctx, "asset upload rejected",
			"key", key,
			"status", response.StatusCode,
		)
		return UploadedAssetRef{}, uploadErr
	}
	netutil.Drain(response.Body)

	s.logger.DebugContext(ctx, "asset uploaded",
		"key", key,
		"content_type", contentType,
		"size", blob.Size,
	)

	return UploadedAssetRef{URL: target}, nil
}

// Resolve returns the fetchable URL for a stored asset record. The
// worker serves objects at their upload URL, so this is the record's
// src unchanged.
func (s *Store) Resolve(record AssetRecord) string {
	return record.Props.Src
}
