// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/bureau-foundation/whiteboard/lib/clock"
	"github.com/bureau-foundation/whiteboard/lib/objectstore"
	"github.com/bureau-foundation/whiteboard/lib/service"
	"github.com/bureau-foundation/whiteboard/lib/unfurl"
)

// pageFetcher is the part of unfurl.Fetcher the worker uses.
type pageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (unfurl.Metadata, error)
}

// Worker serves uploads and unfurl requests.
type Worker struct {
	store          objectstore.Backend
	fetcher        pageFetcher
	maxUploadBytes int64
	fetchTimeout   time.Duration
	clock          clock.Clock
	logger         *slog.Logger
}

// uploadResponse is the body of a successful PUT.
type uploadResponse struct {
	Key  string `json:"key"`
	Size int64  `json:"size"`
	Hash string `json:"hash"`
}

// Handler returns the worker's routes wrapped in request logging and
// cross-origin headers.
func (w *Worker) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /uploads/{key}", w.handleUpload)
	mux.HandleFunc("GET /uploads/{key}", w.handleDownload)
	mux.HandleFunc("GET /unfurl", w.handleUnfurl)
	mux.HandleFunc("GET /health", w.handleHealth)
	return service.LogRequests(w.logger, w.clock, allowCrossOrigin(mux))
}

// allowCrossOrigin lets a browser-hosted editor on another origin call
// the worker, and answers preflight requests.
func allowCrossOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		header := writer.Header()
		header.Set("Access-Control-Allow-Origin", "*")
		header.Set("Access-Control-Allow-Methods", "GET, PUT, OPTIONS")
		header.Set("Access-Control-Allow-Headers", "Content-Type")
		if request.Method == http.MethodOptions {
			writer.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(writer, request)
	})
}

func (w *Worker) handleUpload(writer http.ResponseWriter, request *http.Request) {
	key := request.PathValue("key")
	if err := objectstore.ValidateKey(key); err != nil {
		service.WriteError(writer, http.StatusBadRequest, err.Error())
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(writer, request.Body, w.maxUploadBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			service.WriteError(writer, http.StatusRequestEntityTooLarge,
				"upload exceeds "+strconv.FormatInt(tooLarge.Limit, 10)+" bytes")
			return
		}
		service.WriteError(writer, http.StatusBadRequest, "reading upload: "+err.Error())
		return
	}

	contentType := request.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	object, err := w.store.Put(request.Context(), key, contentType, data)
	if err != nil {
		w.logger.Error("storing upload failed", "key", key, "error", err)
		service.WriteError(writer, http.StatusInternalServerError, "storing upload failed")
		return
	}

	w.logger.Info("stored upload",
		"key", key,
		"content_type", contentType,
		"size", object.Size,
		"hash", object.Hash,
	)
	service.WriteJSON(writer, http.StatusCreated, uploadResponse{
		Key:  object.Key,
		Size: object.Size,
		Hash: object.Hash,
	})
}

func (w *Worker) handleDownload(writer http.ResponseWriter, request *http.Request) {
	key := request.PathValue("key")
	if err := objectstore.ValidateKey(key); err != nil {
		service.WriteError(writer, http.StatusBadRequest, err.Error())
		return
	}

	ctx := request.Context()
	var (
		object objectstore.Object
		body   io.ReadCloser
		err    error
	)
	if request.Method == http.MethodHead {
		object, err = w.store.Stat(ctx, key)
	} else {
		object, body, err = w.store.Get(ctx, key)
	}
	if err != nil {
		if errors.Is(err, objectstore.ErrNotFound) {
			service.WriteError(writer, http.StatusNotFound, "no such upload")
			return
		}
		w.logger.Error("reading upload failed", "key", key, "error", err)
		service.WriteError(writer, http.StatusInternalServerError, "reading upload failed")
		return
	}
	if body != nil {
		defer body.Close()
	}

	etag := `"` + object.Hash + `"`
	header := writer.Header()
	header.Set("ETag", etag)
	// Keys embed a fresh identifier, so content under a key never
	// changes in normal use.
	header.Set("Cache-Control", "public, max-age=31536000, immutable")
	if object.Hash != "" && request.Header.Get("If-None-Match") == etag {
		writer.WriteHeader(http.StatusNotModified)
		return
	}

	contentType := object.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)
	header.Set("Content-Length", strconv.FormatInt(object.Size, 10))
	if !object.StoredAt.IsZero() {
		header.Set("Last-Modified", object.StoredAt.UTC().Format(http.TimeFormat))
	}
	writer.WriteHeader(http.StatusOK)

	if body != nil {
		if _, err := io.Copy(writer, body); err != nil {
			w.logger.Warn("streaming upload interrupted", "key", key, "error", err)
		}
	}
}

func (w *Worker) handleUnfurl(writer http.ResponseWriter, request *http.Request) {
	rawURL := request.URL.Query().Get("url")
	if _, err := unfurl.ParseTarget(rawURL); err != nil {
		service.WriteError(writer, http.StatusBadRequest, err.Error())
		return
	}

	ctx := request.Context()
	if w.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.fetchTimeout)
		defer cancel()
	}

	metadata, err := w.fetcher.Fetch(ctx, rawURL)
	if errors.Is(err, unfurl.ErrForbiddenAddress) {
		w.logger.Warn("unfurl target refused", "url", rawURL, "error", err)
		service.WriteError(writer, http.StatusBadRequest, "url does not resolve to a public address")
		return
	}
	if err != nil {
		w.logger.Warn("unfurl fetch failed", "url", rawURL, "error", err)
		service.WriteError(writer, http.StatusBadGateway, err.Error())
		return
	}
	service.WriteJSON(writer, http.StatusOK, metadata)
}

func (w *Worker) handleHealth(writer http.ResponseWriter, request *http.Request) {
	service.WriteJSON(writer, http.StatusOK, map[string]string{"status": "ok"})
}
