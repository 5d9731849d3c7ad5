// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/whiteboard/lib/assetid"
	"github.com/bureau-foundation/whiteboard/lib/assetstore"
	"github.com/bureau-foundation/whiteboard/lib/bookmark"
	"github.com/bureau-foundation/whiteboard/lib/clock"
	"github.com/bureau-foundation/whiteboard/lib/config"
	"github.com/bureau-foundation/whiteboard/lib/objectstore"
	"github.com/bureau-foundation/whiteboard/lib/unfurl"
)

type fakeFetcher struct {
	metadata unfurl.Metadata
	err      error
}

func (f *fakeFetcher) Fetch(ctx context.Context, rawURL string) (unfurl.Metadata, error) {
	return f.metadata, f.err
}

func newTestWorker(t *testing.T, fetcher pageFetcher) (*Worker, *httptest.Server) {
	t.Helper()
	fakeClock := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	store, err := objectstore.NewFileStore(t.TempDir(), fakeClock)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	worker := &Worker{
		store:          store,
		fetcher:        fetcher,
		maxUploadBytes: 1024,
		fetchTimeout:   5 * time.Second,
		clock:          fakeClock,
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	server := httptest.NewServer(worker.Handler())
	t.Cleanup(server.Close)
	return worker, server
}

func do(t *testing.T, method, target, contentType string, body io.Reader) *http.Response {
	t.Helper()
	request, err := http.NewRequest(method, target, body)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if contentType != "" {
		request.Header.Set("Content-Type", contentType)
	}
	response, err := http.DefaultClient.Do(request)
	if err != nil {
		t.Fatalf("%s %s: %v", method, target, err)
	}
	t.Cleanup(func() { response.Body.Close() })
	return response
}

func TestUploadAndDownload(t *testing.T) {
	_, server := newTestWorker(t, &fakeFetcher{})
	content := "<svg xmlns=\"http://www.w3.org/2000/svg\"><rect/></svg>"

	response := do(t, http.MethodPut, server.URL+"/uploads/id1-diagram.svg", "image/svg+xml", strings.NewReader(content))
	if response.StatusCode != http.StatusCreated {
		t.Fatalf("PUT status = %d, want 201", response.StatusCode)
	}
	var uploaded uploadResponse
	if err := json.NewDecoder(response.Body).Decode(&uploaded); err != nil {
		t.Fatalf("decoding PUT response: %v", err)
	}
	if uploaded.Key != "id1-diagram.svg" || uploaded.Size != int64(len(content)) {
		t.Errorf("PUT response = %+v", uploaded)
	}
	if uploaded.Hash != assetid.HashBytes([]byte(content)) {
		t.Errorf("hash = %q, want content hash", uploaded.Hash)
	}

	response = do(t, http.MethodGet, server.URL+"/uploads/id1-diagram.svg", "", nil)
	if response.StatusCode != http.StatusOK {
		t.Fatalf("GET status = %d, want 200", response.StatusCode)
	}
	if contentType := response.Header.Get("Content-Type"); contentType != "image/svg+xml" {
		t.Errorf("Content-Type = %q", contentType)
	}
	if response.Header.Get("ETag") != `"`+uploaded.Hash+`"` {
		t.Errorf("ETag = %q", response.Header.Get("ETag"))
	}
	body, _ := io.ReadAll(response.Body)
	if string(body) != content {
		t.Errorf("GET body = %q", body)
	}
}

func TestDownloadEscapedKey(t *testing.T) {
	worker, server := newTestWorker(t, &fakeFetcher{})
	key := assetid.ObjectKey("id2", "my photo (v2): a&b=c.png")
	target := server.URL + "/uploads/" + assetid.EscapeKey(key)

	if response := do(t, http.MethodPut, target, "image/png", strings.NewReader("png")); response.StatusCode != http.StatusCreated {
		t.Fatalf("PUT status = %d", response.StatusCode)
	}
	response := do(t, http.MethodGet, target, "", nil)
	if response.StatusCode != http.StatusOK {
		t.Fatalf("GET status = %d", response.StatusCode)
	}
	body, _ := io.ReadAll(response.Body)
	if string(body) != "png" {
		t.Errorf("GET body = %q", body)
	}
	if _, err := worker.store.Stat(context.Background(), key); err != nil {
		t.Errorf("object not stored under the unescaped key %q: %v", key, err)
	}
}

func TestDownloadNotFound(t *testing.T) {
	_, server := newTestWorker(t, &fakeFetcher{})
	response := do(t, http.MethodGet, server.URL+"/uploads/missing.png", "", nil)
	if response.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", response.StatusCode)
	}
}

func TestDownloadConditional(t *testing.T) {
	_, server := newTestWorker(t, &fakeFetcher{})
	target := server.URL + "/uploads/id3-note.txt"
	do(t, http.MethodPut, target, "text/plain", strings.NewReader("note"))

	etag := `"` + assetid.HashBytes([]byte("note")) + `"`
	request, _ := http.NewRequest(http.MethodGet, target, nil)
	request.Header.Set("If-None-Match", etag)
	response, err := http.DefaultClient.Do(request)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusNotModified {
		t.Errorf("status = %d, want 304", response.StatusCode)
	}
}

func TestHeadUpload(t *testing.T) {
	_, server := newTestWorker(t, &fakeFetcher{})
	target := server.URL + "/uploads/id4-data.json"
	do(t, http.MethodPut, target, "application/json", strings.NewReader(`{"a":1}`))

	response := do(t, http.MethodHead, target, "", nil)
	if response.StatusCode != http.StatusOK {
		t.Fatalf("HEAD status = %d", response.StatusCode)
	}
	if response.ContentLength != int64(len(`{"a":1}`)) {
		t.Errorf("Content-Length = %d", response.ContentLength)
	}
}

func TestUploadRejections(t *testing.T) {
	_, server := newTestWorker(t, &fakeFetcher{})

	tests := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{"slash in key", "/uploads/a%2Fb.png", "x", http.StatusBadRequest},
		{"dot dot in key", "/uploads/id-..png", "x", http.StatusBadRequest},
		{"overlong key", "/uploads/" + strings.Repeat("n", 300) + ".png", "x", http.StatusBadRequest},
		{"too large", "/uploads/id-big.bin", strings.Repeat("x", 2048), http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			response := do(t, http.MethodPut, server.URL+tt.path, "", strings.NewReader(tt.body))
			if response.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", response.StatusCode, tt.status)
			}
		})
	}
}

func TestUploadDefaultContentType(t *testing.T) {
	worker, server := newTestWorker(t, &fakeFetcher{})
	do(t, http.MethodPut, server.URL+"/uploads/id5-raw", "", strings.NewReader("raw"))

	object, err := worker.store.Stat(context.Background(), "id5-raw")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if object.ContentType != "application/octet-stream" {
		t.Errorf("ContentType = %q", object.ContentType)
	}
}

func TestUnfurlEndpoint(t *testing.T) {
	fetcher := &fakeFetcher{metadata: unfurl.Metadata{
		Title:   "Example",
		Favicon: "https://example.com/favicon.ico",
	}}
	_, server := newTestWorker(t, fetcher)

	query := url.Values{"url": {"https://example.com/page"}}.Encode()
	response := do(t, http.MethodGet, server.URL+"/unfurl?"+query, "", nil)
	if response.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", response.StatusCode)
	}

	var body map[string]any
	if err := json.NewDecoder(response.Body).Decode(&body); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if body["title"] != "Example" || body["favicon"] != "https://example.com/favicon.ico" {
		t.Errorf("body = %v", body)
	}
	if _, present := body["description"]; present {
		t.Errorf("empty description should be omitted: %v", body)
	}
}

func TestUnfurlEndpointErrors(t *testing.T) {
	_, server := newTestWorker(t, &fakeFetcher{err: errors.New("connection refused")})

	for _, raw := range []string{"", "not a url", "ftp://example.com"} {
		query := url.Values{"url": {raw}}.Encode()
		response := do(t, http.MethodGet, server.URL+"/unfurl?"+query, "", nil)
		if response.StatusCode != http.StatusBadRequest {
			t.Errorf("url %q: status = %d, want 400", raw, response.StatusCode)
		}
	}

	query := url.Values{"url": {"https://unreachable.example"}}.Encode()
	response := do(t, http.MethodGet, server.URL+"/unfurl?"+query, "", nil)
	if response.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", response.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(response.Body).Decode(&body); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if !strings.Contains(body["error"], "connection refused") {
		t.Errorf("error = %q", body["error"])
	}
}

func TestHealthAndPreflight(t *testing.T) {
	_, server := newTestWorker(t, &fakeFetcher{})

	response := do(t, http.MethodGet, server.URL+"/health", "", nil)
	if response.StatusCode != http.StatusOK {
		t.Errorf("health status = %d", response.StatusCode)
	}

	response = do(t, http.MethodOptions, server.URL+"/uploads/id-x.png", "", nil)
	if response.StatusCode != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", response.StatusCode)
	}
	if response.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header")
	}
}

// TestClientRoundTrip drives the worker with the real asset store and
// bookmark resolver clients, and a real page fetcher.
func TestClientRoundTrip(t *testing.T) {
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, `<html><head>
			<meta property="og:title" content="Round Trip">
			<meta name="description" content="From a real page">
		</head></html>`)
	}))
	defer page.Close()

	_, worker := newTestWorker(t, &unfurl.Fetcher{HTTPClient: page.Client()})
	ctx := context.Background()

	store, err := assetstore.NewStore(assetstore.Config{
		Endpoint: worker.URL,
		IDs:      assetid.GeneratorFunc(func() string { return "fixed" }),
	})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	ref, err := store.Upload(ctx, assetstore.Blob{
		Name:        "my photo.png",
		ContentType: "image/png",
		Body:        strings.NewReader("pixels"),
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if ref.URL != worker.URL+"/uploads/fixed-my%20photo.png" {
		t.Errorf("URL = %q", ref.URL)
	}

	// The returned URL is directly fetchable.
	response := do(t, http.MethodGet, ref.URL, "", nil)
	body, _ := io.ReadAll(response.Body)
	if response.StatusCode != http.StatusOK || string(body) != "pixels" {
		t.Errorf("fetching uploaded asset: %d %q", response.StatusCode, body)
	}

	resolver, err := bookmark.NewResolver(bookmark.Config{Endpoint: worker.URL})
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	asset := resolver.Unfurl(ctx, page.URL)
	if asset.Props.Title != "Round Trip" || asset.Props.Description != "From a real page" {
		t.Errorf("Props = %+v", asset.Props)
	}
	if asset.Props.Favicon != page.URL+"/favicon.ico" {
		t.Errorf("Favicon = %q", asset.Props.Favicon)
	}
	if asset.Props.Image != "" {
		t.Errorf("Image = %q, want empty", asset.Props.Image)
	}
}

func TestUnfurlEndpointAddressPolicy(t *testing.T) {
	internal := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, `<title>Internal Admin Panel</title>`)
	}))
	defer internal.Close()
	query := url.Values{"url": {internal.URL + "/admin"}}.Encode()

	t.Run("default refuses loopback", func(t *testing.T) {
		_, server := newTestWorker(t, &unfurl.Fetcher{HTTPClient: unfurlClient(config.UnfurlConfig{})})
		response := do(t, http.MethodGet, server.URL+"/unfurl?"+query, "", nil)
		body, _ := io.ReadAll(response.Body)
		if response.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", response.StatusCode)
		}
		if strings.Contains(string(body), "Internal Admin Panel") {
			t.Errorf("internal page content leaked: %s", body)
		}
	})

	t.Run("allow_private_networks opts in", func(t *testing.T) {
		fetcher := &unfurl.Fetcher{HTTPClient: unfurlClient(config.UnfurlConfig{AllowPrivateNetworks: true})}
		_, server := newTestWorker(t, fetcher)
		response := do(t, http.MethodGet, server.URL+"/unfurl?"+query, "", nil)
		var metadata unfurl.Metadata
		if err := json.NewDecoder(response.Body).Decode(&metadata); err != nil {
			t.Fatalf("decoding: %v", err)
		}
		if response.StatusCode != http.StatusOK || metadata.Title != "Internal Admin Panel" {
			t.Errorf("got %d %+v, want 200 with the page title", response.StatusCode, metadata)
		}
	})
}
