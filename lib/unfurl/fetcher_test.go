// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package unfurl

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/whiteboard/lib/testutil"
)

func TestParseTarget(t *testing.T) {
	for _, raw := range []string{"https://example.com", "http://localhost:8080/page?q=1"} {
		if _, err := ParseTarget(raw); err != nil {
			t.Errorf("ParseTarget(%q) = %v", raw, err)
		}
	}
	for _, raw := range []string{"", "example.com", "ftp://example.com", "https://", "javascript:alert(1)"} {
		if _, err := ParseTarget(raw); !errors.Is(err, ErrInvalidURL) {
			t.Errorf("ParseTarget(%q) = %v, want ErrInvalidURL", raw, err)
		}
	}
}

func TestFetch(t *testing.T) {
	userAgents := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case userAgents <- r.Header.Get("User-Agent"):
		default:
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		io.WriteString(w, `<html><head>
			<meta property="og:title" content="Fetched Page">
			<meta property="og:image" content="/cover.png">
		</head></html>`)
	}))
	defer server.Close()

	fetcher := &Fetcher{HTTPClient: server.Client(), UserAgent: "test-agent/1.0"}
	metadata, err := fetcher.Fetch(context.Background(), server.URL+"/page")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	want := Metadata{
		Title:   "Fetched Page",
		Image:   server.URL + "/cover.png",
		Favicon: server.URL + "/favicon.ico",
	}
	if metadata != want {
		t.Errorf("Fetch() = %+v, want %+v", metadata, want)
	}
	if userAgent := testutil.RequireReceive(t, userAgents, 5*time.Second, "user agent"); userAgent != "test-agent/1.0" {
		t.Errorf("User-Agent = %q", userAgent)
	}
}

func TestFetchResolvesAgainstRedirectTarget(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new/page", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/new/page", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, `<link rel="icon" href="icon.png">`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	fetcher := &Fetcher{HTTPClient: server.Client()}
	metadata, err := fetcher.Fetch(context.Background(), server.URL+"/old")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if metadata.Favicon != server.URL+"/new/icon.png" {
		t.Errorf("Favicon = %q, want relative to redirect target", metadata.Favicon)
	}
}

func TestFetchNonHTML(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte{0x89, 'P', 'N', 'G'})
	}))
	defer server.Close()

	fetcher := &Fetcher{HTTPClient: server.Client()}
	metadata, err := fetcher.Fetch(context.Background(), server.URL+"/image.png")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	want := Metadata{Favicon: server.URL + "/favicon.ico"}
	if metadata != want {
		t.Errorf("Fetch() = %+v, want %+v", metadata, want)
	}
}

func TestFetchStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	fetcher := &Fetcher{HTTPClient: server.Client()}
	_, err := fetcher.Fetch(context.Background(), server.URL+"/missing")

	var statusError *StatusError
	if !errors.As(err, &statusError) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if statusError.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", statusError.StatusCode)
	}
}

func TestFetchMaxBytes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, `<html><head><title>Early</title></head><body>`)
		io.WriteString(w, strings.Repeat("<p>filler</p>", 1000))
		io.WriteString(w, `<meta property="og:title" content="Too Late"></body></html>`)
	}))
	defer server.Close()

	fetcher := &Fetcher{HTTPClient: server.Client(), MaxBytes: 512}
	metadata, err := fetcher.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if metadata.Title != "Early" {
		t.Errorf("Title = %q, want content past the limit ignored", metadata.Title)
	}
}

func TestFetchLatin1(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		// "Café" with é as the single Latin-1 byte 0xE9.
		w.Write([]byte("<title>Caf\xe9</title>"))
	}))
	defer server.Close()

	fetcher := &Fetcher{HTTPClient: server.Client()}
	metadata, err := fetcher.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if metadata.Title != "Café" {
		t.Errorf("Title = %q, want decoded Latin-1", metadata.Title)
	}
}

func TestFetchInvalidURL(t *testing.T) {
	fetcher := &Fetcher{}
	if _, err := fetcher.Fetch(context.Background(), "mailto:someone@example.com"); !errors.Is(err, ErrInvalidURL) {
		t.Errorf("expected ErrInvalidURL, got %v", err)
	}
}

func TestFetchTransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	fetcher := &Fetcher{}
	if _, err := fetcher.Fetch(context.Background(), url); err == nil {
		t.Error("expected error for unreachable server")
	}
}
