// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package unfurl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"

	"golang.org/x/net/html/charset"

	"github.com/bureau-foundation/whiteboard/lib/netutil"
)

// DefaultMaxBytes bounds how much of a page Fetch parses.
const DefaultMaxBytes = 2 << 20

// ErrInvalidURL is returned by Fetch for URLs that are not absolute
// http(s) URLs.
var ErrInvalidURL = errors.New("unfurl: invalid URL")

// StatusError reports a page that answered with a non-2xx status.
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unfurl: %s returned %s", e.URL, e.Status)
}

// defaultClient is used by a Fetcher without an HTTPClient.
var defaultClient = NewClient(ClientOptions{})

// Fetcher downloads pages and extracts their metadata. The zero value
// is usable and only reaches public addresses.
type Fetcher struct {
	// HTTPClient defaults to a NewClient client that refuses
	// non-public addresses. A caller-supplied client carries its own
	// address policy.
	HTTPClient *http.Client

	// UserAgent is sent with every request when set.
	UserAgent string

	// MaxBytes bounds the parsed prefix of a page. Defaults to
	// DefaultMaxBytes.
	MaxBytes int64

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// ParseTarget validates rawURL as an absolute http(s) URL with a host.
func ParseTarget(rawURL string) (*url.URL, error) {
	if rawURL == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidURL)
	}
	target, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if target.Scheme != "http" && target.Scheme != "https" {
		return nil, fmt.Errorf("%w: scheme must be http or https (got %q)", ErrInvalidURL, rawURL)
	}
	if target.Host == "" {
		return nil, fmt.Errorf("%w: no host in %q", ErrInvalidURL, rawURL)
	}
	return target, nil
}

// Fetch downloads rawURL and returns its metadata. Pages that are not
// HTML yield only the default favicon. Relative URLs are resolved
// against the final URL after redirects.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (Metadata, error) {
	target, err := ParseTarget(rawURL)
	if err != nil {
		return Metadata{}, err
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return Metadata{}, fmt.Errorf("unfurl: creating request: %w", err)
	}
	request.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.5")
	if f.UserAgent != "" {
		request.Header.Set("User-Agent", f.UserAgent)
	}

	response, err := f.httpClient().Do(request)
	if err != nil {
		return Metadata{}, fmt.Errorf("unfurl: fetching %s: %w", target, err)
	}
	defer netutil.Drain(response.Body)

	if !netutil.IsSuccess(response.StatusCode) {
		return Metadata{}, &StatusError{
			URL:        target.String(),
			StatusCode: response.StatusCode,
			Status:     response.Status,
		}
	}

	base := target
	if response.Request != nil && response.Request.URL != nil {
		base = response.Request.URL
	}

	contentType := response.Header.Get("Content-Type")
	if !isHTML(contentType) {
		f.logger().Debug("unfurl target is not HTML",
			"url", target.String(),
			"content_type", contentType,
		)
		return Metadata{Favicon: resolve(base, DefaultFavicon)}, nil
	}

	body := io.LimitReader(response.Body, f.maxBytes())
	decoded, err := charset.NewReader(body, contentType)
	if err != nil {
		// Unknown charset: parse the bytes as UTF-8.
		decoded = body
	}

	metadata := Extract(decoded, base)
	f.logger().Debug("unfurled page",
		"url", target.String(),
		"title", metadata.Title,
	)
	return metadata, nil
}

func (f *Fetcher) httpClient() *http.Client {
	if f.HTTPClient != nil {
		return f.HTTPClient
	}
	return defaultClient
}

func (f *Fetcher) maxBytes() int64 {
	if f.MaxBytes > 0 {
		return f.MaxBytes
	}
	return DefaultMaxBytes
}

func (f *Fetcher) logger() *slog.Logger {
	if f.Logger != nil {
		return f.Logger
	}
	return slog.Default()
}

// isHTML reports whether contentType names an HTML document. A missing
// Content-Type is treated as HTML.
func isHTML(contentType string) bool {
	if contentType == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}
