// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil holds the HTTP response helpers shared by the
// whiteboard clients and the reference worker.
//
// Every helper bounds its read. The worker is a remote service and the
// unfurl path fetches arbitrary third-party pages, so no response body
// is ever read without a limit.
package netutil

import (
	"encoding/json"
	"fmt"
	"io"
)

// MaxResponseSize bounds JSON API response reads: 4 MiB. Unfurl
// metadata is a handful of short strings; anything near this size is
// a misbehaving server.
const MaxResponseSize int64 = 4 << 20

// maxErrorBody bounds how much of an error response is kept for
// diagnostics.
const maxErrorBody int64 = 4 << 10

// IsSuccess reports whether statusCode is in the 2xx range.
func IsSuccess(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}

// ReadResponse reads a response body up to MaxResponseSize bytes.
func ReadResponse(body io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(body, MaxResponseSize))
}

// DecodeResponse reads a JSON response body (bounded by
// MaxResponseSize) and decodes it into v.
func DecodeResponse(body io.Reader, v any) error {
	data, err := ReadResponse(body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding response body: %w", err)
	}
	return nil
}

// ErrorBody returns the first few KiB of an error response as a
// string. Read errors are ignored: a partial body is still useful in a
// diagnostic message.
func ErrorBody(body io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(body, maxErrorBody))
	return string(data)
}

// Drain discards up to maxErrorBody bytes of body so the underlying
// connection can be reused, then closes it.
func Drain(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, maxErrorBody))
	body.Close()
}
