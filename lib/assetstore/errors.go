// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package assetstore

import (
	"errors"
	"fmt"
)

// ErrUploadFailed matches every error returned by [Store.Upload] once
// the request has been attempted. Callers must not assume the asset
// was persisted.
var ErrUploadFailed = errors.New("upload failed")

// UploadError is returned when the worker answers an upload with a
// non-2xx status.
type UploadError struct {
	// Key is the unescaped object key the upload was written to.
	Key string

	// StatusCode is the HTTP response status code.
	StatusCode int

	// Status is the full status line text, e.g. "500 Internal Server
	// Error".
	Status string

	// Body holds the start of the response body, if any.
	Body string
}

func (e *UploadError) Error() string {
	message := fmt.Sprintf("failed to upload asset %q: %s", e.Key, e.Status)
	if e.Body != "" {
		message += ": " + e.Body
	}
	return message
}

// Is reports whether target is ErrUploadFailed.
func (e *UploadError) Is(target error) bool {
	return target == ErrUploadFailed
}
