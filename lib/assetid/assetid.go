// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package assetid

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// RecordPrefix is the type prefix of asset record IDs in the
// whiteboard document ("asset:<hash>").
const RecordPrefix = "asset:"

// BookmarkID returns the document record ID for a bookmark pointing
// at src. The ID depends only on src, so repeated insertions of the
// same URL converge on one record. A nil hash uses [HashString].
func BookmarkID(hash HashFunc, src string) string {
	if hash == nil {
		hash = HashString
	}
	return RecordPrefix + hash(src)
}

// Generator supplies a fresh identifier on every call. Identifiers
// only need to be unique; they carry no meaning and are never reused.
type Generator interface {
	NewID() string
}

// GeneratorFunc adapts an ordinary function to the [Generator]
// interface.
type GeneratorFunc func() string

// NewID calls f.
func (f GeneratorFunc) NewID() string { return f() }

// UUIDGenerator produces random (version 4) UUID strings.
type UUIDGenerator struct{}

// NewID returns a new random UUID in canonical string form.
func (UUIDGenerator) NewID() string { return uuid.NewString() }

// ObjectKey joins an upload identifier and the blob's display name
// into the storage key "{id}-{name}". The name contributes only
// readability and the file extension; uniqueness comes from id.
func ObjectKey(id, name string) string {
	return id + "-" + name
}

// EscapeKey escapes an object key for use as a single URL path
// segment, byte for byte as JavaScript's encodeURIComponent does: only
// ASCII letters, digits, and -_.!~*'() are left as they are. Browser
// and Go clients therefore produce the same URL for the same key.
// Slashes are escaped, so a key can never address a nested path on
// the worker.
func EscapeKey(key string) string {
	const hexDigits = "0123456789ABCDEF"
	var escaped strings.Builder
	escaped.Grow(len(key))
	for i := 0; i < len(key); i++ {
		c := key[i]
		if componentSafe(c) {
			escaped.WriteByte(c)
			continue
		}
		escaped.WriteByte('%')
		escaped.WriteByte(hexDigits[c>>4])
		escaped.WriteByte(hexDigits[c&0x0f])
	}
	return escaped.String()
}

func componentSafe(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("-_.!~*'()", c) >= 0
}

// NormalizeEndpoint validates a worker base URL and strips trailing
// slashes. The endpoint must be an absolute http or https URL.
func NormalizeEndpoint(endpoint string) (string, error) {
	if endpoint == "" {
		return "", errors.New("worker endpoint is required")
	}
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parsing worker endpoint: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("worker endpoint must be http or https (got %q)", endpoint)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("worker endpoint has no host (got %q)", endpoint)
	}
	if parsed.RawQuery != "" || parsed.Fragment != "" {
		return "", fmt.Errorf("worker endpoint must not carry a query or fragment (got %q)", endpoint)
	}
	return strings.TrimRight(endpoint, "/"), nil
}
