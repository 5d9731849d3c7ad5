// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// ErrNotFound is returned when no object exists under a key.
var ErrNotFound = errors.New("objectstore: object not found")

// ErrInvalidKey is returned for keys that are empty or could address
// something other than a single object.
var ErrInvalidKey = errors.New("objectstore: invalid key")

// Object describes a stored blob.
type Object struct {
	Key         string
	ContentType string

	// Size is the uncompressed length in bytes.
	Size int64

	// Hash is the hex BLAKE3 content hash of the uncompressed data.
	Hash string

	StoredAt time.Time
}

// Backend stores and retrieves objects by key. Put overwrites any
// existing object with the same key. Implementations are safe for
// concurrent use.
type Backend interface {
	Put(ctx context.Context, key, contentType string, data []byte) (Object, error)

	// Get returns the object's metadata and a reader over its
	// uncompressed content. The caller must close the reader.
	Get(ctx context.Context, key string) (Object, io.ReadCloser, error)

	Stat(ctx context.Context, key string) (Object, error)
}

// MaxKeyLength is the longest key in bytes. The filesystem backend
// uses the key as a file name and adds ".cbor" for the sidecar, which
// must stay under the common 255-byte name limit.
const MaxKeyLength = 240

// ValidateKey rejects empty or overlong keys, keys containing a path
// separator or "..", and keys with control characters.
func ValidateKey(key string) error {
	switch {
	case key == "":
		return fmt.Errorf("%w: empty", ErrInvalidKey)
	case len(key) > MaxKeyLength:
		return fmt.Errorf("%w: %d bytes, limit is %d", ErrInvalidKey, len(key), MaxKeyLength)
	case strings.ContainsAny(key, `/\`):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidKey, key)
	case strings.Contains(key, ".."):
		return fmt.Errorf("%w: %q contains \"..\"", ErrInvalidKey, key)
	}
	for _, r := range key {
		if r < 0x20 || r == 0x7f {
			return fmt.Errorf("%w: %q contains a control character", ErrInvalidKey, key)
		}
	}
	return nil
}
