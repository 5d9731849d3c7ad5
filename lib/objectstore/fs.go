// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bureau-foundation/whiteboard/lib/assetid"
	"github.com/bureau-foundation/whiteboard/lib/clock"
	"github.com/bureau-foundation/whiteboard/lib/codec"
)

// Directory layout under the root:
//
//	data/<key>        stored bytes, possibly compressed
//	meta/<key>.cbor   sidecar describing data/<key>
//	tmp/              staging area for atomic writes
const (
	dataDirectory = "data"
	metaDirectory = "meta"
	tempDirectory = "tmp"
	metaSuffix    = ".cbor"
)

// sidecar is the on-disk metadata for one object.
type sidecar struct {
	Key         string    `cbor:"key"`
	ContentType string    `cbor:"content_type,omitempty"`
	Size        int64     `cbor:"size"`
	StoredSize  int64     `cbor:"stored_size"`
	Hash        string    `cbor:"hash"`
	Compression string    `cbor:"compression"`
	StoredAt    time.Time `cbor:"stored_at"`
}

func (s sidecar) object() Object {
	return Object{
		Key:         s.Key,
		ContentType: s.ContentType,
		Size:        s.Size,
		Hash:        s.Hash,
		StoredAt:    s.StoredAt,
	}
}

// FileStore is a Backend on the local filesystem.
type FileStore struct {
	root  string
	clock clock.Clock

	// mu orders the data and sidecar renames of a Put against the
	// paired reads of Get and Stat, so a reader never pairs new data
	// with an old sidecar.
	mu sync.RWMutex
}

// NewFileStore creates the directory layout under root and returns a
// store rooted there. A nil clock uses the real clock.
func NewFileStore(root string, clk clock.Clock) (*FileStore, error) {
	if root == "" {
		return nil, errors.New("objectstore: root directory is required")
	}
	if clk == nil {
		clk = clock.Real()
	}
	for _, directory := range []string{dataDirectory, metaDirectory, tempDirectory} {
		if err := os.MkdirAll(filepath.Join(root, directory), 0755); err != nil {
			return nil, fmt.Errorf("objectstore: creating %s: %w", directory, err)
		}
	}
	return &FileStore{root: root, clock: clk}, nil
}

// Put compresses data per its content type and stores it with a
// sidecar. An existing object under key is replaced.
func (s *FileStore) Put(ctx context.Context, key, contentType string, data []byte) (Object, error) {
	if err := ValidateKey(key); err != nil {
		return Object{}, err
	}
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}

	stored, tag, err := CompressAuto(data, contentType)
	if err != nil {
		return Object{}, fmt.Errorf("objectstore: compressing %q: %w", key, err)
	}

	meta := sidecar{
		Key:         key,
		ContentType: contentType,
		Size:        int64(len(data)),
		StoredSize:  int64(len(stored)),
		Hash:        assetid.HashBytes(data),
		Compression: tag.String(),
		StoredAt:    s.clock.Now(),
	}
	encoded, err := codec.Marshal(meta)
	if err != nil {
		return Object{}, fmt.Errorf("objectstore: encoding metadata for %q: %w", key, err)
	}

	dataTemp, err := s.writeTemp(stored)
	if err != nil {
		return Object{}, err
	}
	defer os.Remove(dataTemp)

	metaTemp, err := s.writeTemp(encoded)
	if err != nil {
		return Object{}, err
	}
	defer os.Remove(metaTemp)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Rename(dataTemp, s.dataPath(key)); err != nil {
		return Object{}, fmt.Errorf("objectstore: committing %q: %w", key, err)
	}
	if err := os.Rename(metaTemp, s.metaPath(key)); err != nil {
		return Object{}, fmt.Errorf("objectstore: committing metadata for %q: %w", key, err)
	}

	return meta.object(), nil
}

// Get returns the object and a reader over its uncompressed content.
func (s *FileStore) Get(ctx context.Context, key string) (Object, io.ReadCloser, error) {
	if err := ValidateKey(key); err != nil {
		return Object{}, nil, err
	}
	if err := ctx.Err(); err != nil {
		return Object{}, nil, err
	}

	s.mu.RLock()
	meta, err := s.readSidecar(key)
	if err != nil {
		s.mu.RUnlock()
		return Object{}, nil, err
	}
	file, err := os.Open(s.dataPath(key))
	s.mu.RUnlock()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Object{}, nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return Object{}, nil, fmt.Errorf("objectstore: opening %q: %w", key, err)
	}

	tag, err := ParseCompressionTag(meta.Compression)
	if err != nil {
		file.Close()
		return Object{}, nil, fmt.Errorf("objectstore: %q: %w", key, err)
	}
	if tag == CompressionNone {
		return meta.object(), file, nil
	}

	defer file.Close()
	compressed, err := io.ReadAll(file)
	if err != nil {
		return Object{}, nil, fmt.Errorf("objectstore: reading %q: %w", key, err)
	}
	data, err := Decompress(compressed, tag, int(meta.Size))
	if err != nil {
		return Object{}, nil, fmt.Errorf("objectstore: %q: %w", key, err)
	}
	return meta.object(), io.NopCloser(bytes.NewReader(data)), nil
}

// Stat returns the object's metadata without reading its content.
func (s *FileStore) Stat(ctx context.Context, key string) (Object, error) {
	if err := ValidateKey(key); err != nil {
		return Object{}, err
	}
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	meta, err := s.readSidecar(key)
	if err != nil {
		return Object{}, err
	}
	return meta.object(), nil
}

func (s *FileStore) readSidecar(key string) (sidecar, error) {
	encoded, err := os.ReadFile(s.metaPath(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return sidecar{}, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return sidecar{}, fmt.Errorf("objectstore: reading metadata for %q: %w", key, err)
	}

	var meta sidecar
	if err := codec.Unmarshal(encoded, &meta); err != nil {
		if diagnostic, diagnoseErr := codec.Diagnose(encoded); diagnoseErr == nil {
			return sidecar{}, fmt.Errorf("objectstore: decoding metadata for %q (%s): %w", key, diagnostic, err)
		}
		return sidecar{}, fmt.Errorf("objectstore: decoding metadata for %q: %w", key, err)
	}
	return meta, nil
}

// writeTemp writes data to a new file in the staging directory and
// returns its path.
func (s *FileStore) writeTemp(data []byte) (string, error) {
	file, err := os.CreateTemp(filepath.Join(s.root, tempDirectory), "put-*")
	if err != nil {
		return "", fmt.Errorf("objectstore: creating temporary file: %w", err)
	}
	path := file.Name()

	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(path)
		return "", fmt.Errorf("objectstore: writing temporary file: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(path)
		return "", fmt.Errorf("objectstore: syncing temporary file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("objectstore: closing temporary file: %w", err)
	}
	return path, nil
}

func (s *FileStore) dataPath(key string) string {
	return filepath.Join(s.root, dataDirectory, key)
}

func (s *FileStore) metaPath(key string) string {
	return filepath.Join(s.root, metaDirectory, key+metaSuffix)
}
