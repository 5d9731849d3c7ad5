// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package objectstore stores the blobs the reference worker receives
// on PUT /uploads/{key} and serves on GET /uploads/{key}.
//
// Two backends implement [Backend]:
//
//   - [FileStore] keeps each object as a data file plus a CBOR
//     metadata sidecar under a root directory. Data is compressed
//     according to its content type (zstd for text-like content, LZ4
//     for moderately compressible binaries, nothing for media that is
//     already compressed). Writes go through a temporary file and a
//     rename, so readers never observe a partial object.
//   - [S3Store] keeps objects in an S3-compatible bucket (AWS, MinIO,
//     R2) with the content hash in user metadata.
//
// Keys are single path segments. [ValidateKey] rejects keys that could
// escape a directory or a bucket prefix. Every object carries the
// BLAKE3 hash of its uncompressed content.
package objectstore
