// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package assetid provides the identifier and URL-construction helpers
// shared by the asset store adapter and the bookmark resolver.
//
// Two kinds of identity exist on the whiteboard:
//
//   - Content-addressed identifiers, derived from a deterministic hash
//     of a URL or of blob bytes. [HashString] and [HashBytes] use
//     BLAKE3 in keyed mode with a fixed domain key, so the same input
//     produces the same identifier in every process and on every
//     client. Bookmark assets take their ID from [BookmarkID].
//
//   - Upload identifiers, drawn fresh from a [Generator] once per
//     upload call to namespace the storage key ([ObjectKey]). Two
//     uploads of files with the same name never share a key.
//
// This package depends on no other whiteboard packages.
package assetid
