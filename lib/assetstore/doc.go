// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package assetstore is the whiteboard's asset store adapter. It
// persists binary assets (images, files) that users drop onto the
// board by writing them to the worker's upload endpoint, and resolves
// stored asset records back to fetchable URLs.
//
// The worker addresses stored objects by the same URL used to write
// them, so [Store.Upload] returns its own request URL as the durable
// reference and [Store.Resolve] is a pure projection of the record's
// src property.
//
// Uploads are all-or-nothing and attempted exactly once. A failed
// upload returns an error matching [ErrUploadFailed]; retrying is the
// caller's decision, and every retry draws a fresh identifier.
package assetstore
