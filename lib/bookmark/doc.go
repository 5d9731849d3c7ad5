// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package bookmark resolves pasted URLs into whiteboard bookmark
// assets.
//
// Resolution has two steps. [Resolver.Skeleton] builds the record
// synchronously: its ID is a content hash of the URL and every
// descriptive field is empty. [Resolver.Unfurl] then asks the worker's
// unfurl endpoint for page metadata and copies title, description,
// image, and favicon into the record. Enrichment is best-effort: any
// failure is logged and the skeleton is returned unchanged, so a
// broken metadata service never blocks inserting a link.
//
// Because the ID depends only on the URL, the skeleton and the
// enriched record are the same document entity. Callers that must not
// wait for the network use [Resolver.UnfurlAsync], insert the skeleton
// immediately, and apply the enriched record as an in-place update
// with [Props.Upgrade] when it arrives.
package bookmark
