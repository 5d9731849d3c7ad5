// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package unfurl extracts link-preview metadata from web pages.
//
// [Extract] reads an HTML document and returns its title, description,
// preview image, and favicon, preferring Open Graph tags, then Twitter
// card tags, then plain HTML. [Fetcher] downloads a page with a size
// bound and runs Extract on it. The reference worker serves the result
// on GET /unfurl.
package unfurl
