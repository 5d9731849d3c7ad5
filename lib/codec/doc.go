// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the shared CBOR encoding configuration.
//
// JSON is used on the wire (unfurl responses, CLI output). CBOR is used
// for data the worker writes for itself, such as the metadata sidecar
// the filesystem object store keeps next to every upload. Every package
// goes through this one configuration so that the same logical value
// always produces identical bytes.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2) with
// timestamps as RFC 3339 text carrying nanoseconds, so stored times
// round-trip exactly.
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// Types that are only ever stored as CBOR use `cbor` struct tags.
// fxamacker/cbor falls back to `json` tags, so a type shared with a
// JSON surface needs only its `json` tags.
package codec
