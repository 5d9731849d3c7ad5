// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for the whiteboard
// asset client, CLI, and reference worker.
//
// Configuration is loaded from a single file specified by either the
// WHITEBOARD_CONFIG environment variable (via [Load]) or a --config
// flag (via [LoadFile]). There is no discovery and no fallback search
// path. Files are YAML; a file whose name ends in .json or .jsonc is
// read as JSON with comments and trailing commas allowed.
//
// A file may carry environment-specific sections (development,
// staging, production) that override base values when
// [Config].Environment matches. Production without an explicit section
// logs at warn level.
//
// ${VAR} and ${VAR:-default} references are expanded in the storage
// root and S3 credential fields after loading, so secrets can stay in
// the environment. No environment variable overrides a value
// implicitly.
//
// This package depends on no other whiteboard packages.
package config
