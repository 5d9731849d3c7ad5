// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports build information for the whiteboard
// binaries.
//
// Three variables are injected at build time via -ldflags -X:
//
//	go build -ldflags "-X github.com/bureau-foundation/whiteboard/lib/version.GitCommit=$(git rev-parse --short HEAD)"
//
// When GitCommit is not injected, the commit recorded by the Go
// toolchain in the binary's build info is used instead.
package version
