// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides entrypoint helpers for the whiteboard
// binaries: reporting a fatal error from run() before or after the
// structured logger exists, and exiting with a command-chosen code.
package process
