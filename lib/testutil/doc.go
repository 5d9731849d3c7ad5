// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for whiteboard
// packages.
//
// [RequireReceive] and [RequireClosed] bound a channel wait with a
// wall-clock timeout so a stalled goroutine fails the test instead of
// hanging it. Tests use these instead of writing their own select
// with time.After.
//
// This package has no whiteboard-internal dependencies.
package testutil
