// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package service provides the scaffolding the whiteboard worker
// binary composes in its main function:
//
//   - [Server]: a TCP HTTP server that signals when it is listening
//     and drains requests when its context is cancelled.
//   - [LogRequests]: middleware that logs one structured line per
//     request.
//   - [NewLogger]: the process-wide JSON logger on stderr.
//   - [WriteJSON] and [WriteError]: JSON response helpers.
//
// The package provides building blocks, not a runtime.
package service
