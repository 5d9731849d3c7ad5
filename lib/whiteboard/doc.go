// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package whiteboard wires the asset store and bookmark resolver into
// the callback contracts a collaborative whiteboard editor consumes.
//
// The editor itself (shapes, rendering, sync transport) lives
// elsewhere. It calls [AssetStore] when a user drops a file onto the
// canvas, and [URLAssetHandler] when a user pastes a link. Both are
// built from the worker section of the configuration by
// [NewHandlers]; [ConnectURI] builds the address of the room's sync
// connection on the same worker.
package whiteboard
