// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// Code that stamps stored objects or measures request durations takes
// a Clock instead of calling time.Now directly. Production passes
// Real(); tests pass Fake() and move time forward with Advance, which
// makes stored timestamps and logged durations exact.
package clock
