// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

var (
	encMode = mustEncMode()
	decMode = mustDecMode()
)

// mustEncMode builds the Core Deterministic encoder (sorted map keys,
// shortest integer forms, definite lengths) with RFC 3339 timestamps,
// so equal values always produce equal bytes.
func mustEncMode() cbor.EncMode {
	options := cbor.CoreDetEncOptions()
	options.Time = cbor.TimeRFC3339Nano
	mode, err := options.EncMode()
	if err != nil {
		panic("codec: building encoder: " + err.Error())
	}
	return mode
}

// mustDecMode builds a decoder that ignores unknown fields and decodes
// untyped maps as map[string]any, which encoding/json can render.
func mustDecMode() cbor.DecMode {
	mode, err := cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("codec: building decoder: " + err.Error())
	}
	return mode
}

// Marshal encodes v deterministically.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes data into v.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// Diagnose renders data in CBOR diagnostic notation (RFC 8949 §8) for
// error messages about unreadable records.
func Diagnose(data []byte) (string, error) {
	return cbor.Diagnose(data)
}
