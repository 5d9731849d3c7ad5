// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package assetid

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// HashFunc maps a string to a stable identifier. Implementations must
// be deterministic across calls, processes, and clients: bookmark
// de-duplication relies on every participant computing the same ID
// for the same URL.
type HashFunc func(string) string

// domainKey is a 32-byte BLAKE3 key. The byte values are the ASCII
// domain name, zero-padded. Changing a key changes every identifier
// derived in that domain.
type domainKey [32]byte

var (
	urlDomainKey = domainKey{
		'w', 'h', 'i', 't', 'e', 'b', 'o', 'a', 'r', 'd', '.', 'a', 's', 's', 'e', 't',
		'.', 'u', 'r', 'l', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}

	contentDomainKey = domainKey{
		'w', 'h', 'i', 't', 'e', 'b', 'o', 'a', 'r', 'd', '.', 'a', 's', 's', 'e', 't',
		'.', 'c', 'o', 'n', 't', 'e', 'n', 't', 0, 0, 0, 0, 0, 0, 0, 0,
	}
)

// urlHashBytes is how much of the URL digest is kept. 128 bits keeps
// record IDs short while collisions stay out of practical reach.
const urlHashBytes = 16

// HashString is the default [HashFunc]: the url-domain BLAKE3 keyed
// hash of s, truncated to 128 bits and hex-encoded (32 characters).
func HashString(s string) string {
	digest := keyedHash(urlDomainKey, []byte(s))
	return hex.EncodeToString(digest[:urlHashBytes])
}

// HashBytes returns the full content-domain BLAKE3 keyed hash of data,
// hex-encoded (64 characters). Used to fingerprint stored blobs.
func HashBytes(data []byte) string {
	digest := keyedHash(contentDomainKey, data)
	return hex.EncodeToString(digest[:])
}

func keyedHash(key domainKey, data []byte) [32]byte {
	// NewKeyed only fails for keys that are not 32 bytes long, which
	// the domainKey type rules out.
	hasher, err := blake3.NewKeyed(key[:])
	if err != nil {
		panic("assetid: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(data)
	var digest [32]byte
	copy(digest[:], hasher.Sum(nil))
	return digest
}
