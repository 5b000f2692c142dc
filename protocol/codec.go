// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package protocol

import (
	"encoding/json"
	"fmt"
)

// Version is the codec version, mirroring the teacher's codec.CodecVersion
// pattern (codec/codec.go). No version tag is written into or read from
// the encoded bytes.
type Version uint16

// CurrentVersion is the only version this codec currently emits.
const CurrentVersion Version = 0

// Canonical returns the deterministic byte encoding of the envelope with
// its own Signature field cleared — this is exactly the content a
// signature covers. Commit-reveal hashes do not use it: ids.CommitHash
// hashes the raw plan bytes and nonce. Go's encoding/json marshals struct fields in declaration order,
// which is already stable; the teacher's own codec (codec/codec.go)
// makes the identical choice of a versioned JSON codec over a hand-rolled
// binary format, so envelope canonicalization follows suit rather than
// introducing a second wire format.
func Canonical(env *Envelope) ([]byte, error) {
	unsigned := *env
	unsigned.Signature = nil
	b, err := json.Marshal(unsigned)
	if err != nil {
		return nil, fmt.Errorf("canonicalize envelope: %w", err)
	}
	return b, nil
}

// Marshal encodes v as plain JSON, mirroring the teacher's
// JSONCodec.Marshal(version, v) without writing a version tag.
func Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// Unmarshal decodes bytes produced by Marshal, mirroring the teacher's
// JSONCodec.Unmarshal. No version is read from the data; on success it
// always reports CurrentVersion.
func Unmarshal(data []byte, v interface{}) (Version, error) {
	if err := json.Unmarshal(data, v); err != nil {
		return 0, err
	}
	return CurrentVersion, nil
}
