// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package ids provides the identifier types shared across the coordination
// core: task/plan/artifact/message ids (32-byte ids) and
// DIDs (stable agent identifiers).
package ids

import (
	"crypto/rand"
	"crypto/sha256"

	"github.com/luxfi/ids"
)

// ID is a 32-byte identifier: task_id, plan_id, artifact_id, message_id
// and commit_hash all use this type. Plan ids, commit hashes and content
// hashes are content-addressed; task, artifact and message ids are random.
type ID = ids.ID

// NodeID is the agent's DID: a stable identifier derived from its public
// key. The board, deliberation, and holon packages use this as the DID
// type named throughout spec.md.
type NodeID = ids.NodeID

// Empty is the zero ID, used as a sentinel for "no winner yet" / "no
// elimination this round".
var Empty = ids.Empty

// GenerateID returns a fresh random ID, used for task, message and
// artifact ids and for nonces.
func GenerateID() ID {
	var b [32]byte
	// crypto/rand.Read never returns a short read without an error, and a
	// failure here would mean the platform RNG is unusable; a zero ID is a
	// safe degenerate fallback that downstream dedup will simply treat as
	// colliding.
	_, _ = rand.Read(b[:])
	id, _ := ids.ToID(b[:])
	return id
}

// CommitHash computes the Round 1 commitment: hash(plan bytes ∥ nonce).
func CommitHash(planBytes, nonce []byte) ID {
	h := sha256.New()
	h.Write(planBytes)
	h.Write(nonce)
	sum := h.Sum(nil)
	id, _ := ids.ToID(sum)
	return id
}

// ContentID derives a content-addressed id from arbitrary bytes, used for
// plan ids and result-artifact content hashes.
func ContentID(content []byte) ID {
	sum := sha256.Sum256(content)
	id, _ := ids.ToID(sum[:])
	return id
}
