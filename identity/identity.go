// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package identity implements §4.1: a stable agent DID derived from a BLS
// key pair, and detached signing/verification of protocol messages. Key
// generation and rotation are out of scope (spec.md §1) — callers supply
// or generate a key pair once at connector startup.
package identity

import (
	"fmt"

	"github.com/luxfi/crypto/bls"

	"github.com/luxfi/wws/ids"
)

// KeyPair is the agent's long-term signing key.
type KeyPair struct {
	Secret *bls.SecretKey
	Public *bls.PublicKey
}

// GenerateKeyPair creates a fresh BLS key pair. Production deployments are
// expected to load a persisted key instead; this is the connector
// bootstrap path when no key exists yet.
func GenerateKeyPair() (KeyPair, error) {
	sk, err := bls.GenerateKey()
	if err != nil {
		return KeyPair{}, fmt.Errorf("generate key pair: %w", err)
	}
	return KeyPair{Secret: sk, Public: sk.PublicKey()}, nil
}

// DID derives the stable agent identifier from the public key. DIDs are
// used as the NodeID throughout board membership, ballots and message
// routing.
func DID(pub *bls.PublicKey) ids.NodeID {
	var nodeID ids.NodeID
	copy(nodeID[:], pub.Bytes())
	return nodeID
}

// PublicKeyResolver is the only seam into the out-of-scope name-registry /
// identity-key subsystem (spec.md §1): given a claimed DID, it returns the
// public key to verify against.
type PublicKeyResolver interface {
	Resolve(did ids.NodeID) (*bls.PublicKey, bool)
}

// StaticResolver is a PublicKeyResolver backed by a fixed membership table,
// suitable for tests and for a board whose member public keys were
// collected during formation (§4.3 board.accept already carries enough
// information for the chair to learn members' keys out-of-band).
type StaticResolver struct {
	keys map[ids.NodeID]*bls.PublicKey
}

// NewStaticResolver builds a resolver from a DID -> public key table.
func NewStaticResolver(keys map[ids.NodeID]*bls.PublicKey) *StaticResolver {
	cp := make(map[ids.NodeID]*bls.PublicKey, len(keys))
	for k, v := range keys {
		cp[k] = v
	}
	return &StaticResolver{keys: cp}
}

// Resolve implements PublicKeyResolver.
func (r *StaticResolver) Resolve(did ids.NodeID) (*bls.PublicKey, bool) {
	pk, ok := r.keys[did]
	return pk, ok
}

// Add registers a DID's public key, called as board members are learned.
func (r *StaticResolver) Add(did ids.NodeID, pk *bls.PublicKey) {
	r.keys[did] = pk
}

// Identity signs and verifies protocol messages on behalf of one agent.
type Identity struct {
	keys     KeyPair
	did      ids.NodeID
	resolver PublicKeyResolver
}

// New builds an Identity bound to a key pair and a resolver used to verify
// inbound messages from other agents.
func New(keys KeyPair, resolver PublicKeyResolver) *Identity {
	return &Identity{
		keys:     keys,
		did:      DID(keys.Public),
		resolver: resolver,
	}
}

// DID returns this identity's own stable agent identifier.
func (id *Identity) DID() ids.NodeID {
	return id.did
}

// PublicKey returns this identity's public key, e.g. to be announced in
// board.accept so other members can verify this agent's later messages.
func (id *Identity) PublicKey() *bls.PublicKey {
	return id.keys.Public
}

// Sign produces a detached signature over the canonical bytes of an
// outbound message. Per spec.md §4.1, the signature covers only content —
// any timestamp that matters is already part of that content.
func (id *Identity) Sign(canonical []byte) *bls.Signature {
	return id.keys.Secret.Sign(canonical)
}

// VerificationError reports a failed inbound-message verification; it is a
// Protocol violation in the taxonomy of spec.md §7 and is fatal only to the
// offending message.
type VerificationError struct {
	Sender ids.NodeID
	Reason string
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("verification failed for sender %s: %s", e.Sender, e.Reason)
}

// Verify checks an inbound message's signature against its claimed
// sender's resolved public key. A resolution failure and a cryptographic
// mismatch are both reported as VerificationError so callers can treat
// them identically: drop, count, report, never retry.
func (id *Identity) Verify(canonical []byte, sig *bls.Signature, sender ids.NodeID) error {
	pub, ok := id.resolver.Resolve(sender)
	if !ok {
		return &VerificationError{Sender: sender, Reason: "unknown DID"}
	}
	if sig == nil || !sig.Verify(pub, canonical) {
		return &VerificationError{Sender: sender, Reason: "signature mismatch"}
	}
	return nil
}
