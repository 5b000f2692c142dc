// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package protocol implements the coordination core's wire message shape
// (spec.md §6): a closed, exhaustively-checked set of message kinds with a
// canonical encoding used for signing (commit hashes are computed by
// ids.CommitHash over the raw plan bytes and nonce). Grounded on Design Notes §9 "polymorphism over message
// kinds" and the teacher's codec/codec.go versioned JSON codec.
package protocol

import (
	"time"

	"github.com/luxfi/crypto/bls"

	"github.com/luxfi/wws/ids"
)

// Kind is the closed set of message kinds the core emits and consumes.
type Kind string

const (
	KindBoardInvite       Kind = "board.invite"
	KindBoardAccept       Kind = "board.accept"
	KindBoardDecline      Kind = "board.decline"
	KindBoardReady        Kind = "board.ready"
	KindBoardDissolve     Kind = "board.dissolve"
	KindProposalCommit    Kind = "proposal.commit"
	KindProposalReveal    Kind = "proposal.reveal"
	KindDiscussionCritique Kind = "discussion.critique"
	KindVoteBallot        Kind = "vote.ballot"
	KindResultSubmit      Kind = "result.submit"
	KindHolonDissolve     Kind = "holon.dissolve"
)

// Envelope is the single tagged-variant type carried over the bus. Exactly
// one of the Payload* fields is populated, selected by Kind; a bus edge
// decodes the kind once and dispatches, per Design Notes §9.
type Envelope struct {
	MessageID ids.ID
	TaskID    ids.ID
	Sender    ids.NodeID
	Kind      Kind
	Signature *bls.Signature

	PayloadBoardInvite        *BoardInvite        `json:",omitempty"`
	PayloadBoardAccept        *BoardAccept        `json:",omitempty"`
	PayloadBoardDecline       *BoardDecline       `json:",omitempty"`
	PayloadBoardReady         *BoardReady         `json:",omitempty"`
	PayloadBoardDissolve      *BoardDissolve      `json:",omitempty"`
	PayloadProposalCommit     *ProposalCommit     `json:",omitempty"`
	PayloadProposalReveal     *ProposalReveal     `json:",omitempty"`
	PayloadDiscussionCritique *DiscussionCritique `json:",omitempty"`
	PayloadVoteBallot         *VoteBallot         `json:",omitempty"`
	PayloadResultSubmit       *ResultSubmit       `json:",omitempty"`
	PayloadHolonDissolve      *HolonDissolve      `json:",omitempty"`
}

// BoardInvite is the chair's formation broadcast.
type BoardInvite struct {
	TaskDescriptionDigest ids.ID
	EstimatedComplexity   float64
	CapabilitiesRequired  []string
	InvitationNonce       ids.ID
	IssuedAt              time.Time
}

// BoardAccept is a candidate member's acceptance reply.
type BoardAccept struct {
	ActiveTaskCount int
	AffinityScore   float64
	PublicKey       []byte
}

// BoardDecline is a candidate member's decline reply.
type BoardDecline struct {
	Reason string
}

// BoardReady is the chair's final membership broadcast.
type BoardReady struct {
	Members             []ids.NodeID
	AdversarialCriticDID ids.NodeID
	Chair                ids.NodeID
}

// BoardDissolve signals holon termination to all members.
type BoardDissolve struct{}

// ProposalCommit carries a Round 1 commitment hash.
type ProposalCommit struct {
	CommitHash ids.ID
}

// ProposalReveal carries the revealed plan and its nonce.
type ProposalReveal struct {
	PlanID     ids.ID
	PlanBytes  []byte
	Nonce      []byte
}

// DiscussionCritique carries one member's Round 2 scores for every
// revealed plan.
type DiscussionCritique struct {
	Scores map[ids.ID]CritiqueScore
}

// CritiqueScore is the four-axis score of a single plan by a single voter.
type CritiqueScore struct {
	Feasibility  float64
	Parallelism  float64
	Completeness float64
	Risk         float64
}

// VoteBallot carries one member's ranked ballot.
type VoteBallot struct {
	Ranking      []ids.ID
	CriticScores map[ids.ID]CritiqueScore
	Epoch        uint64
}

// ResultSubmit carries a leaf or synthesis result artifact.
type ResultSubmit struct {
	ArtifactID    ids.ID
	ContentHash   ids.ID
	ContentBytes  []byte
	IsSynthesis   bool
}

// HolonDissolve is emitted by a sub-holon's chair once its artifact has
// propagated to the parent, distinct from BoardDissolve which ends the
// holon's own board.
type HolonDissolve struct {
	ChildTaskID ids.ID
}
