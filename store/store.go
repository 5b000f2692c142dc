// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package store defines the Task/Artifact Store external interface
// (spec.md §6): append-only writes keyed by record id, plus query-by-
// task_id reads. All writes are idempotent. Grounded on the teacher's
// database.Database/Reader/Writer shape (crypto/database/database.go),
// generalized from a raw KV interface to the core's typed records.
package store

import (
	"context"
	"time"

	"github.com/luxfi/wws/deliberation"
	"github.com/luxfi/wws/ids"
	"github.com/luxfi/wws/protocol"
)

// Task is the persisted record of one injected task.
type Task struct {
	TaskID              ids.ID
	Description         string
	CapabilitiesRequired []string
	EstimatedComplexity float64
	InjectedAt          time.Time
	Status              string // holon.State string, e.g. "forming", "executing", "done", "failed"
	Depth               int
	ParentTaskID         ids.ID // ids.Empty for the root task
}

// PlanRecord is a persisted revealed plan.
type PlanRecord struct {
	TaskID    ids.ID
	PlanID    ids.ID
	Proposer  ids.NodeID
	PlanBytes []byte
}

// BallotRecord is a persisted ballot, carrying the voter's signature so
// the deliberation is independently verifiable after the fact.
type BallotRecord struct {
	TaskID    ids.ID
	Ballot    deliberation.Ballot
	Signature []byte
}

// Artifact is a persisted result, leaf or synthesized.
type Artifact struct {
	TaskID       ids.ID
	ArtifactID   ids.ID
	ContentHash  ids.ID
	ContentBytes []byte
	IsSynthesis  bool
	ProducedBy   ids.NodeID
	ProducedAt   time.Time
}

// Store is the append-only Task/Artifact Store. Every Store* method is
// idempotent by record id: writing the same record twice leaves identical
// state (spec.md §8 round-trip law).
type Store interface {
	StoreTask(ctx context.Context, task Task) error
	StorePlan(ctx context.Context, plan PlanRecord) error
	StoreBallot(ctx context.Context, ballot BallotRecord) error
	StoreIRVRound(ctx context.Context, taskID ids.ID, round deliberation.IRVRound) error
	StoreArtifact(ctx context.Context, artifact Artifact) error

	GetTask(ctx context.Context, taskID ids.ID) (Task, bool, error)
	GetPlans(ctx context.Context, taskID ids.ID) ([]PlanRecord, error)
	GetBallots(ctx context.Context, taskID ids.ID) ([]BallotRecord, error)
	GetIRVRounds(ctx context.Context, taskID ids.ID) ([]deliberation.IRVRound, error)
	GetArtifact(ctx context.Context, taskID ids.ID) (Artifact, bool, error)
	GetDeliberationMessages(ctx context.Context, taskID ids.ID) ([]*protocol.Envelope, error)
	AppendDeliberationMessage(ctx context.Context, taskID ids.ID, env *protocol.Envelope) error
}
