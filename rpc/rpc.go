// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package rpc exposes the coordination core's observability and
// task-injection surface as plain Go methods (spec.md §6); binding this
// to a real transport (gRPC/HTTP) is explicitly out of scope (spec.md
// §1). Grounded on the teacher's engine/core facade style of gluing
// internal components to an external transport seam.
package rpc

import (
	"context"
	"fmt"

	"github.com/luxfi/wws/deliberation"
	"github.com/luxfi/wws/holon"
	"github.com/luxfi/wws/identity"
	"github.com/luxfi/wws/ids"
	"github.com/luxfi/wws/protocol"
	"github.com/luxfi/wws/store"
)

// TaskStatus is the observability response for get_board_status.
type TaskStatus struct {
	TaskID            ids.ID
	State             string
	Depth             int
	Chair             ids.NodeID
	Members           []ids.NodeID
	AdversarialCritic ids.NodeID
	Children          []ids.ID
}

// Connector is the facade a task-injection caller and an observability
// caller both use. It owns no network listener itself — cmd/wwsd binds
// whatever transport a deployment needs on top of these methods.
type Connector struct {
	supervisor *holon.Supervisor
	store      store.Store
	ident      *identity.Identity
}

// NewConnector builds a Connector over an already-wired Supervisor.
func NewConnector(sup *holon.Supervisor, st store.Store, ident *identity.Identity) *Connector {
	return &Connector{supervisor: sup, store: st, ident: ident}
}

// Inject runs a new root holon for a task description to completion and
// returns its result artifact; the artifact's TaskID identifies the task.
// CandidatePool is the initial invite cluster — out of scope is how that
// cluster was discovered (spec.md §1's name-registry boundary).
func (c *Connector) Inject(ctx context.Context, description string, capabilities []string, complexity float64, candidatePool []ids.NodeID) (*store.Artifact, error) {
	return c.supervisor.Run(ctx, holon.TaskRequest{
		Description:          description,
		CapabilitiesRequired: capabilities,
		EstimatedComplexity:  complexity,
		CandidatePool:        candidatePool,
		Chair:                c.ident,
	})
}

// GetBoardStatus implements spec.md §6's get_board_status.
func (c *Connector) GetBoardStatus(_ context.Context, taskID ids.ID) (TaskStatus, error) {
	h, ok := c.supervisor.Arena().Get(taskID)
	if !ok {
		return TaskStatus{}, fmt.Errorf("rpc: no holon for task %s", taskID)
	}
	members := make([]ids.NodeID, len(h.Members))
	for i, m := range h.Members {
		members[i] = m.DID
	}
	return TaskStatus{
		TaskID:            h.TaskID,
		State:             h.State.String(),
		Depth:             h.Depth,
		Chair:             h.Chair,
		Members:           members,
		AdversarialCritic: h.AdversarialCritic,
		Children:          h.Children,
	}, nil
}

// GetDeliberation implements spec.md §6's get_deliberation.
func (c *Connector) GetDeliberation(ctx context.Context, taskID ids.ID) ([]*protocol.Envelope, error) {
	return c.store.GetDeliberationMessages(ctx, taskID)
}

// GetBallots implements spec.md §6's get_ballots.
func (c *Connector) GetBallots(ctx context.Context, taskID ids.ID) ([]store.BallotRecord, error) {
	return c.store.GetBallots(ctx, taskID)
}

// GetIRVRounds implements spec.md §6's get_irv_rounds.
func (c *Connector) GetIRVRounds(ctx context.Context, taskID ids.ID) ([]deliberation.IRVRound, error) {
	return c.store.GetIRVRounds(ctx, taskID)
}

// GetTask implements spec.md §6's get_task.
func (c *Connector) GetTask(ctx context.Context, taskID ids.ID) (store.Task, store.Artifact, error) {
	task, ok, err := c.store.GetTask(ctx, taskID)
	if err != nil {
		return store.Task{}, store.Artifact{}, err
	}
	if !ok {
		return store.Task{}, store.Artifact{}, fmt.Errorf("rpc: no task %s", taskID)
	}
	artifact, _, err := c.store.GetArtifact(ctx, taskID)
	if err != nil {
		return task, store.Artifact{}, err
	}
	return task, artifact, nil
}
