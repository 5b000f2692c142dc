// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package memstore is an in-memory store.Store implementation using the
// reader/writer lock discipline of spec.md §5: readers never block each
// other, writers are serialized. Grounded on the teacher's
// database.Database in-memory reference shape.
package memstore

import (
	"context"
	"sync"

	"github.com/luxfi/wws/deliberation"
	"github.com/luxfi/wws/ids"
	"github.com/luxfi/wws/protocol"
	"github.com/luxfi/wws/store"
)

// Store is an in-memory, process-local implementation of store.Store.
type Store struct {
	mu sync.RWMutex

	tasks         map[ids.ID]store.Task
	plans         map[ids.ID]map[ids.ID]store.PlanRecord // taskID -> planID -> record
	ballots       map[ids.ID]map[ids.NodeID]store.BallotRecord
	irvRounds     map[ids.ID][]deliberation.IRVRound
	artifacts     map[ids.ID]store.Artifact
	deliberations map[ids.ID][]*protocol.Envelope
	seenMessages  map[ids.ID]map[ids.ID]bool // taskID -> messageID -> seen, for idempotent append
}

var _ store.Store = (*Store)(nil)

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		tasks:         make(map[ids.ID]store.Task),
		plans:         make(map[ids.ID]map[ids.ID]store.PlanRecord),
		ballots:       make(map[ids.ID]map[ids.NodeID]store.BallotRecord),
		irvRounds:     make(map[ids.ID][]deliberation.IRVRound),
		artifacts:     make(map[ids.ID]store.Artifact),
		deliberations: make(map[ids.ID][]*protocol.Envelope),
		seenMessages:  make(map[ids.ID]map[ids.ID]bool),
	}
}

// StoreTask implements store.Store. Idempotent: re-storing the same
// task_id overwrites with identical content, never appends a duplicate.
func (s *Store) StoreTask(_ context.Context, task store.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[task.TaskID] = task
	return nil
}

// StorePlan implements store.Store.
func (s *Store) StorePlan(_ context.Context, plan store.PlanRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.plans[plan.TaskID] == nil {
		s.plans[plan.TaskID] = make(map[ids.ID]store.PlanRecord)
	}
	s.plans[plan.TaskID][plan.PlanID] = plan
	return nil
}

// StoreBallot implements store.Store. At most one ballot per (task,
// voter) is kept, per spec.md §8's invariant — a later write from the
// same voter replaces, rather than duplicates, the earlier one.
func (s *Store) StoreBallot(_ context.Context, ballot store.BallotRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ballots[ballot.TaskID] == nil {
		s.ballots[ballot.TaskID] = make(map[ids.NodeID]store.BallotRecord)
	}
	s.ballots[ballot.TaskID][ballot.Ballot.Voter] = ballot
	return nil
}

// StoreIRVRound implements store.Store.
func (s *Store) StoreIRVRound(_ context.Context, taskID ids.ID, round deliberation.IRVRound) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rounds := s.irvRounds[taskID]
	for i, r := range rounds {
		if r.RoundNumber == round.RoundNumber {
			rounds[i] = round
			return nil
		}
	}
	s.irvRounds[taskID] = append(rounds, round)
	return nil
}

// StoreArtifact implements store.Store.
func (s *Store) StoreArtifact(_ context.Context, artifact store.Artifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artifacts[artifact.TaskID] = artifact
	return nil
}

// AppendDeliberationMessage implements store.Store, deduplicating by
// message id so a replayed envelope is a no-op per spec.md §8.
func (s *Store) AppendDeliberationMessage(_ context.Context, taskID ids.ID, env *protocol.Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seenMessages[taskID] == nil {
		s.seenMessages[taskID] = make(map[ids.ID]bool)
	}
	if s.seenMessages[taskID][env.MessageID] {
		return nil
	}
	s.seenMessages[taskID][env.MessageID] = true
	s.deliberations[taskID] = append(s.deliberations[taskID], env)
	return nil
}

// GetTask implements store.Store.
func (s *Store) GetTask(_ context.Context, taskID ids.ID) (store.Task, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[taskID]
	return t, ok, nil
}

// GetPlans implements store.Store.
func (s *Store) GetPlans(_ context.Context, taskID ids.ID) ([]store.PlanRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]store.PlanRecord, 0, len(s.plans[taskID]))
	for _, p := range s.plans[taskID] {
		out = append(out, p)
	}
	return out, nil
}

// GetBallots implements store.Store.
func (s *Store) GetBallots(_ context.Context, taskID ids.ID) ([]store.BallotRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]store.BallotRecord, 0, len(s.ballots[taskID]))
	for _, b := range s.ballots[taskID] {
		out = append(out, b)
	}
	return out, nil
}

// GetIRVRounds implements store.Store.
func (s *Store) GetIRVRounds(_ context.Context, taskID ids.ID) ([]deliberation.IRVRound, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]deliberation.IRVRound, len(s.irvRounds[taskID]))
	copy(out, s.irvRounds[taskID])
	return out, nil
}

// GetArtifact implements store.Store.
func (s *Store) GetArtifact(_ context.Context, taskID ids.ID) (store.Artifact, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.artifacts[taskID]
	return a, ok, nil
}

// GetDeliberationMessages implements store.Store.
func (s *Store) GetDeliberationMessages(_ context.Context, taskID ids.ID) ([]*protocol.Envelope, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*protocol.Envelope, len(s.deliberations[taskID]))
	copy(out, s.deliberations[taskID])
	return out, nil
}
