// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package board implements the Board Lifecycle Manager (spec.md §4.3):
// forms, maintains and dissolves one board per task via a two-round-trip
// invite/accept/ready protocol, and handles chair failover. Grounded on
// the teacher's validators.go Validator/weight shape (board.Member
// implements the external validators.Validator interface, with weight
// reinterpreted as inverse active-task load) and utils/sampler.Uniform
// for the adversarial-critic random pick.
package board

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/luxfi/wws/bus"
	"github.com/luxfi/wws/identity"
	"github.com/luxfi/wws/ids"
	"github.com/luxfi/wws/protocol"
	"github.com/luxfi/wws/store"
	"github.com/luxfi/wws/utils/sampler"
	"github.com/luxfi/wws/wwslog"
)

// State is the board's own lifecycle state, distinct from (but driving)
// each member's local holon state.
type State int

const (
	StateForming State = iota
	StateActive
	StateDissolved
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateForming:
		return "forming"
	case StateActive:
		return "active"
	case StateDissolved:
		return "dissolved"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Member is one board member's view as known to the chair: a DID, its
// public key (learned from board.accept), and the load/affinity figures
// used for selection. Member implements the weight/identity shape the
// external validators package expects of a Validator, with Light
// reinterpreted as "inverse of active task count" (a lightly loaded
// member is a heavily "weighted" one for sampling purposes) rather than
// stake.
type Member struct {
	DID             ids.NodeID
	PublicKey       []byte
	ActiveTaskCount int
	AffinityScore   float64
}

// Light implements the validators.Validator weight accessor. Board
// selection never consumes this directly (it sorts on ActiveTaskCount/
// AffinityScore/DID instead, per spec.md §4.3's exact policy), but the
// accessor lets Member be handed to any external component that expects
// a validators.Validator, such as a shared uptime or connectivity tracker.
func (m Member) Light() uint64 {
	if m.ActiveTaskCount <= 0 {
		return 1 << 32
	}
	return uint64((1 << 32) / m.ActiveTaskCount)
}

// NodeID implements validators.Validator.
func (m Member) NodeID() ids.NodeID { return m.DID }

// Board is one task's chair-side lifecycle manager.
type Board struct {
	TaskID            ids.ID
	Chair             ids.NodeID
	Members           []Member
	AdversarialCritic ids.NodeID
	State             State

	rng sampler.Uniform
}

// SelectAcceptors applies spec.md §4.3's deterministic selection policy:
// ascending active_task_count, descending affinity_score, then ascending
// DID lexicographic order, truncated to target. Pure and order-stable so
// it is unit-testable without a bus.
func SelectAcceptors(candidates []Member, target int) []Member {
	sorted := make([]Member, len(candidates))
	copy(sorted, candidates)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.ActiveTaskCount != b.ActiveTaskCount {
			return a.ActiveTaskCount < b.ActiveTaskCount
		}
		if a.AffinityScore != b.AffinityScore {
			return a.AffinityScore > b.AffinityScore
		}
		return bytes.Compare(a.DID[:], b.DID[:]) < 0
	})
	if target < len(sorted) {
		sorted = sorted[:target]
	}
	return sorted
}

// ChooseAdversarialCritic picks one member uniformly at random, per
// spec.md §4.3's "chosen by the chair uniformly at random from members".
func ChooseAdversarialCritic(members []Member, rng sampler.Uniform) (ids.NodeID, error) {
	if len(members) == 0 {
		return ids.Empty, fmt.Errorf("board: cannot choose adversarial critic from empty membership")
	}
	if err := rng.Initialize(len(members)); err != nil {
		return ids.Empty, fmt.Errorf("board: initialize critic sampler: %w", err)
	}
	picked, ok := rng.Sample(1)
	if !ok {
		return ids.Empty, fmt.Errorf("board: sample adversarial critic")
	}
	return members[picked[0]].DID, nil
}

// NextChair implements the failover rule of spec.md §4.3: the surviving
// member with the lowest DID lexicographically assumes the chair.
// Returns false if fewer than 2 survivors remain, per "adoption is
// impossible" in the spec.
func NextChair(survivors []ids.NodeID) (ids.NodeID, bool) {
	if len(survivors) < 2 {
		return ids.Empty, false
	}
	lowest := survivors[0]
	for _, did := range survivors[1:] {
		if bytes.Compare(did[:], lowest[:]) < 0 {
			lowest = did
		}
	}
	return lowest, true
}

// FormationResult is the outcome of running board formation to its
// acceptance-window deadline.
type FormationResult struct {
	Board    *Board
	Declined []ids.NodeID
}

// Deps bundles the collaborators formation needs: the bus to publish
// board.invite/board.ready on and receive board.accept/board.decline
// replies, this chair's identity for signing, a store to persist every
// formation envelope for get_deliberation (spec.md §6) replay (nil
// disables persistence, e.g. for tests that don't need replay), a logger
// and the sampler for the adversarial-critic pick. The acceptance window
// is not part of Deps: it is the deadline of the ctx passed to Form.
type Deps struct {
	Bus   bus.Bus
	Ident *identity.Identity
	Log   wwslog.Logger
	Rng   sampler.Uniform
	Store store.Store
}

// Form runs the two-round-trip formation protocol: broadcast board.invite
// to topic, collect board.accept/board.decline until ctx is done (the
// caller arms ctx with the acceptance window), select the top N acceptors,
// and broadcast board.ready. Per spec.md §4.3: fewer than 3 acceptors
// still proceeds with whatever arrived; 0 acceptors means solo execution;
// 1 acceptor means a degenerate pair-collaboration board.
func Form(ctx context.Context, deps Deps, taskID ids.ID, invite protocol.BoardInvite, targetSize int) (*FormationResult, error) {
	topic := clusterTopic(taskID)
	replyCh, unsubscribe := deps.Bus.Inbox(deps.Ident.DID())
	defer unsubscribe()

	env := &protocol.Envelope{
		MessageID:          ids.GenerateID(),
		TaskID:             taskID,
		Sender:             deps.Ident.DID(),
		Kind:               protocol.KindBoardInvite,
		PayloadBoardInvite: &invite,
	}
	if err := sign(deps.Ident, env); err != nil {
		return nil, err
	}
	if err := deps.Bus.Publish(topic, env); err != nil {
		return nil, fmt.Errorf("board: publish invite: %w", err)
	}
	if err := appendMessage(ctx, deps.Store, taskID, env); err != nil {
		return nil, err
	}

	var accepted []Member
	var declined []ids.NodeID
collect:
	for {
		select {
		case <-ctx.Done():
			break collect
		case reply, ok := <-replyCh:
			if !ok {
				break collect
			}
			switch reply.Kind {
			case protocol.KindBoardAccept:
				if reply.PayloadBoardAccept == nil {
					continue
				}
				accepted = append(accepted, Member{
					DID:             reply.Sender,
					PublicKey:       reply.PayloadBoardAccept.PublicKey,
					ActiveTaskCount: reply.PayloadBoardAccept.ActiveTaskCount,
					AffinityScore:   reply.PayloadBoardAccept.AffinityScore,
				})
			case protocol.KindBoardDecline:
				declined = append(declined, reply.Sender)
			default:
				continue
			}
			if err := appendMessage(ctx, deps.Store, taskID, reply); err != nil {
				return nil, err
			}
		}
	}

	selected := SelectAcceptors(accepted, targetSize)

	b := &Board{
		TaskID:  taskID,
		Chair:   deps.Ident.DID(),
		Members: selected,
		State:   StateForming,
		rng:     deps.Rng,
	}

	if len(selected) > 0 {
		critic, err := ChooseAdversarialCritic(selected, deps.Rng)
		if err != nil {
			return nil, err
		}
		b.AdversarialCritic = critic
	}
	b.State = StateActive

	ready := &protocol.BoardReady{
		Members:              memberDIDs(selected),
		AdversarialCriticDID: b.AdversarialCritic,
		Chair:                b.Chair,
	}
	readyEnv := &protocol.Envelope{
		MessageID:        ids.GenerateID(),
		TaskID:           taskID,
		Sender:           deps.Ident.DID(),
		Kind:             protocol.KindBoardReady,
		PayloadBoardReady: ready,
	}
	if err := sign(deps.Ident, readyEnv); err != nil {
		return nil, err
	}
	if err := deps.Bus.Publish(topic, readyEnv); err != nil {
		return nil, fmt.Errorf("board: publish ready: %w", err)
	}
	if err := appendMessage(ctx, deps.Store, taskID, readyEnv); err != nil {
		return nil, err
	}

	deps.Log.Info("board formed",
		"task_id", taskID,
		"members", len(selected),
		"declined", len(declined),
		"solo", len(selected) == 0,
		"pair", len(selected) == 1,
	)

	return &FormationResult{Board: b, Declined: declined}, nil
}

// Dissolve broadcasts board.dissolve for taskID, per spec.md §4.3.
func Dissolve(ctx context.Context, deps Deps, b *Board) error {
	env := &protocol.Envelope{
		MessageID:            ids.GenerateID(),
		TaskID:               b.TaskID,
		Sender:               deps.Ident.DID(),
		Kind:                 protocol.KindBoardDissolve,
		PayloadBoardDissolve: &protocol.BoardDissolve{},
	}
	if err := sign(deps.Ident, env); err != nil {
		return err
	}
	if err := deps.Bus.Publish(clusterTopic(b.TaskID), env); err != nil {
		return fmt.Errorf("board: publish dissolve: %w", err)
	}
	if err := appendMessage(ctx, deps.Store, b.TaskID, env); err != nil {
		return err
	}
	b.State = StateDissolved
	return nil
}

// ChairLiveness checks whether timeout has elapsed since lastSeen and, if
// it has, runs NextChair and (if adoption succeeds)
// re-broadcasts board.ready with the new chair, per spec.md §4.3's
// failure semantics. lastSeen is the caller's view of the chair's last
// observed activity; callers reset it on every message from the chair.
func ChairLiveness(ctx context.Context, deps Deps, b *Board, survivors []ids.NodeID, lastSeen time.Time, timeout time.Duration) error {
	if time.Since(lastSeen) < timeout {
		return nil
	}
	newChair, ok := NextChair(survivors)
	if !ok {
		b.State = StateFailed
		return fmt.Errorf("board: chair adoption impossible for task %s, fewer than 2 survivors", b.TaskID)
	}
	b.Chair = newChair
	if newChair != deps.Ident.DID() {
		return nil // someone else is the new chair; nothing for this process to broadcast
	}

	ready := &protocol.BoardReady{
		Members:              memberDIDs(b.Members),
		AdversarialCriticDID: b.AdversarialCritic,
		Chair:                newChair,
	}
	env := &protocol.Envelope{
		MessageID:        ids.GenerateID(),
		TaskID:           b.TaskID,
		Sender:           deps.Ident.DID(),
		Kind:             protocol.KindBoardReady,
		PayloadBoardReady: ready,
	}
	if err := sign(deps.Ident, env); err != nil {
		return err
	}
	if err := deps.Bus.Publish(clusterTopic(b.TaskID), env); err != nil {
		return fmt.Errorf("board: publish reassumed ready: %w", err)
	}
	return appendMessage(ctx, deps.Store, b.TaskID, env)
}

func clusterTopic(taskID ids.ID) string {
	return "wws/board/" + taskID.String()
}

func memberDIDs(members []Member) []ids.NodeID {
	out := make([]ids.NodeID, len(members))
	for i, m := range members {
		out[i] = m.DID
	}
	return out
}

// appendMessage persists env for get_deliberation (spec.md §6) replay.
// Store is optional: callers that only need the live protocol exchange
// (e.g. most unit tests) may leave it nil.
func appendMessage(ctx context.Context, st store.Store, taskID ids.ID, env *protocol.Envelope) error {
	if st == nil {
		return nil
	}
	if err := st.AppendDeliberationMessage(ctx, taskID, env); err != nil {
		return fmt.Errorf("board: append deliberation message: %w", err)
	}
	return nil
}

func sign(id *identity.Identity, env *protocol.Envelope) error {
	canonical, err := protocol.Canonical(env)
	if err != nil {
		return fmt.Errorf("board: canonicalize envelope: %w", err)
	}
	env.Signature = id.Sign(canonical)
	return nil
}
