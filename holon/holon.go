// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package holon implements the Holon Supervisor (spec.md §4.5): drives a
// task through commit-reveal deliberation, IRV voting, subtask dispatch
// with recursive sub-holon expansion under the complexity gate, and
// synthesis. Holons live in an arena keyed by task_id, with parent/child
// relations as non-owning id references rather than owning pointers — per
// Design Notes §9 "cyclic holon references", this gives bidirectional
// tree traversal without a cycle in the ownership graph. Grounded on the
// teacher's core/runtime.Deps dependency-injection bag shape.
package holon

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/luxfi/wws/board"
	"github.com/luxfi/wws/bus"
	"github.com/luxfi/wws/config"
	"github.com/luxfi/wws/deliberation"
	"github.com/luxfi/wws/identity"
	"github.com/luxfi/wws/ids"
	"github.com/luxfi/wws/metrics"
	"github.com/luxfi/wws/oracle"
	"github.com/luxfi/wws/protocol"
	"github.com/luxfi/wws/store"
	"github.com/luxfi/wws/utils/sampler"
	"github.com/luxfi/wws/wwslog"
)

// State is a holon's local lifecycle state. Transitions are local to each
// member but driven by broadcast messages, so members may briefly
// disagree; consistency is eventual (spec.md §4.5).
type State int

const (
	StateForming State = iota
	StateDeliberatingRound1
	StateDeliberatingRound2
	StateVoting
	StateExecuting
	StateSynthesizing
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateForming:
		return "forming"
	case StateDeliberatingRound1:
		return "deliberating_round1"
	case StateDeliberatingRound2:
		return "deliberating_round2"
	case StateVoting:
		return "voting"
	case StateExecuting:
		return "executing"
	case StateSynthesizing:
		return "synthesizing"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Holon is one task's coordination node. Parent/child relations are
// id references into the owning Arena, never pointers — a child never
// outlives a lookup into the arena it belongs to. Every field is written
// only by the holon's own driver goroutine (Run/fullDeliberation); a
// chair-liveness watcher runs alongside it but reports back over a
// channel rather than writing Holon fields itself, preserving the
// single-writer invariant.
type Holon struct {
	TaskID            ids.ID
	ParentTaskID      ids.ID // ids.Empty for the root holon
	Depth             int
	Chair             ids.NodeID
	Members           []board.Member
	AdversarialCritic ids.NodeID
	WinningPlanID     ids.ID
	Children          []ids.ID // non-owning references into the same Arena
	State             State
}

// Arena owns every holon created during a connector's lifetime, keyed by
// task_id. At most one holon exists per task_id (spec.md §8 invariant).
type Arena struct {
	mu     sync.RWMutex
	holons map[ids.ID]*Holon
}

// NewArena returns an empty arena.
func NewArena() *Arena {
	return &Arena{holons: make(map[ids.ID]*Holon)}
}

// Put inserts or replaces a holon by task_id.
func (a *Arena) Put(h *Holon) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.holons[h.TaskID] = h
}

// Get looks up a holon by task_id.
func (a *Arena) Get(taskID ids.ID) (*Holon, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	h, ok := a.holons[taskID]
	return h, ok
}

// BoardFormer forms a board for taskID from candidatePool, the seam the
// Supervisor uses for both root and recursive sub-holon formation. In
// production this wraps board.Form bound to a real bus and acceptance
// window; tests may substitute a synchronous fake.
type BoardFormer func(ctx context.Context, taskID ids.ID, invite protocol.BoardInvite, candidatePool []ids.NodeID) (*board.Board, error)

// Deps bundles the Supervisor's collaborators, generalizing the teacher's
// core/runtime.Deps (Log, Metrics, Clock, DB, ...) to the coordination
// core's domain: Oracle, Store, Bus and FormBoard replace chain-specific
// consensus collaborators. Bus carries every Round 1/2/Voting envelope
// the Deliberation Engine signs and publishes (spec.md §4.4), the same
// adapter board.Form already uses for formation messages.
type Deps struct {
	Log       wwslog.Logger
	Metrics   *metrics.Metrics
	Bus       bus.Bus
	Store     store.Store
	Oracle    oracle.Oracle
	Config    config.Parameters
	FormBoard BoardFormer
	Now       func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// Supervisor drives holons to completion: deliberation, subtask dispatch,
// recursive sub-holon expansion, and synthesis.
type Supervisor struct {
	deps  Deps
	arena *Arena
}

// NewSupervisor builds a Supervisor backed by a fresh arena.
func NewSupervisor(deps Deps) *Supervisor {
	return &Supervisor{deps: deps, arena: NewArena()}
}

// Arena exposes the holon arena for RPC/observability queries.
func (s *Supervisor) Arena() *Arena { return s.arena }

// TaskRequest describes one task to drive through the coordination core,
// either the root task injected by a caller or a subtask recursively
// dispatched by a parent holon.
type TaskRequest struct {
	Description          string
	CapabilitiesRequired []string
	EstimatedComplexity  float64
	ParentTaskID         ids.ID
	Depth                int
	CandidatePool        []ids.NodeID // eligible member DIDs for board formation
	Chair                *identity.Identity
}

// Run drives req through formation, deliberation, execution (with
// recursive sub-holon expansion under the complexity gate) and synthesis,
// returning the task's result artifact. It is the single entry point
// both the root task-injection path and recursive subtask dispatch use.
func (s *Supervisor) Run(ctx context.Context, req TaskRequest) (*store.Artifact, error) {
	taskID := ids.GenerateID()
	h := &Holon{
		TaskID:       taskID,
		ParentTaskID: req.ParentTaskID,
		Depth:        req.Depth,
		Chair:        req.Chair.DID(),
		State:        StateForming,
	}
	s.arena.Put(h)
	s.deps.Metrics.HolonsCreated.Inc()
	s.deps.Metrics.RecursionDepth.Observe(float64(req.Depth))

	if err := s.deps.Store.StoreTask(ctx, store.Task{
		TaskID:               taskID,
		Description:          req.Description,
		CapabilitiesRequired: req.CapabilitiesRequired,
		EstimatedComplexity:  req.EstimatedComplexity,
		InjectedAt:           s.deps.now(),
		Status:               h.State.String(),
		Depth:                req.Depth,
		ParentTaskID:         req.ParentTaskID,
	}); err != nil {
		return nil, fmt.Errorf("holon: store task: %w", err)
	}

	formCtx, cancel := context.WithTimeout(ctx, s.deps.Config.AcceptanceWindow)
	defer cancel()
	invite := protocol.BoardInvite{
		EstimatedComplexity:  req.EstimatedComplexity,
		CapabilitiesRequired: req.CapabilitiesRequired,
		InvitationNonce:      ids.GenerateID(),
		IssuedAt:             s.deps.now(),
	}
	formed, err := s.deps.FormBoard(formCtx, taskID, invite, req.CandidatePool)
	if err != nil {
		return s.fail(ctx, h, fmt.Errorf("holon: form board: %w", err))
	}
	h.Members = formed.Members
	h.AdversarialCritic = formed.AdversarialCritic
	h.Chair = formed.Chair

	artifact, err := s.deliberateAndExecute(ctx, h, req)
	if err != nil {
		return s.fail(ctx, h, err)
	}

	h.State = StateDone
	s.deps.Metrics.HolonsCompleted.Inc()
	_ = s.deps.Store.StoreTask(ctx, mustTask(ctx, s.deps.Store, taskID, h.State.String()))
	return artifact, nil
}

func (s *Supervisor) fail(ctx context.Context, h *Holon, cause error) (*store.Artifact, error) {
	h.State = StateFailed
	s.deps.Metrics.HolonsFailed.Inc()
	_ = s.deps.Store.StoreTask(ctx, mustTask(ctx, s.deps.Store, h.TaskID, h.State.String()))
	s.deps.Log.Error("holon failed", "task_id", h.TaskID, "error", cause)
	return nil, cause
}

func mustTask(ctx context.Context, st store.Store, taskID ids.ID, status string) store.Task {
	t, _, _ := st.GetTask(ctx, taskID)
	t.Status = status
	return t
}

// deliberateAndExecute handles the zero/one/many-member boundary cases of
// spec.md §4.3/§4.5: zero members means solo direct execution (no
// deliberation messages at all); one or more members runs the full
// commit-reveal/critique/IRV protocol, even when degenerate at two
// members ("runs the full deliberation but trivially").
func (s *Supervisor) deliberateAndExecute(ctx context.Context, h *Holon, req TaskRequest) (*store.Artifact, error) {
	if len(h.Members) == 0 {
		return s.soloExecute(ctx, h, req)
	}
	return s.fullDeliberation(ctx, h, req)
}

// soloExecute handles the zero-acceptor case: the chair proposes and
// executes directly, no Round 1/2 messages are broadcast (spec.md S1).
func (s *Supervisor) soloExecute(ctx context.Context, h *Holon, req TaskRequest) (*store.Artifact, error) {
	h.State = StateExecuting
	plan, err := s.deps.Oracle.Propose(ctx, req.Description)
	if err != nil {
		return nil, fmt.Errorf("holon: solo propose: %w", err)
	}

	results, err := s.dispatchSubtasks(ctx, h, req, plan.Subtasks)
	if err != nil {
		return nil, err
	}

	return s.synthesizeOrLeaf(ctx, h, req, plan, results, false)
}

// deliberationTopic is the per-task topic Round 1/2/Voting envelopes are
// published to and collected from, mirroring board.clusterTopic's
// per-task addressing for formation messages.
func deliberationTopic(taskID ids.ID) string {
	return "wws/deliberation/" + taskID.String()
}

// publishMemberEnvelope builds, signs and publishes one member-attributed
// deliberation envelope. This single-process reference runtime has only
// one live signing identity per holon — its chair's — so Round 1/2/Voting
// envelopes are attributed to their real member DID via Sender but signed
// by that one live key standing in for the absent member process, the
// same simplification executeOrRecurse already documents for child-holon
// chair minting.
func (s *Supervisor) publishMemberEnvelope(chair *identity.Identity, topic string, taskID ids.ID, sender ids.NodeID, kind protocol.Kind, populate func(*protocol.Envelope)) error {
	env := &protocol.Envelope{
		MessageID: ids.GenerateID(),
		TaskID:    taskID,
		Sender:    sender,
		Kind:      kind,
	}
	populate(env)
	if err := sign(chair, env); err != nil {
		return err
	}
	if err := s.deps.Bus.Publish(topic, env); err != nil {
		return fmt.Errorf("holon: publish %s: %w", kind, err)
	}
	return nil
}

func sign(id *identity.Identity, env *protocol.Envelope) error {
	canonical, err := protocol.Canonical(env)
	if err != nil {
		return fmt.Errorf("holon: canonicalize envelope: %w", err)
	}
	env.Signature = id.Sign(canonical)
	return nil
}

// collectRound drains ch for up to window, persisting every matching
// envelope via AppendDeliberationMessage (so get_deliberation, spec.md
// §6, can replay the round) and invoking handle, until want envelopes of
// kind have arrived or the window elapses. Envelopes arriving after the
// window closes are simply never consumed — spec.md §4.4's "late commits
// after the window closes are rejected" applies identically to reveal,
// critique and vote windows.
func (s *Supervisor) collectRound(ctx context.Context, taskID ids.ID, ch <-chan *protocol.Envelope, window time.Duration, kind protocol.Kind, want int, handle func(*protocol.Envelope)) error {
	deadline, cancel := context.WithTimeout(ctx, window)
	defer cancel()
	seen := 0
	for seen < want {
		select {
		case <-deadline.Done():
			return nil
		case env, ok := <-ch:
			if !ok {
				return nil
			}
			if env.Kind != kind {
				continue
			}
			if err := s.deps.Store.AppendDeliberationMessage(ctx, taskID, env); err != nil {
				return fmt.Errorf("holon: append deliberation message: %w", err)
			}
			handle(env)
			seen++
		}
	}
	return nil
}

// livenessEvent is how watchChairLiveness reports an outcome back to the
// holon's own driver goroutine, which is the only goroutine ever allowed
// to write Holon fields.
type livenessEvent struct {
	newChair ids.NodeID
	err      error
}

// chairActivity is the liveness watcher's view of "has the chair made
// forward progress recently", touched by fullDeliberation as each
// round's collection phase completes.
type chairActivity struct {
	mu   sync.Mutex
	seen time.Time
}

func newChairActivity(now time.Time) *chairActivity {
	return &chairActivity{seen: now}
}

func (a *chairActivity) touch(now time.Time) {
	a.mu.Lock()
	a.seen = now
	a.mu.Unlock()
}

func (a *chairActivity) get() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.seen
}

// watchChairLiveness runs board.ChairLiveness on a timer alongside a
// multi-member holon's driver goroutine, so scenario S6 (chair failure
// mid-deliberation) can actually happen rather than existing only in
// board's own unit tests. It never writes h's fields directly; it reports
// over events and leaves applying the outcome to the driver goroutine.
func (s *Supervisor) watchChairLiveness(ctx context.Context, h *Holon, chair *identity.Identity, activity *chairActivity, events chan<- livenessEvent) {
	timeout := s.deps.Config.ChairLivenessTimeout
	ticker := time.NewTicker(timeout)
	defer ticker.Stop()

	b := &board.Board{TaskID: h.TaskID, Chair: h.Chair, Members: h.Members, AdversarialCritic: h.AdversarialCritic, State: board.StateActive}
	survivors := append([]ids.NodeID{h.Chair}, memberDIDs(h.Members)...)
	deps := board.Deps{Bus: s.deps.Bus, Ident: chair, Log: s.deps.Log, Rng: sampler.NewUniform()}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			prevChair := b.Chair
			if err := board.ChairLiveness(ctx, deps, b, survivors, activity.get(), timeout); err != nil {
				select {
				case events <- livenessEvent{err: err}:
				default:
				}
				return
			}
			if b.Chair != prevChair {
				select {
				case events <- livenessEvent{newChair: b.Chair}:
				default:
				}
			}
		}
	}
}

// applyLiveness drains any pending chair-liveness outcome without
// blocking, applying it on the driver goroutine so Holon fields still
// only ever change on that one goroutine.
func (s *Supervisor) applyLiveness(h *Holon, events <-chan livenessEvent) error {
	select {
	case ev := <-events:
		if ev.err != nil {
			return ev.err
		}
		s.deps.Log.Warn("chair reassigned by liveness watcher", "task_id", h.TaskID, "new_chair", ev.newChair)
		h.Chair = ev.newChair
		return nil
	default:
		return nil
	}
}

// fullDeliberation runs Round 1 commit-reveal, Round 2 critique, and IRV
// tally with every current board member participating, driving each
// phase over the bus with signed, per-member envelopes (spec.md §4.4),
// then dispatches the winning plan's subtasks.
func (s *Supervisor) fullDeliberation(ctx context.Context, h *Holon, req TaskRequest) (*store.Artifact, error) {
	topic := deliberationTopic(h.TaskID)
	ch, unsubscribe := s.deps.Bus.Subscribe(topic)
	defer unsubscribe()

	activity := newChairActivity(s.deps.now())
	livenessCtx, stopLiveness := context.WithCancel(ctx)
	defer stopLiveness()
	events := make(chan livenessEvent, 1)
	go s.watchChairLiveness(livenessCtx, h, req.Chair, activity, events)

	h.State = StateDeliberatingRound1
	r1 := deliberation.NewRound1()
	plansByMember := make(map[ids.NodeID]oracle.Plan, len(h.Members))
	planIDByMember := make(map[ids.NodeID]ids.ID, len(h.Members))
	nonceByMember := make(map[ids.NodeID]ids.ID, len(h.Members))

	committed := 0
	for _, m := range h.Members {
		plan, err := s.deps.Oracle.Propose(ctx, req.Description)
		for attempt := 0; err != nil && attempt < s.deps.Config.OracleMaxRetries; attempt++ {
			time.Sleep(s.deps.Config.OracleRetryBackoff)
			plan, err = s.deps.Oracle.Propose(ctx, req.Description)
		}
		if err != nil {
			s.deps.Log.Warn("propose failed, member drops out of round", "task_id", h.TaskID, "member", m.DID)
			continue
		}
		nonce := ids.GenerateID()
		planID := ids.ContentID(plan.PlanBytes)
		commitHash := ids.CommitHash(plan.PlanBytes, nonce[:])
		plansByMember[m.DID] = plan
		planIDByMember[m.DID] = planID
		nonceByMember[m.DID] = nonce

		if err := s.deps.Store.StorePlan(ctx, store.PlanRecord{
			TaskID: h.TaskID, PlanID: planID, Proposer: m.DID, PlanBytes: plan.PlanBytes,
		}); err != nil {
			return nil, fmt.Errorf("holon: store plan: %w", err)
		}
		if err := s.publishMemberEnvelope(req.Chair, topic, h.TaskID, m.DID, protocol.KindProposalCommit, func(env *protocol.Envelope) {
			env.PayloadProposalCommit = &protocol.ProposalCommit{CommitHash: commitHash}
		}); err != nil {
			return nil, err
		}
		committed++
	}

	if err := s.applyLiveness(h, events); err != nil {
		return nil, fmt.Errorf("holon: chair liveness: %w", err)
	}
	if err := s.collectRound(ctx, h.TaskID, ch, s.deps.Config.CommitWindow, protocol.KindProposalCommit, committed, func(env *protocol.Envelope) {
		if env.PayloadProposalCommit == nil {
			return
		}
		r1.RecordCommit(env.Sender, env.PayloadProposalCommit.CommitHash)
	}); err != nil {
		return nil, err
	}
	activity.touch(s.deps.now())

	revealed := 0
	for _, m := range h.Members {
		planID, ok := planIDByMember[m.DID]
		if !ok {
			continue // dropped out at propose time, never committed
		}
		plan := plansByMember[m.DID]
		nonce := nonceByMember[m.DID]
		if err := s.publishMemberEnvelope(req.Chair, topic, h.TaskID, m.DID, protocol.KindProposalReveal, func(env *protocol.Envelope) {
			env.PayloadProposalReveal = &protocol.ProposalReveal{PlanID: planID, PlanBytes: plan.PlanBytes, Nonce: nonce[:]}
		}); err != nil {
			return nil, err
		}
		revealed++
	}

	if err := s.applyLiveness(h, events); err != nil {
		return nil, fmt.Errorf("holon: chair liveness: %w", err)
	}
	if err := s.collectRound(ctx, h.TaskID, ch, s.deps.Config.RevealWindow, protocol.KindProposalReveal, revealed, func(env *protocol.Envelope) {
		if env.PayloadProposalReveal == nil {
			return
		}
		rv := env.PayloadProposalReveal
		if err := r1.RecordReveal(env.Sender, rv.PlanID, rv.PlanBytes, rv.Nonce); err != nil {
			s.deps.Metrics.ProtocolFaults.WithLabelValues("hash_mismatch").Inc()
			s.deps.Log.Warn("reveal rejected", "task_id", h.TaskID, "member", env.Sender, "error", err)
		}
	}); err != nil {
		return nil, err
	}
	activity.touch(s.deps.now())

	h.State = StateDeliberatingRound2
	surviving := r1.CloseReveal()
	if len(surviving) == 0 {
		return nil, fmt.Errorf("holon: zero revealed plans, round fails")
	}

	planSet := make(map[ids.ID][]byte, len(surviving))
	candidates := make([]ids.ID, 0, len(surviving))
	for _, rev := range surviving {
		planSet[rev.PlanID] = rev.PlanBytes
		candidates = append(candidates, rev.PlanID)
	}

	critiqued := 0
	for _, m := range h.Members {
		critiques, err := s.deps.Oracle.Critique(ctx, planSet, m.DID == h.AdversarialCritic)
		for attempt := 0; err != nil && attempt < s.deps.Config.OracleMaxRetries; attempt++ {
			time.Sleep(s.deps.Config.OracleRetryBackoff)
			critiques, err = s.deps.Oracle.Critique(ctx, planSet, m.DID == h.AdversarialCritic)
		}
		if err != nil {
			s.deps.Log.Warn("critique failed, member abstains", "task_id", h.TaskID, "member", m.DID)
			continue
		}
		scores := make(map[ids.ID]protocol.CritiqueScore, len(critiques))
		for planID, c := range critiques {
			scores[planID] = protocol.CritiqueScore{
				Feasibility: c.Feasibility, Parallelism: c.Parallelism,
				Completeness: c.Completeness, Risk: c.Risk,
			}
		}
		if err := s.publishMemberEnvelope(req.Chair, topic, h.TaskID, m.DID, protocol.KindDiscussionCritique, func(env *protocol.Envelope) {
			env.PayloadDiscussionCritique = &protocol.DiscussionCritique{Scores: scores}
		}); err != nil {
			return nil, err
		}
		critiqued++
	}

	if err := s.applyLiveness(h, events); err != nil {
		return nil, fmt.Errorf("holon: chair liveness: %w", err)
	}
	scoresByMember := make(map[ids.NodeID]map[ids.ID]protocol.CritiqueScore, critiqued)
	if err := s.collectRound(ctx, h.TaskID, ch, s.deps.Config.CritiqueWindow, protocol.KindDiscussionCritique, critiqued, func(env *protocol.Envelope) {
		if env.PayloadDiscussionCritique == nil {
			return
		}
		scoresByMember[env.Sender] = env.PayloadDiscussionCritique.Scores
	}); err != nil {
		return nil, err
	}
	activity.touch(s.deps.now())

	h.State = StateVoting
	voted := 0
	for _, m := range h.Members {
		scores, ok := scoresByMember[m.DID]
		if !ok {
			continue
		}
		ranking := rankByFeasibilityThenCompleteness(candidates, scores)
		if err := s.publishMemberEnvelope(req.Chair, topic, h.TaskID, m.DID, protocol.KindVoteBallot, func(env *protocol.Envelope) {
			env.PayloadVoteBallot = &protocol.VoteBallot{Ranking: ranking, CriticScores: scores}
		}); err != nil {
			return nil, err
		}
		voted++
	}

	if err := s.applyLiveness(h, events); err != nil {
		return nil, fmt.Errorf("holon: chair liveness: %w", err)
	}
	var ballots []deliberation.Ballot
	if err := s.collectRound(ctx, h.TaskID, ch, s.deps.Config.VoteWindow, protocol.KindVoteBallot, voted, func(env *protocol.Envelope) {
		if env.PayloadVoteBallot == nil {
			return
		}
		ballots = append(ballots, deliberation.Ballot{
			Voter:        env.Sender,
			Ranking:      env.PayloadVoteBallot.Ranking,
			CriticScores: env.PayloadVoteBallot.CriticScores,
		})
		s.deps.Metrics.BallotsCast.Inc()
	}); err != nil {
		return nil, err
	}
	activity.touch(s.deps.now())

	rounds, winner, err := deliberation.TallyIRV(candidates, ballots)
	if err != nil {
		return nil, fmt.Errorf("holon: tally IRV: %w", err)
	}
	s.deps.Metrics.IRVRoundsRun.Observe(float64(len(rounds)))
	for _, round := range rounds {
		if err := s.deps.Store.StoreIRVRound(ctx, h.TaskID, round); err != nil {
			return nil, fmt.Errorf("holon: store IRV round: %w", err)
		}
	}
	for _, b := range ballots {
		if err := s.deps.Store.StoreBallot(ctx, store.BallotRecord{TaskID: h.TaskID, Ballot: b}); err != nil {
			return nil, fmt.Errorf("holon: store ballot: %w", err)
		}
	}
	h.WinningPlanID = winner

	var winningPlan oracle.Plan
	for member, planID := range planIDByMember {
		if planID == winner {
			winningPlan = plansByMember[member]
			break
		}
	}

	h.State = StateExecuting
	results, err := s.dispatchSubtasks(ctx, h, req, winningPlan.Subtasks)
	if err != nil {
		return nil, err
	}

	return s.synthesizeOrLeaf(ctx, h, req, winningPlan, results, len(winningPlan.Subtasks) > 0)
}

// rankByFeasibilityThenCompleteness produces a deterministic total
// ranking from critique scores, used as a member's submitted ballot.
func rankByFeasibilityThenCompleteness(candidates []ids.ID, scores map[ids.ID]protocol.CritiqueScore) []ids.ID {
	ranked := make([]ids.ID, len(candidates))
	copy(ranked, candidates)
	sort.Slice(ranked, func(i, j int) bool {
		a, b := scores[ranked[i]], scores[ranked[j]]
		if a.Feasibility != b.Feasibility {
			return a.Feasibility > b.Feasibility
		}
		if a.Completeness != b.Completeness {
			return a.Completeness > b.Completeness
		}
		return bytes.Compare(ranked[i][:], ranked[j][:]) < 0
	})
	return ranked
}

// dispatchSubtasks assigns each subtask to an executor per spec.md
// §4.5's assignment policy (lowest active-task-count, then highest
// affinity, then DID lex order), applying the complexity gate for
// recursive sub-holon expansion, with timeout-driven reassignment.
func (s *Supervisor) dispatchSubtasks(ctx context.Context, h *Holon, req TaskRequest, subtasks []oracle.Subtask) ([][]byte, error) {
	if len(subtasks) == 0 {
		return nil, nil
	}

	pool := h.Members
	if len(pool) == 0 {
		pool = []board.Member{{DID: h.Chair}}
	}

	results := make([][]byte, len(subtasks))
	for i, subtask := range subtasks {
		result, err := s.executeSubtaskWithReassignment(ctx, h, req, subtask, pool)
		if err != nil {
			return nil, fmt.Errorf("holon: subtask %d exhausted all members: %w", i, err)
		}
		results[i] = result
	}
	return results, nil
}

func (s *Supervisor) executeSubtaskWithReassignment(ctx context.Context, h *Holon, req TaskRequest, subtask oracle.Subtask, pool []board.Member) ([]byte, error) {
	excluded := make(map[ids.NodeID]bool)
	for attempt := 0; attempt < len(pool)+1; attempt++ {
		executor, ok := selectExecutor(pool, excluded)
		if !ok {
			return nil, fmt.Errorf("no eligible executor remains")
		}

		result, err := s.executeOrRecurse(ctx, h, req, subtask, executor)
		if err == nil {
			return result, nil
		}
		s.deps.Log.Warn("subtask execution failed, reassigning", "task_id", h.TaskID, "executor", executor.DID, "error", err)
		excluded[executor.DID] = true
	}
	return nil, fmt.Errorf("all members exhausted")
}

// selectExecutor implements the subtask assignment policy: lowest
// active-task-count, ties broken by highest affinity, further ties by
// DID lexicographic order (spec.md §4.5).
func selectExecutor(pool []board.Member, excluded map[ids.NodeID]bool) (board.Member, bool) {
	var best board.Member
	found := false
	for _, m := range pool {
		if excluded[m.DID] {
			continue
		}
		if !found {
			best, found = m, true
			continue
		}
		switch {
		case m.ActiveTaskCount != best.ActiveTaskCount:
			if m.ActiveTaskCount < best.ActiveTaskCount {
				best = m
			}
		case m.AffinityScore != best.AffinityScore:
			if m.AffinityScore > best.AffinityScore {
				best = m
			}
		default:
			if bytes.Compare(m.DID[:], best.DID[:]) < 0 {
				best = m
			}
		}
	}
	return best, found
}

// executeOrRecurse applies the complexity gate (spec.md §4.5): below
// threshold, or at MAX_DEPTH, execute directly; at/above threshold with
// room to recurse and enough eligible members, spawn a child holon.
func (s *Supervisor) executeOrRecurse(ctx context.Context, h *Holon, req TaskRequest, subtask oracle.Subtask, executor board.Member) ([]byte, error) {
	execCtx, cancel := context.WithTimeout(ctx, s.deps.Config.ExecutionDeadline)
	defer cancel()

	canRecurse := subtask.EstimatedComplexity >= s.deps.Config.ComplexityThreshold &&
		h.Depth < s.deps.Config.MaxDepth &&
		len(h.Members) >= s.deps.Config.MinMembersForRecursion

	if !canRecurse {
		content, err := s.deps.Oracle.Execute(execCtx, subtask)
		if err != nil {
			return nil, fmt.Errorf("execute subtask: %w", err)
		}
		return content, nil
	}

	// The child holon is chaired by a freshly minted transient signing
	// identity, not by the executor's DID: neither this Supervisor nor
	// cmd/wwsd keeps a signing identity per member DID. The executor is
	// used only for the direct-execution path above.
	childKeys, err := identity.GenerateKeyPair()
	if err != nil {
		return nil, fmt.Errorf("mint child holon chair identity: %w", err)
	}
	childChair := identity.New(childKeys, identity.NewStaticResolver(nil))
	childPool := memberDIDs(h.Members)
	childArtifact, err := s.Run(execCtx, TaskRequest{
		Description:          subtask.Description,
		CapabilitiesRequired: subtask.RequiredCapabilities,
		EstimatedComplexity:  subtask.EstimatedComplexity,
		ParentTaskID:         h.TaskID,
		Depth:                h.Depth + 1,
		CandidatePool:        childPool,
		Chair:                childChair,
	})
	if err != nil {
		return nil, fmt.Errorf("recurse into child holon: %w", err)
	}

	h.Children = append(h.Children, childArtifact.TaskID)
	return childArtifact.ContentBytes, nil
}

func memberDIDs(members []board.Member) []ids.NodeID {
	out := make([]ids.NodeID, len(members))
	for i, m := range members {
		out[i] = m.DID
	}
	return out
}

// synthesizeOrLeaf finalizes a holon's result: a leaf artifact when there
// were no subtasks to synthesize over, otherwise a single synthesis call
// over the ordered subresults (spec.md §4.5's "explicitly more than
// concatenation").
func (s *Supervisor) synthesizeOrLeaf(ctx context.Context, h *Holon, req TaskRequest, plan oracle.Plan, results [][]byte, forceSynthesis bool) (*store.Artifact, error) {
	var content []byte
	isSynthesis := forceSynthesis || len(results) > 0

	if len(results) == 0 {
		direct, err := s.deps.Oracle.Execute(ctx, oracle.Subtask{Description: req.Description})
		if err != nil {
			return nil, fmt.Errorf("holon: direct execute: %w", err)
		}
		content = direct
		isSynthesis = false
	} else {
		h.State = StateSynthesizing
		synthCtx, cancel := context.WithTimeout(ctx, s.deps.Config.SynthesisDeadline)
		defer cancel()

		var err error
		for attempt := 0; attempt <= s.deps.Config.OracleMaxRetries; attempt++ {
			content, err = s.deps.Oracle.Synthesize(synthCtx, req.Description, results)
			if err == nil {
				break
			}
			s.deps.Metrics.SynthesisRetries.Inc()
			time.Sleep(s.deps.Config.OracleRetryBackoff)
		}
		if err != nil {
			return nil, fmt.Errorf("holon: synthesis exhausted retries: %w", err)
		}
	}

	artifact := store.Artifact{
		TaskID:       h.TaskID,
		ArtifactID:   ids.GenerateID(),
		ContentHash:  ids.ContentID(content),
		ContentBytes: content,
		IsSynthesis:  isSynthesis,
		ProducedBy:   h.Chair,
		ProducedAt:   s.deps.now(),
	}
	if err := s.deps.Store.StoreArtifact(ctx, artifact); err != nil {
		return nil, fmt.Errorf("holon: store artifact: %w", err)
	}
	return &artifact, nil
}
