// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package deliberation implements the Deliberation Engine (spec.md §4.4):
// Round 1 commit-reveal proposals, Round 2 critique, and IRV tally with
// critic-completeness tie-break. Grounded on utils/bag.Bag for tallying
// continuing ballots' top choice, mirroring the teacher's use of Bag for
// vote counting in its own consensus polling.
package deliberation

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/luxfi/wws/ids"
	"github.com/luxfi/wws/protocol"
	"github.com/luxfi/wws/utils/bag"
)

// Phase is the deliberation engine's local view of round progress for one
// task, distinct from the holon's broader lifecycle state.
type Phase int

const (
	PhaseCommit Phase = iota
	PhaseReveal
	PhaseCritique
	PhaseVoting
	PhaseDone
	PhaseFailed
)

// Commitment is one member's locked Round 1 commitment, recorded when its
// proposal.commit arrives.
type Commitment struct {
	Proposer   ids.NodeID
	CommitHash ids.ID
}

// Reveal is one member's Round 1 reveal, recorded once its revealed hash
// has been checked against the stored commitment.
type Reveal struct {
	Proposer  ids.NodeID
	PlanID    ids.ID
	PlanBytes []byte
}

// Round1 drives commit-reveal for one task: commitments arrive first
// (each keyed by proposer DID), then reveals are verified against them.
// Members who commit without revealing, or whose revealed hash mismatches
// the stored commitment, are dropped from voting eligibility — this is
// the construction that prevents proposal copying (spec.md §4.4).
type Round1 struct {
	commitments map[ids.NodeID]Commitment
	reveals     map[ids.NodeID]Reveal
}

// NewRound1 returns an empty Round 1 tracker.
func NewRound1() *Round1 {
	return &Round1{
		commitments: make(map[ids.NodeID]Commitment),
		reveals:     make(map[ids.NodeID]Reveal),
	}
}

// RecordCommit stores a proposer's commitment. A commit received after the
// commit window has closed must not be passed here — callers enforce the
// window boundary (spec.md §4.4 "late commits after the window closes are
// rejected").
func (r *Round1) RecordCommit(proposer ids.NodeID, commitHash ids.ID) {
	r.commitments[proposer] = Commitment{Proposer: proposer, CommitHash: commitHash}
}

// RecordReveal verifies a reveal against its proposer's stored commitment
// and, on match, records the plan. A proposer with no matching commitment,
// a hash mismatch, or a duplicate reveal (per the at-least-once bus's
// redelivery) is handled as follows: no commitment means the reveal is not
// recorded and an error is returned; a mismatch deletes the proposer's
// commitment, dropping it from eligibility for the rest of the task, and
// returns an error (Round1 keeps no record of the failed reveal itself); a
// duplicate reveal of an already-recorded plan is a no-op.
func (r *Round1) RecordReveal(proposer ids.NodeID, planID ids.ID, planBytes, nonce []byte) error {
	commit, ok := r.commitments[proposer]
	if !ok {
		return fmt.Errorf("deliberation: reveal from %s has no matching commitment", proposer)
	}
	if _, already := r.reveals[proposer]; already {
		return nil // duplicate reveal via at-least-once redelivery
	}
	want := ids.CommitHash(planBytes, nonce)
	if want != commit.CommitHash {
		delete(r.commitments, proposer) // drop from eligibility: hash mismatch
		return fmt.Errorf("deliberation: revealed hash mismatch for proposer %s", proposer)
	}
	r.reveals[proposer] = Reveal{Proposer: proposer, PlanID: planID, PlanBytes: planBytes}
	return nil
}

// CloseReveal finalizes eligibility: proposers who committed but never
// revealed within the reveal window are dropped (spec.md §4.4). Callers
// invoke this once the reveal window elapses.
func (r *Round1) CloseReveal() []Reveal {
	surviving := make([]Reveal, 0, len(r.reveals))
	for proposer := range r.commitments {
		if reveal, ok := r.reveals[proposer]; ok {
			surviving = append(surviving, reveal)
		}
	}
	sort.Slice(surviving, func(i, j int) bool {
		return bytes.Compare(surviving[i].PlanID[:], surviving[j].PlanID[:]) < 0
	})
	return surviving
}

// Ballot is one member's Voting-phase submission: a full ranking of continuing
// plans plus the critique scores it computed for every revealed plan.
type Ballot struct {
	Voter        ids.NodeID
	Ranking      []ids.ID // most preferred first
	CriticScores map[ids.ID]protocol.CritiqueScore
}

// IRVRound is one elimination step's trace record, persisted in full so the
// tally is reproducible and auditable (spec.md §4.4).
type IRVRound struct {
	RoundNumber int
	Tally       map[ids.ID]int
	Eliminated  ids.ID
	TieBreak    string // "none", "critic_completeness", "lexicographic_plan_id"
	Winner      ids.ID // set only on the terminal round
}

// TallyIRV runs instant-runoff voting to completion over ballots, applying
// spec.md §4.4's exact elimination and tie-break rules:
//
//  1. Count each continuing ballot's top-ranked candidate among continuing
//     plans.
//  2. A strict majority among continuing ballots wins outright.
//  3. Otherwise eliminate the lowest-count candidate; ties break first by
//     lowest sum-of-critic-completeness across all voters, then by
//     lexicographic plan_id.
//  4. If every remaining candidate ties perfectly, the lexicographically
//     smallest plan_id wins.
//
// A zero-ballot input returns ErrNoBallots, signaling the holon must
// transition to Failed per spec.md §4.4.
func TallyIRV(candidates []ids.ID, ballots []Ballot) ([]IRVRound, ids.ID, error) {
	if len(ballots) == 0 {
		return nil, ids.Empty, ErrNoBallots
	}

	continuing := make(map[ids.ID]bool, len(candidates))
	for _, c := range candidates {
		continuing[c] = true
	}

	completeness := sumCriticCompleteness(candidates, ballots)

	var rounds []IRVRound
	for roundNum := 1; ; roundNum++ {
		tally := bag.New[ids.ID]()
		for _, b := range ballots {
			top, ok := topContinuingChoice(b.Ranking, continuing)
			if !ok {
				continue // this ballot has no continuing candidate left; it abstains
			}
			tally.Add(top)
		}

		counts := make(map[ids.ID]int, len(continuing))
		for c := range continuing {
			counts[c] = tally.Count(c)
		}

		if winner, ok := tally.Majority(); ok {
			rounds = append(rounds, IRVRound{RoundNumber: roundNum, Tally: counts, Winner: winner, TieBreak: "none"})
			return rounds, winner, nil
		}

		if len(continuing) == 1 {
			for c := range continuing {
				rounds = append(rounds, IRVRound{RoundNumber: roundNum, Tally: counts, Winner: c, TieBreak: "none"})
				return rounds, c, nil
			}
		}

		eliminated, tieBreak := lowestCandidate(continuing, counts, completeness)
		rounds = append(rounds, IRVRound{RoundNumber: roundNum, Tally: counts, Eliminated: eliminated, TieBreak: tieBreak})
		delete(continuing, eliminated)

		if len(continuing) == 0 {
			// Every candidate eliminated in lockstep ties: the spec's
			// final fallback is the lexicographically smallest plan_id
			// among the original candidates.
			winner := lexSmallest(candidates)
			rounds[len(rounds)-1].Winner = winner
			return rounds, winner, nil
		}
	}
}

// ErrNoBallots is returned by TallyIRV when zero ballots were recorded.
var ErrNoBallots = fmt.Errorf("deliberation: zero ballots recorded, round fails")

func topContinuingChoice(ranking []ids.ID, continuing map[ids.ID]bool) (ids.ID, bool) {
	for _, candidate := range ranking {
		if continuing[candidate] {
			return candidate, true
		}
	}
	return ids.Empty, false
}

// lowestCandidate finds the continuing candidate(s) with the minimum
// tally count and breaks ties by ascending sum-of-critic-completeness,
// then by lexicographic plan_id.
func lowestCandidate(continuing map[ids.ID]bool, counts map[ids.ID]int, completeness map[ids.ID]float64) (ids.ID, string) {
	var lowestCount = -1
	var tied []ids.ID
	for c := range continuing {
		n := counts[c]
		switch {
		case lowestCount == -1 || n < lowestCount:
			lowestCount = n
			tied = []ids.ID{c}
		case n == lowestCount:
			tied = append(tied, c)
		}
	}
	if len(tied) == 1 {
		return tied[0], "none"
	}

	sort.Slice(tied, func(i, j int) bool { return bytes.Compare(tied[i][:], tied[j][:]) < 0 })

	lowestCompleteness := completeness[tied[0]]
	var byCompleteness []ids.ID
	for _, c := range tied {
		if completeness[c] < lowestCompleteness {
			lowestCompleteness = completeness[c]
		}
	}
	for _, c := range tied {
		if completeness[c] == lowestCompleteness {
			byCompleteness = append(byCompleteness, c)
		}
	}
	if len(byCompleteness) == 1 {
		return byCompleteness[0], "critic_completeness"
	}
	// Still tied on completeness: eliminate the lexicographically largest,
	// so the smallest survives. This keeps the elimination tie-break
	// consistent with spec.md §4.4's separate "all remaining candidates
	// tie perfectly -> winner is the lexicographically smallest plan_id"
	// rule, which is exactly this case when only two candidates remain.
	return lexLargest(byCompleteness), "lexicographic_plan_id"
}

func lexLargest(candidates []ids.ID) ids.ID {
	largest := candidates[0]
	for _, c := range candidates[1:] {
		if bytes.Compare(c[:], largest[:]) > 0 {
			largest = c
		}
	}
	return largest
}

func sumCriticCompleteness(candidates []ids.ID, ballots []Ballot) map[ids.ID]float64 {
	sums := make(map[ids.ID]float64, len(candidates))
	for _, c := range candidates {
		var sum float64
		for _, b := range ballots {
			if score, ok := b.CriticScores[c]; ok {
				sum += score.Completeness
			}
		}
		sums[c] = sum
	}
	return sums
}

func lexSmallest(candidates []ids.ID) ids.ID {
	if len(candidates) == 0 {
		return ids.Empty
	}
	smallest := candidates[0]
	for _, c := range candidates[1:] {
		if bytes.Compare(c[:], smallest[:]) < 0 {
			smallest = c
		}
	}
	return smallest
}
