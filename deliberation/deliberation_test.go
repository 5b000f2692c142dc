package deliberation

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/wws/ids"
	"github.com/luxfi/wws/protocol"
)

func planID(b byte) ids.ID {
	var id ids.ID
	id[0] = b
	return id
}

func did(b byte) ids.NodeID {
	var d ids.NodeID
	d[0] = b
	return d
}

func TestRound1RevealMatchingCommitmentSucceeds(t *testing.T) {
	r1 := NewRound1()
	proposer := did(1)
	plan := []byte("plan bytes")
	nonce := []byte("nonce")
	commitHash := ids.CommitHash(plan, nonce)

	r1.RecordCommit(proposer, commitHash)
	err := r1.RecordReveal(proposer, planID(1), plan, nonce)
	require.NoError(t, err)

	surviving := r1.CloseReveal()
	require.Len(t, surviving, 1)
	require.Equal(t, proposer, surviving[0].Proposer)
}

func TestRound1MismatchedRevealDropsEligibility(t *testing.T) {
	r1 := NewRound1()
	proposer := did(1)
	plan := []byte("plan bytes")
	nonce := []byte("nonce")
	commitHash := ids.CommitHash(plan, nonce)
	r1.RecordCommit(proposer, commitHash)

	err := r1.RecordReveal(proposer, planID(1), []byte("different plan"), nonce)
	require.Error(t, err)
	require.Empty(t, r1.CloseReveal())
}

func TestRound1CommitWithoutRevealIsDropped(t *testing.T) {
	r1 := NewRound1()
	r1.RecordCommit(did(1), ids.CommitHash([]byte("x"), []byte("y")))
	require.Empty(t, r1.CloseReveal())
}

func TestRound1DuplicateRevealIsNoOp(t *testing.T) {
	r1 := NewRound1()
	proposer := did(1)
	plan := []byte("plan")
	nonce := []byte("nonce")
	r1.RecordCommit(proposer, ids.CommitHash(plan, nonce))
	require.NoError(t, r1.RecordReveal(proposer, planID(1), plan, nonce))
	require.NoError(t, r1.RecordReveal(proposer, planID(1), plan, nonce))
	require.Len(t, r1.CloseReveal(), 1)
}

func TestTallyIRVStrictMajorityWinsRoundOne(t *testing.T) {
	a, b := planID(1), planID(2)
	ballots := []Ballot{
		{Voter: did(1), Ranking: []ids.ID{a, b}},
		{Voter: did(2), Ranking: []ids.ID{a, b}},
		{Voter: did(3), Ranking: []ids.ID{b, a}},
	}
	rounds, winner, err := TallyIRV([]ids.ID{a, b}, ballots)
	require.NoError(t, err)
	require.Equal(t, a, winner)
	require.Len(t, rounds, 1)
}

func TestTallyIRVEliminatesLowestAndContinues(t *testing.T) {
	a, b, c := planID(1), planID(2), planID(3)
	ballots := []Ballot{
		{Voter: did(1), Ranking: []ids.ID{a, b, c}},
		{Voter: did(2), Ranking: []ids.ID{a, b, c}},
		{Voter: did(3), Ranking: []ids.ID{b, c, a}},
		{Voter: did(4), Ranking: []ids.ID{c, b, a}},
		{Voter: did(5), Ranking: []ids.ID{c, b, a}},
	}
	// Round 1: a=2, b=1, c=2 -> no majority, eliminate b (lowest count).
	// Round 2: ballot for b reassigns to c -> a=2, c=3 -> c wins.
	rounds, winner, err := TallyIRV([]ids.ID{a, b, c}, ballots)
	require.NoError(t, err)
	require.Equal(t, c, winner)
	require.Len(t, rounds, 2)
	require.Equal(t, b, rounds[0].Eliminated)
}

func TestTallyIRVTieBreaksByCriticCompleteness(t *testing.T) {
	a, b := planID(1), planID(2)
	ballots := []Ballot{
		{
			Voter:   did(1),
			Ranking: []ids.ID{a, b},
			CriticScores: map[ids.ID]protocol.CritiqueScore{
				a: {Completeness: 0.2},
				b: {Completeness: 0.9},
			},
		},
		{
			Voter:   did(2),
			Ranking: []ids.ID{b, a},
			CriticScores: map[ids.ID]protocol.CritiqueScore{
				a: {Completeness: 0.2},
				b: {Completeness: 0.9},
			},
		},
	}
	// a and b tie at 1 vote each with only 2 candidates: no majority (1*2
	// is not > 2), so one gets eliminated by lowest completeness sum: a.
	rounds, winner, err := TallyIRV([]ids.ID{a, b}, ballots)
	require.NoError(t, err)
	require.Equal(t, b, winner)
	require.Equal(t, "critic_completeness", rounds[0].TieBreak)
	require.Equal(t, a, rounds[0].Eliminated)
}

func TestTallyIRVPerfectTieFallsBackToLexicographicPlanID(t *testing.T) {
	a, b := planID(1), planID(2) // a < b lexicographically
	ballots := []Ballot{
		{Voter: did(1), Ranking: []ids.ID{a, b}},
		{Voter: did(2), Ranking: []ids.ID{b, a}},
	}
	_, winner, err := TallyIRV([]ids.ID{a, b}, ballots)
	require.NoError(t, err)
	require.Equal(t, a, winner)
}

func TestTallyIRVZeroBallotsFails(t *testing.T) {
	_, _, err := TallyIRV([]ids.ID{planID(1)}, nil)
	require.ErrorIs(t, err, ErrNoBallots)
}

func TestTallyIRVIsDeterministicAcrossRuns(t *testing.T) {
	a, b, c := planID(1), planID(2), planID(3)
	ballots := []Ballot{
		{Voter: did(1), Ranking: []ids.ID{a, b, c}},
		{Voter: did(2), Ranking: []ids.ID{b, c, a}},
		{Voter: did(3), Ranking: []ids.ID{c, a, b}},
	}
	_, winnerA, errA := TallyIRV([]ids.ID{a, b, c}, ballots)
	_, winnerB, errB := TallyIRV([]ids.ID{a, b, c}, ballots)
	require.NoError(t, errA)
	require.NoError(t, errB)
	require.Equal(t, winnerA, winnerB)
}
