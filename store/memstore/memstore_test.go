package memstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/wws/deliberation"
	"github.com/luxfi/wws/ids"
	"github.com/luxfi/wws/protocol"
	"github.com/luxfi/wws/store"
)

func TestStoreTaskIsIdempotent(t *testing.T) {
	s := New()
	ctx := context.Background()
	taskID := ids.GenerateID()
	task := store.Task{TaskID: taskID, Description: "write a haiku", Status: "Forming"}

	require.NoError(t, s.StoreTask(ctx, task))
	require.NoError(t, s.StoreTask(ctx, task))

	got, ok, err := s.GetTask(ctx, taskID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, task, got)
}

func TestStoreBallotKeepsAtMostOnePerVoter(t *testing.T) {
	s := New()
	ctx := context.Background()
	taskID := ids.GenerateID()
	voter := ids.NodeID{1}

	first := store.BallotRecord{TaskID: taskID, Ballot: deliberation.Ballot{Voter: voter, Ranking: []ids.ID{{1}}}}
	second := store.BallotRecord{TaskID: taskID, Ballot: deliberation.Ballot{Voter: voter, Ranking: []ids.ID{{2}}}}

	require.NoError(t, s.StoreBallot(ctx, first))
	require.NoError(t, s.StoreBallot(ctx, second))

	ballots, err := s.GetBallots(ctx, taskID)
	require.NoError(t, err)
	require.Len(t, ballots, 1)
	require.Equal(t, second.Ballot.Ranking, ballots[0].Ballot.Ranking)
}

func TestAppendDeliberationMessageDedupsByMessageID(t *testing.T) {
	s := New()
	ctx := context.Background()
	taskID := ids.GenerateID()
	env := &protocol.Envelope{MessageID: ids.GenerateID(), TaskID: taskID, Kind: protocol.KindProposalCommit}

	require.NoError(t, s.AppendDeliberationMessage(ctx, taskID, env))
	require.NoError(t, s.AppendDeliberationMessage(ctx, taskID, env))

	msgs, err := s.GetDeliberationMessages(ctx, taskID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
}

func TestStoreIRVRoundUpsertsByRoundNumber(t *testing.T) {
	s := New()
	ctx := context.Background()
	taskID := ids.GenerateID()

	require.NoError(t, s.StoreIRVRound(ctx, taskID, deliberation.IRVRound{RoundNumber: 1, Eliminated: ids.ID{9}}))
	require.NoError(t, s.StoreIRVRound(ctx, taskID, deliberation.IRVRound{RoundNumber: 1, Eliminated: ids.ID{8}}))
	require.NoError(t, s.StoreIRVRound(ctx, taskID, deliberation.IRVRound{RoundNumber: 2, Winner: ids.ID{7}}))

	rounds, err := s.GetIRVRounds(ctx, taskID)
	require.NoError(t, err)
	require.Len(t, rounds, 2)
	require.Equal(t, ids.ID{8}, rounds[0].Eliminated)
}

func TestGetArtifactReportsAbsence(t *testing.T) {
	s := New()
	_, ok, err := s.GetArtifact(context.Background(), ids.GenerateID())
	require.NoError(t, err)
	require.False(t, ok)
}
