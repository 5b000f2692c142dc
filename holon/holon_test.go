package holon

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/wws/board"
	"github.com/luxfi/wws/bus"
	"github.com/luxfi/wws/config"
	"github.com/luxfi/wws/identity"
	"github.com/luxfi/wws/ids"
	"github.com/luxfi/wws/metrics"
	"github.com/luxfi/wws/oracle"
	"github.com/luxfi/wws/protocol"
	"github.com/luxfi/wws/store/memstore"
	"github.com/luxfi/wws/wwslog"
)

func testDeps(t *testing.T, formBoard BoardFormer) Deps {
	t.Helper()
	cfg := config.Local()
	require.NoError(t, cfg.Validate())
	return Deps{
		Log:       wwslog.NoOp(),
		Metrics:   metrics.NoOp(),
		Bus:       bus.NewLocal(),
		Store:     memstore.New(),
		Oracle:    &oracle.DeterministicStub{},
		Config:    cfg,
		FormBoard: formBoard,
		Now:       func() time.Time { return time.Unix(0, 0) },
	}
}

func soloFormer(ctx context.Context, taskID ids.ID, invite protocol.BoardInvite, candidatePool []ids.NodeID) (*board.Board, error) {
	return &board.Board{TaskID: taskID, State: board.StateActive}, nil
}

func TestRunSoloExecutionProducesLeafArtifact(t *testing.T) {
	chairKP, err := identity.GenerateKeyPair()
	require.NoError(t, err)
	chair := identity.New(chairKP, identity.NewStaticResolver(nil))

	sup := NewSupervisor(testDeps(t, soloFormer))
	artifact, err := sup.Run(context.Background(), TaskRequest{
		Description:         "Write a haiku about oceans",
		EstimatedComplexity: 0.1,
		Chair:               chair,
	})
	require.NoError(t, err)
	require.False(t, artifact.IsSynthesis)

	h, ok := sup.Arena().Get(artifact.TaskID)
	require.True(t, ok)
	require.Equal(t, StateDone, h.State)
	require.Empty(t, h.Members)
}

func fixedMembersFormer(members []board.Member) BoardFormer {
	return func(ctx context.Context, taskID ids.ID, invite protocol.BoardInvite, candidatePool []ids.NodeID) (*board.Board, error) {
		critic := members[0].DID
		return &board.Board{TaskID: taskID, Members: members, AdversarialCritic: critic, State: board.StateActive}, nil
	}
}

func TestRunFullDeliberationProducesArtifactAndIRVTrace(t *testing.T) {
	chairKP, err := identity.GenerateKeyPair()
	require.NoError(t, err)
	chair := identity.New(chairKP, identity.NewStaticResolver(nil))

	members := []board.Member{
		{DID: ids.NodeID{1}, ActiveTaskCount: 0, AffinityScore: 0.8},
		{DID: ids.NodeID{2}, ActiveTaskCount: 1, AffinityScore: 0.5},
		{DID: ids.NodeID{3}, ActiveTaskCount: 2, AffinityScore: 0.3},
	}

	deps := testDeps(t, fixedMembersFormer(members))
	sup := NewSupervisor(deps)

	artifact, err := sup.Run(context.Background(), TaskRequest{
		Description:         "plan a product launch",
		EstimatedComplexity: 0.1, // the default stub proposes no subtasks, so the winning plan executes directly
		Chair:               chair,
	})
	require.NoError(t, err)
	require.NotEmpty(t, artifact.ContentBytes)

	h, ok := sup.Arena().Get(artifact.TaskID)
	require.True(t, ok)
	require.Equal(t, StateDone, h.State)
	require.NotEqual(t, ids.Empty, h.WinningPlanID)

	rounds, err := deps.Store.GetIRVRounds(context.Background(), artifact.TaskID)
	require.NoError(t, err)
	require.NotEmpty(t, rounds)

	ballots, err := deps.Store.GetBallots(context.Background(), artifact.TaskID)
	require.NoError(t, err)
	require.Len(t, ballots, 3)
}

// highComplexityOracle forces every subtask a DeterministicStub proposes to
// read as maximally complex, so a recursion test doesn't depend on guessing
// which sha256 digest bytes happen to clear the complexity threshold.
type highComplexityOracle struct {
	oracle.DeterministicStub
}

func (o *highComplexityOracle) Propose(ctx context.Context, taskDescription string) (oracle.Plan, error) {
	plan, err := o.DeterministicStub.Propose(ctx, taskDescription)
	if err != nil {
		return plan, err
	}
	for i := range plan.Subtasks {
		plan.Subtasks[i].EstimatedComplexity = 1.0
	}
	return plan, nil
}

func TestRunRecursesIntoChildHolonAboveComplexityThreshold(t *testing.T) {
	chairKP, err := identity.GenerateKeyPair()
	require.NoError(t, err)
	chair := identity.New(chairKP, identity.NewStaticResolver(nil))

	members := []board.Member{
		{DID: ids.NodeID{1}, ActiveTaskCount: 0, AffinityScore: 0.8},
		{DID: ids.NodeID{2}, ActiveTaskCount: 1, AffinityScore: 0.5},
		{DID: ids.NodeID{3}, ActiveTaskCount: 2, AffinityScore: 0.3},
	}

	deps := testDeps(t, fixedMembersFormer(members))
	deps.Oracle = &highComplexityOracle{DeterministicStub: oracle.DeterministicStub{SubtasksPerPlan: 1}}
	sup := NewSupervisor(deps)

	artifact, err := sup.Run(context.Background(), TaskRequest{
		Description:         "plan a multi-region migration",
		EstimatedComplexity: 0.9,
		Chair:               chair,
	})
	require.NoError(t, err)
	require.NotEmpty(t, artifact.ContentBytes)

	h, ok := sup.Arena().Get(artifact.TaskID)
	require.True(t, ok)
	require.Equal(t, StateDone, h.State)
	require.NotEmpty(t, h.Children, "a subtask above the complexity threshold with enough members must spawn a child holon")

	child, ok := sup.Arena().Get(h.Children[0])
	require.True(t, ok)
	require.Equal(t, h.TaskID, child.ParentTaskID)
	require.Equal(t, h.Depth+1, child.Depth)
	require.Equal(t, StateDone, child.State)
}

func TestSelectExecutorPrefersLowestLoadThenAffinityThenDID(t *testing.T) {
	pool := []board.Member{
		{DID: ids.NodeID{3}, ActiveTaskCount: 1},
		{DID: ids.NodeID{1}, ActiveTaskCount: 0, AffinityScore: 0.2},
		{DID: ids.NodeID{2}, ActiveTaskCount: 0, AffinityScore: 0.9},
	}
	best, ok := selectExecutor(pool, nil)
	require.True(t, ok)
	require.Equal(t, ids.NodeID{2}, best.DID)
}

func TestSelectExecutorSkipsExcluded(t *testing.T) {
	pool := []board.Member{
		{DID: ids.NodeID{1}, ActiveTaskCount: 0},
		{DID: ids.NodeID{2}, ActiveTaskCount: 1},
	}
	excluded := map[ids.NodeID]bool{{1}: true}
	best, ok := selectExecutor(pool, excluded)
	require.True(t, ok)
	require.Equal(t, ids.NodeID{2}, best.DID)
}

func TestArenaAtMostOneHolonPerTaskID(t *testing.T) {
	a := NewArena()
	taskID := ids.GenerateID()
	a.Put(&Holon{TaskID: taskID, State: StateForming})
	a.Put(&Holon{TaskID: taskID, State: StateDone})

	h, ok := a.Get(taskID)
	require.True(t, ok)
	require.Equal(t, StateDone, h.State) // second Put replaces, never duplicates
}
