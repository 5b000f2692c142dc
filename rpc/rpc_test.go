package rpc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/wws/board"
	"github.com/luxfi/wws/config"
	"github.com/luxfi/wws/holon"
	"github.com/luxfi/wws/identity"
	"github.com/luxfi/wws/ids"
	"github.com/luxfi/wws/metrics"
	"github.com/luxfi/wws/oracle"
	"github.com/luxfi/wws/protocol"
	"github.com/luxfi/wws/store/memstore"
	"github.com/luxfi/wws/wwslog"
)

func soloFormer(ctx context.Context, taskID ids.ID, invite protocol.BoardInvite, candidatePool []ids.NodeID) (*board.Board, error) {
	return &board.Board{TaskID: taskID, State: board.StateActive}, nil
}

func TestInjectThenQueryRoundTrip(t *testing.T) {
	kp, err := identity.GenerateKeyPair()
	require.NoError(t, err)
	ident := identity.New(kp, identity.NewStaticResolver(nil))

	st := memstore.New()
	cfg := config.Local()
	sup := holon.NewSupervisor(holon.Deps{
		Log:       wwslog.NoOp(),
		Metrics:   metrics.NoOp(),
		Store:     st,
		Oracle:    &oracle.DeterministicStub{},
		Config:    cfg,
		FormBoard: soloFormer,
		Now:       func() time.Time { return time.Unix(0, 0) },
	})

	conn := NewConnector(sup, st, ident)
	artifact, err := conn.Inject(context.Background(), "write a haiku", nil, 0.1, nil)
	require.NoError(t, err)

	status, err := conn.GetBoardStatus(context.Background(), artifact.TaskID)
	require.NoError(t, err)
	require.Equal(t, "done", status.State)

	task, gotArtifact, err := conn.GetTask(context.Background(), artifact.TaskID)
	require.NoError(t, err)
	require.Equal(t, "write a haiku", task.Description)
	require.Equal(t, artifact.ArtifactID, gotArtifact.ArtifactID)
}

func TestGetBoardStatusErrorsForUnknownTask(t *testing.T) {
	kp, err := identity.GenerateKeyPair()
	require.NoError(t, err)
	ident := identity.New(kp, identity.NewStaticResolver(nil))
	sup := holon.NewSupervisor(holon.Deps{Log: wwslog.NoOp(), Metrics: metrics.NoOp(), Store: memstore.New()})
	conn := NewConnector(sup, memstore.New(), ident)

	_, err = conn.GetBoardStatus(context.Background(), ids.GenerateID())
	require.Error(t, err)
}
