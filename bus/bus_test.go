package bus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/wws/ids"
	"github.com/luxfi/wws/protocol"
)

func recvOrTimeout(t *testing.T, ch <-chan *protocol.Envelope) *protocol.Envelope {
	t.Helper()
	select {
	case env := <-ch:
		return env
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for envelope")
		return nil
	}
}

func TestPublishFansOutToAllSubscribers(t *testing.T) {
	b := NewLocal()
	chA, unsubA := b.Subscribe("cluster-1")
	defer unsubA()
	chB, unsubB := b.Subscribe("cluster-1")
	defer unsubB()

	env := &protocol.Envelope{MessageID: ids.GenerateID(), Kind: protocol.KindBoardInvite}
	require.NoError(t, b.Publish("cluster-1", env))

	require.Equal(t, env.MessageID, recvOrTimeout(t, chA).MessageID)
	require.Equal(t, env.MessageID, recvOrTimeout(t, chB).MessageID)
}

func TestPublishDoesNotCrossTopics(t *testing.T) {
	b := NewLocal()
	ch, unsub := b.Subscribe("cluster-2")
	defer unsub()

	env := &protocol.Envelope{MessageID: ids.GenerateID(), Kind: protocol.KindBoardInvite}
	require.NoError(t, b.Publish("cluster-1", env))

	select {
	case <-ch:
		t.Fatal("received a message published to a different topic")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSendDeliversOnlyToRecipientInbox(t *testing.T) {
	b := NewLocal()
	alice := ids.GenerateID()
	bob := ids.GenerateID()
	var aliceDID, bobDID ids.NodeID
	copy(aliceDID[:], alice[:])
	copy(bobDID[:], bob[:])

	aliceCh, unsubA := b.Inbox(aliceDID)
	defer unsubA()
	bobCh, unsubB := b.Inbox(bobDID)
	defer unsubB()

	env := &protocol.Envelope{MessageID: ids.GenerateID(), Kind: protocol.KindVoteBallot}
	require.NoError(t, b.Send(aliceDID, env))

	require.Equal(t, env.MessageID, recvOrTimeout(t, aliceCh).MessageID)
	select {
	case <-bobCh:
		t.Fatal("bob's inbox received a message sent to alice")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDuplicateMessageIDIsDeliveredOnce(t *testing.T) {
	b := NewLocal()
	ch, unsub := b.Subscribe("cluster-1")
	defer unsub()

	env := &protocol.Envelope{MessageID: ids.GenerateID(), Kind: protocol.KindBoardInvite}
	require.NoError(t, b.Publish("cluster-1", env))
	require.NoError(t, b.Publish("cluster-1", env)) // at-least-once redelivery from the transport

	first := recvOrTimeout(t, ch)
	require.Equal(t, env.MessageID, first.MessageID)

	select {
	case <-ch:
		t.Fatal("duplicate message id delivered twice to the same subscriber")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := NewLocal()
	ch, unsub := b.Subscribe("cluster-1")
	unsub()

	_, ok := <-ch
	require.False(t, ok, "channel should be closed after unsubscribe")
}

func TestPerSenderFIFOOrderPreserved(t *testing.T) {
	b := NewLocal()
	ch, unsub := b.Subscribe("cluster-1")
	defer unsub()

	var msgIDs []ids.ID
	for i := 0; i < 5; i++ {
		env := &protocol.Envelope{MessageID: ids.GenerateID(), Kind: protocol.KindBoardAccept}
		msgIDs = append(msgIDs, env.MessageID)
		require.NoError(t, b.Publish("cluster-1", env))
	}

	for _, want := range msgIDs {
		got := recvOrTimeout(t, ch)
		require.Equal(t, want, got.MessageID)
	}
}

func TestClockSkewToleranceDropsStaleBoardInvite(t *testing.T) {
	fixedNow := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	b := NewLocalWithClockSkewTolerance(time.Second, func() time.Time { return fixedNow })
	ch, unsub := b.Subscribe("cluster-1")
	defer unsub()

	stale := &protocol.Envelope{
		MessageID:          ids.GenerateID(),
		Kind:               protocol.KindBoardInvite,
		PayloadBoardInvite: &protocol.BoardInvite{IssuedAt: fixedNow.Add(-time.Hour)},
	}
	require.NoError(t, b.Publish("cluster-1", stale))

	select {
	case <-ch:
		t.Fatal("stale board.invite should have been dropped by the clock-skew check")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestClockSkewToleranceAcceptsFreshBoardInvite(t *testing.T) {
	fixedNow := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	b := NewLocalWithClockSkewTolerance(time.Second, func() time.Time { return fixedNow })
	ch, unsub := b.Subscribe("cluster-1")
	defer unsub()

	fresh := &protocol.Envelope{
		MessageID:          ids.GenerateID(),
		Kind:               protocol.KindBoardInvite,
		PayloadBoardInvite: &protocol.BoardInvite{IssuedAt: fixedNow},
	}
	require.NoError(t, b.Publish("cluster-1", fresh))
	require.Equal(t, fresh.MessageID, recvOrTimeout(t, ch).MessageID)
}

func TestNewLocalDisablesClockSkewCheckByDefault(t *testing.T) {
	b := NewLocal()
	ch, unsub := b.Subscribe("cluster-1")
	defer unsub()

	stale := &protocol.Envelope{
		MessageID:          ids.GenerateID(),
		Kind:               protocol.KindBoardInvite,
		PayloadBoardInvite: &protocol.BoardInvite{IssuedAt: time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	require.NoError(t, b.Publish("cluster-1", stale))
	require.Equal(t, stale.MessageID, recvOrTimeout(t, ch).MessageID)
}
