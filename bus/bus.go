// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package bus implements the coordination core's Message Bus Adapter:
// topic publish/subscribe for board formation broadcasts, and direct
// point-to-point send for ballots and private critiques. Delivery is
// at-least-once with dedup by message id and per-sender FIFO; it does not
// guarantee total order across senders, nor eventual delivery. A replayed
// board.invite whose IssuedAt has drifted too far from the receiving
// clock is dropped by NewLocalWithClockSkewTolerance; NewLocal's bare
// construction leaves that check disabled. Grounded on the teacher's
// networking/sender.Sender direct-send shape and utils/set for dedup
// bookkeeping.
package bus

import (
	"fmt"
	"sync"
	"time"

	"github.com/luxfi/wws/ids"
	"github.com/luxfi/wws/protocol"
	"github.com/luxfi/wws/utils/set"
)

// Bus is the two-primitive adapter every upper component depends on.
// Publish fans an envelope out to a topic's subscribers; Send delivers
// directly to one recipient. Both are best-effort: a torn-down subscriber
// or an unreachable recipient means the message is silently dropped, never
// surfaced as an error to the caller of Publish/Send itself.
type Bus interface {
	// Publish broadcasts env to every current subscriber of topic.
	Publish(topic string, env *protocol.Envelope) error
	// Send delivers env directly to one recipient's inbox.
	Send(to ids.NodeID, env *protocol.Envelope) error
	// Subscribe returns a channel of envelopes for topic and an unsubscribe
	// function. The channel is closed once unsubscribe is called.
	Subscribe(topic string) (<-chan *protocol.Envelope, func())
	// Inbox subscribes a new direct-send channel for a DID and returns it
	// with an unsubscribe function. Each call adds a separate subscriber;
	// every open inbox channel for that DID receives each envelope sent to it.
	Inbox(who ids.NodeID) (<-chan *protocol.Envelope, func())
}

const inboxBuffer = 256

// dedupWindow bounds the per-subscriber set of message ids seen, so a
// long-lived subscriber's dedup set cannot grow without bound; once the
// window is exceeded, the oldest ids beyond it are dropped, in insertion
// order. At-least-once delivery only
// needs a bounded recent-history window, not a permanent record.
const dedupWindow = 4096

type subscriber struct {
	ch   chan *protocol.Envelope
	seen set.Set[ids.ID]
	seq  []ids.ID // insertion order, to trim seen once it exceeds dedupWindow
	mu   sync.Mutex
}

func newSubscriber() *subscriber {
	return &subscriber{
		ch:   make(chan *protocol.Envelope, inboxBuffer),
		seen: set.NewSet[ids.ID](dedupWindow),
	}
}

// deliver enqueues env unless its message id was already delivered to this
// subscriber; it never blocks the publisher — a full subscriber channel
// drops the message, matching the adapter's "upper layers must tolerate
// drop" contract.
func (s *subscriber) deliver(env *protocol.Envelope) {
	s.mu.Lock()
	if s.seen.Contains(env.MessageID) {
		s.mu.Unlock()
		return
	}
	s.seen.Add(env.MessageID)
	s.seq = append(s.seq, env.MessageID)
	if len(s.seq) > dedupWindow {
		stale := s.seq[:len(s.seq)-dedupWindow]
		for _, id := range stale {
			s.seen.Remove(id)
		}
		s.seq = s.seq[len(s.seq)-dedupWindow:]
	}
	s.mu.Unlock()

	select {
	case s.ch <- env:
	default:
	}
}

// Local is an in-process Bus implementation: one Go process hosting many
// connectors over direct function calls rather than a network transport.
// Its topic/direct-send semantics are exactly what a networked adapter
// (e.g. one built over github.com/luxfi/p2p's topic primitives) must also
// provide, so upper-layer code written against Bus needs no change to run
// over a real transport.
type Local struct {
	mu        sync.Mutex
	topics    map[string]map[int]*subscriber
	inboxes   map[ids.NodeID]map[int]*subscriber
	nextSubID int

	// skewTolerance, when positive, rejects board.invite envelopes whose
	// embedded IssuedAt strays more than skewTolerance from now() — a zero
	// value (the NewLocal default) disables the check, which is what every
	// existing test wants: synthetic envelopes in tests rarely carry a
	// live IssuedAt.
	skewTolerance time.Duration
	now           func() time.Time
}

// NewLocal constructs an empty in-process bus with no clock-skew check.
func NewLocal() *Local {
	return &Local{
		topics:  make(map[string]map[int]*subscriber),
		inboxes: make(map[ids.NodeID]map[int]*subscriber),
	}
}

// NewLocalWithClockSkewTolerance constructs a bus that drops board.invite
// envelopes whose IssuedAt differs from now() by more than tolerance,
// bounding how stale a replayed invite can be before it is rejected.
func NewLocalWithClockSkewTolerance(tolerance time.Duration, now func() time.Time) *Local {
	b := NewLocal()
	b.skewTolerance = tolerance
	b.now = now
	return b
}

// withinSkew reports whether env passes the clock-skew check: always true
// when the check is disabled or env is not a timestamped board.invite.
func (b *Local) withinSkew(env *protocol.Envelope) bool {
	if b.skewTolerance <= 0 || env.Kind != protocol.KindBoardInvite || env.PayloadBoardInvite == nil {
		return true
	}
	drift := b.now().Sub(env.PayloadBoardInvite.IssuedAt)
	if drift < 0 {
		drift = -drift
	}
	return drift <= b.skewTolerance
}

// Publish implements Bus.
func (b *Local) Publish(topic string, env *protocol.Envelope) error {
	if env == nil {
		return fmt.Errorf("bus: publish nil envelope")
	}
	if !b.withinSkew(env) {
		return nil
	}
	b.mu.Lock()
	subs := make([]*subscriber, 0, len(b.topics[topic]))
	for _, s := range b.topics[topic] {
		subs = append(subs, s)
	}
	b.mu.Unlock()

	for _, s := range subs {
		s.deliver(env)
	}
	return nil
}

// Send implements Bus.
func (b *Local) Send(to ids.NodeID, env *protocol.Envelope) error {
	if env == nil {
		return fmt.Errorf("bus: send nil envelope")
	}
	if !b.withinSkew(env) {
		return nil
	}
	b.mu.Lock()
	subs := make([]*subscriber, 0, len(b.inboxes[to]))
	for _, s := range b.inboxes[to] {
		subs = append(subs, s)
	}
	b.mu.Unlock()

	for _, s := range subs {
		s.deliver(env)
	}
	return nil
}

// Subscribe implements Bus.
func (b *Local) Subscribe(topic string) (<-chan *protocol.Envelope, func()) {
	s := newSubscriber()

	b.mu.Lock()
	if b.topics[topic] == nil {
		b.topics[topic] = make(map[int]*subscriber)
	}
	id := b.nextSubID
	b.nextSubID++
	b.topics[topic][id] = s
	b.mu.Unlock()

	unsubscribe := func() {
		b.mu.Lock()
		delete(b.topics[topic], id)
		b.mu.Unlock()
		close(s.ch)
	}
	return s.ch, unsubscribe
}

// Inbox implements Bus.
func (b *Local) Inbox(who ids.NodeID) (<-chan *protocol.Envelope, func()) {
	s := newSubscriber()

	b.mu.Lock()
	if b.inboxes[who] == nil {
		b.inboxes[who] = make(map[int]*subscriber)
	}
	id := b.nextSubID
	b.nextSubID++
	b.inboxes[who][id] = s
	b.mu.Unlock()

	unsubscribe := func() {
		b.mu.Lock()
		delete(b.inboxes[who], id)
		b.mu.Unlock()
		close(s.ch)
	}
	return s.ch, unsubscribe
}
