package server

import (
	"testing"

	"github.com/npezzotti/go-teamchat/internal/stats"
	"github.com/npezzotti/go-teamchat/internal/testutil"
	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRelay(t *testing.T) (*Relay, *Registry, *stats.MockStatsUpdater) {
	su := &stats.MockStatsUpdater{}
	registry := NewRegistry(testutil.TestLogger(t))
	return NewRelay(registry, testutil.TestLogger(t), su), registry, su
}

func TestRelayJoinAndLeave(t *testing.T) {
	relay, registry, _ := newTestRelay(t)
	alice := newTestClient(t, "c1", "")
	bob := newTestClient(t, "c2", "")

	relay.JoinRoom(bob, signalRoomPayload{RoomId: "call", UserId: "bob"})
	plan := relay.JoinRoom(alice, signalRoomPayload{RoomId: "call", UserId: "alice"})

	require.Equal(t, []planStep{{scopeRoomOthers, "call", EventJoinRoom}}, steps(plan))
	assert.Equal(t, joinRoomEvent{RoomId: "call", OtherUserId: "alice"}, plan[0].msg.Data)
	assert.Equal(t, "alice", alice.UserId(), "expected join to bind the identity")
	assert.ElementsMatch(t, []*Client{alice, bob}, registry.MembersOf("call"))

	c, ok := registry.LookupSignal("alice")
	assert.True(t, ok)
	assert.Same(t, alice, c)

	plan = relay.RoomLeave(alice, signalRoomPayload{RoomId: "call", UserId: "alice"})
	require.Equal(t, []planStep{{scopeRoomOthers, "call", EventRoomLeave}}, steps(plan))
	assert.Equal(t, roomLeaveEvent{RoomId: "call", LeftUserId: "alice"}, plan[0].msg.Data)

	_, ok = registry.LookupSignal("alice")
	assert.False(t, ok)
	assert.Equal(t, []*Client{bob}, registry.MembersOf("call"))
}

func TestRelayOffer(t *testing.T) {
	offer := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "v=0"}

	t.Run("routes to the target with the sender identity", func(t *testing.T) {
		relay, registry, su := newTestRelay(t)
		su.On("Incr", stats.SignalsRelayed).Once()
		defer su.AssertExpectations(t)

		caller := newTestClient(t, "c1", "alice")
		callee := newTestClient(t, "c2", "bob")
		registry.RegisterSignal("bob", callee)

		plan, err := relay.Offer(caller, offerPayload{Offer: offer, TargetUserId: "bob"})
		require.NoError(t, err)
		require.Len(t, plan, 1)
		assert.Equal(t, scopeClient, plan[0].scope)
		assert.Same(t, callee, plan[0].to)
		assert.Equal(t, offerEvent{Offer: offer, SenderUserId: "alice"}, plan[0].msg.Data)
	})

	t.Run("unknown target is dropped", func(t *testing.T) {
		relay, _, su := newTestRelay(t)
		su.On("Incr", stats.SignalsDropped).Once()
		defer su.AssertExpectations(t)

		plan, err := relay.Offer(newTestClient(t, "c1", "alice"), offerPayload{Offer: offer, TargetUserId: "nobody"})
		assert.NoError(t, err)
		assert.Empty(t, plan)
	})

	t.Run("wrong sdp type", func(t *testing.T) {
		relay, _, _ := newTestRelay(t)

		_, err := relay.Offer(newTestClient(t, "c1", "alice"), offerPayload{
			Offer:        webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: "v=0"},
			TargetUserId: "bob",
		})
		assert.Error(t, err)
	})
}

func TestRelayAnswerIsTargeted(t *testing.T) {
	relay, registry, su := newTestRelay(t)
	su.On("Incr", stats.SignalsRelayed).Once()
	defer su.AssertExpectations(t)

	caller := newTestClient(t, "c1", "alice")
	callee := newTestClient(t, "c2", "bob")
	registry.RegisterSignal("alice", caller)
	registry.RegisterSignal("bob", callee)

	answer := webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: "v=0"}
	plan, err := relay.Answer(callee, answerPayload{Answer: answer, TargetUserId: "alice"})
	require.NoError(t, err)
	require.Len(t, plan, 1)
	assert.Same(t, caller, plan[0].to)
	assert.Equal(t, answerEvent{Answer: answer, SenderUserId: "bob"}, plan[0].msg.Data)

	_, err = relay.Answer(callee, answerPayload{
		Answer:       webrtc.SessionDescription{Type: webrtc.SDPTypeOffer},
		TargetUserId: "alice",
	})
	assert.Error(t, err)
}

func TestRelayICECandidate(t *testing.T) {
	relay, registry, su := newTestRelay(t)
	su.On("Incr", stats.SignalsRelayed).Once()
	su.On("Incr", stats.SignalsDropped).Once()
	defer su.AssertExpectations(t)

	caller := newTestClient(t, "c1", "alice")
	callee := newTestClient(t, "c2", "bob")
	registry.RegisterSignal("bob", callee)

	mid := "0"
	idx := uint16(0)
	candidate := webrtc.ICECandidateInit{Candidate: "candidate:1 1 udp 2122260223 10.0.0.1 54321 typ host", SDPMid: &mid, SDPMLineIndex: &idx}

	plan := relay.ICECandidate(caller, candidatePayload{Candidate: candidate, TargetUserId: "bob"})
	require.Len(t, plan, 1)
	assert.Same(t, callee, plan[0].to)
	assert.Equal(t, candidateEvent{Candidate: candidate, SenderUserId: "alice"}, plan[0].msg.Data)

	registry.OnDisconnect(callee)
	plan = relay.ICECandidate(caller, candidatePayload{Candidate: candidate, TargetUserId: "bob"})
	assert.Empty(t, plan, "expected candidate for a closed connection to be dropped")
}
