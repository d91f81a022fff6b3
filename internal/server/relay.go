package server

import (
	"fmt"
	"log/slog"

	"github.com/npezzotti/go-teamchat/internal/stats"
	"github.com/pion/webrtc/v4"
)

// Relay forwards call-setup payloads between users. It never persists
// anything and addresses every payload by user identity.
type Relay struct {
	registry *Registry
	log      *slog.Logger
	stats    stats.StatsProvider
}

func NewRelay(registry *Registry, log *slog.Logger, stats stats.StatsProvider) *Relay {
	return &Relay{
		registry: registry,
		log:      log,
		stats:    stats,
	}
}

// JoinRoom binds userId to c for signaling, joins c to the call room and
// tells the other party.
func (r *Relay) JoinRoom(c *Client, p signalRoomPayload) []emission {
	c.bindUser(p.UserId)
	r.registry.RegisterSignal(p.UserId, c)
	r.registry.Join(c, p.RoomId)

	return []emission{
		toRoomOthers(p.RoomId, EventJoinRoom, joinRoomEvent{RoomId: p.RoomId, OtherUserId: p.UserId}),
	}
}

// RoomLeave drops the signaling registration of userId and tells the
// remaining party.
func (r *Relay) RoomLeave(c *Client, p signalRoomPayload) []emission {
	r.registry.UnregisterSignal(p.UserId, c)

	plan := []emission{
		toRoomOthers(p.RoomId, EventRoomLeave, roomLeaveEvent{RoomId: p.RoomId, LeftUserId: p.UserId}),
	}
	r.registry.Leave(c, p.RoomId)

	return plan
}

func (r *Relay) Offer(c *Client, p offerPayload) ([]emission, error) {
	if p.Offer.Type != webrtc.SDPTypeOffer {
		return nil, fmt.Errorf("unexpected sdp type %q for offer", p.Offer.Type)
	}

	return r.route(p.TargetUserId, EventOffer, offerEvent{Offer: p.Offer, SenderUserId: c.UserId()}), nil
}

func (r *Relay) Answer(c *Client, p answerPayload) ([]emission, error) {
	if p.Answer.Type != webrtc.SDPTypeAnswer && p.Answer.Type != webrtc.SDPTypePranswer {
		return nil, fmt.Errorf("unexpected sdp type %q for answer", p.Answer.Type)
	}

	return r.route(p.TargetUserId, EventAnswer, answerEvent{Answer: p.Answer, SenderUserId: c.UserId()}), nil
}

func (r *Relay) ICECandidate(c *Client, p candidatePayload) []emission {
	return r.route(p.TargetUserId, EventICECandidate, candidateEvent{Candidate: p.Candidate, SenderUserId: c.UserId()})
}

// route addresses the payload to the connection registered for
// targetUserId. An unknown target drops the payload.
func (r *Relay) route(targetUserId, event string, data any) []emission {
	target, ok := r.registry.LookupSignal(targetUserId)
	if !ok {
		r.stats.Incr(stats.SignalsDropped)
		r.log.Debug("signal target not connected", "event", event, "user", targetUserId)
		return nil
	}

	r.stats.Incr(stats.SignalsRelayed)
	return []emission{toClient(target, event, data)}
}
