package server

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/npezzotti/go-teamchat/internal/stats"
	"github.com/npezzotti/go-teamchat/internal/types"
)

// eventHandler handles one inbound event and returns what to emit. A nil
// plan with a nil error means nothing observable happens.
type eventHandler func(c *Client, data json.RawMessage) ([]emission, error)

var errMalformed = errors.New("malformed payload")

func (cs *ChatServer) eventHandlers() map[string]eventHandler {
	return map[string]eventHandler{
		EventUserJoin:      cs.handlePresence(true),
		EventUserLeave:     cs.handlePresence(false),
		EventChannelOpen:   cs.handleChannelOpen,
		EventConvoOpen:     cs.handleConvoOpen,
		EventMessage:       cs.handleMessage,
		EventThreadMessage: cs.handleThreadMessage,
		EventMessageView:   cs.handleMessageView,
		EventReaction:      cs.handleReaction,
		EventJoinRoom:      cs.handleJoinRoom,
		EventOffer:         cs.handleOffer,
		EventAnswer:        cs.handleAnswer,
		EventICECandidate:  cs.handleICECandidate,
		EventRoomLeave:     cs.handleRoomLeave,
	}
}

// handle runs the handler for msg and delivers its plan. Failures are
// counted and logged but never reported to the client.
func (cs *ChatServer) handle(c *Client, msg *ClientMessage) {
	cs.stats.Incr(stats.EventsReceived)
	log := c.log.With("event", msg.Event)

	h, ok := cs.handlers[msg.Event]
	if !ok {
		cs.stats.Incr(stats.EventsIgnored)
		log.Debug("unknown event")
		return
	}

	plan, err := h(c, msg.Data)
	switch {
	case err == nil:
	case errors.Is(err, errMalformed):
		cs.stats.Incr(stats.EventsMalformed)
		log.Warn("dropping event", "error", err)
		return
	case errors.Is(err, ErrNotFound):
		cs.stats.Incr(stats.EventsIgnored)
		log.Debug("target not found")
		return
	default:
		cs.stats.Incr(stats.EventsFailed)
		log.Error("handle event", "error", err)
		return
	}

	cs.deliver(c, plan)
}

// decodePayload unmarshals data into v and validates it.
func (cs *ChatServer) decodePayload(data json.RawMessage, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", errMalformed, err)
	}
	if err := cs.validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", errMalformed, err)
	}
	return nil
}

func (cs *ChatServer) handlePresence(joined bool) eventHandler {
	return func(c *Client, data json.RawMessage) ([]emission, error) {
		var p presencePayload
		if err := cs.decodePayload(data, &p); err != nil {
			return nil, err
		}

		if joined {
			c.bindUser(p.Id)
			cs.registry.Join(c, p.Id)
		} else {
			cs.registry.Leave(c, p.Id)
		}

		if err := cs.presence.SetOnline(cs.ctx, p.Id, p.IsOnline); err != nil {
			return nil, err
		}

		return planPresence(joined, p.Id, p.IsOnline), nil
	}
}

func (cs *ChatServer) handleChannelOpen(c *Client, data json.RawMessage) ([]emission, error) {
	var p openPayload
	if err := cs.decodePayload(data, &p); err != nil {
		return nil, err
	}
	if p.Id == "" {
		return nil, nil
	}

	cs.registry.Join(c, p.Id)
	ch, err := cs.engine.OpenChannel(cs.ctx, p.Id, p.UserId)
	if err != nil {
		return nil, err
	}

	return planChannelOpened(ch), nil
}

func (cs *ChatServer) handleConvoOpen(c *Client, data json.RawMessage) ([]emission, error) {
	var p openPayload
	if err := cs.decodePayload(data, &p); err != nil {
		return nil, err
	}
	if p.Id == "" {
		return nil, nil
	}

	cs.registry.Join(c, p.Id)
	conv, err := cs.engine.OpenConversation(cs.ctx, p.Id, p.UserId)
	if err != nil {
		return nil, err
	}

	return planConversationOpened(conv), nil
}

func (cs *ChatServer) handleMessage(c *Client, data json.RawMessage) ([]emission, error) {
	var p messagePayload
	if err := cs.decodePayload(data, &p); err != nil {
		return nil, err
	}

	target := p.target()
	cs.registry.Join(c, target.Id)

	res, err := cs.engine.PostMessage(cs.ctx, PostMessageParams{
		Target:        target,
		Organisation:  p.Organisation,
		SenderId:      p.Message.Sender,
		Content:       p.Message.Content,
		Collaborators: p.Collaborators,
		IsSelf:        p.IsSelf,
		HasNotOpen:    p.HasNotOpen,
	})
	if err != nil {
		return nil, err
	}
	cs.stats.Incr(stats.MessagesPosted)

	return planMessage(&p, res), nil
}

func (cs *ChatServer) handleThreadMessage(c *Client, data json.RawMessage) ([]emission, error) {
	var p threadMessagePayload
	if err := cs.decodePayload(data, &p); err != nil {
		return nil, err
	}

	cs.registry.Join(c, p.MessageId)

	res, err := cs.engine.PostThreadReply(cs.ctx, ThreadReplyParams{
		MessageId: p.MessageId,
		UserId:    p.UserId,
		SenderId:  p.Message.Sender,
		Content:   p.Message.Content,
	})
	if err != nil {
		return nil, err
	}
	if res.Parent == nil {
		cs.stats.Incr(stats.EventsFailed)
	}

	return planThreadReply(p.MessageId, res), nil
}

func (cs *ChatServer) handleMessageView(c *Client, data json.RawMessage) ([]emission, error) {
	var messageId string
	if err := json.Unmarshal(data, &messageId); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformed, err)
	}
	if err := cs.validate.Var(messageId, "required"); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformed, err)
	}

	changed, err := cs.engine.MarkRead(cs.ctx, messageId)
	if err != nil {
		return nil, err
	}

	return planMessageView(messageId, changed), nil
}

func (cs *ChatServer) handleReaction(c *Client, data json.RawMessage) ([]emission, error) {
	var p reactionPayload
	if err := cs.decodePayload(data, &p); err != nil {
		return nil, err
	}

	res, err := cs.engine.ToggleReaction(cs.ctx, types.EntityKindOf(p.IsThread), p.Id, p.Emoji, p.UserId)
	if err != nil {
		return nil, err
	}

	return planReaction(res), nil
}

func (cs *ChatServer) handleJoinRoom(c *Client, data json.RawMessage) ([]emission, error) {
	var p signalRoomPayload
	if err := cs.decodePayload(data, &p); err != nil {
		return nil, err
	}

	return cs.relay.JoinRoom(c, p), nil
}

func (cs *ChatServer) handleRoomLeave(c *Client, data json.RawMessage) ([]emission, error) {
	var p signalRoomPayload
	if err := cs.decodePayload(data, &p); err != nil {
		return nil, err
	}

	return cs.relay.RoomLeave(c, p), nil
}

func (cs *ChatServer) handleOffer(c *Client, data json.RawMessage) ([]emission, error) {
	var p offerPayload
	if err := cs.decodePayload(data, &p); err != nil {
		return nil, err
	}

	plan, err := cs.relay.Offer(c, p)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformed, err)
	}
	return plan, nil
}

func (cs *ChatServer) handleAnswer(c *Client, data json.RawMessage) ([]emission, error) {
	var p answerPayload
	if err := cs.decodePayload(data, &p); err != nil {
		return nil, err
	}

	plan, err := cs.relay.Answer(c, p)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformed, err)
	}
	return plan, nil
}

func (cs *ChatServer) handleICECandidate(c *Client, data json.RawMessage) ([]emission, error) {
	var p candidatePayload
	if err := cs.decodePayload(data, &p); err != nil {
		return nil, err
	}

	return cs.relay.ICECandidate(c, p), nil
}
