package server

import (
	"github.com/npezzotti/go-teamchat/internal/types"
)

type scope int

const (
	// scopeRoom reaches every connection joined to the room.
	scopeRoom scope = iota
	// scopeGlobal reaches every connection.
	scopeGlobal
	// scopeOthers reaches every connection except the originating one.
	scopeOthers
	// scopeOrigin reaches only the originating connection.
	scopeOrigin
	// scopeRoomOthers reaches the room except the originating connection.
	scopeRoomOthers
	// scopeClient reaches one addressed connection.
	scopeClient
)

func (s scope) String() string {
	switch s {
	case scopeRoom:
		return "room"
	case scopeGlobal:
		return "global"
	case scopeOthers:
		return "others"
	case scopeOrigin:
		return "origin"
	case scopeRoomOthers:
		return "room-others"
	case scopeClient:
		return "client"
	default:
		return "unknown"
	}
}

// emission is one outbound event and the connections it is meant for.
// Plans are delivered in order, so the primary event of a mutation always
// precedes the updates that reference it.
type emission struct {
	scope scope
	room  string
	to    *Client
	msg   *ServerMessage
}

func toRoom(room, event string, data any) emission {
	return emission{scope: scopeRoom, room: room, msg: newServerMessage(event, data)}
}

func toAll(event string, data any) emission {
	return emission{scope: scopeGlobal, msg: newServerMessage(event, data)}
}

func toOthers(event string, data any) emission {
	return emission{scope: scopeOthers, msg: newServerMessage(event, data)}
}

func toOrigin(event string, data any) emission {
	return emission{scope: scopeOrigin, msg: newServerMessage(event, data)}
}

func toRoomOthers(room, event string, data any) emission {
	return emission{scope: scopeRoomOthers, room: room, msg: newServerMessage(event, data)}
}

func toClient(c *Client, event string, data any) emission {
	return emission{scope: scopeClient, to: c, msg: newServerMessage(event, data)}
}

// planPresence announces a join or leave to every connection. isOnline is
// echoed as reported by the client.
func planPresence(joined bool, userId string, isOnline bool) []emission {
	event := EventUserLeave
	if joined {
		event = EventUserJoin
	}

	return []emission{toAll(event, presenceEvent{Id: userId, IsOnline: isOnline})}
}

func planChannelOpened(ch *types.Channel) []emission {
	if ch == nil {
		return nil
	}
	return []emission{toRoom(ch.Id, EventChannelUpdated, ch)}
}

func planConversationOpened(c *types.Conversation) []emission {
	if c == nil {
		return nil
	}
	return []emission{toRoom(c.Id, EventConvoUpdated, c)}
}

// planMessage emits the new message to its room, then the refreshed target
// record, then a notification for everyone else.
func planMessage(p *messagePayload, res PostMessageResult) []emission {
	target := p.target()

	switch target.Kind {
	case types.TargetChannel:
		plan := []emission{
			toRoom(target.Id, EventMessage, newMessageEvent{
				NewMessage:   res.Message,
				Organisation: p.Organisation,
			}),
		}
		if res.Channel != nil {
			plan = append(plan, toRoom(target.Id, EventChannelUpdated, res.Channel))
		}
		return append(plan, toOthers(EventNotification, channelNotification{
			ChannelName:   p.ChannelName,
			ChannelId:     target.Id,
			Collaborators: p.Collaborators,
			NewMessage:    res.Message,
			Organisation:  p.Organisation,
		}))
	default:
		plan := []emission{
			toRoom(target.Id, EventMessage, newMessageEvent{
				NewMessage:    res.Message,
				Organisation:  p.Organisation,
				Collaborators: p.Collaborators,
			}),
		}
		if res.Conversation != nil {
			plan = append(plan, toRoom(target.Id, EventConvoUpdated, res.Conversation))
		}
		return append(plan, toOthers(EventNotification, conversationNotification{
			Collaborators:  p.Collaborators,
			Organisation:   p.Organisation,
			NewMessage:     res.Message,
			ConversationId: target.Id,
		}))
	}
}

// planThreadReply emits the reply to the thread room, then the refreshed
// parent.
func planThreadReply(parentId string, res ThreadReplyResult) []emission {
	plan := []emission{
		toRoom(parentId, EventThreadMessage, newMessageEvent{NewMessage: res.Reply}),
	}
	if res.Parent != nil {
		plan = append(plan, toRoom(parentId, EventMessageUpdated, messageUpdatedEvent{
			Id:      parentId,
			Message: res.Parent,
		}))
	}

	return plan
}

// planReaction answers only the connection that reacted.
func planReaction(res ReactionResult) []emission {
	isThread := res.Kind == types.EntityThreadReply
	return []emission{
		toOrigin(EventMessageUpdated, messageUpdatedEvent{
			Id:       res.Id,
			Message:  res.Resolved(),
			IsThread: &isThread,
		}),
	}
}

func planMessageView(messageId string, changed bool) []emission {
	if !changed {
		return nil
	}
	return []emission{toAll(EventMessageView, messageId)}
}
