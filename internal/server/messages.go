package server

import (
	"encoding/json"
	"time"

	"github.com/npezzotti/go-teamchat/internal/types"
	"github.com/pion/webrtc/v4"
)

// Event names exchanged with clients.
const (
	EventUserJoin       = "user-join"
	EventUserLeave      = "user-leave"
	EventChannelOpen    = "channel-open"
	EventConvoOpen      = "convo-open"
	EventChannelUpdated = "channel-updated"
	EventConvoUpdated   = "convo-updated"
	EventMessage        = "message"
	EventThreadMessage  = "thread-message"
	EventMessageUpdated = "message-updated"
	EventMessageView    = "message-view"
	EventNotification   = "notification"
	EventReaction       = "reaction"
	EventJoinRoom       = "join-room"
	EventOffer          = "offer"
	EventAnswer         = "answer"
	EventICECandidate   = "ice-candidate"
	EventRoomLeave      = "room-leave"
)

// ClientMessage is an inbound frame. Data is decoded by the handler
// registered for Event.
type ClientMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// ServerMessage is an outbound frame.
type ServerMessage struct {
	Event     string    `json:"event"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}

func newServerMessage(event string, data any) *ServerMessage {
	return &ServerMessage{
		Event:     event,
		Data:      data,
		Timestamp: Now(),
	}
}

// Inbound payloads.

type presencePayload struct {
	Id       string `json:"id" validate:"required"`
	IsOnline bool   `json:"isOnline"`
}

type openPayload struct {
	Id     string `json:"id"`
	UserId string `json:"userId" validate:"required_with=Id"`
}

type messageBody struct {
	Sender  string `json:"sender" validate:"required"`
	Content string `json:"content"`
}

type messagePayload struct {
	ChannelId      string      `json:"channelId" validate:"required_without=ConversationId"`
	ChannelName    string      `json:"channelName"`
	ConversationId string      `json:"conversationId" validate:"required_without=ChannelId"`
	Collaborators  []string    `json:"collaborators"`
	IsSelf         bool        `json:"isSelf"`
	Message        messageBody `json:"message"`
	Organisation   string      `json:"organisation"`
	HasNotOpen     []string    `json:"hasNotOpen"`
}

// target resolves the destination once. A channel id wins when both are
// present.
func (p *messagePayload) target() types.Target {
	if p.ChannelId != "" {
		return types.ChannelTarget(p.ChannelId)
	}
	return types.ConversationTarget(p.ConversationId)
}

// replyBody is messageBody for thread replies. The sender is optional and
// defaults to the replying user.
type replyBody struct {
	Sender  string `json:"sender"`
	Content string `json:"content"`
}

type threadMessagePayload struct {
	UserId    string    `json:"userId" validate:"required"`
	MessageId string    `json:"messageId" validate:"required"`
	Message   replyBody `json:"message"`
}

type reactionPayload struct {
	Emoji    string `json:"emoji" validate:"required"`
	Id       string `json:"id" validate:"required"`
	IsThread bool   `json:"isThread"`
	UserId   string `json:"userId" validate:"required"`
}

type signalRoomPayload struct {
	RoomId string `json:"roomId" validate:"required"`
	UserId string `json:"userId" validate:"required"`
}

type offerPayload struct {
	Offer        webrtc.SessionDescription `json:"offer"`
	TargetUserId string                    `json:"targetUserId" validate:"required"`
}

type answerPayload struct {
	Answer       webrtc.SessionDescription `json:"answer"`
	TargetUserId string                    `json:"targetUserId" validate:"required"`
}

type candidatePayload struct {
	Candidate    webrtc.ICECandidateInit `json:"candidate"`
	TargetUserId string                  `json:"targetUserId" validate:"required"`
}

// Outbound payloads.

type presenceEvent struct {
	Id       string `json:"id"`
	IsOnline bool   `json:"isOnline"`
}

type newMessageEvent struct {
	NewMessage    any      `json:"newMessage"`
	Organisation  string   `json:"organisation,omitempty"`
	Collaborators []string `json:"collaborators,omitempty"`
}

type messageUpdatedEvent struct {
	Id       string `json:"id"`
	Message  any    `json:"message"`
	IsThread *bool  `json:"isThread,omitempty"`
}

type channelNotification struct {
	ChannelName   string        `json:"channelName"`
	ChannelId     string        `json:"channelId"`
	Collaborators []string      `json:"collaborators"`
	NewMessage    types.Message `json:"newMessage"`
	Organisation  string        `json:"organisation"`
}

type conversationNotification struct {
	Collaborators  []string      `json:"collaborators"`
	Organisation   string        `json:"organisation"`
	NewMessage     types.Message `json:"newMessage"`
	ConversationId string        `json:"conversationId"`
}

type joinRoomEvent struct {
	RoomId      string `json:"roomId"`
	OtherUserId string `json:"otherUserId"`
}

type roomLeaveEvent struct {
	RoomId     string `json:"roomId"`
	LeftUserId string `json:"leftUserId"`
}

type offerEvent struct {
	Offer        webrtc.SessionDescription `json:"offer"`
	SenderUserId string                    `json:"senderUserId"`
}

type answerEvent struct {
	Answer       webrtc.SessionDescription `json:"answer"`
	SenderUserId string                    `json:"senderUserId"`
}

type candidateEvent struct {
	Candidate    webrtc.ICECandidateInit `json:"candidate"`
	SenderUserId string                  `json:"senderUserId"`
}
