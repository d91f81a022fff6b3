package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/npezzotti/go-teamchat/internal/cache"
	"github.com/npezzotti/go-teamchat/internal/database"
	"github.com/npezzotti/go-teamchat/internal/types"
)

// ErrNotFound is returned when the record a mutation targets does not
// exist. Handlers treat it as a silent no-op.
var ErrNotFound = errors.New("not found")

// Engine applies conversational mutations to the durable store.
type Engine struct {
	db     database.TeamChatRepository
	marker cache.FirstMessageMarker
	locks  *keyedMutex
	log    *slog.Logger
	now    func() time.Time
}

func NewEngine(db database.TeamChatRepository, marker cache.FirstMessageMarker, log *slog.Logger) *Engine {
	if marker == nil {
		marker = cache.Nop{}
	}

	return &Engine{
		db:     db,
		marker: marker,
		locks:  newKeyedMutex(),
		log:    log,
		now:    time.Now,
	}
}

func mapNotFound(err error) error {
	if errors.Is(err, database.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func docKey(kind types.EntityKind, id string) string {
	return kind.String() + ":" + id
}

// OpenChannel removes userId from the channel's hasNotOpen set. An empty
// channelId is a no-op and yields a nil channel.
func (e *Engine) OpenChannel(ctx context.Context, channelId, userId string) (*types.Channel, error) {
	if channelId == "" {
		return nil, nil
	}

	ch, err := e.db.OpenChannel(ctx, channelId, userId)
	if err != nil {
		return nil, mapNotFound(err)
	}

	return &ch, nil
}

// OpenConversation is OpenChannel for conversations.
func (e *Engine) OpenConversation(ctx context.Context, conversationId, userId string) (*types.Conversation, error) {
	if conversationId == "" {
		return nil, nil
	}

	c, err := e.db.OpenConversation(ctx, conversationId, userId)
	if err != nil {
		return nil, mapNotFound(err)
	}

	return &c, nil
}

type PostMessageParams struct {
	Target        types.Target
	Organisation  string
	SenderId      string
	Content       string
	Collaborators []string
	IsSelf        bool
	HasNotOpen    []string
}

// PostMessageResult holds the created message and the refreshed target.
// Channel or Conversation is nil when the hasNotOpen update failed.
type PostMessageResult struct {
	Message      types.Message
	Channel      *types.Channel
	Conversation *types.Conversation
}

// PostMessage creates a message on a channel or conversation. Failing to
// record the first message of the day is logged and ignored. Failing to
// create the message aborts the whole operation.
func (e *Engine) PostMessage(ctx context.Context, params PostMessageParams) (PostMessageResult, error) {
	now := e.now()
	e.ensureFirstMessage(ctx, params.Target, params.Organisation, now)

	msg, err := e.db.CreateMessage(ctx, database.CreateMessageParams{
		Target:        params.Target,
		Organisation:  params.Organisation,
		SenderId:      params.SenderId,
		Content:       params.Content,
		Collaborators: params.Collaborators,
		IsSelf:        params.IsSelf,
	})
	if err != nil {
		return PostMessageResult{}, fmt.Errorf("create message: %w", err)
	}

	res := PostMessageResult{Message: msg}

	switch params.Target.Kind {
	case types.TargetChannel:
		ch, err := e.db.UpdateChannelHasNotOpen(ctx, params.Target.Id, params.HasNotOpen)
		if err != nil {
			e.log.Error("update channel hasNotOpen", "room", params.Target.Id, "error", err)
			break
		}
		res.Channel = &ch
	case types.TargetConversation:
		c, err := e.db.UpdateConversationHasNotOpen(ctx, params.Target.Id, params.HasNotOpen)
		if err != nil {
			e.log.Error("update conversation hasNotOpen", "room", params.Target.Id, "error", err)
			break
		}
		res.Conversation = &c
	}

	return res, nil
}

// ensureFirstMessage records the first message of the day for target. The
// marker only lets later posts skip the insert; a claimed marker is released
// again when the insert fails so the next post retries it.
func (e *Engine) ensureFirstMessage(ctx context.Context, target types.Target, organisation string, now time.Time) {
	claimed, err := e.marker.MarkFirstMessage(ctx, target, now)
	if err != nil {
		e.log.Warn("first message marker", "room", target.Id, "error", err)
	} else if !claimed {
		return
	}

	created, err := e.db.CreateFirstMessage(ctx, database.FirstMessageParams{
		Target:       target,
		Organisation: organisation,
		Day:          now,
	})
	if err != nil {
		e.log.Warn("create first message", "room", target.Id, "error", err)
		if claimed {
			if err := e.marker.ReleaseFirstMessage(ctx, target, now); err != nil {
				e.log.Warn("release first message marker", "room", target.Id, "error", err)
			}
		}
		return
	}
	if created {
		e.log.Debug("first message of the day", "room", target.Id)
	}
}

// MarkRead sets hasRead on the message and reports whether it changed. An
// unknown id is not an error.
func (e *Engine) MarkRead(ctx context.Context, messageId string) (bool, error) {
	if messageId == "" {
		return false, nil
	}

	return e.db.MarkMessageRead(ctx, messageId)
}

type ThreadReplyParams struct {
	MessageId string
	UserId    string
	SenderId  string
	Content   string
}

// ThreadReplyResult holds the created reply and the refreshed parent.
// Parent is nil when the parent update failed after the reply was stored.
type ThreadReplyResult struct {
	Reply  types.ThreadReply
	Parent *types.Message
}

// PostThreadReply stores a reply, then bumps the parent's counter, records
// the reply date and adds UserId to the parent's participants.
func (e *Engine) PostThreadReply(ctx context.Context, params ThreadReplyParams) (ThreadReplyResult, error) {
	if _, err := e.db.GetMessage(ctx, params.MessageId); err != nil {
		return ThreadReplyResult{}, mapNotFound(err)
	}

	senderId := params.SenderId
	if senderId == "" {
		senderId = params.UserId
	}

	reply, err := e.db.CreateThreadReply(ctx, database.CreateThreadReplyParams{
		MessageId: params.MessageId,
		SenderId:  senderId,
		Content:   params.Content,
	})
	if err != nil {
		return ThreadReplyResult{}, fmt.Errorf("create thread reply: %w", err)
	}

	res := ThreadReplyResult{Reply: reply}

	unlock := e.locks.Lock(docKey(types.EntityMessage, params.MessageId))
	parent, err := e.db.UpdateMessageOnThreadReply(ctx, params.MessageId, params.UserId, reply.CreatedAt)
	unlock()
	if err != nil {
		e.log.Error("update thread parent", "room", params.MessageId, "error", err)
		return res, nil
	}

	res.Parent = &parent
	return res, nil
}

// ReactionResult is the target of a reaction toggle, fully resolved.
// Exactly one of Message and Reply is set.
type ReactionResult struct {
	Id      string
	Kind    types.EntityKind
	Message *types.Message
	Reply   *types.ThreadReply
}

// Resolved returns whichever record was reacted to.
func (r ReactionResult) Resolved() any {
	if r.Reply != nil {
		return r.Reply
	}
	return r.Message
}

// ToggleReaction toggles userId on emoji for the message or thread reply id.
// Toggles on the same record never interleave.
func (e *Engine) ToggleReaction(ctx context.Context, kind types.EntityKind, id, emoji, userId string) (ReactionResult, error) {
	unlock := e.locks.Lock(docKey(kind, id))
	defer unlock()

	if err := e.db.ToggleReaction(ctx, kind, id, emoji, userId); err != nil {
		return ReactionResult{}, mapNotFound(err)
	}

	res := ReactionResult{Id: id, Kind: kind}
	switch kind {
	case types.EntityThreadReply:
		reply, err := e.db.GetThreadReply(ctx, id)
		if err != nil {
			return ReactionResult{}, mapNotFound(err)
		}
		res.Reply = &reply
	default:
		msg, err := e.db.GetMessage(ctx, id)
		if err != nil {
			return ReactionResult{}, mapNotFound(err)
		}
		res.Message = &msg
	}

	return res, nil
}
