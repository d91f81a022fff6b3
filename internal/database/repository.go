package database

import (
	"context"
	"time"

	"github.com/npezzotti/go-teamchat/internal/types"
)

// TeamChatRepository is the storage contract the real-time core depends on.
// Lookups and updates of a missing record return ErrNotFound.
type TeamChatRepository interface {
	Ping() error
	GetAccountById(ctx context.Context, id string) (types.User, error)
	SetUserOnline(ctx context.Context, userId string, isOnline bool) error
	OpenChannel(ctx context.Context, channelId, userId string) (types.Channel, error)
	OpenConversation(ctx context.Context, conversationId, userId string) (types.Conversation, error)
	CreateFirstMessage(ctx context.Context, params FirstMessageParams) (bool, error)
	CreateMessage(ctx context.Context, params CreateMessageParams) (types.Message, error)
	UpdateChannelHasNotOpen(ctx context.Context, channelId string, hasNotOpen []string) (types.Channel, error)
	UpdateConversationHasNotOpen(ctx context.Context, conversationId string, hasNotOpen []string) (types.Conversation, error)
	MarkMessageRead(ctx context.Context, messageId string) (bool, error)
	CreateThreadReply(ctx context.Context, params CreateThreadReplyParams) (types.ThreadReply, error)
	UpdateMessageOnThreadReply(ctx context.Context, messageId, userId string, repliedAt time.Time) (types.Message, error)
	ToggleReaction(ctx context.Context, kind types.EntityKind, id, emoji, userId string) error
	GetMessage(ctx context.Context, id string) (types.Message, error)
	GetThreadReply(ctx context.Context, id string) (types.ThreadReply, error)
}
