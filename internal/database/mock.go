package database

import (
	"context"
	"time"

	"github.com/npezzotti/go-teamchat/internal/types"
	"github.com/stretchr/testify/mock"
)

type MockTeamChatRepository struct {
	mock.Mock
}

func (m *MockTeamChatRepository) Ping() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockTeamChatRepository) GetAccountById(ctx context.Context, id string) (types.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(types.User), args.Error(1)
}

func (m *MockTeamChatRepository) SetUserOnline(ctx context.Context, userId string, isOnline bool) error {
	args := m.Called(ctx, userId, isOnline)
	return args.Error(0)
}

func (m *MockTeamChatRepository) OpenChannel(ctx context.Context, channelId, userId string) (types.Channel, error) {
	args := m.Called(ctx, channelId, userId)
	return args.Get(0).(types.Channel), args.Error(1)
}

func (m *MockTeamChatRepository) OpenConversation(ctx context.Context, conversationId, userId string) (types.Conversation, error) {
	args := m.Called(ctx, conversationId, userId)
	return args.Get(0).(types.Conversation), args.Error(1)
}

func (m *MockTeamChatRepository) CreateFirstMessage(ctx context.Context, params FirstMessageParams) (bool, error) {
	args := m.Called(ctx, params)
	return args.Bool(0), args.Error(1)
}

func (m *MockTeamChatRepository) CreateMessage(ctx context.Context, params CreateMessageParams) (types.Message, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(types.Message), args.Error(1)
}

func (m *MockTeamChatRepository) UpdateChannelHasNotOpen(ctx context.Context, channelId string, hasNotOpen []string) (types.Channel, error) {
	args := m.Called(ctx, channelId, hasNotOpen)
	return args.Get(0).(types.Channel), args.Error(1)
}

func (m *MockTeamChatRepository) UpdateConversationHasNotOpen(ctx context.Context, conversationId string, hasNotOpen []string) (types.Conversation, error) {
	args := m.Called(ctx, conversationId, hasNotOpen)
	return args.Get(0).(types.Conversation), args.Error(1)
}

func (m *MockTeamChatRepository) MarkMessageRead(ctx context.Context, messageId string) (bool, error) {
	args := m.Called(ctx, messageId)
	return args.Bool(0), args.Error(1)
}

func (m *MockTeamChatRepository) CreateThreadReply(ctx context.Context, params CreateThreadReplyParams) (types.ThreadReply, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(types.ThreadReply), args.Error(1)
}

func (m *MockTeamChatRepository) UpdateMessageOnThreadReply(ctx context.Context, messageId, userId string, repliedAt time.Time) (types.Message, error) {
	args := m.Called(ctx, messageId, userId, repliedAt)
	return args.Get(0).(types.Message), args.Error(1)
}

func (m *MockTeamChatRepository) ToggleReaction(ctx context.Context, kind types.EntityKind, id, emoji, userId string) error {
	args := m.Called(ctx, kind, id, emoji, userId)
	return args.Error(0)
}

func (m *MockTeamChatRepository) GetMessage(ctx context.Context, id string) (types.Message, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(types.Message), args.Error(1)
}

func (m *MockTeamChatRepository) GetThreadReply(ctx context.Context, id string) (types.ThreadReply, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(types.ThreadReply), args.Error(1)
}
