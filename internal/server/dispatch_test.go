package server

import (
	"testing"

	"github.com/npezzotti/go-teamchat/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type planStep struct {
	scope scope
	room  string
	event string
}

func steps(plan []emission) []planStep {
	out := make([]planStep, len(plan))
	for i, e := range plan {
		out[i] = planStep{scope: e.scope, room: e.room, event: e.msg.Event}
	}
	return out
}

func TestPlanMessage(t *testing.T) {
	msg := types.Message{Id: "m1", Content: "hi", Sender: &types.User{Id: "A"}}

	t.Run("channel", func(t *testing.T) {
		p := &messagePayload{
			ChannelId:     "C1",
			ChannelName:   "general",
			Collaborators: []string{"A", "B"},
			Organisation:  "org",
		}
		ch := &types.Channel{Id: "C1"}

		plan := planMessage(p, PostMessageResult{Message: msg, Channel: ch})
		assert.Equal(t, []planStep{
			{scopeRoom, "C1", EventMessage},
			{scopeRoom, "C1", EventChannelUpdated},
			{scopeOthers, "", EventNotification},
		}, steps(plan))

		assert.Equal(t, newMessageEvent{NewMessage: msg, Organisation: "org"}, plan[0].msg.Data)
		assert.Equal(t, ch, plan[1].msg.Data)
		assert.Equal(t, channelNotification{
			ChannelName:   "general",
			ChannelId:     "C1",
			Collaborators: []string{"A", "B"},
			NewMessage:    msg,
			Organisation:  "org",
		}, plan[2].msg.Data)
	})

	t.Run("conversation", func(t *testing.T) {
		p := &messagePayload{
			ConversationId: "V1",
			Collaborators:  []string{"A", "B"},
			Organisation:   "org",
		}
		conv := &types.Conversation{Id: "V1"}

		plan := planMessage(p, PostMessageResult{Message: msg, Conversation: conv})
		assert.Equal(t, []planStep{
			{scopeRoom, "V1", EventMessage},
			{scopeRoom, "V1", EventConvoUpdated},
			{scopeOthers, "", EventNotification},
		}, steps(plan))

		assert.Equal(t, newMessageEvent{NewMessage: msg, Organisation: "org", Collaborators: []string{"A", "B"}}, plan[0].msg.Data)
		assert.Equal(t, conversationNotification{
			Collaborators:  []string{"A", "B"},
			Organisation:   "org",
			NewMessage:     msg,
			ConversationId: "V1",
		}, plan[2].msg.Data)
	})

	t.Run("missing target record skips the update", func(t *testing.T) {
		p := &messagePayload{ChannelId: "C1"}

		plan := planMessage(p, PostMessageResult{Message: msg})
		assert.Equal(t, []planStep{
			{scopeRoom, "C1", EventMessage},
			{scopeOthers, "", EventNotification},
		}, steps(plan))
	})
}

func TestPlanThreadReply(t *testing.T) {
	reply := types.ThreadReply{Id: "t1", Message: "m1"}
	parent := &types.Message{Id: "m1", ThreadRepliesCount: 1}

	plan := planThreadReply("m1", ThreadReplyResult{Reply: reply, Parent: parent})
	assert.Equal(t, []planStep{
		{scopeRoom, "m1", EventThreadMessage},
		{scopeRoom, "m1", EventMessageUpdated},
	}, steps(plan))
	assert.Equal(t, messageUpdatedEvent{Id: "m1", Message: parent}, plan[1].msg.Data)

	plan = planThreadReply("m1", ThreadReplyResult{Reply: reply})
	assert.Equal(t, []planStep{{scopeRoom, "m1", EventThreadMessage}}, steps(plan))
}

func TestPlanReaction(t *testing.T) {
	msg := &types.Message{Id: "m1"}
	plan := planReaction(ReactionResult{Id: "m1", Kind: types.EntityMessage, Message: msg})
	require.Equal(t, []planStep{{scopeOrigin, "", EventMessageUpdated}}, steps(plan))

	data := plan[0].msg.Data.(messageUpdatedEvent)
	assert.Equal(t, "m1", data.Id)
	assert.Equal(t, msg, data.Message)
	require.NotNil(t, data.IsThread)
	assert.False(t, *data.IsThread)

	reply := &types.ThreadReply{Id: "t1"}
	plan = planReaction(ReactionResult{Id: "t1", Kind: types.EntityThreadReply, Reply: reply})
	data = plan[0].msg.Data.(messageUpdatedEvent)
	assert.Equal(t, reply, data.Message)
	assert.True(t, *data.IsThread)
}

func TestPlanPresenceAndViews(t *testing.T) {
	plan := planPresence(true, "u1", true)
	assert.Equal(t, []planStep{{scopeGlobal, "", EventUserJoin}}, steps(plan))
	assert.Equal(t, presenceEvent{Id: "u1", IsOnline: true}, plan[0].msg.Data)

	plan = planPresence(false, "u1", false)
	assert.Equal(t, []planStep{{scopeGlobal, "", EventUserLeave}}, steps(plan))

	assert.Nil(t, planMessageView("m1", false))
	plan = planMessageView("m1", true)
	assert.Equal(t, []planStep{{scopeGlobal, "", EventMessageView}}, steps(plan))
	assert.Equal(t, "m1", plan[0].msg.Data)

	assert.Nil(t, planChannelOpened(nil))
	assert.Nil(t, planConversationOpened(nil))
	assert.Equal(t, []planStep{{scopeRoom, "C1", EventChannelUpdated}}, steps(planChannelOpened(&types.Channel{Id: "C1"})))
	assert.Equal(t, []planStep{{scopeRoom, "V1", EventConvoUpdated}}, steps(planConversationOpened(&types.Conversation{Id: "V1"})))
}
