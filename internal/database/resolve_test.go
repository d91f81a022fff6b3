package database

import (
	"testing"

	"github.com/npezzotti/go-teamchat/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestReferencedUserIds(t *testing.T) {
	reactions := []types.Reaction{
		{Emoji: "👍", ReactedToBy: []string{"u1", "u2"}},
		{Emoji: "🎉", ReactedToBy: []string{"u2", "u3"}},
	}

	ids := referencedUserIds(reactions, []string{"u3", "u4"})
	assert.Equal(t, []string{"u1", "u2", "u3", "u4"}, ids)

	assert.Empty(t, referencedUserIds(nil, nil))
}

func TestResolveReactions(t *testing.T) {
	users := map[string]types.User{
		"u1": {Id: "u1", Username: "alice"},
		"u2": {Id: "u2", Username: "bob"},
	}

	reactions := []types.Reaction{
		{Emoji: "👍", ReactedToBy: []string{"u1", "gone"}},
		{Emoji: "👍", ReactedToBy: []string{"u2"}},
		{Emoji: "🎉", ReactedToBy: []string{}},
	}

	resolved := resolveReactions(reactions, users)

	expected := []types.ResolvedReaction{
		{
			Emoji: "👍",
			ReactedToBy: []types.User{
				{Id: "u1", Username: "alice"},
				{Id: "gone"},
				{Id: "u2", Username: "bob"},
			},
		},
	}
	assert.Equal(t, expected, resolved)
}

func TestResolveReactionsEmpty(t *testing.T) {
	resolved := resolveReactions(nil, nil)
	assert.NotNil(t, resolved)
	assert.Len(t, resolved, 0)
}

func TestReactionTable(t *testing.T) {
	table, err := reactionTable(types.EntityMessage)
	assert.NoError(t, err)
	assert.Equal(t, "messages", table)

	table, err = reactionTable(types.EntityThreadReply)
	assert.NoError(t, err)
	assert.Equal(t, "threads", table)

	_, err = reactionTable(types.EntityKind(42))
	assert.Error(t, err)
}
