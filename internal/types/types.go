package types

import (
	"time"
)

type User struct {
	Id             string `json:"id"`
	Username       string `json:"username"`
	EmailAddress   string `json:"email,omitempty"`
	ProfilePicture string `json:"profilePicture,omitempty"`
	IsOnline       bool   `json:"isOnline"`
}

type Channel struct {
	Id            string    `json:"id"`
	Name          string    `json:"name"`
	Organisation  string    `json:"organisation"`
	Collaborators []string  `json:"collaborators"`
	HasNotOpen    []string  `json:"hasNotOpen"`
	CreatedAt     time.Time `json:"createdAt,omitempty"`
	UpdatedAt     time.Time `json:"updatedAt,omitempty"`
}

type Conversation struct {
	Id            string    `json:"id"`
	Name          string    `json:"name,omitempty"`
	Organisation  string    `json:"organisation"`
	Collaborators []string  `json:"collaborators"`
	HasNotOpen    []string  `json:"hasNotOpen"`
	IsSelf        bool      `json:"isSelf"`
	IsOnline      bool      `json:"isOnline"`
	CreatedAt     time.Time `json:"createdAt,omitempty"`
	UpdatedAt     time.Time `json:"updatedAt,omitempty"`
}

// Message is a channel or conversation message with its references resolved.
// Exactly one of Channel and Conversation is set.
type Message struct {
	Id                  string             `json:"id"`
	Organisation        string             `json:"organisation"`
	Sender              *User              `json:"sender"`
	Content             string             `json:"content"`
	Channel             string             `json:"channel,omitempty"`
	Conversation        string             `json:"conversation,omitempty"`
	Collaborators       []string           `json:"collaborators,omitempty"`
	IsSelf              bool               `json:"isSelf,omitempty"`
	HasRead             bool               `json:"hasRead"`
	Reactions           []ResolvedReaction `json:"reactions"`
	ThreadReplies       []User             `json:"threadReplies"`
	ThreadRepliesCount  int                `json:"threadRepliesCount"`
	ThreadLastReplyDate *time.Time         `json:"threadLastReplyDate,omitempty"`
	CreatedAt           time.Time          `json:"createdAt"`
	UpdatedAt           time.Time          `json:"updatedAt"`
}

// ThreadReply is a reply attached to a parent Message.
type ThreadReply struct {
	Id        string             `json:"id"`
	Message   string             `json:"message"`
	Sender    *User              `json:"sender"`
	Content   string             `json:"content"`
	HasRead   bool               `json:"hasRead"`
	Reactions []ResolvedReaction `json:"reactions"`
	CreatedAt time.Time          `json:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// ResolvedReaction is a Reaction with its participants loaded.
type ResolvedReaction struct {
	Emoji       string `json:"emoji"`
	ReactedToBy []User `json:"reactedToBy"`
}
