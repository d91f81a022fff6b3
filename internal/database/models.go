package database

import (
	"errors"
	"time"

	"github.com/npezzotti/go-teamchat/internal/types"
)

var ErrNotFound = errors.New("record not found")

type FirstMessageParams struct {
	Target       types.Target
	Organisation string
	Day          time.Time
}

type CreateMessageParams struct {
	Target        types.Target
	Organisation  string
	SenderId      string
	Content       string
	Collaborators []string
	IsSelf        bool
}

type CreateThreadReplyParams struct {
	MessageId string
	SenderId  string
	Content   string
}
