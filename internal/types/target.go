package types

// TargetKind says where a message is posted.
type TargetKind int

const (
	TargetChannel TargetKind = iota + 1
	TargetConversation
)

func (k TargetKind) String() string {
	switch k {
	case TargetChannel:
		return "channel"
	case TargetConversation:
		return "conversation"
	default:
		return "unknown"
	}
}

// Target is the destination of a posted message: a channel or a
// conversation, never both.
type Target struct {
	Kind TargetKind
	Id   string
}

func ChannelTarget(id string) Target {
	return Target{Kind: TargetChannel, Id: id}
}

func ConversationTarget(id string) Target {
	return Target{Kind: TargetConversation, Id: id}
}

// EntityKind distinguishes top-level messages from thread replies.
type EntityKind int

const (
	EntityMessage EntityKind = iota + 1
	EntityThreadReply
)

func (k EntityKind) String() string {
	switch k {
	case EntityMessage:
		return "message"
	case EntityThreadReply:
		return "thread"
	default:
		return "unknown"
	}
}

// EntityKindOf maps the isThread flag clients send to an EntityKind.
func EntityKindOf(isThread bool) EntityKind {
	if isThread {
		return EntityThreadReply
	}
	return EntityMessage
}
