package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/npezzotti/go-teamchat/internal/types"
)

const (
	accountColumns      = "id, username, email, profile_picture, is_online"
	channelColumns      = "id, name, organisation, collaborators, has_not_open, created_at, updated_at"
	conversationColumns = "id, name, organisation, collaborators, has_not_open, is_self, is_online, created_at, updated_at"

	selectMessageQuery = `
		SELECT
				m.id,
				m.organisation,
				m.content,
				COALESCE(m.channel_id, ''),
				COALESCE(m.conversation_id, ''),
				m.collaborators,
				m.is_self,
				m.has_read,
				m.reactions,
				m.thread_replies,
				m.thread_replies_count,
				m.thread_last_reply_date,
				m.created_at,
				m.updated_at,
				a.id,
				a.username,
				a.email,
				a.profile_picture,
				a.is_online
		FROM messages m
		JOIN accounts a ON a.id = m.sender_id
		WHERE m.id = $1`

	selectThreadReplyQuery = `
		SELECT
				t.id,
				t.message_id,
				t.content,
				t.has_read,
				t.reactions,
				t.created_at,
				t.updated_at,
				a.id,
				a.username,
				a.email,
				a.profile_picture,
				a.is_online
		FROM threads t
		JOIN accounts a ON a.id = t.sender_id
		WHERE t.id = $1`
)

type scanner interface {
	Scan(dest ...any) error
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func scanChannel(row scanner) (types.Channel, error) {
	var ch types.Channel
	err := row.Scan(
		&ch.Id,
		&ch.Name,
		&ch.Organisation,
		pq.Array(&ch.Collaborators),
		pq.Array(&ch.HasNotOpen),
		&ch.CreatedAt,
		&ch.UpdatedAt,
	)

	return ch, notFound(err)
}

func scanConversation(row scanner) (types.Conversation, error) {
	var c types.Conversation
	err := row.Scan(
		&c.Id,
		&c.Name,
		&c.Organisation,
		pq.Array(&c.Collaborators),
		pq.Array(&c.HasNotOpen),
		&c.IsSelf,
		&c.IsOnline,
		&c.CreatedAt,
		&c.UpdatedAt,
	)

	return c, notFound(err)
}

func (db *PgTeamChatRepository) GetAccountById(ctx context.Context, id string) (types.User, error) {
	row := db.conn.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE id = $1 LIMIT 1",
		id,
	)

	var u types.User
	err := row.Scan(
		&u.Id,
		&u.Username,
		&u.EmailAddress,
		&u.ProfilePicture,
		&u.IsOnline,
	)

	return u, notFound(err)
}

// SetUserOnline records the presence flag on the account and on every
// conversation the user collaborates in.
func (db *PgTeamChatRepository) SetUserOnline(ctx context.Context, userId string, isOnline bool) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx,
		"UPDATE accounts SET is_online = $2, updated_at = $3 WHERE id = $1",
		userId,
		isOnline,
		now,
	)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE conversations SET is_online = $2, updated_at = $3 WHERE $1 = ANY(collaborators)",
		userId,
		isOnline,
		now,
	)
	if err != nil {
		return fmt.Errorf("update conversations: %w", err)
	}

	return tx.Commit()
}

func (db *PgTeamChatRepository) OpenChannel(ctx context.Context, channelId, userId string) (types.Channel, error) {
	row := db.conn.QueryRowContext(ctx,
		"UPDATE channels SET has_not_open = array_remove(has_not_open, $2::text), updated_at = $3 "+
			"WHERE id = $1 RETURNING "+channelColumns,
		channelId,
		userId,
		time.Now().UTC(),
	)

	return scanChannel(row)
}

func (db *PgTeamChatRepository) OpenConversation(ctx context.Context, conversationId, userId string) (types.Conversation, error) {
	row := db.conn.QueryRowContext(ctx,
		"UPDATE conversations SET has_not_open = array_remove(has_not_open, $2::text), updated_at = $3 "+
			"WHERE id = $1 RETURNING "+conversationColumns,
		conversationId,
		userId,
		time.Now().UTC(),
	)

	return scanConversation(row)
}

// CreateFirstMessage inserts the first-message-of-the-day marker for the
// target. It reports false when the marker already existed.
func (db *PgTeamChatRepository) CreateFirstMessage(ctx context.Context, params FirstMessageParams) (bool, error) {
	res, err := db.conn.ExecContext(ctx,
		"INSERT INTO first_messages (target_kind, target_id, organisation, day) "+
			"VALUES ($1, $2, $3, $4) ON CONFLICT (target_kind, target_id, day) DO NOTHING",
		params.Target.Kind.String(),
		params.Target.Id,
		params.Organisation,
		params.Day.UTC().Format(time.DateOnly),
	)
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return n == 1, nil
}

func (db *PgTeamChatRepository) CreateMessage(ctx context.Context, params CreateMessageParams) (types.Message, error) {
	var channelId, conversationId sql.NullString
	switch params.Target.Kind {
	case types.TargetChannel:
		channelId = sql.NullString{String: params.Target.Id, Valid: true}
	case types.TargetConversation:
		conversationId = sql.NullString{String: params.Target.Id, Valid: true}
	default:
		return types.Message{}, fmt.Errorf("invalid message target %q", params.Target.Kind)
	}

	collaborators := params.Collaborators
	if collaborators == nil {
		collaborators = []string{}
	}

	now := time.Now().UTC()
	var id string
	err := db.conn.QueryRowContext(ctx,
		"INSERT INTO messages (organisation, sender_id, content, channel_id, conversation_id, collaborators, is_self, has_read, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE, $8, $8) RETURNING id",
		params.Organisation,
		params.SenderId,
		params.Content,
		channelId,
		conversationId,
		pq.Array(collaborators),
		params.IsSelf,
		now,
	).Scan(&id)
	if err != nil {
		return types.Message{}, fmt.Errorf("insert message: %w", err)
	}

	return db.GetMessage(ctx, id)
}

func (db *PgTeamChatRepository) UpdateChannelHasNotOpen(ctx context.Context, channelId string, hasNotOpen []string) (types.Channel, error) {
	if hasNotOpen == nil {
		hasNotOpen = []string{}
	}

	row := db.conn.QueryRowContext(ctx,
		"UPDATE channels SET has_not_open = $2, updated_at = $3 WHERE id = $1 RETURNING "+channelColumns,
		channelId,
		pq.Array(hasNotOpen),
		time.Now().UTC(),
	)

	return scanChannel(row)
}

func (db *PgTeamChatRepository) UpdateConversationHasNotOpen(ctx context.Context, conversationId string, hasNotOpen []string) (types.Conversation, error) {
	if hasNotOpen == nil {
		hasNotOpen = []string{}
	}

	row := db.conn.QueryRowContext(ctx,
		"UPDATE conversations SET has_not_open = $2, updated_at = $3 WHERE id = $1 RETURNING "+conversationColumns,
		conversationId,
		pq.Array(hasNotOpen),
		time.Now().UTC(),
	)

	return scanConversation(row)
}

// MarkMessageRead sets has_read on the message. It reports whether the flag
// changed; an unknown id or an already read message is not an error.
func (db *PgTeamChatRepository) MarkMessageRead(ctx context.Context, messageId string) (bool, error) {
	res, err := db.conn.ExecContext(ctx,
		"UPDATE messages SET has_read = TRUE, updated_at = $2 WHERE id = $1 AND has_read = FALSE",
		messageId,
		time.Now().UTC(),
	)
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return n > 0, nil
}

func (db *PgTeamChatRepository) CreateThreadReply(ctx context.Context, params CreateThreadReplyParams) (types.ThreadReply, error) {
	now := time.Now().UTC()
	var id string
	err := db.conn.QueryRowContext(ctx,
		"INSERT INTO threads (message_id, sender_id, content, has_read, created_at, updated_at) "+
			"VALUES ($1, $2, $3, FALSE, $4, $4) RETURNING id",
		params.MessageId,
		params.SenderId,
		params.Content,
		now,
	).Scan(&id)
	if err != nil {
		return types.ThreadReply{}, fmt.Errorf("insert thread reply: %w", err)
	}

	return db.GetThreadReply(ctx, id)
}

// UpdateMessageOnThreadReply bumps the reply counter, records the reply date
// and adds userId to the participants of the parent message in one statement.
func (db *PgTeamChatRepository) UpdateMessageOnThreadReply(ctx context.Context, messageId, userId string, repliedAt time.Time) (types.Message, error) {
	var id string
	err := db.conn.QueryRowContext(ctx,
		`UPDATE messages SET
				thread_last_reply_date = $2,
				thread_replies = CASE WHEN $3::text = ANY(thread_replies) THEN thread_replies ELSE array_append(thread_replies, $3::text) END,
				thread_replies_count = thread_replies_count + 1,
				updated_at = $4
		WHERE id = $1 RETURNING id`,
		messageId,
		repliedAt,
		userId,
		time.Now().UTC(),
	).Scan(&id)
	if err != nil {
		return types.Message{}, notFound(err)
	}

	return db.GetMessage(ctx, id)
}

func reactionTable(kind types.EntityKind) (string, error) {
	switch kind {
	case types.EntityMessage:
		return "messages", nil
	case types.EntityThreadReply:
		return "threads", nil
	default:
		return "", fmt.Errorf("invalid reaction target %q", kind)
	}
}

// ToggleReaction toggles userId on emoji for the message or thread reply. The
// row is locked for the duration of the read-modify-write so concurrent
// toggles on the same record are serialized.
func (db *PgTeamChatRepository) ToggleReaction(ctx context.Context, kind types.EntityKind, id, emoji, userId string) error {
	table, err := reactionTable(kind)
	if err != nil {
		return err
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var raw []byte
	err = tx.QueryRowContext(ctx, "SELECT reactions FROM "+table+" WHERE id = $1 FOR UPDATE", id).Scan(&raw)
	if err != nil {
		err = notFound(err)
		return err
	}

	var reactions []types.Reaction
	if err = json.Unmarshal(raw, &reactions); err != nil {
		return fmt.Errorf("decode reactions: %w", err)
	}

	updated, err := json.Marshal(types.ToggleReaction(reactions, emoji, userId))
	if err != nil {
		return fmt.Errorf("encode reactions: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE "+table+" SET reactions = $2, updated_at = $3 WHERE id = $1",
		id,
		updated,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("update reactions: %w", err)
	}

	return tx.Commit()
}

func (db *PgTeamChatRepository) GetMessage(ctx context.Context, id string) (types.Message, error) {
	var (
		msg           types.Message
		sender        types.User
		rawReactions  []byte
		threadReplies []string
		lastReply     sql.NullTime
	)

	err := db.conn.QueryRowContext(ctx, selectMessageQuery, id).Scan(
		&msg.Id,
		&msg.Organisation,
		&msg.Content,
		&msg.Channel,
		&msg.Conversation,
		pq.Array(&msg.Collaborators),
		&msg.IsSelf,
		&msg.HasRead,
		&rawReactions,
		pq.Array(&threadReplies),
		&msg.ThreadRepliesCount,
		&lastReply,
		&msg.CreatedAt,
		&msg.UpdatedAt,
		&sender.Id,
		&sender.Username,
		&sender.EmailAddress,
		&sender.ProfilePicture,
		&sender.IsOnline,
	)
	if err != nil {
		return types.Message{}, notFound(err)
	}

	msg.Sender = &sender
	if lastReply.Valid {
		msg.ThreadLastReplyDate = &lastReply.Time
	}

	var reactions []types.Reaction
	if err := json.Unmarshal(rawReactions, &reactions); err != nil {
		return types.Message{}, fmt.Errorf("decode reactions: %w", err)
	}

	users, err := db.resolveUsers(ctx, reactions, threadReplies)
	if err != nil {
		return types.Message{}, err
	}

	msg.Reactions = resolveReactions(reactions, users)
	msg.ThreadReplies = make([]types.User, len(threadReplies))
	for i, uid := range threadReplies {
		msg.ThreadReplies[i] = lookupUser(users, uid)
	}

	return msg, nil
}

func (db *PgTeamChatRepository) GetThreadReply(ctx context.Context, id string) (types.ThreadReply, error) {
	var (
		reply        types.ThreadReply
		sender       types.User
		rawReactions []byte
	)

	err := db.conn.QueryRowContext(ctx, selectThreadReplyQuery, id).Scan(
		&reply.Id,
		&reply.Message,
		&reply.Content,
		&reply.HasRead,
		&rawReactions,
		&reply.CreatedAt,
		&reply.UpdatedAt,
		&sender.Id,
		&sender.Username,
		&sender.EmailAddress,
		&sender.ProfilePicture,
		&sender.IsOnline,
	)
	if err != nil {
		return types.ThreadReply{}, notFound(err)
	}

	reply.Sender = &sender

	var reactions []types.Reaction
	if err := json.Unmarshal(rawReactions, &reactions); err != nil {
		return types.ThreadReply{}, fmt.Errorf("decode reactions: %w", err)
	}

	users, err := db.resolveUsers(ctx, reactions, nil)
	if err != nil {
		return types.ThreadReply{}, err
	}

	reply.Reactions = resolveReactions(reactions, users)
	return reply, nil
}

// resolveUsers loads the accounts referenced by reactions and extra ids.
func (db *PgTeamChatRepository) resolveUsers(ctx context.Context, reactions []types.Reaction, extra []string) (map[string]types.User, error) {
	ids := referencedUserIds(reactions, extra)
	users := make(map[string]types.User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}

	rows, err := db.conn.QueryContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE id = ANY($1)",
		pq.Array(ids),
	)
	if err != nil {
		return nil, fmt.Errorf("resolve users: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var u types.User
		if err := rows.Scan(&u.Id, &u.Username, &u.EmailAddress, &u.ProfilePicture, &u.IsOnline); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users[u.Id] = u
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return users, nil
}
