package chat

import (
	"context"
	"errors"

	"carrent/internal/infra/dbx"

	"github.com/jackc/pgx/v5"
)

type Store interface {
	InsertMessage(ctx context.Context, m *Message) error
	GetMessage(ctx context.Context, id int64) (*Message, error)
	EditMessage(ctx context.Context, id int64, body string) (*Message, error)
	SoftDeleteMessage(ctx context.Context, id int64) error
	History(ctx context.Context, userA, userB int64, beforeID int64, limit int) ([]Message, error)
	MarkRead(ctx context.Context, readerID, partnerID int64) (int64, error)
	UnreadCount(ctx context.Context, userID int64) (int, error)
	TouchConversation(ctx context.Context, a, b int64) (int64, error)
	Conversations(ctx context.Context, userID int64) ([]ConversationSummary, error)
}

type Repository struct {
	db dbx.Querier
}

func NewRepository(db dbx.Querier) *Repository {
	return &Repository{db: db}
}

const messageColumns = `id, from_user_id, to_user_id, message, message_type, file_url,
	created_at, is_read, is_deleted, is_edited, edited_at`

func scanMessage(row pgx.CollectableRow) (Message, error) {
	var m Message
	err := row.Scan(&m.ID, &m.FromUserID, &m.ToUserID, &m.Body, &m.Type, &m.FileURL,
		&m.CreatedAt, &m.IsRead, &m.IsDeleted, &m.IsEdited, &m.EditedAt)
	return m, err
}

func (r *Repository) InsertMessage(ctx context.Context, m *Message) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	if m.Type == "" {
		m.Type = MessageText
	}
	return r.db.QueryRow(ctx, `
		INSERT INTO chat_messages (from_user_id, to_user_id, message, message_type, file_url)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, m.FromUserID, m.ToUserID, m.Body, string(m.Type), m.FileURL).Scan(&m.ID, &m.CreatedAt)
}

func (r *Repository) GetMessage(ctx context.Context, id int64) (*Message, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	rows, err := r.db.Query(ctx, `SELECT `+messageColumns+` FROM chat_messages WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	m, err := pgx.CollectExactlyOneRow(rows, scanMessage)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *Repository) EditMessage(ctx context.Context, id int64, body string) (*Message, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		UPDATE chat_messages SET message = $2, is_edited = TRUE, edited_at = NOW()
		WHERE id = $1 AND NOT is_deleted
		RETURNING `+messageColumns, id, body)
	if err != nil {
		return nil, err
	}
	m, err := pgx.CollectExactlyOneRow(rows, scanMessage)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *Repository) SoftDeleteMessage(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tag, err := r.db.Exec(ctx, `UPDATE chat_messages SET is_deleted = TRUE WHERE id = $1 AND NOT is_deleted`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// History returns up to limit non-deleted messages between the two users in
// chronological order. beforeID pages backwards when positive.
func (r *Repository) History(ctx context.Context, userA, userB int64, beforeID int64, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT * FROM (
			SELECT `+messageColumns+` FROM chat_messages
			WHERE ((from_user_id = $1 AND to_user_id = $2) OR (from_user_id = $2 AND to_user_id = $1))
			  AND NOT is_deleted
			  AND ($3 <= 0 OR id < $3)
			ORDER BY id DESC
			LIMIT $4
		) page ORDER BY id
	`, userA, userB, beforeID, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanMessage)
}

func (r *Repository) MarkRead(ctx context.Context, readerID, partnerID int64) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
		UPDATE chat_messages SET is_read = TRUE
		WHERE to_user_id = $1 AND from_user_id = $2 AND NOT is_read
	`, readerID, partnerID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *Repository) UnreadCount(ctx context.Context, userID int64) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	var n int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM chat_messages WHERE to_user_id = $1 AND NOT is_read AND NOT is_deleted
	`, userID).Scan(&n)
	return n, err
}

// TouchConversation creates the conversation between a and b if needed and
// moves its last activity to now.
func (r *Repository) TouchConversation(ctx context.Context, a, b int64) (int64, error) {
	u1, u2 := OrderedPair(a, b)

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO chat_conversations (user1_id, user2_id)
		VALUES ($1, $2)
		ON CONFLICT ON CONSTRAINT chat_conversations_pair_key
		DO UPDATE SET last_message_at = NOW(), is_active = TRUE
		RETURNING id
	`, u1, u2).Scan(&id)
	return id, err
}

func (r *Repository) Conversations(ctx context.Context, userID int64) ([]ConversationSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT cv.id, p.id, p.username, p.image_profile_url,
		       COALESCE(last.message, ''), COALESCE(last.message_type, 'text'),
		       cv.last_message_at,
		       (SELECT COUNT(*) FROM chat_messages m
		         WHERE m.to_user_id = $1 AND m.from_user_id = p.id AND NOT m.is_read AND NOT m.is_deleted)
		FROM chat_conversations cv
		JOIN users p ON p.id = CASE WHEN cv.user1_id = $1 THEN cv.user2_id ELSE cv.user1_id END
		LEFT JOIN LATERAL (
			SELECT m.message, m.message_type FROM chat_messages m
			WHERE ((m.from_user_id = cv.user1_id AND m.to_user_id = cv.user2_id)
			    OR (m.from_user_id = cv.user2_id AND m.to_user_id = cv.user1_id))
			  AND NOT m.is_deleted
			ORDER BY m.id DESC LIMIT 1
		) last ON TRUE
		WHERE (cv.user1_id = $1 OR cv.user2_id = $1) AND cv.is_active
		ORDER BY cv.last_message_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (ConversationSummary, error) {
		var c ConversationSummary
		err := row.Scan(&c.ConversationID, &c.PartnerID, &c.PartnerUsername, &c.PartnerImageURL,
			&c.LastMessage, &c.LastMessageType, &c.LastMessageAt, &c.UnreadCount)
		return c, err
	})
}
