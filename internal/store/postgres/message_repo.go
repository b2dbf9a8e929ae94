package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"marketchat/internal/domain"
)

type MessageRepo struct {
	db *sql.DB
}

func NewMessageRepo(db *sql.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

var _ domain.MessageRepository = (*MessageRepo)(nil)

const messageColumns = `id, conversation_id, sender_id, text, seen, created_at`

// Append locks the conversation row so concurrent appends to the same
// conversation serialize and last_message always reflects the newest row.
func (r *MessageRepo) Append(ctx context.Context, conversationID string, senderID int64, text string, now time.Time) (*domain.Message, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var (
		a, b     int64
		lastTime sql.NullTime
	)
	err = tx.QueryRowContext(ctx, `
		SELECT participant_a, participant_b, last_message_time
		FROM conversations WHERE id = $1 FOR UPDATE
	`, conversationID).Scan(&a, &b, &lastTime)
	if isNoRows(err) {
		return nil, fmt.Errorf("conversation %s: %w", conversationID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	if senderID != a && senderID != b {
		return nil, fmt.Errorf("append to %s: %w", conversationID, domain.ErrForbidden)
	}

	// TIMESTAMPTZ keeps microseconds
	ts := now.UTC().Truncate(time.Microsecond)
	if lastTime.Valid && lastTime.Time.After(ts) {
		ts = lastTime.Time.UTC()
	}

	m := &domain.Message{ConversationID: conversationID, SenderID: senderID, Text: text, CreatedAt: ts}
	if err := tx.QueryRowContext(ctx, `
		INSERT INTO messages (conversation_id, sender_id, text, seen, created_at)
		VALUES ($1, $2, $3, FALSE, $4)
		RETURNING id
	`, conversationID, senderID, text, ts).Scan(&m.ID); err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE conversations SET last_message = $1, last_message_time = $2, updated_at = $2 WHERE id = $3
	`, text, ts, conversationID); err != nil {
		return nil, fmt.Errorf("update conversation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return m, nil
}

func (r *MessageRepo) ListForConversation(ctx context.Context, conversationID string) ([]*domain.Message, error) {
	return r.query(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE conversation_id = $1
		ORDER BY id ASC
	`, conversationID)
}

func (r *MessageRepo) ListBefore(ctx context.Context, conversationID string, beforeID int64, limit int) ([]*domain.Message, error) {
	if beforeID <= 0 {
		return r.query(ctx, `
			SELECT `+messageColumns+`
			FROM messages
			WHERE conversation_id = $1
			ORDER BY id DESC
			LIMIT $2
		`, conversationID, limit)
	}
	return r.query(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE conversation_id = $1 AND id < $2
		ORDER BY id DESC
		LIMIT $3
	`, conversationID, beforeID, limit)
}

func (r *MessageRepo) MarkSeen(ctx context.Context, conversationID string, viewerID int64) (int64, error) {
	var a, b int64
	err := r.db.QueryRowContext(ctx,
		`SELECT participant_a, participant_b FROM conversations WHERE id = $1`, conversationID).Scan(&a, &b)
	if isNoRows(err) {
		return 0, fmt.Errorf("conversation %s: %w", conversationID, domain.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("get conversation: %w", err)
	}
	if viewerID != a && viewerID != b {
		return 0, fmt.Errorf("mark seen %s: %w", conversationID, domain.ErrForbidden)
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE messages SET seen = TRUE
		WHERE conversation_id = $1 AND sender_id <> $2 AND seen = FALSE
	`, conversationID, viewerID)
	if err != nil {
		return 0, fmt.Errorf("mark seen: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

func (r *MessageRepo) query(ctx context.Context, query string, args ...any) ([]*domain.Message, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var res []*domain.Message
	for rows.Next() {
		m := &domain.Message{}
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Text, &m.Seen, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.CreatedAt = m.CreatedAt.UTC()
		res = append(res, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return res, nil
}
