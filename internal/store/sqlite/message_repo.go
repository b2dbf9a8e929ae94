package sqlite

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

// Append adds a message to the conversation log and updates the
// conversation's last message fields in the same transaction. The stored
// timestamp never goes backwards relative to the previous message.
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
		SELECT participant_a, participant_b, last_message_time FROM conversations WHERE id = ?
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

	ts := now.UTC()
	if lastTime.Valid && lastTime.Time.After(ts) {
		ts = lastTime.Time.UTC()
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO messages (conversation_id, sender_id, text, seen, created_at)
		VALUES (?, ?, ?, 0, ?)
	`, conversationID, senderID, text, ts)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE conversations SET last_message = ?, last_message_time = ?, updated_at = ? WHERE id = ?
	`, text, ts, ts, conversationID); err != nil {
		return nil, fmt.Errorf("update conversation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return &domain.Message{
		ID:             id,
		ConversationID: conversationID,
		SenderID:       senderID,
		Text:           text,
		Seen:           false,
		CreatedAt:      ts,
	}, nil
}

// ListForConversation returns the whole log in append order.
func (r *MessageRepo) ListForConversation(ctx context.Context, conversationID string) ([]*domain.Message, error) {
	return r.query(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE conversation_id = ?
		ORDER BY id ASC
	`, conversationID)
}

// ListBefore returns up to limit messages older than beforeID, newest
// first. A beforeID of zero starts from the newest message.
func (r *MessageRepo) ListBefore(ctx context.Context, conversationID string, beforeID int64, limit int) ([]*domain.Message, error) {
	if beforeID <= 0 {
		return r.query(ctx, `
			SELECT `+messageColumns+`
			FROM messages
			WHERE conversation_id = ?
			ORDER BY id DESC
			LIMIT ?
		`, conversationID, limit)
	}
	return r.query(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE conversation_id = ? AND id < ?
		ORDER BY id DESC
		LIMIT ?
	`, conversationID, beforeID, limit)
}

// MarkSeen flags every unseen message not sent by viewerID and returns how
// many rows changed. Repeating it is a no-op.
func (r *MessageRepo) MarkSeen(ctx context.Context, conversationID string, viewerID int64) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var a, b int64
	err = tx.QueryRowContext(ctx, `SELECT participant_a, participant_b FROM conversations WHERE id = ?`, conversationID).Scan(&a, &b)
	if isNoRows(err) {
		return 0, fmt.Errorf("conversation %s: %w", conversationID, domain.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("get conversation: %w", err)
	}
	if viewerID != a && viewerID != b {
		return 0, fmt.Errorf("mark seen %s: %w", conversationID, domain.ErrForbidden)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE messages SET seen = 1
		WHERE conversation_id = ? AND sender_id <> ? AND seen = 0
	`, conversationID, viewerID)
	if err != nil {
		return 0, fmt.Errorf("mark seen: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
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
		if err := rows.Scan(
			&m.ID,
			&m.ConversationID,
			&m.SenderID,
			&m.Text,
			&m.Seen,
			&m.CreatedAt,
		); err != nil {
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
