package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"marketchat/internal/domain"
)

type ConversationRepo struct {
	db *sql.DB
}

func NewConversationRepo(db *sql.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

var _ domain.ConversationRepository = (*ConversationRepo)(nil)

const conversationColumns = `id, participant_a, participant_b, product_id, pair_key, last_message, last_message_time, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversation(row rowScanner) (*domain.Conversation, error) {
	c := &domain.Conversation{}
	var (
		last     sql.NullString
		lastTime sql.NullTime
	)
	if err := row.Scan(
		&c.ID, &c.ParticipantA, &c.ParticipantB, &c.ProductID, &c.PairKey,
		&last, &lastTime, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if last.Valid {
		c.LastMessage = &last.String
	}
	if lastTime.Valid {
		t := lastTime.Time.UTC()
		c.LastMessageTime = &t
	}
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return c, nil
}

func (r *ConversationRepo) Create(ctx context.Context, c *domain.Conversation) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.PairKey == "" {
		c.PairKey = domain.PairKey(c.ParticipantA, c.ParticipantB, c.ProductID)
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO conversations (id, participant_a, participant_b, product_id, pair_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, c.ID, c.ParticipantA, c.ParticipantB, c.ProductID, c.PairKey, c.CreatedAt.UTC(), c.UpdatedAt.UTC())
	return wrapUnique("insert conversation", err)
}

func (r *ConversationRepo) GetByID(ctx context.Context, id string) (*domain.Conversation, error) {
	c, err := scanConversation(r.db.QueryRowContext(ctx,
		`SELECT `+conversationColumns+` FROM conversations WHERE id = $1`, id))
	if isNoRows(err) {
		return nil, fmt.Errorf("conversation %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	return c, nil
}

func (r *ConversationRepo) FindByPairKey(ctx context.Context, pairKey string) (*domain.Conversation, error) {
	c, err := scanConversation(r.db.QueryRowContext(ctx,
		`SELECT `+conversationColumns+` FROM conversations WHERE pair_key = $1`, pairKey))
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find conversation: %w", err)
	}
	return c, nil
}

func (r *ConversationRepo) ListForUser(ctx context.Context, userID int64) ([]*domain.Conversation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+conversationColumns+`
		FROM conversations
		WHERE participant_a = $1 OR participant_b = $1
		ORDER BY COALESCE(last_message_time, created_at) DESC, id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var res []*domain.Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		res = append(res, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return res, nil
}

func (r *ConversationRepo) Delete(ctx context.Context, id string, requesterID int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var a, b int64
	err = tx.QueryRowContext(ctx,
		`SELECT participant_a, participant_b FROM conversations WHERE id = $1 FOR UPDATE`, id).Scan(&a, &b)
	if isNoRows(err) {
		return fmt.Errorf("conversation %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("get conversation: %w", err)
	}
	if requesterID != a && requesterID != b {
		return fmt.Errorf("delete conversation %s: %w", id, domain.ErrForbidden)
	}

	// messages go with the ON DELETE CASCADE
	if _, err := tx.ExecContext(ctx, `DELETE FROM conversations WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
