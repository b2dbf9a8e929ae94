package domain

import (
	"context"
	"time"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
}

// ProductRepository resolves product display metadata.
type ProductRepository interface {
	Create(ctx context.Context, p *Product) error
	GetByID(ctx context.Context, id int64) (*Product, error)
}

// ConversationRepository defines persistence operations for conversations.
//
// Create must enforce uniqueness of PairKey and return ErrConflict when a
// conversation with the same key already exists.
type ConversationRepository interface {
	Create(ctx context.Context, c *Conversation) error
	GetByID(ctx context.Context, id string) (*Conversation, error)
	FindByPairKey(ctx context.Context, pairKey string) (*Conversation, error)
	ListForUser(ctx context.Context, userID int64) ([]*Conversation, error)
	Delete(ctx context.Context, id string, requesterID int64) error
}

// MessageRepository defines operations on a conversation's message log.
//
// Append validates that senderID is a participant, inserts the message and
// updates the conversation's last message fields in one transaction.
type MessageRepository interface {
	Append(ctx context.Context, conversationID string, senderID int64, text string, now time.Time) (*Message, error)
	ListForConversation(ctx context.Context, conversationID string) ([]*Message, error)
	ListBefore(ctx context.Context, conversationID string, beforeID int64, limit int) ([]*Message, error)
	MarkSeen(ctx context.Context, conversationID string, viewerID int64) (int64, error)
}
