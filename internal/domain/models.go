package domain

import (
	"fmt"
	"time"
)

// User roles in the marketplace.
const (
	RoleBuyer  = "buyer"
	RoleSeller = "seller"
	RoleAdmin  = "admin"
)

// User represents a marketplace account.
type User struct {
	ID             int64     `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	Email          string    `db:"email" json:"email"`
	HashedPassword string    `db:"hashed_password" json:"-"`
	ShopName       *string   `db:"shop_name" json:"shop_name,omitempty"`
	Role           string    `db:"role" json:"role"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// Identity is the display projection of a user attached to conversations and messages.
type Identity struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	ShopName *string `json:"shop_name,omitempty"`
}

// Identity returns the display projection of u.
func (u *User) Identity() *Identity {
	return &Identity{ID: u.ID, Name: u.Name, ShopName: u.ShopName}
}

// Product is the catalog entry a conversation is anchored to. Only the
// fields needed for display are kept here.
type Product struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Image     *string   `db:"image" json:"image,omitempty"`
	SellerID  int64     `db:"seller_id" json:"seller_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Conversation is a two-party chat about a product. ParticipantA is the
// user who opened it.
type Conversation struct {
	ID              string     `db:"id"`
	ParticipantA    int64      `db:"participant_a"`
	ParticipantB    int64      `db:"participant_b"`
	ProductID       int64      `db:"product_id"`
	PairKey         string     `db:"pair_key"`
	LastMessage     *string    `db:"last_message"`
	LastMessageTime *time.Time `db:"last_message_time"`
	CreatedAt       time.Time  `db:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"`
}

// Participants returns both participants in creation order.
func (c *Conversation) Participants() [2]int64 {
	return [2]int64{c.ParticipantA, c.ParticipantB}
}

// HasParticipant reports whether userID is one of the two participants.
func (c *Conversation) HasParticipant(userID int64) bool {
	return userID == c.ParticipantA || userID == c.ParticipantB
}

// Other returns the participant that is not userID.
func (c *Conversation) Other(userID int64) int64 {
	if userID == c.ParticipantA {
		return c.ParticipantB
	}
	return c.ParticipantA
}

// ActivityTime is the sort key for conversation lists: the last message
// time, or the creation time for conversations without messages.
func (c *Conversation) ActivityTime() time.Time {
	if c.LastMessageTime != nil {
		return *c.LastMessageTime
	}
	return c.CreatedAt
}

// PairKey builds the uniqueness key of a conversation. The pair is
// unordered so the smaller id always comes first.
func PairKey(userA, userB, productID int64) string {
	if userA > userB {
		userA, userB = userB, userA
	}
	return fmt.Sprintf("%d:%d:%d", userA, userB, productID)
}

// Message is one entry of a conversation's append-only log.
type Message struct {
	ID             int64     `db:"id"`
	ConversationID string    `db:"conversation_id"`
	SenderID       int64     `db:"sender_id"`
	Text           string    `db:"text"`
	Seen           bool      `db:"seen"`
	CreatedAt      time.Time `db:"created_at"`
}
