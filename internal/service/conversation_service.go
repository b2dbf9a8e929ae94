package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"marketchat/internal/domain"
)

// findOrCreateAttempts bounds the create/lookup retry loop. A conflict is
// only followed by a miss when the winning row is deleted in between.
const findOrCreateAttempts = 3

// ConversationView is a conversation enriched with participant and product
// display metadata.
type ConversationView struct {
	ID              string             `json:"id"`
	Participants    []*domain.Identity `json:"participants"`
	ProductID       int64              `json:"product_id"`
	Product         *domain.Product    `json:"product,omitempty"`
	LastMessage     *string            `json:"last_message"`
	LastMessageTime *time.Time         `json:"last_message_time"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
	Messages        []*MessageView     `json:"messages,omitempty"`
}

// MessageView is a message with its sender's identity resolved.
type MessageView struct {
	ID             int64            `json:"id"`
	ConversationID string           `json:"conversation_id"`
	SenderID       int64            `json:"sender_id"`
	Sender         *domain.Identity `json:"sender"`
	Text           string           `json:"text"`
	Seen           bool             `json:"seen"`
	CreatedAt      time.Time        `json:"created_at"`
}

// MessagePage is one reverse-chronological page of history, returned in
// chronological order.
type MessagePage struct {
	Messages   []*MessageView `json:"messages"`
	HasMore    bool           `json:"has_more"`
	NextBefore *int64         `json:"next_before,omitempty"`
}

// AppendResult carries what the relay needs to fan out a new message.
type AppendResult struct {
	Message      *MessageView
	Conversation *domain.Conversation
}

type ConversationService struct {
	conversations domain.ConversationRepository
	messages      domain.MessageRepository
	products      domain.ProductRepository
	identities    *IdentityService
	logger        *slog.Logger

	maxMessageLength int
	pageSize         int
	now              func() time.Time
}

type ConversationServiceOptions struct {
	MaxMessageLength int
	PageSize         int
}

func NewConversationService(
	conversations domain.ConversationRepository,
	messages domain.MessageRepository,
	products domain.ProductRepository,
	identities *IdentityService,
	logger *slog.Logger,
	opts ConversationServiceOptions,
) *ConversationService {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MaxMessageLength <= 0 {
		opts.MaxMessageLength = 5000
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 50
	}
	return &ConversationService{
		conversations:    conversations,
		messages:         messages,
		products:         products,
		identities:       identities,
		logger:           logger,
		maxMessageLength: opts.MaxMessageLength,
		pageSize:         opts.PageSize,
		now:              time.Now,
	}
}

// FindOrCreate returns the conversation between callerID and otherID about
// productID, creating it when none exists. Concurrent callers converge on
// one row: the loser of the insert race sees ErrConflict and re-reads.
func (s *ConversationService) FindOrCreate(ctx context.Context, callerID, otherID, productID int64) (*ConversationView, bool, error) {
	if otherID <= 0 || productID <= 0 {
		return nil, false, fmt.Errorf("%w: other user and product are required", domain.ErrInvalidInput)
	}
	if callerID == otherID {
		return nil, false, fmt.Errorf("%w: cannot open a conversation with yourself", domain.ErrInvalidInput)
	}
	if _, err := s.identities.Lookup(ctx, otherID); err != nil {
		return nil, false, err
	}

	key := domain.PairKey(callerID, otherID, productID)
	for attempt := 0; attempt < findOrCreateAttempts; attempt++ {
		existing, err := s.conversations.FindByPairKey(ctx, key)
		if err != nil {
			return nil, false, err
		}
		if existing != nil {
			return s.view(ctx, existing), false, nil
		}

		now := s.now().UTC()
		c := &domain.Conversation{
			ParticipantA: callerID,
			ParticipantB: otherID,
			ProductID:    productID,
			PairKey:      key,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		err = s.conversations.Create(ctx, c)
		if err == nil {
			s.logger.Info("conversation created", "conversation_id", c.ID, "product_id", productID)
			return s.view(ctx, c), true, nil
		}
		if !errors.Is(err, domain.ErrConflict) {
			return nil, false, err
		}
		s.logger.Debug("conversation create raced, re-reading", "pair_key", key)
	}
	return nil, false, fmt.Errorf("find or create %s: %w", key, domain.ErrConflict)
}

// ListForUser returns the user's conversations, most recently active first.
func (s *ConversationService) ListForUser(ctx context.Context, userID int64) ([]*ConversationView, error) {
	convs, err := s.conversations.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	res := make([]*ConversationView, 0, len(convs))
	for _, c := range convs {
		res = append(res, s.view(ctx, c))
	}
	return res, nil
}

// Authorize loads the conversation and checks that userID takes part in it.
func (s *ConversationService) Authorize(ctx context.Context, userID int64, conversationID string) (*domain.Conversation, error) {
	c, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !c.HasParticipant(userID) {
		return nil, fmt.Errorf("conversation %s: %w", conversationID, domain.ErrForbidden)
	}
	return c, nil
}

// Get returns the conversation with its full message log.
func (s *ConversationService) Get(ctx context.Context, callerID int64, conversationID string) (*ConversationView, error) {
	c, err := s.Authorize(ctx, callerID, conversationID)
	if err != nil {
		return nil, err
	}
	msgs, err := s.messages.ListForConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	v := s.view(ctx, c)
	v.Messages = s.messageViews(ctx, msgs)
	return v, nil
}

// AppendMessage validates text and appends it to the conversation log.
func (s *ConversationService) AppendMessage(ctx context.Context, senderID int64, conversationID, text string) (*AppendResult, error) {
	text, err := s.normalizeText(text)
	if err != nil {
		return nil, err
	}
	if conversationID == "" {
		return nil, fmt.Errorf("%w: conversation_id is required", domain.ErrInvalidInput)
	}

	// participants are immutable; Append re-checks membership in its own tx
	c, err := s.Authorize(ctx, senderID, conversationID)
	if err != nil {
		return nil, err
	}
	m, err := s.messages.Append(ctx, conversationID, senderID, text, s.now())
	if err != nil {
		return nil, err
	}
	c.LastMessage = &m.Text
	c.LastMessageTime = &m.CreatedAt

	return &AppendResult{
		Message:      s.messageView(ctx, m),
		Conversation: c,
	}, nil
}

// MarkSeen flags the peer's unseen messages as seen by viewerID.
func (s *ConversationService) MarkSeen(ctx context.Context, viewerID int64, conversationID string) (int64, error) {
	if conversationID == "" {
		return 0, fmt.Errorf("%w: conversation_id is required", domain.ErrInvalidInput)
	}
	return s.messages.MarkSeen(ctx, conversationID, viewerID)
}

// Delete removes the conversation and its history.
func (s *ConversationService) Delete(ctx context.Context, requesterID int64, conversationID string) error {
	if err := s.conversations.Delete(ctx, conversationID, requesterID); err != nil {
		return err
	}
	s.logger.Info("conversation deleted", "conversation_id", conversationID, "user_id", requesterID)
	return nil
}

// ListMessages pages backwards through history. beforeID of zero starts at
// the newest message; limit is clamped to the configured page size.
func (s *ConversationService) ListMessages(ctx context.Context, callerID int64, conversationID string, beforeID int64, limit int) (*MessagePage, error) {
	if _, err := s.Authorize(ctx, callerID, conversationID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > s.pageSize {
		limit = s.pageSize
	}

	msgs, err := s.messages.ListBefore(ctx, conversationID, beforeID, limit+1)
	if err != nil {
		return nil, err
	}
	page := &MessagePage{}
	if len(msgs) > limit {
		page.HasMore = true
		msgs = msgs[:limit]
	}
	// newest first from the store; flip to chronological
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	page.Messages = s.messageViews(ctx, msgs)
	if page.HasMore && len(msgs) > 0 {
		oldest := msgs[0].ID
		page.NextBefore = &oldest
	}
	return page, nil
}

func (s *ConversationService) normalizeText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: text is required", domain.ErrInvalidInput)
	}
	if utf8.RuneCountInString(text) > s.maxMessageLength {
		return "", fmt.Errorf("%w: text exceeds %d characters", domain.ErrInvalidInput, s.maxMessageLength)
	}
	return text, nil
}

func (s *ConversationService) view(ctx context.Context, c *domain.Conversation) *ConversationView {
	v := &ConversationView{
		ID:              c.ID,
		ProductID:       c.ProductID,
		LastMessage:     c.LastMessage,
		LastMessageTime: c.LastMessageTime,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
	for _, id := range c.Participants() {
		v.Participants = append(v.Participants, s.identities.Resolve(ctx, id))
	}
	if s.products != nil {
		p, err := s.products.GetByID(ctx, c.ProductID)
		if err != nil {
			s.logger.Warn("product lookup failed", "product_id", c.ProductID, "error", err)
		}
		v.Product = p
	}
	return v
}

func (s *ConversationService) messageView(ctx context.Context, m *domain.Message) *MessageView {
	return &MessageView{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Sender:         s.identities.Resolve(ctx, m.SenderID),
		Text:           m.Text,
		Seen:           m.Seen,
		CreatedAt:      m.CreatedAt,
	}
}

func (s *ConversationService) messageViews(ctx context.Context, msgs []*domain.Message) []*MessageView {
	res := make([]*MessageView, 0, len(msgs))
	senders := make(map[int64]*domain.Identity, 2)
	for _, m := range msgs {
		ident, ok := senders[m.SenderID]
		if !ok {
			ident = s.identities.Resolve(ctx, m.SenderID)
			senders[m.SenderID] = ident
		}
		res = append(res, &MessageView{
			ID:             m.ID,
			ConversationID: m.ConversationID,
			SenderID:       m.SenderID,
			Sender:         ident,
			Text:           m.Text,
			Seen:           m.Seen,
			CreatedAt:      m.CreatedAt,
		})
	}
	return res
}
