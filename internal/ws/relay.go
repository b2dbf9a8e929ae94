package ws

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"marketchat/internal/domain"
	"marketchat/internal/presence"
	"marketchat/internal/service"
)

// Conversations is the slice of the conversation service the relay uses.
type Conversations interface {
	Authorize(ctx context.Context, userID int64, conversationID string) (*domain.Conversation, error)
	AppendMessage(ctx context.Context, senderID int64, conversationID, text string) (*service.AppendResult, error)
	MarkSeen(ctx context.Context, viewerID int64, conversationID string) (int64, error)
}

// Relay turns inbound events into store calls and fans the results out to
// room subscribers and, through the presence directory, to peers that are
// online elsewhere.
//
// Appends and seen updates for one conversation run under that
// conversation's lock so that the order of new_message frames matches the
// order of the log.
type Relay struct {
	hub      *Hub
	presence *presence.Directory[*Client]
	convs    Conversations
	validate *validator.Validate
	logger   *slog.Logger
	locks    *roomLocks
}

func NewRelay(hub *Hub, dir *presence.Directory[*Client], convs Conversations, logger *slog.Logger) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Relay{
		hub:      hub,
		presence: dir,
		convs:    convs,
		validate: v,
		logger:   logger,
		locks:    newRoomLocks(),
	}
}

// Post appends text to the conversation and delivers it. It is shared by
// the socket path and the HTTP API.
func (r *Relay) Post(ctx context.Context, senderID int64, conversationID, text string) (*service.AppendResult, error) {
	defer r.locks.lock(conversationID)()

	res, err := r.convs.AppendMessage(ctx, senderID, conversationID, text)
	if err != nil {
		return nil, err
	}

	r.hub.BroadcastRoom(conversationID, newMessageEvent{
		Type:           EventNewMessage,
		ConversationID: conversationID,
		Message:        res.Message,
	}, nil)

	other := res.Conversation.Other(senderID)
	if peer, ok := r.presence.Lookup(other); ok && !r.hub.InRoom(conversationID, peer) {
		r.hub.SendTo(peer, notificationEvent{
			Type:           EventNotification,
			Kind:           "message",
			ConversationID: conversationID,
			Message:        preview(res.Message.Text),
			Sender:         res.Message.Sender,
			CreatedAt:      res.Message.CreatedAt,
		})
	}
	return res, nil
}

// MarkSeen persists the viewer's seen state and tells the rest of the room.
// None of the viewer's own connections receive the event.
func (r *Relay) MarkSeen(ctx context.Context, viewerID int64, conversationID string) (int64, error) {
	defer r.locks.lock(conversationID)()

	n, err := r.convs.MarkSeen(ctx, viewerID, conversationID)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		r.hub.BroadcastRoomExceptUser(conversationID, seenEvent{
			Type:           EventMessagesSeen,
			ConversationID: conversationID,
			UserID:         viewerID,
			Count:          n,
		}, viewerID)
	}
	return n, nil
}

// dispatch handles one event from an identified client.
func (r *Relay) dispatch(ctx context.Context, c *Client, in *inbound) {
	userID := c.UserID()
	switch in.Type {
	case EventJoinRoom:
		if _, err := r.convs.Authorize(ctx, userID, in.ConversationID); err != nil {
			r.fail(c, in, err)
			return
		}
		r.hub.Join(in.ConversationID, c)
		r.hub.SendTo(c, roomEvent{Type: EventRoomJoined, ConversationID: in.ConversationID})

	case EventLeaveRoom:
		r.hub.Leave(in.ConversationID, c)
		r.hub.SendTo(c, roomEvent{Type: EventRoomLeft, ConversationID: in.ConversationID})

	case EventSendMessage:
		if _, err := r.Post(ctx, userID, in.ConversationID, in.Text); err != nil {
			r.fail(c, in, err)
		}

	case EventTyping, EventStopTyping:
		// advisory only; peers hear it only from a joined (and so authorized) client
		if !r.hub.InRoom(in.ConversationID, c) {
			return
		}
		out := EventUserTyping
		if in.Type == EventStopTyping {
			out = EventUserStopTyping
		}
		r.hub.BroadcastRoom(in.ConversationID, typingEvent{
			Type:           out,
			ConversationID: in.ConversationID,
			UserID:         userID,
		}, c)

	case EventMarkSeen:
		if _, err := r.MarkSeen(ctx, userID, in.ConversationID); err != nil {
			r.fail(c, in, err)
		}
	}
}

// fail reports err to the originating client only.
func (r *Relay) fail(c *Client, in *inbound, err error) {
	code, msg := classify(err)
	if code == CodeInternal {
		r.logger.Error("event failed", "event", in.Type, "conversation_id", in.ConversationID, "user_id", c.UserID(), "error", err)
	} else {
		r.logger.Warn("event rejected", "event", in.Type, "conversation_id", in.ConversationID, "user_id", c.UserID(), "code", code)
	}
	r.hub.SendTo(c, errorEvent{
		Type:           EventError,
		Code:           code,
		Message:        msg,
		Event:          in.Type,
		ConversationID: in.ConversationID,
	})
}

// reject reports a malformed or premature frame.
func (r *Relay) reject(c *Client, eventType, code, msg string) {
	r.hub.SendTo(c, errorEvent{Type: EventError, Code: code, Message: msg, Event: eventType})
}

func (r *Relay) validateInbound(in *inbound) error {
	if err := r.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%s failed %s validation", verrs[0].Field(), verrs[0].Tag())
		}
		return err
	}
	return nil
}
