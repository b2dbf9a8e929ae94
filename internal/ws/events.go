package ws

import (
	"errors"
	"time"

	"marketchat/internal/domain"
	"marketchat/internal/service"
)

// Inbound event types.
const (
	EventIdentify    = "identify"
	EventJoinRoom    = "join_room"
	EventLeaveRoom   = "leave_room"
	EventSendMessage = "send_message"
	EventTyping      = "typing"
	EventStopTyping  = "stop_typing"
	EventMarkSeen    = "mark_seen"
)

// Outbound event types.
const (
	EventIdentified     = "identified"
	EventRoomJoined     = "room_joined"
	EventRoomLeft       = "room_left"
	EventNewMessage     = "new_message"
	EventNotification   = "notification"
	EventUserOnline     = "user_online"
	EventUserOffline    = "user_offline"
	EventUserTyping     = "user_typing"
	EventUserStopTyping = "user_stop_typing"
	EventMessagesSeen   = "messages_seen"
	EventError          = "error"
)

// Error codes carried by error events.
const (
	CodeNotFound     = "not_found"
	CodeForbidden    = "forbidden"
	CodeInvalidInput = "invalid_input"
	CodeUnauthorized = "unauthorized"
	CodeInternal     = "internal"
)

// inbound is the envelope of every client frame.
type inbound struct {
	Type           string `json:"type" validate:"required,oneof=identify join_room leave_room send_message typing stop_typing mark_seen"`
	ConversationID string `json:"conversation_id" validate:"required_unless=Type identify,max=64"`
	Text           string `json:"text" validate:"required_if=Type send_message"`
	UserID         int64  `json:"user_id" validate:"gte=0"`
}

type identifiedEvent struct {
	Type   string `json:"type"`
	UserID int64  `json:"user_id"`
}

type roomEvent struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id"`
}

type newMessageEvent struct {
	Type           string               `json:"type"`
	ConversationID string               `json:"conversation_id"`
	Message        *service.MessageView `json:"message"`
}

type notificationEvent struct {
	Type           string           `json:"type"`
	Kind           string           `json:"kind"`
	ConversationID string           `json:"conversation_id"`
	Message        string           `json:"message"`
	Sender         *domain.Identity `json:"sender"`
	CreatedAt      time.Time        `json:"created_at"`
}

type presenceEvent struct {
	Type   string `json:"type"`
	UserID int64  `json:"user_id"`
}

type typingEvent struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id"`
	UserID         int64  `json:"user_id"`
}

type seenEvent struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id"`
	UserID         int64  `json:"user_id"`
	Count          int64  `json:"count"`
}

type errorEvent struct {
	Type           string `json:"type"`
	Code           string `json:"code"`
	Message        string `json:"message"`
	Event          string `json:"event,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// previewLength caps the text carried by notification events.
const previewLength = 100

func preview(text string) string {
	r := []rune(text)
	if len(r) <= previewLength {
		return text
	}
	return string(r[:previewLength]) + "…"
}

// classify maps an error to the code and user-facing message of an error
// event.
func classify(err error) (string, string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return CodeNotFound, "conversation no longer exists"
	case errors.Is(err, domain.ErrForbidden):
		return CodeForbidden, "not authorized"
	case errors.Is(err, domain.ErrInvalidInput):
		return CodeInvalidInput, err.Error()
	case errors.Is(err, domain.ErrUnauthorized):
		return CodeUnauthorized, err.Error()
	default:
		return CodeInternal, domain.ErrInternal.Error()
	}
}
