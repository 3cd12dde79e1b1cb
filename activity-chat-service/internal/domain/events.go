package domain

import "time"

// WebSocket message types from client.
const (
	MsgTypeJoin       = "join"
	MsgTypeLeave      = "leave"
	MsgTypeTyping     = "typing"
	MsgTypeStopTyping = "stopTyping"
	MsgTypePing       = "ping"
)

// WebSocket message types to client.
const (
	MsgTypeUserJoined        = "user-joined"
	MsgTypeUserLeft          = "user-left"
	MsgTypeUserTyping        = "user-typing"
	MsgTypeUserStoppedTyping = "user-stopped-typing"
	MsgTypeNewMessage        = "new-message"
	MsgTypeRoomJoined        = "room-joined"
	MsgTypePong              = "pong"
	MsgTypeError             = "error"
)

// Error codes carried by error frames.
const (
	ErrCodeBadRequest   = "BAD_REQUEST"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeForbidden    = "FORBIDDEN"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeNotInRoom    = "NOT_IN_ROOM"
	ErrCodeInternal     = "INTERNAL_ERROR"
)

// BaseMessage is the base structure for all WebSocket messages.
type BaseMessage struct {
	Type string `json:"type"`
}

// Client -> Server messages

// RoomMessage carries join, leave and stopTyping.
type RoomMessage struct {
	Type       string `json:"type"`
	ActivityID string `json:"activityId"`
}

type TypingMessage struct {
	Type       string `json:"type"`
	ActivityID string `json:"activityId"`
	UserName   string `json:"userName"`
}

// Server -> Client messages

type PresenceEvent struct {
	Type       string `json:"type"`
	ActivityID string `json:"activityId"`
	SessionID  string `json:"sessionId"`
}

type TypingEvent struct {
	Type       string `json:"type"`
	ActivityID string `json:"activityId"`
	UserName   string `json:"userName,omitempty"`
}

type RoomJoinedEvent struct {
	Type       string `json:"type"`
	ActivityID string `json:"activityId"`
}

// NewMessageEvent flattens the committed record next to the type tag.
type NewMessageEvent struct {
	Type       string    `json:"type"`
	ID         string    `json:"id"`
	ActivityID string    `json:"activityId"`
	SenderID   string    `json:"senderId"`
	SenderName string    `json:"senderName"`
	Content    string    `json:"content"`
	Kind       string    `json:"kind"`
	CreatedAt  time.Time `json:"createdAt"`
	ReadBy     []string  `json:"readBy"`
}

func NewNewMessageEvent(m *ChatMessage) *NewMessageEvent {
	return &NewMessageEvent{
		Type:       MsgTypeNewMessage,
		ID:         m.ID,
		ActivityID: m.ActivityID,
		SenderID:   m.SenderID,
		SenderName: m.SenderName,
		Content:    m.Content,
		Kind:       m.Kind,
		CreatedAt:  m.CreatedAt,
		ReadBy:     m.ReadBy,
	}
}

type PongMessage struct {
	Type string `json:"type"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewErrorMessage(code, message string) *ErrorMessage {
	return &ErrorMessage{
		Type:    MsgTypeError,
		Code:    code,
		Message: message,
	}
}
