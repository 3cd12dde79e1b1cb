package gateway

import (
	"context"

	"github.com/weiawesome/trip-chat/activity-chat-service/internal/domain"
	"github.com/weiawesome/trip-chat/activity-chat-service/internal/hub"
)

// Gateway is the boundary between transports and the chat core.
type Gateway interface {
	HandleJoin(ctx context.Context, s hub.Session, activityID string) error
	HandleLeave(ctx context.Context, s hub.Session, activityID string) error
	HandleTyping(ctx context.Context, s hub.Session, activityID, userName string) error
	HandleStopTyping(ctx context.Context, s hub.Session, activityID string) error
	HandleDisconnect(ctx context.Context, s hub.Session)

	SendMessage(ctx context.Context, req SendRequest) (*domain.ChatMessage, error)
	GetHistory(ctx context.Context, req HistoryRequest) (*domain.ChatHistory, error)
	ListConversations(ctx context.Context, userID string) ([]domain.ConversationSummary, error)
	MarkRead(ctx context.Context, userID, activityID string) (*domain.ReadReceipt, error)
	UnreadCount(ctx context.Context, userID, activityID string) (*domain.UnreadSummary, error)
	Presence(ctx context.Context, userID, activityID string) (*domain.PresenceSnapshot, error)

	Start(ctx context.Context) error
	Stop() error
}

type SendRequest struct {
	UserID      string
	DisplayName string
	ActivityID  string
	Body        string
	Kind        string
}

type HistoryRequest struct {
	UserID     string
	ActivityID string
	Limit      int
	Order      domain.ListOrder
}

// Authorizer checks access against a fresh activity snapshot.
type Authorizer interface {
	Authorize(ctx context.Context, userID, activityID string) (*domain.Activity, error)
}

// ActivityLister enumerates the activities a user belongs to.
type ActivityLister interface {
	ListByMember(ctx context.Context, userID string) ([]domain.Activity, error)
}

// Rooms is the live room membership the gateway mutates.
type Rooms interface {
	Join(activityID string, s hub.Session) bool
	Leave(activityID, sessionID string) bool
	RemoveSession(sessionID string) []string
	IsMember(activityID, sessionID string) bool
	OnlineUsers(activityID string) ([]string, int)
}

// Broadcaster fans an event out to a room.
type Broadcaster interface {
	Emit(activityID, kind string, payload interface{}, exclude string) error
}

// EventPublisher announces committed changes. Implementations never fail the caller.
type EventPublisher interface {
	MessageCreated(ctx context.Context, msg *domain.ChatMessage)
	MessageRead(ctx context.Context, receipt *domain.ReadReceipt)
}
