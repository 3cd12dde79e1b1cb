package domain

import "time"

// Message kinds. Anything else is passed through untouched.
const (
	KindText = "text"
)

// ChatMessage is one committed entry of an activity's chat log.
type ChatMessage struct {
	ID         string    `json:"id" bson:"_id"`
	ActivityID string    `json:"activityId" bson:"activityId"`
	SenderID   string    `json:"senderId" bson:"senderId"`
	SenderName string    `json:"senderName" bson:"senderName"`
	Content    string    `json:"content" bson:"content"`
	Kind       string    `json:"kind" bson:"kind"`
	CreatedAt  time.Time `json:"createdAt" bson:"createdAt"`
	ReadBy     []string  `json:"readBy" bson:"readBy"`
}

// HasRead reports whether userID is in ReadBy.
func (m *ChatMessage) HasRead(userID string) bool {
	for _, id := range m.ReadBy {
		if id == userID {
			return true
		}
	}
	return false
}

// IsUnreadFor reports whether the message counts toward userID's unread total.
func (m *ChatMessage) IsUnreadFor(userID string) bool {
	return m.SenderID != userID && !m.HasRead(userID)
}

// ListOrder selects which end of the log a bounded list read takes.
type ListOrder string

const (
	// ListLatest returns the most recent messages, oldest first.
	ListLatest ListOrder = "latest"
	// ListEarliest returns the first messages of the log, oldest first.
	ListEarliest ListOrder = "earliest"
)

// ParseListOrder maps a query value onto a ListOrder. Empty means
// ListLatest; anything else unknown reports false.
func ParseListOrder(s string) (ListOrder, bool) {
	switch ListOrder(s) {
	case "", ListLatest:
		return ListLatest, true
	case ListEarliest:
		return ListEarliest, true
	default:
		return "", false
	}
}

// ChatHistory is the read-path response.
type ChatHistory struct {
	Activity ActivitySnapshot `json:"activity"`
	Messages []ChatMessage    `json:"messages"`
}

// ConversationSummary is one row of a user's conversation list.
type ConversationSummary struct {
	ActivityID    string       `json:"activityId"`
	Name          string       `json:"name"`
	Location      string       `json:"location"`
	HostID        string       `json:"hostId"`
	Participants  []string     `json:"participants"`
	LastMessage   *ChatMessage `json:"lastMessage"`
	LastMessageAt *time.Time   `json:"lastMessageAt"`
	UnreadCount   int64        `json:"unreadCount"`
	CreatedAt     time.Time    `json:"createdAt"`
}

// SortKey is the time a summary is ordered by: the last message, or the
// activity's own creation time when it has none.
func (s *ConversationSummary) SortKey() time.Time {
	if s.LastMessageAt != nil {
		return *s.LastMessageAt
	}
	return s.CreatedAt
}

// UnreadSummary is the unread query response.
type UnreadSummary struct {
	ActivityID  string `json:"activityId"`
	UnreadCount int64  `json:"unreadCount"`
}

// ReadReceipt is the read acknowledgment response.
type ReadReceipt struct {
	ActivityID string `json:"activityId"`
	UserID     string `json:"userId"`
	Updated    int64  `json:"updated"`
}

// PresenceSnapshot lists who is live in an activity's room.
type PresenceSnapshot struct {
	ActivityID   string   `json:"activityId"`
	OnlineUsers  []string `json:"onlineUsers"`
	SessionCount int      `json:"sessionCount"`
}
