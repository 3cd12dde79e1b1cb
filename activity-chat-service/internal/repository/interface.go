package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/weiawesome/trip-chat/activity-chat-service/internal/domain"
)

var (
	ErrActivityNotFound = errors.New("activity not found")
	ErrMessageNotFound  = errors.New("message not found")
)

// DefaultListLimit applies when ListOptions.Limit is not positive.
const DefaultListLimit = 100

// IDGenerator assigns a message id and its commit timestamp in one step.
type IDGenerator interface {
	Next() (id string, createdAt time.Time, err error)
}

// ListOptions bounds a history read. Results are always oldest first.
type ListOptions struct {
	Limit int
	Order domain.ListOrder
}

func (o ListOptions) limit() int {
	if o.Limit <= 0 {
		return DefaultListLimit
	}
	return o.Limit
}

// MessageRepository is the durable, append-only chat log.
// Within one activity, messages are totally ordered by (CreatedAt, ID).
type MessageRepository interface {
	// Append assigns id and timestamp, seeds ReadBy with the sender and
	// writes the message. The returned record is what was committed.
	Append(ctx context.Context, msg *domain.ChatMessage) (*domain.ChatMessage, error)

	// List returns up to opts.Limit messages as a snapshot, oldest first.
	List(ctx context.Context, activityID string, opts ListOptions) ([]domain.ChatMessage, error)

	// CountUnread counts messages with senderId != userID and userID not in readBy.
	CountUnread(ctx context.Context, activityID, userID string) (int64, error)

	// Latest returns the most recent message or ErrMessageNotFound.
	Latest(ctx context.Context, activityID string) (*domain.ChatMessage, error)

	// MarkRead adds userID to readBy of every message of the activity that
	// lacks it and returns how many messages changed.
	MarkRead(ctx context.Context, activityID, userID string) (int64, error)

	Close() error
}

// ActivityRepository is the external activity directory.
type ActivityRepository interface {
	GetActivity(ctx context.Context, activityID string) (*domain.Activity, error)

	// ListByMember returns every activity where userID is host or participant.
	ListByMember(ctx context.Context, userID string) ([]domain.Activity, error)

	Close() error
}

// stamp fills the server-assigned fields of a message about to be appended.
func stamp(gen IDGenerator, msg *domain.ChatMessage) (*domain.ChatMessage, error) {
	if msg.ActivityID == "" {
		return nil, errors.New("message has no activity id")
	}

	id, createdAt, err := gen.Next()
	if err != nil {
		return nil, fmt.Errorf("failed to assign message id: %w", err)
	}

	out := *msg
	out.ID = id
	out.CreatedAt = createdAt
	if out.Kind == "" {
		out.Kind = domain.KindText
	}
	out.ReadBy = []string{msg.SenderID}
	for _, r := range msg.ReadBy {
		if r != msg.SenderID {
			out.ReadBy = append(out.ReadBy, r)
		}
	}
	return &out, nil
}

// reverse flips a newest-first page into oldest-first.
func reverse(msgs []domain.ChatMessage) {
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
}
