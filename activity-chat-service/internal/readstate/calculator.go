package readstate

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/weiawesome/trip-chat/activity-chat-service/internal/domain"
	"github.com/weiawesome/trip-chat/activity-chat-service/internal/repository"
)

const defaultConcurrency = 8

// MessageReader is the part of the message store read state is derived from.
type MessageReader interface {
	CountUnread(ctx context.Context, activityID, userID string) (int64, error)
	Latest(ctx context.Context, activityID string) (*domain.ChatMessage, error)
}

// Calculator derives unread counts and conversation summaries on demand.
// Nothing is cached.
type Calculator struct {
	messages    MessageReader
	concurrency int
}

func NewCalculator(messages MessageReader, concurrency int) *Calculator {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Calculator{messages: messages, concurrency: concurrency}
}

func (c *Calculator) Unread(ctx context.Context, activityID, userID string) (int64, error) {
	return c.messages.CountUnread(ctx, activityID, userID)
}

// Summary builds one conversation row. An activity without messages has a
// nil last message and zero unread.
func (c *Calculator) Summary(ctx context.Context, userID string, activity *domain.Activity) (*domain.ConversationSummary, error) {
	participants := activity.Participants
	if participants == nil {
		participants = []string{}
	}
	summary := &domain.ConversationSummary{
		ActivityID:   activity.ID,
		Name:         activity.Name,
		Location:     activity.Location,
		HostID:       activity.HostID,
		Participants: participants,
		CreatedAt:    activity.CreatedAt,
	}

	last, err := c.messages.Latest(ctx, activity.ID)
	if errors.Is(err, repository.ErrMessageNotFound) {
		return summary, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load latest message of %s: %w", activity.ID, err)
	}

	unread, err := c.messages.CountUnread(ctx, activity.ID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count unread of %s: %w", activity.ID, err)
	}

	lastAt := last.CreatedAt
	summary.LastMessage = last
	summary.LastMessageAt = &lastAt
	summary.UnreadCount = unread
	return summary, nil
}

// Summaries builds rows for every activity in parallel and sorts them by
// last activity, newest first.
func (c *Calculator) Summaries(ctx context.Context, userID string, activities []domain.Activity) ([]domain.ConversationSummary, error) {
	out := make([]domain.ConversationSummary, len(activities))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for i := range activities {
		i := i
		g.Go(func() error {
			s, err := c.Summary(gCtx, userID, &activities[i])
			if err != nil {
				return err
			}
			out[i] = *s
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	SortSummaries(out)
	return out, nil
}

// SortSummaries orders by SortKey descending, then activity id.
func SortSummaries(summaries []domain.ConversationSummary) {
	sort.SliceStable(summaries, func(i, j int) bool {
		ki, kj := summaries[i].SortKey(), summaries[j].SortKey()
		if !ki.Equal(kj) {
			return ki.After(kj)
		}
		return summaries[i].ActivityID < summaries[j].ActivityID
	})
}
