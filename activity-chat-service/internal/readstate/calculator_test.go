package readstate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiawesome/trip-chat/activity-chat-service/internal/domain"
	"github.com/weiawesome/trip-chat/activity-chat-service/internal/idgen"
	"github.com/weiawesome/trip-chat/activity-chat-service/internal/repository"
)

type failingReader struct{}

func (failingReader) CountUnread(context.Context, string, string) (int64, error) {
	return 0, errors.New("store down")
}

func (failingReader) Latest(context.Context, string) (*domain.ChatMessage, error) {
	return nil, errors.New("store down")
}

func TestCalculator_Summaries(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryMessageRepository(idgen.NewGenerator())
	calc := NewCalculator(store, 2)

	base := time.Date(2020, 5, 1, 12, 0, 0, 0, time.UTC)
	activities := []domain.Activity{
		{ID: "quiet-old", Name: "Old", HostID: "alice", CreatedAt: base.Add(-48 * time.Hour)},
		{ID: "busy", Name: "Busy", HostID: "alice", Participants: []string{"bob"}, CreatedAt: base.Add(-72 * time.Hour)},
		{ID: "quiet-new", Name: "New", HostID: "carol", Participants: []string{"alice"}, CreatedAt: base},
	}

	_, err := store.Append(ctx, &domain.ChatMessage{ActivityID: "busy", SenderID: "bob", Content: "hi"})
	require.NoError(t, err)
	last, err := store.Append(ctx, &domain.ChatMessage{ActivityID: "busy", SenderID: "bob", Content: "anyone?"})
	require.NoError(t, err)

	got, err := calc.Summaries(ctx, "alice", activities)
	require.NoError(t, err)
	require.Len(t, got, 3)

	// busy has a message from now, which is after base.
	assert.Equal(t, "busy", got[0].ActivityID)
	assert.Equal(t, int64(2), got[0].UnreadCount)
	require.NotNil(t, got[0].LastMessage)
	assert.Equal(t, last.ID, got[0].LastMessage.ID)
	require.NotNil(t, got[0].LastMessageAt)

	assert.Equal(t, "quiet-new", got[1].ActivityID)
	assert.Nil(t, got[1].LastMessage)
	assert.Nil(t, got[1].LastMessageAt)
	assert.Equal(t, int64(0), got[1].UnreadCount)

	assert.Equal(t, "quiet-old", got[2].ActivityID)
	assert.Equal(t, []string{}, got[2].Participants)
}

func TestCalculator_Unread(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryMessageRepository(idgen.NewGenerator())
	calc := NewCalculator(store, 0)

	_, err := store.Append(ctx, &domain.ChatMessage{ActivityID: "x", SenderID: "alice", Content: "hey"})
	require.NoError(t, err)

	n, err := calc.Unread(ctx, "x", "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = calc.Unread(ctx, "x", "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestCalculator_StoreFailure(t *testing.T) {
	calc := NewCalculator(failingReader{}, 4)

	_, err := calc.Summaries(context.Background(), "alice", []domain.Activity{{ID: "x"}})
	assert.Error(t, err)

	got, err := calc.Summaries(context.Background(), "alice", nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSortSummaries_TieBreaksOnActivityID(t *testing.T) {
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := []domain.ConversationSummary{
		{ActivityID: "b", CreatedAt: at},
		{ActivityID: "a", CreatedAt: at},
	}
	SortSummaries(rows)
	assert.Equal(t, "a", rows[0].ActivityID)
}
