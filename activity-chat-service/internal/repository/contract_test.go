package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiawesome/trip-chat/activity-chat-service/internal/domain"
)

// testMessageRepository runs the behaviour every MessageRepository backend shares.
func testMessageRepository(t *testing.T, newRepo func(t *testing.T) MessageRepository) {
	ctx := context.Background()

	appendText := func(t *testing.T, repo MessageRepository, activityID, sender, content string) *domain.ChatMessage {
		t.Helper()
		msg, err := repo.Append(ctx, &domain.ChatMessage{
			ActivityID: activityID,
			SenderID:   sender,
			SenderName: "name-" + sender,
			Content:    content,
		})
		require.NoError(t, err)
		return msg
	}

	t.Run("append assigns id, time and seeds readBy with sender", func(t *testing.T) {
		repo := newRepo(t)

		msg := appendText(t, repo, "act-1", "alice", "hello")

		assert.NotEmpty(t, msg.ID)
		assert.False(t, msg.CreatedAt.IsZero())
		assert.Equal(t, domain.KindText, msg.Kind)
		assert.Equal(t, []string{"alice"}, msg.ReadBy)
	})

	t.Run("list returns oldest first", func(t *testing.T) {
		repo := newRepo(t)

		var ids []string
		for i := 0; i < 5; i++ {
			ids = append(ids, appendText(t, repo, "act-1", "alice", fmt.Sprintf("m%d", i)).ID)
		}
		appendText(t, repo, "act-2", "bob", "elsewhere")

		got, err := repo.List(ctx, "act-1", ListOptions{Limit: 10})
		require.NoError(t, err)
		require.Len(t, got, 5)
		for i, m := range got {
			assert.Equal(t, ids[i], m.ID)
			assert.Equal(t, fmt.Sprintf("m%d", i), m.Content)
		}
	})

	t.Run("list limit takes latest or earliest window", func(t *testing.T) {
		repo := newRepo(t)

		for i := 0; i < 5; i++ {
			appendText(t, repo, "act-1", "alice", fmt.Sprintf("m%d", i))
		}

		latest, err := repo.List(ctx, "act-1", ListOptions{Limit: 2, Order: domain.ListLatest})
		require.NoError(t, err)
		require.Len(t, latest, 2)
		assert.Equal(t, "m3", latest[0].Content)
		assert.Equal(t, "m4", latest[1].Content)

		earliest, err := repo.List(ctx, "act-1", ListOptions{Limit: 2, Order: domain.ListEarliest})
		require.NoError(t, err)
		require.Len(t, earliest, 2)
		assert.Equal(t, "m0", earliest[0].Content)
		assert.Equal(t, "m1", earliest[1].Content)
	})

	t.Run("list of unknown activity is empty", func(t *testing.T) {
		repo := newRepo(t)

		got, err := repo.List(ctx, "nope", ListOptions{})
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("unread excludes own messages and read ones", func(t *testing.T) {
		repo := newRepo(t)

		appendText(t, repo, "act-1", "alice", "a1")
		appendText(t, repo, "act-1", "alice", "a2")
		appendText(t, repo, "act-1", "bob", "b1")

		n, err := repo.CountUnread(ctx, "act-1", "bob")
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		n, err = repo.CountUnread(ctx, "act-1", "alice")
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		n, err = repo.CountUnread(ctx, "act-1", "carol")
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)
	})

	t.Run("mark read is idempotent and clears unread", func(t *testing.T) {
		repo := newRepo(t)

		appendText(t, repo, "act-1", "alice", "a1")
		appendText(t, repo, "act-1", "alice", "a2")
		appendText(t, repo, "act-1", "bob", "b1")

		updated, err := repo.MarkRead(ctx, "act-1", "bob")
		require.NoError(t, err)
		assert.Equal(t, int64(2), updated)

		updated, err = repo.MarkRead(ctx, "act-1", "bob")
		require.NoError(t, err)
		assert.Equal(t, int64(0), updated)

		n, err := repo.CountUnread(ctx, "act-1", "bob")
		require.NoError(t, err)
		assert.Equal(t, int64(0), n)

		got, err := repo.List(ctx, "act-1", ListOptions{})
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, []string{"alice", "bob"}, got[0].ReadBy)
		assert.Equal(t, []string{"bob"}, got[2].ReadBy)
	})

	t.Run("latest", func(t *testing.T) {
		repo := newRepo(t)

		_, err := repo.Latest(ctx, "act-1")
		assert.ErrorIs(t, err, ErrMessageNotFound)

		appendText(t, repo, "act-1", "alice", "first")
		last := appendText(t, repo, "act-1", "bob", "second")

		got, err := repo.Latest(ctx, "act-1")
		require.NoError(t, err)
		assert.Equal(t, last.ID, got.ID)
		assert.Equal(t, "second", got.Content)
	})

	t.Run("concurrent appends keep a total order", func(t *testing.T) {
		repo := newRepo(t)

		var wg sync.WaitGroup
		for w := 0; w < 4; w++ {
			wg.Add(1)
			go func(w int) {
				defer wg.Done()
				for i := 0; i < 10; i++ {
					_, err := repo.Append(ctx, &domain.ChatMessage{
						ActivityID: "act-1",
						SenderID:   fmt.Sprintf("user-%d", w),
						Content:    fmt.Sprintf("%d-%d", w, i),
					})
					assert.NoError(t, err)
				}
			}(w)
		}
		wg.Wait()

		got, err := repo.List(ctx, "act-1", ListOptions{Limit: 100})
		require.NoError(t, err)
		require.Len(t, got, 40)
		for i := 1; i < len(got); i++ {
			prev, cur := got[i-1], got[i]
			assert.False(t, cur.CreatedAt.Before(prev.CreatedAt), "createdAt must not decrease")
			assert.Less(t, prev.ID, cur.ID)
		}
	})
}

func testActivityRepository(t *testing.T, newRepo func(t *testing.T) (ActivityRepository, func(*domain.Activity))) {
	ctx := context.Background()

	t.Run("get unknown", func(t *testing.T) {
		repo, _ := newRepo(t)

		_, err := repo.GetActivity(ctx, "missing")
		assert.ErrorIs(t, err, ErrActivityNotFound)
	})

	t.Run("get and list by member", func(t *testing.T) {
		repo, save := newRepo(t)

		save(&domain.Activity{ID: "x", Name: "Hike", HostID: "alice", Participants: []string{"alice", "bob"}})
		save(&domain.Activity{ID: "y", Name: "Dinner", HostID: "carol", Participants: []string{"bob"}})
		save(&domain.Activity{ID: "z", Name: "Museum", HostID: "dave", Participants: []string{"bobby"}})

		a, err := repo.GetActivity(ctx, "x")
		require.NoError(t, err)
		assert.Equal(t, "Hike", a.Name)
		assert.Equal(t, []string{"alice", "bob"}, a.Participants)

		ids := func(list []domain.Activity) []string {
			out := make([]string, len(list))
			for i := range list {
				out[i] = list[i].ID
			}
			return out
		}

		bob, err := repo.ListByMember(ctx, "bob")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"x", "y"}, ids(bob))

		carol, err := repo.ListByMember(ctx, "carol")
		require.NoError(t, err)
		assert.Equal(t, []string{"y"}, ids(carol))

		nobody, err := repo.ListByMember(ctx, "eve")
		require.NoError(t, err)
		assert.Empty(t, nobody)
	})
}
