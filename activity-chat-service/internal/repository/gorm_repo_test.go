package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/weiawesome/trip-chat/activity-chat-service/internal/domain"
	"github.com/weiawesome/trip-chat/activity-chat-service/internal/idgen"
	"github.com/weiawesome/trip-chat/pkg/database"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.New(&database.Config{
		Driver:   "sqlite",
		FilePath: ":memory:",
		LogLevel: "silent",
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db, GormModels()...))
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

func TestGormMessageRepository(t *testing.T) {
	testMessageRepository(t, func(t *testing.T) MessageRepository {
		return NewGormMessageRepository(newTestDB(t), idgen.NewGenerator())
	})
}

func TestGormActivityRepository(t *testing.T) {
	testActivityRepository(t, func(t *testing.T) (ActivityRepository, func(*domain.Activity)) {
		repo := NewGormActivityRepository(newTestDB(t))
		return repo, func(a *domain.Activity) {
			require.NoError(t, repo.Save(context.Background(), a))
		}
	})
}

func TestGormActivityRepository_SaveUpdatesParticipants(t *testing.T) {
	ctx := context.Background()
	repo := NewGormActivityRepository(newTestDB(t))

	require.NoError(t, repo.Save(ctx, &domain.Activity{ID: "x", Name: "Hike", HostID: "alice", Participants: []string{"bob"}}))
	require.NoError(t, repo.Save(ctx, &domain.Activity{ID: "x", Name: "Hike", HostID: "alice", Participants: []string{"carol"}}))

	a, err := repo.GetActivity(ctx, "x")
	require.NoError(t, err)
	require.Equal(t, []string{"carol"}, a.Participants)

	bob, err := repo.ListByMember(ctx, "bob")
	require.NoError(t, err)
	require.Empty(t, bob)
}
