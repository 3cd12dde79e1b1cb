//go:build integration

package repository

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/weiawesome/trip-chat/activity-chat-service/internal/config"
	"github.com/weiawesome/trip-chat/activity-chat-service/internal/domain"
	"github.com/weiawesome/trip-chat/activity-chat-service/internal/idgen"
)

var mongoDBSeq atomic.Int64

// newMongoTestDB connects to MONGO_URI and hands out a throwaway database
// that is dropped when the test ends.
func newMongoTestDB(t *testing.T) *mongo.Database {
	t.Helper()

	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("MONGO_URI not set")
	}

	ctx := context.Background()
	name := fmt.Sprintf("trip_chat_test_%d_%d", time.Now().UnixNano(), mongoDBSeq.Add(1))
	db, err := NewMongoDatabase(ctx, config.MongoConfig{URI: uri, Database: name, Timeout: 5 * time.Second})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = DisconnectMongo(db)
	})
	return db
}

func TestMongoMessageRepository(t *testing.T) {
	testMessageRepository(t, func(t *testing.T) MessageRepository {
		repo, err := NewMongoMessageRepository(context.Background(), newMongoTestDB(t), idgen.NewGenerator())
		require.NoError(t, err)
		return repo
	})
}

func TestMongoActivityRepository(t *testing.T) {
	testActivityRepository(t, func(t *testing.T) (ActivityRepository, func(*domain.Activity)) {
		repo := NewMongoActivityRepository(newMongoTestDB(t))
		return repo, func(a *domain.Activity) {
			require.NoError(t, repo.Save(context.Background(), a))
		}
	})
}
