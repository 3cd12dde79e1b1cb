//go:build integration

package repository

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gocql/gocql"
	"github.com/stretchr/testify/require"

	"github.com/weiawesome/trip-chat/activity-chat-service/internal/config"
	"github.com/weiawesome/trip-chat/activity-chat-service/internal/idgen"
)

const cassandraTestKeyspace = "trip_chat_test"

// newCassandraTestSession connects to CASSANDRA_HOSTS, creates the test
// keyspace and schema, and empties the message table.
func newCassandraTestSession(t *testing.T) *gocql.Session {
	t.Helper()

	hosts := os.Getenv("CASSANDRA_HOSTS")
	if hosts == "" {
		t.Skip("CASSANDRA_HOSTS not set")
	}

	cfg := config.CassandraConfig{
		Hosts:          strings.Split(hosts, ","),
		Consistency:    "ONE",
		ConnectTimeout: 10 * time.Second,
		Timeout:        10 * time.Second,
	}

	admin, err := NewCassandraSession(cfg)
	require.NoError(t, err)
	err = admin.Query(`CREATE KEYSPACE IF NOT EXISTS ` + cassandraTestKeyspace +
		` WITH replication = {'class': 'SimpleStrategy', 'replication_factor': 1}`).Exec()
	admin.Close()
	require.NoError(t, err)

	cfg.Keyspace = cassandraTestKeyspace
	session, err := NewCassandraSession(cfg)
	require.NoError(t, err)
	t.Cleanup(session.Close)

	ctx := context.Background()
	require.NoError(t, EnsureCassandraSchema(ctx, session))
	require.NoError(t, session.Query(`TRUNCATE messages_by_activity`).WithContext(ctx).Exec())
	return session
}

func TestCassandraMessageRepository(t *testing.T) {
	testMessageRepository(t, func(t *testing.T) MessageRepository {
		return NewCassandraMessageRepository(newCassandraTestSession(t), idgen.NewGenerator())
	})
}
