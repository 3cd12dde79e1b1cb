package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gocql/gocql"

	"github.com/weiawesome/trip-chat/activity-chat-service/internal/config"
)

// messagesByActivityCQL keeps one partition per activity, clustered in log order.
const messagesByActivityCQL = `CREATE TABLE IF NOT EXISTS messages_by_activity (
	activity_id text,
	created_at timestamp,
	message_id text,
	sender_id text,
	sender_name text,
	content text,
	kind text,
	read_by set<text>,
	PRIMARY KEY ((activity_id), created_at, message_id)
) WITH CLUSTERING ORDER BY (created_at ASC, message_id ASC)`

// NewCassandraSession creates a session against the configured keyspace.
func NewCassandraSession(cfg config.CassandraConfig) (*gocql.Session, error) {
	cluster := gocql.NewCluster(cfg.Hosts...)
	cluster.Keyspace = cfg.Keyspace
	cluster.Consistency = parseConsistency(cfg.Consistency)
	cluster.ConnectTimeout = cfg.ConnectTimeout
	cluster.Timeout = cfg.Timeout
	if cfg.NumConns > 0 {
		cluster.NumConns = cfg.NumConns
	}

	if cfg.Username != "" && cfg.Password != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: cfg.Username,
			Password: cfg.Password,
		}
	}

	cluster.RetryPolicy = &gocql.ExponentialBackoffRetryPolicy{
		NumRetries: 3,
		Min:        100 * time.Millisecond,
		Max:        2 * time.Second,
	}

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create cassandra session: %w", err)
	}
	return session, nil
}

// EnsureCassandraSchema creates the message table if it is missing.
func EnsureCassandraSchema(ctx context.Context, session *gocql.Session) error {
	if err := session.Query(messagesByActivityCQL).WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("failed to create messages_by_activity: %w", err)
	}
	return nil
}

func parseConsistency(s string) gocql.Consistency {
	switch strings.ToUpper(s) {
	case "ONE":
		return gocql.One
	case "QUORUM":
		return gocql.Quorum
	case "ALL":
		return gocql.All
	case "LOCAL_ONE":
		return gocql.LocalOne
	case "EACH_QUORUM":
		return gocql.EachQuorum
	default:
		return gocql.LocalQuorum
	}
}
