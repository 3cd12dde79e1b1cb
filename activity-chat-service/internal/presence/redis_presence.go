package presence

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/weiawesome/trip-chat/activity-chat-service/internal/config"
	"github.com/weiawesome/trip-chat/pkg/log"
)

// Redis key patterns:
// {prefix}:activity:{activity_id}:sessions   HASH<session_id, user_id>
//
// Each instance refreshes the TTL of the hashes it wrote to, so a crashed
// instance's entries expire on their own.

type RedisTracker struct {
	client            *redis.Client
	prefix            string
	keyTTL            time.Duration
	heartbeatInterval time.Duration
	managedKeys       map[string]int // key -> sessions this instance holds in it
	mu                sync.RWMutex
	cancel            context.CancelFunc
}

func NewRedisTracker(cfg config.RedisConfig) (*RedisTracker, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return newRedisTracker(client, cfg), nil
}

func newRedisTracker(client *redis.Client, cfg config.RedisConfig) *RedisTracker {
	prefix := cfg.PresencePrefix
	if prefix == "" {
		prefix = "chat:presence"
	}
	ttl := cfg.KeyTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	interval := cfg.HeartbeatInterval
	if interval <= 0 {
		interval = ttl / 3
	}

	return &RedisTracker{
		client:            client,
		prefix:            prefix,
		keyTTL:            ttl,
		heartbeatInterval: interval,
		managedKeys:       make(map[string]int),
	}
}

func (r *RedisTracker) keyFor(activityID string) string {
	return fmt.Sprintf("%s:activity:%s:sessions", r.prefix, activityID)
}

func (r *RedisTracker) Join(ctx context.Context, activityID, sessionID, userID string) error {
	key := r.keyFor(activityID)

	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, key, sessionID, userID)
	pipe.Expire(ctx, key, r.keyTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record presence: %w", err)
	}

	r.mu.Lock()
	r.managedKeys[key]++
	r.mu.Unlock()
	return nil
}

func (r *RedisTracker) Leave(ctx context.Context, activityID, sessionID string) error {
	key := r.keyFor(activityID)

	removed, err := r.client.HDel(ctx, key, sessionID).Result()
	if err != nil {
		return fmt.Errorf("failed to clear presence: %w", err)
	}

	if removed > 0 {
		r.mu.Lock()
		if r.managedKeys[key] <= 1 {
			delete(r.managedKeys, key)
		} else {
			r.managedKeys[key]--
		}
		r.mu.Unlock()
	}
	return nil
}

func (r *RedisTracker) Online(ctx context.Context, activityID string) ([]string, int, error) {
	sessions, err := r.client.HGetAll(ctx, r.keyFor(activityID)).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read presence: %w", err)
	}
	return distinctUsers(sessions), len(sessions), nil
}

func (r *RedisTracker) StartHeartbeat(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	go r.heartbeatLoop(ctx)
	l := log.L()
	l.Info().Dur("interval", r.heartbeatInterval).Dur("ttl", r.keyTTL).Msg("presence heartbeat started")
	return nil
}

func (r *RedisTracker) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(r.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.refreshKeys(ctx)
		}
	}
}

func (r *RedisTracker) refreshKeys(ctx context.Context) {
	r.mu.RLock()
	keys := make([]string, 0, len(r.managedKeys))
	for k := range r.managedKeys {
		keys = append(keys, k)
	}
	r.mu.RUnlock()

	if len(keys) == 0 {
		return
	}

	pipe := r.client.Pipeline()
	for _, key := range keys {
		pipe.Expire(ctx, key, r.keyTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		l := log.L()
		l.Error().Err(err).Int("keys", len(keys)).Msg("failed to refresh presence keys")
	}
}

func (r *RedisTracker) StopHeartbeat() {
	if r.cancel != nil {
		r.cancel()
	}
}

func (r *RedisTracker) Close() error {
	r.StopHeartbeat()
	return r.client.Close()
}

func distinctUsers(sessions map[string]string) []string {
	seen := make(map[string]struct{}, len(sessions))
	users := make([]string, 0, len(sessions))
	for _, userID := range sessions {
		if _, ok := seen[userID]; ok {
			continue
		}
		seen[userID] = struct{}{}
		users = append(users, userID)
	}
	sort.Strings(users)
	return users
}
