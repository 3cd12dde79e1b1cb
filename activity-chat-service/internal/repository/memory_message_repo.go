package repository

import (
	"context"
	"sync"

	"github.com/weiawesome/trip-chat/activity-chat-service/internal/domain"
)

// MemoryMessageRepository is an in-memory implementation of MessageRepository.
// Suitable for single-instance development and tests; nothing survives a restart.
type MemoryMessageRepository struct {
	gen  IDGenerator
	logs map[string][]domain.ChatMessage // activityID -> messages in commit order
	mu   sync.RWMutex
}

func NewMemoryMessageRepository(gen IDGenerator) *MemoryMessageRepository {
	return &MemoryMessageRepository{
		gen:  gen,
		logs: make(map[string][]domain.ChatMessage),
	}
}

func (r *MemoryMessageRepository) Append(ctx context.Context, msg *domain.ChatMessage) (*domain.ChatMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Stamping under the write lock keeps commit order equal to id order.
	r.mu.Lock()
	defer r.mu.Unlock()

	committed, err := stamp(r.gen, msg)
	if err != nil {
		return nil, err
	}
	r.logs[committed.ActivityID] = append(r.logs[committed.ActivityID], *committed)

	return copyMessage(committed), nil
}

func (r *MemoryMessageRepository) List(ctx context.Context, activityID string, opts ListOptions) ([]domain.ChatMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	log := r.logs[activityID]
	limit := opts.limit()
	if limit > len(log) {
		limit = len(log)
	}

	var window []domain.ChatMessage
	if opts.Order == domain.ListEarliest {
		window = log[:limit]
	} else {
		window = log[len(log)-limit:]
	}

	out := make([]domain.ChatMessage, len(window))
	for i := range window {
		out[i] = *copyMessage(&window[i])
	}
	return out, nil
}

func (r *MemoryMessageRepository) CountUnread(ctx context.Context, activityID, userID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var n int64
	for i := range r.logs[activityID] {
		if r.logs[activityID][i].IsUnreadFor(userID) {
			n++
		}
	}
	return n, nil
}

func (r *MemoryMessageRepository) Latest(ctx context.Context, activityID string) (*domain.ChatMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	log := r.logs[activityID]
	if len(log) == 0 {
		return nil, ErrMessageNotFound
	}
	return copyMessage(&log[len(log)-1]), nil
}

func (r *MemoryMessageRepository) MarkRead(ctx context.Context, activityID, userID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	log := r.logs[activityID]
	for i := range log {
		if !log[i].HasRead(userID) {
			log[i].ReadBy = append(log[i].ReadBy, userID)
			n++
		}
	}
	return n, nil
}

func (r *MemoryMessageRepository) Close() error {
	return nil
}

func copyMessage(m *domain.ChatMessage) *domain.ChatMessage {
	out := *m
	out.ReadBy = append([]string(nil), m.ReadBy...)
	return &out
}
