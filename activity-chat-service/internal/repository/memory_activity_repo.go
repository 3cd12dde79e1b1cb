package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/weiawesome/trip-chat/activity-chat-service/internal/domain"
)

// MemoryActivityRepository is an in-memory activity directory.
type MemoryActivityRepository struct {
	activities map[string]domain.Activity
	mu         sync.RWMutex
}

func NewMemoryActivityRepository() *MemoryActivityRepository {
	return &MemoryActivityRepository{
		activities: make(map[string]domain.Activity),
	}
}

// Save stores or replaces an activity.
func (r *MemoryActivityRepository) Save(_ context.Context, activity *domain.Activity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a := *activity
	a.Participants = append([]string(nil), activity.Participants...)
	r.activities[a.ID] = a
	return nil
}

func (r *MemoryActivityRepository) GetActivity(ctx context.Context, activityID string) (*domain.Activity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.activities[activityID]
	if !ok {
		return nil, ErrActivityNotFound
	}
	a.Participants = append([]string(nil), a.Participants...)
	return &a, nil
}

func (r *MemoryActivityRepository) ListByMember(ctx context.Context, userID string) ([]domain.Activity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.Activity
	for _, a := range r.activities {
		if isMember(userID, &a) {
			a.Participants = append([]string(nil), a.Participants...)
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryActivityRepository) Close() error {
	return nil
}

func isMember(userID string, a *domain.Activity) bool {
	if a.HostID == userID {
		return true
	}
	for _, p := range a.Participants {
		if p == userID {
			return true
		}
	}
	return false
}
