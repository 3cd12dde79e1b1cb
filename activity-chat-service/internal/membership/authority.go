package membership

import (
	"context"
	"errors"
	"fmt"

	"github.com/weiawesome/trip-chat/activity-chat-service/internal/domain"
	"github.com/weiawesome/trip-chat/activity-chat-service/internal/repository"
)

var (
	ErrActivityNotFound = errors.New("activity not found")
	ErrNotMember        = errors.New("user is neither host nor participant")
)

// Directory is the slice of the activity directory the authority reads.
type Directory interface {
	GetActivity(ctx context.Context, activityID string) (*domain.Activity, error)
}

// CanAccess reports whether userID may read and write the activity's channel.
func CanAccess(userID string, activity *domain.Activity) bool {
	if userID == "" || activity == nil {
		return false
	}
	if activity.HostID == userID {
		return true
	}
	for _, p := range activity.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// Authority resolves (user, activity) access against a fresh directory read.
// Nothing is cached: participant lists change while connections stay open.
type Authority struct {
	directory Directory
}

func NewAuthority(directory Directory) *Authority {
	return &Authority{directory: directory}
}

// Authorize fetches the current activity snapshot and checks access.
// The snapshot is returned so callers do not read the directory twice.
func (a *Authority) Authorize(ctx context.Context, userID, activityID string) (*domain.Activity, error) {
	activity, err := a.directory.GetActivity(ctx, activityID)
	if err != nil {
		if errors.Is(err, repository.ErrActivityNotFound) {
			return nil, ErrActivityNotFound
		}
		return nil, fmt.Errorf("failed to load activity %s: %w", activityID, err)
	}

	if !CanAccess(userID, activity) {
		return activity, ErrNotMember
	}
	return activity, nil
}
