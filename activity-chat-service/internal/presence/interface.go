package presence

import "context"

// Tracker mirrors room membership into a store other instances can read.
// The in-process hub registry stays authoritative for fan-out.
type Tracker interface {
	Join(ctx context.Context, activityID, sessionID, userID string) error
	Leave(ctx context.Context, activityID, sessionID string) error
	// Online returns the distinct users present, sorted, and their session count.
	Online(ctx context.Context, activityID string) ([]string, int, error)
	StartHeartbeat(ctx context.Context) error
	StopHeartbeat()
	Close() error
}
