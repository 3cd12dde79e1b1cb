package domain

import "time"

// Activity is the read-only view of a planned group event the chat core needs.
// The CRUD layer owns it; the chat core never mutates it.
type Activity struct {
	ID           string    `json:"activityId" bson:"_id"`
	Name         string    `json:"name" bson:"name"`
	Location     string    `json:"location" bson:"location"`
	HostID       string    `json:"hostId" bson:"hostId"`
	Participants []string  `json:"participants" bson:"participants"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
}

// ActivitySnapshot is returned alongside history reads.
type ActivitySnapshot struct {
	ActivityID   string   `json:"activityId"`
	Name         string   `json:"name"`
	Participants []string `json:"participants"`
	HostID       string   `json:"hostId"`
}

// Snapshot returns the subset of the activity exposed on the read path.
func (a *Activity) Snapshot() ActivitySnapshot {
	participants := a.Participants
	if participants == nil {
		participants = []string{}
	}
	return ActivitySnapshot{
		ActivityID:   a.ID,
		Name:         a.Name,
		Participants: participants,
		HostID:       a.HostID,
	}
}

// Identity is the authenticated caller.
type Identity struct {
	UserID      string
	DisplayName string
}
