package hub

import (
	"sort"
	"sync"
)

// Registry maps activity ids to the live sessions subscribed to them.
// A room exists only while it has at least one member.
type Registry struct {
	rooms    map[string]map[string]Session  // activityID -> sessionID -> session
	sessions map[string]map[string]struct{} // sessionID -> activityIDs
	mu       sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		rooms:    make(map[string]map[string]Session),
		sessions: make(map[string]map[string]struct{}),
	}
}

// Join adds the session to the room. It reports false if it was already there.
func (r *Registry) Join(activityID string, s Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[activityID]
	if !ok {
		room = make(map[string]Session)
		r.rooms[activityID] = room
	}
	if _, exists := room[s.ID()]; exists {
		return false
	}
	room[s.ID()] = s

	joined, ok := r.sessions[s.ID()]
	if !ok {
		joined = make(map[string]struct{})
		r.sessions[s.ID()] = joined
	}
	joined[activityID] = struct{}{}
	return true
}

// Leave removes the session from the room. It reports false if it was not there.
func (r *Registry) Leave(activityID, sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.leaveLocked(activityID, sessionID)
}

// RemoveSession drops the session from every room it joined and returns
// those activity ids, sorted.
func (r *Registry) RemoveSession(sessionID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	joined := r.sessions[sessionID]
	removed := make([]string, 0, len(joined))
	for activityID := range joined {
		if r.leaveLocked(activityID, sessionID) {
			removed = append(removed, activityID)
		}
	}
	sort.Strings(removed)
	return removed
}

func (r *Registry) leaveLocked(activityID, sessionID string) bool {
	room, ok := r.rooms[activityID]
	if !ok {
		return false
	}
	if _, ok := room[sessionID]; !ok {
		return false
	}

	delete(room, sessionID)
	if len(room) == 0 {
		delete(r.rooms, activityID)
	}

	if joined, ok := r.sessions[sessionID]; ok {
		delete(joined, activityID)
		if len(joined) == 0 {
			delete(r.sessions, sessionID)
		}
	}
	return true
}

// Members returns a snapshot of the room, ordered by session id.
func (r *Registry) Members(activityID string) []Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room := r.rooms[activityID]
	members := make([]Session, 0, len(room))
	for _, s := range room {
		members = append(members, s)
	}
	sort.Slice(members, func(i, j int) bool { return members[i].ID() < members[j].ID() })
	return members
}

func (r *Registry) IsMember(activityID, sessionID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.rooms[activityID][sessionID]
	return ok
}

// RoomsOf returns the activity ids the session is subscribed to, sorted.
func (r *Registry) RoomsOf(sessionID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rooms := make([]string, 0, len(r.sessions[sessionID]))
	for activityID := range r.sessions[sessionID] {
		rooms = append(rooms, activityID)
	}
	sort.Strings(rooms)
	return rooms
}

// OnlineUsers returns the distinct users in the room, sorted, and the
// number of sessions behind them.
func (r *Registry) OnlineUsers(activityID string) ([]string, int) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room := r.rooms[activityID]
	seen := make(map[string]struct{}, len(room))
	users := make([]string, 0, len(room))
	for _, s := range room {
		if _, ok := seen[s.UserID()]; ok {
			continue
		}
		seen[s.UserID()] = struct{}{}
		users = append(users, s.UserID())
	}
	sort.Strings(users)
	return users, len(room)
}

// RoomCount returns the number of non-empty rooms.
func (r *Registry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
