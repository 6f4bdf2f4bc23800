package chat

import (
	"sort"
	"sync"
)

// Room is a named broadcast domain: the set of usernames currently joined
// plus the bounded topic their events fan out on. Rooms do not delete
// themselves when emptied; that is the Directory's job.
type Room struct {
	name  string
	topic *Topic

	mu      sync.Mutex
	members map[string]struct{}
}

func newRoom(name string, capacity int) *Room {
	return &Room{
		name:    name,
		topic:   NewTopic(capacity),
		members: make(map[string]struct{}, 8),
	}
}

// Name returns the room's identifier.
func (r *Room) Name() string {
	return r.name
}

// Join adds username to the member set, subscribes it to the room topic,
// and announces the join. Subscribing before publishing guarantees the
// joining client sees its own Joined event.
func (r *Room) Join(username string) *Subscription {
	r.mu.Lock()
	r.members[username] = struct{}{}
	r.mu.Unlock()

	sub := r.topic.Subscribe()
	r.Publish(username, RoomEvent{Type: EventJoined})
	return sub
}

// Leave removes username from the member set and announces the departure.
func (r *Room) Leave(username string) {
	r.mu.Lock()
	delete(r.members, username)
	r.mu.Unlock()

	r.Publish(username, RoomEvent{Type: EventLeft})
}

// Rename swaps oldName for newName in the member set and announces the
// change, tagged with the old name so peers can correlate it.
func (r *Room) Rename(oldName, newName string) {
	r.mu.Lock()
	delete(r.members, oldName)
	r.members[newName] = struct{}{}
	r.mu.Unlock()

	r.Publish(oldName, RoomEvent{Type: EventNameChange, Target: newName})
}

// Publish wraps ev with the acting username and this room's name and
// broadcasts it to all current subscribers. It never blocks.
func (r *Room) Publish(username string, ev RoomEvent) {
	r.topic.Publish(ev.tagged(username, r.name))
}

// Members returns the current member names in lexicographic order, so
// listings are stable for display and testing.
func (r *Room) Members() []string {
	r.mu.Lock()
	names := make([]string, 0, len(r.members))
	for name := range r.members {
		names = append(names, name)
	}
	r.mu.Unlock()

	sort.Strings(names)
	return names
}

// MemberCount returns the current number of members.
func (r *Room) MemberCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

// HasMember reports whether username is currently joined.
func (r *Room) HasMember(username string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.members[username]
	return ok
}
