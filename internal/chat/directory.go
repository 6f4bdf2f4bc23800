package chat

import (
	"errors"
	"log/slog"
	"sort"
	"sync"
)

// DefaultRoomName is the lobby every client lands in after connecting. It
// is the one room that survives reaching zero members.
const DefaultRoomName = "lobby"

// ErrSameRoom is returned by Change when a client asks to join the room it
// is already in. It is a business-rule rejection, not a failure: the caller
// reports it to the requester and nothing changes.
var ErrSameRoom = errors.New("already in that room")

// Directory owns the mapping of room name to Room. Rooms are created lazily
// on first join and removed the moment their last member leaves, except the
// default room. Directory-level lifecycle events (room created, room
// deleted) are published on the server-wide topic.
//
// All membership mutations go through the directory lock, so two
// connections racing to create the same room converge on one instance, and
// a room can never be observed in the directory with zero members.
type Directory struct {
	mu          sync.Mutex
	rooms       map[string]*Room
	events      *Topic
	capacity    int
	defaultRoom string
}

// NewDirectory creates a directory whose lifecycle events go to the given
// server-wide topic. The default room exists from the start.
func NewDirectory(events *Topic, defaultRoom string, capacity int) *Directory {
	if defaultRoom == "" {
		defaultRoom = DefaultRoomName
	}
	d := &Directory{
		rooms:       make(map[string]*Room, 8),
		events:      events,
		capacity:    capacity,
		defaultRoom: defaultRoom,
	}
	d.rooms[defaultRoom] = newRoom(defaultRoom, capacity)
	return d
}

// DefaultRoom returns the name of the protected default room.
func (d *Directory) DefaultRoom() string {
	return d.defaultRoom
}

// Join looks up or lazily creates roomName, announcing the creation on the
// server-wide topic exactly once, then joins username to it.
func (d *Directory) Join(username, roomName string) (*Room, *Subscription) {
	d.mu.Lock()
	defer d.mu.Unlock()

	room, ok := d.rooms[roomName]
	if !ok {
		room = newRoom(roomName, d.capacity)
		d.rooms[roomName] = room
		d.events.Publish(RoomCreatedEvent(roomName))
		slog.Debug("room created", "room", roomName)
	}
	return room, room.Join(username)
}

// Leave removes username from room. If that empties the room and it is not
// the default room, the room is deleted and the deletion announced.
func (d *Directory) Leave(username string, room *Room) {
	d.mu.Lock()
	defer d.mu.Unlock()

	room.Leave(username)
	if room.MemberCount() > 0 || room.Name() == d.defaultRoom {
		return
	}
	delete(d.rooms, room.Name())
	d.events.Publish(RoomDeletedEvent(room.Name()))
	slog.Debug("room deleted", "room", room.Name())
}

// Change moves username from its current room to toName with a
// leave-then-join. There is a brief window where the user belongs to
// neither member set; it is not externally observable as a hang. Asking for
// the current room returns ErrSameRoom and changes nothing.
func (d *Directory) Change(username string, from *Room, toName string) (*Room, *Subscription, error) {
	if from != nil && from.Name() == toName {
		return from, nil, ErrSameRoom
	}
	if from != nil {
		d.Leave(username, from)
	}
	room, sub := d.Join(username, toName)
	return room, sub, nil
}

// List returns every room with its member count, ordered by member count
// descending with ties broken by name ascending. The tie-break is a
// deliberate, stable policy, not incidental.
func (d *Directory) List() []RoomInfo {
	d.mu.Lock()
	infos := make([]RoomInfo, 0, len(d.rooms))
	for _, room := range d.rooms {
		infos = append(infos, RoomInfo{Name: room.Name(), Members: room.MemberCount()})
	}
	d.mu.Unlock()

	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Members != infos[j].Members {
			return infos[i].Members > infos[j].Members
		}
		return infos[i].Name < infos[j].Name
	})
	return infos
}
