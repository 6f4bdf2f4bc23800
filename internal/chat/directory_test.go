package chat

import (
	"errors"
	"math/rand"
	"reflect"
	"testing"
)

func newTestDirectory() (*Directory, *Subscription) {
	events := NewTopic(64)
	d := NewDirectory(events, DefaultRoomName, 64)
	return d, events.Subscribe()
}

// drainEvents returns whatever is buffered on sub right now, without
// waiting for more.
func drainEvents(sub *Subscription) []ServerEvent {
	var evs []ServerEvent
	for {
		select {
		case ev := <-sub.Events():
			evs = append(evs, ev)
		default:
			return evs
		}
	}
}

func countEvents(evs []ServerEvent, kind EventType, room string) int {
	n := 0
	for _, ev := range evs {
		if ev.Type == kind && ev.Room == room {
			n++
		}
	}
	return n
}

// TestJoinCreatesRoomExactlyOnce verifies lazy creation announces the room
// once, and a second joiner converges on the same instance.
func TestJoinCreatesRoomExactlyOnce(t *testing.T) {
	d, serverSub := newTestDirectory()

	first, _ := d.Join("alice", "office")
	second, _ := d.Join("bob", "office")

	if first != second {
		t.Fatal("two joins produced distinct room instances")
	}

	evs := drainEvents(serverSub)
	if got := countEvents(evs, EventRoomCreated, "office"); got != 1 {
		t.Fatalf("room_created published %d times, want 1", got)
	}
}

// TestLastLeaveDeletesRoom verifies delete-when-empty with exactly one
// deletion announcement.
func TestLastLeaveDeletesRoom(t *testing.T) {
	d, serverSub := newTestDirectory()

	room, _ := d.Join("alice", "office")
	d.Leave("alice", room)

	for _, info := range d.List() {
		if info.Name == "office" {
			t.Fatal("office still listed after its last member left")
		}
	}
	evs := drainEvents(serverSub)
	if got := countEvents(evs, EventRoomDeleted, "office"); got != 1 {
		t.Fatalf("room_deleted published %d times, want 1", got)
	}
}

// TestDefaultRoomSurvivesEmpty verifies the lobby is never deleted, even at
// zero members.
func TestDefaultRoomSurvivesEmpty(t *testing.T) {
	d, serverSub := newTestDirectory()

	room, _ := d.Join("alice", DefaultRoomName)
	d.Leave("alice", room)

	found := false
	for _, info := range d.List() {
		if info.Name == DefaultRoomName {
			found = true
			if info.Members != 0 {
				t.Fatalf("lobby member count = %d, want 0", info.Members)
			}
		}
	}
	if !found {
		t.Fatal("lobby missing from listing after emptying")
	}
	if got := countEvents(drainEvents(serverSub), EventRoomDeleted, DefaultRoomName); got != 0 {
		t.Fatal("lobby deletion was announced")
	}
}

// TestChangeSameRoomIsRejectedNoOp verifies asking for the current room
// returns ErrSameRoom with zero membership changes and zero room events.
func TestChangeSameRoomIsRejectedNoOp(t *testing.T) {
	d, _ := newTestDirectory()

	room, sub := d.Join("alice", "office")
	drainEvents(sub) // own joined event

	got, newSub, err := d.Change("alice", room, "office")
	if !errors.Is(err, ErrSameRoom) {
		t.Fatalf("Change() error = %v, want ErrSameRoom", err)
	}
	if got != room || newSub != nil {
		t.Fatal("same-room change returned a different room or subscription")
	}
	if room.MemberCount() != 1 || !room.HasMember("alice") {
		t.Fatalf("membership changed: %v", room.Members())
	}
	if evs := drainEvents(sub); len(evs) != 0 {
		t.Fatalf("same-room change published %d room events, want 0", len(evs))
	}
}

// TestChangeMovesBetweenRooms verifies leave-then-join, including deletion
// of the emptied source room.
func TestChangeMovesBetweenRooms(t *testing.T) {
	d, serverSub := newTestDirectory()

	office, _ := d.Join("alice", "office")
	games, sub, err := d.Change("alice", office, "games")
	if err != nil {
		t.Fatalf("Change() error = %v", err)
	}
	if sub == nil || games.Name() != "games" {
		t.Fatal("change did not produce the target room")
	}
	if office.HasMember("alice") {
		t.Fatal("alice still a member of the room she left")
	}
	if !games.HasMember("alice") {
		t.Fatal("alice not a member of the room she joined")
	}

	evs := drainEvents(serverSub)
	if countEvents(evs, EventRoomDeleted, "office") != 1 {
		t.Fatal("emptied source room was not deleted")
	}
	if countEvents(evs, EventRoomCreated, "games") != 1 {
		t.Fatal("target room creation was not announced")
	}
}

// TestListOrdering verifies member count descending with ties broken by
// name ascending.
func TestListOrdering(t *testing.T) {
	d, _ := newTestDirectory()

	d.Join("alice", "busy")
	d.Join("bob", "busy")
	d.Join("carol", "quiet")
	d.Join("dave", "alpha")

	want := []RoomInfo{
		{Name: "busy", Members: 2},
		{Name: "alpha", Members: 1},
		{Name: "quiet", Members: 1},
		{Name: DefaultRoomName, Members: 0},
	}
	if got := d.List(); !reflect.DeepEqual(got, want) {
		t.Fatalf("List() = %v, want %v", got, want)
	}
}

// TestDirectoryPresenceInvariant walks a randomized join/leave/change
// sequence and checks after every step that a room is listed iff it has
// members or is the default room.
func TestDirectoryPresenceInvariant(t *testing.T) {
	d, _ := newTestDirectory()

	users := []string{"alice", "bob", "carol"}
	pool := []string{DefaultRoomName, "office", "games", "music"}
	current := make(map[string]*Room)
	subs := make(map[string]*Subscription)

	rng := rand.New(rand.NewSource(1))
	for step := 0; step < 500; step++ {
		u := users[rng.Intn(len(users))]
		switch {
		case current[u] != nil && rng.Intn(3) == 0:
			d.Leave(u, current[u])
			subs[u].Close()
			delete(current, u)
			delete(subs, u)
		case current[u] != nil:
			room, sub, err := d.Change(u, current[u], pool[rng.Intn(len(pool))])
			if err != nil {
				continue
			}
			subs[u].Close()
			current[u], subs[u] = room, sub
		default:
			room, sub := d.Join(u, pool[rng.Intn(len(pool))])
			current[u], subs[u] = room, sub
		}

		lobbyListed := false
		for _, info := range d.List() {
			if info.Name == DefaultRoomName {
				lobbyListed = true
				continue
			}
			if info.Members == 0 {
				t.Fatalf("step %d: empty room %q still listed", step, info.Name)
			}
		}
		if !lobbyListed {
			t.Fatalf("step %d: default room missing from listing", step)
		}
	}
}
