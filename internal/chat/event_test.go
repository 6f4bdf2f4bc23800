package chat

import (
	"reflect"
	"testing"
)

// TestServerEventRoundTrip encodes and re-parses every event variant and
// requires the result to be identical.
func TestServerEventRoundTrip(t *testing.T) {
	events := []ServerEvent{
		HelpEvent("alice"),
		{Type: EventMessage, Username: "alice", Room: "lobby", Text: "hello there"},
		{Type: EventFile, Username: "alice", Room: "lobby", Filename: "cat.png", Contents: "aGVsbG8="},
		{Type: EventJoined, Username: "alice", Room: "lobby"},
		{Type: EventLeft, Username: "alice", Room: "lobby"},
		{Type: EventNameChange, Username: "alice", Room: "lobby", Target: "alicia"},
		{Type: EventNudge, Username: "alice", Room: "lobby", Target: "bob"},
		RoomCreatedEvent("office"),
		RoomDeletedEvent("office"),
		RoomsEvent([]RoomInfo{{Name: "lobby", Members: 2}, {Name: "office", Members: 1}}),
		UsersEvent("lobby", []string{"alice", "bob"}),
		ErrorEvent("name is already taken"),
		DisconnectEvent(),
	}

	for _, want := range events {
		line, err := want.Encode()
		if err != nil {
			t.Fatalf("Encode(%v) error: %v", want.Type, err)
		}
		got, err := ParseServerEvent(line)
		if err != nil {
			t.Fatalf("ParseServerEvent(%q) error: %v", line, err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("round trip mismatch for %v:\n got %+v\nwant %+v", want.Type, got, want)
		}
	}
}

// TestRoomEventTagging verifies the directory/connection layer attaches the
// acting username and room name exactly once, at broadcast time.
func TestRoomEventTagging(t *testing.T) {
	ev := RoomEvent{Type: EventMessage, Text: "hi"}.tagged("alice", "lobby")
	if ev.Username != "alice" || ev.Room != "lobby" || ev.Text != "hi" {
		t.Fatalf("tagged event = %+v", ev)
	}
}

func TestParseServerEventRejectsGarbage(t *testing.T) {
	if _, err := ParseServerEvent("not json at all"); err == nil {
		t.Fatal("expected a parse error")
	}
}
