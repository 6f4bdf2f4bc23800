package chat

import "encoding/json"

// EventType discriminates ServerEvent variants on the wire.
type EventType string

// Event type values. The room-scoped subset (message, file, joined, left,
// namechange, nudge) is what a RoomEvent may carry; the rest only ever
// appear as full ServerEvents.
const (
	EventHelp        EventType = "help"
	EventMessage     EventType = "message"
	EventFile        EventType = "file"
	EventJoined      EventType = "joined"
	EventLeft        EventType = "left"
	EventNameChange  EventType = "namechange"
	EventNudge       EventType = "nudge"
	EventRoomCreated EventType = "room_created"
	EventRoomDeleted EventType = "room_deleted"
	EventRooms       EventType = "rooms"
	EventUsers       EventType = "users"
	EventError       EventType = "error"
	EventDisconnect  EventType = "disconnect"
)

// ServerCommands summarizes the command set. It is sent inside the help
// event on connect and whenever a client asks for /help.
const ServerCommands = "/help | /name {name} | /rooms | /join {room} | /users | /file {name} {contents} | /nudge {name} | /quit"

// RoomInfo pairs a room name with its current member count for listings.
type RoomInfo struct {
	Name    string `json:"name"`
	Members int    `json:"members"`
}

// ServerEvent is one server-to-client frame. Type selects the variant and
// determines which of the remaining fields are meaningful; unused fields are
// omitted from the encoded form.
type ServerEvent struct {
	Type EventType `json:"type"`

	// Username is the acting user for room-scoped events and the
	// recipient's own name inside a help event.
	Username string `json:"username,omitempty"`

	// Room names the room a room-scoped or directory event concerns.
	Room string `json:"room,omitempty"`

	// Text holds chat message bodies, help text, and error messages.
	Text string `json:"text,omitempty"`

	// Filename and Contents carry a file transfer; Contents is base64.
	Filename string `json:"filename,omitempty"`
	Contents string `json:"contents,omitempty"`

	// Target is the new name in a namechange and the nudged user in a nudge.
	Target string `json:"target,omitempty"`

	Rooms []RoomInfo `json:"rooms,omitempty"`
	Users []string   `json:"users,omitempty"`
}

// RoomEvent is the room-scoped subset of ServerEvent. It deliberately does
// not carry the acting username or the room name; both are attached when the
// room broadcasts it, so identity lives in exactly one place.
type RoomEvent struct {
	Type     EventType
	Text     string
	Filename string
	Contents string
	Target   string
}

// tagged wraps a room event with the acting username and room name,
// producing the full ServerEvent that goes on the wire.
func (e RoomEvent) tagged(username, room string) ServerEvent {
	return ServerEvent{
		Type:     e.Type,
		Username: username,
		Room:     room,
		Text:     e.Text,
		Filename: e.Filename,
		Contents: e.Contents,
		Target:   e.Target,
	}
}

// Encode serializes the event as one JSON line (without the trailing
// newline; the transport adds framing).
func (e ServerEvent) Encode() (string, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ParseServerEvent decodes a single received line back into a ServerEvent.
func ParseServerEvent(line string) (ServerEvent, error) {
	var ev ServerEvent
	err := json.Unmarshal([]byte(line), &ev)
	return ev, err
}

// HelpEvent carries the command summary and reminds the client of its
// current display name.
func HelpEvent(username string) ServerEvent {
	return ServerEvent{Type: EventHelp, Username: username, Text: ServerCommands}
}

// ErrorEvent reports a rejected or malformed command back to its sender.
func ErrorEvent(msg string) ServerEvent {
	return ServerEvent{Type: EventError, Text: msg}
}

// RoomsEvent lists rooms and their member counts.
func RoomsEvent(rooms []RoomInfo) ServerEvent {
	return ServerEvent{Type: EventRooms, Rooms: rooms}
}

// UsersEvent lists the members of a room.
func UsersEvent(room string, users []string) ServerEvent {
	return ServerEvent{Type: EventUsers, Room: room, Users: users}
}

// DisconnectEvent tells the client the server is about to close its session.
func DisconnectEvent() ServerEvent {
	return ServerEvent{Type: EventDisconnect}
}

// RoomCreatedEvent announces a new room on the server-wide topic.
func RoomCreatedEvent(room string) ServerEvent {
	return ServerEvent{Type: EventRoomCreated, Room: room}
}

// RoomDeletedEvent announces that an emptied room was removed.
func RoomDeletedEvent(room string) ServerEvent {
	return ServerEvent{Type: EventRoomDeleted, Room: room}
}
