package chat

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Connection is one client session. It owns the line transport, the
// client's current display name and room membership, and the select loop
// that multiplexes inbound command lines with the room-scoped and
// server-wide event subscriptions.
//
// Session state is only ever touched from the Handle loop; the select is
// the single suspension point, so there is no locking inside a connection.
type Connection struct {
	id      string
	conn    LineConn
	users   *UserRegistry
	rooms   *Directory
	events  *Topic
	limiter *lineLimiter
	log     *slog.Logger

	username  string
	room      *Room
	roomSub   *Subscription
	serverSub *Subscription
}

// inboundLine is one read-pump result: a frame or the error that ended the
// stream, never both.
type inboundLine struct {
	text string
	err  error
}

// NewConnection binds a freshly accepted transport to the shared registry,
// directory, and server-wide topic.
func NewConnection(conn LineConn, users *UserRegistry, rooms *Directory, events *Topic, cfg Config) *Connection {
	id := uuid.NewString()
	return &Connection{
		id:      id,
		conn:    conn,
		users:   users,
		rooms:   rooms,
		events:  events,
		limiter: newLineLimiter(cfg.RateLimit),
		log:     slog.With("conn", id, "addr", conn.RemoteAddr()),
	}
}

// Handle runs the session until the client quits or the transport fails.
// Cleanup (leave room, release username, close subscriptions and socket)
// runs exactly once no matter which path ends the loop.
func (c *Connection) Handle() {
	defer c.cleanup()

	c.username = ClaimDefaultName(c.users)
	c.log.Info("client connected", "username", c.username)

	c.serverSub = c.events.Subscribe()

	if c.send(HelpEvent(c.username)) != nil {
		return
	}
	if c.send(RoomsEvent(c.rooms.List())) != nil {
		return
	}

	c.room, c.roomSub = c.rooms.Join(c.username, c.rooms.DefaultRoom())
	if c.send(UsersEvent(c.room.Name(), c.room.Members())) != nil {
		return
	}

	lines := make(chan inboundLine)
	done := make(chan struct{})
	defer close(done)
	go c.readPump(lines, done)

	for {
		select {
		case in := <-lines:
			if in.err != nil {
				c.reportReadError(in.err)
				return
			}
			if !c.handleLine(in.text) {
				return
			}

		case ev, ok := <-c.roomSub.Events():
			if !ok {
				c.resetToDefaultRoom()
				continue
			}
			if !c.forwardRoomEvent(ev) {
				return
			}

		case ev, ok := <-c.serverSub.Events():
			if !ok {
				c.log.Warn("server event stream closed", "username", c.username)
				return
			}
			if !c.forwardServerEvent(ev) {
				return
			}
		}
	}
}

// readPump feeds inbound frames to the select loop. It exits when the
// transport errors or when the session is done, whichever comes first.
func (c *Connection) readPump(lines chan<- inboundLine, done <-chan struct{}) {
	for {
		text, err := c.conn.ReadLine()
		select {
		case lines <- inboundLine{text: text, err: err}:
		case <-done:
			return
		}
		if err != nil {
			return
		}
	}
}

// handleLine processes one inbound frame while Active. It returns false
// when the session should end.
func (c *Connection) handleLine(line string) bool {
	if ok, wait := c.limiter.allow(); !ok {
		c.log.Warn("rate limit exceeded, discarding line",
			"username", c.username, "retry_in", wait)
		return c.sendOK(ErrorEvent(fmt.Sprintf(
			"too many messages, slow down (next message in %s)", wait.Round(time.Millisecond))))
	}

	if !IsCommand(line) {
		c.room.Publish(c.username, RoomEvent{Type: EventMessage, Text: line})
		return true
	}

	cmd, err := ParseCommand(line)
	if err != nil {
		return c.sendOK(ErrorEvent(err.Error() + `, try "/help"`))
	}
	return c.dispatch(cmd)
}

func (c *Connection) dispatch(cmd Command) bool {
	switch cmd.Kind {
	case CmdHelp:
		return c.sendOK(HelpEvent(c.username))
	case CmdRename:
		return c.rename(cmd.Name)
	case CmdListRooms:
		return c.sendOK(RoomsEvent(c.rooms.List()))
	case CmdListUsers:
		return c.sendOK(UsersEvent(c.room.Name(), c.room.Members()))
	case CmdJoin:
		return c.joinRoom(cmd.Name)
	case CmdSendFile:
		c.room.Publish(c.username, RoomEvent{
			Type:     EventFile,
			Filename: cmd.Filename,
			Contents: cmd.Contents,
		})
		return true
	case CmdNudge:
		return c.nudge(cmd.Name)
	case CmdQuit:
		_ = c.send(DisconnectEvent())
		return false
	}
	return true
}

// rename claims the new name, swaps it into the room, and releases the old
// claim. A taken name is rejected with no state change and no broadcast.
func (c *Connection) rename(newName string) bool {
	if !c.users.Claim(newName) {
		return c.sendOK(ErrorEvent(newName + " is already taken"))
	}

	oldName := c.username
	c.room.Rename(oldName, newName)
	c.username = newName
	c.users.Release(oldName)
	c.log.Info("username changed", "from", oldName, "to", newName)
	return true
}

// joinRoom switches the session to another room and refreshes the member
// list for the requester. Requesting the current room is a no-op answered
// with a single error event.
func (c *Connection) joinRoom(name string) bool {
	room, sub, err := c.rooms.Change(c.username, c.room, name)
	if errors.Is(err, ErrSameRoom) {
		return c.sendOK(ErrorEvent("you are already in " + name))
	}

	c.roomSub.Close()
	c.room, c.roomSub = room, sub
	return c.sendOK(UsersEvent(room.Name(), room.Members()))
}

func (c *Connection) nudge(target string) bool {
	if !c.room.HasMember(target) {
		return c.sendOK(ErrorEvent("user " + target + " not found"))
	}
	c.room.Publish(c.username, RoomEvent{Type: EventNudge, Target: target})
	return true
}

// forwardRoomEvent relays a room event to the client, first flushing any
// accumulated lag as a notification so the client knows what it missed.
func (c *Connection) forwardRoomEvent(ev ServerEvent) bool {
	if n := c.roomSub.TakeDropped(); n > 0 {
		c.log.Warn("slow consumer dropped events",
			"username", c.username, "room", c.room.Name(), "dropped", n)
		if c.send(ErrorEvent(fmt.Sprintf("server dropped %d events for you, sorry", n))) != nil {
			return false
		}
	}
	return c.send(ev) == nil
}

// forwardServerEvent relays a server-wide event, with the same lag flush as
// forwardRoomEvent so directory announcements are never lost silently.
func (c *Connection) forwardServerEvent(ev ServerEvent) bool {
	if n := c.serverSub.TakeDropped(); n > 0 {
		c.log.Warn("slow consumer dropped server events",
			"username", c.username, "dropped", n)
		if c.send(ErrorEvent(fmt.Sprintf("server dropped %d events for you, sorry", n))) != nil {
			return false
		}
	}
	return c.send(ev) == nil
}

// resetToDefaultRoom recovers from the room subscription closing underneath
// a live member. That is structurally unreachable in normal operation, but
// if it ever happens the session falls back to the default room instead of
// taking the process down.
func (c *Connection) resetToDefaultRoom() {
	c.log.Warn("room subscription closed unexpectedly",
		"username", c.username, "room", c.room.Name())
	c.rooms.Leave(c.username, c.room)
	c.room, c.roomSub = c.rooms.Join(c.username, c.rooms.DefaultRoom())
}

func (c *Connection) reportReadError(err error) {
	switch {
	case errors.Is(err, ErrLineTooLong):
		_ = c.send(ErrorEvent("message too long, disconnecting"))
		c.log.Warn("line exceeded maximum length", "username", c.username)
	case isExpectedDisconnect(err):
		// Routine hangup, nothing to report.
	default:
		c.log.Error("read failed", "username", c.username, "error", err)
	}
}

// send serializes and writes one event. A write error means the transport
// is gone and ends the session; an encoding error is logged and swallowed
// because it must never kill an otherwise healthy session.
func (c *Connection) send(ev ServerEvent) error {
	line, err := ev.Encode()
	if err != nil {
		c.log.Error("encode event", "type", string(ev.Type), "error", err)
		return nil
	}
	if err := c.conn.WriteLine(line); err != nil {
		if !isExpectedDisconnect(err) {
			c.log.Error("write failed", "username", c.username, "error", err)
		}
		return err
	}
	return nil
}

func (c *Connection) sendOK(ev ServerEvent) bool {
	return c.send(ev) == nil
}

// cleanup releases everything the session holds. Handle defers it, so it
// runs exactly once on every exit path: quit, transport error, or stream
// closure.
func (c *Connection) cleanup() {
	if c.room != nil {
		c.rooms.Leave(c.username, c.room)
	}
	if c.roomSub != nil {
		c.roomSub.Close()
	}
	if c.serverSub != nil {
		c.serverSub.Close()
	}
	if c.username != "" {
		c.users.Release(c.username)
	}
	_ = c.conn.Close()
	c.log.Info("client disconnected", "username", c.username)
}
