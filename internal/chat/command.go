package chat

import (
	"errors"
	"fmt"
	"strings"
)

// CommandPrefix starts every client command line. Lines without it are
// plain chat messages.
const CommandPrefix = "/"

// CommandKind identifies a parsed client command.
type CommandKind int

// The client command set.
const (
	CmdHelp CommandKind = iota
	CmdRename
	CmdListRooms
	CmdJoin
	CmdListUsers
	CmdSendFile
	CmdNudge
	CmdQuit
)

// Command is one parsed client command line. Name holds the argument of
// name/join/nudge; Filename and Contents belong to file transfers.
type Command struct {
	Kind     CommandKind
	Name     string
	Filename string
	Contents string
}

// Argument errors reported back to the sender; a missing argument is a
// recoverable protocol error, never a crash.
var (
	errNameRequired     = errors.New("a name is required")
	errRoomRequired     = errors.New("a room name is required")
	errFileNameRequired = errors.New("a file name is required")
	errFileBodyRequired = errors.New("file contents are required")
	errUserRequired     = errors.New("a username is required")
)

// IsCommand reports whether line should be parsed as a command rather than
// broadcast as a chat message.
func IsCommand(line string) bool {
	return strings.HasPrefix(line, CommandPrefix)
}

// ParseCommand parses a command line into a Command. The error text for
// unknown verbs and missing arguments is user-facing.
func ParseCommand(line string) (Command, error) {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return Command{}, fmt.Errorf("invalid command %q", line)
	}

	arg := func(err error) (string, error) {
		if len(parts) < 2 {
			return "", err
		}
		return parts[1], nil
	}

	switch parts[0] {
	case "/help":
		return Command{Kind: CmdHelp}, nil
	case "/name":
		name, err := arg(errNameRequired)
		if err != nil {
			return Command{}, err
		}
		return Command{Kind: CmdRename, Name: name}, nil
	case "/rooms":
		return Command{Kind: CmdListRooms}, nil
	case "/join", "/j":
		room, err := arg(errRoomRequired)
		if err != nil {
			return Command{}, err
		}
		return Command{Kind: CmdJoin, Name: room}, nil
	case "/users":
		return Command{Kind: CmdListUsers}, nil
	case "/file":
		if len(parts) < 2 {
			return Command{}, errFileNameRequired
		}
		if len(parts) < 3 {
			return Command{}, errFileBodyRequired
		}
		return Command{Kind: CmdSendFile, Filename: parts[1], Contents: parts[2]}, nil
	case "/nudge":
		user, err := arg(errUserRequired)
		if err != nil {
			return Command{}, err
		}
		return Command{Kind: CmdNudge, Name: user}, nil
	case "/quit":
		return Command{Kind: CmdQuit}, nil
	default:
		return Command{}, fmt.Errorf("unknown command %q", parts[0])
	}
}
