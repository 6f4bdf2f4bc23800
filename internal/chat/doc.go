// Package chat implements the room and connection engine for the Parley
// chat server: a registry of claimed display names, a directory of rooms
// with per-room broadcast topics, and the per-client session loop that
// multiplexes inbound command lines with room-scoped and server-wide event
// streams.
//
// The implementation is organized into specialized files for topics, rooms,
// the directory, connections, transports, and configuration to keep the
// codebase maintainable and testable as the project grows.
package chat
