package chat

import (
	"bufio"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
)

// LineConn is the framed transport primitive the engine consumes: one UTF-8
// line per frame, whatever the underlying socket.
type LineConn interface {
	// ReadLine blocks for the next inbound frame, stripped of its line
	// terminator.
	ReadLine() (string, error)
	// WriteLine sends one frame. Safe for use alongside ReadLine from
	// another goroutine.
	WriteLine(line string) error
	Close() error
	RemoteAddr() string
}

// ErrLineTooLong reports an inbound frame exceeding the configured maximum.
// It is a protocol violation, fatal to the connection.
var ErrLineTooLong = errors.New("line exceeds maximum length")

type tcpLineConn struct {
	conn    net.Conn
	scanner *bufio.Scanner
	writeMu sync.Mutex
}

// NewTCPLineConn frames a raw TCP connection into lines. Frames longer than
// maxBytes surface as ErrLineTooLong.
func NewTCPLineConn(conn net.Conn, maxBytes int) LineConn {
	scanner := bufio.NewScanner(conn)
	if maxBytes > 0 {
		// The scanner treats the larger of max and cap(buf) as the token
		// limit, so the initial buffer must not exceed maxBytes.
		initial := 4096
		if maxBytes < initial {
			initial = maxBytes
		}
		scanner.Buffer(make([]byte, 0, initial), maxBytes)
	}
	return &tcpLineConn{conn: conn, scanner: scanner}
}

func (c *tcpLineConn) ReadLine() (string, error) {
	if !c.scanner.Scan() {
		if err := c.scanner.Err(); err != nil {
			if errors.Is(err, bufio.ErrTooLong) {
				return "", ErrLineTooLong
			}
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimRight(c.scanner.Text(), "\r"), nil
}

func (c *tcpLineConn) WriteLine(line string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_, err := c.conn.Write([]byte(line + "\n"))
	return err
}

func (c *tcpLineConn) Close() error {
	return c.conn.Close()
}

func (c *tcpLineConn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

// isExpectedDisconnect reports whether err is a routine peer disconnect
// rather than something worth logging at error level.
func isExpectedDisconnect(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "broken pipe") ||
		strings.Contains(errStr, "websocket: close")
}
