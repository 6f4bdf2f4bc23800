package chat

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 54 * time.Second
)

// wsLineConn treats each WebSocket text message as one line. It runs its
// own ping/pong keepalive because, unlike raw TCP clients, browsers behind
// proxies go silently dead without it.
type wsLineConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	done    chan struct{}
	once    sync.Once
}

func newWSLineConn(conn *websocket.Conn, maxBytes int) *wsLineConn {
	if maxBytes > 0 {
		conn.SetReadLimit(int64(maxBytes))
	}
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	c := &wsLineConn{conn: conn, done: make(chan struct{})}
	go c.keepalive()
	return c
}

func (c *wsLineConn) keepalive() {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.writeMu.Lock()
			err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait))
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *wsLineConn) ReadLine() (string, error) {
	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			if errors.Is(err, websocket.ErrReadLimit) {
				return "", ErrLineTooLong
			}
			return "", err
		}
		if msgType != websocket.TextMessage {
			continue
		}
		return strings.TrimRight(string(data), "\r\n"), nil
	}
}

func (c *wsLineConn) WriteLine(line string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, []byte(line))
}

func (c *wsLineConn) Close() error {
	c.once.Do(func() { close(c.done) })
	return c.conn.Close()
}

func (c *wsLineConn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

// originChecker builds the upgrade origin policy from the configured
// allow-list. "*" allows any origin; invalid entries are ignored.
func originChecker(origins []string) func(*http.Request) bool {
	allowed := make(map[string]struct{}, len(origins))
	allowAll := false

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		if trimmed == "*" {
			allowAll = true
			continue
		}
		normalized, ok := normalizeOrigin(trimmed)
		if !ok {
			slog.Warn("ignoring invalid origin in configuration", "origin", origin)
			continue
		}
		allowed[normalized] = struct{}{}
	}

	return func(r *http.Request) bool {
		if allowAll {
			return true
		}
		normalized, ok := normalizeOrigin(r.Header.Get("Origin"))
		if !ok {
			return false
		}
		if _, exists := allowed[normalized]; exists {
			return true
		}
		slog.Warn("blocked WebSocket connection from disallowed origin", "origin", r.Header.Get("Origin"))
		return false
	}
}

func normalizeOrigin(origin string) (string, bool) {
	parsed, err := url.Parse(origin)
	if err != nil {
		return "", false
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", false
	}
	return strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host), true
}
