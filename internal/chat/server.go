package chat

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Server accepts client sockets and runs one Connection per accepted socket
// against the shared user registry, room directory, and server-wide topic.
// The accept loop never blocks on a connection's lifetime.
type Server struct {
	cfg      Config
	users    *UserRegistry
	rooms    *Directory
	events   *Topic
	upgrader websocket.Upgrader

	mu       sync.Mutex
	listener net.Listener
	httpSrv  *http.Server
	conns    map[LineConn]struct{}

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewServer wires up a server from cfg. Zero or negative config fields fall
// back to defaults.
func NewServer(cfg Config) *Server {
	cfg = cfg.sanitized()
	events := NewTopic(cfg.TopicCapacity)
	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		cfg:    cfg,
		users:  NewUserRegistry(),
		rooms:  NewDirectory(events, cfg.DefaultRoom, cfg.TopicCapacity),
		events: events,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(cfg.AllowedOrigins),
		},
		conns:  make(map[LineConn]struct{}),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Listen binds the line-oriented TCP listener without accepting yet, so
// callers can learn the bound address before serving.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.cfg.TCPAddr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	slog.Info("listening", "addr", ln.Addr().String())
	return nil
}

// Addr returns the bound TCP address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve accepts sockets until Shutdown, spawning an independent Connection
// per accepted socket. It blocks.
func (s *Server) Serve() error {
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		s.runConnection(NewTCPLineConn(conn, s.cfg.MaxLineBytes))
	}
}

// ListenAndServe binds the TCP listener and serves it. It blocks until
// Shutdown or a listener failure.
func (s *Server) ListenAndServe() error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve()
}

// runConnection tracks lc for shutdown and drives a session for it in its
// own goroutine.
func (s *Server) runConnection(lc LineConn) {
	s.mu.Lock()
	if s.ctx.Err() != nil {
		s.mu.Unlock()
		_ = lc.Close()
		return
	}
	s.conns[lc] = struct{}{}
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.conns, lc)
			s.mu.Unlock()
		}()
		NewConnection(lc, s.users, s.rooms, s.events, s.cfg).Handle()
	}()
}

// Shutdown stops accepting, closes the HTTP server and every live client
// socket, and waits for connection goroutines to finish or for timeout to
// pass.
func (s *Server) Shutdown(timeout time.Duration) error {
	s.cancel()

	s.mu.Lock()
	ln := s.listener
	httpSrv := s.httpSrv
	conns := make([]LineConn, 0, len(s.conns))
	for lc := range s.conns {
		conns = append(conns, lc)
	}
	s.mu.Unlock()

	if ln != nil {
		_ = ln.Close()
	}
	if httpSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		if err := httpSrv.Shutdown(ctx); err != nil {
			slog.Warn("http server shutdown", "error", err)
		}
		cancel()
	}
	for _, lc := range conns {
		_ = lc.Close()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("server shutdown complete")
		return nil
	case <-time.After(timeout):
		slog.Warn("shutdown timeout reached, some connections may still be draining")
		return context.DeadlineExceeded
	}
}
