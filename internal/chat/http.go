package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// Routes wires the HTTP endpoints onto a mux router.
func (s *Server) Routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/rooms", s.handleRooms).Methods(http.MethodGet)
	r.HandleFunc("/ws", s.handleWebSocket).Methods(http.MethodGet)
	return r
}

// ListenAndServeHTTP runs the HTTP listener until Shutdown. It blocks.
func (s *Server) ListenAndServeHTTP() error {
	srv := &http.Server{
		Addr:         s.cfg.HTTPAddr,
		Handler:      s.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	s.mu.Lock()
	s.httpSrv = srv
	s.mu.Unlock()

	slog.Info("http listening", "addr", s.cfg.HTTPAddr)
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprint(w, "parley server is running")
}

// handleRooms serves the directory listing in its canonical order: member
// count descending, ties by name ascending.
func (s *Server) handleRooms(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.rooms.List()); err != nil {
		slog.Error("encode room listing", "error", err)
	}
}

// handleWebSocket upgrades the request and hands the socket to the same
// connection engine the TCP listener uses; each text message is one line.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "addr", r.RemoteAddr, "error", err)
		return
	}
	s.runConnection(newWSLineConn(conn, s.cfg.MaxLineBytes))
}
