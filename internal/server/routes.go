package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"slices"
	"time"

	"github.com/gorilla/websocket"

	"github.com/BioHazard786/Warpchat/internal/config"
	"github.com/BioHazard786/Warpchat/internal/signaling"
)

const snapshotTimeout = 2 * time.Second

// Server exposes the hub over HTTP.
type Server struct {
	hub      *signaling.Hub
	cfg      *config.Config
	log      *slog.Logger
	upgrader websocket.Upgrader
}

func New(hub *signaling.Hub, cfg *config.Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		hub: hub,
		cfg: cfg,
		log: logger.With("component", "http"),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  64 * 1024, // 64 KB
		WriteBufferSize: 64 * 1024, // 64 KB
		Subprotocols:    signaling.Subprotocols,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// Handler returns the routes of the signaling server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthCheckHandler)
	mux.HandleFunc("GET /ws", s.ServeWs)
	if s.cfg.RoomsAccess != config.RoomsOff {
		mux.HandleFunc("GET /rooms", s.handleRooms)
	}
	return mux
}

// Health Check endpoint
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Signaling server is healthy."))
}

// ServeWs upgrades the request and hands the connection to the hub. The
// optional userId query parameter is taken at face value and subscribes the
// connection to that user's personal room.
func (s *Server) ServeWs(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error.
		s.log.Debug("websocket upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}

	client := signaling.NewClient(s.hub, conn, signaling.ClientOptions{
		UserID:         r.URL.Query().Get("userId"),
		Codec:          signaling.CodecFor(conn.Subprotocol()),
		SendBuffer:     s.cfg.SendBuffer,
		MaxMessageSize: s.cfg.MaxMessageSize,
		Logger:         s.log,
	})

	if !s.hub.Register(client) {
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}

func (s *Server) handleRooms(w http.ResponseWriter, r *http.Request) {
	if s.cfg.RoomsAccess != config.RoomsPublic && !isLoopback(r.RemoteAddr) {
		s.log.Debug("rooms request refused", "remote", r.RemoteAddr)
		http.Error(w, "rooms are only served to local clients", http.StatusForbidden)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), snapshotTimeout)
	defer cancel()

	snap, err := s.hub.Snapshot(ctx)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, signaling.ErrHubClosed) {
			status = http.StatusServiceUnavailable
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snap); err != nil {
		s.log.Debug("write snapshot failed", "err", err)
	}
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if s.cfg.AllowsAnyOrigin() {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		// Not a browser.
		return true
	}
	return slices.Contains(s.cfg.AllowedOrigins, origin)
}

func isLoopback(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	ip, err := netip.ParseAddr(host)
	return err == nil && ip.Unmap().IsLoopback()
}
