package cmd

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/BioHazard786/Warpchat/internal/config"
	"github.com/BioHazard786/Warpchat/internal/server"
	"github.com/BioHazard786/Warpchat/internal/signaling"
)

func TestSnapshotFetcher(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	hub := signaling.NewHub(logger)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	cfg := &config.Config{AllowedOrigins: []string{"*"}, SendBuffer: 8, MaxMessageSize: 64 * 1024}
	ts := httptest.NewServer(server.New(hub, cfg, logger).Handler())
	defer ts.Close()

	c, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws?userId=u1", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()

	fetch := snapshotFetcher(ts.URL)
	deadline := time.Now().Add(5 * time.Second)
	for {
		snap, err := fetch(context.Background())
		if err != nil {
			t.Fatalf("fetch: %v", err)
		}
		if snap.Connections == 1 && len(snap.Rooms) == 1 && snap.Rooms[0].ID == "user:u1" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("snapshot never showed the connection: %+v", snap)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSnapshotFetcher_BadStatus(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	defer ts.Close()

	if _, err := snapshotFetcher(ts.URL)(context.Background()); err == nil || !strings.Contains(err.Error(), "404") {
		t.Fatalf("err = %v, want 404 error", err)
	}
}
