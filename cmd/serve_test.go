package cmd

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/BioHazard786/Warpchat/internal/config"
)

func TestServe_ShutsDownCleanly(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	base := "http://" + ln.Addr().String()

	cfg := &config.Config{
		AllowedOrigins:  []string{"*"},
		SendBuffer:      8,
		MaxMessageSize:  64 * 1024,
		ShutdownTimeout: time.Second,
		RoomsAccess:     config.RoomsLocal,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errc := make(chan error, 1)
	go func() { errc <- serve(ctx, cfg, ln, slog.New(slog.DiscardHandler)) }()

	resp, err := http.Get(base + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /health: %s", resp.Status)
	}

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+ln.Addr().String()+"/ws?userId=u1", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// The connection is registered once the snapshot shows it.
	fetch := snapshotFetcher(base)
	deadline := time.Now().Add(5 * time.Second)
	for {
		snap, err := fetch(context.Background())
		if err == nil && snap.Connections == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("connection never registered: %+v, %v", snap, err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()

	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancel")
	}

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := conn.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
		t.Fatalf("ReadMessage after shutdown = %v, want a close frame", err)
	}

	if _, err := net.DialTimeout("tcp", ln.Addr().String(), time.Second); err == nil {
		t.Fatal("listener still accepting after shutdown")
	}
}
