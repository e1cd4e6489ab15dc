package ws

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cube_controller/internal/service"
	"cube_controller/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

func startHub(t *testing.T, snap session.State) (*Hub, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	service.InitJWT("ws-secret")

	hub := NewHub(func() session.State { return snap }, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	r := gin.New()
	r.GET("/ws", HandleWS(hub, ""))
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	token, err := service.GenerateJWT(3, time.Minute)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}
	conn, _, err := websocket.DefaultDialer.Dial(url+"?token="+token, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMsg(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var m Message
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
	return m
}

func readState(t *testing.T, conn *websocket.Conn) session.State {
	t.Helper()
	m := readMsg(t, conn)
	if m.Type != MsgState {
		t.Fatalf("type = %q, want %q", m.Type, MsgState)
	}
	var s session.State
	if err := json.Unmarshal(m.Payload, &s); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	return s
}

func TestObserverReceivesSnapshots(t *testing.T) {
	hub, url := startHub(t, session.State{Version: 5, Phase: session.PhaseIdle})
	conn := dial(t, url)

	if m := readMsg(t, conn); m.Type != MsgReady {
		t.Fatalf("first frame = %q", m.Type)
	}
	if s := readState(t, conn); s.Version != 5 {
		t.Fatalf("initial version = %d", s.Version)
	}

	hub.Publish(session.State{Version: 7, Phase: session.PhasePlaying, Remaining: 2})
	hub.Publish(session.State{Version: 6, Phase: session.PhaseWaitBalance})
	hub.Publish(session.State{Version: 8, Phase: session.PhaseIdle})

	if s := readState(t, conn); s.Version != 7 || s.Phase != session.PhasePlaying || s.Remaining != 2 {
		t.Fatalf("state = %+v", s)
	}
	// version 6 is stale and skipped
	if s := readState(t, conn); s.Version != 8 {
		t.Fatalf("version = %d, want 8", s.Version)
	}
}

func TestObserverRefreshAndErrors(t *testing.T) {
	_, url := startHub(t, session.State{Version: 1})
	conn := dial(t, url)
	readMsg(t, conn)
	readState(t, conn)

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"refresh"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if s := readState(t, conn); s.Version != 1 {
		t.Fatalf("refresh version = %d", s.Version)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`hello`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if m := readMsg(t, conn); m.Type != MsgError {
		t.Fatalf("type = %q, want error", m.Type)
	}
}

func TestObserverRequiresToken(t *testing.T) {
	_, url := startHub(t, session.State{})
	_, res, err := websocket.DefaultDialer.Dial(url+"?token=bogus", nil)
	if err == nil {
		t.Fatalf("dial with bad token succeeded")
	}
	if res == nil || res.StatusCode != 401 {
		t.Fatalf("response = %v", res)
	}
}
