package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/abrezinsky/squarespool/internal/logger"
	"github.com/abrezinsky/squarespool/internal/models"
	"github.com/abrezinsky/squarespool/internal/services"
)

// mockStateSource returns a fixed game state
type mockStateSource struct {
	mu    sync.Mutex
	state models.GameState
	err   error
	calls int
}

func (m *mockStateSource) GetState(ctx context.Context) (models.GameState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.state, m.err
}

func liveState() *mockStateSource {
	return &mockStateSource{state: models.GameState{AFCScore: 14, NFCScore: 10, Quarter: 2, Clock: "4:31", Phase: models.PhaseLive, Version: 7}}
}

func dial(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(hub.ServeWs))
	t.Cleanup(server.Close)

	url := "ws" + server.URL[4:]
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	t.Cleanup(func() { ws.Close() })
	return ws
}

func readMessage(t *testing.T, ws *websocket.Conn) models.WSMessage {
	t.Helper()
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("failed to read message: %v", err)
	}
	var msg models.WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("failed to unmarshal message: %v", err)
	}
	return msg
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d clients, got %d", n, hub.ClientCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestNew_CreatesHubWithDependencies(t *testing.T) {
	state := liveState()
	hub := New(logger.New(), state)

	if hub == nil {
		t.Fatal("expected hub to be created")
	}
	if hub.state != state {
		t.Error("expected state source to be set")
	}
	if hub.clients == nil || hub.broadcast == nil || hub.register == nil || hub.unregister == nil {
		t.Error("expected channels and client map to be initialized")
	}
}

func TestHub_BroadcastMessage_NoClients(t *testing.T) {
	hub := New(logger.New(), liveState())
	hub.Start()

	done := make(chan bool)
	go func() {
		hub.BroadcastMessage(services.MsgGridUpdated, []int{})
		done <- true
	}()

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Error("BroadcastMessage blocked with no clients")
	}
}

func TestHub_ClientRegistration(t *testing.T) {
	hub := New(logger.New(), liveState())
	hub.Start()

	client := &Client{hub: hub, send: make(chan models.WSMessage, sendBuffer)}
	hub.register <- client
	waitForClients(t, hub, 1)

	hub.unregister <- client
	waitForClients(t, hub, 0)

	if _, ok := <-client.send; ok {
		t.Error("expected send channel closed on unregister")
	}
}

func TestHub_SlowClientIsDropped(t *testing.T) {
	hub := New(logger.New(), liveState())
	hub.Start()

	client := &Client{hub: hub, send: make(chan models.WSMessage)}
	hub.register <- client
	waitForClients(t, hub, 1)

	hub.BroadcastMessage(services.MsgGameState, nil)
	waitForClients(t, hub, 0)
}

func TestServeWs_SendsGameStateOnConnect(t *testing.T) {
	state := liveState()
	hub := New(logger.New(), state)
	hub.Start()

	ws := dial(t, hub)
	msg := readMessage(t, ws)

	if msg.Type != services.MsgGameState {
		t.Fatalf("expected %s first, got %s", services.MsgGameState, msg.Type)
	}
	payload, ok := msg.Payload.(map[string]interface{})
	if !ok {
		t.Fatalf("expected object payload, got %T", msg.Payload)
	}
	if payload["afc_score"] != float64(14) || payload["is_live"] != true {
		t.Errorf("unexpected game state payload: %v", payload)
	}
}

func TestServeWs_StateErrorStillConnects(t *testing.T) {
	state := &mockStateSource{err: errors.New("database is locked")}
	hub := New(logger.New(), state)
	hub.Start()

	ws := dial(t, hub)
	waitForClients(t, hub, 1)

	hub.BroadcastMessage(services.MsgPoolReset, map[string]interface{}{"reset": []string{"squares"}})
	msg := readMessage(t, ws)
	if msg.Type != services.MsgPoolReset {
		t.Errorf("expected %s, got %s", services.MsgPoolReset, msg.Type)
	}
}

func TestServeWs_BroadcastReachesEveryClient(t *testing.T) {
	hub := New(logger.New(), liveState())
	hub.Start()

	first := dial(t, hub)
	second := dial(t, hub)
	waitForClients(t, hub, 2)
	readMessage(t, first)
	readMessage(t, second)

	hub.BroadcastMessage(services.MsgQuarterWinner, models.QuarterWinner{Quarter: 1, RowNumber: 7, ColNumber: 3})

	for _, ws := range []*websocket.Conn{first, second} {
		msg := readMessage(t, ws)
		if msg.Type != services.MsgQuarterWinner {
			t.Errorf("expected %s, got %s", services.MsgQuarterWinner, msg.Type)
		}
	}
}

func TestServeWs_DisconnectUnregisters(t *testing.T) {
	hub := New(logger.New(), liveState())
	hub.Start()

	ws := dial(t, hub)
	waitForClients(t, hub, 1)

	ws.Close()
	waitForClients(t, hub, 0)
}

func TestServeWs_NotAWebSocket(t *testing.T) {
	hub := New(logger.New(), liveState())
	hub.Start()

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	w := httptest.NewRecorder()
	hub.ServeWs(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for a plain request, got %d", w.Code)
	}
	if hub.ClientCount() != 0 {
		t.Error("expected no client registered")
	}
}
