package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"courseos-backend/internal/logger"
	"courseos-backend/internal/middleware"
	"courseos-backend/internal/models"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHubDeliversToConnectedUser(t *testing.T) {
	jwtAuth := middleware.NewJWTAuth("secret")
	hub := NewHub(nil, jwtAuth, logger.Nop())
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer srv.Close()
	defer hub.Close()

	userID := uuid.New()
	token, err := jwtAuth.GenerateAccessToken(userID, "a@example.com")
	if err != nil {
		t.Fatalf("token: %v", err)
	}

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	waitFor(t, func() bool { return hub.Connected(userID) })

	if hub.SendToUser(uuid.New(), models.WSMessage{Type: models.WSNarration}) {
		t.Error("message to a user without connections should not be delivered")
	}
	if !hub.SendToUser(userID, models.WSMessage{Type: models.WSNarration, Payload: "hello"}) {
		t.Fatal("expected delivery to the connected user")
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), `"type":"narration"`) {
		t.Errorf("unexpected frame %s", data)
	}

	conn.Close()
	waitFor(t, func() bool { return !hub.Connected(userID) })
}

func TestHubReportsLastDisconnect(t *testing.T) {
	jwtAuth := middleware.NewJWTAuth("secret")
	hub := NewHub(nil, jwtAuth, logger.Nop())
	gone := make(chan uuid.UUID, 4)
	hub.OnLastDisconnect(func(userID uuid.UUID) { gone <- userID })

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer srv.Close()
	defer hub.Close()

	userID := uuid.New()
	token, err := jwtAuth.GenerateAccessToken(userID, "a@example.com")
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?token=" + token

	first, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	second, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	waitFor(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		return len(hub.connections[userID]) == 2
	})

	first.Close()
	waitFor(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		return len(hub.connections[userID]) == 1
	})
	select {
	case <-gone:
		t.Fatal("callback ran while a connection was still open")
	default:
	}

	second.Close()
	select {
	case got := <-gone:
		if got != userID {
			t.Errorf("callback user = %s, want %s", got, userID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("last disconnect was not reported")
	}
}

func TestHubRejectsMissingOrBadToken(t *testing.T) {
	hub := NewHub(nil, middleware.NewJWTAuth("secret"), logger.Nop())

	for _, q := range []string{"", "?token=garbage"} {
		rr := httptest.NewRecorder()
		hub.HandleWebSocket(rr, httptest.NewRequest(http.MethodGet, "/ws"+q, nil))
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("query %q: expected 401, got %d", q, rr.Code)
		}
	}
}
