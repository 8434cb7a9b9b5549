package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"github.com/seanmcgon/McTrivia/internal/config"
	"github.com/seanmcgon/McTrivia/internal/store"
)

type testEnv struct {
	srv *Server
	ts  *httptest.Server
	st  *store.Store
	mr  *miniredis.Miniredis
}

func newTestEnv(t *testing.T, triviaURL string) *testEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	st := store.New(rdb, store.DefaultOptions())

	cfg := config.Default()
	cfg.TriviaURL = triviaURL
	cfg.RecoveryGraceSeconds = 1

	srv := New(st, cfg)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &testEnv{srv: srv, ts: ts, st: st, mr: mr}
}

// fakeTrivia serves a fixed single-question batch in the provider's format.
func fakeTrivia(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"response_code": 0,
			"results": [
				{
					"question": "Capital of France?",
					"correct_answer": "Paris",
					"incorrect_answers": ["Lyon", "Nice", "Lille"]
				}
			]
		}`))
	}))
	t.Cleanup(ts.Close)
	return ts
}

func dialWS(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("websocket dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func sendEvent(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()
	payload, err := marshalEnvelope(event, data)
	if err != nil {
		t.Fatalf("marshal %s: %v", event, err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		t.Fatalf("write %s: %v", event, err)
	}
}

// readEvent reads frames until the named event arrives, skipping unrelated
// broadcasts, and returns its payload.
func readEvent(t *testing.T, conn *websocket.Conn, event string, timeout time.Duration) json.RawMessage {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		_ = conn.SetReadDeadline(deadline)
		_, payload, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("waiting for %s: %v", event, err)
		}
		var msg envelope
		if err := json.Unmarshal(payload, &msg); err != nil {
			t.Fatalf("decode frame: %v", err)
		}
		if msg.Event == event {
			return msg.Data
		}
	}
}

// expectNoEvent fails if the named event arrives within the wait window.
func expectNoEvent(t *testing.T, conn *websocket.Conn, event string, wait time.Duration) {
	t.Helper()
	deadline := time.Now().Add(wait)
	for {
		_ = conn.SetReadDeadline(deadline)
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg envelope
		if err := json.Unmarshal(payload, &msg); err != nil {
			continue
		}
		if msg.Event == event {
			t.Fatalf("unexpected %s event", event)
		}
	}
}

func decodeInto(t *testing.T, data json.RawMessage, dest any) {
	t.Helper()
	if err := json.Unmarshal(data, dest); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
}

// createRoom drives the create_game handshake and returns the room code.
func createRoom(t *testing.T, conn *websocket.Conn, name, playerID string) string {
	t.Helper()
	sendEvent(t, conn, "create_game", map[string]string{"name": name, "playerId": playerID})
	data := readEvent(t, conn, "game_created", 5*time.Second)
	var ack struct {
		Code string `json:"code"`
	}
	decodeInto(t, data, &ack)
	if ack.Code == "" {
		t.Fatal("expected a room code")
	}
	return ack.Code
}

func joinRoom(t *testing.T, conn *websocket.Conn, code, name, playerID string) joinResult {
	t.Helper()
	sendEvent(t, conn, "join_game", map[string]string{"code": code, "name": name, "playerId": playerID})
	data := readEvent(t, conn, "join_result", 5*time.Second)
	var result joinResult
	decodeInto(t, data, &result)
	return result
}

// waitForGameGone polls the store until the record is deleted.
func waitForGameGone(t *testing.T, env *testEnv, code string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := env.st.GetGame(t.Context(), code); err != nil {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("game %s still present", code)
}
