package handler_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	ws "github.com/quizdeck/quizdeck-backend/internal/websocket"
)

func TestAttemptStreamOverWebSocket(t *testing.T) {
	env := newTestEnv(t)

	sess, err := env.attempts.Start(context.Background(), env.exam.ID, 0, "")
	if err != nil {
		t.Fatalf("start attempt: %v", err)
	}

	server := httptest.NewServer(env.engine)
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/ws/v1/attempts/" + sess.AttemptID().String() + "/stream"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// The server pushes the initial snapshot before reading anything.
	event, payload := readEvent(t, conn)
	if event != string(ws.EventState) {
		t.Fatalf("first event = %s, want state", event)
	}

	state, ok := payload["state"].(map[string]any)
	if !ok {
		t.Fatal("state event missing state payload")
	}
	question, _ := state["question"].(map[string]any)
	options, _ := question["options"].([]any)
	if len(options) != 4 {
		t.Fatalf("options = %d, want 4", len(options))
	}

	// Answer the current question with its first shuffled option.
	if err := conn.WriteJSON(ws.AnswerRequest{Action: ws.ActionAnswer, Option: options[0].(string)}); err != nil {
		t.Fatalf("write answer: %v", err)
	}
	event, _ = readEvent(t, conn)
	if event != string(ws.EventState) {
		t.Fatalf("after answer event = %s, want state", event)
	}

	if err := conn.WriteJSON(ws.SubmitRequest{Action: ws.ActionSubmit}); err != nil {
		t.Fatalf("write submit: %v", err)
	}

	// Submit answers with graded; the auto-submit watcher may push a second
	// graded event, so accept either ordering.
	gradedSeen := false
	for i := 0; i < 3 && !gradedSeen; i++ {
		event, payload = readEvent(t, conn)
		if event == string(ws.EventGraded) {
			gradedSeen = true
			result, _ := payload["result"].(map[string]any)
			if result == nil {
				t.Fatal("graded event missing result")
			}
			if _, ok := result["score"]; !ok {
				t.Fatal("graded result missing score")
			}
		}
	}
	if !gradedSeen {
		t.Fatal("never received a graded event")
	}

	// Ping still answers after submission.
	if err := conn.WriteJSON(ws.RequestEnvelope{Action: ws.ActionPing}); err != nil {
		t.Fatalf("write ping: %v", err)
	}
	for i := 0; i < 3; i++ {
		event, _ = readEvent(t, conn)
		if event == string(ws.EventPong) {
			return
		}
	}
	t.Fatal("never received pong")
}

func TestAttemptStreamUnknownAttempt(t *testing.T) {
	env := newTestEnv(t)

	server := httptest.NewServer(env.engine)
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/ws/v1/attempts/00000000-0000-0000-0000-000000000000/stream"
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if err == nil {
		t.Fatal("expected dial to fail for unknown attempt")
	}
	if resp == nil || resp.StatusCode != 404 {
		t.Fatalf("expected 404 handshake response, got %+v", resp)
	}
}

func readEvent(t *testing.T, conn *websocket.Conn) (string, map[string]any) {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var payload map[string]any
	if err := conn.ReadJSON(&payload); err != nil {
		t.Fatalf("read event: %v", err)
	}
	event, _ := payload["event"].(string)
	return event, payload
}
