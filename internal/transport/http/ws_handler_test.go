package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"listenlab/internal/app"
	"listenlab/internal/domain"
	"listenlab/internal/infra/memory"
)

func sampleContent() map[string]domain.Content {
	return map[string]domain.Content{
		"tpo-1": {
			ID:   "tpo-1",
			Name: "Campus Conversation: Library Research",
			Type: "audio",
			URL:  "/audio/tpo-1.mp3",
			Questions: []domain.Question{
				{ID: "q1", Text: "Why does the student visit?", Type: "multiple_choice", Options: []string{"A", "B", "C", "D"}, CorrectAnswer: "B", AudioTimestamp: 42},
				{ID: "q2", Text: "Which sources are suggested?", Type: "multiple_answer", CorrectAnswer: "A,C"},
			},
		},
	}
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	contents := memory.NewContentRepository(memory.NewStaticContentLoader(sampleContent()), time.Minute)
	service := app.NewPracticeService(contents, memory.NewSessionStore(), app.Config{
		AdvanceDelay:  5 * time.Millisecond,
		CompleteDelay: 5 * time.Millisecond,
	})
	wsHandler := NewWSHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func dialWS(t *testing.T, server *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	u := "ws" + server.URL[len("http"):] + "/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readNext(conn *websocket.Conn, t *testing.T) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read message: %v", err)
	}
	return msg.Type, msg.Payload
}

// awaitType discards messages until one of the wanted type arrives.
func awaitType(conn *websocket.Conn, t *testing.T, want string) map[string]any {
	t.Helper()
	for i := 0; i < 20; i++ {
		typ, payload := readNext(conn, t)
		if typ == want {
			return payload
		}
	}
	t.Fatalf("did not receive %q message", want)
	return nil
}

func TestWebSocketSessionFlow(t *testing.T) {
	server := newTestServer(t)
	conn := dialWS(t, server, "?contentId=tpo-1")

	payload := awaitType(conn, t, "session")
	if payload["totalQuestions"].(float64) != 2 {
		t.Fatalf("unexpected session payload: %v", payload)
	}
	questions := payload["questions"].([]any)
	if _, leaked := questions[0].(map[string]any)["correctAnswer"]; leaked {
		t.Fatalf("correct answer leaked to client: %v", questions[0])
	}

	if err := conn.WriteJSON(map[string]any{
		"type":    "track",
		"payload": map[string]any{"questionIndex": 0, "value": "B"},
	}); err != nil {
		t.Fatalf("write track: %v", err)
	}
	marker := awaitType(conn, t, "marker")
	if marker["hasDraft"] != true {
		t.Fatalf("expected draft marker, got %v", marker)
	}

	if err := conn.WriteJSON(map[string]any{
		"type":    "submit",
		"payload": map[string]any{"questionIndex": 0, "questionId": "q1"},
	}); err != nil {
		t.Fatalf("write submit: %v", err)
	}
	feedback := awaitType(conn, t, "feedback")
	if feedback["correct"] != true {
		t.Fatalf("expected correct verdict, got %v", feedback)
	}
	show := awaitType(conn, t, "showQuestion")
	if show["question"].(float64) != 2 {
		t.Fatalf("expected advance to question 2, got %v", show)
	}

	// Arrow keys navigate unless a modifier is held.
	if err := conn.WriteJSON(map[string]any{
		"type":    "key",
		"payload": map[string]any{"key": "ArrowLeft"},
	}); err != nil {
		t.Fatalf("write key: %v", err)
	}
	show = awaitType(conn, t, "showQuestion")
	if show["question"].(float64) != 1 {
		t.Fatalf("expected ArrowLeft to go back, got %v", show)
	}

	if err := conn.WriteJSON(map[string]any{
		"type":    "track",
		"payload": map[string]any{"questionIndex": 1, "value": "C, A"},
	}); err != nil {
		t.Fatalf("write track: %v", err)
	}
	if err := conn.WriteJSON(map[string]any{
		"type":    "submit",
		"payload": map[string]any{"questionIndex": 1, "questionId": "q2"},
	}); err != nil {
		t.Fatalf("write submit: %v", err)
	}

	results := awaitType(conn, t, "results")
	stats := results["stats"].(map[string]any)
	if stats["correctAnswers"].(float64) != 2 {
		t.Fatalf("unexpected results: %v", results)
	}
	awaitType(conn, t, "completed")
}

func TestWebSocketResultsDeliveredOnce(t *testing.T) {
	server := newTestServer(t)
	conn := dialWS(t, server, "?contentId=tpo-1")
	awaitType(conn, t, "session")

	send := func(msg map[string]any) {
		t.Helper()
		if err := conn.WriteJSON(msg); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	send(map[string]any{"type": "track", "payload": map[string]any{"questionIndex": 0, "value": "B"}})
	send(map[string]any{"type": "submit", "payload": map[string]any{"questionIndex": 0, "questionId": "q1"}})
	send(map[string]any{"type": "track", "payload": map[string]any{"questionIndex": 1, "value": "A,C"}})
	send(map[string]any{"type": "submit", "payload": map[string]any{"questionIndex": 1, "questionId": "q2"}})
	awaitType(conn, t, "results")
	awaitType(conn, t, "completed")

	// An explicit completion request after the session already delivered its
	// results must not produce a second results payload.
	send(map[string]any{"type": "complete"})
	send(map[string]any{"type": "status"})
	for i := 0; i < 20; i++ {
		typ, _ := readNext(conn, t)
		if typ == "results" {
			t.Fatalf("results delivered twice")
		}
		if typ == "status" {
			return
		}
	}
	t.Fatalf("status reply never arrived")
}

func TestWebSocketPlaybackCommands(t *testing.T) {
	server := newTestServer(t)
	conn := dialWS(t, server, "?contentId=tpo-1")
	awaitType(conn, t, "session")

	send := func(msg map[string]any) {
		t.Helper()
		if err := conn.WriteJSON(msg); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	send(map[string]any{"type": "playback", "payload": map[string]any{"event": "loadstart"}})
	send(map[string]any{"type": "playback", "payload": map[string]any{"event": "loadedmetadata", "duration": 120.0}})
	send(map[string]any{"type": "toggle"})

	cmd := awaitType(conn, t, "player")
	if cmd["action"] != "play" {
		t.Fatalf("expected play command, got %v", cmd)
	}

	send(map[string]any{"type": "playback", "payload": map[string]any{"event": "play"}})
	send(map[string]any{"type": "rate", "payload": map[string]any{"rate": 1.5}})
	cmd = awaitType(conn, t, "player")
	if cmd["action"] != "rate" || cmd["value"].(float64) != 1.5 {
		t.Fatalf("expected rate command, got %v", cmd)
	}
	notice := awaitType(conn, t, "notice")
	if notice["message"] != "Playback speed: 1.5x" {
		t.Fatalf("unexpected rate notice: %v", notice)
	}

	send(map[string]any{"type": "seek", "payload": map[string]any{"seconds": 30.0}})
	cmd = awaitType(conn, t, "player")
	if cmd["action"] != "seek" || cmd["value"].(float64) != 30 {
		t.Fatalf("expected seek command, got %v", cmd)
	}

	send(map[string]any{"type": "seekToTimestamp", "payload": map[string]any{"questionIndex": 0}})
	cmd = awaitType(conn, t, "player")
	if cmd["action"] != "seek" || cmd["value"].(float64) != 42 {
		t.Fatalf("expected seek to question timestamp, got %v", cmd)
	}
}

func TestWebSocketEmptyAnswerWarning(t *testing.T) {
	server := newTestServer(t)
	conn := dialWS(t, server, "?contentId=tpo-1")
	awaitType(conn, t, "session")

	if err := conn.WriteJSON(map[string]any{
		"type":    "submit",
		"payload": map[string]any{"questionIndex": 0, "questionId": "q1"},
	}); err != nil {
		t.Fatalf("write submit: %v", err)
	}
	warning := awaitType(conn, t, "warning")
	if warning["message"] == "" {
		t.Fatalf("expected warning message, got %v", warning)
	}
}

func TestWebSocketRequiresContentID(t *testing.T) {
	server := newTestServer(t)
	resp, err := http.Get(server.URL + "/ws")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}
