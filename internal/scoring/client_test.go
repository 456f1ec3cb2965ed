package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"listenlab/internal/domain"
)

func TestClientGrade(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req domain.GradeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.SessionID != "s1" || req.QuestionID != "q1" || req.Answer != "B" || req.TimeSpent != 15 {
			t.Fatalf("unexpected request: %+v", req)
		}
		json.NewEncoder(w).Encode(domain.GradeResult{
			Correct: true, CorrectAnswer: "B", Explanation: "stated directly",
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	result, err := client.Grade(context.Background(), domain.GradeRequest{
		SessionID: "s1", QuestionID: "q1", Answer: "B", TimeSpent: 15,
	})
	if err != nil {
		t.Fatalf("grade: %v", err)
	}
	if !result.Correct || result.Explanation != "stated directly" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestClientGradeFailuresAreUniform(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"server error": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		},
		"malformed body": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("not json"))
		},
	}
	for name, handler := range cases {
		server := httptest.NewServer(handler)
		client := NewClient(server.URL, time.Second)
		_, err := client.Grade(context.Background(), domain.GradeRequest{QuestionID: "q1"})
		server.Close()
		if !errors.Is(err, domain.ErrScoringUnavailable) {
			t.Fatalf("%s: expected ErrScoringUnavailable, got %v", name, err)
		}
	}
}

func TestClientGradeTimeout(t *testing.T) {
	block := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer server.Close()
	defer close(block)

	client := NewClient(server.URL, 50*time.Millisecond)
	_, err := client.Grade(context.Background(), domain.GradeRequest{QuestionID: "q1"})
	if !errors.Is(err, domain.ErrScoringUnavailable) {
		t.Fatalf("expected ErrScoringUnavailable on timeout, got %v", err)
	}
}
