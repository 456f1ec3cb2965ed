package redis

import (
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"listenlab/internal/session"
)

func TestSessionStoreSetsAndClearsKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewSessionStore(newClient(mr), time.Minute)

	ctrl := session.New(session.Config{SessionID: "sess-1", TotalQuestions: 3}, nil, nil)
	store.Put("sess-1", ctrl)
	if !mr.Exists("practice:session:sess-1") {
		t.Fatalf("expected liveness key to be set")
	}
	if got, ok := store.Get("sess-1"); !ok || got != ctrl {
		t.Fatalf("expected stored controller")
	}

	store.Delete("sess-1")
	if mr.Exists("practice:session:sess-1") {
		t.Fatalf("expected liveness key to be removed")
	}
	if _, ok := store.Get("sess-1"); ok {
		t.Fatalf("expected controller removed")
	}
}
