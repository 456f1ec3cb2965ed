package memory

import (
	"testing"

	"listenlab/internal/session"
)

func TestSessionStoreLifecycle(t *testing.T) {
	store := NewSessionStore()

	ctrl := session.New(session.Config{SessionID: "s1", TotalQuestions: 2}, nil, nil)
	store.Put("s1", ctrl)

	if got, ok := store.Get("s1"); !ok || got != ctrl {
		t.Fatalf("expected stored controller")
	}

	store.Delete("s1")
	if _, ok := store.Get("s1"); ok {
		t.Fatalf("expected controller removed")
	}
}
