package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"listenlab/internal/domain"
	"listenlab/internal/infra/memory"
)

func TestContentRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &countingLoader{
		ContentLoader: memory.NewStaticContentLoader(map[string]domain.Content{
			"tpo-1": sampleContent(),
		}),
	}
	repo := NewContentRepository(newClient(mr), loader, time.Minute)

	content, err := repo.GetContent(context.Background(), "tpo-1")
	if err != nil {
		t.Fatalf("get content: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if len(content.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(content.Questions))
	}

	// Second call should hit the Redis cache, loader not incremented,
	// question order preserved.
	cached, err := repo.GetContent(context.Background(), "tpo-1")
	if err != nil {
		t.Fatalf("get cached content: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	if cached.Name != "Biology Lecture: Photosynthesis" {
		t.Fatalf("expected header cached, got %+v", cached)
	}
	if cached.Questions[0].ID != "q1" || cached.Questions[1].ID != "q2" {
		t.Fatalf("expected question order preserved, got %+v", cached.Questions)
	}
}

type countingLoader struct {
	ContentLoader
	calls int
}

func (l *countingLoader) LoadContent(ctx context.Context, contentID string) (domain.Content, error) {
	l.calls++
	return l.ContentLoader.LoadContent(ctx, contentID)
}

func sampleContent() domain.Content {
	return domain.Content{
		ID:       "tpo-1",
		Name:     "Biology Lecture: Photosynthesis",
		Type:     "audio",
		URL:      "https://example.org/audio/photosynthesis.mp3",
		Duration: 240,
		Questions: []domain.Question{
			{ID: "q1", Text: "Main topic?", Type: "multiple_choice", CorrectAnswer: "B"},
			{ID: "q2", Text: "Professor's view?", Type: "multiple_choice", CorrectAnswer: "A,C"},
		},
	}
}
